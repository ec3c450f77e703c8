package pool

import (
	"math/big"

	"github.com/defisim/clpool-go/pool/sqrtpricemath"
)

// VirtualReserves derives the reserve amounts a constant-product pool with the
// same price and depth would hold: reserve0 = L * 2^96 / sqrtP and
// reserve1 = L * sqrtP / 2^96. Useful for comparing quotes against V2-style
// pools; the pool's actual balances differ since liquidity is concentrated.
func (p *Pool) VirtualReserves() (reserve0, reserve1 *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reserve0 = new(big.Int).Lsh(p.liquidity, sqrtpricemath.Resolution)
	reserve0.Div(reserve0, p.sqrtPriceX96)
	reserve1 = new(big.Int).Mul(p.liquidity, p.sqrtPriceX96)
	reserve1.Rsh(reserve1, sqrtpricemath.Resolution)
	return reserve0, reserve1
}

// SpotPrice returns the marginal price of token0 denominated in token1,
// adjusted for token decimals: (sqrtP / 2^96)^2 scaled by 10^(d0-d1).
// zeroForOne false inverts the quote to price token1 in token0.
func (p *Pool) SpotPrice(zeroForOne bool, decimals0, decimals1 uint8) *big.Float {
	sqrtPriceX96 := p.SqrtPriceX96()

	price := new(big.Float).SetInt(sqrtPriceX96)
	price.Quo(price, new(big.Float).SetInt(sqrtpricemath.Q96))
	price.Mul(price, price)

	if diff := int(decimals0) - int(decimals1); diff > 0 {
		price.Mul(price, pow10(diff))
	} else if diff < 0 {
		price.Quo(price, pow10(-diff))
	}

	if !zeroForOne {
		price.Quo(big.NewFloat(1), price)
	}
	return price
}

func pow10(n int) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
