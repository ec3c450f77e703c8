// Package liquiditymath applies signed liquidity deltas and derives liquidity
// from token amounts.
package liquiditymath

import (
	"errors"
	"math/big"
)

var (
	// maxUint128 bounds liquidity the way the reference contract does.
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
	ErrInvalidPriceRange  = errors.New("sqrt price bounds must differ")
)

// AddDelta writes x + y into dest, where x is unsigned liquidity and y a
// signed delta. Fails if the result leaves the uint128 range.
func AddDelta(dest, x, y *big.Int) error {
	dest.Add(x, y)
	if dest.Sign() < 0 {
		return ErrLiquidityUnderflow
	}
	if dest.Cmp(maxUint128) > 0 {
		return ErrLiquidityOverflow
	}
	return nil
}

// LiquidityForAmount0 returns the liquidity a deposit of amount0 supports over
// [sqrtRatioAX96, sqrtRatioBX96): amount0 * (sqrtA * sqrtB / 2^96) / (sqrtB - sqrtA).
func LiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *big.Int) (*big.Int, error) {
	a, b := orderPrices(sqrtRatioAX96, sqrtRatioBX96)
	width := new(big.Int).Sub(b, a)
	if width.Sign() == 0 {
		return nil, ErrInvalidPriceRange
	}
	intermediate := new(big.Int).Mul(a, b)
	intermediate.Rsh(intermediate, 96)
	liquidity := new(big.Int).Mul(amount0, intermediate)
	return liquidity.Div(liquidity, width), nil
}

// LiquidityForAmount1 returns the liquidity a deposit of amount1 supports over
// [sqrtRatioAX96, sqrtRatioBX96): amount1 * 2^96 / (sqrtB - sqrtA).
func LiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *big.Int) (*big.Int, error) {
	a, b := orderPrices(sqrtRatioAX96, sqrtRatioBX96)
	width := new(big.Int).Sub(b, a)
	if width.Sign() == 0 {
		return nil, ErrInvalidPriceRange
	}
	liquidity := new(big.Int).Lsh(amount1, 96)
	return liquidity.Div(liquidity, width), nil
}

// LiquidityForAmounts returns the largest liquidity fundable by both amount0
// and amount1 given the current price and the range bounds. Both assets bind
// only while the price sits inside the range; outside it a single asset does.
func LiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *big.Int) (*big.Int, error) {
	a, b := orderPrices(sqrtRatioAX96, sqrtRatioBX96)

	switch {
	case sqrtRatioX96.Cmp(a) <= 0:
		return LiquidityForAmount0(a, b, amount0)
	case sqrtRatioX96.Cmp(b) < 0:
		liquidity0, err := LiquidityForAmount0(sqrtRatioX96, b, amount0)
		if err != nil {
			return nil, err
		}
		liquidity1, err := LiquidityForAmount1(a, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0, nil
		}
		return liquidity1, nil
	default:
		return LiquidityForAmount1(a, b, amount1)
	}
}

func orderPrices(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}
