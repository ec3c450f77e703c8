package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defisim/clpool-go/pool/liquiditymath"
	"github.com/defisim/clpool-go/pool/swapmath"
	"github.com/defisim/clpool-go/pool/tickmath"
)

// SwapCallback pays the pool the input side of a swap. Deltas are signed from
// the pool's perspective: a positive delta is owed to the pool, a negative
// delta is paid out by the pool. The engine verifies the pool's input balance
// after the callback returns.
type SwapCallback interface {
	PaySwap(amount0Delta, amount1Delta *big.Int, data []byte) error
}

// SwapCallbackFunc adapts a function to the SwapCallback interface.
type SwapCallbackFunc func(amount0Delta, amount1Delta *big.Int, data []byte) error

func (f SwapCallbackFunc) PaySwap(amount0Delta, amount1Delta *big.Int, data []byte) error {
	return f(amount0Delta, amount1Delta, data)
}

// SwapQuote describes the outcome of a swap: the signed token deltas from the
// pool's perspective and the pool state the swap would leave behind.
type SwapQuote struct {
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Tick         int64
	Liquidity    *big.Int
}

// swapResult carries the outcome of the tick-walking loop before commit.
type swapResult struct {
	amount0      *big.Int
	amount1      *big.Int
	sqrtPriceX96 *big.Int
	tick         int64
	liquidity    *big.Int
	ticksCrossed int
}

// QuoteSwap computes the outcome of a swap without executing it. A positive
// amountSpecified is an exact input of the sold token, a negative one an exact
// output of the bought token. A nil sqrtPriceLimitX96 means no limit.
func (p *Pool) QuoteSwap(zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *big.Int) (*SwapQuote, error) {
	if amountSpecified == nil || amountSpecified.Sign() == 0 {
		return nil, ErrInvalidSwapAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.computeSwap(zeroForOne, amountSpecified, sqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}
	return &SwapQuote{
		Amount0:      res.amount0,
		Amount1:      res.amount1,
		SqrtPriceX96: res.sqrtPriceX96,
		Tick:         res.tick,
		Liquidity:    res.liquidity,
	}, nil
}

// Swap trades token0 against token1. zeroForOne selects the direction: true
// sells token0 for token1 and moves the price down. A positive amountSpecified
// is an exact input, a negative one an exact output. The price will not move
// past sqrtPriceLimitX96 (nil for no limit); with a limit the swap may fill
// only partially.
//
// The callback is invoked with the signed deltas, the pool's input balance is
// verified, and only then is the output transferred and the state committed.
func (p *Pool) Swap(
	recipient common.Address,
	zeroForOne bool,
	amountSpecified, sqrtPriceLimitX96 *big.Int,
	cb SwapCallback,
	data []byte,
) (amount0, amount1 *big.Int, err error) {
	if amountSpecified == nil || amountSpecified.Sign() == 0 {
		return nil, nil, ErrInvalidSwapAmount
	}
	if cb == nil {
		return nil, nil, ErrNilCallback
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.computeSwap(zeroForOne, amountSpecified, sqrtPriceLimitX96)
	if err != nil {
		return nil, nil, err
	}

	inToken, outToken := p.cfg.Token0, p.cfg.Token1
	inDelta, outDelta := res.amount0, res.amount1
	if !zeroForOne {
		inToken, outToken = outToken, inToken
		inDelta, outDelta = outDelta, inDelta
	}

	before := p.ledger.BalanceOf(inToken, p.cfg.Address)
	if err := cb.PaySwap(new(big.Int).Set(res.amount0), new(big.Int).Set(res.amount1), data); err != nil {
		p.metrics.incSettlementFailures()
		return nil, nil, fmt.Errorf("swap callback: %w", err)
	}
	need := new(big.Int).Add(before, inDelta)
	if p.ledger.BalanceOf(inToken, p.cfg.Address).Cmp(need) < 0 {
		p.metrics.incSettlementFailures()
		return nil, nil, ErrInsufficientInputAmount
	}

	if outDelta.Sign() < 0 {
		owed := new(big.Int).Neg(outDelta)
		if err := p.ledger.Transfer(outToken, p.cfg.Address, recipient, owed); err != nil {
			p.metrics.incSettlementFailures()
			return nil, nil, fmt.Errorf("swap payout: %w", err)
		}
	}

	p.sqrtPriceX96.Set(res.sqrtPriceX96)
	p.tick = res.tick
	p.liquidity.Set(res.liquidity)
	p.metrics.incSwaps()
	p.metrics.addTicksCrossed(res.ticksCrossed)
	return res.amount0, res.amount1, nil
}

// computeSwap walks the price across initialized tick boundaries until the
// specified amount is exhausted or the price limit is hit. It reads pool state
// but mutates nothing; the caller commits the result. Caller holds p.mu.
func (p *Pool) computeSwap(zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *big.Int) (*swapResult, error) {
	limit, err := p.checkPriceLimit(zeroForOne, sqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}

	exactIn := amountSpecified.Sign() > 0
	remaining := new(big.Int).Set(amountSpecified)
	price := new(big.Int).Set(p.sqrtPriceX96)
	tick := p.tick
	liquidity := new(big.Int).Set(p.liquidity)
	calculated := new(big.Int)
	ticksCrossed := 0
	limited := sqrtPriceLimitX96 != nil

	var (
		stepStart = new(big.Int)
		boundary  = new(big.Int)
		sqrtNext  = new(big.Int)
		stepIn    = new(big.Int)
		stepOut   = new(big.Int)
		stepFee   = new(big.Int)
	)

	for remaining.Sign() != 0 && price.Cmp(limit) != 0 {
		stepStart.Set(price)

		next, initialized := p.ticks.NextInitialized(tick, zeroForOne)
		if !initialized {
			if zeroForOne {
				next = tickmath.MinTick
			} else {
				next = tickmath.MaxTick
			}
		}
		if err := tickmath.SqrtRatioAtTick(boundary, next); err != nil {
			return nil, err
		}
		target := boundary
		if (zeroForOne && boundary.Cmp(limit) < 0) || (!zeroForOne && boundary.Cmp(limit) > 0) {
			target = limit
		}

		if liquidity.Sign() == 0 {
			// Nothing to trade against in this range; hop to its edge.
			if !initialized {
				break
			}
			price.Set(target)
		} else {
			err := swapmath.ComputeStep(sqrtNext, stepIn, stepOut, stepFee, price, target, liquidity, remaining, p.cfg.Fee)
			if err != nil {
				return nil, err
			}
			price.Set(sqrtNext)

			if exactIn {
				remaining.Sub(remaining, stepIn)
				remaining.Sub(remaining, stepFee)
				calculated.Add(calculated, stepOut)
			} else {
				remaining.Add(remaining, stepOut)
				calculated.Add(calculated, stepIn)
				calculated.Add(calculated, stepFee)
			}
		}

		switch {
		case price.Cmp(boundary) == 0:
			if initialized {
				net := p.ticks.Cross(next)
				if zeroForOne {
					net.Neg(net)
				}
				if err := liquiditymath.AddDelta(liquidity, liquidity, net); err != nil {
					return nil, err
				}
				ticksCrossed++
			}
			if zeroForOne {
				tick = next - 1
			} else {
				tick = next
			}
			if !initialized {
				// Edge of the representable price range.
				if remaining.Sign() != 0 {
					return nil, ErrInsufficientLiquidity
				}
			}
		case price.Cmp(stepStart) != 0:
			t, err := tickmath.TickAtSqrtRatio(price)
			if err != nil {
				return nil, err
			}
			tick = t
		}
	}

	// An unexhausted amount is acceptable only as a partial fill against an
	// explicit price limit.
	if remaining.Sign() != 0 && !(limited && price.Cmp(limit) == 0) {
		return nil, ErrInsufficientLiquidity
	}

	res := &swapResult{
		sqrtPriceX96: price,
		tick:         tick,
		liquidity:    liquidity,
		ticksCrossed: ticksCrossed,
	}

	// Map (specified, calculated) onto signed per-token deltas from the
	// pool's perspective.
	var inSigned, outSigned *big.Int
	if exactIn {
		inSigned = new(big.Int).Sub(amountSpecified, remaining)
		outSigned = new(big.Int).Neg(calculated)
	} else {
		inSigned = new(big.Int).Set(calculated)
		outSigned = new(big.Int).Sub(amountSpecified, remaining)
	}
	if zeroForOne {
		res.amount0, res.amount1 = inSigned, outSigned
	} else {
		res.amount0, res.amount1 = outSigned, inSigned
	}
	return res, nil
}

// checkPriceLimit validates the limit against the swap direction and fills in
// the representable extreme when none is given. Caller holds p.mu.
func (p *Pool) checkPriceLimit(zeroForOne bool, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	if sqrtPriceLimitX96 == nil {
		if zeroForOne {
			return new(big.Int).Add(tickmath.MinSqrtRatio, big.NewInt(1)), nil
		}
		return new(big.Int).Sub(tickmath.MaxSqrtRatio, big.NewInt(1)), nil
	}

	if zeroForOne {
		if sqrtPriceLimitX96.Cmp(p.sqrtPriceX96) >= 0 || sqrtPriceLimitX96.Cmp(tickmath.MinSqrtRatio) <= 0 {
			return nil, ErrInvalidPriceLimit
		}
	} else {
		if sqrtPriceLimitX96.Cmp(p.sqrtPriceX96) <= 0 || sqrtPriceLimitX96.Cmp(tickmath.MaxSqrtRatio) >= 0 {
			return nil, ErrInvalidPriceLimit
		}
	}
	return new(big.Int).Set(sqrtPriceLimitX96), nil
}
