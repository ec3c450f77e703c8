// Package swapmath computes the result of a swap within a single tick range:
// how far the price moves, the amounts exchanged, and the fee taken.
package swapmath

import (
	"math/big"
	"sync"

	"github.com/defisim/clpool-go/pool/sqrtpricemath"
)

var (
	// feeDenominator expresses fees in pips: 1,000,000 == 100%.
	feeDenominator = big.NewInt(1_000_000)
	one            = big.NewInt(1)
)

// scratch holds reusable big.Ints for one ComputeStep call.
type scratch struct {
	sqrtRatioNextX96 *big.Int
	amountIn         *big.Int
	amountOut        *big.Int
	feeAmount        *big.Int

	remainingLessFee *big.Int
	remainingAbs     *big.Int
	temp             *big.Int
	product          *big.Int
	rem              *big.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{
			sqrtRatioNextX96: new(big.Int),
			amountIn:         new(big.Int),
			amountOut:        new(big.Int),
			feeAmount:        new(big.Int),
			remainingLessFee: new(big.Int),
			remainingAbs:     new(big.Int),
			temp:             new(big.Int),
			product:          new(big.Int),
			rem:              new(big.Int),
		}
	},
}

// ComputeStep advances the price from sqrtRatioCurrentX96 toward
// sqrtRatioTargetX96 under constant liquidity, consuming at most
// amountRemaining (positive = exact input, negative = exact output).
// Results are written into the four destination pointers.
func ComputeStep(
	sqrtRatioNextX96, amountIn, amountOut, feeAmount *big.Int,

	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *big.Int,
	feePips uint64,
) error {
	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)

	if err := s.computeStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining, feePips); err != nil {
		return err
	}

	sqrtRatioNextX96.Set(s.sqrtRatioNextX96)
	amountIn.Set(s.amountIn)
	amountOut.Set(s.amountOut)
	feeAmount.Set(s.feeAmount)
	return nil
}

func (s *scratch) computeStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *big.Int, feePips uint64) error {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0
	fee := s.temp.SetUint64(feePips)

	s.amountIn.SetInt64(0)
	s.amountOut.SetInt64(0)
	s.feeAmount.SetInt64(0)

	if exactIn {
		s.remainingLessFee.Sub(feeDenominator, fee)
		s.mulDiv(s.remainingLessFee, amountRemaining, s.remainingLessFee, feeDenominator)

		if zeroForOne {
			if err := sqrtpricemath.Amount0Delta(s.amountIn, sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return err
			}
		} else {
			sqrtpricemath.Amount1Delta(s.amountIn, sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}

		if s.remainingLessFee.Cmp(s.amountIn) >= 0 {
			// Enough input to reach the target price.
			s.sqrtRatioNextX96.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.NextSqrtPriceFromInput(s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, s.remainingLessFee, zeroForOne); err != nil {
			return err
		}
	} else {
		s.remainingAbs.Neg(amountRemaining)

		if zeroForOne {
			sqrtpricemath.Amount1Delta(s.amountOut, sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else if err := sqrtpricemath.Amount0Delta(s.amountOut, sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false); err != nil {
			return err
		}

		if s.remainingAbs.Cmp(s.amountOut) >= 0 {
			s.sqrtRatioNextX96.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.NextSqrtPriceFromOutput(s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, s.remainingAbs, zeroForOne); err != nil {
			return err
		}
	}

	reachedTarget := sqrtRatioTargetX96.Cmp(s.sqrtRatioNextX96) == 0

	// Recompute the amounts for the distance actually travelled.
	if zeroForOne {
		if !(reachedTarget && exactIn) {
			if err := sqrtpricemath.Amount0Delta(s.amountIn, s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return err
			}
		}
		if !(reachedTarget && !exactIn) {
			sqrtpricemath.Amount1Delta(s.amountOut, s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
		}
	} else {
		if !(reachedTarget && exactIn) {
			sqrtpricemath.Amount1Delta(s.amountIn, sqrtRatioCurrentX96, s.sqrtRatioNextX96, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			if err := sqrtpricemath.Amount0Delta(s.amountOut, sqrtRatioCurrentX96, s.sqrtRatioNextX96, liquidity, false); err != nil {
				return err
			}
		}
	}

	// Exact output never pays out more than requested.
	if !exactIn && s.amountOut.Cmp(s.remainingAbs) > 0 {
		s.amountOut.Set(s.remainingAbs)
	}

	if exactIn && !reachedTarget {
		// Price stopped short of the target: whatever input is left is fee.
		s.feeAmount.Sub(amountRemaining, s.amountIn)
	} else {
		fee = s.temp.SetUint64(feePips)
		s.remainingLessFee.Sub(feeDenominator, fee)
		s.mulDivRoundingUp(s.feeAmount, s.amountIn, fee, s.remainingLessFee)
	}
	return nil
}

func (s *scratch) mulDiv(dest, a, b, c *big.Int) {
	s.product.Mul(a, b)
	dest.Div(s.product, c)
}

func (s *scratch) mulDivRoundingUp(dest, a, b, c *big.Int) {
	s.product.Mul(a, b)
	dest.Div(s.product, c)
	if s.rem.Rem(s.product, c).Sign() > 0 {
		dest.Add(dest, one)
	}
}
