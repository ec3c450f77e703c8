package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defisim/clpool-go/pool/liquiditymath"
	"github.com/defisim/clpool-go/pool/sqrtpricemath"
	"github.com/defisim/clpool-go/pool/tickmath"
)

// MintCallback pays the pool the token amounts owed for a mint. The engine
// verifies the pool's balances after the callback returns and aborts the mint
// if payment fell short.
type MintCallback interface {
	PayMint(amount0, amount1 *big.Int, data []byte) error
}

// MintCallbackFunc adapts a function to the MintCallback interface.
type MintCallbackFunc func(amount0, amount1 *big.Int, data []byte) error

func (f MintCallbackFunc) PayMint(amount0, amount1 *big.Int, data []byte) error {
	return f(amount0, amount1, data)
}

// QuoteMint returns the token amounts a mint of the given liquidity over
// [lowerTick, upperTick) would require at the current price. Amounts round up
// in the pool's favor. The pool is not modified.
func (p *Pool) QuoteMint(lowerTick, upperTick int64, amount *big.Int) (amount0, amount1 *big.Int, err error) {
	if err := checkTicks(lowerTick, upperTick); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidLiquidityAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.amountsForLiquidity(lowerTick, upperTick, amount, true)
}

// Mint adds liquidity over [lowerTick, upperTick) for owner. The owed token
// amounts are computed at the current price, the callback is invoked to pay
// them, and the pool's balances are verified before any state is committed. A
// failed callback or short payment returns ErrInsufficientInputAmount and
// leaves the pool unchanged.
func (p *Pool) Mint(
	owner common.Address,
	lowerTick, upperTick int64,
	amount *big.Int,
	cb MintCallback,
	data []byte,
) (amount0, amount1 *big.Int, err error) {
	if err := checkTicks(lowerTick, upperTick); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidLiquidityAmount
	}
	if cb == nil {
		return nil, nil, ErrNilCallback
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	amount0, amount1, err = p.amountsForLiquidity(lowerTick, upperTick, amount, true)
	if err != nil {
		return nil, nil, err
	}

	// Stage every mutation on copies so a failed settlement discards them
	// wholesale.
	stagedTicks := p.ticks.Clone()
	if _, err := stagedTicks.Update(lowerTick, amount, false); err != nil {
		return nil, nil, err
	}
	if _, err := stagedTicks.Update(upperTick, amount, true); err != nil {
		return nil, nil, err
	}
	stagedPositions := p.positions.Clone()
	if err := stagedPositions.Update(owner, lowerTick, upperTick, amount); err != nil {
		return nil, nil, err
	}
	stagedLiquidity := new(big.Int).Set(p.liquidity)
	if p.inRange(lowerTick, upperTick) {
		if err := liquiditymath.AddDelta(stagedLiquidity, p.liquidity, amount); err != nil {
			return nil, nil, err
		}
	}

	before0 := p.ledger.BalanceOf(p.cfg.Token0, p.cfg.Address)
	before1 := p.ledger.BalanceOf(p.cfg.Token1, p.cfg.Address)

	if err := cb.PayMint(new(big.Int).Set(amount0), new(big.Int).Set(amount1), data); err != nil {
		p.metrics.incSettlementFailures()
		return nil, nil, fmt.Errorf("mint callback: %w", err)
	}
	if !p.receivedAtLeast(before0, before1, amount0, amount1) {
		p.metrics.incSettlementFailures()
		return nil, nil, ErrInsufficientInputAmount
	}

	p.ticks = stagedTicks
	p.positions = stagedPositions
	p.liquidity = stagedLiquidity
	p.metrics.incMints()
	return amount0, amount1, nil
}

// Burn removes liquidity from owner's position over [lowerTick, upperTick).
// The freed token amounts round down and are credited to the position as
// tokens owed rather than transferred; Collect pays them out.
func (p *Pool) Burn(owner common.Address, lowerTick, upperTick int64, amount *big.Int) (amount0, amount1 *big.Int, err error) {
	if err := checkTicks(lowerTick, upperTick); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidLiquidityAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.positions.Get(owner, lowerTick, upperTick); !ok {
		return nil, nil, ErrUnknownPosition
	}

	amount0, amount1, err = p.amountsForLiquidity(lowerTick, upperTick, amount, false)
	if err != nil {
		return nil, nil, err
	}

	neg := new(big.Int).Neg(amount)

	stagedPositions := p.positions.Clone()
	if err := stagedPositions.Update(owner, lowerTick, upperTick, neg); err != nil {
		return nil, nil, err
	}
	stagedPositions.AccrueOwed(owner, lowerTick, upperTick, amount0, amount1)

	stagedTicks := p.ticks.Clone()
	if _, err := stagedTicks.Update(lowerTick, neg, false); err != nil {
		return nil, nil, err
	}
	if _, err := stagedTicks.Update(upperTick, neg, true); err != nil {
		return nil, nil, err
	}

	stagedLiquidity := new(big.Int).Set(p.liquidity)
	if p.inRange(lowerTick, upperTick) {
		if err := liquiditymath.AddDelta(stagedLiquidity, p.liquidity, neg); err != nil {
			return nil, nil, err
		}
	}

	p.ticks = stagedTicks
	p.positions = stagedPositions
	p.liquidity = stagedLiquidity
	p.metrics.incBurns()
	return amount0, amount1, nil
}

// Collect transfers the tokens owed to owner's position over
// [lowerTick, upperTick) to recipient and zeroes the owed balances.
func (p *Pool) Collect(owner, recipient common.Address, lowerTick, upperTick int64) (amount0, amount1 *big.Int, err error) {
	if err := checkTicks(lowerTick, upperTick); err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions.Get(owner, lowerTick, upperTick)
	if !ok {
		return nil, nil, ErrUnknownPosition
	}

	if pos.TokensOwed0.Sign() > 0 {
		if err := p.ledger.Transfer(p.cfg.Token0, p.cfg.Address, recipient, pos.TokensOwed0); err != nil {
			return nil, nil, fmt.Errorf("collect token0: %w", err)
		}
	}
	if pos.TokensOwed1.Sign() > 0 {
		if err := p.ledger.Transfer(p.cfg.Token1, p.cfg.Address, recipient, pos.TokensOwed1); err != nil {
			return nil, nil, fmt.Errorf("collect token1: %w", err)
		}
	}

	amount0, amount1, _ = p.positions.ClearOwed(owner, lowerTick, upperTick)
	p.metrics.incCollects()
	return amount0, amount1, nil
}

// amountsForLiquidity computes the token amounts backing a liquidity delta
// over [lowerTick, upperTick) at the current price. Below the range only
// token0 is involved, above it only token1, and within it both sides split at
// the current sqrt price. Caller holds p.mu.
func (p *Pool) amountsForLiquidity(lowerTick, upperTick int64, liquidity *big.Int, roundUp bool) (amount0, amount1 *big.Int, err error) {
	sqrtRatioLower := new(big.Int)
	if err := tickmath.SqrtRatioAtTick(sqrtRatioLower, lowerTick); err != nil {
		return nil, nil, err
	}
	sqrtRatioUpper := new(big.Int)
	if err := tickmath.SqrtRatioAtTick(sqrtRatioUpper, upperTick); err != nil {
		return nil, nil, err
	}

	amount0 = new(big.Int)
	amount1 = new(big.Int)
	switch {
	case p.tick < lowerTick:
		err = sqrtpricemath.Amount0Delta(amount0, sqrtRatioLower, sqrtRatioUpper, liquidity, roundUp)
	case p.tick < upperTick:
		if err = sqrtpricemath.Amount0Delta(amount0, p.sqrtPriceX96, sqrtRatioUpper, liquidity, roundUp); err != nil {
			return nil, nil, err
		}
		sqrtpricemath.Amount1Delta(amount1, sqrtRatioLower, p.sqrtPriceX96, liquidity, roundUp)
	default:
		sqrtpricemath.Amount1Delta(amount1, sqrtRatioLower, sqrtRatioUpper, liquidity, roundUp)
	}
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// receivedAtLeast reports whether the pool's balances grew by at least the
// owed amounts since the before snapshot. Caller holds p.mu.
func (p *Pool) receivedAtLeast(before0, before1, owed0, owed1 *big.Int) bool {
	if owed0.Sign() > 0 {
		need := new(big.Int).Add(before0, owed0)
		if p.ledger.BalanceOf(p.cfg.Token0, p.cfg.Address).Cmp(need) < 0 {
			return false
		}
	}
	if owed1.Sign() > 0 {
		need := new(big.Int).Add(before1, owed1)
		if p.ledger.BalanceOf(p.cfg.Token1, p.cfg.Address).Cmp(need) < 0 {
			return false
		}
	}
	return true
}
