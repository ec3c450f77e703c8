package scenario

import (
	"context"
	"fmt"
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/defisim/clpool-go/ledger"
	"github.com/defisim/clpool-go/pool"
)

// Sink receives step results as they are produced.
type Sink interface {
	PutResult(Result) error
}

// Runner executes scenarios against a fresh in-memory pool and ledger.
type Runner struct {
	logger   *zap.Logger
	sink     Sink
	registry prometheus.Registerer
}

func NewRunner(logger *zap.Logger, sink Sink, registry prometheus.Registerer) *Runner {
	return &Runner{logger: logger, sink: sink, registry: registry}
}

// Run executes every step in order. Execution stops at the first failing
// step; its result record carries the error.
func (r *Runner) Run(ctx context.Context, s *Scenario) error {
	book := ledger.New()
	for _, account := range s.Accounts {
		if b := account.Balance0.Unwrap(); b != nil {
			if err := book.Mint(s.Pool.Token0, account.Address, b); err != nil {
				return fmt.Errorf("seed account %s: %w", account.Address, err)
			}
		}
		if b := account.Balance1.Unwrap(); b != nil {
			if err := book.Mint(s.Pool.Token1, account.Address, b); err != nil {
				return fmt.Errorf("seed account %s: %w", account.Address, err)
			}
		}
	}

	var opts []pool.Option
	if r.registry != nil {
		opts = append(opts, pool.WithMetrics(pool.NewMetrics(r.registry)))
	}
	p, err := pool.New(pool.Config{
		Address: s.Pool.Address,
		Token0:  s.Pool.Token0,
		Token1:  s.Pool.Token1,
		Fee:     s.Pool.Fee,
	}, book, s.Pool.SqrtPriceX96.Unwrap(), opts...)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	r.logger.Info("scenario start",
		zap.String("token0", s.Pool.Token0.Hex()),
		zap.String("token1", s.Pool.Token1.Hex()),
		zap.Uint64("fee", s.Pool.Fee),
		zap.Int64("tick", p.Tick()),
		zap.Int("steps", len(s.Steps)),
	)

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		amount0, amount1, stepErr := r.runStep(p, book, s.Pool, step)

		res := Result{
			Step:         i,
			Op:           step.Op,
			Amount0:      NewBigInt(amount0),
			Amount1:      NewBigInt(amount1),
			SqrtPriceX96: NewBigInt(p.SqrtPriceX96()),
			Tick:         p.Tick(),
			Liquidity:    NewBigInt(p.Liquidity()),
		}
		if stepErr != nil {
			res.Error = stepErr.Error()
		}
		if err := r.sink.PutResult(res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}

		if stepErr != nil {
			r.logger.Error("step failed",
				zap.Int("step", i),
				zap.String("op", step.Op),
				zap.Error(stepErr),
			)
			return fmt.Errorf("step %d (%s): %w", i, step.Op, stepErr)
		}

		r.logger.Info("step done",
			zap.Int("step", i),
			zap.String("op", step.Op),
			zap.String("amount0", amount0.String()),
			zap.String("amount1", amount1.String()),
			zap.Int64("tick", p.Tick()),
		)
	}
	return nil
}

func (r *Runner) runStep(p *pool.Pool, book *ledger.Ledger, spec PoolSpec, step Step) (amount0, amount1 *big.Int, err error) {
	switch step.Op {
	case OpMint:
		cb := pool.MintCallbackFunc(func(amount0, amount1 *big.Int, _ []byte) error {
			if err := book.Transfer(spec.Token0, step.Account, spec.Address, amount0); err != nil {
				return err
			}
			return book.Transfer(spec.Token1, step.Account, spec.Address, amount1)
		})
		return p.Mint(step.Account, step.LowerTick, step.UpperTick, step.Liquidity.Unwrap(), cb, nil)

	case OpBurn:
		return p.Burn(step.Account, step.LowerTick, step.UpperTick, step.Liquidity.Unwrap())

	case OpCollect:
		return p.Collect(step.Account, step.Account, step.LowerTick, step.UpperTick)

	case OpSwap:
		cb := pool.SwapCallbackFunc(func(amount0Delta, amount1Delta *big.Int, _ []byte) error {
			if amount0Delta.Sign() > 0 {
				if err := book.Transfer(spec.Token0, step.Account, spec.Address, amount0Delta); err != nil {
					return err
				}
			}
			if amount1Delta.Sign() > 0 {
				if err := book.Transfer(spec.Token1, step.Account, spec.Address, amount1Delta); err != nil {
					return err
				}
			}
			return nil
		})
		return p.Swap(step.Account, step.ZeroForOne, step.Amount.Unwrap(), step.SqrtPriceLimitX96.Unwrap(), cb, nil)

	default:
		return nil, nil, fmt.Errorf("unknown op %q", step.Op)
	}
}
