// Package pool implements a concentrated-liquidity pool as a pure
// state-transition engine: per-range liquidity positions, tick-indexed
// liquidity deltas, and the current sqrt-price state, with mint, burn and
// swap operations computing exact token deltas in Q64.96 fixed point.
//
// The engine performs no token transfers of its own. Settlement follows an
// explicit two-phase protocol: an operation computes the owed amounts,
// invokes a caller-supplied callback, and then verifies the result against an
// external balance source. State is committed only after verification, so a
// failed operation leaves the pool untouched.
package pool

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defisim/clpool-go/pool/positions"
	"github.com/defisim/clpool-go/pool/tickmath"
	"github.com/defisim/clpool-go/pool/tickregistry"
)

// BalanceSource is the external token ledger the engine settles against.
// Implementations must apply each call atomically.
type BalanceSource interface {
	BalanceOf(token, holder common.Address) *big.Int
	Transfer(token, from, to common.Address, amount *big.Int) error
}

// Config carries the immutable parameters of a pool.
type Config struct {
	// Address identifies the pool as a holder on the balance source.
	Address common.Address
	Token0  common.Address
	Token1  common.Address
	// Fee in pips (1,000,000 == 100%) taken from swap input.
	Fee uint64
}

// Pool is a single concentrated-liquidity pool. All operations against one
// pool are serialized by an internal mutex; distinct pools are independent.
type Pool struct {
	mu  sync.Mutex
	cfg Config

	ledger BalanceSource

	sqrtPriceX96 *big.Int
	tick         int64
	liquidity    *big.Int

	ticks     *tickregistry.Registry
	positions *positions.Registry

	metrics *Metrics
}

// Option configures optional pool collaborators.
type Option func(*Pool)

// WithMetrics attaches operation counters to the pool.
func WithMetrics(m *Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New creates a pool at the given starting sqrt price. The current tick is
// derived from the price, so the tick/price invariant holds from the start.
func New(cfg Config, ledger BalanceSource, sqrtPriceX96 *big.Int, opts ...Option) (*Pool, error) {
	if ledger == nil {
		return nil, ErrNilLedger
	}
	if cfg.Fee >= 1_000_000 {
		return nil, ErrInvalidFee
	}
	tick, err := tickmath.TickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:          cfg,
		ledger:       ledger,
		sqrtPriceX96: new(big.Int).Set(sqrtPriceX96),
		tick:         tick,
		liquidity:    new(big.Int),
		ticks:        tickregistry.New(),
		positions:    positions.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pool's immutable parameters.
func (p *Pool) Config() Config {
	return p.cfg
}

// SqrtPriceX96 returns a copy of the current sqrt price.
func (p *Pool) SqrtPriceX96() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.sqrtPriceX96)
}

// Tick returns the current tick.
func (p *Pool) Tick() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tick
}

// Liquidity returns a copy of the liquidity active at the current price.
func (p *Pool) Liquidity() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.liquidity)
}

// Position returns a copy of the position for (owner, lowerTick, upperTick).
func (p *Pool) Position(owner common.Address, lowerTick, upperTick int64) (positions.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions.Get(owner, lowerTick, upperTick)
}

// TickInfo returns a copy of the initialized tick at index, if any.
func (p *Pool) TickInfo(index int64) (tickregistry.Tick, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks.Get(index)
}

// checkTicks validates a tick range. Held-lock free; pure.
func checkTicks(lowerTick, upperTick int64) error {
	if lowerTick >= upperTick || lowerTick < tickmath.MinTick || upperTick > tickmath.MaxTick {
		return ErrInvalidTickRange
	}
	return nil
}

// inRange reports whether the current tick lies within [lowerTick, upperTick).
func (p *Pool) inRange(lowerTick, upperTick int64) bool {
	return p.tick >= lowerTick && p.tick < upperTick
}
