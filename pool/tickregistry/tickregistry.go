// Package tickregistry stores initialized ticks as a slice sorted by index,
// so memory stays proportional to the number of initialized ticks and lookups
// are binary searches.
package tickregistry

import (
	"math/big"
	"sort"

	"github.com/defisim/clpool-go/pool/liquiditymath"
)

// Tick aggregates the liquidity bookkeeping at one initialized index.
// LiquidityGross is the total liquidity referencing the tick from either side;
// LiquidityNet is the signed amount added to active liquidity when the price
// crosses the tick moving upward. Presence in the registry means initialized.
type Tick struct {
	Index          int64
	LiquidityGross *big.Int
	LiquidityNet   *big.Int
}

func copyTick(t Tick) Tick {
	return Tick{
		Index:          t.Index,
		LiquidityGross: new(big.Int).Set(t.LiquidityGross),
		LiquidityNet:   new(big.Int).Set(t.LiquidityNet),
	}
}

// Registry is a sparse tick store. The zero value is not usable; call New.
type Registry struct {
	ticks []Tick
}

func New() *Registry {
	return &Registry{}
}

// Len returns the number of initialized ticks.
func (r *Registry) Len() int {
	return len(r.ticks)
}

// Get returns a copy of the tick at index, if initialized.
func (r *Registry) Get(index int64) (Tick, bool) {
	i := r.search(index)
	if i < len(r.ticks) && r.ticks[i].Index == index {
		return copyTick(r.ticks[i]), true
	}
	return Tick{}, false
}

// All returns a deep copy of every initialized tick in ascending index order.
func (r *Registry) All() []Tick {
	out := make([]Tick, len(r.ticks))
	for i, t := range r.ticks {
		out[i] = copyTick(t)
	}
	return out
}

// Update applies a signed liquidity delta to the tick at index, initializing
// it on first reference and removing it when its gross liquidity returns to
// zero. upper selects which side of a range the tick bounds, which decides
// the sign of the net contribution. Returns whether the initialized state
// flipped.
func (r *Registry) Update(index int64, delta *big.Int, upper bool) (flipped bool, err error) {
	i := r.search(index)
	if i < len(r.ticks) && r.ticks[i].Index == index {
		tick := &r.ticks[i]

		gross := new(big.Int)
		if err := liquiditymath.AddDelta(gross, tick.LiquidityGross, delta); err != nil {
			return false, err
		}
		flipped = gross.Sign() == 0

		tick.LiquidityGross.Set(gross)
		if upper {
			tick.LiquidityNet.Sub(tick.LiquidityNet, delta)
		} else {
			tick.LiquidityNet.Add(tick.LiquidityNet, delta)
		}

		if flipped {
			r.ticks = append(r.ticks[:i], r.ticks[i+1:]...)
		}
		return flipped, nil
	}

	// First reference to this index.
	gross := new(big.Int)
	if err := liquiditymath.AddDelta(gross, new(big.Int), delta); err != nil {
		return false, err
	}
	net := new(big.Int).Set(delta)
	if upper {
		net.Neg(net)
	}
	r.ticks = append(r.ticks, Tick{})
	copy(r.ticks[i+1:], r.ticks[i:])
	r.ticks[i] = Tick{Index: index, LiquidityGross: gross, LiquidityNet: net}
	return true, nil
}

// Cross returns a copy of the net liquidity delta at index, or zero when the
// tick is not initialized. The registry itself is unchanged: crossing only
// affects the pool's active liquidity.
func (r *Registry) Cross(index int64) *big.Int {
	i := r.search(index)
	if i < len(r.ticks) && r.ticks[i].Index == index {
		return new(big.Int).Set(r.ticks[i].LiquidityNet)
	}
	return new(big.Int)
}

// NextInitialized finds the nearest initialized tick from tick: the largest
// index <= tick when lte is true, the smallest index > tick otherwise.
func (r *Registry) NextInitialized(tick int64, lte bool) (next int64, found bool) {
	if len(r.ticks) == 0 {
		return 0, false
	}

	if lte {
		i := sort.Search(len(r.ticks), func(i int) bool {
			return r.ticks[i].Index >= tick
		})
		if i < len(r.ticks) && r.ticks[i].Index == tick {
			return tick, true
		}
		if i == 0 {
			return 0, false
		}
		return r.ticks[i-1].Index, true
	}

	i := sort.Search(len(r.ticks), func(i int) bool {
		return r.ticks[i].Index > tick
	})
	if i >= len(r.ticks) {
		return 0, false
	}
	return r.ticks[i].Index, true
}

// NetSum returns the sum of LiquidityNet over all initialized ticks. A
// consistent registry always sums to zero, since liquidity added at a lower
// bound is removed at the matching upper bound.
func (r *Registry) NetSum() *big.Int {
	sum := new(big.Int)
	for _, t := range r.ticks {
		sum.Add(sum, t.LiquidityNet)
	}
	return sum
}

// Clone deep-copies the registry.
func (r *Registry) Clone() *Registry {
	out := &Registry{ticks: make([]Tick, len(r.ticks))}
	for i, t := range r.ticks {
		out.ticks[i] = copyTick(t)
	}
	return out
}

// search returns the insertion point for index in the sorted slice.
func (r *Registry) search(index int64) int {
	return sort.Search(len(r.ticks), func(i int) bool {
		return r.ticks[i].Index >= index
	})
}
