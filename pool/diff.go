package pool

import (
	"math/big"
	"sort"

	"github.com/defisim/clpool-go/pool/positions"
	"github.com/defisim/clpool-go/pool/tickregistry"
)

// View is a detached deep copy of a pool's mutable state, taken under the
// pool lock. Views survive later operations unchanged, so two of them bracket
// an operation for diffing.
type View struct {
	SqrtPriceX96 *big.Int             `json:"sqrtPriceX96"`
	Tick         int64                `json:"tick"`
	Liquidity    *big.Int             `json:"liquidity"`
	Ticks        []tickregistry.Tick  `json:"ticks,omitempty"`
	Positions    []positions.Position `json:"positions,omitempty"`
}

// View snapshots the pool.
func (p *Pool) View() *View {
	p.mu.Lock()
	defer p.mu.Unlock()

	return &View{
		SqrtPriceX96: new(big.Int).Set(p.sqrtPriceX96),
		Tick:         p.tick,
		Liquidity:    new(big.Int).Set(p.liquidity),
		Ticks:        p.ticks.All(),
		Positions:    p.positions.All(),
	}
}

// ViewDiff summarizes the changes between two views of the same pool.
type ViewDiff struct {
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96,omitempty"`
	Tick         *int64   `json:"tick,omitempty"`
	Liquidity    *big.Int `json:"liquidity,omitempty"`

	TickAdditions []tickregistry.Tick `json:"tickAdditions,omitempty"`
	TickUpdates   []tickregistry.Tick `json:"tickUpdates,omitempty"`
	TickDeletions []int64             `json:"tickDeletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d ViewDiff) IsEmpty() bool {
	return d.SqrtPriceX96 == nil && d.Tick == nil && d.Liquidity == nil &&
		len(d.TickAdditions) == 0 && len(d.TickUpdates) == 0 && len(d.TickDeletions) == 0
}

// DiffViews computes what changed from old to new. Scalar fields are set only
// when they differ; tick changes are reported as additions, updates and
// deletions by index.
func DiffViews(old, new *View) ViewDiff {
	var d ViewDiff

	if old.SqrtPriceX96.Cmp(new.SqrtPriceX96) != 0 {
		d.SqrtPriceX96 = new.SqrtPriceX96
	}
	if old.Tick != new.Tick {
		tick := new.Tick
		d.Tick = &tick
	}
	if old.Liquidity.Cmp(new.Liquidity) != 0 {
		d.Liquidity = new.Liquidity
	}

	oldTicks := make(map[int64]tickregistry.Tick, len(old.Ticks))
	for _, t := range old.Ticks {
		oldTicks[t.Index] = t
	}
	newTicks := make(map[int64]tickregistry.Tick, len(new.Ticks))
	for _, t := range new.Ticks {
		newTicks[t.Index] = t
	}

	for _, t := range new.Ticks {
		prev, exists := oldTicks[t.Index]
		if !exists {
			d.TickAdditions = append(d.TickAdditions, t)
			continue
		}
		if prev.LiquidityGross.Cmp(t.LiquidityGross) != 0 || prev.LiquidityNet.Cmp(t.LiquidityNet) != 0 {
			d.TickUpdates = append(d.TickUpdates, t)
		}
	}
	for _, t := range old.Ticks {
		if _, exists := newTicks[t.Index]; !exists {
			d.TickDeletions = append(d.TickDeletions, t.Index)
		}
	}
	sort.Slice(d.TickDeletions, func(i, j int) bool { return d.TickDeletions[i] < d.TickDeletions[j] })

	return d
}
