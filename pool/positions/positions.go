// Package positions tracks liquidity provider claims per (owner, tick range),
// keyed by keccak256(owner ++ lowerTick ++ upperTick).
package positions

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/defisim/clpool-go/pool/liquiditymath"
)

// ErrPositionUnderflow is returned when a burn exceeds a position's liquidity.
var ErrPositionUnderflow = errors.New("burn exceeds position liquidity")

// Key identifies a position. It is the keccak256 hash of the owner address
// followed by the big-endian two's-complement encodings of both tick bounds.
type Key [32]byte

// KeyOf derives the position key for (owner, lowerTick, upperTick).
func KeyOf(owner common.Address, lowerTick, upperTick int64) Key {
	var buf [common.AddressLength + 16]byte
	copy(buf[:], owner.Bytes())
	binary.BigEndian.PutUint64(buf[common.AddressLength:], uint64(lowerTick))
	binary.BigEndian.PutUint64(buf[common.AddressLength+8:], uint64(upperTick))

	var key Key
	copy(key[:], crypto.Keccak256(buf[:]))
	return key
}

// Position is a claim over a tick range. TokensOwed accumulate on burns until
// collected.
type Position struct {
	Owner       common.Address
	LowerTick   int64
	UpperTick   int64
	Liquidity   *big.Int
	TokensOwed0 *big.Int
	TokensOwed1 *big.Int
}

func (p *Position) clone() *Position {
	return &Position{
		Owner:       p.Owner,
		LowerTick:   p.LowerTick,
		UpperTick:   p.UpperTick,
		Liquidity:   new(big.Int).Set(p.Liquidity),
		TokensOwed0: new(big.Int).Set(p.TokensOwed0),
		TokensOwed1: new(big.Int).Set(p.TokensOwed1),
	}
}

// Registry stores positions by key.
type Registry struct {
	byKey map[Key]*Position
}

func New() *Registry {
	return &Registry{byKey: make(map[Key]*Position)}
}

// Len returns the number of tracked positions, including emptied ones:
// positions are never removed, an exhausted position simply holds zero
// liquidity.
func (r *Registry) Len() int {
	return len(r.byKey)
}

// Get returns a copy of the position for (owner, lowerTick, upperTick).
func (r *Registry) Get(owner common.Address, lowerTick, upperTick int64) (Position, bool) {
	p, ok := r.byKey[KeyOf(owner, lowerTick, upperTick)]
	if !ok {
		return Position{}, false
	}
	return *p.clone(), true
}

// Update applies a signed liquidity delta to the position, creating it on
// first mint. A negative delta larger than the position fails with
// ErrPositionUnderflow and changes nothing.
func (r *Registry) Update(owner common.Address, lowerTick, upperTick int64, delta *big.Int) error {
	key := KeyOf(owner, lowerTick, upperTick)
	p, ok := r.byKey[key]
	if !ok {
		p = &Position{
			Owner:       owner,
			LowerTick:   lowerTick,
			UpperTick:   upperTick,
			Liquidity:   new(big.Int),
			TokensOwed0: new(big.Int),
			TokensOwed1: new(big.Int),
		}
	}

	next := new(big.Int)
	if err := liquiditymath.AddDelta(next, p.Liquidity, delta); err != nil {
		if errors.Is(err, liquiditymath.ErrLiquidityUnderflow) {
			return ErrPositionUnderflow
		}
		return err
	}

	p.Liquidity.Set(next)
	r.byKey[key] = p
	return nil
}

// AccrueOwed credits burn proceeds to the position so a later collect can pay
// them out.
func (r *Registry) AccrueOwed(owner common.Address, lowerTick, upperTick int64, amount0, amount1 *big.Int) bool {
	p, ok := r.byKey[KeyOf(owner, lowerTick, upperTick)]
	if !ok {
		return false
	}
	p.TokensOwed0.Add(p.TokensOwed0, amount0)
	p.TokensOwed1.Add(p.TokensOwed1, amount1)
	return true
}

// ClearOwed zeroes and returns the owed amounts for the position.
func (r *Registry) ClearOwed(owner common.Address, lowerTick, upperTick int64) (amount0, amount1 *big.Int, ok bool) {
	p, ok := r.byKey[KeyOf(owner, lowerTick, upperTick)]
	if !ok {
		return nil, nil, false
	}
	amount0 = new(big.Int).Set(p.TokensOwed0)
	amount1 = new(big.Int).Set(p.TokensOwed1)
	p.TokensOwed0.SetInt64(0)
	p.TokensOwed1.SetInt64(0)
	return amount0, amount1, true
}

// All returns a deep copy of every position.
func (r *Registry) All() []Position {
	out := make([]Position, 0, len(r.byKey))
	for _, p := range r.byKey {
		out = append(out, *p.clone())
	}
	return out
}

// Clone deep-copies the registry.
func (r *Registry) Clone() *Registry {
	out := New()
	for k, p := range r.byKey {
		out.byKey[k] = p.clone()
	}
	return out
}
