// Package scenario runs scripted pool operations from a JSON description:
// one pool, a set of funded accounts, and an ordered list of steps. Each step
// produces a result record suitable for JSONL output.
package scenario

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Step operations.
const (
	OpMint    = "mint"
	OpBurn    = "burn"
	OpCollect = "collect"
	OpSwap    = "swap"
)

// BigInt marshals a big.Int as a decimal JSON string, so scenario files stay
// exact beyond float precision.
type BigInt struct {
	big.Int
}

func NewBigInt(v *big.Int) *BigInt {
	if v == nil {
		return nil
	}
	b := new(BigInt)
	b.Int.Set(v)
	return b
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid decimal integer %q", s)
	}
	return nil
}

// Unwrap returns the underlying big.Int, or nil for a nil wrapper.
func (b *BigInt) Unwrap() *big.Int {
	if b == nil {
		return nil
	}
	return &b.Int
}

// PoolSpec describes the pool under simulation.
type PoolSpec struct {
	Address      common.Address `json:"address"`
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	Fee          uint64         `json:"fee"`
	SqrtPriceX96 *BigInt        `json:"sqrtPriceX96"`
}

// Account seeds a ledger account with token balances.
type Account struct {
	Address  common.Address `json:"address"`
	Balance0 *BigInt        `json:"balance0,omitempty"`
	Balance1 *BigInt        `json:"balance1,omitempty"`
}

// Step is one scripted operation. Fields apply per op: mint/burn/collect use
// the tick bounds, mint/burn the liquidity, swap the direction, amount and
// optional price limit. Account is the acting owner or trader and pays for
// the operation out of its ledger balances.
type Step struct {
	Op      string         `json:"op"`
	Account common.Address `json:"account"`

	LowerTick int64   `json:"lowerTick,omitempty"`
	UpperTick int64   `json:"upperTick,omitempty"`
	Liquidity *BigInt `json:"liquidity,omitempty"`

	ZeroForOne        bool    `json:"zeroForOne,omitempty"`
	Amount            *BigInt `json:"amount,omitempty"`
	SqrtPriceLimitX96 *BigInt `json:"sqrtPriceLimitX96,omitempty"`
}

// Scenario is a full simulation script.
type Scenario struct {
	Pool     PoolSpec  `json:"pool"`
	Accounts []Account `json:"accounts"`
	Steps    []Step    `json:"steps"`
}

func (s *Scenario) validate() error {
	if s.Pool.SqrtPriceX96 == nil {
		return fmt.Errorf("pool.sqrtPriceX96 is required")
	}
	if s.Pool.Token0 == s.Pool.Token1 {
		return fmt.Errorf("pool tokens must differ")
	}
	for i, step := range s.Steps {
		switch step.Op {
		case OpMint, OpBurn:
			if step.Liquidity == nil {
				return fmt.Errorf("step %d: %s requires liquidity", i, step.Op)
			}
		case OpCollect:
		case OpSwap:
			if step.Amount == nil {
				return fmt.Errorf("step %d: swap requires amount", i)
			}
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
	}
	return nil
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario JSON.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Result is the outcome of one executed step. Amounts are signed from the
// pool's perspective; the trailing fields snapshot the pool after the step.
type Result struct {
	Step int    `json:"step"`
	Op   string `json:"op"`

	Amount0 *BigInt `json:"amount0,omitempty"`
	Amount1 *BigInt `json:"amount1,omitempty"`

	SqrtPriceX96 *BigInt `json:"sqrtPriceX96"`
	Tick         int64   `json:"tick"`
	Liquidity    *BigInt `json:"liquidity"`

	Error string `json:"error,omitempty"`
}
