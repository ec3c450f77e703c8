package liquiditymath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defisim/clpool-go/pool/sqrtpricemath"
)

func fromString(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

func TestAddDelta(t *testing.T) {
	t.Run("adds positive delta", func(t *testing.T) {
		dest := new(big.Int)
		require.NoError(t, AddDelta(dest, big.NewInt(100), big.NewInt(42)))
		assert.Equal(t, int64(142), dest.Int64())
	})

	t.Run("applies negative delta", func(t *testing.T) {
		dest := new(big.Int)
		require.NoError(t, AddDelta(dest, big.NewInt(100), big.NewInt(-100)))
		assert.Zero(t, dest.Sign())
	})

	t.Run("underflow", func(t *testing.T) {
		err := AddDelta(new(big.Int), big.NewInt(1), big.NewInt(-2))
		assert.ErrorIs(t, err, ErrLiquidityUnderflow)
	})

	t.Run("overflow past uint128", func(t *testing.T) {
		max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
		err := AddDelta(new(big.Int), max, big.NewInt(1))
		assert.ErrorIs(t, err, ErrLiquidityOverflow)
	})
}

func TestLiquidityForAmounts(t *testing.T) {
	// Reference range: sqrt(4545)..sqrt(5500) around sqrt(5000).
	current := fromString("5602277097478614198912276234240")
	lower := fromString("5341283623238412454227108479223")
	upper := fromString("5875617940067453351001625213169")
	amount0 := fromString("1000000000000000000")
	amount1 := fromString("5000000000000000000000")

	t.Run("degenerate range", func(t *testing.T) {
		_, err := LiquidityForAmount0(lower, lower, amount0)
		assert.ErrorIs(t, err, ErrInvalidPriceRange)
	})

	t.Run("inside range takes the smaller side", func(t *testing.T) {
		liquidity, err := LiquidityForAmounts(current, lower, upper, amount0, amount1)
		require.NoError(t, err)

		liquidity0, err := LiquidityForAmount0(current, upper, amount0)
		require.NoError(t, err)
		liquidity1, err := LiquidityForAmount1(lower, current, amount1)
		require.NoError(t, err)

		min := liquidity0
		if liquidity1.Cmp(min) < 0 {
			min = liquidity1
		}
		assert.Zero(t, min.Cmp(liquidity))
	})

	t.Run("below range uses token0 only", func(t *testing.T) {
		belowAll := new(big.Int).Sub(lower, big.NewInt(1))
		liquidity, err := LiquidityForAmounts(belowAll, lower, upper, amount0, big.NewInt(0))
		require.NoError(t, err)
		want, err := LiquidityForAmount0(lower, upper, amount0)
		require.NoError(t, err)
		assert.Zero(t, want.Cmp(liquidity))
	})

	t.Run("above range uses token1 only", func(t *testing.T) {
		aboveAll := new(big.Int).Add(upper, big.NewInt(1))
		liquidity, err := LiquidityForAmounts(aboveAll, lower, upper, big.NewInt(0), amount1)
		require.NoError(t, err)
		want, err := LiquidityForAmount1(lower, upper, amount1)
		require.NoError(t, err)
		assert.Zero(t, want.Cmp(liquidity))
	})

	t.Run("round trips through amount deltas", func(t *testing.T) {
		liquidity, err := LiquidityForAmounts(current, lower, upper, amount0, amount1)
		require.NoError(t, err)

		// Funding the derived liquidity never needs more than deposited.
		need0 := new(big.Int)
		require.NoError(t, sqrtpricemath.Amount0Delta(need0, current, upper, liquidity, false))
		need1 := new(big.Int)
		sqrtpricemath.Amount1Delta(need1, lower, current, liquidity, false)

		assert.True(t, need0.Cmp(amount0) <= 0)
		assert.True(t, need1.Cmp(amount1) <= 0)
	})
}
