package tickmath

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromString(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

// encodePriceSqrt mirrors the ethers.js test helper: sqrt(reserve1/reserve0) in Q64.96.
func encodePriceSqrt(reserve1, reserve0 *big.Int) *big.Int {
	num := new(big.Int).Mul(reserve1, new(big.Int).Lsh(big.NewInt(1), 192))
	ratio := new(big.Int).Div(num, reserve0)
	return new(big.Int).Sqrt(ratio)
}

func TestSqrtRatioAtTick(t *testing.T) {
	t.Run("throws below min tick", func(t *testing.T) {
		err := SqrtRatioAtTick(new(big.Int), MinTick-1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("throws above max tick", func(t *testing.T) {
		err := SqrtRatioAtTick(new(big.Int), MaxTick+1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("min tick", func(t *testing.T) {
		sqrtP := new(big.Int)
		require.NoError(t, SqrtRatioAtTick(sqrtP, MinTick))
		assert.Zero(t, MinSqrtRatio.Cmp(sqrtP))
	})

	t.Run("max tick", func(t *testing.T) {
		sqrtP := new(big.Int)
		require.NoError(t, SqrtRatioAtTick(sqrtP, MaxTick))
		assert.Zero(t, MaxSqrtRatio.Cmp(sqrtP))
	})

	t.Run("zero tick is one in Q64.96", func(t *testing.T) {
		sqrtP := new(big.Int)
		require.NoError(t, SqrtRatioAtTick(sqrtP, 0))
		assert.Zero(t, fromString("79228162514264337593543950336").Cmp(sqrtP))
	})

	// Fixture ticks from the reference scenario.
	vectors := []struct {
		tick int64
		want string
	}{
		{84222, "5341283623238412454227108479223"},
		{86129, "5875617940067453351001625213169"},
	}
	for _, tc := range vectors {
		sqrtP := new(big.Int)
		require.NoError(t, SqrtRatioAtTick(sqrtP, tc.tick))
		assert.Zero(t, fromString(tc.want).Cmp(sqrtP), "tick %d", tc.tick)
	}
}

func TestTickAtSqrtRatio(t *testing.T) {
	t.Run("throws below min ratio", func(t *testing.T) {
		_, err := TickAtSqrtRatio(new(big.Int).Sub(MinSqrtRatio, big.NewInt(1)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPriceOutOfRange)
	})

	t.Run("throws at max ratio", func(t *testing.T) {
		_, err := TickAtSqrtRatio(MaxSqrtRatio)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPriceOutOfRange)
	})

	t.Run("ratio of min tick", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(MinSqrtRatio)
		require.NoError(t, err)
		assert.Equal(t, MinTick, tick)
	})

	t.Run("ratio closest to max tick", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1)))
		require.NoError(t, err)
		assert.Equal(t, MaxTick-1, tick)
	})

	t.Run("reference scenario prices", func(t *testing.T) {
		tick, err := TickAtSqrtRatio(fromString("5602277097478614198912276234240"))
		require.NoError(t, err)
		assert.Equal(t, int64(85176), tick)

		tick, err = TickAtSqrtRatio(fromString("5604469350942327889444743441197"))
		require.NoError(t, err)
		assert.Equal(t, int64(85184), tick)
	})

	ratios := []struct {
		name  string
		ratio *big.Int
	}{
		{"min ratio", MinSqrtRatio},
		{"1e12:1", encodePriceSqrt(new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil), big.NewInt(1))},
		{"1e6:1", encodePriceSqrt(new(big.Int).Exp(big.NewInt(10), big.NewInt(6), nil), big.NewInt(1))},
		{"1:64", encodePriceSqrt(big.NewInt(1), big.NewInt(64))},
		{"1:2", encodePriceSqrt(big.NewInt(1), big.NewInt(2))},
		{"1:1", encodePriceSqrt(big.NewInt(1), big.NewInt(1))},
		{"2:1", encodePriceSqrt(big.NewInt(2), big.NewInt(1))},
		{"64:1", encodePriceSqrt(big.NewInt(64), big.NewInt(1))},
		{"1:1e6", encodePriceSqrt(big.NewInt(1), new(big.Int).Exp(big.NewInt(10), big.NewInt(6), nil))},
		{"1:1e12", encodePriceSqrt(big.NewInt(1), new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil))},
		{"max ratio - 1", new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1))},
	}
	for _, tc := range ratios {
		t.Run(tc.name, func(t *testing.T) {
			tick, err := TickAtSqrtRatio(tc.ratio)
			require.NoError(t, err)

			atTick := new(big.Int)
			require.NoError(t, SqrtRatioAtTick(atTick, tick))
			atNext := new(big.Int)
			require.NoError(t, SqrtRatioAtTick(atNext, tick+1))

			// Invariant: SqrtRatioAtTick(tick) <= ratio < SqrtRatioAtTick(tick+1).
			assert.True(t, tc.ratio.Cmp(atTick) >= 0)
			assert.True(t, tc.ratio.Cmp(atNext) < 0)
		})
	}
}

// TestRoundTrip checks that TickAtSqrtRatio inverts SqrtRatioAtTick exactly.
func TestRoundTrip(t *testing.T) {
	for i := 0; i < 1000; i++ {
		span := big.NewInt(MaxTick - MinTick)
		offset, _ := rand.Int(rand.Reader, span)
		tick := MinTick + offset.Int64()

		sqrtP := new(big.Int)
		require.NoError(t, SqrtRatioAtTick(sqrtP, tick))

		back, err := TickAtSqrtRatio(sqrtP)
		require.NoError(t, err)
		assert.Equal(t, tick, back, "tick %d -> %s -> %d", tick, sqrtP, back)
	}
}
