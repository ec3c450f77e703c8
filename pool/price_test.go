package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualReserves(t *testing.T) {
	p, l := newTestPool(t, 0)
	mintRef(t, p, l)

	reserve0, reserve1 := p.VirtualReserves()
	assert.Equal(t, fromString("21466097966200455218"), reserve0)
	assert.Equal(t, fromString("107330489831002284025978"), reserve1)
}

func TestSpotPrice(t *testing.T) {
	p, _ := newTestPool(t, 0)

	price, _ := p.SpotPrice(true, 18, 18).Float64()
	assert.InDelta(t, 5000.0, price, 0.001)

	inverse, _ := p.SpotPrice(false, 18, 18).Float64()
	require.Positive(t, inverse)
	assert.InDelta(t, 1.0/5000.0, inverse, 1e-9)

	t.Run("decimal adjustment", func(t *testing.T) {
		// token1 with 6 decimals: the human-readable price shrinks by 1e12.
		adjusted, _ := p.SpotPrice(true, 18, 6).Float64()
		assert.InDelta(t, 5000.0/1e12, adjusted, 1e-12)
	})
}
