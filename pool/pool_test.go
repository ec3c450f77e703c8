package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defisim/clpool-go/ledger"
)

// The reference scenario throughout the pool tests: an ETH/USDC pool starting
// at price 5000 with one position over [84222, 86129).
var (
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	poolAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	lp       = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	trader   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	sqrtPrice5000 = fromString("5602277097478614198912276234240")
	refLiquidity  = fromString("1517882343751509868544")
)

const (
	tick5000     = int64(85176)
	refLowerTick = int64(84222)
	refUpperTick = int64(86129)
)

func fromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number: " + s)
	}
	return n
}

func newTestPool(t *testing.T, fee uint64) (*Pool, *ledger.Ledger) {
	t.Helper()

	l := ledger.New()
	p, err := New(Config{
		Address: poolAddr,
		Token0:  weth,
		Token1:  usdc,
		Fee:     fee,
	}, l, sqrtPrice5000)
	require.NoError(t, err)
	return p, l
}

// payFromAccount returns a mint callback that settles from payer's ledger
// balances.
func payFromAccount(l *ledger.Ledger, payer common.Address) MintCallbackFunc {
	return func(amount0, amount1 *big.Int, _ []byte) error {
		if err := l.Transfer(weth, payer, poolAddr, amount0); err != nil {
			return err
		}
		return l.Transfer(usdc, payer, poolAddr, amount1)
	}
}

// swapPayFromAccount returns a swap callback that pays the positive deltas
// from payer's ledger balances.
func swapPayFromAccount(l *ledger.Ledger, payer common.Address) SwapCallbackFunc {
	return func(amount0Delta, amount1Delta *big.Int, _ []byte) error {
		if amount0Delta.Sign() > 0 {
			if err := l.Transfer(weth, payer, poolAddr, amount0Delta); err != nil {
				return err
			}
		}
		if amount1Delta.Sign() > 0 {
			if err := l.Transfer(usdc, payer, poolAddr, amount1Delta); err != nil {
				return err
			}
		}
		return nil
	}
}

// fund gives payer plenty of both tokens.
func fund(t *testing.T, l *ledger.Ledger, holder common.Address) {
	t.Helper()
	plenty := new(big.Int).Lsh(big.NewInt(1), 96)
	require.NoError(t, l.Mint(weth, holder, plenty))
	require.NoError(t, l.Mint(usdc, holder, plenty))
}

// mintRef adds the reference position to the pool.
func mintRef(t *testing.T, p *Pool, l *ledger.Ledger) {
	t.Helper()
	fund(t, l, lp)
	_, _, err := p.Mint(lp, refLowerTick, refUpperTick, refLiquidity, payFromAccount(l, lp), nil)
	require.NoError(t, err)
}

func TestNew(t *testing.T) {
	t.Run("derives tick from price", func(t *testing.T) {
		p, _ := newTestPool(t, 0)
		assert.Equal(t, tick5000, p.Tick())
		assert.Equal(t, sqrtPrice5000, p.SqrtPriceX96())
		assert.Zero(t, p.Liquidity().Sign())
	})

	t.Run("nil ledger rejected", func(t *testing.T) {
		_, err := New(Config{}, nil, sqrtPrice5000)
		assert.ErrorIs(t, err, ErrNilLedger)
	})

	t.Run("fee of 100% rejected", func(t *testing.T) {
		_, err := New(Config{Fee: 1_000_000}, ledger.New(), sqrtPrice5000)
		assert.ErrorIs(t, err, ErrInvalidFee)
	})

	t.Run("unrepresentable price rejected", func(t *testing.T) {
		_, err := New(Config{}, ledger.New(), big.NewInt(1))
		assert.Error(t, err)
	})
}

func TestAccessorsReturnCopies(t *testing.T) {
	p, _ := newTestPool(t, 0)

	price := p.SqrtPriceX96()
	price.SetInt64(0)
	assert.Equal(t, sqrtPrice5000, p.SqrtPriceX96())

	liq := p.Liquidity()
	liq.SetInt64(42)
	assert.Zero(t, p.Liquidity().Sign())
}

func TestViewDiff(t *testing.T) {
	p, l := newTestPool(t, 0)

	before := p.View()
	mintRef(t, p, l)
	after := p.View()

	d := DiffViews(before, after)
	require.False(t, d.IsEmpty())
	assert.Nil(t, d.SqrtPriceX96)
	assert.Nil(t, d.Tick)
	assert.Equal(t, refLiquidity, d.Liquidity)
	require.Len(t, d.TickAdditions, 2)
	assert.Equal(t, refLowerTick, d.TickAdditions[0].Index)
	assert.Equal(t, refUpperTick, d.TickAdditions[1].Index)
	assert.Empty(t, d.TickUpdates)
	assert.Empty(t, d.TickDeletions)

	t.Run("views are detached", func(t *testing.T) {
		snap := p.View()
		snap.Liquidity.SetInt64(0)
		assert.Equal(t, refLiquidity, p.Liquidity())
	})

	t.Run("burn shows deletions", func(t *testing.T) {
		pre := p.View()
		_, _, err := p.Burn(lp, refLowerTick, refUpperTick, refLiquidity)
		require.NoError(t, err)
		d := DiffViews(pre, p.View())
		assert.ElementsMatch(t, []int64{refLowerTick, refUpperTick}, d.TickDeletions)
	})

	t.Run("identical views diff empty", func(t *testing.T) {
		v := p.View()
		assert.True(t, DiffViews(v, v).IsEmpty())
	})
}
