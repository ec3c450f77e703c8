// Package tickmath converts between tick indices and Q64.96 square-root prices.
//
// A tick i corresponds to the price 1.0001^i, so the square-root price at a
// tick is 1.0001^(i/2), encoded as an unsigned fixed-point number with 96
// fractional bits. The conversion uses the standard ladder of pre-computed
// UQ128.128 constants, so results are bit-for-bit identical to the reference
// contract implementation.
package tickmath

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick index accepted by SqrtRatioAtTick.
	MinTick = int64(-887272)
	// MaxTick is the highest tick index accepted by SqrtRatioAtTick.
	MaxTick = int64(887272)
)

var (
	// MinSqrtRatio is SqrtRatioAtTick(MinTick).
	MinSqrtRatio, _ = new(big.Int).SetString("4295128739", 10)
	// MaxSqrtRatio is SqrtRatioAtTick(MaxTick).
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	// ErrTickOutOfBounds is returned when a tick lies outside [MinTick, MaxTick].
	ErrTickOutOfBounds = errors.New("tick out of bounds")
	// ErrPriceOutOfRange is returned when a sqrt price has no corresponding tick.
	ErrPriceOutOfRange = errors.New("sqrt price out of range")

	one        = uint256.NewInt(1)
	maxUint256 = uint256.MustFromBig(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))

	// ratioLadder[i] holds sqrt(1.0001^(2^i)) in UQ128.128 for i in 1..20,
	// ratioLadder[0] is the odd-bit seed and the final entry is the
	// round-to-Q96 mask.
	ratioLadder = [22]*uint256.Int{
		mustHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		mustHex("0x100000000000000000000000000000000"),
		mustHex("0xfff97272373d413259a46990580e213a"),
		mustHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		mustHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		mustHex("0xffcb9843d60f6159c9db58835c926644"),
		mustHex("0xff973b41fa98c081472e6896dfb254c0"),
		mustHex("0xff2ea16466c96a3843ec78b326b52861"),
		mustHex("0xfe5dee046a99a2a811c461f1969c3053"),
		mustHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		mustHex("0xf987a7253ac413176f2b074cf7815e54"),
		mustHex("0xf3392b0822b70005940c7a398e4b70f3"),
		mustHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		mustHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		mustHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		mustHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		mustHex("0x31be135f97d08fd981231505542fcfa6"),
		mustHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		mustHex("0x5d6af8dedb81196699c329225ee604"),
		mustHex("0x2216e584f5fa1ea926041bedfe98"),
		mustHex("0x48a170391f7dc42444e8fa2"),
		mustHex("0xffffffff"),
	}
)

// scratch holds reusable integers so the hot conversion path allocates nothing.
type scratch struct {
	ratio *uint256.Int
	rem   *uint256.Int
	probe *big.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{
			ratio: new(uint256.Int),
			rem:   new(uint256.Int),
			probe: new(big.Int),
		}
	},
}

// SqrtRatioAtTick writes sqrt(1.0001^tick) * 2^96 into dest.
// The result is rounded so that the inverse conversion satisfies
// TickAtSqrtRatio(SqrtRatioAtTick(t)) == t for every valid tick.
func SqrtRatioAtTick(dest *big.Int, tick int64) error {
	if tick < MinTick || tick > MaxTick {
		return ErrTickOutOfBounds
	}

	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	if absTick&0x1 != 0 {
		s.ratio.Set(ratioLadder[0])
	} else {
		s.ratio.Set(ratioLadder[1])
	}
	for i := 2; i < 21; i++ {
		if absTick&(1<<(i-1)) != 0 {
			s.ratio.Mul(s.ratio, ratioLadder[i]).Rsh(s.ratio, 128)
		}
	}

	if tick > 0 {
		s.ratio.Div(maxUint256, s.ratio)
	}

	// Drop the lowest 32 fractional bits, rounding up, to land in Q64.96.
	s.rem.And(s.ratio, ratioLadder[21])
	s.ratio.Rsh(s.ratio, 32)
	if s.rem.Sign() > 0 {
		s.ratio.Add(s.ratio, one)
	}

	s.ratio.IntoBig(&dest)
	return nil
}

// TickAtSqrtRatio returns the greatest tick t such that
// SqrtRatioAtTick(t) <= sqrtPriceX96. Valid inputs lie in
// [MinSqrtRatio, MaxSqrtRatio); anything else fails with ErrPriceOutOfRange.
func TickAtSqrtRatio(sqrtPriceX96 *big.Int) (int64, error) {
	if sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrPriceOutOfRange
	}

	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)

	// Binary search over the full tick range. SqrtRatioAtTick is monotonic,
	// so the greatest satisfying tick is well defined.
	low, high := MinTick, MaxTick
	var tick int64
	for low <= high {
		mid := (low + high) / 2
		if err := SqrtRatioAtTick(s.probe, mid); err != nil {
			return 0, err
		}
		if s.probe.Cmp(sqrtPriceX96) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

func mustHex(s string) *uint256.Int {
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		panic("tickmath: bad ladder constant " + s)
	}
	return uint256.MustFromBig(n)
}
