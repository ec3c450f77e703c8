package pool

import "errors"

var (
	// ErrInvalidTickRange is returned when lowerTick >= upperTick or either
	// bound lies outside the supported tick range.
	ErrInvalidTickRange = errors.New("invalid tick range")
	// ErrInvalidLiquidityAmount is returned when a mint or burn specifies a
	// non-positive liquidity amount.
	ErrInvalidLiquidityAmount = errors.New("liquidity amount must be greater than zero")
	// ErrInvalidSwapAmount is returned when a swap specifies a nil or zero amount.
	ErrInvalidSwapAmount = errors.New("swap amount must be non-zero")
	// ErrInvalidPriceLimit is returned when a swap price limit is on the wrong
	// side of the current price or outside the representable range.
	ErrInvalidPriceLimit = errors.New("invalid sqrt price limit")
	// ErrInsufficientLiquidity is returned when a swap cannot be filled from
	// the liquidity reachable in its direction.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientInputAmount is returned when settlement verification
	// finds the pool received less than the owed amounts.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrUnknownPosition is returned when collecting from a position that was
	// never minted.
	ErrUnknownPosition = errors.New("unknown position")
	// ErrInvalidFee is returned when a pool is configured with a fee of 100%
	// or more.
	ErrInvalidFee = errors.New("fee must be below 1,000,000 pips")
	// ErrNilLedger is returned when a pool is constructed without a balance
	// source.
	ErrNilLedger = errors.New("ledger must not be nil")
	// ErrNilCallback is returned when a mint or swap is attempted without a
	// settlement callback.
	ErrNilCallback = errors.New("settlement callback must not be nil")
)
