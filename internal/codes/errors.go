package codes

import "errors"

var (
	// ErrInsufficientInventory: some cart line asked for more available
	// codes than the product holds. Nothing is reserved when this happens.
	ErrInsufficientInventory = errors.New("not enough codes available")

	ErrEmptyCart      = errors.New("shopping cart is empty")
	ErrInvalidLine    = errors.New("cart line needs period > 0 and quantity >= 1")
	ErrMissingEmail   = errors.New("buyer email is required")
	ErrCodesNotListed = errors.New("order must reference at least one code")
	ErrCodeSold       = errors.New("code already belongs to an order")
)
