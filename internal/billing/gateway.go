package billing

import (
	"context"
	"errors"
)

// ErrPaymentFailed: the token was invalid or the payer lacked funds.
// No money moved and no inventory changed.
var ErrPaymentFailed = errors.New("payment failed")

// Gateway is the single point of external billing I/O. Charge must never
// be called while an inventory lock is held; reservation and charge are
// sequential phases.
type Gateway interface {
	Charge(ctx context.Context, amount int64, token, email string) error
}
