package codes

import (
	"context"
	"time"
)

// Store is the consistency contract the inventory backend must uphold.
// ReserveCodes runs check-then-mark as one atomic unit per attempt: two
// concurrent attempts never claim the same code. CreateOrder writes the
// order row and every code association in one transaction, or neither.
type Store interface {
	// AddCodes seeds inventory for a product (seller workflow).
	AddCodes(ctx context.Context, productID string, codes []NewCode) error

	// ReserveCodes locks exactly quantity available codes per cart line,
	// lowest id first, or fails the whole cart with ErrInsufficientInventory
	// and no codes reserved.
	ReserveCodes(ctx context.Context, productID string, cart []CartLine) ([]CodeGroup, error)

	// ReleaseCodes returns reserved codes to the available pool. Codes that
	// already belong to an order are left untouched.
	ReleaseCodes(ctx context.Context, codeIDs []int64) error

	// CreateOrder converts the held codes to sold and persists the order.
	CreateOrder(ctx context.Context, email string, amount int64, groups []CodeGroup) (*Order, error)

	// ReleaseExpired releases codes reserved before the cutoff that never
	// made it into an order. Returns how many were released.
	ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error)

	CodesRemaining(ctx context.Context, productID string) (int64, error)
	HasOrderFor(ctx context.Context, productID, email string) (bool, error)
	OrdersFor(ctx context.Context, productID, email string) ([]Order, error)
}
