package codes

import (
	"context"

	"github.com/codeshop/codeshop/internal/billing"
)

// Reservation is an ephemeral claim on a set of codes pending payment.
// It is resolved exactly once, by Complete or Cancel, and the handle is
// discarded afterwards.
type Reservation struct {
	store  Store
	email  string
	groups []CodeGroup
}

func NewReservation(store Store, groups []CodeGroup, email string) *Reservation {
	return &Reservation{store: store, email: email, groups: groups}
}

func (r *Reservation) Email() string { return r.email }

func (r *Reservation) Groups() []CodeGroup { return r.groups }

// Codes flattens the groups in cart-line order.
func (r *Reservation) Codes() []Code {
	var out []Code
	for _, g := range r.groups {
		out = append(out, g.Codes...)
	}
	return out
}

// TotalCost is pure; callable any number of times.
func (r *Reservation) TotalCost() int64 {
	var total int64
	for _, g := range r.groups {
		for _, c := range g.Codes {
			total += c.Price
		}
	}
	return total
}

// Complete charges the buyer and, only if the charge succeeds, converts
// the held codes into an order. A failed charge is propagated untouched
// and the codes stay reserved: releasing them is the caller's call, via
// Cancel, so the caller may retry the same reservation instead.
func (r *Reservation) Complete(ctx context.Context, gateway billing.Gateway, token string) (*Order, error) {
	if err := gateway.Charge(ctx, r.TotalCost(), token, r.email); err != nil {
		return nil, err
	}
	return r.store.CreateOrder(ctx, r.email, r.TotalCost(), r.groups)
}

// Cancel releases every held code back to the available pool.
func (r *Reservation) Cancel(ctx context.Context) error {
	ids := make([]int64, 0, len(r.groups))
	for _, g := range r.groups {
		for _, c := range g.Codes {
			ids = append(ids, c.ID)
		}
	}
	return r.store.ReleaseCodes(ctx, ids)
}
