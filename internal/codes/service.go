package codes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"

	"github.com/codeshop/codeshop/internal/billing"
)

// Service runs the purchase flow: allocate a reservation, charge the
// buyer, commit to an order or roll the hold back. Events and ServiceName
// are optional; with a nil Events nothing is published.
type Service struct {
	Store       Store
	Gateway     billing.Gateway
	Events      Publisher
	ServiceName string
}

// Purchase is the inbound operation. Outcomes:
//   - *Order on success (codes sold, buyer charged exactly Order.Amount)
//   - ErrInsufficientInventory: nothing reserved, nothing charged
//   - billing.ErrPaymentFailed: hold released, buyer unbilled
//
// Reservation and charge are sequential phases. The store transaction is
// long gone by the time the gateway is called, so a slow or failing
// charge never stalls other buyers' allocations.
func (s *Service) Purchase(ctx context.Context, productID string, cart []CartLine, email, paymentToken string) (*Order, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateCart(cart); err != nil {
		return nil, err
	}

	groups, err := s.Store.ReserveCodes(ctx, productID, cart)
	if err != nil {
		if errors.Is(err, ErrInsufficientInventory) {
			s.publishRejected(ctx, productID, email, RejectReasonInventory, cart)
		}
		return nil, err
	}
	reservation := NewReservation(s.Store, groups, email)

	order, err := reservation.Complete(ctx, s.Gateway, paymentToken)
	if err != nil {
		// Complete leaves the codes reserved on a failed charge; this
		// caller has no retry path, so it gives the hold back right away.
		if cancelErr := reservation.Cancel(ctx); cancelErr != nil {
			log.Printf("release reservation after failed charge: %v", cancelErr)
		}
		if errors.Is(err, billing.ErrPaymentFailed) {
			s.publishRejected(ctx, productID, email, RejectReasonPayment, cart)
			return nil, err
		}
		return nil, fmt.Errorf("complete reservation: %w", err)
	}

	s.publishCompleted(ctx, productID, order)
	return order, nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrMissingEmail
	}
	return nil
}

func (s *Service) publishCompleted(ctx context.Context, productID string, order *Order) {
	if s.Events == nil {
		return
	}
	env := newEnvelope(s.ServiceName, EventOrderCompleted, order.ID, OrderCompletedPayload{
		OrderID:            order.ID,
		ProductID:          productID,
		ConfirmationNumber: order.ConfirmationNumber,
		Email:              order.Email,
		Amount:             order.Amount,
		CodeQuantity:       order.CodeQuantity,
	})
	if err := s.Events.Publish(ctx, env); err != nil {
		log.Printf("publish %s: %v", EventOrderCompleted, err)
	}
}

func (s *Service) publishRejected(ctx context.Context, productID, email, reason string, cart []CartLine) {
	if s.Events == nil {
		return
	}
	env := newEnvelope(s.ServiceName, EventPurchaseRejected, "", PurchaseRejectedPayload{
		ProductID: productID,
		Email:     email,
		Reason:    reason,
		Cart:      cart,
	})
	if err := s.Events.Publish(ctx, env); err != nil {
		log.Printf("publish %s: %v", EventPurchaseRejected, err)
	}
}
