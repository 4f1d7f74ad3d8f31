package codes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with a single mutex. Each ReserveCodes call
// holds the lock for the whole check-then-mark pass, which gives it the
// same atomicity the Postgres store gets from row locks in a transaction.
// Used by unit tests and local runs without Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	codes  map[int64]*Code
	orders map[string]*Order

	ConfirmationNumbers ConfirmationNumberGenerator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes:               make(map[int64]*Code),
		orders:              make(map[string]*Order),
		ConfirmationNumbers: RandomConfirmationNumberGenerator{},
	}
}

func (s *MemoryStore) AddCodes(ctx context.Context, productID string, codes []NewCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nc := range codes {
		s.nextID++
		s.codes[s.nextID] = &Code{
			ID:           s.nextID,
			ProductID:    productID,
			Period:       nc.Period,
			SerialNumber: nc.SerialNumber,
			Price:        nc.Price,
		}
	}
	return nil
}

// availableLocked returns available codes for one period, lowest id first.
// Caller holds s.mu.
func (s *MemoryStore) availableLocked(productID string, period int) []*Code {
	var out []*Code
	for _, c := range s.codes {
		if c.ProductID == productID && c.Period == period && c.Available() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) ReserveCodes(ctx context.Context, productID string, cart []CartLine) ([]CodeGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mark line by line so a later line for the same period never sees a
	// code an earlier line already claimed. An unsatisfiable line unwinds
	// every mark made for this cart.
	now := time.Now().UTC()
	var marked []*Code
	groups := make([]CodeGroup, 0, len(cart))
	for _, line := range cart {
		avail := s.availableLocked(productID, line.Period)
		if len(avail) < line.Quantity {
			for _, c := range marked {
				c.ReservedAt = nil
			}
			return nil, ErrInsufficientInventory
		}
		group := CodeGroup{Period: line.Period, Codes: make([]Code, 0, line.Quantity)}
		for _, c := range avail[:line.Quantity] {
			at := now
			c.ReservedAt = &at
			marked = append(marked, c)
			group.Codes = append(group.Codes, *c)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *MemoryStore) ReleaseCodes(ctx context.Context, codeIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range codeIDs {
		if c, ok := s.codes[id]; ok && c.OrderID == nil {
			c.ReservedAt = nil
		}
	}
	return nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, email string, amount int64, groups []CodeGroup) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, g := range groups {
		for _, c := range g.Codes {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrCodesNotListed
	}
	// All codes must still be unsold or the whole order is refused.
	for _, id := range ids {
		if c, ok := s.codes[id]; !ok || c.OrderID != nil {
			return nil, ErrCodeSold
		}
	}

	order := &Order{
		ID:                 uuid.NewString(),
		ConfirmationNumber: s.ConfirmationNumbers.Generate(),
		Email:              email,
		Amount:             amount,
		CodeQuantity:       len(ids),
		CreatedAt:          time.Now().UTC(),
	}
	for _, id := range ids {
		oid := order.ID
		s.codes[id].OrderID = &oid
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *MemoryStore) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.codes {
		if c.OrderID == nil && c.ReservedAt != nil && c.ReservedAt.Before(cutoff) {
			c.ReservedAt = nil
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CodesRemaining(ctx context.Context, productID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.codes {
		if c.ProductID == productID && c.Available() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) HasOrderFor(ctx context.Context, productID, email string) (bool, error) {
	orders, err := s.OrdersFor(ctx, productID, email)
	return len(orders) > 0, err
}

func (s *MemoryStore) OrdersFor(ctx context.Context, productID, email string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var out []Order
	for _, c := range s.codes {
		if c.ProductID != productID || c.OrderID == nil || seen[*c.OrderID] {
			continue
		}
		if o, ok := s.orders[*c.OrderID]; ok && o.Email == email {
			seen[o.ID] = true
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
