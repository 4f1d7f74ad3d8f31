package billing

import (
	"context"
	"sync"
)

const ValidTestToken = "valid-token"

// FakeGateway charges against in-memory buyer balances. It doubles as the
// simulation seam for concurrency tests: OnBeforeFirstCharge installs a
// one-shot hook that runs right before the first charge is processed,
// which lets a test interleave a second purchase attempt in the window
// between reservation and charge.
type FakeGateway struct {
	mu                sync.Mutex
	balances          map[string]int64
	charges           []int64
	beforeFirstCharge func(*FakeGateway)
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{balances: make(map[string]int64)}
}

func (g *FakeGateway) ValidTestToken() string { return ValidTestToken }

// Deposit credits a buyer account. Charges against unknown buyers fail.
func (g *FakeGateway) Deposit(email string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[email] += amount
}

func (g *FakeGateway) OnBeforeFirstCharge(hook func(*FakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.beforeFirstCharge = hook
}

func (g *FakeGateway) Charge(ctx context.Context, amount int64, token, email string) error {
	// The hook runs unlocked: it is expected to start another purchase,
	// which may land back here.
	g.mu.Lock()
	hook := g.beforeFirstCharge
	g.beforeFirstCharge = nil
	g.mu.Unlock()
	if hook != nil {
		hook(g)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if token != ValidTestToken {
		return ErrPaymentFailed
	}
	balance, ok := g.balances[email]
	if !ok || balance < amount {
		return ErrPaymentFailed
	}
	g.balances[email] = balance - amount
	g.charges = append(g.charges, amount)
	return nil
}

func (g *FakeGateway) TotalCharges() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var total int64
	for _, c := range g.charges {
		total += c
	}
	return total
}

// Charges returns the recorded charge amounts, oldest first.
func (g *FakeGateway) Charges() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, len(g.charges))
	copy(out, g.charges)
	return out
}
