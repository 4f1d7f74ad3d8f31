package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeGateway_ChargesWithValidToken(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	gw.Deposit("john@example.com", 5000)

	require.NoError(t, gw.Charge(ctx, 2500, ValidTestToken, "john@example.com"))
	assert.Equal(t, int64(2500), gw.TotalCharges())

	require.NoError(t, gw.Charge(ctx, 2500, ValidTestToken, "john@example.com"))
	assert.Equal(t, int64(5000), gw.TotalCharges())
	assert.Equal(t, []int64{2500, 2500}, gw.Charges())
}

func TestFakeGateway_RejectsInvalidToken(t *testing.T) {
	gw := NewFakeGateway()
	gw.Deposit("john@example.com", 5000)

	err := gw.Charge(context.Background(), 100, "bogus-token", "john@example.com")
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Zero(t, gw.TotalCharges())
}

func TestFakeGateway_RejectsInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	gw.Deposit("john@example.com", 100)

	err := gw.Charge(ctx, 101, ValidTestToken, "john@example.com")
	require.ErrorIs(t, err, ErrPaymentFailed)

	// Unknown buyer fails too.
	err = gw.Charge(ctx, 1, ValidTestToken, "stranger@example.com")
	require.ErrorIs(t, err, ErrPaymentFailed)

	assert.Zero(t, gw.TotalCharges())
}

func TestFakeGateway_FailedChargeLeavesBalanceUntouched(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	gw.Deposit("john@example.com", 100)

	_ = gw.Charge(ctx, 500, ValidTestToken, "john@example.com")

	// The original 100 still covers a charge of 100.
	require.NoError(t, gw.Charge(ctx, 100, ValidTestToken, "john@example.com"))
}

func TestFakeGateway_HookRunsOnceBeforeFirstCharge(t *testing.T) {
	ctx := context.Background()
	gw := NewFakeGateway()
	gw.Deposit("john@example.com", 5000)

	var chargesWhenHookRan int64 = -1
	gw.OnBeforeFirstCharge(func(g *FakeGateway) {
		chargesWhenHookRan = g.TotalCharges()
	})

	require.NoError(t, gw.Charge(ctx, 1000, ValidTestToken, "john@example.com"))
	assert.Equal(t, int64(0), chargesWhenHookRan, "hook ran before the charge landed")

	// Second charge must not re-trigger the hook.
	chargesWhenHookRan = -1
	require.NoError(t, gw.Charge(ctx, 1000, ValidTestToken, "john@example.com"))
	assert.Equal(t, int64(-1), chargesWhenHookRan)
}
