package codes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReserveLowestIDsFirst(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{
		{Period: 1, SerialNumber: "s1", Price: 1000},
		{Period: 1, SerialNumber: "s2", Price: 1000},
		{Period: 1, SerialNumber: "s3", Price: 1000},
	})

	groups, err := store.ReserveCodes(ctx, "p1", []CartLine{{Period: 1, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Codes, 2)
	assert.Equal(t, int64(1), groups[0].Codes[0].ID)
	assert.Equal(t, int64(2), groups[0].Codes[1].ID)
}

func TestMemoryStore_ReserveAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{
		{Period: 1, SerialNumber: "s1", Price: 1000},
		{Period: 7, SerialNumber: "s2", Price: 2000},
	})

	_, err := store.ReserveCodes(ctx, "p1", []CartLine{
		{Period: 1, Quantity: 1},
		{Period: 7, Quantity: 2},
	})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	n, err := store.CodesRemaining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "failed cart reserves nothing")
}

func TestMemoryStore_DuplicatePeriodLinesGetDistinctCodes(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{
		{Period: 1, SerialNumber: "s1", Price: 1000},
		{Period: 1, SerialNumber: "s2", Price: 1000},
	})

	groups, err := store.ReserveCodes(ctx, "p1", []CartLine{
		{Period: 1, Quantity: 1},
		{Period: 1, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Codes, 1)
	require.Len(t, groups[1].Codes, 1)
	assert.NotEqual(t, groups[0].Codes[0].ID, groups[1].Codes[0].ID,
		"each line must claim its own code")

	n, err := store.CodesRemaining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMemoryStore_DuplicatePeriodLinesBeyondPoolFailCleanly(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{{Period: 1, SerialNumber: "s1", Price: 1000}})

	// One code cannot satisfy two lines asking for it.
	_, err := store.ReserveCodes(ctx, "p1", []CartLine{
		{Period: 1, Quantity: 1},
		{Period: 1, Quantity: 1},
	})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	n, err := store.CodesRemaining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "first line's mark unwound")
}

func TestMemoryStore_ReserveIsScopedToProduct(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{{Period: 1, SerialNumber: "s1", Price: 1000}})
	require.NoError(t, store.AddCodes(ctx, "p2", []NewCode{{Period: 1, SerialNumber: "s1", Price: 500}}))

	_, err := store.ReserveCodes(ctx, "p1", []CartLine{{Period: 1, Quantity: 2}})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	n, err := store.CodesRemaining(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_CreateOrderRefusesSoldCodes(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{{Period: 1, SerialNumber: "s1", Price: 1000}})

	groups, err := store.ReserveCodes(ctx, "p1", []CartLine{{Period: 1, Quantity: 1}})
	require.NoError(t, err)

	_, err = store.CreateOrder(ctx, "a@example.com", 1000, groups)
	require.NoError(t, err)

	_, err = store.CreateOrder(ctx, "b@example.com", 1000, groups)
	require.ErrorIs(t, err, ErrCodeSold)
}

func TestMemoryStore_ReleaseNeverTouchesSoldCodes(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{{Period: 1, SerialNumber: "s1", Price: 1000}})

	groups, err := store.ReserveCodes(ctx, "p1", []CartLine{{Period: 1, Quantity: 1}})
	require.NoError(t, err)
	_, err = store.CreateOrder(ctx, "a@example.com", 1000, groups)
	require.NoError(t, err)

	require.NoError(t, store.ReleaseCodes(ctx, []int64{groups[0].Codes[0].ID}))

	n, err := store.CodesRemaining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "sold code stays sold")
}

func TestMemoryStore_ReleaseExpired(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "p1", []NewCode{
		{Period: 1, SerialNumber: "s1", Price: 1000},
		{Period: 1, SerialNumber: "s2", Price: 1000},
	})

	_, err := store.ReserveCodes(ctx, "p1", []CartLine{{Period: 1, Quantity: 2}})
	require.NoError(t, err)

	// Cutoff before the holds: nothing expires.
	n, err := store.ReleaseExpired(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Cutoff after the holds: both come back.
	n, err = store.ReleaseExpired(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := store.CodesRemaining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

// Many goroutines fight over a small pool; the total ever allocated must
// not exceed what was available at the start.
func TestMemoryStore_NoDoubleAllocationUnderContention(t *testing.T) {
	ctx := context.Background()
	const pool = 5
	const attempts = 50

	newCodes := make([]NewCode, 0, pool)
	for i := 0; i < pool; i++ {
		newCodes = append(newCodes, NewCode{Period: 1, SerialNumber: string(rune('a' + i)), Price: 1000})
	}
	store := seededStore(t, "p1", newCodes)

	var wg sync.WaitGroup
	results := make(chan []CodeGroup, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			groups, err := store.ReserveCodes(ctx, "p1", []CartLine{{Period: 1, Quantity: 1}})
			if err == nil {
				results <- groups
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	wins := 0
	for groups := range results {
		wins++
		for _, c := range groups[0].Codes {
			assert.False(t, seen[c.ID], "code %d allocated twice", c.ID)
			seen[c.ID] = true
		}
	}
	assert.Equal(t, pool, wins, "exactly the pool size succeeds")

	n, err := store.CodesRemaining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
