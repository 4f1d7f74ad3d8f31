package fulfillment

import (
	"context"
	"log"
	"time"

	"github.com/codeshop/codeshop/internal/codes"
)

// Sweeper reclaims holds abandoned between reservation and resolution,
// e.g. a request that died after reserving but before charging. Anything
// reserved longer than TTL ago with no order attached goes back on sale.
type Sweeper struct {
	Store    codes.Store
	TTL      time.Duration
	Interval time.Duration
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.TTL)
			n, err := s.Store.ReleaseExpired(ctx, cutoff)
			if err != nil {
				log.Printf("sweep stale holds: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("released %d stale holds older than %s", n, s.TTL)
			}
		}
	}
}
