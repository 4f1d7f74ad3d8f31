package redisx

import "time"

const (
	// Cached availability count: codes_remaining:{product_id} -> int.
	// Deleted by the API after any purchase touching the product.
	KeyCodesRemaining = "codes_remaining:%s"

	// Order lookup for buyers: order_status:{order_id} -> envelope payload JSON.
	// Written by the worker when it sees OrderCompleted.
	KeyOrderStatus = "order_status:%s"

	// Consumer dedup: dedup:{service}:{event_id}.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCodesRemaining = 30 * time.Second
	TTLOrderStatus    = 24 * time.Hour
	TTLDedup          = 48 * time.Hour
)
