package providers

import (
	"context"
	"time"
)

// TTLStore is a keyed expiring store shared across process instances.
// Replaces per-process mutable maps for anything stateful that must survive
// horizontal scaling, such as idempotency keys on booking requests.
type TTLStore interface {
	// Get retrieves a value. Returns ok=false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores a value with an expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
