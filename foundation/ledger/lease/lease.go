// Package lease implements the distributed mining lease: an exclusive,
// TTL-bounded token in a shared coordination cache. The expiry is the safety
// net against a crashed holder deadlocking future mining attempts.
package lease

import (
	"context"
	"time"
)

// Locker represents the single coordination primitive the ledger consumes
// from the shared cache: atomic set-if-absent with expiry, plus a release
// that only the holder can perform.
type Locker interface {
	Acquire(ctx context.Context, key string, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string, holder string) error
}
