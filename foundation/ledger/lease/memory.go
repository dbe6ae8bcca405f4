package lease

import (
	"context"
	"sync"
	"time"
)

// entry represents one held lease and its expiry.
type entry struct {
	holder  string
	expires time.Time
}

// MemoryLocker implements the Locker interface in process memory. It mirrors
// the coordination cache semantics, expiry included, for tests and for
// single-process deployments that run without a shared cache.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]entry
}

// NewMemoryLocker constructs an in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]entry),
	}
}

// Acquire grants the lease when the key is absent or its previous holder has
// expired. It reports false without waiting on contention.
func (ml *MemoryLocker) Acquire(ctx context.Context, key string, holder string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := time.Now()
	if e, exists := ml.leases[key]; exists && now.Before(e.expires) {
		return false, nil
	}

	ml.leases[key] = entry{
		holder:  holder,
		expires: now.Add(ttl),
	}

	return true, nil
}

// Release removes the lease when it is still held by the holder.
func (ml *MemoryLocker) Release(ctx context.Context, key string, holder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	if e, exists := ml.leases[key]; exists && e.holder == holder {
		delete(ml.leases, key)
	}

	return nil
}
