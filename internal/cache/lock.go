package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"shotscribe/internal/logging"
)

const lockRetryDelay = 250 * time.Millisecond

// Unlock releases a key lock.
type Unlock func() error

// Lock takes an exclusive advisory lock for key so concurrent invocations on
// the same URL serialize. It blocks until the lock is acquired or ctx ends.
// Different keys never contend.
func (s *Store) Lock(ctx context.Context, key Key) (Unlock, error) {
	path := filepath.Join(s.root, dirLocks, string(key)+".lock")
	lock := flock.New(path)

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cache: lock %s: %w", key, err)
	}
	if !locked {
		s.logger.InfoContext(ctx, "waiting for another run on the same video",
			logging.String(logging.FieldCacheKey, string(key)),
			logging.String("lock_path", path),
		)
		locked, err = lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("cache: wait for lock %s: %w", key, err)
		}
		if !locked {
			return nil, fmt.Errorf("cache: lock %s not acquired", key)
		}
	}
	return lock.Unlock, nil
}
