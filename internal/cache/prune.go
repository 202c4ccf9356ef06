package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"shotscribe/internal/logging"
)

// PruneResult reports what Prune removed.
type PruneResult struct {
	Removed        []Key        `json:"removed"`
	ReclaimedBytes int64        `json:"reclaimed_bytes"`
	Skipped        []Key        `json:"skipped,omitempty"`
	Errors         []PruneError `json:"errors,omitempty"`
}

// PruneError pairs a key with the error that kept it from being removed.
type PruneError struct {
	Key   Key    `json:"key"`
	Error string `json:"error"`
}

// Prune removes every entry whose newest artifact is older than maxAge.
// Entries locked by an active run are skipped.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (PruneResult, error) {
	var result PruneResult
	keys, err := s.keys()
	if err != nil {
		return result, err
	}
	cutoff := time.Now().Add(-maxAge)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		summary := s.summarize(key)
		if summary.ModifiedAt.IsZero() || !summary.ModifiedAt.Before(cutoff) {
			continue
		}

		lockPath := filepath.Join(s.root, dirLocks, string(key)+".lock")
		lock := flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil || !locked {
			result.Skipped = append(result.Skipped, key)
			continue
		}
		clearErr := s.Clear(key)
		if clearErr == nil {
			// Removed while held so no other run can lock the stale inode.
			if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				clearErr = fmt.Errorf("cache: remove lock: %w", err)
			}
		}
		_ = lock.Unlock()
		if clearErr != nil {
			result.Errors = append(result.Errors, PruneError{Key: key, Error: clearErr.Error()})
			s.logger.Warn("failed to prune cache entry",
				logging.String(logging.FieldCacheKey, string(key)),
				logging.Error(clearErr),
				logging.String(logging.FieldEventType, "cache_prune_failed"),
				logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, key)
		result.ReclaimedBytes += summary.SizeBytes
		s.logger.Info("pruned cache entry",
			logging.String(logging.FieldCacheKey, string(key)),
			logging.Duration("age", time.Since(summary.ModifiedAt).Round(time.Second)),
			logging.String(logging.FieldEventType, "cache_prune"),
		)
	}
	if len(result.Errors) > 0 {
		return result, fmt.Errorf("cache: prune: %d entries could not be removed", len(result.Errors))
	}
	return result, nil
}
