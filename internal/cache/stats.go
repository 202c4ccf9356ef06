package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shotscribe/internal/logging"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Stats describes current cache usage.
type Stats struct {
	Root           string         `json:"root"`
	Entries        int            `json:"entries"`
	TotalBytes     int64          `json:"total_bytes"`
	FreeBytes      uint64         `json:"free_bytes"`
	TotalFSBytes   uint64         `json:"total_fs_bytes"`
	EntrySummaries []EntrySummary `json:"entry_summaries"`
}

// EntrySummary surfaces the artifacts stored for one key so the CLI can show
// what the cache holds.
type EntrySummary struct {
	Key        Key        `json:"key"`
	SizeBytes  int64      `json:"size_bytes"`
	ModifiedAt time.Time  `json:"modified_at"`
	Complete   bool       `json:"complete"`
	Categories []Category `json:"categories"`
	Frames     int        `json:"frames"`
}

// Stats scans the cache and reports per-key usage plus filesystem free space.
// Entries are ordered newest first.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.keys()
	if err != nil {
		return Stats{}, err
	}
	summaries := make([]EntrySummary, 0, len(keys))
	var total int64
	for _, key := range keys {
		summary := s.summarize(key)
		total += summary.SizeBytes
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ModifiedAt.After(summaries[j].ModifiedAt)
	})

	totalFS, freeFS, err := s.statfs(s.root)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: statfs: %w", err)
	}
	if len(summaries) == 0 {
		s.logger.DebugContext(ctx, "cache empty", logging.String("cache_dir", s.root))
	}
	return Stats{
		Root:           s.root,
		Entries:        len(summaries),
		TotalBytes:     total,
		FreeBytes:      freeFS,
		TotalFSBytes:   totalFS,
		EntrySummaries: summaries,
	}, nil
}

// keys collects every key that has at least one artifact.
func (s *Store) keys() ([]Key, error) {
	seen := make(map[Key]struct{})
	add := func(name string) {
		if len(name) < 32 {
			return
		}
		candidate := name[:32]
		if !isHex(candidate) {
			return
		}
		seen[Key(candidate)] = struct{}{}
	}
	for _, dir := range []string{dirVideos, dirAudio, dirKeyframes, dirAnalysis} {
		entries, err := os.ReadDir(filepath.Join(s.root, dir))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("cache: list %s: %w", dir, err)
		}
		for _, entry := range entries {
			add(entry.Name())
		}
	}
	keys := make([]Key, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func (s *Store) summarize(key Key) EntrySummary {
	summary := EntrySummary{Key: key, Complete: s.HasComplete(key)}
	for _, category := range Categories {
		path := s.Path(key, category)
		size, mtime, err := pathSizeAndTime(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("cache: skip artifact; excluded from stats",
					logging.String("source_file", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "cache_entry_skipped"),
					logging.String(logging.FieldErrorHint, "inspect cache directory permissions or clear the entry"),
				)
			}
			continue
		}
		summary.Categories = append(summary.Categories, category)
		summary.SizeBytes += size
		if mtime.After(summary.ModifiedAt) {
			summary.ModifiedAt = mtime
		}
		if category == CategoryKeyframes {
			summary.Frames = countFrames(path)
		}
	}
	return summary
}

func pathSizeAndTime(path string) (int64, time.Time, error) {
	var (
		size   int64
		latest time.Time
	)
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return size, latest, nil
}

func countFrames(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".jpg") {
			n++
		}
	}
	return n
}

func isHex(value string) bool {
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
