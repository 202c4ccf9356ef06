package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"shotscribe/internal/fileutil"
	"shotscribe/internal/logging"
)

// Key identifies every artifact derived from one source URL.
type Key string

// KeyFor derives the cache key of a source URL. Surrounding whitespace is
// dropped and the URL is NFC-normalized before hashing so visually identical
// URLs share artifacts.
func KeyFor(url string) Key {
	normalized := norm.NFC.String(strings.TrimSpace(url))
	sum := md5.Sum([]byte(normalized))
	return Key(hex.EncodeToString(sum[:]))
}

func (k Key) String() string { return string(k) }

// Category names one kind of cached artifact.
type Category string

const (
	CategoryVideo      Category = "video"
	CategoryAudio      Category = "audio"
	CategoryMetadata   Category = "metadata"
	CategoryKeyframes  Category = "keyframes"
	CategoryVisual     Category = "visual"
	CategoryTranscript Category = "transcript"
)

// Categories lists every category in pipeline order.
var Categories = []Category{
	CategoryVideo,
	CategoryAudio,
	CategoryMetadata,
	CategoryKeyframes,
	CategoryVisual,
	CategoryTranscript,
}

const (
	dirVideos    = "videos"
	dirAudio     = "audio"
	dirKeyframes = "keyframes"
	dirAnalysis  = "analysis"
	dirLocks     = "locks"
)

var layoutDirs = []string{dirVideos, dirAudio, dirKeyframes, dirAnalysis, dirLocks}

// Store is the on-disk content cache rooted at a single directory.
type Store struct {
	root   string
	logger *slog.Logger
	statfs statfsFunc
}

// New opens the cache at root, creating the category directories when they
// are missing.
func New(root string, logger *slog.Logger) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("cache: empty root directory")
	}
	s := &Store{root: root, statfs: realStatfs, logger: logging.NewComponentLogger(logger, "cache")}
	if err := s.ensureLayout(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) ensureLayout() error {
	for _, dir := range layoutDirs {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("cache: create %s directory: %w", dir, err)
		}
	}
	return nil
}

// Path resolves where an artifact of the given category lives. It performs
// no I/O.
func (s *Store) Path(key Key, category Category) string {
	k := string(key)
	switch category {
	case CategoryVideo:
		return filepath.Join(s.root, dirVideos, k+".mp4")
	case CategoryAudio:
		return filepath.Join(s.root, dirAudio, k+".mp3")
	case CategoryMetadata:
		return filepath.Join(s.root, dirAnalysis, k+"-metadata.json")
	case CategoryKeyframes:
		return filepath.Join(s.root, dirKeyframes, k)
	case CategoryVisual:
		return filepath.Join(s.root, dirAnalysis, k+"-visual.json")
	case CategoryTranscript:
		return filepath.Join(s.root, dirAnalysis, k+"-asr.json")
	default:
		return filepath.Join(s.root, dirAnalysis, k+"-"+string(category))
	}
}

// Dir returns the directory that holds artifacts of the category.
func (s *Store) Dir(category Category) string {
	switch category {
	case CategoryVideo:
		return filepath.Join(s.root, dirVideos)
	case CategoryAudio:
		return filepath.Join(s.root, dirAudio)
	case CategoryKeyframes:
		return filepath.Join(s.root, dirKeyframes)
	default:
		return filepath.Join(s.root, dirAnalysis)
	}
}

// Exists reports whether an artifact is present. Media files must be
// non-empty and the keyframe directory must contain at least one entry.
func (s *Store) Exists(key Key, category Category) bool {
	path := s.Path(key, category)
	switch category {
	case CategoryKeyframes:
		return existsNonEmptyDir(path)
	case CategoryVideo, CategoryAudio:
		return fileutil.NonEmptyFile(path)
	default:
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular()
	}
}

// HasComplete reports whether the acquisition artifacts for key (video,
// audio and metadata) are all present.
func (s *Store) HasComplete(key Key) bool {
	return s.Exists(key, CategoryVideo) &&
		s.Exists(key, CategoryAudio) &&
		s.Exists(key, CategoryMetadata)
}

// WriteJSON atomically stores v as the artifact for key and category.
func (s *Store) WriteJSON(key Key, category Category, v any) error {
	path := s.Path(key, category)
	if err := fileutil.WriteJSONAtomic(path, v); err != nil {
		return fmt.Errorf("cache: write %s: %w", category, err)
	}
	return nil
}

// ReadJSON decodes the artifact for key and category into v. A missing
// artifact yields an error matching fs.ErrNotExist.
func (s *Store) ReadJSON(key Key, category Category, v any) error {
	data, err := os.ReadFile(s.Path(key, category))
	if err != nil {
		return fmt.Errorf("cache: read %s: %w", category, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cache: decode %s: %w", category, err)
	}
	return nil
}

// Clear removes every artifact stored for key.
func (s *Store) Clear(key Key) error {
	if strings.TrimSpace(string(key)) == "" {
		return errors.New("cache: empty key")
	}
	var errs []error
	for _, category := range Categories {
		if err := os.RemoveAll(s.Path(key, category)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("cache: remove %s: %w", category, err))
		}
	}
	// yt-dlp may leave partial downloads named after the key.
	for _, dir := range []string{s.Dir(CategoryVideo), s.Dir(CategoryAudio)} {
		matches, _ := filepath.Glob(filepath.Join(dir, string(key)+"*"))
		for _, match := range matches {
			if err := os.Remove(match); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("cache: remove %s: %w", filepath.Base(match), err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("cleared cache entry", logging.String(logging.FieldCacheKey, string(key)))
	return nil
}

// ClearAll removes the whole cache tree and recreates the empty layout.
func (s *Store) ClearAll() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("cache: remove root: %w", err)
	}
	if err := s.ensureLayout(); err != nil {
		return err
	}
	s.logger.Info("cleared cache", logging.String("cache_dir", s.root))
	return nil
}

func existsNonEmptyDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
