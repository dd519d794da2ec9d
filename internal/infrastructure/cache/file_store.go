package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"image-pipeline/internal/domain"
	"image-pipeline/utils/fileutil"
)

const manifestExt = ".json"

// FileManifestStore keeps one JSON manifest per cache key under a directory.
// Implements domain.ManifestStore.
type FileManifestStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	remove func(name string) error
}

// NewFileManifestStore creates a store rooted at dir, creating it if needed.
func NewFileManifestStore(dir string, logger *slog.Logger) (*FileManifestStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileManifestStore{dir: dir, logger: logger, now: time.Now, remove: os.Remove}, nil
}

func (s *FileManifestStore) path(key string) string {
	return filepath.Join(s.dir, key+manifestExt)
}

// Get reads the manifest for key. Missing and unparseable files are misses.
func (s *FileManifestStore) Get(ctx context.Context, key string) (*domain.ProcessingResult, error) {
	if !validKey(key) {
		return nil, domain.ErrCacheMiss
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var result domain.ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.WarnContext(ctx, "ignoring unparseable manifest",
			"cache_key", key,
			"error", err)
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

// Save writes the manifest for key atomically.
func (s *FileManifestStore) Save(_ context.Context, key string, result *domain.ProcessingResult) error {
	if !validKey(key) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	if result == nil {
		return errors.New("nil manifest")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Sweep removes manifests whose modification time is older than maxAge.
// Other files in the directory, such as in-flight temp files, are left alone.
func (s *FileManifestStore) Sweep(ctx context.Context, maxAge time.Duration) (domain.SweepReport, error) {
	start := s.now()
	cutoff := start.Add(-maxAge)
	var report domain.SweepReport

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return report, fmt.Errorf("read cache dir: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			report.Elapsed = s.now().Sub(start)
			return report, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != manifestExt {
			continue
		}
		report.Scanned++

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			report.Failed++
			s.logger.WarnContext(ctx, "failed to stat cache entry", "file", entry.Name(), "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := s.remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			report.Failed++
			s.logger.WarnContext(ctx, "failed to delete cache entry", "file", entry.Name(), "error", err)
			continue
		}
		report.Deleted++
	}

	report.Elapsed = s.now().Sub(start)
	return report, nil
}

// validKey guards against keys that would escape the cache directory.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\.`)
}
