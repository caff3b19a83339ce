package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileCache stores one file per URL under a directory. Files are written
// through a temporary file and renamed so concurrent writers never expose a
// partial body.
type FileCache struct {
	dir    string
	logger *zap.Logger
}

// NewFileCache returns a cache rooted at dir. Failing to create the directory
// is logged and the cache keeps running; every write will then fail and the
// fetcher treats that as non-fatal.
func NewFileCache(dir string, logger *zap.Logger) *FileCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger.Warn("cache directory unavailable; running without persistence",
			zap.String("dir", dir),
			zap.Error(err),
		)
	}
	return &FileCache{dir: dir, logger: logger}
}

// Dir returns the cache root.
func (c *FileCache) Dir() string {
	return c.dir
}

// Get returns the cached body for rawURL. Unreadable entries are misses; an
// empty file is a cached empty body.
func (c *FileCache) Get(_ context.Context, rawURL string) (string, bool) {
	path := c.path(rawURL)
	data, err := os.ReadFile(path) // #nosec G304 -- file name derived from CacheKey
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cache read failed; treating as miss", zap.String("path", path), zap.Error(err))
		}
		return "", false
	}
	return string(data), true
}

// Put writes body for rawURL, replacing any previous entry.
func (c *FileCache) Put(ctx context.Context, rawURL, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	target := c.path(rawURL)
	tmp, err := os.CreateTemp(c.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file in %s: %w", c.dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cache file %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename cache file to %s: %w", target, err)
	}
	return nil
}

func (c *FileCache) path(rawURL string) string {
	return filepath.Join(c.dir, CacheKey(rawURL))
}

type noopCache struct{}

// NoCache returns a cache that never hits and discards writes.
func NoCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) (string, bool) { return "", false }

func (noopCache) Put(context.Context, string, string) error { return nil }
