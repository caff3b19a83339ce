// Package gcs provides a response cache backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

const contentType = "text/html; charset=utf-8"

// Config captures the parameters required to reach the cache bucket.
type Config struct {
	Bucket string
	Prefix string
}

// Cache stores one object per URL, named {prefix}/{cache key}.
type Cache struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates a GCS-backed cache.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// ObjectName returns the object a URL is cached under.
func (c *Cache) ObjectName(rawURL string) string {
	key := scraper.CacheKey(rawURL)
	if c.prefix == "" {
		return key
	}
	return path.Join(c.prefix, key)
}

// Get reads the cached body. Missing objects and read failures are misses.
func (c *Cache) Get(ctx context.Context, rawURL string) (string, bool) {
	name := c.ObjectName(rawURL)
	reader, err := c.client.Bucket(c.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			c.logger.Warn("gcs cache read failed; treating as miss", zap.String("object", name), zap.Error(err))
		}
		return "", false
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		c.logger.Warn("gcs cache read failed; treating as miss", zap.String("object", name), zap.Error(err))
		return "", false
	}
	return string(data), true
}

// Put uploads body, replacing any previous object.
func (c *Cache) Put(ctx context.Context, rawURL, body string) error {
	name := c.ObjectName(rawURL)
	writer := c.client.Bucket(c.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, strings.NewReader(body)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("copy object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", name, err)
	}
	return nil
}
