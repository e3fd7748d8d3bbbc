package rules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrSourceUnavailable wraps catalog read failures. Callers keep
// serving the last-known-good version when they see it.
var ErrSourceUnavailable = errors.New("rules: catalog source unavailable")

// Catalog serves versioned rule documents. Reloads are atomic: an
// evaluation pins the snapshot it started with and never observes a
// mid-flight swap.
type Catalog struct {
	path string

	mu      sync.RWMutex
	doc     *Document
	modTime time.Time
}

// NewCatalog loads the document at path. The initial load must
// succeed; later reload failures only log and keep the current doc.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Current returns the pinned snapshot to evaluate against.
func (c *Catalog) Current() *Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Version returns the active catalog version.
func (c *Catalog) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.doc == nil {
		return ""
	}
	return c.doc.Version
}

// Reload re-reads the source document and swaps it in atomically.
// On failure the previous document stays active.
func (c *Catalog) Reload() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.Version == "" {
		// Content-addressed fallback when the document declares none.
		sum := sha256.Sum256(raw)
		doc.Version = hex.EncodeToString(sum[:])[:12]
	}

	c.mu.Lock()
	c.doc = &doc
	c.modTime = info.ModTime()
	c.mu.Unlock()

	zap.L().Info("rule catalog loaded",
		zap.String("version", doc.Version),
		zap.Int("products", len(doc.Products)))
	return nil
}

// Watch polls the source for modification-time changes and reloads.
// Reload failures are logged and the last-known-good version keeps
// serving; evaluation is never failed wholesale by the source.
func (c *Catalog) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(c.path)
			if err != nil {
				zap.L().Warn("rule catalog stat failed", zap.Error(err))
				continue
			}
			c.mu.RLock()
			changed := info.ModTime().After(c.modTime)
			c.mu.RUnlock()
			if !changed {
				continue
			}
			if err := c.Reload(); err != nil {
				zap.L().Error("rule catalog reload failed, keeping current version",
					zap.String("version", c.Version()), zap.Error(err))
			}
		}
	}
}
