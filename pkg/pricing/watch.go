package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the active Catalog and can swap it while requests are being
// priced. The zero value is not usable; use NewStore.
type Store struct {
	current atomic.Pointer[Catalog]
	path    string
	logger  *slog.Logger
}

// NewStore loads the catalog at path (defaults when empty).
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	c, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, logger: logger}
	s.current.Store(c)
	return s, nil
}

// Lookup resolves a price against the active catalog.
func (s *Store) Lookup(provider, model string) (Price, bool) {
	return s.current.Load().Lookup(provider, model)
}

// Reload re-reads the overrides file. On failure the active catalog is kept.
func (s *Store) Reload() error {
	c, err := LoadCatalog(s.path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	return nil
}

// Watch reloads the catalog whenever the overrides file is written or
// replaced, until ctx is cancelled. It returns immediately when the store
// has no overrides file.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating pricing watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files rather than writing in place, so watch
	// the directory and filter by name.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watching pricing dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("pricing reload failed, keeping previous table", "path", s.path, "error", err)
				continue
			}
			s.logger.Info("pricing table reloaded", "path", s.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("pricing watcher error: %w", err)
		}
	}
}
