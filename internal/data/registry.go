package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// RegistryRepo stores the auto-response chat ids as a JSON array.
// The parsed set is cached until the file changes on disk.
type RegistryRepo struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu    sync.Mutex
	cache domain.AutoResponseSet
}

// NewRegistryRepo creates the registry and starts watching its directory.
// Watching is best effort; without it every Load reads the file.
func NewRegistryRepo(path string, logger *zap.Logger) (*RegistryRepo, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	r := &RegistryRepo{
		path:   path,
		logger: logger.Named("registry"),
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("Registry watcher unavailable", zap.Error(err))
		close(r.done)
		return r, nil
	}
	if err := watcher.Add(dir); err != nil {
		r.logger.Warn("Registry watcher unavailable", zap.Error(err))
		watcher.Close()
		close(r.done)
		return r, nil
	}
	r.watcher = watcher
	go r.watch()
	return r, nil
}

func (r *RegistryRepo) watch() {
	defer close(r.done)
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == filepath.Clean(r.path) {
				r.invalidate()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("Registry watcher error", zap.Error(err))
		}
	}
}

func (r *RegistryRepo) invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
}

// Load returns a copy of the set; a missing file is an empty set
func (r *RegistryRepo) Load(ctx context.Context) (domain.AutoResponseSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache == nil || r.watcher == nil {
		set, err := r.read()
		if err != nil {
			return nil, err
		}
		r.cache = set
	}
	return domain.NewAutoResponseSet(r.cache.IDs()), nil
}

func (r *RegistryRepo) read() (domain.AutoResponseSet, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewAutoResponseSet(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if len(data) == 0 {
		return domain.NewAutoResponseSet(nil), nil
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", r.path, err)
	}
	return domain.NewAutoResponseSet(ids), nil
}

// Save writes the set atomically
func (r *RegistryRepo) Save(ctx context.Context, set domain.AutoResponseSet) error {
	data, err := json.Marshal(set.IDs())
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	r.cache = domain.NewAutoResponseSet(set.IDs())
	return nil
}

// Close stops the file watcher
func (r *RegistryRepo) Close() error {
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	<-r.done
	return err
}
