package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// fileStore reads role overrides from a YAML document:
//
//	roles:
//	  app_ro:
//	    min_length: 8
//	    require_special: false
//	  batch_user:
//	    log_only: true
//
// The file is re-read when its mtime changes, so operators can edit it
// without restarting the service.
type fileStore struct {
	path string

	mu      sync.RWMutex
	modTime time.Time
	roles   map[string]Overrides
}

type fileDoc struct {
	Roles map[string]Overrides `yaml:"roles"`
}

// NewFile creates a file-backed Store. The file must exist and parse at
// startup; later read errors keep serving the last good snapshot.
func NewFile(path string) (Store, error) {
	fs := &fileStore{path: path}
	if err := fs.reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *fileStore) reload() error {
	st, err := os.Stat(f.path)
	if err != nil {
		return err
	}

	f.mu.RLock()
	fresh := !f.modTime.IsZero() && st.ModTime().Equal(f.modTime)
	f.mu.RUnlock()
	if fresh {
		return nil
	}

	b, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	var doc fileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("store: parse %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.roles = doc.Roles
	f.modTime = st.ModTime()
	f.mu.Unlock()
	return nil
}

func (f *fileStore) RoleOverrides(_ context.Context, role string) (Overrides, bool, error) {
	// Best effort refresh; keep the previous snapshot on failure.
	_ = f.reload()

	f.mu.RLock()
	defer f.mu.RUnlock()
	o, ok := f.roles[role]
	return o, ok, nil
}

func (f *fileStore) Ping(context.Context) error {
	_, err := os.Stat(f.path)
	return err
}

func (f *fileStore) Close() error { return nil }
