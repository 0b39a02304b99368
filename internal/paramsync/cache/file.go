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
	"sync"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps one <sys>_<comp>_<autopilot>.v2 file per vehicle in a directory.
// Writes go to a temp file in the same directory and are renamed into place.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[VehicleKey]*sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, locks: make(map[VehicleKey]*sync.Mutex)}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the cache file path for key.
func (s *FileStore) Path(key VehicleKey) string {
	return filepath.Join(s.dir, key.FileName())
}

func (s *FileStore) lock(key VehicleKey) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *FileStore) Load(_ context.Context, key VehicleKey) (*Entry, error) {
	unlock := s.lock(key)
	defer unlock()

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache for %s: %w", key, err)
	}
	return Decode(key, data)
}

func (s *FileStore) Save(_ context.Context, key VehicleKey, entry *Entry) error {
	e := *entry
	e.Key = key
	data, err := Encode(&e)
	if err != nil {
		return fmt.Errorf("failed to encode cache for %s: %w", key, err)
	}

	unlock := s.lock(key)
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, key.String()+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache for %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync cache for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("failed to replace cache for %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key VehicleKey) error {
	unlock := s.lock(key)
	defer unlock()

	if err := os.Remove(s.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete cache for %s: %w", key, err)
	}
	return nil
}

// List returns every decodable entry. Unreadable files are reported in the
// aggregate error alongside the entries that could be read.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache dir %s: %w", s.dir, err)
	}

	var (
		out  []Entry
		errs []error
	)
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), FileExtension) {
			continue
		}
		key, err := ParseVehicleKey(d.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e, err := s.Load(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, utilerrors.NewAggregate(errs)
}
