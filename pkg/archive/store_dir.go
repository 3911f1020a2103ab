package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DirStore archives each audit as a JSON file in a directory
type DirStore struct {
	dir string
	mu  sync.RWMutex
}

// NewDirStore creates dir if needed
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("archive directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir}, nil
}

type fileRecord struct {
	Record
	PoleKey string `json:"pole_key"`
}

func (s *DirStore) path(runID string) string {
	return filepath.Join(s.dir, filepath.Base(runID)+".json")
}

// Save implements Store.
func (s *DirStore) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.RunID == "" {
		return errors.New("audit record has no run id")
	}
	data, err := json.MarshalIndent(fileRecord{Record: *rec, PoleKey: poleKey(rec.PoleA, rec.PoleB)}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path(rec.RunID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(rec.RunID))
}

// Get implements Store.
func (s *DirStore) Get(ctx context.Context, runID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fr, err := s.read(s.path(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &fr.Record, nil
}

// ListByPoles implements Store, newest first.
func (s *DirStore) ListByPoles(ctx context.Context, a, b string, limit int) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	key := poleKey(a, b)
	var out []*Record
	for _, f := range files {
		fr, err := s.read(f)
		if err != nil {
			return nil, err
		}
		if fr.PoleKey == key {
			out = append(out, &fr.Record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *DirStore) read(path string) (*fileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("corrupt archive file %s: %w", filepath.Base(path), err)
	}
	return &fr, nil
}

// Close implements Store.
func (s *DirStore) Close() error { return nil }
