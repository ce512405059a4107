package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/elonfeng/scorecard/pkg/enrich"
)

const fileExt = ".json"

type fileDoc struct {
	enrich.Record
	FetchedAt time.Time `json:"fetched_at"`
}

// FileStore keeps one JSON document per cache key under a directory. Writes
// go to a temp file that is renamed into place, so readers never see a
// partial entry.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "./cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

func (s *FileStore) Get(_ context.Context, key string) (enrich.Record, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return enrich.Record{}, false, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return enrich.Record{}, false, nil
	}
	if err != nil {
		return enrich.Record{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return enrich.Record{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return doc.Record, true, nil
}

func (s *FileStore) Put(_ context.Context, key string, rec enrich.Record) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(fileDoc{Record: rec, FetchedAt: s.now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("commit cache entry %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir %s: %w", s.dir, err)
	}

	var entries []Entry
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read cache entry %s: %w", key, err)
		}
		var doc fileDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		entries = append(entries, Entry{Key: key, Record: doc.Record, FetchedAt: doc.FetchedAt})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}
