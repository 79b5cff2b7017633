package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// CorpusFile is the name of the corpus document inside a date directory.
const CorpusFile = "raw.json"

// FileStore keeps one directory per date under a root:
// <root>/<date>/raw.json plus any rendered artifacts next to it.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("file store: empty data dir")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Load(_ context.Context, date string) (*corpus.Corpus, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, date, CorpusFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load corpus %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", date, err)
	}
	return decode(date, data)
}

func (s *FileStore) Save(_ context.Context, c *corpus.Corpus) error {
	if err := validDate(c.Date); err != nil {
		return err
	}
	data, err := corpus.Encode(c)
	if err != nil {
		return err
	}
	if err := s.write(c.Date, CorpusFile, data); err != nil {
		return fmt.Errorf("save corpus %s: %w", c.Date, err)
	}
	return nil
}

func (s *FileStore) Dates(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(corpus.DateLayout, e.Name()); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), CorpusFile)); err != nil {
			continue
		}
		dates = append(dates, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *FileStore) SaveArtifact(_ context.Context, date, name string, data []byte) error {
	if err := validDate(date); err != nil {
		return err
	}
	if err := validArtifact(name); err != nil {
		return err
	}
	if err := s.write(date, name, data); err != nil {
		return fmt.Errorf("save artifact %s/%s: %w", date, name, err)
	}
	return nil
}

func (s *FileStore) LoadArtifact(_ context.Context, date, name string) ([]byte, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if err := validArtifact(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, date, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load artifact %s/%s: %w", date, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s/%s: %w", date, name, err)
	}
	return data, nil
}

// write replaces <root>/<date>/<name> through a temp file and rename, so a
// reader never sees a partial document.
func (s *FileStore) write(date, name string, data []byte) error {
	dir := filepath.Join(s.root, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}
