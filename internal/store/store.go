package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

var (
	// ErrNotFound is returned when nothing is stored for a date.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt is returned when a stored document cannot be decoded.
	ErrCorrupt = errors.New("corrupt document")
)

// Store is the persistence interface for daily corpora and the documents
// rendered from them. Implementations do not lock across processes.
type Store interface {
	Load(ctx context.Context, date string) (*corpus.Corpus, error)
	Save(ctx context.Context, c *corpus.Corpus) error
	// Dates lists stored dates, newest first.
	Dates(ctx context.Context) ([]string, error)

	SaveArtifact(ctx context.Context, date, name string, data []byte) error
	LoadArtifact(ctx context.Context, date, name string) ([]byte, error)

	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the store selected by driver.
func Open(driver, dataDir, sqlitePath string) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(dataDir)
	case DriverSQLite:
		if sqlitePath == "" {
			sqlitePath = filepath.Join(dataDir, "dailygarden.db")
		}
		return New(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func validDate(date string) error {
	if _, err := time.Parse(corpus.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return nil
}

func validArtifact(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

func decode(date string, data []byte) (*corpus.Corpus, error) {
	c, err := corpus.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w: %w", date, ErrCorrupt, err)
	}
	return c, nil
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, date string) (*corpus.Corpus, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}

	var doc string
	err := s.db.GetContext(ctx, &doc, "SELECT document FROM corpora WHERE date = ?", date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load corpus %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", date, err)
	}
	return decode(date, []byte(doc))
}

func (s *SQLiteStore) Save(ctx context.Context, c *corpus.Corpus) error {
	if err := validDate(c.Date); err != nil {
		return err
	}
	doc, err := corpus.Encode(c)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corpora (date, document, runs, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			document = excluded.document,
			runs = excluded.runs,
			last_updated = excluded.last_updated
	`, c.Date, string(doc), len(c.Runs), c.LastUpdated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save corpus %s: %w", c.Date, err)
	}
	return nil
}

func (s *SQLiteStore) Dates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := s.db.SelectContext(ctx, &dates, "SELECT date FROM corpora ORDER BY date DESC"); err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	return dates, nil
}

func (s *SQLiteStore) SaveArtifact(ctx context.Context, date, name string, data []byte) error {
	if err := validDate(date); err != nil {
		return err
	}
	if err := validArtifact(name); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (date, name, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`, date, name, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save artifact %s/%s: %w", date, name, err)
	}
	return nil
}

func (s *SQLiteStore) LoadArtifact(ctx context.Context, date, name string) ([]byte, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if err := validArtifact(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT content FROM artifacts WHERE date = ? AND name = ?", date, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load artifact %s/%s: %w", date, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s/%s: %w", date, name, err)
	}
	return data, nil
}
