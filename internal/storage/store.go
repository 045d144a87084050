package storage

import (
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
)

// Store ties together everything kept for one table file: the file
// itself, its backups, its undo journal and the SQL query cache.
type Store struct {
	path    string
	schema  *model.Schema
	journal *Journal
	sqlite  *SQLCache
}

// NewStore creates a store for the table at path. Nothing is read yet.
func NewStore(path string, s *model.Schema) *Store {
	return &Store{path: path, schema: s, journal: NewJournal(path)}
}

// Close releases the query cache, if one was opened.
func (s *Store) Close() error {
	if s.sqlite == nil {
		return nil
	}
	err := s.sqlite.Close()
	s.sqlite = nil
	return err
}

// Path returns the table file path.
func (s *Store) Path() string {
	return s.path
}

// Schema returns the table schema.
func (s *Store) Schema() *model.Schema {
	return s.schema
}

// Journal returns the undo journal for the table.
func (s *Store) Journal() *Journal {
	return s.journal
}

// Load reads and parses the table file. It also returns the content
// hash of the bytes read, for detecting later outside changes.
func (s *Store) Load(opts ...document.Option) (*document.Document, string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, "", &model.IOError{Op: "read", Path: s.path, Err: err}
	}
	d, err := ParseTSV(s.schema, s.path, data, opts...)
	if err != nil {
		return nil, "", err
	}
	return d, model.CalculateHash(data), nil
}

// Save writes d to the table file.
func (s *Store) Save(d *document.Document, opts SaveOptions) (SaveResult, error) {
	return SaveDocument(s.path, d, opts)
}

// Hash returns the content hash of the table file as it is on disk now.
func (s *Store) Hash() (string, error) {
	return FileHash(s.path)
}

// Backups lists the table's backups, newest first.
func (s *Store) Backups() ([]Backup, error) {
	return ListBackups(s.path)
}

// RestoreBackup replaces the table with a backup and drops the journal,
// which no longer describes the file. The replaced content is backed up.
func (s *Store) RestoreBackup(backup string, now time.Time) (string, error) {
	saved, err := RestoreBackup(s.path, backup, now)
	if err != nil {
		return "", err
	}
	if err := s.journal.Remove(); err != nil {
		return saved, err
	}
	return saved, nil
}

// RebuildCache loads records into the SQL cache, opening it on first use.
func (s *Store) RebuildCache(records iter.Seq[*model.Record]) error {
	if s.sqlite == nil {
		c, err := NewSQLCache(s.schema)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite cache: %w", err)
		}
		s.sqlite = c
	}
	return s.sqlite.Load(records)
}

// RawQuery runs a read-only SQL query against the cache.
func (s *Store) RawQuery(query string) ([]map[string]interface{}, []string, error) {
	if s.sqlite == nil {
		return nil, nil, fmt.Errorf("query cache is not loaded")
	}
	return s.sqlite.RawQuery(query)
}

// SelectVNUMs runs a read-only SQL query whose first column holds VNUMs.
func (s *Store) SelectVNUMs(query string) ([]int64, error) {
	if s.sqlite == nil {
		return nil, fmt.Errorf("query cache is not loaded")
	}
	return s.sqlite.SelectVNUMs(query)
}
