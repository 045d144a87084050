// Package session owns an open mob table: the document being edited,
// the file it came from and everything needed to save it safely.
package session

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/storage"
)

var (
	// ErrIOBusy is returned when a file operation is already running.
	ErrIOBusy = errors.New("another file operation is in progress")
	// ErrNoDocument is returned when no file has been opened.
	ErrNoDocument = errors.New("no file is open")
	// ErrExternalChange is returned by Save when the file changed on disk
	// since it was opened or last saved.
	ErrExternalChange = errors.New("file was changed by another program")
)

// LogFunc is called to log messages.
type LogFunc func(format string, args ...interface{})

// Options configures a Session.
type Options struct {
	HistoryLimit int  // undo capacity; 0 means document.DefaultHistoryLimit
	Backup       bool // back up the previous file on every save
	Journal      bool // keep <file>.history.jsonl so undo survives restarts
	SortOnSave   bool // write rows in VNUM order
	Actor        string
	Log          LogFunc
	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{HistoryLimit: document.DefaultHistoryLimit, Backup: true, Journal: true}
}

// Session is the single owner of an open table. All methods are safe
// for concurrent use; at most one file operation runs at a time and a
// second one fails fast with ErrIOBusy.
type Session struct {
	schema *model.Schema
	opts   Options

	io sync.Mutex // held for the duration of a file operation

	mu      sync.Mutex // guards everything below
	store   *storage.Store
	doc     *document.Document
	hash    string // content hash of the file at open or last save
	pending []storage.JournalEntry
	journal int // entries in the journal file
	names   storage.Names
	cached  bool // SQL cache reflects doc

	watcher  *Watcher
	onChange ChangeFunc // set by Watch
}

// New creates a session with nothing open.
func New(schema *model.Schema, opts Options) *Session {
	if opts.Log == nil {
		opts.Log = func(format string, args ...interface{}) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{schema: schema, opts: opts}
}

func (s *Session) beginIO() error {
	if !s.io.TryLock() {
		return ErrIOBusy
	}
	return nil
}

// Open loads the table at path, replacing whatever was open. On failure
// the previous state is kept.
func (s *Session) Open(path string) error {
	if err := s.beginIO(); err != nil {
		return err
	}
	defer s.io.Unlock()

	store := storage.NewStore(path, s.schema)
	d, hash, err := store.Load(document.WithHistoryLimit(s.opts.HistoryLimit))
	if err != nil {
		return err
	}
	journalLen := 0
	if s.opts.Journal {
		journalLen = s.restoreJournal(store, d, hash)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	oldPath := ""
	if s.store != nil {
		oldPath = s.store.Path()
		s.store.Close()
	}
	s.store = store
	s.doc = d
	s.hash = hash
	s.pending = nil
	s.journal = journalLen
	s.cached = false
	s.follow(oldPath)
	s.opts.Log("opened %s: %d rows (%s)", path, d.Len(), d.Format().Encoding)
	return nil
}

// Close releases the watcher and the query cache.
func (s *Session) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.onChange = nil
	store := s.store
	s.mu.Unlock()

	if w != nil {
		w.Close()
	}
	if store != nil {
		return store.Close()
	}
	return nil
}

// Path returns the open file, or "".
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ""
	}
	return s.store.Path()
}

// Schema returns the table schema.
func (s *Session) Schema() *model.Schema {
	return s.schema
}

// Read runs fn with the open document. fn must not keep the document
// or call back into the session.
func (s *Session) Read(fn func(d *document.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	return fn(s.doc)
}

// Query returns copies of the records matching pred, in document order.
func (s *Session) Query(pred document.Predicate) ([]*model.Record, error) {
	var out []*model.Record
	err := s.Read(func(d *document.Document) error {
		out = collect(d.Filter(pred))
		return nil
	})
	return out, err
}

func collect(seq iter.Seq[*model.Record]) []*model.Record {
	var out []*model.Record
	for r := range seq {
		out = append(out, r)
	}
	return out
}

// Get returns a copy of one record.
func (s *Session) Get(vnum int64) (*model.Record, error) {
	var r *model.Record
	err := s.Read(func(d *document.Document) (err error) {
		r, err = d.Get(vnum)
		return err
	})
	return r, err
}

// mutate runs fn with the lock held and records the command it pushed.
func (s *Session) mutate(fn func(d *document.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	before := s.doc.History().Position() + s.doc.History().Dropped()
	if err := fn(s.doc); err != nil {
		return err
	}
	after := s.doc.History().Position() + s.doc.History().Dropped()
	if after != before {
		if cmd, ok := s.doc.History().LastCommand(); ok {
			s.record(storage.JournalDo, cmd)
		}
	}
	s.cached = false
	return nil
}

// Edit sets one cell.
func (s *Session) Edit(vnum int64, column, value string) error {
	return s.mutate(func(d *document.Document) error {
		return d.SetCell(vnum, column, value)
	})
}

// MassEdit applies op to column in every selected row and returns the
// number of rows changed.
func (s *Session) MassEdit(sel document.Selection, column string, op document.Operation) (int, error) {
	var n int
	err := s.mutate(func(d *document.Document) (err error) {
		n, err = d.BulkEdit(sel, column, op)
		return err
	})
	return n, err
}

// MassEditColumns applies every edit to each selected row as one undo
// step and returns the number of cells changed.
func (s *Session) MassEditColumns(sel document.Selection, edits []document.ColumnEdit) (int, error) {
	var n int
	err := s.mutate(func(d *document.Document) (err error) {
		n, err = d.BulkEditColumns(sel, edits)
		return err
	})
	return n, err
}

// Undo reverts the last command and returns its description.
func (s *Session) Undo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNoDocument
	}
	cmd, ok := s.doc.History().LastCommand()
	if err := s.doc.Undo(); err != nil {
		return "", err
	}
	if ok {
		s.record(storage.JournalUndo, cmd)
	}
	s.cached = false
	return cmd.Description(), nil
}

// Redo re-applies the last undone command and returns its description.
func (s *Session) Redo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNoDocument
	}
	if err := s.doc.Redo(); err != nil {
		return "", err
	}
	cmd, _ := s.doc.History().LastCommand()
	s.record(storage.JournalRedo, cmd)
	s.cached = false
	return cmd.Description(), nil
}

// History lists the command log, oldest first.
func (s *Session) History() ([]document.Entry, error) {
	var out []document.Entry
	err := s.Read(func(d *document.Document) error {
		out = d.History().Entries()
		return nil
	})
	return out, err
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil && s.doc.Dirty()
}

// SaveOptions controls Save.
type SaveOptions struct {
	// Force overwrites the file even if it changed on disk.
	Force bool
}

// Save writes the document to path, or back to the open file when path
// is empty. Saving over the open file fails with ErrExternalChange if
// another program modified it, unless opts.Force is set.
func (s *Session) Save(path string, opts SaveOptions) (storage.SaveResult, error) {
	if err := s.beginIO(); err != nil {
		return storage.SaveResult{}, err
	}
	defer s.io.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return storage.SaveResult{}, ErrNoDocument
	}

	store := s.store
	sameFile := path == "" || samePath(path, store.Path())
	if !sameFile {
		store = storage.NewStore(path, s.schema)
	} else if !opts.Force {
		if onDisk, err := store.Hash(); err == nil && onDisk != s.hash {
			return storage.SaveResult{}, fmt.Errorf("%w: %s", ErrExternalChange, store.Path())
		}
	}

	res, err := store.Save(s.doc, storage.SaveOptions{
		Backup:     s.opts.Backup,
		SortByVNUM: s.opts.SortOnSave,
		Now:        s.opts.Now(),
	})
	if err != nil {
		return storage.SaveResult{}, err
	}

	if !sameFile {
		oldPath := s.store.Path()
		s.store.Close()
		s.store = store
		s.cached = false
		s.follow(oldPath)
	}
	s.hash = res.Hash
	s.doc.MarkSaved()
	if s.opts.Journal {
		s.syncJournal(store, !sameFile)
	}
	s.opts.Log("saved %s (%d bytes)", res.Path, res.Bytes)
	if res.Backup != "" {
		s.opts.Log("backup: %s", res.Backup)
	}
	return res, nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}

// ExportCSV writes the document to path as CSV.
func (s *Session) ExportCSV(path string) (string, error) {
	if err := s.beginIO(); err != nil {
		return "", err
	}
	defer s.io.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNoDocument
	}
	backup, err := storage.ExportCSVFile(s.doc, path, s.opts.Backup)
	if err != nil {
		return "", err
	}
	s.opts.Log("exported %d rows to %s", s.doc.Len(), path)
	return backup, nil
}

// ImportCSV replaces every row with the rows of a CSV file as a single
// undoable step, and returns the number of rows read.
func (s *Session) ImportCSV(path string) (int, error) {
	if err := s.beginIO(); err != nil {
		return 0, err
	}
	defer s.io.Unlock()

	records, err := storage.ImportCSVFile(s.schema, path)
	if err != nil {
		return 0, err
	}
	err = s.mutate(func(d *document.Document) error {
		return d.Replace(records, "import "+filepath.Base(path))
	})
	if err != nil {
		return 0, err
	}
	s.opts.Log("imported %d rows from %s", len(records), path)
	return len(records), nil
}

// SQL runs a read-only SQL query over the current rows.
func (s *Session) SQL(query string) ([]map[string]interface{}, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshCache(); err != nil {
		return nil, nil, err
	}
	return s.store.RawQuery(query)
}

// SelectSQL runs a read-only SQL query and returns the VNUMs in its
// first column.
func (s *Session) SelectSQL(query string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshCache(); err != nil {
		return nil, err
	}
	return s.store.SelectVNUMs(query)
}

func (s *Session) refreshCache() error {
	if s.doc == nil {
		return ErrNoDocument
	}
	if s.cached {
		return nil
	}
	if err := s.store.RebuildCache(s.doc.Records()); err != nil {
		return err
	}
	s.cached = true
	return nil
}

// LoadNames loads a localized names table used by DisplayName.
func (s *Session) LoadNames(path string) (int, error) {
	names, skipped, err := storage.LoadNames(path)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		s.opts.Log("%s: skipped %d malformed lines", path, skipped)
	}
	s.mu.Lock()
	s.names = names
	s.mu.Unlock()
	return len(names), nil
}

// DisplayName returns the name to show for a record.
func (s *Session) DisplayName(r *model.Record) string {
	s.mu.Lock()
	names := s.names
	s.mu.Unlock()
	return names.DisplayName(r.VNUM(), r.Text("NAME"))
}

// Backups lists backups of the open file, newest first.
func (s *Session) Backups() ([]storage.Backup, error) {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	if store == nil {
		return nil, ErrNoDocument
	}
	return store.Backups()
}

// RestoreBackup replaces the open file with a backup and reloads it.
// The backup must parse. Unsaved changes are discarded and the file's
// current content is itself backed up.
func (s *Session) RestoreBackup(backup string) (string, error) {
	if err := s.beginIO(); err != nil {
		return "", err
	}
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	if store == nil {
		s.io.Unlock()
		return "", ErrNoDocument
	}
	if _, err := storage.ReadFile(s.schema, backup); err != nil {
		s.io.Unlock()
		return "", err
	}
	saved, err := store.RestoreBackup(backup, s.opts.Now())
	s.io.Unlock()
	if err != nil {
		return "", err
	}
	return saved, s.Open(store.Path())
}

// Info summarizes the open file.
type Info struct {
	Path        string
	Rows        int
	Dirty       bool
	Format      document.Format
	Hash        string
	HistoryLen  int
	HistoryPos  int
	HistoryCap  int
	Dropped     int
	NamesLoaded int
}

// Info returns a summary of the open file.
func (s *Session) Info() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return Info{}, ErrNoDocument
	}
	h := s.doc.History()
	return Info{
		Path:        s.store.Path(),
		Rows:        s.doc.Len(),
		Dirty:       s.doc.Dirty(),
		Format:      s.doc.Format(),
		Hash:        s.hash,
		HistoryLen:  h.Len(),
		HistoryPos:  h.Position(),
		HistoryCap:  h.Limit(),
		Dropped:     h.Dropped(),
		NamesLoaded: len(s.names),
	}, nil
}
