package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/natefinch/atomic"
)

// Journal operations.
const (
	JournalDo    = "do"
	JournalUndo  = "undo"
	JournalRedo  = "redo"
	JournalReset = "reset" // history cleared, e.g. after an import
)

// JournalSuffix is appended to the table path to name its journal.
const JournalSuffix = ".history.jsonl"

// maxJournalLine bounds one journal line; a bulk edit of every row fits.
const maxJournalLine = 64 << 20

// JournalEdit is one cell change, stored as raw cell text. VNUM is the
// row's key before the change.
type JournalEdit struct {
	VNUM   int64  `json:"vnum"`
	Column string `json:"column"`
	Old    string `json:"old"`
	New    string `json:"new"`
}

// JournalEntry is one line of the journal.
type JournalEntry struct {
	Op    string        `json:"op"`
	Time  time.Time     `json:"time"`
	Actor string        `json:"actor,omitempty"`
	Desc  string        `json:"desc,omitempty"`
	Edits []JournalEdit `json:"edits,omitempty"`
	// HashAfter is the content hash of the table file after this step
	// was saved.
	HashAfter string `json:"hash_after"`
}

// Journal is the append-only undo log kept next to a table file.
type Journal struct {
	path string
}

// NewJournal returns the journal for the table at tablePath.
func NewJournal(tablePath string) *Journal {
	return &Journal{path: tablePath + JournalSuffix}
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append adds entries to the end of the journal atomically.
// The file is created if it doesn't exist.
func (j *Journal) Append(entries ...JournalEntry) error {
	existing, err := os.ReadFile(j.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(existing)
	if err := encodeEntries(&buf, entries); err != nil {
		return err
	}
	if err := atomic.WriteFile(j.path, &buf); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// ReadAll reads every entry. Returns an empty slice if the journal
// doesn't exist. A last line that does not parse, as left by an
// interrupted write, is skipped; a bad line anywhere else is an error.
func (j *Journal) ReadAll() ([]JournalEntry, error) {
	file, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []JournalEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	var entries []JournalEntry
	var torn error
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJournalLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if torn != nil {
			return nil, torn
		}
		var e JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			torn = fmt.Errorf("failed to parse journal at line %d: %w", lineNum, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}
	return entries, nil
}

// WriteAll replaces the journal with entries. Used for compaction.
func (j *Journal) WriteAll(entries []JournalEntry) error {
	var buf bytes.Buffer
	if err := encodeEntries(&buf, entries); err != nil {
		return err
	}
	if err := atomic.WriteFile(j.path, &buf); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// Remove deletes the journal file.
func (j *Journal) Remove() error {
	err := os.Remove(j.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	return nil
}

// Exists returns true if the journal file exists.
func (j *Journal) Exists() bool {
	_, err := os.Stat(j.path)
	return err == nil
}

func encodeEntries(buf *bytes.Buffer, entries []JournalEntry) error {
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal journal entry: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return nil
}
