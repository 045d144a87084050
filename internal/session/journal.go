package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/storage"
)

// compactFactor times the history limit is how many journal entries are
// kept before the journal is rewritten from the in-memory log.
const compactFactor = 4

var errStaleJournal = errors.New("journal does not match the file")

// record queues a journal entry for cmd. Entries are written on save.
func (s *Session) record(op string, cmd document.Command) {
	if !s.opts.Journal {
		return
	}
	e := storage.JournalEntry{
		Op:    op,
		Time:  s.opts.Now().UTC(),
		Actor: s.opts.Actor,
		Desc:  cmd.Description(),
	}
	switch c := cmd.(type) {
	case *document.CellEdits:
		if op == storage.JournalDo {
			e.Edits = journalEdits(s.schema, c)
		}
	default:
		// Whole-table replacements are not journaled; the log restarts.
		e.Op = storage.JournalReset
	}
	s.pending = append(s.pending, e)
}

func journalEdits(schema *model.Schema, c *document.CellEdits) []storage.JournalEdit {
	edits := make([]storage.JournalEdit, len(c.Changes))
	for i, ch := range c.Changes {
		edits[i] = storage.JournalEdit{
			VNUM:   ch.VNUM,
			Column: schema.Columns[ch.Column].Name,
			Old:    ch.Old.String(),
			New:    ch.New.String(),
		}
	}
	return edits
}

func commandFromEntry(schema *model.Schema, e storage.JournalEntry) (*document.CellEdits, error) {
	cmd := &document.CellEdits{Desc: e.Desc, Changes: make([]document.CellChange, len(e.Edits))}
	for i, ed := range e.Edits {
		col := schema.Columns.Find(ed.Column)
		if col == nil {
			return nil, fmt.Errorf("unknown column %q", ed.Column)
		}
		oldV, err := model.ParseValue(col.Kind, ed.Old)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ed.Column, err)
		}
		newV, err := model.ParseValue(col.Kind, ed.New)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ed.Column, err)
		}
		cmd.Changes[i] = document.CellChange{VNUM: ed.VNUM, Column: col.Ordinal, Old: oldV, New: newV}
	}
	return cmd, nil
}

// replayJournal rebuilds the command log described by entries. The last
// entry must have been written when the file had hash.
func replayJournal(schema *model.Schema, entries []storage.JournalEntry, hash string) ([]document.Command, int, error) {
	if len(entries) == 0 {
		return nil, 0, nil
	}
	if entries[len(entries)-1].HashAfter != hash {
		return nil, 0, errStaleJournal
	}
	var cmds []document.Command
	pos := 0
	for i, e := range entries {
		switch e.Op {
		case storage.JournalDo:
			cmd, err := commandFromEntry(schema, e)
			if err != nil {
				return nil, 0, fmt.Errorf("entry %d: %w", i+1, err)
			}
			cmds = append(cmds[:pos], cmd)
			pos++
		case storage.JournalUndo:
			if pos == 0 {
				return nil, 0, fmt.Errorf("entry %d: undo with nothing applied", i+1)
			}
			pos--
		case storage.JournalRedo:
			if pos == len(cmds) {
				return nil, 0, fmt.Errorf("entry %d: redo with nothing undone", i+1)
			}
			pos++
		case storage.JournalReset:
			cmds, pos = nil, 0
		default:
			return nil, 0, fmt.Errorf("entry %d: unknown op %q", i+1, e.Op)
		}
	}
	return cmds, pos, nil
}

// restoreJournal loads the journal next to the table into d's history
// and returns the number of entries in it. A journal that cannot be
// used is removed.
func (s *Session) restoreJournal(store *storage.Store, d *document.Document, hash string) int {
	j := store.Journal()
	entries, err := j.ReadAll()
	if err == nil {
		var cmds []document.Command
		var pos int
		cmds, pos, err = replayJournal(s.schema, entries, hash)
		if err == nil {
			d.History().Restore(cmds, pos)
			return len(entries)
		}
	}
	s.opts.Log("discarding undo history %s: %v", j.Path(), err)
	if err := j.Remove(); err != nil {
		s.opts.Log("remove %s: %v", j.Path(), err)
	}
	return 0
}

// syncJournal writes queued entries after a save. fresh rewrites the
// journal from the in-memory log instead of appending.
func (s *Session) syncJournal(store *storage.Store, fresh bool) {
	j := store.Journal()
	pending := s.pending
	s.pending = nil
	for i := range pending {
		pending[i].HashAfter = s.hash
	}

	var err error
	if fresh || s.journal+len(pending) > compactFactor*s.doc.History().Limit() {
		entries := snapshotEntries(s.schema, s.doc.History(), s.hash, s.opts.Now().UTC())
		err = j.WriteAll(entries)
		s.journal = len(entries)
	} else if len(pending) > 0 {
		err = j.Append(pending...)
		s.journal += len(pending)
	}
	if err != nil {
		s.opts.Log("write %s: %v", j.Path(), err)
	}
}

// snapshotEntries describes h as the shortest journal that replays to
// it: a reset followed by every command, then undos back to the current
// position. Commands before the last applied table replacement, and the
// redo tail from the first undone one, are left out.
func snapshotEntries(schema *model.Schema, h *document.History, hash string, now time.Time) []storage.JournalEntry {
	cmds := h.Commands()
	pos := h.Position()
	start, end := 0, len(cmds)
	for i := 0; i < pos; i++ {
		if _, ok := cmds[i].(*document.CellEdits); !ok {
			start = i + 1
		}
	}
	for i := pos; i < end; i++ {
		if _, ok := cmds[i].(*document.CellEdits); !ok {
			end = i
			break
		}
	}

	entries := []storage.JournalEntry{{Op: storage.JournalReset, Time: now, HashAfter: hash}}
	for _, cmd := range cmds[start:end] {
		c := cmd.(*document.CellEdits)
		entries = append(entries, storage.JournalEntry{
			Op: storage.JournalDo, Time: now, Desc: c.Desc,
			Edits: journalEdits(schema, c), HashAfter: hash,
		})
	}
	for i := pos; i < end; i++ {
		entries = append(entries, storage.JournalEntry{Op: storage.JournalUndo, Time: now, HashAfter: hash})
	}
	return entries
}
