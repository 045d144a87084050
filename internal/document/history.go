package document

// History is a bounded undo/redo log. Commands [0, pos) are applied;
// commands [pos, len) have been undone and may be redone.
type History struct {
	entries []Command
	pos     int
	limit   int

	// saved is the position matching the file on disk, or -1 when that
	// state can no longer be reached by undo or redo.
	saved int
	// dropped counts commands evicted from the front.
	dropped int
}

// NewHistory creates a log that keeps at most limit commands.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records a newly applied command. Any redo tail is discarded and
// the oldest command is evicted once the limit is exceeded.
func (h *History) Push(cmd Command) {
	if h.saved > h.pos {
		h.saved = -1
	}
	h.entries = append(h.entries[:h.pos], cmd)
	h.pos++
	if len(h.entries) > h.limit {
		over := len(h.entries) - h.limit
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
		h.pos -= over
		h.dropped += over
		if h.saved >= 0 {
			h.saved -= over
			if h.saved < 0 {
				h.saved = -1
			}
		}
	}
}

func (h *History) peekUndo() (Command, bool) {
	if h.pos == 0 {
		return nil, false
	}
	return h.entries[h.pos-1], true
}

func (h *History) peekRedo() (Command, bool) {
	if h.pos >= len(h.entries) {
		return nil, false
	}
	return h.entries[h.pos], true
}

// CanUndo reports whether there is a command to undo.
func (h *History) CanUndo() bool { return h.pos > 0 }

// CanRedo reports whether there is a command to redo.
func (h *History) CanRedo() bool { return h.pos < len(h.entries) }

// Len returns the number of commands held, applied or undone.
func (h *History) Len() int { return len(h.entries) }

// Position returns the number of applied commands held.
func (h *History) Position() int { return h.pos }

// Limit returns the capacity.
func (h *History) Limit() int { return h.limit }

// Dropped returns how many commands have been evicted.
func (h *History) Dropped() int { return h.dropped }

// Dirty reports whether the current position differs from the saved one.
func (h *History) Dirty() bool {
	return h.saved != h.pos
}

// MarkSaved records the current position as matching disk.
func (h *History) MarkSaved() {
	h.saved = h.pos
}

// LastCommand returns the most recently applied command, if any.
func (h *History) LastCommand() (Command, bool) {
	return h.peekUndo()
}

// Commands returns the held commands oldest first; the first Position
// of them are applied.
func (h *History) Commands() []Command {
	return append([]Command(nil), h.entries...)
}

// Entry describes one command in the log.
type Entry struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

// Entries lists the log oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	for i, c := range h.entries {
		out[i] = Entry{Index: i + 1, Description: c.Description(), Applied: i < h.pos}
	}
	return out
}

// Restore replaces the log with entries, of which the first pos are
// applied. The document must already reflect them. When entries exceed
// the limit the oldest applied commands go first, then the far end of
// the redo tail. The restored position counts as saved.
func (h *History) Restore(entries []Command, pos int) {
	pos = max(0, min(pos, len(entries)))
	h.entries = append([]Command(nil), entries...)
	h.pos = pos
	h.dropped = 0
	if over := len(h.entries) - h.limit; over > 0 {
		trim := min(over, h.pos)
		h.entries = h.entries[trim:]
		h.pos -= trim
		h.dropped = trim
		if len(h.entries) > h.limit {
			h.entries = h.entries[:h.limit]
		}
	}
	h.saved = h.pos
}
