package storage

import (
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/user/mobproto/internal/model"
)

// NamesFile is the usual file name of the localized name table.
const NamesFile = "mob_names.txt"

// Names maps VNUMs to localized display names from mob_names.txt.
type Names map[int64]string

// placeholderNames are NAME values the game data uses for "unnamed".
var placeholderNames = map[string]bool{"??": true, "???": true, "????": true}

// ParseNames reads a names table: a header line, then VNUM<TAB>NAME
// lines. Lines that don't fit that shape are skipped and counted.
func ParseNames(data []byte) (Names, int) {
	data, _ = stripBOM(data)
	text, _, err := decode(data, EncodingWin1252)
	if err != nil {
		// windows-1252 decodes every byte; unreachable in practice
		text = string(data)
	}

	names := make(Names)
	skipped := 0
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if i == 0 || line == "" {
			continue
		}
		vnumText, name, ok := strings.Cut(line, "\t")
		if !ok {
			skipped++
			continue
		}
		vnum, err := strconv.ParseInt(strings.TrimSpace(vnumText), 10, 64)
		if err != nil {
			skipped++
			continue
		}
		if name, _, _ = strings.Cut(name, "\t"); strings.TrimSpace(name) == "" {
			skipped++
			continue
		}
		names[vnum] = strings.TrimSpace(name)
	}
	return names, skipped
}

// LoadNames reads the names table at path.
func LoadNames(path string) (Names, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, &model.IOError{Op: "read", Path: path, Err: err}
	}
	names, skipped := ParseNames(data)
	return names, skipped, nil
}

// DisplayName picks the name shown for a mob: the localized name if
// there is one, else the NAME cell unless it is a placeholder, else
// "Mob <vnum>". It never changes the data.
func (n Names) DisplayName(vnum int64, name string) string {
	if local, ok := n[vnum]; ok {
		return local
	}
	if name != "" && !placeholderNames[name] {
		return name
	}
	return "Mob " + strconv.FormatInt(vnum, 10)
}

// FixNamesResult reports what FixNamesEncoding did.
type FixNamesResult struct {
	Changed      bool
	LinesChanged int
	Backup       string
}

// FixNamesEncoding rewrites a Windows-1252 names file as UTF-8. Files
// that are already valid UTF-8 are left alone. A backup is made before
// the file is rewritten.
func FixNamesEncoding(path string, now time.Time) (FixNamesResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FixNamesResult{}, &model.IOError{Op: "read", Path: path, Err: err}
	}
	if utf8.Valid(data) {
		return FixNamesResult{}, nil
	}
	text, _, err := decode(data, EncodingWin1252)
	if err != nil {
		return FixNamesResult{}, err
	}

	changed := 0
	oldLines := strings.Split(string(data), "\n")
	for i, line := range strings.Split(text, "\n") {
		if i < len(oldLines) && line != oldLines[i] {
			changed++
		}
	}

	backup, err := WriteFile(path, []byte(text), WriteOptions{Backup: true, Now: now})
	if err != nil {
		return FixNamesResult{}, err
	}
	return FixNamesResult{Changed: true, LinesChanged: changed, Backup: backup}, nil
}
