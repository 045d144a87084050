package storage

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
)

const filePerms = 0o644

// ReadFile loads a mob table from path.
func ReadFile(s *model.Schema, path string, opts ...document.Option) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}
	return ParseTSV(s, path, data, opts...)
}

// FileHash returns the content hash of the file at path.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &model.IOError{Op: "read", Path: path, Err: err}
	}
	return model.CalculateHash(data), nil
}

// WriteOptions controls WriteFile.
type WriteOptions struct {
	// Backup copies an existing target to a timestamped backup first.
	Backup bool
	// Now stamps the backup name; the zero value means time.Now.
	Now time.Time
}

// WriteFile replaces path with data atomically: readers see either the
// old or the new content, never a mix. It returns the backup path, if
// one was made.
func WriteFile(path string, data []byte, opts WriteOptions) (string, error) {
	var backup string
	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return "", &model.IOError{Op: "stat", Path: path, Err: statErr}
	}

	if exists && opts.Backup {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		b, err := CreateBackup(path, now)
		if err != nil {
			return "", err
		}
		backup = b
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return backup, &model.IOError{Op: "write", Path: path, Err: err}
	}
	if !exists {
		// atomic.WriteFile leaves new files with temp file permissions
		if err := os.Chmod(path, filePerms); err != nil {
			return backup, &model.IOError{Op: "chmod", Path: path, Err: err}
		}
	}
	return backup, nil
}

// SaveOptions controls SaveDocument.
type SaveOptions struct {
	Backup     bool
	SortByVNUM bool
	Now        time.Time
}

// SaveResult describes a completed save.
type SaveResult struct {
	Path   string
	Backup string // empty when no backup was made
	Hash   string // content hash of the written file
	Bytes  int
}

// SaveDocument serializes d and writes it to path. The document's
// dirty state is left to the caller.
func SaveDocument(path string, d *document.Document, opts SaveOptions) (SaveResult, error) {
	data := SerializeTSV(d, SerializeOptions{SortByVNUM: opts.SortByVNUM})
	backup, err := WriteFile(path, data, WriteOptions{Backup: opts.Backup, Now: opts.Now})
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Path: path, Backup: backup, Hash: model.CalculateHash(data), Bytes: len(data)}, nil
}
