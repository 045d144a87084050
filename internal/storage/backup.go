package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/user/mobproto/internal/model"
)

// BackupTimeFormat is the timestamp layout in backup file names.
const BackupTimeFormat = "20060102_150405"

const backupInfix = ".backup_"

var backupSuffix = regexp.MustCompile(`^(\d{8}_\d{6})(?:_(\d+))?$`)

// Backup describes one backup copy of a file.
type Backup struct {
	Path string
	Time time.Time
	Seq  int // 0 for the first backup in a given second
	Size int64
}

// BackupName returns the backup path for path taken at t.
func BackupName(path string, t time.Time) string {
	return path + backupInfix + t.Format(BackupTimeFormat)
}

// CreateBackup copies path to a new timestamped file next to it and
// returns the backup path. A _N suffix is added when a backup with the
// same timestamp already exists. Existing backups are never overwritten.
func CreateBackup(path string, now time.Time) (string, error) {
	base := BackupName(path, now)
	for seq := 0; seq < 1000; seq++ {
		dst := base
		if seq > 0 {
			dst = fmt.Sprintf("%s_%d", base, seq)
		}
		err := copyFile(path, dst)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &model.IOError{Op: "backup", Path: path, Err: err}
		}
		return dst, nil
	}
	return "", &model.IOError{Op: "backup", Path: path, Err: fmt.Errorf("too many backups at %s", now.Format(BackupTimeFormat))}
}

// copyFile copies src to a new file dst, failing if dst exists.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}
	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := dstFile.ReadFrom(srcFile); err != nil {
		os.Remove(dst)
		return err
	}
	return dstFile.Sync()
}

// ListBackups returns the backups of path, newest first.
func ListBackups(path string) ([]Backup, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &model.IOError{Op: "list", Path: dir, Err: err}
	}
	prefix := filepath.Base(path) + backupInfix
	var out []Backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		sub := backupSuffix.FindStringSubmatch(name[len(prefix):])
		if sub == nil {
			continue
		}
		t, err := time.ParseInLocation(BackupTimeFormat, sub[1], time.Local)
		if err != nil {
			continue
		}
		b := Backup{Path: filepath.Join(dir, name), Time: t}
		if sub[2] != "" {
			b.Seq, _ = strconv.Atoi(sub[2])
		}
		if info, err := e.Info(); err == nil {
			b.Size = info.Size()
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Backup) int {
		if c := b.Time.Compare(a.Time); c != 0 {
			return c
		}
		return b.Seq - a.Seq
	})
	return out, nil
}

// RestoreBackup replaces path with the content of backup. The current
// file is itself backed up first; its backup path is returned.
func RestoreBackup(path, backup string, now time.Time) (string, error) {
	data, err := os.ReadFile(backup)
	if err != nil {
		return "", &model.IOError{Op: "read", Path: backup, Err: err}
	}
	return WriteFile(path, data, WriteOptions{Backup: true, Now: now})
}
