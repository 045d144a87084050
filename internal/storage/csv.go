package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
)

// ExportCSV writes a header row and one row per record, in schema
// column order.
func ExportCSV(d *document.Document, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Schema().Columns.Names()); err != nil {
		return err
	}
	for r := range d.Records() {
		if err := cw.Write(r.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSVFile writes d to path as CSV, atomically.
func ExportCSVFile(d *document.Document, path string, backup bool) (string, error) {
	var buf bytes.Buffer
	if err := ExportCSV(d, &buf); err != nil {
		return "", fmt.Errorf("export csv: %w", err)
	}
	return WriteFile(path, buf.Bytes(), WriteOptions{Backup: backup, Now: time.Now()})
}

// ImportCSV reads records from CSV. The header must name every schema
// column exactly once, in any order and any case. Values are validated
// as ParseTSV validates them, and every problem is reported together.
// A header with no rows yields no records.
func ImportCSV(s *model.Schema, source string, r io.Reader) ([]*model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	fail := func(line int, msg string) error {
		return &model.FormatError{Source: source, Issues: []model.Issue{{Line: line, Msg: msg}}}
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fail(1, "missing header row")
	}
	if err != nil {
		return nil, fail(1, err.Error())
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	p := newRowParser(s, source)
	order, ok := mapHeader(p, header)
	if !ok {
		return nil, p.err()
	}

	var records []*model.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			p.addIssue(line, "", "%v", err)
			// the reader cannot resync after a broken quote
			break
		}
		line, _ := cr.FieldPos(0)
		if len(row) != len(header) {
			p.addIssue(line, "", "expected %d fields, got %d", len(header), len(row))
			continue
		}
		fields := make([]string, s.Len())
		for i, pos := range order {
			fields[i] = row[pos]
		}
		if rec := p.parse(line, fields); rec != nil {
			records = append(records, rec)
		}
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*model.Record{}
	}
	return records, nil
}

// mapHeader returns, for every schema column, its position in header.
func mapHeader(p *rowParser, header []string) ([]int, bool) {
	order := make([]int, p.schema.Len())
	for i := range order {
		order[i] = -1
	}
	ok := true
	for pos, name := range header {
		i := p.schema.Columns.Index(strings.TrimSpace(name))
		switch {
		case i < 0:
			p.addIssue(1, name, "unknown column")
			ok = false
		case order[i] >= 0:
			p.addIssue(1, name, "column appears more than once")
			ok = false
		default:
			order[i] = pos
		}
	}
	for i, pos := range order {
		if pos < 0 {
			p.addIssue(1, p.schema.Columns[i].Name, "missing column")
			ok = false
		}
	}
	return order, ok
}

// ImportCSVFile reads records from a CSV file.
func ImportCSVFile(s *model.Schema, path string) ([]*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()
	return ImportCSV(s, path, f)
}
