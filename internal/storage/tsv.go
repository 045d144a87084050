package storage

import (
	"bytes"
	"cmp"
	"slices"
	"strings"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
)

// ParseTSV reads a tab-separated mob table. A first line whose first
// field is the first column name is treated as a header and must list the
// schema columns in order. Blank lines hold no row; their positions are
// kept in the document Format. Every problem is reported in a single
// *model.FormatError.
func ParseTSV(s *model.Schema, source string, data []byte, opts ...document.Option) (*document.Document, error) {
	data, bom := stripBOM(data)
	text, enc, err := decode(data, EncodingEUCKR)
	if err != nil {
		return nil, &model.FormatError{Source: source, Issues: []model.Issue{{Msg: err.Error()}}}
	}

	format := document.Format{
		BOM:             bom,
		CRLF:            strings.Contains(text, "\r\n"),
		TrailingNewline: strings.HasSuffix(text, "\n"),
		Encoding:        enc,
	}

	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
		if format.TrailingNewline {
			lines = lines[:len(lines)-1]
		}
	}

	p := newRowParser(s, source)
	var records []*model.Record
	first := true
	content := 0
	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			format.Blanks = append(format.Blanks, document.BlankLine{Before: content, Text: line})
			continue
		}
		content++
		fields := strings.Split(line, "\t")
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(fields[0]), s.Columns[0].Name) {
				format.HasHeader = true
				format.Header = line
				checkHeader(p, lineNo, fields)
				continue
			}
		}
		if r := p.parse(lineNo, fields); r != nil {
			records = append(records, r)
		}
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	opts = append([]document.Option{document.WithFormat(format)}, opts...)
	return document.FromRecords(s, records, opts...)
}

func checkHeader(p *rowParser, line int, fields []string) {
	if len(fields) != p.schema.Len() {
		p.addIssue(line, "", "header has %d columns, expected %d", len(fields), p.schema.Len())
		return
	}
	for i, f := range fields {
		if want := p.schema.Columns[i].Name; !strings.EqualFold(strings.TrimSpace(f), want) {
			p.addIssue(line, want, "header names %q at position %d", f, i+1)
		}
	}
}

// SerializeOptions controls SerializeTSV.
type SerializeOptions struct {
	// SortByVNUM writes rows in ascending VNUM order. The document
	// itself is not reordered.
	SortByVNUM bool
}

// SerializeTSV renders d in the layout recorded in its Format. An
// unmodified document read from a UTF-8 file serializes to the same bytes.
func SerializeTSV(d *document.Document, opts SerializeOptions) []byte {
	f := d.Format()
	eol := "\n"
	if f.CRLF {
		eol = "\r\n"
	}

	var lines []string
	blanks := f.Blanks
	content := 0
	add := func(line string) {
		for len(blanks) > 0 && blanks[0].Before <= content {
			lines = append(lines, blanks[0].Text)
			blanks = blanks[1:]
		}
		lines = append(lines, line)
		content++
	}
	if f.HasHeader {
		header := f.Header
		if header == "" {
			header = strings.Join(d.Schema().Columns.Names(), "\t")
		}
		add(header)
	}
	records := slices.Collect(d.Records())
	if opts.SortByVNUM {
		slices.SortStableFunc(records, func(a, b *model.Record) int {
			return cmp.Compare(a.VNUM(), b.VNUM())
		})
	}
	for _, r := range records {
		add(strings.Join(r.Fields(), "\t"))
	}
	// blank lines past the last row, or beyond a shorter table after an import
	for _, b := range blanks {
		lines = append(lines, b.Text)
	}

	var buf bytes.Buffer
	if f.BOM {
		buf.Write(utf8BOM)
	}
	buf.WriteString(strings.Join(lines, eol))
	if f.TrailingNewline && len(lines) > 0 {
		buf.WriteString(eol)
	}
	return buf.Bytes()
}
