// Package csvimport parses CSV files, maps their columns onto field
// definitions and imports the rows one at a time.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Skip is the mapping target of a column that is not imported.
const Skip = "skip"

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("csv has no header row")

// Row maps a CSV header to the cell value of one data row.
type Row map[string]string

// Session is the state of one import: the parsed file and the column
// mapping the user edits. It is never persisted.
type Session struct {
	Headers  []string          `json:"headers"`
	Rows     []Row             `json:"rows"`
	Mappings map[string]string `json:"mappings,omitempty"`
}

// Parse reads CSV text. Quoted cells may contain commas, doubled quotes and
// newlines. A UTF-8 BOM and blank lines around the data are dropped,
// headers are trimmed and short rows are padded with empty cells.
func Parse(text string) (Session, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.Trim(text, "\r\n\t ")
	if text == "" {
		return Session{}, ErrNoHeader
	}
	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Session{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Session{}, ErrNoHeader
	}
	s := Session{Headers: make([]string, len(records[0]))}
	for i, h := range records[0] {
		s.Headers[i] = strings.TrimSpace(h)
	}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(s.Headers))
		for i, h := range s.Headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// ParseReader is Parse for a reader.
func ParseReader(r io.Reader) (Session, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Session{}, err
	}
	return Parse(string(b))
}

// ParseLine splits a single CSV line into cells.
func ParseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	return rec, err
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Encode writes headers and rows as CSV with every cell quoted.
func Encode(headers []string, rows [][]string) []byte {
	var buf bytes.Buffer
	writeQuoted(&buf, headers)
	for _, r := range rows {
		writeQuoted(&buf, r)
	}
	return buf.Bytes()
}

func writeQuoted(buf *bytes.Buffer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(c, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}
