package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/faciam-dev/crmfields/internal/csvimport"
)

const sheetName = "Sheet1"

var bom = []byte{0xEF, 0xBB, 0xBF}

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName returns the download name of an export taken at t, for example
// JobSeeker_20250102.csv.
func FileName(recordType string, f Format, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", recordType, t.UTC().Format("20060102"), f)
}

// Write writes s in format f.
func Write(w io.Writer, f Format, s Sheet) error {
	if f == FormatXLSX {
		return WriteXLSX(w, s)
	}
	return WriteCSV(w, s)
}

// WriteCSV writes s as UTF-8 CSV with a byte order mark. Every value is
// quoted.
func WriteCSV(w io.Writer, s Sheet) error {
	rows := make([][]string, len(s.Rows))
	for i := range s.Rows {
		rows[i] = s.Values(i)
	}
	if _, err := w.Write(bom); err != nil {
		return err
	}
	_, err := w.Write(csvimport.Encode(s.Columns, rows))
	return err
}

// WriteXLSX writes s as a single sheet workbook.
func WriteXLSX(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := setRow(f, 1, s.Columns); err != nil {
		return err
	}
	for i := range s.Rows {
		if err := setRow(f, i+2, s.Values(i)); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, n int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return f.SetSheetRow(sheetName, cell, &row)
}
