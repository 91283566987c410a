package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// Table is a header plus string cells, the common shape of every input
// source. Cells are parsed by the Builder, not by the readers.
type Table struct {
	Header []string
	Rows   [][]string

	// Source describes where the table came from, for logs.
	Source string
}

// NewTable creates an in-memory table.
func NewTable(header []string, rows [][]string) *Table {
	return &Table{Header: header, Rows: rows, Source: "memory"}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name, ignoring surrounding spaces.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns row[col], or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// ReadCSV reads a CSV stream whose first record is the header. Rows may have
// differing lengths; short rows surface later as missing values.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv")
	}
	if len(records) == 0 {
		return nil, errors.NewSchemaError("ReadCSV", "missing header row", RequiredColumns(), nil)
	}

	header := records[0]
	if len(header) > 0 {
		// Spreadsheet exports often prefix a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &Table{Header: header, Rows: records[1:], Source: "csv"}, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	t.Source = path
	return t, nil
}

// WriteCSV writes t with its header.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "failed to write csv rows")
	}
	return nil
}
