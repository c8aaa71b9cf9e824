package etl

import (
	"bytes"

	"passengerexport/internal/domain"
)

// Separators of the export format.
const (
	FieldSeparator = ";"
	RowTerminator  = "\n"
)

// Table is the export being built by one run: the header row followed by
// one row per document, in cursor order.
type Table struct {
	rows [][]string
}

// NewTable returns a table holding only the header row.
func NewTable() *Table {
	header := make([]string, len(domain.Columns))
	copy(header, domain.Columns)
	return &Table{rows: [][]string{header}}
}

// Append adds one passenger row.
func (t *Table) Append(p domain.Passenger) {
	t.rows = append(t.rows, p.Row())
}

// Len returns the number of data rows, header excluded.
func (t *Table) Len() int { return len(t.rows) - 1 }

// Rows returns every row, header first.
func (t *Table) Rows() [][]string { return t.rows }

// Bytes serializes the table.
func (t *Table) Bytes() []byte { return Serialize(t.rows) }

// Serialize joins fields with ";" and terminates every row, the last one
// included, with "\n". Values are written as-is: a ";" or newline inside a
// value is not quoted or escaped, so values must already be delimiter-safe.
func Serialize(rows [][]string) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				buf.WriteString(FieldSeparator)
			}
			buf.WriteString(v)
		}
		buf.WriteString(RowTerminator)
	}
	return buf.Bytes()
}
