package mem

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dianpeng/sqlframe/plan"
)

// Value is a cell value: int64, float64, string, bool or nil.
type Value = interface{}

// Table is the in-process row store. Rows are slices aligned with the
// column list; the table is treated as immutable once built, every
// operation produces a new one.
type Table struct {
	cols []string
	rows [][]Value
}

func NewTable(cols []string, rows [][]Value) *Table {
	return &Table{
		cols: cols,
		rows: rows,
	}
}

func (self *Table) Columns() []string { return self.cols }
func (self *Table) Rows() [][]Value   { return self.rows }
func (self *Table) NumRows() int      { return len(self.rows) }

func (self *Table) colIndex(name string) int {
	for i, c := range self.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of one column by internal identifier.
func (self *Table) Column(name string) ([]Value, error) {
	idx := self.colIndex(name)
	if idx < 0 {
		return nil, plan.ErrColumnNotFound.New(name, self.cols)
	}

	out := make([]Value, len(self.rows))
	for i, row := range self.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// DisplayColumns renders the column list with the internal separator turned
// back into a dot.
func (self *Table) DisplayColumns() []string {
	out := make([]string, len(self.cols))
	for i, c := range self.cols {
		if table := plan.ColumnTable(c); table != "" {
			out[i] = table + "." + plan.ColumnName(c)
		} else {
			out[i] = c
		}
	}
	return out
}

func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Format renders the table for terminal output.
func (self *Table) Format() string {
	buf := &bytes.Buffer{}

	buf.WriteString(strings.Join(self.DisplayColumns(), "\t"))
	buf.WriteString("\n")

	for _, row := range self.rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		buf.WriteString(strings.Join(cells, "\t"))
		buf.WriteString("\n")
	}

	return buf.String()
}
