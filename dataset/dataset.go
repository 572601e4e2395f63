// Package dataset holds the in-memory tabular form both sides of a
// reconciliation are materialized into.
package dataset

import (
	"github.com/cockroachdb/errors"
)

// Column is a named dataset column.
type Column struct {
	// Name is the normalized name used for matching.
	Name string
	// Display is the name as reported by the source.
	Display string
}

// Row holds one value per dataset column, in column order.
type Row []Value

// Dataset is an ordered set of columns and rows. Every row has exactly one
// value per column.
type Dataset struct {
	Columns []Column
	Rows    []Row

	index map[string]int
}

// New builds a dataset from display column names and rows.
func New(columnNames []string, rows []Row) (Dataset, error) {
	ds := Dataset{
		Columns: make([]Column, len(columnNames)),
		Rows:    rows,
		index:   make(map[string]int, len(columnNames)),
	}
	for i, n := range columnNames {
		c := Column{Name: NormalizeName(n), Display: n}
		if c.Name == "" {
			return Dataset{}, errors.Newf("column %d has an empty name", i+1)
		}
		if prev, ok := ds.index[c.Name]; ok {
			return Dataset{}, errors.Newf(
				"columns %q and %q are indistinguishable once case is normalized",
				ds.Columns[prev].Display,
				n,
			)
		}
		ds.index[c.Name] = i
		ds.Columns[i] = c
	}
	for i, r := range rows {
		if len(r) != len(columnNames) {
			return Dataset{}, errors.Newf("row %d has %d values, expected %d", i+1, len(r), len(columnNames))
		}
	}
	return ds, nil
}

// MustNew is New which panics on error. It is intended for tests and
// literals.
func MustNew(columnNames []string, rows []Row) Dataset {
	ds, err := New(columnNames, rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// FromMaps builds a dataset from rows keyed by display column name. Keys
// missing from a row become NULL; keys not listed in columnNames are an error.
func FromMaps(columnNames []string, rows []map[string]Value) (Dataset, error) {
	pos := make(map[string]int, len(columnNames))
	for i, n := range columnNames {
		pos[n] = i
	}
	out := make([]Row, len(rows))
	for i, m := range rows {
		r := make(Row, len(columnNames))
		for k, v := range m {
			idx, ok := pos[k]
			if !ok {
				return Dataset{}, errors.Newf("row %d has unknown column %q", i+1, k)
			}
			r[idx] = v
		}
		out[i] = r
	}
	return New(columnNames, out)
}

// ColumnIndex returns the position of the column with the given name, matched
// case-insensitively.
func (d Dataset) ColumnIndex(name string) (int, bool) {
	n := NormalizeName(name)
	if d.index != nil {
		i, ok := d.index[n]
		return i, ok
	}
	for i, c := range d.Columns {
		if c.Name == n {
			return i, true
		}
	}
	return 0, false
}

// ColumnNames returns the display names of all columns.
func (d Dataset) ColumnNames() []string {
	ret := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		ret[i] = c.Display
	}
	return ret
}

func (d Dataset) NumRows() int {
	return len(d.Rows)
}
