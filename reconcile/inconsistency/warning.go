package inconsistency

import (
	"fmt"

	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

// SchemaMismatchWarning records a column present on only one side. The
// column is not compared.
type SchemaMismatchWarning struct {
	Side   reconcilebase.Side `json:"side"`
	Column string             `json:"column"`
}

func (w SchemaMismatchWarning) String() string {
	return fmt.Sprintf("column %s only present in %s dataset", w.Column, w.Side)
}

// DuplicateKeyWarning records a row whose composite key was already seen
// earlier on the same side. The row is reported as unmatched rather than
// compared.
type DuplicateKeyWarning struct {
	Side       reconcilebase.Side `json:"side"`
	RowIdx     int                `json:"rowIndex"`
	FirstIdx   int                `json:"firstRowIndex"`
	KeyColumns []string           `json:"keyColumns"`
	KeyValues  []dataset.Value    `json:"keyValues"`
}

func (w DuplicateKeyWarning) String() string {
	return fmt.Sprintf(
		"duplicate key (%s) in %s dataset at row %d, first seen at row %d",
		FormatKey(w.KeyColumns, w.KeyValues),
		w.Side,
		w.RowIdx+1,
		w.FirstIdx+1,
	)
}

// FormatKey renders key columns and values as `a=1, b=x`.
func FormatKey(cols []string, vals []dataset.Value) string {
	var s string
	for i := range cols {
		if i > 0 {
			s += ", "
		}
		s += cols[i] + "=" + vals[i].String()
	}
	return s
}
