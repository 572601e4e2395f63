// Package schemaverify aligns the column sets of the two datasets.
package schemaverify

import (
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

// Alignment describes how the columns of both datasets line up.
type Alignment struct {
	KeyColumns []reconcilebase.KeyColumn
	// Columns are the comparable columns, in left dataset order.
	Columns []reconcilebase.ComparableColumn

	// OnlyInLeft and OnlyInRight hold display names of columns which only
	// exist on one side, in their dataset's order.
	OnlyInLeft  []string
	OnlyInRight []string

	Warnings []inconsistency.SchemaMismatchWarning
}

// KeyDisplayNames returns the display names of the key columns.
func (a Alignment) KeyDisplayNames() []string {
	ret := make([]string, len(a.KeyColumns))
	for i, k := range a.KeyColumns {
		ret[i] = k.Display
	}
	return ret
}

// Align matches columns of left and right by normalized name. Columns missing
// from one side are recorded rather than treated as fatal; a join key column
// missing from either side, or no comparable columns at all, is a
// configuration error.
func Align(left, right dataset.Dataset, key reconcilebase.JoinKey) (Alignment, error) {
	var ret Alignment

	isKey := make(map[string]struct{}, len(key))
	for _, k := range key {
		isKey[k] = struct{}{}
		leftIdx, leftOK := left.ColumnIndex(k)
		rightIdx, rightOK := right.ColumnIndex(k)
		switch {
		case !leftOK && !rightOK:
			return Alignment{}, reconcilebase.ConfigurationErrorf("join key column %s not found in either dataset", k)
		case !leftOK:
			return Alignment{}, reconcilebase.ConfigurationErrorf("join key column %s not found in left dataset", k)
		case !rightOK:
			return Alignment{}, reconcilebase.ConfigurationErrorf("join key column %s not found in right dataset", k)
		}
		ret.KeyColumns = append(ret.KeyColumns, reconcilebase.KeyColumn{
			Name:    k,
			Display: left.Columns[leftIdx].Display,
			Idx:     [2]int{leftIdx, rightIdx},
		})
	}

	for leftIdx, col := range left.Columns {
		if _, ok := isKey[col.Name]; ok {
			continue
		}
		rightIdx, ok := right.ColumnIndex(col.Name)
		if !ok {
			ret.OnlyInLeft = append(ret.OnlyInLeft, col.Display)
			ret.Warnings = append(ret.Warnings, inconsistency.SchemaMismatchWarning{
				Side:   reconcilebase.Left,
				Column: col.Display,
			})
			continue
		}
		ret.Columns = append(ret.Columns, reconcilebase.ComparableColumn{
			Name:    col.Name,
			Display: [2]string{col.Display, right.Columns[rightIdx].Display},
			Idx:     [2]int{leftIdx, rightIdx},
		})
	}
	for _, col := range right.Columns {
		if _, ok := left.ColumnIndex(col.Name); ok {
			continue
		}
		ret.OnlyInRight = append(ret.OnlyInRight, col.Display)
		ret.Warnings = append(ret.Warnings, inconsistency.SchemaMismatchWarning{
			Side:   reconcilebase.Right,
			Column: col.Display,
		})
	}

	if len(ret.Columns) == 0 {
		return Alignment{}, reconcilebase.ConfigurationErrorf("no comparable columns outside the join key")
	}
	return ret, nil
}
