package inconsistency

import (
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

type ReportableObject interface{}

// UnmatchedRow is a row whose key has no counterpart on the other side, or a
// later row repeating a key already seen on its own side.
type UnmatchedRow struct {
	Side reconcilebase.Side

	KeyColumns []string
	KeyValues  []dataset.Value
	RowIdx     int
	// Duplicate is set when the row was only unmatched because an earlier
	// row on the same side had the same key.
	Duplicate bool
}

// MismatchingRow is a pair of rows sharing a key where at least one
// comparable column differs.
type MismatchingRow struct {
	KeyColumns []string
	KeyValues  []dataset.Value
	RowIdx     [2]int

	// Diffs holds at most the configured maximum number of differing cells.
	Diffs []reconcilebase.CellDiff
	// NumMismatching counts every differing cell, including those not kept
	// in Diffs.
	NumMismatching int
}
