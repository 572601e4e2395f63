// Package rowverify joins the rows of two datasets on their composite key and
// classifies each row as matched, mismatched or present on one side only.
package rowverify

import (
	"fmt"
	"time"

	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/cellcmp"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
	"github.com/tmcheck/tmcheck/reconcile/schemaverify"
)

type rowStats struct {
	numScanned   int
	numMatched   int
	numMismatch  int
	numOnlyLeft  int
	numOnlyRight int
	numDuplicate int
}

func (s *rowStats) String() string {
	return fmt.Sprintf(
		"rows seen: %d, matched: %d, mismatched: %d, only left: %d, only right: %d, duplicate keys: %d",
		s.numScanned,
		s.numMatched,
		s.numMismatch,
		s.numOnlyLeft,
		s.numOnlyRight,
		s.numDuplicate,
	)
}

// keyIndex maps the canonical encoding of a composite key to the first row
// index it was seen at.
type keyIndex map[string]int

type keyEncoder struct {
	cols []reconcilebase.KeyColumn
	// precision is, per key column, the coarsest timestamp precision seen on
	// either side so both sides encode timestamps identically.
	precision []time.Duration
	buf       []byte
}

func newKeyEncoder(left, right dataset.Dataset, cols []reconcilebase.KeyColumn) *keyEncoder {
	e := &keyEncoder{cols: cols, precision: make([]time.Duration, len(cols))}
	for i, col := range cols {
		for side, ds := range [2]dataset.Dataset{left, right} {
			for _, row := range ds.Rows {
				v := row[col.Idx[side]]
				if v.Kind() == dataset.KindTimestamp && v.Precision() > e.precision[i] {
					e.precision[i] = v.Precision()
				}
			}
		}
	}
	return e
}

func (e *keyEncoder) encode(side reconcilebase.Side, row dataset.Row) string {
	e.buf = e.buf[:0]
	for i, col := range e.cols {
		e.buf = row[col.Idx[side]].AppendKey(e.buf, e.precision[i])
	}
	return string(e.buf)
}

func keyValues(side reconcilebase.Side, row dataset.Row, cols []reconcilebase.KeyColumn) []dataset.Value {
	ret := make([]dataset.Value, len(cols))
	for i, col := range cols {
		ret[i] = row[col.Idx[side]]
	}
	return ret
}

// Join performs a hash based full outer join of left and right on the key
// columns of the alignment, comparing every pair of rows sharing a key.
//
// When a key occurs more than once on one side, the first occurrence takes
// part in the join and every later occurrence is reported to the listener as
// an unmatched duplicate row, together with a DuplicateKeyWarning. No row is
// dropped.
//
// Events are emitted deterministically: left rows in order, then unmatched
// right rows in order.
func Join(
	left, right dataset.Dataset,
	alignment schemaverify.Alignment,
	cmp *cellcmp.Comparator,
	evl RowEventListener,
) {
	keyCols := alignment.KeyColumns
	keyNames := alignment.KeyDisplayNames()
	enc := newKeyEncoder(left, right, keyCols)

	rightIdx := make(keyIndex, len(right.Rows))
	// rightFirst maps a duplicate right row to the first row with its key.
	rightFirst := make(map[int]int)
	for i, row := range right.Rows {
		k := enc.encode(reconcilebase.Right, row)
		if first, ok := rightIdx[k]; ok {
			rightFirst[i] = first
			continue
		}
		rightIdx[k] = i
	}

	leftSeen := make(keyIndex, len(left.Rows))
	rightMatched := make([]bool, len(right.Rows))
	for i, row := range left.Rows {
		evl.OnRowScan()
		k := enc.encode(reconcilebase.Left, row)
		if first, ok := leftSeen[k]; ok {
			kv := keyValues(reconcilebase.Left, row, keyCols)
			evl.OnDuplicateKey(inconsistency.DuplicateKeyWarning{
				Side:       reconcilebase.Left,
				RowIdx:     i,
				FirstIdx:   first,
				KeyColumns: keyNames,
				KeyValues:  kv,
			})
			evl.OnUnmatchedRow(inconsistency.UnmatchedRow{
				Side:       reconcilebase.Left,
				KeyColumns: keyNames,
				KeyValues:  kv,
				RowIdx:     i,
				Duplicate:  true,
			})
			continue
		}
		leftSeen[k] = i

		j, ok := rightIdx[k]
		if !ok {
			evl.OnUnmatchedRow(inconsistency.UnmatchedRow{
				Side:       reconcilebase.Left,
				KeyColumns: keyNames,
				KeyValues:  keyValues(reconcilebase.Left, row, keyCols),
				RowIdx:     i,
			})
			continue
		}
		rightMatched[j] = true

		res := cmp.CompareRow(row, right.Rows[j])
		if res.Match() {
			evl.OnMatch(i, j)
			continue
		}
		evl.OnMismatchingRow(inconsistency.MismatchingRow{
			KeyColumns:     keyNames,
			KeyValues:      keyValues(reconcilebase.Left, row, keyCols),
			RowIdx:         [2]int{i, j},
			Diffs:          res.Diffs,
			NumMismatching: len(res.Mismatched),
		}, res.Mismatched)
	}

	for j, row := range right.Rows {
		evl.OnRowScan()
		if rightMatched[j] {
			continue
		}
		kv := keyValues(reconcilebase.Right, row, keyCols)
		first, dup := rightFirst[j]
		if dup {
			evl.OnDuplicateKey(inconsistency.DuplicateKeyWarning{
				Side:       reconcilebase.Right,
				RowIdx:     j,
				FirstIdx:   first,
				KeyColumns: keyNames,
				KeyValues:  kv,
			})
		}
		evl.OnUnmatchedRow(inconsistency.UnmatchedRow{
			Side:       reconcilebase.Right,
			KeyColumns: keyNames,
			KeyValues:  kv,
			RowIdx:     j,
			Duplicate:  dup,
		})
	}
}
