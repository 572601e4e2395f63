// Package cellcmp decides whether two cells, and two rows, are equal under
// the reconciliation tolerance rules.
package cellcmp

import (
	"math"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

const DefaultMaxDiffsPerRow = 50

// decimalCtx has enough digits to subtract any two float-derived decimals
// exactly unless their magnitudes are far enough apart that the difference
// dwarfs any sane epsilon.
var decimalCtx = apd.BaseContext.WithPrecision(128)

type Config struct {
	// Epsilon is the largest absolute difference at which two numbers are
	// still equal. Zero means exact.
	Epsilon float64
	// MaxDiffsPerRow caps the number of differing cells retained per row.
	// Zero means DefaultMaxDiffsPerRow.
	MaxDiffsPerRow int
}

type Comparator struct {
	columns  []reconcilebase.ComparableColumn
	epsilon  *apd.Decimal
	maxDiffs int
}

// New returns a comparator over the given comparable columns.
func New(cfg Config, columns []reconcilebase.ComparableColumn) (*Comparator, error) {
	if cfg.Epsilon < 0 || math.IsNaN(cfg.Epsilon) || math.IsInf(cfg.Epsilon, 0) {
		return nil, reconcilebase.ConfigurationErrorf("epsilon must be a finite value >= 0, got %v", cfg.Epsilon)
	}
	if cfg.MaxDiffsPerRow < 0 {
		return nil, reconcilebase.ConfigurationErrorf("max diffs per row must be >= 0, got %d", cfg.MaxDiffsPerRow)
	}
	eps, err := new(apd.Decimal).SetFloat64(cfg.Epsilon)
	if err != nil {
		return nil, reconcilebase.ConfigurationErrorf("invalid epsilon %v: %v", cfg.Epsilon, err)
	}
	c := &Comparator{
		columns:  columns,
		epsilon:  eps,
		maxDiffs: cfg.MaxDiffsPerRow,
	}
	if c.maxDiffs == 0 {
		c.maxDiffs = DefaultMaxDiffsPerRow
	}
	return c, nil
}

// RowComparison is the outcome of comparing one row pair.
type RowComparison struct {
	// Mismatched holds the index (into the comparator's columns) of every
	// differing column.
	Mismatched []int
	// Diffs holds the first differing cells, up to the configured maximum.
	Diffs []reconcilebase.CellDiff
}

func (r RowComparison) Match() bool {
	return len(r.Mismatched) == 0
}

// Truncated returns whether some differing cells were not kept in Diffs.
func (r RowComparison) Truncated() bool {
	return len(r.Diffs) < len(r.Mismatched)
}

// CompareRow compares every comparable column of a left and right row.
func (c *Comparator) CompareRow(left, right dataset.Row) RowComparison {
	var ret RowComparison
	for i, col := range c.columns {
		l, r := left[col.Idx[0]], right[col.Idx[1]]
		if c.Equal(l, r) {
			continue
		}
		ret.Mismatched = append(ret.Mismatched, i)
		if len(ret.Diffs) < c.maxDiffs {
			ret.Diffs = append(ret.Diffs, reconcilebase.CellDiff{
				Column: col.Display[0],
				Left:   l,
				Right:  r,
			})
		}
	}
	return ret
}

// Equal compares two cells.
func (c *Comparator) Equal(a, b dataset.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Kind().Numeric() && b.Kind().Numeric() {
		return c.numericEqual(a, b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case dataset.KindString:
		return a.AsString() == b.AsString()
	case dataset.KindBool:
		return a.AsBool() == b.AsBool()
	case dataset.KindTimestamp:
		return TimestampEqual(a, b)
	}
	return false
}

// TimestampEqual compares two timestamps after truncating both to the
// coarser of their precisions.
func TimestampEqual(a, b dataset.Value) bool {
	prec := a.Precision()
	if b.Precision() > prec {
		prec = b.Precision()
	}
	if prec <= 0 {
		prec = time.Nanosecond
	}
	return a.AsTime().Truncate(prec).Equal(b.AsTime().Truncate(prec))
}

func (c *Comparator) numericEqual(a, b dataset.Value) bool {
	// Exact integer comparison needs no decimal arithmetic.
	if a.Kind() == dataset.KindInt && b.Kind() == dataset.KindInt && c.epsilon.IsZero() {
		return a.AsInt() == b.AsInt()
	}
	da, err := toDecimal(a)
	if err != nil {
		return false
	}
	db, err := toDecimal(b)
	if err != nil {
		return false
	}
	if da.Form != apd.Finite || db.Form != apd.Finite {
		return specialEqual(da, db)
	}
	var diff apd.Decimal
	if _, err := decimalCtx.Sub(&diff, da, db); err != nil {
		return false
	}
	diff.Abs(&diff)
	return diff.Cmp(c.epsilon) <= 0
}

func toDecimal(v dataset.Value) (*apd.Decimal, error) {
	if v.Kind() == dataset.KindFloat {
		f := v.AsFloat()
		switch {
		case math.IsNaN(f):
			return &apd.Decimal{Form: apd.NaN}, nil
		case math.IsInf(f, 0):
			return &apd.Decimal{Form: apd.Infinite, Negative: f < 0}, nil
		}
	}
	d, _, err := v.ToDecimal()
	return d, err
}

// specialEqual compares decimals of which at least one is NaN or infinite.
// NaN only equals NaN; an infinity only equals the same infinity.
func specialEqual(a, b *apd.Decimal) bool {
	isNaN := func(d *apd.Decimal) bool { return d.Form == apd.NaN || d.Form == apd.NaNSignaling }
	if isNaN(a) || isNaN(b) {
		return isNaN(a) && isNaN(b)
	}
	return a.Form == b.Form && a.Negative == b.Negative
}
