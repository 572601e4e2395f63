// Package report aggregates a row partition into summary counts, per column
// statistics, capped sample tables and a deterministic text rendering.
package report

import (
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
	"github.com/tmcheck/tmcheck/reconcile/rowverify"
	"github.com/tmcheck/tmcheck/reconcile/schemaverify"
)

const DefaultSampleSize = 100

type Config struct {
	// SampleSize caps every sample table. Zero means DefaultSampleSize.
	SampleSize int
}

// Input is everything the aggregator reads. None of it is modified.
type Input struct {
	Left, Right         dataset.Dataset
	LeftInfo, RightInfo dbtable.SourceInfo
	Alignment           schemaverify.Alignment
	Partition           rowverify.Partition
}

// Summary holds the derived counts of a reconciliation.
type Summary struct {
	LeftRows           int `json:"leftRows"`
	RightRows          int `json:"rightRows"`
	MatchedRows        int `json:"matchedRows"`
	MismatchedRows     int `json:"mismatchedRows"`
	OnlyLeftRows       int `json:"onlyLeftRows"`
	OnlyRightRows      int `json:"onlyRightRows"`
	ColumnsCompared    int `json:"columnsCompared"`
	OnlyInLeftColumns  int `json:"onlyInLeftColumns"`
	OnlyInRightColumns int `json:"onlyInRightColumns"`
	DuplicateKeys      int `json:"duplicateKeys"`
	// MatchPercentage is the share of classified keys which matched. It is
	// 100 when both datasets are empty.
	MatchPercentage float64 `json:"matchPercentage"`
}

// ColumnStats describes one comparable column over every row pair sharing a
// key.
type ColumnStats struct {
	Column     string  `json:"column"`
	Compared   int     `json:"compared"`
	Mismatched int     `json:"mismatched"`
	MatchRate  float64 `json:"matchRate"`
}

// Table is a sample of full rows from one dataset.
type Table struct {
	Columns []string      `json:"columns"`
	Rows    []dataset.Row `json:"rows"`
	// Total is the number of rows the sample was taken from.
	Total int `json:"total"`
}

// MismatchSample is a sampled mismatched row pair.
type MismatchSample struct {
	Key            []dataset.Value          `json:"key"`
	Diffs          []reconcilebase.CellDiff `json:"diffs"`
	NumMismatching int                      `json:"numMismatching"`
}

// Report is the immutable output of Aggregate.
type Report struct {
	Left       dbtable.SourceInfo `json:"left"`
	Right      dbtable.SourceInfo `json:"right"`
	KeyColumns []string           `json:"keyColumns"`

	Summary            Summary       `json:"summary"`
	Columns            []ColumnStats `json:"columns"`
	OnlyInLeftColumns  []string      `json:"onlyInLeftColumns"`
	OnlyInRightColumns []string      `json:"onlyInRightColumns"`

	SchemaWarnings []inconsistency.SchemaMismatchWarning `json:"schemaWarnings"`
	DuplicateKeys  []inconsistency.DuplicateKeyWarning   `json:"duplicateKeys"`

	OnlyLeftSample   Table            `json:"onlyLeftSample"`
	OnlyRightSample  Table            `json:"onlyRightSample"`
	MismatchedSample []MismatchSample `json:"mismatchedSample"`
	// MismatchedTotal is the number of mismatched rows MismatchedSample was
	// taken from.
	MismatchedTotal int `json:"mismatchedTotal"`
}

// Aggregate builds the report for a partition.
func Aggregate(in Input, cfg Config) Report {
	sampleSize := cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	p := in.Partition

	r := Report{
		Left:               in.LeftInfo,
		Right:              in.RightInfo,
		KeyColumns:         in.Alignment.KeyDisplayNames(),
		OnlyInLeftColumns:  in.Alignment.OnlyInLeft,
		OnlyInRightColumns: in.Alignment.OnlyInRight,
		SchemaWarnings:     in.Alignment.Warnings,
		DuplicateKeys:      p.DuplicateKeys,
		Summary: Summary{
			LeftRows:           in.Left.NumRows(),
			RightRows:          in.Right.NumRows(),
			MatchedRows:        len(p.Matched),
			MismatchedRows:     len(p.Mismatched),
			OnlyLeftRows:       len(p.OnlyLeft),
			OnlyRightRows:      len(p.OnlyRight),
			ColumnsCompared:    len(in.Alignment.Columns),
			OnlyInLeftColumns:  len(in.Alignment.OnlyInLeft),
			OnlyInRightColumns: len(in.Alignment.OnlyInRight),
			DuplicateKeys:      len(p.DuplicateKeys),
		},
		OnlyLeftSample:  sampleRows(in.Left, p.OnlyLeft, sampleSize),
		OnlyRightSample: sampleRows(in.Right, p.OnlyRight, sampleSize),
		MismatchedTotal: len(p.Mismatched),
	}
	s := &r.Summary
	s.MatchPercentage = percentage(
		s.MatchedRows,
		s.MatchedRows+s.MismatchedRows+s.OnlyLeftRows+s.OnlyRightRows,
	)

	compared := len(p.Matched) + len(p.Mismatched)
	r.Columns = make([]ColumnStats, len(in.Alignment.Columns))
	for i, col := range in.Alignment.Columns {
		var mismatched int
		if i < len(p.ColumnMismatches) {
			mismatched = p.ColumnMismatches[i]
		}
		r.Columns[i] = ColumnStats{
			Column:     col.Display[reconcilebase.Left],
			Compared:   compared,
			Mismatched: mismatched,
			MatchRate:  percentage(compared-mismatched, compared),
		}
	}

	n := min(sampleSize, len(p.Mismatched))
	r.MismatchedSample = make([]MismatchSample, n)
	for i, m := range p.Mismatched[:n] {
		r.MismatchedSample[i] = MismatchSample{
			Key:            m.KeyValues,
			Diffs:          m.Diffs,
			NumMismatching: m.NumMismatching,
		}
	}
	return r
}

func sampleRows(ds dataset.Dataset, rows []inconsistency.UnmatchedRow, sampleSize int) Table {
	n := min(sampleSize, len(rows))
	t := Table{
		Columns: ds.ColumnNames(),
		Rows:    make([]dataset.Row, n),
		Total:   len(rows),
	}
	for i, r := range rows[:n] {
		t.Rows[i] = ds.Rows[r.RowIdx]
	}
	return t
}

func percentage(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(n) / float64(total)
}
