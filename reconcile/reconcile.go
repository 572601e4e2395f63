// Package reconcile compares two materialized datasets keyed by a composite
// join key and produces a reconciliation report.
package reconcile

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/reconcile/cellcmp"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/joinkey"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
	"github.com/tmcheck/tmcheck/reconcile/report"
	"github.com/tmcheck/tmcheck/reconcile/rowverify"
	"github.com/tmcheck/tmcheck/reconcile/schemaverify"
)

// Config is the comparison configuration.
type Config struct {
	// JoinKey holds up to four candidate key column names.
	JoinKey []string
	// Epsilon is the largest absolute difference at which two numbers are
	// still equal.
	Epsilon float64
	// MaxDiffsPerRow caps the cell diffs kept per mismatched row. Zero means
	// cellcmp.DefaultMaxDiffsPerRow.
	MaxDiffsPerRow int
	// SampleSize caps each sample table. Zero means report.DefaultSampleSize.
	SampleSize int

	// Left and Right label the datasets in the report.
	Left, Right dbtable.SourceInfo
}

type ReconcileOpt func(*reconcileOpts)

type reconcileOpts struct {
	logger   zerolog.Logger
	reporter inconsistency.Reporter
	now      func() time.Time
}

func WithLogger(l zerolog.Logger) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.logger = l
	}
}

// WithReporter receives every inconsistency as it is found.
func WithReporter(r inconsistency.Reporter) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.reporter = r
	}
}

func WithClock(now func() time.Time) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.now = now
	}
}

// Result is the outcome of a single reconciliation.
type Result struct {
	RunID       uuid.UUID             `json:"runId"`
	GeneratedAt time.Time             `json:"generatedAt"`
	JoinKey     reconcilebase.JoinKey `json:"joinKey"`
	Report      report.Report         `json:"report"`

	Alignment schemaverify.Alignment `json:"-"`
	Partition rowverify.Partition    `json:"-"`
}

// Notification returns the notifier payload for the result.
func (r Result) Notification() report.Notification {
	return r.Report.Notification(r.GeneratedAt)
}

// Warnings returns every non-fatal warning, schema warnings first.
func (r Result) Warnings() []inconsistency.ReportableObject {
	ret := make([]inconsistency.ReportableObject, 0, len(r.Report.SchemaWarnings)+len(r.Report.DuplicateKeys))
	for _, w := range r.Report.SchemaWarnings {
		ret = append(ret, w)
	}
	for _, w := range r.Report.DuplicateKeys {
		ret = append(ret, w)
	}
	return ret
}

// Reconcile compares left and right. It performs no I/O and holds no state
// between calls. Configuration problems are returned as errors marked with
// reconcilebase.ErrConfiguration and produce no result.
func Reconcile(
	left, right dataset.Dataset, cfg Config, inOpts ...ReconcileOpt,
) (Result, error) {
	opts := reconcileOpts{
		logger:   zerolog.Nop(),
		reporter: inconsistency.CombinedReporter{},
		now:      time.Now,
	}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	logger := opts.logger

	if cfg.SampleSize < 0 {
		return Result{}, reconcilebase.ConfigurationErrorf("sample size must be >= 0, got %d", cfg.SampleSize)
	}
	key, err := joinkey.Resolve(cfg.JoinKey)
	if err != nil {
		return Result{}, errors.Wrap(err, "error resolving join key")
	}
	alignment, err := schemaverify.Align(left, right, key)
	if err != nil {
		return Result{}, errors.Wrap(err, "error aligning columns")
	}
	cmp, err := cellcmp.New(
		cellcmp.Config{Epsilon: cfg.Epsilon, MaxDiffsPerRow: cfg.MaxDiffsPerRow},
		alignment.Columns,
	)
	if err != nil {
		return Result{}, errors.Wrap(err, "error configuring comparator")
	}

	for _, w := range alignment.Warnings {
		opts.reporter.Report(w)
	}

	logger.Info().
		Str("left", cfg.Left.Label()).
		Str("right", cfg.Right.Label()).
		Int("left_rows", left.NumRows()).
		Int("right_rows", right.NumRows()).
		Str("join_key", key.String()).
		Int("columns", len(alignment.Columns)).
		Msgf("starting reconciliation")

	evl := rowverify.NewPartitionListener(len(alignment.Columns), opts.reporter)
	rowverify.Join(left, right, alignment, cmp, evl)

	rep := report.Aggregate(report.Input{
		Left:      left,
		Right:     right,
		LeftInfo:  cfg.Left,
		RightInfo: cfg.Right,
		Alignment: alignment,
		Partition: evl.Partition,
	}, report.Config{SampleSize: cfg.SampleSize})

	logger.Info().
		Float64("match_percentage", rep.Summary.MatchPercentage).
		Msgf("finished reconciliation: %s", evl.Summary())

	return Result{
		RunID:       uuid.New(),
		GeneratedAt: opts.now().UTC(),
		JoinKey:     key,
		Report:      rep,
		Alignment:   alignment,
		Partition:   evl.Partition,
	}, nil
}
