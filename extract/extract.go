// Package extract materializes the two sides of a reconciliation from
// databases or snapshot files. It sits outside the engine: nothing in
// reconcile performs I/O.
package extract

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbtable"
	"golang.org/x/sync/errgroup"
)

var (
	rowsFetchedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tmcheck",
		Subsystem: "extract",
		Name:      "rows_fetched",
		Help:      "Number of rows materialized from a source.",
	}, []string{"side"})
	fetchDurationMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tmcheck",
		Subsystem: "extract",
		Name:      "fetch_duration_seconds",
		Help:      "Time taken to materialize a source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"side"})
)

// Source produces one side of a reconciliation.
type Source interface {
	// Info labels the source in reports.
	Info() dbtable.SourceInfo
	// Fetch reads the whole source into memory.
	Fetch(ctx context.Context) (dataset.Dataset, error)
}

// Query selects the rows of a database table. An empty Columns list selects
// every column. Filter is an optional boolean predicate in the source's SQL
// dialect; it is validated and re-rendered before use.
type Query struct {
	Table   dbtable.Name
	Columns []string
	Filter  string
}

// FetchPair materializes both sources concurrently. It returns only once
// both have finished; if either fails the other is cancelled and no
// datasets are returned.
func FetchPair(
	ctx context.Context, logger zerolog.Logger, left, right Source,
) (dataset.Dataset, dataset.Dataset, error) {
	var ret [2]dataset.Dataset
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range []Source{left, right} {
		i, src := i, src
		side := [2]string{"left", "right"}[i]
		g.Go(func() error {
			start := time.Now()
			ds, err := src.Fetch(gctx)
			if err != nil {
				return errors.Wrapf(err, "error fetching %s (%s)", side, src.Info().Label())
			}
			fetchDurationMetric.WithLabelValues(side).Observe(time.Since(start).Seconds())
			rowsFetchedMetric.WithLabelValues(side).Add(float64(ds.NumRows()))
			logger.Info().
				Str("side", side).
				Str("source", src.Info().Label()).
				Int("rows", ds.NumRows()).
				Int("columns", len(ds.Columns)).
				Dur("duration", time.Since(start)).
				Msgf("fetched dataset")
			ret[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dataset.Dataset{}, dataset.Dataset{}, err
	}
	return ret[0], ret[1], nil
}

// Static is a Source over an already materialized dataset.
type Static struct {
	SourceInfo dbtable.SourceInfo
	Dataset    dataset.Dataset
}

func (s Static) Info() dbtable.SourceInfo {
	return s.SourceInfo
}

func (s Static) Fetch(ctx context.Context) (dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, err
	}
	return s.Dataset, nil
}
