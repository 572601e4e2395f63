package rowverify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

type RowEventListener interface {
	OnUnmatchedRow(row inconsistency.UnmatchedRow)
	// OnMismatchingRow receives the row and the index of every differing
	// comparable column.
	OnMismatchingRow(row inconsistency.MismatchingRow, mismatchedColumns []int)
	OnMatch(leftIdx, rightIdx int)
	OnDuplicateKey(w inconsistency.DuplicateKeyWarning)
	OnRowScan()
}

var (
	rowStatusMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tmcheck",
		Subsystem: "reconcile",
		Name:      "row_status",
		Help:      "Status of rows that have been reconciled.",
	}, []string{"status"})
	rowsScannedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tmcheck",
		Subsystem: "reconcile",
		Name:      "rows_scanned",
		Help:      "Number of rows scanned across both datasets.",
	})
)

func init() {
	// Initialise each metric by default.
	for _, s := range []string{"only_left", "only_right", "mismatching", "matched", "duplicate_key"} {
		rowStatusMetric.WithLabelValues(s)
	}
}

const progressInterval = 100000

// RowPair is a pair of row indexes, left then right.
type RowPair [2]int

// Partition is the classification of every row of both datasets. Every row
// appears exactly once across Matched, Mismatched, OnlyLeft and OnlyRight.
type Partition struct {
	Matched    []RowPair
	Mismatched []inconsistency.MismatchingRow
	OnlyLeft   []inconsistency.UnmatchedRow
	OnlyRight  []inconsistency.UnmatchedRow

	DuplicateKeys []inconsistency.DuplicateKeyWarning

	// ColumnMismatches counts, per comparable column, the row pairs in which
	// that column differed.
	ColumnMismatches []int
}

// PartitionListener collects join events into a Partition, forwarding each
// inconsistency to a reporter.
type PartitionListener struct {
	Partition Partition

	reporter inconsistency.Reporter
	stats    rowStats
}

func NewPartitionListener(numColumns int, reporter inconsistency.Reporter) *PartitionListener {
	return &PartitionListener{
		Partition: Partition{ColumnMismatches: make([]int, numColumns)},
		reporter:  reporter,
	}
}

func (n *PartitionListener) OnUnmatchedRow(row inconsistency.UnmatchedRow) {
	n.reporter.Report(row)
	switch row.Side {
	case reconcilebase.Left:
		n.Partition.OnlyLeft = append(n.Partition.OnlyLeft, row)
		n.stats.numOnlyLeft++
		rowStatusMetric.WithLabelValues("only_left").Inc()
	default:
		n.Partition.OnlyRight = append(n.Partition.OnlyRight, row)
		n.stats.numOnlyRight++
		rowStatusMetric.WithLabelValues("only_right").Inc()
	}
}

func (n *PartitionListener) OnMismatchingRow(
	row inconsistency.MismatchingRow, mismatchedColumns []int,
) {
	n.reporter.Report(row)
	n.Partition.Mismatched = append(n.Partition.Mismatched, row)
	for _, c := range mismatchedColumns {
		n.Partition.ColumnMismatches[c]++
	}
	n.stats.numMismatch++
	rowStatusMetric.WithLabelValues("mismatching").Inc()
}

func (n *PartitionListener) OnMatch(leftIdx, rightIdx int) {
	n.Partition.Matched = append(n.Partition.Matched, RowPair{leftIdx, rightIdx})
	n.stats.numMatched++
	rowStatusMetric.WithLabelValues("matched").Inc()
}

func (n *PartitionListener) OnDuplicateKey(w inconsistency.DuplicateKeyWarning) {
	n.reporter.Report(w)
	n.Partition.DuplicateKeys = append(n.Partition.DuplicateKeys, w)
	n.stats.numDuplicate++
	rowStatusMetric.WithLabelValues("duplicate_key").Inc()
}

func (n *PartitionListener) OnRowScan() {
	if n.stats.numScanned%progressInterval == 0 && n.stats.numScanned > 0 {
		n.reporter.Report(inconsistency.StatusReport{
			Info: "reconciliation progress: " + n.stats.String(),
		})
	}
	rowsScannedMetric.Inc()
	n.stats.numScanned++
}

// Summary describes the collected statistics.
func (n *PartitionListener) Summary() string {
	return n.stats.String()
}
