package inconsistency

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

type StatusReport struct {
	Info string
}

// LogReporter reports to `zerolog`. Row level objects are logged at debug
// so that large reconciliations do not flood the console.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case SchemaMismatchWarning:
		l.Warn().
			Str("side", obj.Side.String()).
			Str("column", obj.Column).
			Msgf("column only present on one side")
	case DuplicateKeyWarning:
		l.Warn().
			Str("side", obj.Side.String()).
			Int("row", obj.RowIdx+1).
			Int("first_row", obj.FirstIdx+1).
			Strs("primary_key", reportableVals(obj.KeyValues)).
			Msgf("duplicate key")
	case StatusReport:
		l.Info().Msg(obj.Info)
	case MismatchingRow:
		leftVals := zerolog.Dict()
		rightVals := zerolog.Dict()
		for _, d := range obj.Diffs {
			leftVals = leftVals.Str(d.Column, d.Left.String())
			rightVals = rightVals.Str(d.Column, d.Right.String())
		}
		l.Debug().
			Dict("left_values", leftVals).
			Dict("right_values", rightVals).
			Int("num_mismatching", obj.NumMismatching).
			Strs("primary_key", reportableVals(obj.KeyValues)).
			Msgf("mismatching row value")
	case UnmatchedRow:
		msg := "row only in left dataset"
		if obj.Side == reconcilebase.Right {
			msg = "row only in right dataset"
		}
		l.Debug().
			Int("row", obj.RowIdx+1).
			Bool("duplicate", obj.Duplicate).
			Strs("primary_key", reportableVals(obj.KeyValues)).
			Msg(msg)
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) Close() {
}
