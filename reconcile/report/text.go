package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/tmcheck/tmcheck/dataset"
)

const reportTitle = "TableMigrationCheck Reconciliation Report"

// WriteText renders the report as plain text. Sections always appear in the
// same order and nothing run specific (time, run ID) is included, so equal
// reports render byte-identical text.
func (r Report) WriteText(w io.Writer) error {
	tw := &textWriter{w: w}

	tw.heading(reportTitle, "=")
	tw.linef("%-10s%s", "Left:", r.Left.Label())
	tw.linef("%-10s%s", "Right:", r.Right.Label())
	tw.linef("%-10s%s", "Join key:", strings.Join(r.KeyColumns, ", "))

	s := r.Summary
	tw.section("Summary")
	for _, l := range []struct {
		label string
		val   string
	}{
		{"Left rows:", strconv.Itoa(s.LeftRows)},
		{"Right rows:", strconv.Itoa(s.RightRows)},
		{"Matched rows:", strconv.Itoa(s.MatchedRows)},
		{"Mismatched rows:", strconv.Itoa(s.MismatchedRows)},
		{"Only in left:", strconv.Itoa(s.OnlyLeftRows)},
		{"Only in right:", strconv.Itoa(s.OnlyRightRows)},
		{"Columns compared:", strconv.Itoa(s.ColumnsCompared)},
		{"Duplicate keys:", strconv.Itoa(s.DuplicateKeys)},
		{"Match percentage:", formatPercentage(s.MatchPercentage)},
	} {
		tw.linef("%-19s%s", l.label, l.val)
	}

	tw.section("Schema Differences")
	tw.linef("%-16s%s", "Only in left:", listOrNone(r.OnlyInLeftColumns))
	tw.linef("%-16s%s", "Only in right:", listOrNone(r.OnlyInRightColumns))

	tw.section("Warnings")
	if len(r.SchemaWarnings)+len(r.DuplicateKeys) == 0 {
		tw.line("(none)")
	}
	for _, w := range r.SchemaWarnings {
		tw.line(w.String())
	}
	for _, w := range r.DuplicateKeys {
		tw.line(w.String())
	}

	tw.section("Column Match Rates")
	rates := [][]string{{"COLUMN", "COMPARED", "MISMATCHED", "MATCH RATE"}}
	for _, c := range r.Columns {
		rates = append(rates, []string{
			c.Column,
			strconv.Itoa(c.Compared),
			strconv.Itoa(c.Mismatched),
			formatPercentage(c.MatchRate),
		})
	}
	tw.table(rates)

	tw.sampleTable("Rows Only In Left", r.OnlyLeftSample)
	tw.sampleTable("Rows Only In Right", r.OnlyRightSample)

	tw.section(fmt.Sprintf("Mismatched Rows (showing %d of %d)", len(r.MismatchedSample), r.MismatchedTotal))
	if len(r.MismatchedSample) == 0 {
		tw.line("(none)")
	} else {
		header := append(append([]string(nil), r.KeyColumns...), "COLUMN", "LEFT", "RIGHT")
		mismatches := [][]string{header}
		for _, m := range r.MismatchedSample {
			key := cells(m.Key)
			for _, d := range m.Diffs {
				mismatches = append(
					mismatches,
					append(append([]string(nil), key...), cell(dataset.String(d.Column)), cell(d.Left), cell(d.Right)),
				)
			}
			if more := m.NumMismatching - len(m.Diffs); more > 0 {
				mismatches = append(
					mismatches,
					append(append([]string(nil), key...), fmt.Sprintf("(+%d more)", more), "", ""),
				)
			}
		}
		tw.table(mismatches)
	}

	tw.line("")
	tw.line("End of report.")
	return tw.err
}

// Text is WriteText into a string.
func (r Report) Text() string {
	var sb strings.Builder
	// strings.Builder never fails a write.
	_ = r.WriteText(&sb)
	return sb.String()
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.w, s+"\n")
}

func (t *textWriter) linef(format string, args ...interface{}) {
	t.line(fmt.Sprintf(format, args...))
}

func (t *textWriter) heading(title string, underline string) {
	t.line(title)
	t.line(strings.Repeat(underline, len(title)))
}

func (t *textWriter) section(title string) {
	t.line("")
	t.heading(title, "-")
}

// table writes rows aligned in columns separated by two spaces. Lines carry
// no trailing padding.
func (t *textWriter) table(rows [][]string) {
	if t.err != nil {
		return
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		if _, err := io.WriteString(w, strings.Join(row, "\t")+"\n"); err != nil {
			t.err = errors.Wrap(err, "error writing table")
			return
		}
	}
	if err := w.Flush(); err != nil {
		t.err = errors.Wrap(err, "error flushing table")
		return
	}
	for _, l := range strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n") {
		t.line(strings.TrimRight(l, " "))
	}
}

func (t *textWriter) sampleTable(title string, s Table) {
	t.section(fmt.Sprintf("%s (showing %d of %d)", title, len(s.Rows), s.Total))
	if len(s.Rows) == 0 {
		t.line("(none)")
		return
	}
	rows := make([][]string, 0, len(s.Rows)+1)
	rows = append(rows, s.Columns)
	for _, r := range s.Rows {
		rows = append(rows, cells(r))
	}
	t.table(rows)
}

func cells(vals []dataset.Value) []string {
	ret := make([]string, len(vals))
	for i, v := range vals {
		ret[i] = cell(v)
	}
	return ret
}

// cell renders a value for a table cell. Strings holding characters which
// would break the layout are quoted.
func cell(v dataset.Value) string {
	s := v.String()
	if v.Kind() == dataset.KindString && strings.ContainsAny(s, "\t\n\r") {
		return strconv.Quote(s)
	}
	return s
}

func formatPercentage(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64) + "%"
}

func listOrNone(l []string) string {
	if len(l) == 0 {
		return "(none)"
	}
	return strings.Join(l, ", ")
}
