package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
	"github.com/tmcheck/tmcheck/testutils"
)

func mustParse(t *testing.T, input string) dataset.Dataset {
	ds, err := testutils.ParseDataset(input)
	require.NoError(t, err)
	return ds
}

func keysOf(t *testing.T, rows []inconsistency.UnmatchedRow) []string {
	ret := []string{}
	for _, r := range rows {
		ret = append(ret, inconsistency.FormatKey(r.KeyColumns, r.KeyValues))
	}
	return ret
}

func TestReconcileScenarios(t *testing.T) {
	a := mustParse(t, "id:int,val:string\n1,x\n2,y")
	b := mustParse(t, "id:int,val:string\n1,x\n3,z")

	res, err := Reconcile(a, b, Config{JoinKey: []string{"id"}})
	require.NoError(t, err)
	p := res.Partition
	require.Len(t, p.Matched, 1)
	require.Equal(t, int64(1), a.Rows[p.Matched[0][0]][0].AsInt())
	require.Empty(t, p.Mismatched)
	require.Equal(t, []string{"id=2"}, keysOf(t, p.OnlyLeft))
	require.Equal(t, []string{"id=3"}, keysOf(t, p.OnlyRight))

	a = mustParse(t, "id:int,amt:float\n1,10.001")
	b = mustParse(t, "id:int,amt:float\n1,10.002")
	res, err = Reconcile(a, b, Config{JoinKey: []string{"id"}, Epsilon: 0.01})
	require.NoError(t, err)
	require.Len(t, res.Partition.Matched, 1)
	require.Empty(t, res.Partition.Mismatched)

	res, err = Reconcile(a, b, Config{JoinKey: []string{"id"}})
	require.NoError(t, err)
	require.Empty(t, res.Partition.Matched)
	require.Len(t, res.Partition.Mismatched, 1)
	require.Equal(t, []reconcilebase.CellDiff{
		{Column: "amt", Left: dataset.Float(10.001), Right: dataset.Float(10.002)},
	}, res.Partition.Mismatched[0].Diffs)
}

func TestReconcileIdentical(t *testing.T) {
	ds := mustParse(t, "id:int,region:string,val:decimal,ts:timestamp(us)\n"+
		"1,eu,1.5,2023-01-01T00:00:00.000001Z\n"+
		"1,us,NULL,2023-01-01T00:00:00Z\n"+
		"2,eu,-3,NULL\n")
	res, err := Reconcile(ds, ds, Config{JoinKey: []string{"id", "region"}})
	require.NoError(t, err)
	s := res.Report.Summary
	require.Equal(t, 3, s.MatchedRows)
	require.Zero(t, s.MismatchedRows)
	require.Zero(t, s.OnlyLeftRows)
	require.Zero(t, s.OnlyRightRows)
	require.Equal(t, float64(100), s.MatchPercentage)
	require.Empty(t, res.Warnings())
}

func TestReconcileDisjoint(t *testing.T) {
	a := mustParse(t, "id:int,val:string\n1,a\n2,b\n3,c")
	b := mustParse(t, "id:int,val:string\n4,a\n5,b")
	res, err := Reconcile(a, b, Config{JoinKey: []string{"id"}})
	require.NoError(t, err)
	s := res.Report.Summary
	require.Zero(t, s.MatchedRows)
	require.Zero(t, s.MismatchedRows)
	require.Equal(t, 3, s.OnlyLeftRows)
	require.Equal(t, 2, s.OnlyRightRows)
	require.Equal(t, float64(0), s.MatchPercentage)
}

func TestReconcileSymmetric(t *testing.T) {
	a := mustParse(t, "id:int,k:string,val:float\n1,a,1\n2,a,2\n3,b,3\n3,b,4\n5,c,5")
	b := mustParse(t, "K:string,ID:int,VAL:float\nb,3,3\na,2,2.5\nz,9,0\nb,3,9")
	cfg := Config{JoinKey: []string{"id", "k"}}

	ab, err := Reconcile(a, b, cfg)
	require.NoError(t, err)
	ba, err := Reconcile(b, a, cfg)
	require.NoError(t, err)

	require.Equal(t, ab.Report.Summary.MatchedRows, ba.Report.Summary.MatchedRows)
	require.Equal(t, ab.Report.Summary.MismatchedRows, ba.Report.Summary.MismatchedRows)
	onlyRowIdx := func(rows []inconsistency.UnmatchedRow) []int {
		ret := []int{}
		for _, r := range rows {
			ret = append(ret, r.RowIdx)
		}
		return ret
	}
	require.Equal(t, onlyRowIdx(ab.Partition.OnlyLeft), onlyRowIdx(ba.Partition.OnlyRight))
	require.Equal(t, onlyRowIdx(ab.Partition.OnlyRight), onlyRowIdx(ba.Partition.OnlyLeft))
	require.Equal(t, 1, ab.Report.Summary.MatchedRows)
	require.Equal(t, 1, ab.Report.Summary.MismatchedRows)
}

func TestReconcileEpsilonBoundary(t *testing.T) {
	a := mustParse(t, "id:int,amt:decimal\n1,1.25")
	for _, tc := range []struct {
		right    string
		match    bool
		epsilion float64
	}{
		{right: "1.50", epsilion: 0.25, match: true},
		{right: "1.00", epsilion: 0.25, match: true},
		{right: "1.5000001", epsilion: 0.25, match: false},
		{right: "0.9999999", epsilion: 0.25, match: false},
		{right: "1.25", match: true},
		{right: "1.2500000001", match: false},
	} {
		t.Run(fmt.Sprintf("%s/%v", tc.right, tc.epsilion), func(t *testing.T) {
			b := mustParse(t, "id:int,amt:decimal\n1,"+tc.right)
			res, err := Reconcile(a, b, Config{JoinKey: []string{"id"}, Epsilon: tc.epsilion})
			require.NoError(t, err)
			if tc.match {
				require.Equal(t, 1, res.Report.Summary.MatchedRows)
			} else {
				require.Equal(t, 1, res.Report.Summary.MismatchedRows)
			}
		})
	}
}

func TestReconcileNullVersusZero(t *testing.T) {
	a := mustParse(t, "id:int,v:int\n1,NULL")
	b := mustParse(t, "id:int,v:int\n1,0")
	res, err := Reconcile(a, b, Config{JoinKey: []string{"id"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Report.Summary.MismatchedRows)
}

func TestReconcileSampleCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id:int,v:string\n")
	for i := 0; i < 500; i++ {
		sb.WriteString(strconv.Itoa(i) + ",v\n")
	}
	a := mustParse(t, sb.String())
	b := mustParse(t, "id:int,v:string")
	res, err := Reconcile(a, b, Config{JoinKey: []string{"id"}, SampleSize: 100})
	require.NoError(t, err)
	require.Len(t, res.Report.OnlyLeftSample.Rows, 100)
	require.Equal(t, 500, res.Report.Summary.OnlyLeftRows)
	require.Equal(t, 500, res.Report.OnlyLeftSample.Total)
}

func TestReconcileErrors(t *testing.T) {
	a := mustParse(t, "id:int,val:string,only_a:int")
	b := mustParse(t, "id:int,val:string")
	for _, tc := range []struct {
		desc          string
		left, right   dataset.Dataset
		cfg           Config
		expectedError string
	}{
		{
			desc:          "no key",
			left:          a,
			right:         b,
			cfg:           Config{JoinKey: []string{"", "  "}},
			expectedError: "error resolving join key: at least one join key column is required",
		},
		{
			desc:          "too many keys",
			left:          a,
			right:         b,
			cfg:           Config{JoinKey: []string{"a", "b", "c", "d", "e"}},
			expectedError: "error resolving join key: at most 4 join key columns are supported, got 5",
		},
		{
			desc:          "missing key column",
			left:          a,
			right:         b,
			cfg:           Config{JoinKey: []string{"only_a"}},
			expectedError: "error aligning columns: join key column only_a not found in right dataset",
		},
		{
			desc:          "nothing to compare",
			left:          a,
			right:         b,
			cfg:           Config{JoinKey: []string{"id", "val"}},
			expectedError: "error aligning columns: no comparable columns outside the join key",
		},
		{
			desc:          "negative epsilon",
			left:          a,
			right:         b,
			cfg:           Config{JoinKey: []string{"id"}, Epsilon: -1},
			expectedError: "error configuring comparator: epsilon must be a finite value >= 0, got -1",
		},
		{
			desc:          "negative sample size",
			left:          a,
			right:         b,
			cfg:           Config{JoinKey: []string{"id"}, SampleSize: -1},
			expectedError: "sample size must be >= 0, got -1",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			res, err := Reconcile(tc.left, tc.right, tc.cfg)
			require.EqualError(t, err, tc.expectedError)
			require.True(t, errors.Is(err, reconcilebase.ErrConfiguration))
			require.Equal(t, Result{}, res)
		})
	}
}

func TestReconcileResult(t *testing.T) {
	a := mustParse(t, "ID:int,Val:string,extra:int\n1,x,1\n1,y,2")
	b := mustParse(t, "id:int,val:string\n1,x")
	at := time.Date(2023, 7, 1, 10, 0, 0, 0, time.UTC)

	var reported []inconsistency.ReportableObject
	res, err := Reconcile(
		a,
		b,
		Config{
			JoinKey: []string{"Id"},
			Left:    dbtable.SourceInfo{Type: "snowflake", Table: dbtable.Name{Database: "db", Schema: "s", Table: "t"}},
			Right:   dbtable.SourceInfo{Type: "sqlserver", Table: dbtable.Name{Database: "db", Schema: "dbo", Table: "t"}},
		},
		WithClock(func() time.Time { return at }),
		WithReporter(reporterFunc(func(obj inconsistency.ReportableObject) {
			reported = append(reported, obj)
		})),
	)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.RunID)
	require.Equal(t, at, res.GeneratedAt)
	require.Equal(t, reconcilebase.JoinKey{"id"}, res.JoinKey)
	require.Len(t, res.Warnings(), 2)
	require.IsType(t, inconsistency.SchemaMismatchWarning{}, res.Warnings()[0])
	require.IsType(t, inconsistency.DuplicateKeyWarning{}, res.Warnings()[1])
	// The schema warning, the duplicate warning and the duplicate row.
	require.Len(t, reported, 3)

	n := res.Notification()
	require.Equal(
		t,
		"TableMigrationCheck Results: SNOWFLAKE: db.s.t vs SQLSERVER: db.dbo.t - 2023-07-01T10:00:00Z",
		n.Subject,
	)
	require.Equal(t, res.Report.Text(), n.Body)
	require.Equal(t, float64(50), n.MatchPercentage)

	other, err := Reconcile(a, b, Config{JoinKey: []string{"id"}})
	require.NoError(t, err)
	require.NotEqual(t, res.RunID, other.RunID)
}

type reporterFunc func(obj inconsistency.ReportableObject)

func (f reporterFunc) Report(obj inconsistency.ReportableObject) { f(obj) }
func (f reporterFunc) Close()                                     {}

func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata/datadriven", func(t *testing.T, path string) {
		datasets := make(map[string]dataset.Dataset)
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "dataset":
				var name string
				d.ScanArgs(t, "name", &name)
				ds, err := testutils.ParseDataset(d.Input)
				if err != nil {
					return fmt.Sprintf("error: %s\n", err.Error())
				}
				datasets[name] = ds
				return fmt.Sprintf("%d columns, %d rows\n", len(ds.Columns), ds.NumRows())
			case "reconcile":
				return runReconcile(t, d, datasets)
			default:
				t.Fatalf("unknown command: %s", d.Cmd)
			}
			return ""
		})
	})
}

func runReconcile(t *testing.T, d *datadriven.TestData, datasets map[string]dataset.Dataset) string {
	var sb strings.Builder
	var cfg Config
	left, right := "left", "right"
	var withLog bool
	for _, arg := range d.CmdArgs {
		switch arg.Key {
		case "left":
			left = arg.Vals[0]
		case "right":
			right = arg.Vals[0]
		case "key":
			cfg.JoinKey = arg.Vals
		case "epsilon":
			var err error
			cfg.Epsilon, err = strconv.ParseFloat(arg.Vals[0], 64)
			require.NoError(t, err)
		case "max-diffs":
			var err error
			cfg.MaxDiffsPerRow, err = strconv.Atoi(arg.Vals[0])
			require.NoError(t, err)
		case "sample-size":
			var err error
			cfg.SampleSize, err = strconv.Atoi(arg.Vals[0])
			require.NoError(t, err)
		case "left-source":
			require.Len(t, arg.Vals, 2)
			cfg.Left = sourceInfo(t, arg.Vals[0], arg.Vals[1])
		case "right-source":
			require.Len(t, arg.Vals, 2)
			cfg.Right = sourceInfo(t, arg.Vals[0], arg.Vals[1])
		case "log":
			withLog = true
		default:
			t.Fatalf("unknown argument: %s", arg.Key)
		}
	}
	leftDS, ok := datasets[left]
	require.True(t, ok, "unknown dataset %s", left)
	rightDS, ok := datasets[right]
	require.True(t, ok, "unknown dataset %s", right)

	opts := []ReconcileOpt{WithLogger(zerolog.Nop())}
	if withLog {
		opts = append(opts, WithReporter(&inconsistency.LogReporter{
			Logger: zerolog.New(&sb).Level(zerolog.DebugLevel),
		}))
	}
	res, err := Reconcile(leftDS, rightDS, cfg, opts...)
	if err != nil {
		sb.WriteString(fmt.Sprintf("error: %s\n", err.Error()))
		return sb.String()
	}
	sb.WriteString(res.Report.Text())
	return sb.String()
}

func sourceInfo(t *testing.T, typ string, table string) dbtable.SourceInfo {
	n, err := dbtable.ParseName(table)
	require.NoError(t, err)
	return dbtable.SourceInfo{Type: typ, Table: n}
}
