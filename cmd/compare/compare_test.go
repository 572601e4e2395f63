package compare

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile"
	"github.com/tmcheck/tmcheck/reconcile/report"
)

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left.csv")
	right := filepath.Join(dir, "right.jsonl")
	require.NoError(t, os.WriteFile(left, []byte(`id,amount,status
1,10.00,open
2,20.00,closed
3,30.00,open
`), 0o644))
	require.NoError(t, os.WriteFile(right, []byte(`{"id": 1, "amount": 10.001, "status": "open"}
{"id": 2, "amount": 20, "status": "CLOSED"}
{"id": 4, "amount": 40, "status": "open"}
`), 0o644))
	out := filepath.Join(dir, "report.txt")
	notification := filepath.Join(dir, "notification.json")

	cmd := Command()
	cmd.SetArgs([]string{
		"--source", left,
		"--source-type", "snowflake",
		"--source-table", "db.s.orders",
		"--source-column-types", "id:int,amount:decimal",
		"--target", right,
		"--target-type", "sqlserver",
		"--target-table", "db.dbo.orders",
		"--primary-key", "id",
		"--epsilon", "0.01",
		"--output", out,
		"--notification-file", notification,
		"--metrics-listen-addr", "",
		"--env-file", "",
		"--level", "error",
	})
	require.NoError(t, cmd.Execute())

	text, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(text), "TableMigrationCheck Reconciliation Report\n"))
	require.Contains(t, string(text), "SNOWFLAKE: db.s.orders")
	require.Contains(t, string(text), "SQLSERVER: db.dbo.orders")

	b, err := os.ReadFile(notification)
	require.NoError(t, err)
	var n report.Notification
	require.NoError(t, json.Unmarshal(b, &n))
	require.True(t, strings.HasPrefix(n.Subject, "TableMigrationCheck Results: SNOWFLAKE: db.s.orders vs SQLSERVER: db.dbo.orders - "))
	// 1 matched, 1 mismatched (status), 1 only left, 1 only right.
	require.Equal(t, 25.0, n.MatchPercentage)
	require.Equal(t, string(text), n.Body)
}

func runExample(t *testing.T) reconcile.Result {
	left := dataset.MustNew([]string{"id", "val"}, []dataset.Row{
		{dataset.Int(1), dataset.String("a")},
		{dataset.Int(2), dataset.String("b")},
	})
	right := dataset.MustNew([]string{"id", "val"}, []dataset.Row{
		{dataset.Int(1), dataset.String("a")},
		{dataset.Int(2), dataset.String("c")},
	})
	res, err := reconcile.Reconcile(left, right, reconcile.Config{JoinKey: []string{"id"}})
	require.NoError(t, err)
	return res
}

func TestWriteResultOutputErrors(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	res := runExample(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	require.NoError(t, writeResult(res, outputConfig{format: "json", output: out}))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(b), `"matchPercentage"`)

	for _, format := range []string{"text", "json"} {
		t.Run(format, func(t *testing.T) {
			err := writeResult(res, outputConfig{format: format, output: "/dev/full"})
			require.Error(t, err)
			require.Contains(t, err.Error(), "no space left on device")
		})
	}

	err = writeResult(res, outputConfig{format: "text", output: filepath.Join(dir, "missing", "report.txt")})
	require.ErrorContains(t, err, "error creating")
}

func TestCompareCommandErrors(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(data, []byte("id\n1\n"), 0o644))

	for _, tc := range []struct {
		desc string
		args []string
		err  string
	}{
		{
			desc: "missing key",
			args: []string{"--source", data, "--target", data},
			err:  "error reconciling",
		},
		{
			desc: "bad format",
			args: []string{"--source", data, "--target", data, "--primary-key", "id", "--format", "xml", "--output", filepath.Join(dir, "out")},
			err:  `unknown format "xml"`,
		},
		{
			desc: "missing target",
			args: []string{"--source", data, "--primary-key", "id"},
			err:  "--target must be set",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cmd := Command()
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			cmd.SetArgs(append(tc.args, "--metrics-listen-addr", "", "--env-file", "", "--level", "error"))
			err := cmd.Execute()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}
