package pgsource

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbconn"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/extract"
	"github.com/tmcheck/tmcheck/testutils"
)

func TestFetchIntegration(t *testing.T) {
	conn := testutils.ConnectOrSkip(t, "pg", testutils.PGConnStr())
	pgConn, ok := conn.(*dbconn.PGConn)
	require.True(t, ok, "expected a postgres connection, got %T", conn)

	datadriven.RunTest(t, "testdata/fetch", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "exec":
			return testutils.ExecConnCommand(t, d, conn)
		case "fetch":
			q := extract.Query{}
			for _, arg := range d.CmdArgs {
				switch arg.Key {
				case "table":
					name, err := dbtable.ParseName(arg.Vals[0])
					require.NoError(t, err)
					q.Table = name
				case "columns":
					q.Columns = arg.Vals
				}
			}
			q.Filter = strings.TrimSpace(d.Input)
			src := New(pgConn, q, dbtable.SourceInfo{Type: "postgres", Table: q.Table}, zerolog.Nop())
			ds, err := src.Fetch(context.Background())
			if err != nil {
				return fmt.Sprintf("error: %s\n", err.Error())
			}
			return formatDataset(ds)
		}
		t.Fatalf("unknown command: %s", d.Cmd)
		return ""
	})
}

func formatDataset(ds dataset.Dataset) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(ds.ColumnNames(), "\t"))
	sb.WriteString("\n")
	for _, row := range ds.Rows {
		for i, v := range row {
			if i > 0 {
				sb.WriteString("\t")
			}
			sb.WriteString(fmt.Sprintf("%s:%s", v.Kind(), v))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
