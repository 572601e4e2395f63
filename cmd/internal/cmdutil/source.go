package cmdutil

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbconn"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/extract"
	"github.com/tmcheck/tmcheck/extract/mysqlsource"
	"github.com/tmcheck/tmcheck/extract/pgsource"
	"github.com/tmcheck/tmcheck/extract/snapshot"
	"github.com/tmcheck/tmcheck/extract/sqlserversource"
)

// SourceConfig describes one side of a comparison.
type SourceConfig struct {
	URL         string
	Table       string
	Columns     []string
	Filter      string
	Type        string
	ColumnTypes string
}

// RegisterSourceFlags registers the flags for one side. The side name
// prefixes every flag except the URL, e.g. --source and --source-table.
func RegisterSourceFlags(cmd *cobra.Command, side string, cfg *SourceConfig) {
	cmd.PersistentFlags().StringVar(
		&cfg.URL,
		side,
		cfg.URL,
		"URL of the "+side+" database, or path/URL of a .csv/.jsonl snapshot (file://, s3://, gs://)",
	)
	cmd.PersistentFlags().StringVar(
		&cfg.Table,
		side+"-table",
		cfg.Table,
		"table to read from the "+side+" database, as [database.][schema.]table; labels snapshots",
	)
	cmd.PersistentFlags().StringSliceVar(
		&cfg.Columns,
		side+"-columns",
		cfg.Columns,
		"columns to read from the "+side+" (defaults to all columns)",
	)
	cmd.PersistentFlags().StringVar(
		&cfg.Filter,
		side+"-filter",
		cfg.Filter,
		"boolean SQL predicate restricting the "+side+" rows (databases only)",
	)
	cmd.PersistentFlags().StringVar(
		&cfg.Type,
		side+"-type",
		cfg.Type,
		"system name of the "+side+" shown in reports, e.g. snowflake (defaults to the URL scheme)",
	)
	cmd.PersistentFlags().StringVar(
		&cfg.ColumnTypes,
		side+"-column-types",
		cfg.ColumnTypes,
		"type hints for "+side+" snapshot columns, e.g. id:int,amount:decimal,ts:timestamp(ms)",
	)
}

// Info returns the display label for the side.
func (c SourceConfig) Info() (dbtable.SourceInfo, error) {
	info := dbtable.SourceInfo{Type: c.Type}
	if c.Table != "" {
		name, err := dbtable.ParseName(c.Table)
		if err != nil {
			return dbtable.SourceInfo{}, err
		}
		info.Table = name
	}
	if info.Type == "" {
		info.Type = defaultSourceType(c.URL)
	}
	return info, nil
}

func defaultSourceType(rawURL string) string {
	if snapshot.IsSnapshotURL(rawURL) {
		return "snapshot"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch {
	case strings.Contains(u.Scheme, "postgres"):
		return "postgres"
	case strings.Contains(u.Scheme, "mysql"):
		return "mysql"
	}
	return u.Scheme
}

// OpenSource builds the extraction source for one side. The returned close
// func releases any database connection and must be called once the source
// has been fetched.
func OpenSource(
	ctx context.Context, logger zerolog.Logger, id dbconn.ID, cfg SourceConfig,
) (extract.Source, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	info, err := cfg.Info()
	if err != nil {
		return nil, noop, errors.Wrapf(err, "invalid --%s-table", id)
	}

	switch {
	case cfg.URL == "":
		return nil, noop, errors.Newf("--%s must be set", id)
	case snapshot.IsSnapshotURL(cfg.URL):
		if cfg.Filter != "" {
			return nil, noop, errors.Newf("--%s-filter is not supported for snapshots", id)
		}
		types, err := dataset.ParseColumnTypes(cfg.ColumnTypes)
		if err != nil {
			return nil, noop, errors.Wrapf(err, "invalid --%s-column-types", id)
		}
		src, err := snapshot.New(cfg.URL, info, snapshot.Options{
			ColumnTypes: types,
			Columns:     cfg.Columns,
		}, logger)
		return src, noop, err
	case dbconn.IsDatabaseURL(cfg.URL):
		if cfg.ColumnTypes != "" {
			return nil, noop, errors.Newf("--%s-column-types only applies to snapshots", id)
		}
		if info.Table.Table == "" {
			return nil, noop, errors.Newf("--%s-table must be set for databases", id)
		}
		conn, err := dbconn.ConnectWithRetry(ctx, logger, id, cfg.URL, RetrySettings())
		if err != nil {
			return nil, noop, err
		}
		q := extract.Query{Table: info.Table, Columns: cfg.Columns, Filter: cfg.Filter}
		switch conn := conn.(type) {
		case *dbconn.PGConn:
			return pgsource.New(conn, q, info, logger), conn.Close, nil
		case *dbconn.MySQLConn:
			return mysqlsource.New(conn, q, info, logger), conn.Close, nil
		case *dbconn.SQLServerConn:
			return sqlserversource.New(conn, q, info, logger), conn.Close, nil
		}
		_ = conn.Close(ctx)
		return nil, noop, errors.AssertionFailedf("unhandled connection type %T", conn)
	}
	return nil, noop, errors.Newf("--%s %q is neither a database URL nor a .csv/.jsonl snapshot", id, cfg.URL)
}
