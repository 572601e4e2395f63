// Package mysqlsource extracts datasets from MySQL tables.
package mysqlsource

import (
	"context"
	"database/sql"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbconn"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/extract"
)

// Source reads a table over a database/sql MySQL connection.
type Source struct {
	conn   *dbconn.MySQLConn
	query  extract.Query
	info   dbtable.SourceInfo
	logger zerolog.Logger
}

var _ extract.Source = (*Source)(nil)

// New returns a source for q. A table name without a database reads from
// the connection's database.
func New(conn *dbconn.MySQLConn, q extract.Query, info dbtable.SourceInfo, logger zerolog.Logger) *Source {
	return &Source{conn: conn, query: q, info: info, logger: logger}
}

func (s *Source) Info() dbtable.SourceInfo {
	return s.info
}

// ColumnInfo is the result set metadata used to convert a column's text
// values.
type ColumnInfo struct {
	Name         string
	DatabaseType string
	// Scale is the number of fractional digits of DATETIME, TIMESTAMP and
	// DECIMAL columns, when ScaleOK.
	Scale   int64
	ScaleOK bool
}

func (s *Source) Fetch(ctx context.Context) (dataset.Dataset, error) {
	stmt, err := extract.MySQLSelect(s.query)
	if err != nil {
		return dataset.Dataset{}, err
	}
	s.logger.Debug().Str("conn", string(s.conn.ID())).Str("query", stmt).Msgf("running extract query")
	rows, err := s.conn.QueryContext(ctx, stmt)
	if err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error running %q", stmt)
	}
	defer func() { _ = rows.Close() }()

	typs, err := rows.ColumnTypes()
	if err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "error reading column types")
	}
	cols := make([]ColumnInfo, len(typs))
	names := make([]string, len(typs))
	for i, typ := range typs {
		_, scale, ok := typ.DecimalSize()
		cols[i] = ColumnInfo{
			Name:         typ.Name(),
			DatabaseType: typ.DatabaseTypeName(),
			Scale:        scale,
			ScaleOK:      ok,
		}
		names[i] = typ.Name()
	}

	var out []dataset.Row
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return dataset.Dataset{}, errors.Wrapf(err, "row %d", len(out)+1)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error reading rows from %s", s.query.Table.SafeString())
	}
	return dataset.New(names, out)
}

func scanRow(rows *sql.Rows, cols []ColumnInfo) (dataset.Row, error) {
	// Scanning into []byte keeps every value in its text form regardless of
	// the driver's native type.
	vals := make([][]byte, len(cols))
	valPtrs := make([]any, len(cols))
	for i := range cols {
		valPtrs[i] = &vals[i]
	}
	if err := rows.Scan(valPtrs...); err != nil {
		return nil, errors.Wrap(err, "failed to scan row")
	}
	row := make(dataset.Row, len(cols))
	for i, col := range cols {
		var err error
		if row[i], err = ConvertValue(vals[i], col); err != nil {
			return nil, errors.Wrapf(err, "column %s", col.Name)
		}
	}
	return row, nil
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// ConvertValue converts the text form of a MySQL value. A nil raw value is
// NULL.
func ConvertValue(raw []byte, col ColumnInfo) (dataset.Value, error) {
	if raw == nil {
		return dataset.Null(), nil
	}
	s := string(raw)
	typ := strings.TrimPrefix(col.DatabaseType, "UNSIGNED ")
	switch typ {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return dataset.Int(i), nil
		}
		// Unsigned BIGINT values beyond int64 stay exact as decimals.
		if _, uerr := strconv.ParseUint(s, 10, 64); uerr == nil {
			return dataset.ParseDecimal(s)
		}
		return dataset.Value{}, errors.Wrapf(err, "invalid %s %q", col.DatabaseType, s)
	case "DECIMAL":
		v, err := dataset.ParseDecimal(s)
		if err != nil {
			return dataset.Value{}, errors.Wrapf(err, "invalid decimal %q", s)
		}
		return v, nil
	case "FLOAT", "DOUBLE":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return dataset.Value{}, errors.Wrapf(err, "invalid %s %q", col.DatabaseType, s)
		}
		return dataset.Float(f), nil
	case "DATE", "DATETIME", "TIMESTAMP":
		// Zero dates are not instants; keep them as text so they match
		// neither NULL nor a real timestamp.
		if strings.HasPrefix(s, "0000-") {
			return dataset.String(s), nil
		}
		prec := 24 * time.Hour
		if typ != "DATE" {
			prec = time.Second
			if col.ScaleOK && col.Scale > 0 && col.Scale <= 6 {
				prec = dataset.FractionalPrecision(int(col.Scale))
			}
		}
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dataset.Timestamp(t, prec), nil
			}
		}
		return dataset.Value{}, errors.Newf("invalid %s %q", col.DatabaseType, s)
	case "BIT":
		if len(raw) > 8 {
			return dataset.Value{}, errors.Newf("BIT value of %d bytes is too wide", len(raw))
		}
		var u uint64
		for _, b := range raw {
			u = u<<8 | uint64(b)
		}
		if u > math.MaxInt64 {
			return dataset.ParseDecimal(strconv.FormatUint(u, 10))
		}
		return dataset.Int(int64(u)), nil
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return dataset.String(`\x` + hex.EncodeToString(raw)), nil
	}
	return dataset.String(s), nil
}
