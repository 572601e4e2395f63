// Package sqlserversource extracts datasets from Microsoft SQL Server tables.
package sqlserversource

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbconn"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/extract"
)

// Source reads a table over a database/sql SQL Server connection.
type Source struct {
	conn   *dbconn.SQLServerConn
	query  extract.Query
	info   dbtable.SourceInfo
	logger zerolog.Logger
}

var _ extract.Source = (*Source)(nil)

func New(conn *dbconn.SQLServerConn, q extract.Query, info dbtable.SourceInfo, logger zerolog.Logger) *Source {
	return &Source{conn: conn, query: q, info: info, logger: logger}
}

func (s *Source) Info() dbtable.SourceInfo {
	return s.info
}

// ColumnInfo is the result set metadata used to convert a column's values.
type ColumnInfo struct {
	Name         string
	DatabaseType string
	// Scale is the number of fractional second digits of DATETIME2,
	// DATETIMEOFFSET and TIME columns, when ScaleOK.
	Scale   int64
	ScaleOK bool
}

func (s *Source) Fetch(ctx context.Context) (dataset.Dataset, error) {
	stmt, err := extract.SQLServerSelect(s.query)
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
	vals := make([]any, len(cols))
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

func timePrecision(col ColumnInfo) time.Duration {
	switch col.DatabaseType {
	case "DATE":
		return 24 * time.Hour
	case "SMALLDATETIME":
		return time.Minute
	case "DATETIME":
		// DATETIME is stored in 1/300 second ticks.
		return 10 * time.Millisecond
	}
	if col.ScaleOK && col.Scale >= 0 && col.Scale <= 7 {
		return dataset.FractionalPrecision(int(col.Scale))
	}
	return 100 * time.Nanosecond
}

// ConvertValue converts a value scanned from the SQL Server driver. A nil
// value is NULL.
func ConvertValue(v any, col ColumnInfo) (dataset.Value, error) {
	switch v := v.(type) {
	case nil:
		return dataset.Null(), nil
	case int64:
		return dataset.Int(v), nil
	case bool:
		return dataset.Bool(v), nil
	case float64:
		return dataset.Float(v), nil
	case float32:
		return dataset.Float(float64(v)), nil
	case string:
		return dataset.String(v), nil
	case time.Time:
		if col.DatabaseType == "TIME" {
			return dataset.String(v.Format("15:04:05.9999999")), nil
		}
		return dataset.Timestamp(v, timePrecision(col)), nil
	case []byte:
		switch col.DatabaseType {
		case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
			d, err := dataset.ParseDecimal(string(v))
			if err != nil {
				return dataset.Value{}, errors.Wrapf(err, "invalid %s %q", col.DatabaseType, v)
			}
			return d, nil
		case "UNIQUEIDENTIFIER":
			var u mssql.UniqueIdentifier
			if err := u.Scan(v); err != nil {
				return dataset.Value{}, errors.Wrap(err, "invalid UNIQUEIDENTIFIER")
			}
			// The driver renders upper case; other systems use the canonical
			// lower case form.
			parsed, err := uuid.Parse(u.String())
			if err != nil {
				return dataset.Value{}, errors.Wrap(err, "invalid UNIQUEIDENTIFIER")
			}
			return dataset.String(parsed.String()), nil
		case "BINARY", "VARBINARY", "IMAGE", "TIMESTAMP", "ROWVERSION":
			return dataset.String(`\x` + hex.EncodeToString(v)), nil
		}
		return dataset.String(string(v)), nil
	}
	return dataset.Value{}, errors.Newf("unsupported %s value of Go type %T", col.DatabaseType, v)
}
