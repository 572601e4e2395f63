// Package pgsource extracts datasets from PostgreSQL and CockroachDB tables.
package pgsource

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbconn"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/extract"
)

// Source reads a table over a pgx connection.
type Source struct {
	conn   *dbconn.PGConn
	query  extract.Query
	info   dbtable.SourceInfo
	logger zerolog.Logger
}

var _ extract.Source = (*Source)(nil)

func New(conn *dbconn.PGConn, q extract.Query, info dbtable.SourceInfo, logger zerolog.Logger) *Source {
	return &Source{conn: conn, query: q, info: info, logger: logger}
}

func (s *Source) Info() dbtable.SourceInfo {
	return s.info
}

func (s *Source) Fetch(ctx context.Context) (dataset.Dataset, error) {
	stmt, err := extract.PGSelect(s.query)
	if err != nil {
		return dataset.Dataset{}, err
	}
	s.logger.Debug().Str("conn", string(s.conn.ID())).Str("query", stmt).Msgf("running extract query")
	rows, err := s.conn.Query(ctx, stmt)
	if err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error running %q", stmt)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	names := make([]string, len(fds))
	for i, fd := range fds {
		names[i] = fd.Name
	}
	var out []dataset.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return dataset.Dataset{}, errors.Wrap(err, "error decoding row")
		}
		row := make(dataset.Row, len(vals))
		for i, v := range vals {
			if row[i], err = ConvertValue(v, oid.Oid(fds[i].DataTypeOID), fds[i].TypeModifier); err != nil {
				return dataset.Dataset{}, errors.Wrapf(err, "row %d column %s", len(out)+1, names[i])
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error reading rows from %s", s.query.Table.SafeString())
	}
	return dataset.New(names, out)
}

// TimestampPrecision returns the stored resolution of a date or timestamp
// column. typmod is the declared fractional digits, or negative when
// undeclared.
func TimestampPrecision(typOID oid.Oid, typmod int32) time.Duration {
	if typOID == oid.T_date {
		return 24 * time.Hour
	}
	if typmod >= 0 && typmod <= 6 {
		return dataset.FractionalPrecision(int(typmod))
	}
	return time.Microsecond
}

// ConvertValue converts a value decoded by pgx into a dataset value.
func ConvertValue(v any, typOID oid.Oid, typmod int32) (dataset.Value, error) {
	switch v := v.(type) {
	case nil:
		return dataset.Null(), nil
	case int16:
		return dataset.Int(int64(v)), nil
	case int32:
		return dataset.Int(int64(v)), nil
	case int64:
		return dataset.Int(v), nil
	case uint32:
		return dataset.Int(int64(v)), nil
	case float32:
		// Widen through the shortest float32 rendering so 0.1 stays 0.1.
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
		if err != nil {
			return dataset.Value{}, err
		}
		return dataset.Float(f), nil
	case float64:
		return dataset.Float(v), nil
	case bool:
		return dataset.Bool(v), nil
	case string:
		return dataset.String(v), nil
	case time.Time:
		return dataset.Timestamp(v, TimestampPrecision(typOID, typmod)), nil
	case pgtype.InfinityModifier:
		return dataset.String(v.String()), nil
	case pgtype.Numeric:
		return convertNumeric(v)
	case [16]byte:
		return dataset.String(uuid.UUID(v).String()), nil
	case []byte:
		return dataset.String(`\x` + hex.EncodeToString(v)), nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return dataset.Value{}, errors.Wrap(err, "error encoding json")
		}
		return dataset.String(string(b)), nil
	}
	return dataset.Value{}, errors.Newf("value of type %T (OID %d) not yet translatable", v, typOID)
}

func convertNumeric(n pgtype.Numeric) (dataset.Value, error) {
	if !n.Valid {
		return dataset.Null(), nil
	}
	switch {
	case n.NaN:
		return dataset.Decimal(&apd.Decimal{Form: apd.NaN}), nil
	case n.InfinityModifier == pgtype.Infinity:
		return dataset.Decimal(&apd.Decimal{Form: apd.Infinite}), nil
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return dataset.Decimal(&apd.Decimal{Form: apd.Infinite, Negative: true}), nil
	}
	coeff := n.Int
	if coeff == nil {
		coeff = new(big.Int)
	}
	return dataset.Decimal(apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(coeff), n.Exp)), nil
}
