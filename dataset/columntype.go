package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ColumnType is a type hint used to convert text cells, e.g. from CSV
// extracts, into values.
type ColumnType struct {
	Kind Kind
	// Precision applies to KindTimestamp only.
	Precision time.Duration
}

var precisionUnits = map[string]time.Duration{
	"s":  time.Second,
	"ms": time.Millisecond,
	"us": time.Microsecond,
	"ns": time.Nanosecond,
}

// ParseColumnType parses a type name such as `int`, `decimal`,
// `timestamp(ms)`, `timestamp(6)` or `date`.
func ParseColumnType(s string) (ColumnType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	var arg string
	if open := strings.IndexByte(name, '('); open >= 0 {
		if !strings.HasSuffix(name, ")") {
			return ColumnType{}, errors.Newf("invalid column type %q", s)
		}
		arg = name[open+1 : len(name)-1]
		name = name[:open]
	}
	if arg != "" && name != "timestamp" && name != "datetime" {
		return ColumnType{}, errors.Newf("column type %q does not take arguments", s)
	}
	switch name {
	case "int", "integer", "bigint":
		return ColumnType{Kind: KindInt}, nil
	case "float", "double":
		return ColumnType{Kind: KindFloat}, nil
	case "decimal", "numeric":
		return ColumnType{Kind: KindDecimal}, nil
	case "string", "text", "varchar":
		return ColumnType{Kind: KindString}, nil
	case "bool", "boolean":
		return ColumnType{Kind: KindBool}, nil
	case "date":
		return ColumnType{Kind: KindTimestamp, Precision: 24 * time.Hour}, nil
	case "timestamp", "datetime":
		if arg == "" {
			return ColumnType{Kind: KindTimestamp, Precision: time.Nanosecond}, nil
		}
		if p, ok := precisionUnits[arg]; ok {
			return ColumnType{Kind: KindTimestamp, Precision: p}, nil
		}
		digits, err := strconv.Atoi(arg)
		if err != nil || digits < 0 || digits > 9 {
			return ColumnType{}, errors.Newf("invalid timestamp precision %q", arg)
		}
		return ColumnType{Kind: KindTimestamp, Precision: FractionalPrecision(digits)}, nil
	}
	return ColumnType{}, errors.Newf("unknown column type %q", s)
}

// FractionalPrecision returns the resolution of a timestamp storing the given
// number of fractional second digits.
func FractionalPrecision(digits int) time.Duration {
	p := time.Second
	for i := 0; i < digits; i++ {
		p /= 10
	}
	return p
}

// ParseColumnTypes parses a comma separated list of `column:type` hints into
// a map keyed by normalized column name.
func ParseColumnTypes(s string) (map[string]ColumnType, error) {
	ret := make(map[string]ColumnType)
	if strings.TrimSpace(s) == "" {
		return ret, nil
	}
	for _, part := range strings.Split(s, ",") {
		col, typ, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errors.Newf("invalid column type hint %q: expected column:type", part)
		}
		ct, err := ParseColumnType(typ)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", strings.TrimSpace(col))
		}
		ret[NormalizeName(col)] = ct
	}
	return ret, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseValue converts a text cell into a value of the given type. Timestamps
// without a zone are read as UTC.
func (t ColumnType) ParseValue(s string) (Value, error) {
	switch t.Kind {
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "invalid int %q", s)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "invalid float %q", s)
		}
		return Float(f), nil
	case KindDecimal:
		v, err := ParseDecimal(strings.TrimSpace(s))
		if err != nil {
			return Value{}, errors.Wrapf(err, "invalid decimal %q", s)
		}
		return v, nil
	case KindString:
		return String(s), nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return Value{}, errors.Wrapf(err, "invalid bool %q", s)
		}
		return Bool(b), nil
	case KindTimestamp:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return Timestamp(ts, t.Precision), nil
			}
		}
		return Value{}, errors.Newf("invalid timestamp %q", s)
	case KindNull:
		return Null(), nil
	}
	return Value{}, errors.Newf("cannot parse values of kind %s", t.Kind)
}
