package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindBool
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// Numeric returns whether values of the kind take part in numeric coercion.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// Value is an immutable typed scalar held in a dataset cell.
// The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	d    *apd.Decimal
	s    string
	t    time.Time
	prec time.Duration
}

func Null() Value { return Value{} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// Decimal wraps d. The decimal is copied so later mutation by the caller
// cannot change the value.
func Decimal(d *apd.Decimal) Value {
	if d == nil {
		return Null()
	}
	cp := new(apd.Decimal).Set(d)
	return Value{kind: KindDecimal, d: cp}
}

// ParseDecimal parses s into a decimal Value.
func ParseDecimal(s string) (Value, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindDecimal, d: d}, nil
}

// Timestamp builds a timestamp value. precision is the resolution the source
// stored the value at (time.Second, time.Microsecond, 24*time.Hour for dates);
// zero or negative means full nanosecond precision. Timestamps without zone
// information must be handed in as UTC.
func Timestamp(t time.Time, precision time.Duration) Value {
	if precision <= 0 {
		precision = time.Nanosecond
	}
	return Value{kind: KindTimestamp, t: t.UTC(), prec: precision}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() int64 { return v.i }

func (v Value) AsFloat() float64 { return v.f }

func (v Value) AsString() string { return v.s }

func (v Value) AsBool() bool { return v.i != 0 }

// AsDecimal returns the underlying decimal. It must not be mutated.
func (v Value) AsDecimal() *apd.Decimal { return v.d }

// AsTime returns the timestamp in UTC.
func (v Value) AsTime() time.Time { return v.t }

// Precision returns the resolution of a timestamp value.
func (v Value) Precision() time.Duration { return v.prec }

// ToDecimal coerces a numeric value into a decimal. Floats are converted
// through their shortest round-trip representation, so 10.001 becomes exactly
// 10.001 rather than its binary approximation. ok is false for non-numeric
// values.
func (v Value) ToDecimal() (d *apd.Decimal, ok bool, err error) {
	switch v.kind {
	case KindInt:
		return apd.New(v.i, 0), true, nil
	case KindDecimal:
		return v.d, true, nil
	case KindFloat:
		d, err := new(apd.Decimal).SetFloat64(v.f)
		return d, true, err
	}
	return nil, false, nil
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindDecimal:
		return v.d.Text('f')
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	}
	return "?"
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON renders the value for the renderer-facing JSON result.
// Non-finite floats and timestamps become strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(formatFloat(v.f))
		}
		return strconv.AppendFloat(nil, v.f, 'g', -1, 64), nil
	case KindDecimal:
		if v.d.Form != apd.Finite {
			return json.Marshal(v.d.String())
		}
		return []byte(v.d.Text('f')), nil
	case KindBool:
		return strconv.AppendBool(nil, v.AsBool()), nil
	}
	return json.Marshal(v.String())
}
