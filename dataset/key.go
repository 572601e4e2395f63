package dataset

import (
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// AppendKey appends a canonical encoding of v to buf for use in composite
// hash keys. Two values encode identically exactly when they are equal under
// exact comparison: numbers of any kind compare by decimal value, timestamps
// are truncated to tsPrecision (or their own precision if coarser), nulls
// encode as a single marker so that null keys join with each other.
// Every component is length prefixed so concatenated keys cannot collide.
func (v Value) AppendKey(buf []byte, tsPrecision time.Duration) []byte {
	switch v.kind {
	case KindNull:
		return append(buf, 'z', ';')
	case KindInt, KindFloat, KindDecimal:
		return appendComponent(buf, 'n', canonicalNumber(v))
	case KindString:
		return appendComponent(buf, 's', v.s)
	case KindBool:
		if v.AsBool() {
			return append(buf, 'b', 't', ';')
		}
		return append(buf, 'b', 'f', ';')
	case KindTimestamp:
		prec := v.prec
		if tsPrecision > prec {
			prec = tsPrecision
		}
		t := v.t.Truncate(prec)
		return appendComponent(buf, 't', strconv.FormatInt(t.Unix(), 10)+"."+strconv.Itoa(t.Nanosecond()))
	}
	return append(buf, '?', ';')
}

func appendComponent(buf []byte, tag byte, s string) []byte {
	buf = append(buf, tag)
	buf = strconv.AppendInt(buf, int64(len(s)), 10)
	buf = append(buf, ':')
	buf = append(buf, s...)
	return append(buf, ';')
}

func canonicalNumber(v Value) string {
	if v.kind == KindFloat {
		switch {
		case math.IsNaN(v.f):
			return "NaN"
		case math.IsInf(v.f, 1):
			return "+Inf"
		case math.IsInf(v.f, -1):
			return "-Inf"
		}
	}
	d, _, err := v.ToDecimal()
	if err != nil {
		// Unreachable for finite floats; fall back to the float text.
		return formatFloat(v.f)
	}
	switch d.Form {
	case apd.NaN, apd.NaNSignaling:
		return "NaN"
	case apd.Infinite:
		if d.Negative {
			return "-Inf"
		}
		return "+Inf"
	}
	if d.IsZero() {
		return "0"
	}
	var reduced apd.Decimal
	reduced.Reduce(d)
	return reduced.Text('f')
}
