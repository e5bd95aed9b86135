package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindUInt64
	KindFloat64
	KindText
	KindDate
	KindDateTime
	KindTime
	KindJSON
	KindBytes
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt64:    "int64",
	KindUInt64:   "uint64",
	KindFloat64:  "float64",
	KindText:     "text",
	KindDate:     "date",
	KindDateTime: "dateTime",
	KindTime:     "time",
	KindJSON:     "json",
	KindBytes:    "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Layouts used for the textual forms of temporal values.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05.999999999"
	TimeLayout     = "15:04:05.999999999"
)

// Value is the canonical cell value: a tagged union over the kinds above.
// The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
	t    time.Time
	d    time.Duration
	raw  []byte
}

// NullValue returns the Null value.
func NullValue() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{kind: KindInt64, i: i} }

// UintValue wraps an unsigned integer.
func UintValue(u uint64) Value { return Value{kind: KindUInt64, u: u} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{kind: KindFloat64, f: f} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

// DateValue keeps only the calendar date of t.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateTimeValue wraps an instant.
func DateTimeValue(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// TimeValue wraps a time of day expressed as the offset from midnight.
// MySQL TIME values outside 00:00..24:00 are representable.
func TimeValue(d time.Duration) Value { return Value{kind: KindTime, d: d} }

// JSONValue wraps a JSON document. The text is compacted; invalid JSON is
// rejected.
func JSONValue(raw []byte) (Value, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Value{}, fmt.Errorf("invalid json: %w", err)
	}
	return Value{kind: KindJSON, raw: buf.Bytes()}, nil
}

// BytesValue wraps binary data. The slice is copied.
func BytesValue(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte{}, b...)}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.i != 0 }

// Int returns the signed integer payload.
func (v Value) Int() int64 { return v.i }

// Uint returns the unsigned integer payload.
func (v Value) Uint() uint64 { return v.u }

// Float returns the float payload.
func (v Value) Float() float64 { return v.f }

// Text returns the string payload.
func (v Value) Text() string { return v.s }

// Time returns the payload of Date and DateTime values.
func (v Value) Time() time.Time { return v.t }

// TimeOfDay returns the payload of Time values.
func (v Value) TimeOfDay() time.Duration { return v.d }

// JSON returns the compacted document of JSON values.
func (v Value) JSON() json.RawMessage { return json.RawMessage(v.raw) }

// Bytes returns the payload of Bytes values.
func (v Value) Bytes() []byte { return v.raw }

// Equal compares kind and payload. DateTime values compare as instants.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindInt64:
		return v.i == o.i
	case KindUInt64:
		return v.u == o.u
	case KindFloat64:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindDate, KindDateTime:
		return v.t.Equal(o.t)
	case KindTime:
		return v.d == o.d
	case KindJSON, KindBytes:
		return bytes.Equal(v.raw, o.raw)
	}
	return false
}

// Any returns the payload as a plain Go value for display and encoding.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.Bool()
	case KindInt64:
		return v.i
	case KindUInt64:
		return v.u
	case KindFloat64:
		return v.f
	case KindText:
		return v.s
	case KindDate:
		return v.t.Format(DateLayout)
	case KindDateTime:
		return v.t
	case KindTime:
		return FormatTimeOfDay(v.d)
	case KindJSON:
		return json.RawMessage(v.raw)
	case KindBytes:
		return v.raw
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindUInt64:
		return strconv.FormatUint(v.u, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindDate:
		return v.t.Format(DateLayout)
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	case KindTime:
		return FormatTimeOfDay(v.d)
	case KindJSON:
		return string(v.raw)
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.raw))
	}
	return ""
}

// MarshalJSON renders dates as ISO-8601 strings and bytes as number arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool())
	case KindInt64:
		return json.Marshal(v.i)
	case KindUInt64:
		return json.Marshal(v.u)
	case KindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindDate:
		return json.Marshal(v.t.Format(DateLayout))
	case KindDateTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindTime:
		return json.Marshal(FormatTimeOfDay(v.d))
	case KindJSON:
		return v.raw, nil
	case KindBytes:
		nums := make([]int, len(v.raw))
		for i, b := range v.raw {
			nums[i] = int(b)
		}
		return json.Marshal(nums)
	}
	return nil, fmt.Errorf("cannot marshal value of kind %s", v.kind)
}

// FormatTimeOfDay renders an offset from midnight as [-]HH:MM:SS[.fffffffff].
func FormatTimeOfDay(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ns := d - s*time.Second
	out := fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
	if ns > 0 {
		frac := strconv.FormatInt(int64(ns)+1e9, 10)[1:]
		for frac[len(frac)-1] == '0' {
			frac = frac[:len(frac)-1]
		}
		out += "." + frac
	}
	return out
}

// ParseTimeOfDay parses [-]HH:MM[:SS[.fraction]]. Hours may exceed 23.
func ParseTimeOfDay(s string) (time.Duration, error) {
	invalid := fmt.Errorf("invalid time %q", s)
	body, neg := strings.CutPrefix(s, "-")
	parts := strings.Split(body, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, invalid
	}
	h, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || h < 0 {
		return 0, invalid
	}
	m, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || m < 0 || m > 59 {
		return 0, invalid
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	if len(parts) == 3 {
		whole, frac, _ := strings.Cut(parts[2], ".")
		sec, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || sec < 0 || sec > 59 {
			return 0, invalid
		}
		d += time.Duration(sec) * time.Second
		if frac != "" {
			if len(frac) > 9 {
				frac = frac[:9]
			}
			n, err := strconv.ParseInt(frac, 10, 64)
			if err != nil {
				return 0, invalid
			}
			for i := len(frac); i < 9; i++ {
				n *= 10
			}
			d += time.Duration(n)
		}
	}
	if neg {
		d = -d
	}
	return d, nil
}
