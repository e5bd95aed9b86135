// Package codec converts cell values between the canonical core.Value model
// and each dialect's wire representation.
//
// Three directions are covered:
//   - FromJSON reads untyped caller JSON through an intended column type
//   - Encode turns a Value into a bind parameter for a dialect
//   - Decode turns a driver value into a Value, keyed by the driver's
//     reported type name
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/tablex/pkg/core"
)

// FromJSON reinterprets an untyped JSON value as a Value of column type ct.
// A JSON null is Null for every type.
func FromJSON(raw json.RawMessage, ct core.ColumnType) (core.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return core.NullValue(), nil
	}

	var parsed any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return core.Value{}, mismatch(ct, fmt.Errorf("invalid json: %w", err))
	}

	switch ct {
	case core.TypeString, core.TypeText, core.TypeCustom:
		s, err := scalarText(parsed)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.TextValue(s), nil
	case core.TypeUUID:
		s, ok := parsed.(string)
		if !ok {
			return core.Value{}, mismatch(ct, fmt.Errorf("expected a string, got %s", jsonKind(parsed)))
		}
		return parseUUID(s, ct)
	case core.TypeInteger, core.TypeYear:
		i, err := jsonInt(parsed)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.IntValue(i), nil
	case core.TypePositiveInteger:
		u, err := jsonUint(parsed)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.UintValue(u), nil
	case core.TypeFloat:
		f, err := jsonFloat(parsed)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.FloatValue(f), nil
	case core.TypeBoolean:
		b, err := jsonBool(parsed)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.BoolValue(b), nil
	case core.TypeDate, core.TypeDateTime, core.TypeTime:
		s, ok := parsed.(string)
		if !ok {
			if n, isNum := parsed.(json.Number); isNum && ct == core.TypeDateTime {
				secs, err := n.Int64()
				if err != nil {
					return core.Value{}, mismatch(ct, err)
				}
				return core.DateTimeValue(time.Unix(secs, 0).UTC()), nil
			}
			return core.Value{}, mismatch(ct, fmt.Errorf("expected a string, got %s", jsonKind(parsed)))
		}
		return parseTemporal(s, ct)
	case core.TypeJSON:
		if s, ok := parsed.(string); ok {
			inner := strings.TrimSpace(s)
			if (strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[")) && json.Valid([]byte(inner)) {
				trimmed = []byte(inner)
			}
		}
		v, err := core.JSONValue(trimmed)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return v, nil
	case core.TypeBinary:
		switch v := parsed.(type) {
		case string:
			return core.BytesValue([]byte(v)), nil
		case []any:
			out := make([]byte, len(v))
			for i, item := range v {
				n, err := jsonInt(item)
				if err != nil || n < 0 || n > 255 {
					return core.Value{}, mismatch(ct, fmt.Errorf("byte %d is not in 0..255", i))
				}
				out[i] = byte(n)
			}
			return core.BytesValue(out), nil
		}
		return core.Value{}, mismatch(ct, fmt.Errorf("expected a byte array, got %s", jsonKind(parsed)))
	}
	return core.Value{}, &core.CodecError{Kind: core.UnsupportedDataType, ColumnType: ct, NativeType: ct.String()}
}

// Record reads a caller RowRecord through its declared column type.
func Record(r core.RowRecord) (core.Value, error) {
	v, err := FromJSON(r.Value, r.ColumnType)
	if err != nil {
		return core.Value{}, withColumn(err, r.ColumnName)
	}
	return v, nil
}

func mismatch(ct core.ColumnType, err error) error {
	return &core.CodecError{Kind: core.TypeMismatch, ColumnType: ct, Err: err}
}

func withColumn(err error, column string) error {
	if ce, ok := err.(*core.CodecError); ok && ce.Column == "" {
		cp := *ce
		cp.Column = column
		return &cp
	}
	return err
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func scalarText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	return "", fmt.Errorf("expected a scalar, got %s", jsonKind(v))
}

func jsonInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%s is not an integer", x)
		}
		return int64(f), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", x)
		}
		return i, nil
	}
	return 0, fmt.Errorf("expected an integer, got %s", jsonKind(v))
}

func jsonUint(v any) (uint64, error) {
	var text string
	switch x := v.(type) {
	case json.Number:
		text = x.String()
	case string:
		text = strings.TrimSpace(x)
	default:
		return 0, fmt.Errorf("expected a non-negative integer, got %s", jsonKind(v))
	}
	u, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a non-negative integer", text)
	}
	return u, nil
}

func jsonFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected a number, got %s", jsonKind(v))
}

func jsonBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		switch x.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return false, fmt.Errorf("%s is not 0 or 1", x)
	case string:
		return parseBoolText(x)
	}
	return false, fmt.Errorf("expected a boolean, got %s", jsonKind(v))
}

func parseBoolText(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}

func parseUUID(s string, ct core.ColumnType) (core.Value, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return core.Value{}, mismatch(ct, err)
	}
	return core.TextValue(id.String()), nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	core.DateTimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	core.DateLayout,
}

// parseDateTime accepts the textual forms the three engines and callers
// produce. Zone-less text is read as UTC.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date-time", s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(core.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := parseDateTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", s)
	}
	return t, nil
}

func parseTemporal(s string, ct core.ColumnType) (core.Value, error) {
	switch ct {
	case core.TypeDate:
		t, err := parseDate(s)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.DateValue(t), nil
	case core.TypeDateTime:
		t, err := parseDateTime(s)
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.DateTimeValue(t), nil
	default:
		d, err := core.ParseTimeOfDay(strings.TrimSpace(s))
		if err != nil {
			return core.Value{}, mismatch(ct, err)
		}
		return core.TimeValue(d), nil
	}
}
