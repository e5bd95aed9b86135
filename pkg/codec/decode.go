package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/dialect"
)

// Decode converts a driver value into a Value. native is the name the
// driver reported for the column (sql.ColumnType.DatabaseTypeName) and is
// matched exactly against the dialect's table. A nil src is Null whatever
// the type; an unknown name fails with UnsupportedDataType.
func Decode(d core.Dialect, src any, native string) (core.Value, error) {
	return DecodeAs(d, src, native, core.TypeUnsupported)
}

// DecodeAs is Decode with a column type hint taken from the schema. A hint
// other than TypeUnsupported decides the target type, which is how MySQL
// TINYINT(1) columns come back as booleans and PostgreSQL enum columns,
// reported by OID, come back as text.
func DecodeAs(d core.Dialect, src any, native string, hint core.ColumnType) (core.Value, error) {
	if !d.Valid() {
		return core.Value{}, &core.UnsupportedDriverError{Prefix: string(d)}
	}
	if src == nil {
		return core.NullValue(), nil
	}

	target := hint
	if target == core.TypeUnsupported {
		var ok bool
		target, ok = dialect.DriverType(d, native)
		if !ok && d == core.SQLite {
			// Declared types are free-form in SQLite; the driver reports
			// them verbatim, parameters included.
			target, ok = dialect.NormalizeColumnType(d, native), true
		}
		if !ok || target == core.TypeUnsupported {
			return core.Value{}, &core.CodecError{Kind: core.UnsupportedDataType, NativeType: native}
		}
	}

	v, err := convert(d, src, target)
	if err != nil {
		return core.Value{}, &core.CodecError{Kind: core.TypeMismatch, ColumnType: target, NativeType: native, Err: err}
	}
	return v, nil
}

func convert(d core.Dialect, src any, target core.ColumnType) (core.Value, error) {
	switch target {
	case core.TypeString, core.TypeText:
		s, err := asText(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.TextValue(s), nil
	case core.TypeCustom:
		if d == core.SQLite {
			return dynamic(src), nil
		}
		s, err := asText(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.TextValue(s), nil
	case core.TypeUUID:
		return asUUID(src)
	case core.TypeInteger, core.TypeYear:
		i, err := asInt(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.IntValue(i), nil
	case core.TypePositiveInteger:
		u, err := asUint(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.UintValue(u), nil
	case core.TypeFloat:
		f, err := asFloat(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.FloatValue(f), nil
	case core.TypeBoolean:
		b, err := asBool(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.BoolValue(b), nil
	case core.TypeDate:
		t, err := asTime(src, parseDate)
		if err != nil {
			return core.Value{}, err
		}
		return core.DateValue(t), nil
	case core.TypeDateTime:
		t, err := asTime(src, parseDateTime)
		if err != nil {
			return core.Value{}, err
		}
		return core.DateTimeValue(t), nil
	case core.TypeTime:
		return asTimeOfDay(src)
	case core.TypeJSON:
		switch x := src.(type) {
		case []byte:
			return core.JSONValue(x)
		case string:
			return core.JSONValue([]byte(x))
		}
		raw, err := json.Marshal(src)
		if err != nil {
			return core.Value{}, err
		}
		return core.JSONValue(raw)
	case core.TypeBinary:
		switch x := src.(type) {
		case []byte:
			return core.BytesValue(x), nil
		case string:
			return core.BytesValue([]byte(x)), nil
		}
	}
	return core.Value{}, fmt.Errorf("cannot read %T as %s", src, target)
}

// dynamic reads a SQLite value by its storage class.
func dynamic(src any) core.Value {
	switch x := src.(type) {
	case int64:
		return core.IntValue(x)
	case float64:
		return core.FloatValue(x)
	case bool:
		return core.BoolValue(x)
	case string:
		return core.TextValue(x)
	case []byte:
		return core.BytesValue(x)
	case time.Time:
		return core.DateTimeValue(x)
	}
	return core.TextValue(fmt.Sprint(src))
}

func asText(src any) (string, error) {
	switch x := src.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	}
	return "", fmt.Errorf("cannot read %T as text", src)
}

func asUUID(src any) (core.Value, error) {
	switch x := src.(type) {
	case [16]byte:
		return core.TextValue(uuid.UUID(x).String()), nil
	case []byte:
		if len(x) == 16 && !utf8.Valid(x) {
			id, err := uuid.FromBytes(x)
			if err != nil {
				return core.Value{}, err
			}
			return core.TextValue(id.String()), nil
		}
		src = string(x)
	}
	s, ok := src.(string)
	if !ok {
		return core.Value{}, fmt.Errorf("cannot read %T as uuid", src)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return core.Value{}, err
	}
	return core.TextValue(id.String()), nil
}

func asInt(src any) (int64, error) {
	switch x := src.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("cannot read %T as integer", src)
}

func asUint(src any) (uint64, error) {
	switch x := src.(type) {
	case uint64:
		return x, nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("%d is negative", x)
		}
		return uint64(x), nil
	case []byte:
		return strconv.ParseUint(string(x), 10, 64)
	case string:
		return strconv.ParseUint(x, 10, 64)
	}
	return 0, fmt.Errorf("cannot read %T as unsigned integer", src)
}

func asFloat(src any) (float64, error) {
	switch x := src.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("cannot read %T as float", src)
}

func asBool(src any) (bool, error) {
	switch x := src.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case []byte:
		if len(x) == 1 && (x[0] == 0 || x[0] == 1) {
			// BIT(1) arrives as a raw byte.
			return x[0] == 1, nil
		}
		return parseBoolText(string(x))
	case string:
		return parseBoolText(x)
	}
	return false, fmt.Errorf("cannot read %T as boolean", src)
}

func asTime(src any, parse func(string) (time.Time, error)) (time.Time, error) {
	switch x := src.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return parse(string(x))
	case string:
		return parse(x)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot read %T as a date", src)
}

func asTimeOfDay(src any) (core.Value, error) {
	switch x := src.(type) {
	case time.Duration:
		return core.TimeValue(x), nil
	case time.Time:
		h, m, s := x.Clock()
		d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second + time.Duration(x.Nanosecond())
		return core.TimeValue(d), nil
	case []byte:
		src = string(x)
	}
	s, ok := src.(string)
	if !ok {
		return core.Value{}, fmt.Errorf("cannot read %T as a time", src)
	}
	d, err := core.ParseTimeOfDay(strings.TrimSpace(s))
	if err != nil {
		return core.Value{}, err
	}
	return core.TimeValue(d), nil
}
