package codec

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/leapstack-labs/tablex/pkg/core"
)

// Encode converts v, asserted to belong to a column of type ct, into the
// bind parameter the dialect's driver expects. Null encodes as nil for every
// type. A value whose kind cannot be reconciled with ct fails with a
// TypeMismatch CodecError.
func Encode(d core.Dialect, v core.Value, ct core.ColumnType) (any, error) {
	if !d.Valid() {
		return nil, &core.UnsupportedDriverError{Prefix: string(d)}
	}
	if v.IsNull() {
		return nil, nil
	}
	if ct == core.TypeUnsupported {
		return nil, &core.CodecError{Kind: core.UnsupportedDataType, ColumnType: ct, NativeType: ct.String()}
	}

	v, err := coerce(v, ct)
	if err != nil {
		return nil, err
	}

	switch v.Kind() {
	case core.KindBool:
		if d == core.PostgreSQL {
			return v.Bool(), nil
		}
		if v.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case core.KindInt64:
		return v.Int(), nil
	case core.KindUInt64:
		if d == core.MySQL {
			return v.Uint(), nil
		}
		if v.Uint() > math.MaxInt64 {
			return nil, mismatch(ct, fmt.Errorf("%d overflows a signed 64-bit integer", v.Uint()))
		}
		return int64(v.Uint()), nil
	case core.KindFloat64:
		return v.Float(), nil
	case core.KindText:
		return v.Text(), nil
	case core.KindDate:
		if d == core.SQLite {
			return v.Time().Format(core.DateLayout), nil
		}
		return v.Time(), nil
	case core.KindDateTime:
		t := v.Time().UTC()
		if d == core.SQLite {
			return t.Format(core.DateTimeLayout), nil
		}
		return t, nil
	case core.KindTime:
		return core.FormatTimeOfDay(v.TimeOfDay()), nil
	case core.KindJSON:
		return string(v.JSON()), nil
	case core.KindBytes:
		return v.Bytes(), nil
	}
	return nil, mismatch(ct, fmt.Errorf("cannot encode %s", v.Kind()))
}

// EncodeRecord reads a caller RowRecord through its column type and encodes
// it for the dialect.
func EncodeRecord(d core.Dialect, r core.RowRecord) (any, error) {
	v, err := Record(r)
	if err != nil {
		return nil, err
	}
	arg, err := Encode(d, v, r.ColumnType)
	if err != nil {
		return nil, withColumn(err, r.ColumnName)
	}
	return arg, nil
}

// coerce checks that v fits a column of type ct, applying the lossless
// conversions between kinds (an Int64 into a Float column, a non-negative
// Int64 into a PositiveInteger column).
func coerce(v core.Value, ct core.ColumnType) (core.Value, error) {
	k := v.Kind()
	bad := func() (core.Value, error) {
		return core.Value{}, mismatch(ct, fmt.Errorf("%s value for a %s column", k, ct))
	}

	switch ct {
	case core.TypeString, core.TypeText, core.TypeCustom:
		if k == core.KindText {
			return v, nil
		}
	case core.TypeUUID:
		if k == core.KindText {
			id, err := uuid.Parse(v.Text())
			if err != nil {
				return core.Value{}, mismatch(ct, err)
			}
			return core.TextValue(id.String()), nil
		}
	case core.TypeInteger, core.TypeYear:
		switch k {
		case core.KindInt64:
			return v, nil
		case core.KindUInt64:
			if v.Uint() <= math.MaxInt64 {
				return core.IntValue(int64(v.Uint())), nil
			}
		}
	case core.TypePositiveInteger:
		switch k {
		case core.KindUInt64:
			return v, nil
		case core.KindInt64:
			if v.Int() >= 0 {
				return core.UintValue(uint64(v.Int())), nil
			}
		}
	case core.TypeFloat:
		switch k {
		case core.KindFloat64:
			return v, nil
		case core.KindInt64:
			return core.FloatValue(float64(v.Int())), nil
		case core.KindUInt64:
			return core.FloatValue(float64(v.Uint())), nil
		}
	case core.TypeBoolean:
		if k == core.KindBool {
			return v, nil
		}
	case core.TypeDate:
		switch k {
		case core.KindDate:
			return v, nil
		case core.KindDateTime:
			return core.DateValue(v.Time()), nil
		}
	case core.TypeDateTime:
		switch k {
		case core.KindDateTime:
			return v, nil
		case core.KindDate:
			return core.DateTimeValue(v.Time()), nil
		}
	case core.TypeTime:
		if k == core.KindTime {
			return v, nil
		}
	case core.TypeJSON:
		if k == core.KindJSON {
			return v, nil
		}
	case core.TypeBinary:
		switch k {
		case core.KindBytes:
			return v, nil
		case core.KindText:
			return core.BytesValue([]byte(v.Text())), nil
		}
	}
	return bad()
}
