package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/leapstack-labs/tablex/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, raw string) core.Value {
	t.Helper()
	v, err := core.JSONValue([]byte(raw))
	require.NoError(t, err)
	return v
}

// sampleValues returns a non-null value of each column type.
func sampleValues(t *testing.T) map[core.ColumnType]core.Value {
	return map[core.ColumnType]core.Value{
		core.TypeString:          core.TextValue("Alice"),
		core.TypeText:            core.TextValue("a longer note\nwith a newline"),
		core.TypeUUID:            core.TextValue("6f1c2a9e-3b7d-4c55-9a0e-2d4f8b1c7e90"),
		core.TypeFloat:           core.FloatValue(12.5),
		core.TypeInteger:         core.IntValue(-42),
		core.TypePositiveInteger: core.UintValue(42),
		core.TypeBoolean:         core.BoolValue(true),
		core.TypeDate:            core.DateValue(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		core.TypeDateTime:        core.DateTimeValue(time.Date(2024, 3, 1, 13, 45, 30, 500000000, time.UTC)),
		core.TypeTime:            core.TimeValue(13*time.Hour + 45*time.Minute + 30*time.Second),
		core.TypeYear:            core.IntValue(1999),
		core.TypeJSON:            mustJSON(t, `{"tags": ["a", "b"], "n": 1}`),
		core.TypeBinary:          core.BytesValue([]byte{0x00, 0xff, 0x10}),
		core.TypeCustom:          core.TextValue("1 day 02:00:00"),
	}
}

// Encoding a value and decoding what the driver would hand back yields the
// same value, for every dialect and every type the dialect can store.
func TestRoundTrip(t *testing.T) {
	samples := sampleValues(t)
	for _, d := range core.Dialects() {
		for _, ct := range core.ColumnTypes() {
			native, ok := dialect.NativeTypeName(d, ct)
			if !ok {
				continue
			}
			t.Run(string(d)+"/"+ct.String(), func(t *testing.T) {
				for _, v := range []core.Value{samples[ct], core.NullValue()} {
					arg, err := Encode(d, v, ct)
					require.NoError(t, err)

					got, err := DecodeAs(d, arg, native, ct)
					require.NoError(t, err)
					assert.True(t, v.Equal(got), "want %v, got %v", v, got)
				}
			})
		}
	}
}

func TestEncode(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	instant := time.Date(2024, 3, 1, 15, 4, 5, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		dialect  core.Dialect
		value    core.Value
		ct       core.ColumnType
		expected any
	}{
		{"pg bool", core.PostgreSQL, core.BoolValue(true), core.TypeBoolean, true},
		{"mysql bool", core.MySQL, core.BoolValue(true), core.TypeBoolean, int64(1)},
		{"sqlite bool", core.SQLite, core.BoolValue(false), core.TypeBoolean, int64(0)},
		{"mysql unsigned", core.MySQL, core.UintValue(7), core.TypePositiveInteger, uint64(7)},
		{"sqlite unsigned", core.SQLite, core.UintValue(7), core.TypePositiveInteger, int64(7)},
		{"int into unsigned", core.MySQL, core.IntValue(7), core.TypePositiveInteger, uint64(7)},
		{"int into float", core.PostgreSQL, core.IntValue(3), core.TypeFloat, float64(3)},
		{"sqlite date", core.SQLite, core.DateValue(day), core.TypeDate, "2024-03-01"},
		{"pg date", core.PostgreSQL, core.DateValue(day), core.TypeDate, day},
		{"sqlite datetime in utc", core.SQLite, core.DateTimeValue(instant), core.TypeDateTime, "2024-03-01 14:04:05"},
		{"mysql datetime", core.MySQL, core.DateTimeValue(instant), core.TypeDateTime, instant.UTC()},
		{"time", core.MySQL, core.TimeValue(9*time.Hour + 5*time.Second), core.TypeTime, "09:00:05"},
		{"json", core.PostgreSQL, mustJSON(t, `{ "a": 1 }`), core.TypeJSON, `{"a":1}`},
		{"uuid is canonical", core.PostgreSQL, core.TextValue("6F1C2A9E-3B7D-4C55-9A0E-2D4F8B1C7E90"), core.TypeUUID, "6f1c2a9e-3b7d-4c55-9a0e-2d4f8b1c7e90"},
		{"text into binary", core.SQLite, core.TextValue("ab"), core.TypeBinary, []byte("ab")},
		{"null", core.MySQL, core.NullValue(), core.TypeInteger, nil},
		{"null of unsupported type", core.MySQL, core.NullValue(), core.TypeUnsupported, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.dialect, tt.value, tt.ct)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dialect core.Dialect
		value   core.Value
		ct      core.ColumnType
		kind    core.CodecErrorKind
	}{
		{"text into integer", core.SQLite, core.TextValue("x"), core.TypeInteger, core.TypeMismatch},
		{"negative into unsigned", core.MySQL, core.IntValue(-1), core.TypePositiveInteger, core.TypeMismatch},
		{"bad uuid", core.PostgreSQL, core.TextValue("not-a-uuid"), core.TypeUUID, core.TypeMismatch},
		{"float into integer", core.PostgreSQL, core.FloatValue(1.5), core.TypeInteger, core.TypeMismatch},
		{"huge unsigned on pg", core.PostgreSQL, core.UintValue(1 << 63), core.TypePositiveInteger, core.TypeMismatch},
		{"unsupported type", core.PostgreSQL, core.IntValue(1), core.TypeUnsupported, core.UnsupportedDataType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.dialect, tt.value, tt.ct)
			var ce *core.CodecError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
		})
	}
}

func TestEncode_UnknownDialect(t *testing.T) {
	_, err := Encode(core.Dialect("oracle"), core.IntValue(1), core.TypeInteger)
	var unsupported *core.UnsupportedDriverError
	assert.ErrorAs(t, err, &unsupported)
}

func TestEncodeRecord(t *testing.T) {
	arg, err := EncodeRecord(core.PostgreSQL, core.RowRecord{
		ColumnName: "age",
		Value:      json.RawMessage(`30`),
		ColumnType: core.TypeInteger,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), arg)

	_, err = EncodeRecord(core.PostgreSQL, core.RowRecord{
		ColumnName: "age",
		Value:      json.RawMessage(`"thirty"`),
		ColumnType: core.TypeInteger,
	})
	var ce *core.CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "age", ce.Column)
	assert.Equal(t, core.TypeMismatch, ce.Kind)
}
