package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		ct       core.ColumnType
		expected core.Value
	}{
		{"null integer", `null`, core.TypeInteger, core.NullValue()},
		{"null json", `null`, core.TypeJSON, core.NullValue()},
		{"string", `"Alice"`, core.TypeString, core.TextValue("Alice")},
		{"number as text", `42`, core.TypeText, core.TextValue("42")},
		{"integer", `30`, core.TypeInteger, core.IntValue(30)},
		{"integral float as integer", `30.0`, core.TypeInteger, core.IntValue(30)},
		{"integer in a string", `"30"`, core.TypeInteger, core.IntValue(30)},
		{"year", `2024`, core.TypeYear, core.IntValue(2024)},
		{"unsigned beyond int64", `18446744073709551615`, core.TypePositiveInteger, core.UintValue(18446744073709551615)},
		{"float", `12.5`, core.TypeFloat, core.FloatValue(12.5)},
		{"bool", `true`, core.TypeBoolean, core.BoolValue(true)},
		{"bool from 0", `0`, core.TypeBoolean, core.BoolValue(false)},
		{"bool from text", `"yes"`, core.TypeBoolean, core.BoolValue(true)},
		{"uuid", `"6F1C2A9E-3B7D-4C55-9A0E-2D4F8B1C7E90"`, core.TypeUUID, core.TextValue("6f1c2a9e-3b7d-4c55-9a0e-2d4f8b1c7e90")},
		{"date", `"2024-03-01"`, core.TypeDate, core.DateValue(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{"datetime rfc3339", `"2024-03-01T10:00:00+02:00"`, core.TypeDateTime, core.DateTimeValue(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"datetime with space", `"2024-03-01 08:00:00"`, core.TypeDateTime, core.DateTimeValue(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"datetime from unix", `1709280000`, core.TypeDateTime, core.DateTimeValue(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"time", `"08:30"`, core.TypeTime, core.TimeValue(8*time.Hour + 30*time.Minute)},
		{"time beyond a day", `"-838:59:59"`, core.TypeTime, core.TimeValue(-(838*time.Hour + 59*time.Minute + 59*time.Second))},
		{"json object", `{"a": [1, 2]}`, core.TypeJSON, mustJSON(t, `{"a":[1,2]}`)},
		{"json object in a string", `"{\"a\": 1}"`, core.TypeJSON, mustJSON(t, `{"a":1}`)},
		{"json plain string stays a string", `"hello"`, core.TypeJSON, mustJSON(t, `"hello"`)},
		{"json number", `7`, core.TypeJSON, mustJSON(t, `7`)},
		{"binary from string", `"ab"`, core.TypeBinary, core.BytesValue([]byte("ab"))},
		{"binary from array", `[0, 255, 16]`, core.TypeBinary, core.BytesValue([]byte{0, 255, 16})},
		{"custom", `"1 day"`, core.TypeCustom, core.TextValue("1 day")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromJSON(json.RawMessage(tt.raw), tt.ct)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "want %v, got %v", tt.expected, got)
		})
	}
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ct   core.ColumnType
		kind core.CodecErrorKind
	}{
		{"text for integer", `"abc"`, core.TypeInteger, core.TypeMismatch},
		{"fraction for integer", `1.5`, core.TypeInteger, core.TypeMismatch},
		{"negative for unsigned", `-1`, core.TypePositiveInteger, core.TypeMismatch},
		{"object for string", `{"a":1}`, core.TypeString, core.TypeMismatch},
		{"two for boolean", `2`, core.TypeBoolean, core.TypeMismatch},
		{"bad uuid", `"1234"`, core.TypeUUID, core.TypeMismatch},
		{"bad date", `"March 1st"`, core.TypeDate, core.TypeMismatch},
		{"number for date", `20240301`, core.TypeDate, core.TypeMismatch},
		{"byte out of range", `[1, 256]`, core.TypeBinary, core.TypeMismatch},
		{"invalid json", `{`, core.TypeJSON, core.TypeMismatch},
		{"unsupported", `1`, core.TypeUnsupported, core.UnsupportedDataType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON(json.RawMessage(tt.raw), tt.ct)
			var ce *core.CodecError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
		})
	}
}

func TestRecord_NamesColumn(t *testing.T) {
	_, err := Record(core.RowRecord{ColumnName: "born", Value: json.RawMessage(`"soon"`), ColumnType: core.TypeDate})
	var ce *core.CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "born", ce.Column)
}
