package core

import (
	"encoding/json"
	"fmt"
)

// ColumnType is the engine-agnostic type tag every native column type maps to.
type ColumnType int

// Canonical column types.
const (
	TypeUnsupported ColumnType = iota
	TypeString
	TypeText
	TypeUUID
	TypeFloat
	TypeInteger
	TypePositiveInteger
	TypeBoolean
	TypeDate
	TypeDateTime
	TypeTime
	TypeYear
	TypeJSON
	TypeBinary
	TypeCustom
)

var columnTypeNames = map[ColumnType]string{
	TypeUnsupported:     "unsupported",
	TypeString:          "string",
	TypeText:            "text",
	TypeUUID:            "uuid",
	TypeFloat:           "float",
	TypeInteger:         "integer",
	TypePositiveInteger: "positiveInteger",
	TypeBoolean:         "boolean",
	TypeDate:            "date",
	TypeDateTime:        "dateTime",
	TypeTime:            "time",
	TypeYear:            "year",
	TypeJSON:            "json",
	TypeBinary:          "binary",
	TypeCustom:          "custom",
}

// ColumnTypes lists every canonical type, Unsupported last.
func ColumnTypes() []ColumnType {
	return []ColumnType{
		TypeString, TypeText, TypeUUID, TypeFloat, TypeInteger, TypePositiveInteger,
		TypeBoolean, TypeDate, TypeDateTime, TypeTime, TypeYear, TypeJSON, TypeBinary,
		TypeCustom, TypeUnsupported,
	}
}

func (t ColumnType) String() string {
	if s, ok := columnTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType is the inverse of String.
func ParseColumnType(s string) (ColumnType, error) {
	for t, name := range columnTypeNames {
		if name == s {
			return t, nil
		}
	}
	return TypeUnsupported, fmt.Errorf("unknown column type %q", s)
}

// IsTextual reports whether values of t are carried as text.
func (t ColumnType) IsTextual() bool {
	switch t {
	case TypeString, TypeText, TypeUUID, TypeCustom:
		return true
	}
	return false
}

// IsNumeric reports whether t holds numbers.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeFloat, TypeInteger, TypePositiveInteger, TypeYear:
		return true
	}
	return false
}

// MarshalJSON encodes the type as its camelCase name.
func (t ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the camelCase name.
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColumnType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML encodes the type as its camelCase name.
func (t ColumnType) MarshalYAML() (any, error) {
	return t.String(), nil
}
