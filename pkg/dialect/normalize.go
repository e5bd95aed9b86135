package dialect

import (
	"strings"

	"github.com/leapstack-labs/tablex/pkg/core"
)

// Driver-reported type names. Keys are matched exactly against
// sql.ColumnType.DatabaseTypeName, which every supported driver reports
// upper-cased.
var (
	sqliteTypes = map[string]core.ColumnType{
		"INTEGER":           core.TypeInteger,
		"INT":               core.TypeInteger,
		"BIGINT":            core.TypeInteger,
		"SMALLINT":          core.TypeInteger,
		"TINYINT":           core.TypeInteger,
		"MEDIUMINT":         core.TypeInteger,
		"INT2":              core.TypeInteger,
		"INT8":              core.TypeInteger,
		"UNSIGNED BIG INT":  core.TypePositiveInteger,
		"BOOLEAN":           core.TypeBoolean,
		"BOOL":              core.TypeBoolean,
		"REAL":              core.TypeFloat,
		"DOUBLE":            core.TypeFloat,
		"DOUBLE PRECISION":  core.TypeFloat,
		"FLOAT":             core.TypeFloat,
		"NUMERIC":           core.TypeFloat,
		"DECIMAL":           core.TypeFloat,
		"TEXT":              core.TypeText,
		"CLOB":              core.TypeText,
		"VARCHAR":           core.TypeString,
		"CHAR":              core.TypeString,
		"CHARACTER":         core.TypeString,
		"VARYING CHARACTER": core.TypeString,
		"NCHAR":             core.TypeString,
		"NATIVE CHARACTER":  core.TypeString,
		"NVARCHAR":          core.TypeString,
		"UUID":              core.TypeUUID,
		"DATE":              core.TypeDate,
		"DATETIME":          core.TypeDateTime,
		"TIMESTAMP":         core.TypeDateTime,
		"TIME":              core.TypeTime,
		"YEAR":              core.TypeYear,
		"JSON":              core.TypeJSON,
		"BLOB":              core.TypeBinary,
	}

	postgresTypes = map[string]core.ColumnType{
		"INT2":        core.TypeInteger,
		"INT4":        core.TypeInteger,
		"INT8":        core.TypeInteger,
		"OID":         core.TypeInteger,
		"FLOAT4":      core.TypeFloat,
		"FLOAT8":      core.TypeFloat,
		"NUMERIC":     core.TypeFloat,
		"BOOL":        core.TypeBoolean,
		"VARCHAR":     core.TypeString,
		"BPCHAR":      core.TypeString,
		"CHAR":        core.TypeString,
		"NAME":        core.TypeString,
		"TEXT":        core.TypeText,
		"UUID":        core.TypeUUID,
		"DATE":        core.TypeDate,
		"TIMESTAMP":   core.TypeDateTime,
		"TIMESTAMPTZ": core.TypeDateTime,
		"TIME":        core.TypeTime,
		"JSON":        core.TypeJSON,
		"JSONB":       core.TypeJSON,
		"BYTEA":       core.TypeBinary,
		"INTERVAL":    core.TypeCustom,
		"INET":        core.TypeCustom,
		"CIDR":        core.TypeCustom,
		"MACADDR":     core.TypeCustom,
		"XML":         core.TypeCustom,
		"TIMETZ":      core.TypeCustom,
		"BIT":         core.TypeCustom,
		"VARBIT":      core.TypeCustom,
		"TSVECTOR":    core.TypeCustom,
	}

	// Catalog spellings (information_schema.columns.data_type) that differ
	// from the driver names.
	postgresAliases = map[string]string{
		"SMALLINT":                    "INT2",
		"INTEGER":                     "INT4",
		"INT":                         "INT4",
		"BIGINT":                      "INT8",
		"SMALLSERIAL":                 "INT2",
		"SERIAL":                      "INT4",
		"BIGSERIAL":                   "INT8",
		"REAL":                        "FLOAT4",
		"DOUBLE PRECISION":            "FLOAT8",
		"DECIMAL":                     "NUMERIC",
		"BOOLEAN":                     "BOOL",
		"CHARACTER VARYING":           "VARCHAR",
		"CHARACTER":                   "BPCHAR",
		"TIMESTAMP WITHOUT TIME ZONE": "TIMESTAMP",
		"TIMESTAMP WITH TIME ZONE":    "TIMESTAMPTZ",
		"TIME WITHOUT TIME ZONE":      "TIME",
		"TIME WITH TIME ZONE":         "TIMETZ",
		"BIT VARYING":                 "VARBIT",
		"USER-DEFINED":                "",
		"ARRAY":                       "",
	}

	mysqlTypes = map[string]core.ColumnType{
		"TINYINT":            core.TypeInteger,
		"SMALLINT":           core.TypeInteger,
		"MEDIUMINT":          core.TypeInteger,
		"INT":                core.TypeInteger,
		"BIGINT":             core.TypeInteger,
		"UNSIGNED TINYINT":   core.TypePositiveInteger,
		"UNSIGNED SMALLINT":  core.TypePositiveInteger,
		"UNSIGNED MEDIUMINT": core.TypePositiveInteger,
		"UNSIGNED INT":       core.TypePositiveInteger,
		"UNSIGNED BIGINT":    core.TypePositiveInteger,
		"DECIMAL":            core.TypeFloat,
		"FLOAT":              core.TypeFloat,
		"DOUBLE":             core.TypeFloat,
		"CHAR":               core.TypeString,
		"VARCHAR":            core.TypeString,
		"ENUM":               core.TypeString,
		"SET":                core.TypeString,
		"TEXT":               core.TypeText,
		"TINYTEXT":           core.TypeText,
		"MEDIUMTEXT":         core.TypeText,
		"LONGTEXT":           core.TypeText,
		"BINARY":             core.TypeBinary,
		"VARBINARY":          core.TypeBinary,
		"BLOB":               core.TypeBinary,
		"TINYBLOB":           core.TypeBinary,
		"MEDIUMBLOB":         core.TypeBinary,
		"LONGBLOB":           core.TypeBinary,
		"BIT":                core.TypeBinary,
		"DATE":               core.TypeDate,
		"DATETIME":           core.TypeDateTime,
		"TIMESTAMP":          core.TypeDateTime,
		"TIME":               core.TypeTime,
		"YEAR":               core.TypeYear,
		"JSON":               core.TypeJSON,
		"NULL":               core.TypeCustom,
	}

	mysqlAliases = map[string]string{
		"INTEGER":          "INT",
		"NUMERIC":          "DECIMAL",
		"REAL":             "DOUBLE",
		"DEC":              "DECIMAL",
		"FIXED":            "DECIMAL",
		"DOUBLE PRECISION": "DOUBLE",
	}
)

// DriverType looks a driver-reported type name up in the dialect's table.
// The match is exact; ok is false for names the dialect has no mapping for.
func DriverType(d core.Dialect, name string) (core.ColumnType, bool) {
	var ct core.ColumnType
	var ok bool
	switch d {
	case core.SQLite:
		ct, ok = sqliteTypes[name]
	case core.PostgreSQL:
		ct, ok = postgresTypes[name]
	case core.MySQL:
		ct, ok = mysqlTypes[name]
	}
	return ct, ok
}

// NormalizeColumnType maps a native type name, as written in a catalog or
// reported by a driver, to its canonical tag. Names the dialect does not
// know map to TypeUnsupported.
func NormalizeColumnType(d core.Dialect, native string) core.ColumnType {
	switch d {
	case core.SQLite:
		return normalizeSQLite(native)
	case core.PostgreSQL:
		return normalizePostgres(native)
	case core.MySQL:
		return normalizeMySQL(native)
	}
	return core.TypeUnsupported
}

// baseTypeName upper-cases a declared type and drops its parameter list:
// "varchar(255)" becomes "VARCHAR", "int(10) unsigned" becomes "INT UNSIGNED".
func baseTypeName(native string) string {
	s := strings.ToUpper(strings.TrimSpace(native))
	for {
		open := strings.IndexByte(s, '(')
		if open < 0 {
			break
		}
		end := strings.IndexByte(s[open:], ')')
		if end < 0 {
			s = s[:open]
			break
		}
		s = s[:open] + s[open+end+1:]
	}
	return strings.Join(strings.Fields(s), " ")
}

// normalizeSQLite follows the declared-type affinity rules. SQLite accepts
// any declared type, so unknown names fall back to affinity and never map
// to TypeUnsupported.
func normalizeSQLite(native string) core.ColumnType {
	base := baseTypeName(native)
	if base == "" {
		return core.TypeCustom
	}
	if ct, ok := sqliteTypes[base]; ok {
		return ct
	}
	switch {
	case strings.Contains(base, "INT"):
		return core.TypeInteger
	case strings.Contains(base, "CHAR"), strings.Contains(base, "CLOB"), strings.Contains(base, "TEXT"):
		return core.TypeText
	case strings.Contains(base, "BLOB"):
		return core.TypeBinary
	case strings.Contains(base, "REAL"), strings.Contains(base, "FLOA"), strings.Contains(base, "DOUB"):
		return core.TypeFloat
	}
	return core.TypeCustom
}

func normalizePostgres(native string) core.ColumnType {
	base := baseTypeName(native)
	if strings.HasPrefix(base, "_") || strings.HasSuffix(base, "[]") {
		return core.TypeCustom
	}
	if alias, ok := postgresAliases[base]; ok {
		if alias == "" {
			return core.TypeCustom
		}
		base = alias
	}
	if ct, ok := postgresTypes[base]; ok {
		return ct
	}
	return core.TypeUnsupported
}

func normalizeMySQL(native string) core.ColumnType {
	lower := strings.ToLower(strings.TrimSpace(native))
	if lower == "tinyint(1)" || lower == "bit(1)" {
		return core.TypeBoolean
	}
	base := baseTypeName(native)
	if base == "BOOL" || base == "BOOLEAN" {
		return core.TypeBoolean
	}
	unsigned := false
	if rest, ok := strings.CutSuffix(base, " ZEROFILL"); ok {
		base = rest
	}
	if rest, ok := strings.CutSuffix(base, " UNSIGNED"); ok {
		base, unsigned = rest, true
	}
	if alias, ok := mysqlAliases[base]; ok {
		base = alias
	}
	if unsigned {
		if ct, ok := mysqlTypes["UNSIGNED "+base]; ok {
			return ct
		}
	}
	if ct, ok := mysqlTypes[base]; ok {
		return ct
	}
	return core.TypeUnsupported
}

// NativeTypeName returns the driver-reported name of a column declared with
// the dialect's usual spelling of ct. ok is false when the dialect has no
// native column type for ct.
func NativeTypeName(d core.Dialect, ct core.ColumnType) (string, bool) {
	var names map[core.ColumnType]string
	switch d {
	case core.SQLite:
		names = sqliteNames
	case core.PostgreSQL:
		names = postgresNames
	case core.MySQL:
		names = mysqlNames
	}
	name, ok := names[ct]
	return name, ok
}

var (
	sqliteNames = map[core.ColumnType]string{
		core.TypeString:          "VARCHAR",
		core.TypeText:            "TEXT",
		core.TypeUUID:            "UUID",
		core.TypeFloat:           "REAL",
		core.TypeInteger:         "INTEGER",
		core.TypePositiveInteger: "UNSIGNED BIG INT",
		core.TypeBoolean:         "BOOLEAN",
		core.TypeDate:            "DATE",
		core.TypeDateTime:        "DATETIME",
		core.TypeTime:            "TIME",
		core.TypeYear:            "YEAR",
		core.TypeJSON:            "JSON",
		core.TypeBinary:          "BLOB",
	}
	postgresNames = map[core.ColumnType]string{
		core.TypeString:   "VARCHAR",
		core.TypeText:     "TEXT",
		core.TypeUUID:     "UUID",
		core.TypeFloat:    "FLOAT8",
		core.TypeInteger:  "INT8",
		core.TypeBoolean:  "BOOL",
		core.TypeDate:     "DATE",
		core.TypeDateTime: "TIMESTAMPTZ",
		core.TypeTime:     "TIME",
		core.TypeYear:     "INT4",
		core.TypeJSON:     "JSONB",
		core.TypeBinary:   "BYTEA",
		core.TypeCustom:   "INTERVAL",
	}
	mysqlNames = map[core.ColumnType]string{
		core.TypeString:          "VARCHAR",
		core.TypeText:            "TEXT",
		core.TypeUUID:            "CHAR",
		core.TypeFloat:           "DOUBLE",
		core.TypeInteger:         "BIGINT",
		core.TypePositiveInteger: "UNSIGNED BIGINT",
		core.TypeBoolean:         "TINYINT",
		core.TypeDate:            "DATE",
		core.TypeDateTime:        "DATETIME",
		core.TypeTime:            "TIME",
		core.TypeYear:            "YEAR",
		core.TypeJSON:            "JSON",
		core.TypeBinary:          "BLOB",
	}
)
