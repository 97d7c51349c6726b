package typemap

import (
	"fmt"
	"strings"

	"github.com/dilla-go/dilla/internal/schema"
)

// TypeMap holds the mapping from SQL data types to field kinds.
type TypeMap struct {
	Mappings  map[string]schema.Kind `yaml:"mappings"`
	Overrides map[string]schema.Kind `yaml:"overrides,omitempty"`
	defaults  map[string]schema.Kind // not serialized; populated by ForDatabase
}

// DefaultPostgres returns the default type mapping for PostgreSQL.
func DefaultPostgres() *TypeMap {
	m := map[string]schema.Kind{
		"integer":                     schema.KindInteger,
		"int":                         schema.KindInteger,
		"int4":                        schema.KindInteger,
		"bigint":                      schema.KindInteger,
		"int8":                        schema.KindInteger,
		"smallint":                    schema.KindSmallInteger,
		"int2":                        schema.KindSmallInteger,
		"serial":                      schema.KindAutoGenerated,
		"bigserial":                   schema.KindAutoGenerated,
		"smallserial":                 schema.KindAutoGenerated,
		"numeric":                     schema.KindDecimal,
		"decimal":                     schema.KindDecimal,
		"real":                        schema.KindDecimal,
		"float4":                      schema.KindDecimal,
		"float8":                      schema.KindDecimal,
		"double precision":            schema.KindDecimal,
		"character varying":           schema.KindText,
		"varchar":                     schema.KindText,
		"char":                        schema.KindText,
		"character":                   schema.KindText,
		"bpchar":                      schema.KindText,
		"text":                        schema.KindLongText,
		"boolean":                     schema.KindBoolean,
		"bool":                        schema.KindBoolean,
		"date":                        schema.KindDate,
		"timestamp":                   schema.KindDateTime,
		"timestamptz":                 schema.KindDateTime,
		"timestamp with time zone":    schema.KindDateTime,
		"timestamp without time zone": schema.KindDateTime,
		"time":                        schema.KindTime,
		"time without time zone":      schema.KindTime,
		"inet":                        schema.KindIPAddress,
		"cidr":                        schema.KindIPAddress,
		"uuid":                        schema.KindText,
	}
	return &TypeMap{Mappings: m}
}

// DefaultMySQL returns the default type mapping for MySQL.
func DefaultMySQL() *TypeMap {
	m := map[string]schema.Kind{
		"int":        schema.KindInteger,
		"integer":    schema.KindInteger,
		"bigint":     schema.KindInteger,
		"mediumint":  schema.KindInteger,
		"smallint":   schema.KindSmallInteger,
		"tinyint":    schema.KindBoolean,
		"decimal":    schema.KindDecimal,
		"numeric":    schema.KindDecimal,
		"float":      schema.KindDecimal,
		"double":     schema.KindDecimal,
		"varchar":    schema.KindText,
		"char":       schema.KindText,
		"text":       schema.KindLongText,
		"mediumtext": schema.KindLongText,
		"longtext":   schema.KindLongText,
		"date":       schema.KindDate,
		"datetime":   schema.KindDateTime,
		"timestamp":  schema.KindDateTime,
		"time":       schema.KindTime,
		"boolean":    schema.KindBoolean,
		"bool":       schema.KindBoolean,
	}
	return &TypeMap{Mappings: m}
}

// DefaultSQLite returns the default type mapping for SQLite affinities.
func DefaultSQLite() *TypeMap {
	m := map[string]schema.Kind{
		"integer":  schema.KindInteger,
		"int":      schema.KindInteger,
		"real":     schema.KindDecimal,
		"numeric":  schema.KindDecimal,
		"decimal":  schema.KindDecimal,
		"text":     schema.KindText,
		"varchar":  schema.KindText,
		"boolean":  schema.KindBoolean,
		"date":     schema.KindDate,
		"datetime": schema.KindDateTime,
	}
	return &TypeMap{Mappings: m}
}

// ForDatabase returns a TypeMap with defaults for the given database type.
func ForDatabase(dbType string) *TypeMap {
	var tm *TypeMap
	switch dbType {
	case "mysql":
		tm = DefaultMySQL()
	case "sqlite", "sqlite3":
		tm = DefaultSQLite()
	default:
		tm = DefaultPostgres()
	}
	// Store defaults for override tracking
	tm.defaults = make(map[string]schema.Kind, len(tm.Mappings))
	for k, v := range tm.Mappings {
		tm.defaults[k] = v
	}
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]schema.Kind)
	}
	return tm
}

// Resolve returns the field kind for the given SQL type. Length modifiers
// such as "varchar(20)" are ignored.
func (tm *TypeMap) Resolve(sqlType string) schema.Kind {
	t := normalize(sqlType)
	if k, ok := tm.Mappings[t]; ok {
		return k
	}
	if strings.HasSuffix(t, "[]") || t == "array" {
		return schema.KindLongText
	}
	return schema.KindText // fallback
}

// ResolveColumn refines Resolve with column-name hints for text columns,
// so "email" becomes an email and "website_url" a URL.
func (tm *TypeMap) ResolveColumn(column, sqlType string) schema.Kind {
	k := tm.Resolve(sqlType)
	if k != schema.KindText {
		return k
	}
	if tm.IsOverridden(normalize(sqlType)) {
		return k
	}
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "email"):
		return schema.KindEmail
	case strings.Contains(name, "url") || strings.Contains(name, "website") || strings.Contains(name, "link"):
		return schema.KindURL
	case name == "slug" || strings.HasSuffix(name, "_slug"):
		return schema.KindSlug
	case name == "ip" || strings.HasSuffix(name, "_ip") || strings.Contains(name, "ip_address"):
		return schema.KindIPAddress
	}
	return k
}

// Override applies a user override for a SQL type.
func (tm *TypeMap) Override(sqlType string, kind schema.Kind) {
	t := normalize(sqlType)
	tm.Mappings[t] = kind
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]schema.Kind)
	}
	// Track override only if different from default
	if tm.defaults != nil {
		if def, ok := tm.defaults[t]; ok && def == kind {
			delete(tm.Overrides, t)
			return
		}
	}
	tm.Overrides[t] = kind
}

// ApplyOverrides parses kind names from configuration and applies them.
func (tm *TypeMap) ApplyOverrides(overrides map[string]string) error {
	for sqlType, kindName := range overrides {
		k, err := schema.ParseKind(kindName)
		if err != nil {
			return fmt.Errorf("type override for %s: %w", sqlType, err)
		}
		tm.Override(sqlType, k)
	}
	return nil
}

// IsOverridden returns true if the SQL type has been overridden from its default.
func (tm *TypeMap) IsOverridden(sqlType string) bool {
	if tm.Overrides == nil {
		return false
	}
	_, ok := tm.Overrides[sqlType]
	return ok
}

func normalize(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if idx := strings.Index(t, "("); idx > 0 {
		t = strings.TrimSpace(t[:idx])
	}
	return t
}
