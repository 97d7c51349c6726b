package typemap

import (
	"testing"

	"github.com/dilla-go/dilla/internal/schema"
)

func TestDefaultPostgresMapping(t *testing.T) {
	tm := DefaultPostgres()

	tests := []struct {
		sqlType string
		want    schema.Kind
	}{
		{"integer", schema.KindInteger},
		{"bigint", schema.KindInteger},
		{"smallint", schema.KindSmallInteger},
		{"text", schema.KindLongText},
		{"character varying", schema.KindText},
		{"varchar(20)", schema.KindText},
		{"boolean", schema.KindBoolean},
		{"timestamp with time zone", schema.KindDateTime},
		{"time", schema.KindTime},
		{"numeric(7,2)", schema.KindDecimal},
		{"inet", schema.KindIPAddress},
		{"serial", schema.KindAutoGenerated},
	}

	for _, tt := range tests {
		t.Run(tt.sqlType, func(t *testing.T) {
			got := tm.Resolve(tt.sqlType)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.sqlType, got, tt.want)
			}
		})
	}
}

func TestUnknownTypeFallsBackToText(t *testing.T) {
	tm := DefaultPostgres()
	if got := tm.Resolve("some_unknown_type"); got != schema.KindText {
		t.Errorf("expected fallback to text, got %s", got)
	}
	if got := tm.Resolve("integer[]"); got != schema.KindLongText {
		t.Errorf("expected arrays to map to long_text, got %s", got)
	}
}

func TestForDatabase(t *testing.T) {
	if ForDatabase("postgresql").Resolve("int4") != schema.KindInteger {
		t.Error("ForDatabase(postgresql) should return PostgreSQL defaults")
	}
	if ForDatabase("mysql").Resolve("tinyint(1)") != schema.KindBoolean {
		t.Error("ForDatabase(mysql) should map tinyint to boolean")
	}
	if ForDatabase("sqlite").Resolve("REAL") != schema.KindDecimal {
		t.Error("ForDatabase(sqlite) should map REAL to decimal")
	}
}

func TestResolveColumnHints(t *testing.T) {
	tm := ForDatabase("postgresql")

	tests := []struct {
		column, sqlType string
		want            schema.Kind
	}{
		{"email", "varchar", schema.KindEmail},
		{"contact_email", "character varying", schema.KindEmail},
		{"website_url", "varchar", schema.KindURL},
		{"slug", "varchar", schema.KindSlug},
		{"last_login_ip", "varchar", schema.KindIPAddress},
		{"name", "varchar", schema.KindText},
		{"email_count", "integer", schema.KindInteger},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			if got := tm.ResolveColumn(tt.column, tt.sqlType); got != tt.want {
				t.Errorf("ResolveColumn(%q, %q) = %s, want %s", tt.column, tt.sqlType, got, tt.want)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	tm := ForDatabase("postgresql")

	tm.Override("uuid", schema.KindSlug)
	if tm.Resolve("uuid") != schema.KindSlug {
		t.Errorf("expected slug after override, got %s", tm.Resolve("uuid"))
	}
	if !tm.IsOverridden("uuid") {
		t.Error("uuid should be marked as overridden")
	}
}

func TestOverride_SameAsDefault(t *testing.T) {
	tm := ForDatabase("postgresql")

	tm.Override("integer", schema.KindInteger)
	if tm.IsOverridden("integer") {
		t.Error("overriding to default value should not be tracked as override")
	}
}

func TestOverrideDisablesNameHints(t *testing.T) {
	tm := ForDatabase("postgresql")
	tm.Override("citext", schema.KindText)
	if got := tm.ResolveColumn("email", "citext"); got != schema.KindText {
		t.Errorf("explicit override should win over name hints, got %s", got)
	}
}

func TestApplyOverrides(t *testing.T) {
	tm := ForDatabase("postgresql")
	if err := tm.ApplyOverrides(map[string]string{"money": "decimal"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.Resolve("money") != schema.KindDecimal {
		t.Error("money should resolve to decimal")
	}
	if err := tm.ApplyOverrides(map[string]string{"money": "cash"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
