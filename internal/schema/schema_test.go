package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const eventsCatalog = `version: 1
namespaces:
  - name: events
    order: [Venue, Event, Genre, Artist]
    models:
      - name: Venue
        fields:
          - {name: id, kind: auto, auto_created: true}
          - {name: name, kind: text, max_length: 40}
      - name: Genre
        fields:
          - {name: name, kind: CharField, max_length: 20, unique: true}
      - name: Artist
        fields:
          - {name: name, kind: text}
          - {name: genre, kind: foreign_key, references: Genre, nullable: true}
      - name: Event
        fields:
          - {name: venue, kind: foreign_key, references: Venue}
          - {name: showtime, kind: time}
          - {name: created_at, kind: datetime, auto_populated: true}
        relations:
          - {name: artists, target: Artist}
        policy:
          skip_fields: [showtime]
          fields:
            artists: {max: 10}
`

func TestParseCatalog(t *testing.T) {
	c, warnings, err := ParseCatalog([]byte(eventsCatalog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	ns := c.Namespace("events")
	if ns == nil {
		t.Fatal("namespace events not found")
	}
	if got := strings.Join(ns.Order, ","); got != "Venue,Event,Genre,Artist" {
		t.Errorf("order = %s", got)
	}

	genre, err := c.Model("Genre")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if genre.Table != "genres" {
		t.Errorf("table = %q, want genres", genre.Table)
	}
	if k := genre.Field("name").Kind; k != KindText {
		t.Errorf("CharField alias resolved to %s, want text", k)
	}
	if genre.Key() != "events.Genre" {
		t.Errorf("key = %q", genre.Key())
	}

	event, err := c.Model("events.Event")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	venue := event.Field("venue")
	if venue.Column != "venue_id" {
		t.Errorf("column = %q, want venue_id", venue.Column)
	}
	if venue.Target != ns.Model("Venue") {
		t.Error("venue should resolve to the Venue model")
	}
	if deps := event.Dependencies(); len(deps) != 1 || deps[0] != "events.Venue" {
		t.Errorf("dependencies = %v", deps)
	}

	rel := event.Relations[0]
	if rel.TargetModel != ns.Model("Artist") {
		t.Error("artists should resolve to the Artist model")
	}
	if rel.Through != "events_artists" || rel.SourceColumn != "event_id" || rel.TargetColumn != "artist_id" {
		t.Errorf("relation columns = %s(%s, %s)", rel.Through, rel.SourceColumn, rel.TargetColumn)
	}
	if n := event.FieldPolicy("artists").MaxRelated(); n != 10 {
		t.Errorf("max related = %d, want 10", n)
	}
	if !event.Policy.SkipsField("showtime") {
		t.Error("showtime should be skipped")
	}
}

func TestParseCatalog_UnknownGeneratorRejected(t *testing.T) {
	data := `namespaces:
  - name: shop
    models:
      - name: Coupon
        fields:
          - {name: code, kind: text}
        policy:
          fields:
            code: {generator: md5ish}
`
	_, _, err := ParseCatalog([]byte(data))
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if len(verr.Problems) != 1 {
		t.Fatalf("expected 1 problem, got %v", verr.Problems)
	}
	if !strings.Contains(verr.Problems[0], `unknown generator "md5ish"`) {
		t.Errorf("problem = %q", verr.Problems[0])
	}
}

func TestParseCatalog_UnknownKind(t *testing.T) {
	data := `namespaces:
  - name: shop
    models:
      - name: Coupon
        fields:
          - {name: code, kind: blob}
`
	_, _, err := ParseCatalog([]byte(data))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), `unknown field kind "blob"`) {
		t.Errorf("error = %v", err)
	}
}

func TestParseCatalog_BadReferences(t *testing.T) {
	data := `namespaces:
  - name: shop
    models:
      - name: Order
        fields:
          - {name: customer, kind: foreign_key, references: Customer}
          - {name: note, kind: foreign_key}
`
	_, _, err := ParseCatalog([]byte(data))
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("expected 2 problems, got %v", verr.Problems)
	}
}

func TestParseCatalog_RangeWarnings(t *testing.T) {
	data := `namespaces:
  - name: shop
    models:
      - name: Item
        fields:
          - {name: qty, kind: positive_integer}
        policy:
          skip_fields: [missing]
          fields:
            qty: {integer_range: [10, 2]}
`
	c, warnings, err := ParseCatalog([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected a catalog")
	}
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
}

func TestCatalog_AmbiguousModel(t *testing.T) {
	data := `namespaces:
  - name: a
    models: [{name: Tag, fields: [{name: name, kind: text}]}]
  - name: b
    models: [{name: Tag, fields: [{name: name, kind: text}]}]
`
	c, _, err := ParseCatalog([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Model("Tag"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguous error, got %v", err)
	}

	m, err := c.Model("b.Tag")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Namespace != "b" {
		t.Errorf("namespace = %q, want b", m.Namespace)
	}
}

func TestWriteAndLoadCatalog(t *testing.T) {
	c, _, err := ParseCatalog([]byte(eventsCatalog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "catalog.yaml")
	if err := c.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("catalog not written: %v", err)
	}

	loaded, _, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if loaded.Summary() != c.Summary() {
		t.Errorf("summary = %q, want %q", loaded.Summary(), c.Summary())
	}
	if k := loaded.Namespace("events").Model("Event").Field("showtime").Kind; k != KindTime {
		t.Errorf("showtime kind = %s, want time", k)
	}
}

func TestSummary(t *testing.T) {
	c, _, err := ParseCatalog([]byte(eventsCatalog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Found 1 namespaces, 4 models, 8 fields, 2 foreign keys, 1 many-to-many relations"
	if got := c.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestToSnakeAndTableName(t *testing.T) {
	tests := []struct {
		in, snake, table string
	}{
		{"Event", "event", "events"},
		{"UserProfile", "user_profile", "user_profiles"},
		{"HTTPLog", "http_log", "http_logs"},
		{"Category", "category", "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToSnake(tt.in); got != tt.snake {
				t.Errorf("ToSnake(%q) = %q, want %q", tt.in, got, tt.snake)
			}
			if got := TableName(tt.in); got != tt.table {
				t.Errorf("TableName(%q) = %q, want %q", tt.in, got, tt.table)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %s, %v", k.String(), got, err)
		}
	}
	k, err := ParseKind("PositiveSmallIntegerField")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != KindPositiveSmallInteger {
		t.Errorf("alias resolved to %s", k)
	}
	if !k.IsBoundedInteger() || !k.IsPositive() {
		t.Error("positive_small_integer should be bounded and positive")
	}
	if KindSmallInteger.IsPositive() {
		t.Error("small_integer is not positive")
	}
}

func TestFieldPolicyDefaults(t *testing.T) {
	var p *FieldPolicy
	if !p.AllowSpaces() {
		t.Error("nil policy should allow spaces")
	}
	if p.MaxRelated() != DefaultMaxRelated {
		t.Errorf("nil policy max = %d, want %d", p.MaxRelated(), DefaultMaxRelated)
	}
	if p.HasWordCount() {
		t.Error("nil policy has no word count")
	}

	no := false
	p = &FieldPolicy{Spaces: &no, WordCountRange: []int{1, 2}}
	if p.AllowSpaces() {
		t.Error("spaces: false should disallow spaces")
	}
	if !p.HasWordCount() {
		t.Error("a valid word_count_range is an explicit count")
	}
}

func TestInvalidCountRangeIsNotExplicit(t *testing.T) {
	tests := []struct {
		name string
		p    *FieldPolicy
		want bool
	}{
		{"inverted range", &FieldPolicy{WordCountRange: []int{5, 2}}, false},
		{"single bound", &FieldPolicy{WordCountRange: []int{3}}, false},
		{"negative range", &FieldPolicy{WordCountRange: []int{-2, 4}}, false},
		{"inverted range with count", &FieldPolicy{WordCount: 3, WordCountRange: []int{5, 2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.HasWordCount(); got != tt.want {
				t.Errorf("HasWordCount() = %v, want %v", got, tt.want)
			}
		})
	}

	p := &FieldPolicy{ParagraphCountRange: []int{4, 1}}
	if p.HasParagraphCount() {
		t.Error("inverted paragraph_count_range should not count as explicit")
	}
}
