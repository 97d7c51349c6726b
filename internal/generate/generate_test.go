package generate

import (
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dilla-go/dilla/internal/schema"
)

type fakeRefs map[*schema.Model][]any

func (f fakeRefs) RandomID(m *schema.Model) (any, bool) {
	ids := f[m]
	if len(ids) == 0 {
		return nil, false
	}
	return ids[0], true
}

func newTestGenerators(seed uint64) *Generators {
	return NewGenerators(NewSource(seed), nil, nil, "s3cret", nil)
}

func TestEveryKindHasGenerator(t *testing.T) {
	for _, k := range schema.AllKinds {
		want := k != schema.KindUnknown && k != schema.KindAutoGenerated
		if got := HasGenerator(k); got != want {
			t.Errorf("HasGenerator(%s) = %v, want %v", k, got, want)
		}
	}
}

func TestSameSeedSameValues(t *testing.T) {
	f := &schema.Field{Name: "name", Kind: schema.KindText, Unique: true}
	a, b := newTestGenerators(7), newTestGenerators(7)
	for i := 0; i < 10; i++ {
		if x, y := a.Text(f, nil), b.Text(f, nil); x != y {
			t.Fatalf("text diverged at %d: %q vs %q", i, x, y)
		}
		if x, y := a.LongText(nil), b.LongText(nil); x != y {
			t.Fatalf("long text diverged at %d", i)
		}
	}
}

func TestBoundedIntegerRange(t *testing.T) {
	tests := []struct {
		name   string
		kind   schema.Kind
		lo, hi int
	}{
		{"small", schema.KindSmallInteger, -5, 5},
		{"full int width", schema.KindSmallInteger, math.MinInt64, math.MaxInt64},
		{"positive to max", schema.KindPositiveInteger, 0, math.MaxInt64},
		{"wide signed", schema.KindSmallInteger, -5e18, 5e18},
		{"single value", schema.KindPositiveSmallInteger, 9, 9},
	}
	g := newTestGenerators(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &schema.FieldPolicy{IntegerRange: []int{tt.lo, tt.hi}}
			for i := 0; i < 500; i++ {
				v, ok := g.BoundedInteger(tt.kind, p)
				if !ok {
					t.Fatalf("range [%d,%d] reported invalid", tt.lo, tt.hi)
				}
				if v < tt.lo || v > tt.hi {
					t.Fatalf("value %d outside [%d,%d]", v, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestBetweenFullRange(t *testing.T) {
	s := NewSource(42)
	negative, positive := false, false
	for i := 0; i < 200; i++ {
		v := s.Between(math.MinInt64, math.MaxInt64)
		if v < 0 {
			negative = true
		} else {
			positive = true
		}
	}
	if !negative || !positive {
		t.Errorf("expected both signs over the full range, negative=%v positive=%v", negative, positive)
	}
	if v := s.Between(3, 1); v != 3 {
		t.Errorf("Between(3, 1) = %d, want 3", v)
	}
}

func TestBoundedIntegerInvalidRangeFallsBack(t *testing.T) {
	tests := []struct {
		name string
		kind schema.Kind
		rng  []int
	}{
		{"single bound", schema.KindPositiveInteger, []int{3}},
		{"inverted", schema.KindSmallInteger, []int{10, 2}},
		{"negative on positive", schema.KindPositiveSmallInteger, []int{-3, 10}},
	}
	g := newTestGenerators(2)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &schema.FieldPolicy{IntegerRange: tt.rng}
			for i := 0; i < 200; i++ {
				v, ok := g.BoundedInteger(tt.kind, p)
				if ok {
					t.Fatalf("range %v should be rejected", tt.rng)
				}
				if v < 0 || v > 32 {
					t.Fatalf("fallback value %d outside [0,32]", v)
				}
			}
		})
	}
}

func TestBoundedIntegerDefault(t *testing.T) {
	g := newTestGenerators(3)
	f := &schema.Field{Name: "qty", Kind: schema.KindPositiveInteger}
	for i := 0; i < 200; i++ {
		d := g.Generate(Request{Field: f})
		if d.Outcome != OutcomeValue {
			t.Fatalf("outcome = %s, want value", d.Outcome)
		}
		if v := d.Value.(int); v < 0 || v > 32 {
			t.Fatalf("got %d, want [0,32]", v)
		}
	}
}

func TestIntegerAndDecimal(t *testing.T) {
	g := newTestGenerators(4)
	for i := 0; i < 200; i++ {
		v := g.Generate(Request{Field: &schema.Field{Kind: schema.KindInteger}}).Value.(int)
		if v < 1 || v > 255 {
			t.Fatalf("integer %d outside [1,255]", v)
		}

		d := g.Decimal(2)
		if d < 1 || d > 21 {
			t.Fatalf("decimal %v outside [1,21]", d)
		}
		if math.Abs(d-math.Round(d*100)/100) > 1e-9 {
			t.Fatalf("decimal %v has more than 2 places", d)
		}
	}
}

func TestTextMaxLengthKeepsTail(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		full := newTestGenerators(seed).Text(&schema.Field{Unique: true}, nil)
		cut := newTestGenerators(seed).Text(&schema.Field{Unique: true, MaxLength: 8}, nil)

		if len(cut) > 8 {
			t.Errorf("seed %d: %q longer than 8", seed, cut)
		}
		if !strings.HasSuffix(full, cut) {
			t.Errorf("seed %d: %q is not the tail of %q", seed, cut, full)
		}
	}
}

func TestTextUniqueSaltsDiffer(t *testing.T) {
	g := newTestGenerators(5)
	f := &schema.Field{Unique: true, MaxLength: 20}
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[g.Text(f, nil)] = true
	}
	if len(seen) <= 45 {
		t.Errorf("only %d distinct values out of 50", len(seen))
	}
}

func TestTextWordCount(t *testing.T) {
	tests := []struct {
		name   string
		policy *schema.FieldPolicy
		lo, hi int
	}{
		{"count", &schema.FieldPolicy{WordCount: 3}, 3, 3},
		{"range wins over count", &schema.FieldPolicy{WordCount: 9, WordCountRange: []int{2, 4}}, 2, 4},
		{"inverted range uses count", &schema.FieldPolicy{WordCount: 6, WordCountRange: []int{5, 2}}, 6, 6},
		{"inverted range alone uses default", &schema.FieldPolicy{WordCountRange: []int{5, 2}}, 1, 4},
		{"negative range alone uses default", &schema.FieldPolicy{WordCountRange: []int{-3, -1}}, 1, 4},
	}
	g := newTestGenerators(6)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				n := len(strings.Fields(g.Text(&schema.Field{}, tt.policy)))
				if n < tt.lo || n > tt.hi {
					t.Fatalf("got %d words, want [%d,%d]", n, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestTextSpaces(t *testing.T) {
	g := newTestGenerators(8)
	no := false

	if v := g.Text(&schema.Field{}, &schema.FieldPolicy{Spaces: &no}); strings.Contains(v, " ") {
		t.Errorf("spaces: false kept spaces in %q", v)
	}

	// An explicit count keeps the spaces.
	if v := g.Text(&schema.Field{}, &schema.FieldPolicy{Spaces: &no, WordCount: 3}); len(strings.Fields(v)) != 3 {
		t.Errorf("explicit count: got %q, want 3 words", v)
	}

	// An invalid range is not an explicit count.
	for i := 0; i < 20; i++ {
		v := g.Text(&schema.Field{}, &schema.FieldPolicy{Spaces: &no, WordCountRange: []int{5, 2}})
		if strings.Contains(v, " ") {
			t.Fatalf("invalid range kept spaces in %q", v)
		}
	}

	if v := g.Text(&schema.Field{}, nil); strings.TrimRight(v, " ") != v {
		t.Errorf("trailing spaces in %q", v)
	}
}

func TestLongText(t *testing.T) {
	g := newTestGenerators(9)
	if n := len(strings.Split(g.LongText(&schema.FieldPolicy{ParagraphCount: 4}), "\n")); n != 4 {
		t.Errorf("got %d paragraphs, want 4", n)
	}

	for _, p := range []*schema.FieldPolicy{nil, {ParagraphCountRange: []int{4, 1}}} {
		for i := 0; i < 20; i++ {
			if n := len(strings.Split(g.LongText(p), "\n")); n < 1 || n > 3 {
				t.Fatalf("policy %+v: got %d paragraphs, want [1,3]", p, n)
			}
		}
	}

	no := false
	if v := g.LongText(&schema.FieldPolicy{Spaces: &no}); strings.Contains(v, " ") {
		t.Errorf("spaces: false kept spaces")
	}
}

func TestSlug(t *testing.T) {
	g := newTestGenerators(10)
	for i := 0; i < 50; i++ {
		s := g.Slug(&schema.Field{Unique: i%2 == 0, MaxLength: 12}, nil)
		if strings.Contains(s, " ") || strings.HasSuffix(s, "_") {
			t.Errorf("bad slug %q", s)
		}
	}
}

func TestNetworkValues(t *testing.T) {
	g := newTestGenerators(11)
	email := regexp.MustCompile(`^[^@\s]+@[^@\s]+\.com$`)
	for i := 0; i < 100; i++ {
		if e := g.Email(); !email.MatchString(e) {
			t.Errorf("bad email %q", e)
		}

		ip := g.IPAddress()
		octets := strings.Split(ip, ".")
		if len(octets) != 4 {
			t.Fatalf("bad ip %q", ip)
		}
		for _, o := range octets {
			n, err := strconv.Atoi(o)
			if err != nil || n < 0 || n > 254 {
				t.Errorf("bad octet %q in %q", o, ip)
			}
		}

		if u := g.URL(); !slices.Contains(DefaultURLs, u) {
			t.Errorf("url %q not in the default list", u)
		}
	}

	custom := NewGenerators(NewSource(1), nil, []string{"https://example.org"}, "", nil)
	if u := custom.URL(); u != "https://example.org" {
		t.Errorf("URL() = %q", u)
	}
}

func TestTemporal(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	g := newTestGenerators(12)
	if v := g.Generate(Request{Field: &schema.Field{Kind: schema.KindDateTime}}).Value; v != fixed {
		t.Errorf("datetime = %v, want %v", v, fixed)
	}
	if v := g.Generate(Request{Field: &schema.Field{Kind: schema.KindDate}}).Value; v != fixed {
		t.Errorf("date = %v, want %v", v, fixed)
	}
	if v := g.Generate(Request{Field: &schema.Field{Kind: schema.KindTime}}).Value; v != "14:05:09" {
		t.Errorf("time = %v, want 14:05:09", v)
	}
}

func TestForeignKey(t *testing.T) {
	venue := &schema.Model{Name: "Venue", Namespace: "events"}
	event := &schema.Model{Name: "Event", Namespace: "events"}
	f := &schema.Field{Name: "venue", Kind: schema.KindForeignKey, Target: venue}

	empty := NewGenerators(NewSource(1), fakeRefs{}, nil, "", nil)
	if d := empty.Generate(Request{Model: event, Field: f}); d != Null {
		t.Errorf("empty target: got %+v, want null", d)
	}

	filled := NewGenerators(NewSource(1), fakeRefs{venue: {int64(3)}}, nil, "", nil)
	if d := filled.Generate(Request{Model: event, Field: f}); d != Value(int64(3)) {
		t.Errorf("filled target: got %+v, want 3", d)
	}
}

func TestNamedGenerators(t *testing.T) {
	g := newTestGenerators(13)

	h, ok := g.Named(schema.GeneratorHashKey)
	if !ok || !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(h) {
		t.Errorf("hash_key = %q, %v", h, ok)
	}
	if h2, _ := g.Named(schema.GeneratorHashKey); h2 == h {
		t.Error("hash_key repeated")
	}

	id, ok := g.Named(schema.GeneratorUUID)
	if !ok {
		t.Fatal("uuid generator missing")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", id, err)
	}
	if parsed.Version() != 1 {
		t.Errorf("uuid version = %d, want 1", parsed.Version())
	}

	if zip, _ := g.Named(schema.GeneratorZip); !regexp.MustCompile(`^\d{5}$`).MatchString(zip) {
		t.Errorf("zip = %q", zip)
	}
	if ext, _ := g.Named(schema.GeneratorZipExtended); !regexp.MustCompile(`^\d{5}-\d{4}$`).MatchString(ext) {
		t.Errorf("zip_extended = %q", ext)
	}

	if _, ok := g.Named("md5ish"); ok {
		t.Error("unknown generator should not resolve")
	}
}

func TestExpressions(t *testing.T) {
	g := newTestGenerators(14)
	e := NewExpressions(g)

	v, err := e.Eval(&schema.FieldPolicy{Expression: `words(2)`})
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	if n := len(strings.Fields(v.(string))); n != 2 {
		t.Errorf("words(2) gave %d words", n)
	}

	v, err = e.Eval(&schema.FieldPolicy{Expression: `"SKU-" + digits(4)`})
	if err != nil {
		t.Fatalf("digits: %v", err)
	}
	if s, _ := v.(string); !regexp.MustCompile(`^SKU-\d{4}$`).MatchString(s) {
		t.Errorf("got %v", v)
	}

	v, err = e.Eval(&schema.FieldPolicy{Expression: `between(policy.WordCount, policy.WordCount + 1)`, WantsPolicy: true, WordCount: 7})
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if v != 7 && v != 8 {
		t.Errorf("between gave %v, want 7 or 8", v)
	}

	if _, err := e.Eval(&schema.FieldPolicy{Expression: `policy.WordCount`}); err == nil {
		t.Error("policy should be hidden unless requested")
	}
}

func TestValidateExpressions(t *testing.T) {
	c, _, err := schema.ParseCatalog([]byte(`namespaces:
  - name: shop
    models:
      - name: Item
        fields:
          - {name: sku, kind: text}
          - {name: code, kind: text}
        policy:
          fields:
            sku: {expression: 'upper(word())'}
            code: {expression: 'nosuchfunc(1)'}
`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}

	var verr *schema.ValidationError
	if err := ValidateExpressions(c); !errors.As(err, &verr) {
		t.Fatalf("expected *schema.ValidationError, got %v", err)
	}
	if len(verr.Problems) != 1 || !strings.Contains(verr.Problems[0], "shop.Item.code") {
		t.Errorf("problems = %v", verr.Problems)
	}
}

type fakeImages struct {
	resolutions []string
	err         error
}

func (f *fakeImages) Paint(_ context.Context, res string) (string, error) {
	f.resolutions = append(f.resolutions, res)
	if f.err != nil {
		return "", f.err
	}
	return "dilla-fakes/x.png", nil
}

func TestResolverOrder(t *testing.T) {
	m := &schema.Model{
		Name:      "Band",
		Namespace: "music",
		Fields: []*schema.Field{
			{Name: "name", Kind: schema.KindText},
			{Name: "genre", Kind: schema.KindText},
			{Name: "code", Kind: schema.KindText},
			{Name: "ref", Kind: schema.KindText},
			{Name: "id", Kind: schema.KindAutoGenerated},
			{Name: "logo", Kind: schema.KindText},
		},
		Policy: &schema.ModelPolicy{
			SkipFields:     []string{"name"},
			GenerateImages: true,
			ImageFields:    []string{"logo"},
			Fields: map[string]*schema.FieldPolicy{
				"genre": {RandomValues: []any{"a", "b", "c"}},
				"code":  {Generator: schema.GeneratorZip},
				"ref": {WantsPolicy: true, WordCount: 2, Func: func(p *schema.FieldPolicy) any {
					return p.WordCount
				}},
			},
		},
	}
	images := &fakeImages{}
	r := NewResolver(newTestGenerators(15), images)
	ctx := context.Background()

	if d := r.Resolve(ctx, m, m.Field("name")); d != Skip {
		t.Errorf("skipped field: got %+v", d)
	}
	for i := 0; i < 50; i++ {
		d := r.Resolve(ctx, m, m.Field("genre"))
		if d.Value != "a" && d.Value != "b" && d.Value != "c" {
			t.Fatalf("random value %v not in the list", d.Value)
		}
	}
	if d := r.Resolve(ctx, m, m.Field("code")); !regexp.MustCompile(`^\d{5}$`).MatchString(d.Value.(string)) {
		t.Errorf("named generator: got %v", d.Value)
	}
	if d := r.Resolve(ctx, m, m.Field("ref")); d != Value(2) {
		t.Errorf("func: got %+v, want 2", d)
	}
	if d := r.Resolve(ctx, m, m.Field("id")); d != Unset {
		t.Errorf("auto field: got %+v, want unset", d)
	}

	if d := r.Resolve(ctx, m, m.Field("logo")); d != Value("dilla-fakes/x.png") {
		t.Errorf("image field: got %+v", d)
	}
	if !slices.Equal(images.resolutions, []string{DefaultResolution}) {
		t.Errorf("resolutions = %v", images.resolutions)
	}
}

func TestResolverFuncWithoutPolicy(t *testing.T) {
	var got *schema.FieldPolicy
	called := false
	m := &schema.Model{Name: "A", Fields: []*schema.Field{{Name: "x", Kind: schema.KindInteger}}, Policy: &schema.ModelPolicy{
		Fields: map[string]*schema.FieldPolicy{"x": {Func: func(p *schema.FieldPolicy) any {
			called, got = true, p
			return 42
		}}},
	}}
	r := NewResolver(newTestGenerators(16), nil)
	if d := r.Resolve(context.Background(), m, m.Field("x")); d != Value(42) {
		t.Errorf("got %+v, want 42", d)
	}
	if !called {
		t.Error("func not called")
	}
	if got != nil {
		t.Error("policy passed without wants_policy")
	}
}

func TestResolverImageResolutionPrecedence(t *testing.T) {
	mp := &schema.ModelPolicy{
		GenerateImages:   true,
		ImageFields:      []string{"a", "b", "c"},
		ImageResolution:  "100x100",
		ImageResolutions: []string{"10x10", "20x20"},
		Fields: map[string]*schema.FieldPolicy{
			"a": {ImageSize: "300x200"},
			"b": {ImageSize: "300x200", ImageSizes: []string{"1x1"}},
		},
	}
	m := &schema.Model{Name: "P", Policy: mp, Fields: []*schema.Field{
		{Name: "a", Kind: schema.KindText}, {Name: "b", Kind: schema.KindText}, {Name: "c", Kind: schema.KindText},
	}}
	images := &fakeImages{}
	r := NewResolver(newTestGenerators(17), images)
	ctx := context.Background()

	r.Resolve(ctx, m, m.Field("a"))
	r.Resolve(ctx, m, m.Field("b"))
	r.Resolve(ctx, m, m.Field("c"))
	if len(images.resolutions) != 3 {
		t.Fatalf("resolutions = %v", images.resolutions)
	}
	if images.resolutions[0] != "300x200" {
		t.Errorf("field size: got %q", images.resolutions[0])
	}
	if images.resolutions[1] != "1x1" {
		t.Errorf("field sizes list: got %q", images.resolutions[1])
	}
	if r := images.resolutions[2]; r != "10x10" && r != "20x20" {
		t.Errorf("model resolutions list: got %q", r)
	}

	mp.ImageResolutions = nil
	r.Resolve(ctx, m, m.Field("c"))
	if images.resolutions[3] != "100x100" {
		t.Errorf("model resolution: got %q", images.resolutions[3])
	}
}

func TestResolverImageDegrades(t *testing.T) {
	m := &schema.Model{Name: "P", Fields: []*schema.Field{{Name: "pic", Kind: schema.KindText}},
		Policy: &schema.ModelPolicy{GenerateImages: true, ImageFields: []string{"pic"}}}

	r := NewResolver(newTestGenerators(18), nil)
	if d := r.Resolve(context.Background(), m, m.Field("pic")); d != Unset {
		t.Errorf("no painter: got %+v, want unset", d)
	}

	r = NewResolver(newTestGenerators(18), &fakeImages{err: errors.New("disk full")})
	if d := r.Resolve(context.Background(), m, m.Field("pic")); d != Unset {
		t.Errorf("failing painter: got %+v, want unset", d)
	}
}

type recordingUploader struct{ keys []string }

func (u *recordingUploader) Upload(_ context.Context, localPath, key string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	u.keys = append(u.keys, key)
	return nil
}

func TestPainter(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{}
	p, err := NewPainter(newTestGenerators(19), dir, up)
	if err != nil {
		t.Fatalf("NewPainter: %v", err)
	}

	rel, err := p.Paint(context.Background(), "40x30")
	if err != nil {
		t.Fatalf("Paint: %v", err)
	}
	if !strings.HasPrefix(rel, FakesDir+"/") || !strings.HasSuffix(rel, ".png") {
		t.Errorf("path = %q", rel)
	}
	if !slices.Equal(up.keys, []string{rel}) {
		t.Errorf("uploaded keys = %v", up.keys)
	}

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("open painted file: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("bounds = %v, want 40x30", img.Bounds())
	}

	if _, err := p.Paint(context.Background(), "big"); err == nil {
		t.Error("expected error for a malformed resolution")
	}
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1024x768")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 1024 || h != 768 {
		t.Errorf("got %dx%d", w, h)
	}

	for _, bad := range []string{"", "100", "0x10", "-1x5", "axb", "9000x10"} {
		if _, _, err := ParseResolution(bad); err == nil {
			t.Errorf("ParseResolution(%q) should fail", bad)
		}
	}
}
