package schema

import (
	"fmt"
	"strings"
)

// DefaultMaxRelated caps many-to-many fan-out when a relation has no policy.
const DefaultMaxRelated = 5

// GeneratorID names one of the built-in named generators.
type GeneratorID string

const (
	GeneratorHashKey     GeneratorID = "hash_key"
	GeneratorUUID        GeneratorID = "uuid"
	GeneratorZip         GeneratorID = "zip"
	GeneratorZipExtended GeneratorID = "zip_extended"
)

// KnownGenerators is the fixed set of named generators a policy may reference.
var KnownGenerators = []GeneratorID{
	GeneratorHashKey,
	GeneratorUUID,
	GeneratorZip,
	GeneratorZipExtended,
}

// IsKnown reports whether id is one of KnownGenerators.
func (id GeneratorID) IsKnown() bool {
	for _, g := range KnownGenerators {
		if g == id {
			return true
		}
	}
	return false
}

// FieldPolicy overrides how a single field is generated. Zero values mean
// "use the default" for every knob.
type FieldPolicy struct {
	// Generator selects a named generator.
	Generator GeneratorID `yaml:"generator,omitempty"`
	// Expression is an expr-lang program evaluated for each value.
	Expression string `yaml:"expression,omitempty"`
	// Func is a Go callable for programs embedding the engine. It wins over Expression.
	Func func(policy *FieldPolicy) any `yaml:"-"`
	// WantsPolicy passes the policy itself to Func / exposes it to Expression.
	WantsPolicy bool `yaml:"wants_policy,omitempty"`

	RandomValues []any `yaml:"random_values,omitempty"`

	// Max caps many-to-many fan-out for the relation of the same name.
	Max *int `yaml:"max,omitempty"`

	// Spaces defaults to true.
	Spaces *bool `yaml:"spaces,omitempty"`

	WordCount           int   `yaml:"word_count,omitempty"`
	WordCountRange      []int `yaml:"word_count_range,omitempty"`
	ParagraphCount      int   `yaml:"paragraph_count,omitempty"`
	ParagraphCountRange []int `yaml:"paragraph_count_range,omitempty"`
	IntegerRange        []int `yaml:"integer_range,omitempty"`

	ImageSize  string   `yaml:"image_size,omitempty"`
	ImageSizes []string `yaml:"image_sizes,omitempty"`
}

// AllowSpaces returns the spaces flag, defaulting to true.
func (p *FieldPolicy) AllowSpaces() bool {
	if p == nil || p.Spaces == nil {
		return true
	}
	return *p.Spaces
}

// MaxRelated returns the configured fan-out cap or DefaultMaxRelated.
func (p *FieldPolicy) MaxRelated() int {
	if p == nil || p.Max == nil {
		return DefaultMaxRelated
	}
	return *p.Max
}

// HasWordCount reports whether a word count or a valid word count range was
// configured. An invalid range alone counts as unset.
func (p *FieldPolicy) HasWordCount() bool {
	return p != nil && (p.WordCount > 0 || validRange(p.WordCountRange, true))
}

// HasParagraphCount reports whether a paragraph count or a valid paragraph
// count range was configured.
func (p *FieldPolicy) HasParagraphCount() bool {
	return p != nil && (p.ParagraphCount > 0 || validRange(p.ParagraphCountRange, true))
}

// ModelPolicy controls skipping and image generation for a whole model.
type ModelPolicy struct {
	SkipModel        bool                    `yaml:"skip_model,omitempty"`
	SkipFields       []string                `yaml:"skip_fields,omitempty"`
	GenerateImages   bool                    `yaml:"generate_images,omitempty"`
	ImageFields      []string                `yaml:"image_fields,omitempty"`
	ImageResolution  string                  `yaml:"image_resolution,omitempty"`
	ImageResolutions []string                `yaml:"image_resolutions,omitempty"`
	Fields           map[string]*FieldPolicy `yaml:"fields,omitempty"`
}

// Field returns the policy for the named field or relation, or nil.
func (p *ModelPolicy) Field(name string) *FieldPolicy {
	if p == nil || p.Fields == nil {
		return nil
	}
	return p.Fields[name]
}

// SkipsField reports whether name is listed in SkipFields.
func (p *ModelPolicy) SkipsField(name string) bool {
	return p != nil && contains(p.SkipFields, name)
}

// IsImageField reports whether name is eligible for image synthesis.
func (p *ModelPolicy) IsImageField(name string) bool {
	return p != nil && p.GenerateImages && contains(p.ImageFields, name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ValidationError collects load-time problems in a catalog.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid catalog: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid catalog (%d problems):\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

func (p *FieldPolicy) validate(where string) (problems, warnings []string) {
	if p.Generator != "" && !p.Generator.IsKnown() {
		problems = append(problems, fmt.Sprintf("%s: unknown generator %q", where, p.Generator))
	}
	if p.Generator != "" && p.Expression != "" {
		warnings = append(warnings, fmt.Sprintf("%s: both generator and expression set; expression wins", where))
	}
	if len(p.WordCountRange) > 0 && !validRange(p.WordCountRange, true) {
		warnings = append(warnings, fmt.Sprintf("%s: invalid word_count_range %v", where, p.WordCountRange))
	}
	if len(p.ParagraphCountRange) > 0 && !validRange(p.ParagraphCountRange, true) {
		warnings = append(warnings, fmt.Sprintf("%s: invalid paragraph_count_range %v", where, p.ParagraphCountRange))
	}
	if len(p.IntegerRange) > 0 && !validRange(p.IntegerRange, false) {
		warnings = append(warnings, fmt.Sprintf("%s: invalid integer_range %v, falling back to [0,32]", where, p.IntegerRange))
	}
	if p.Max != nil && *p.Max < 0 {
		warnings = append(warnings, fmt.Sprintf("%s: negative max %d links nothing", where, *p.Max))
	}
	return problems, warnings
}

// validRange checks a [lo, hi] pair.
func validRange(r []int, positive bool) bool {
	if len(r) < 2 || r[0] > r[1] {
		return false
	}
	return !positive || r[0] >= 0
}
