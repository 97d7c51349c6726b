package generate

import (
	"log/slog"

	"github.com/dilla-go/dilla/internal/schema"
)

// Outcome tells the populator what to do with a field.
type Outcome int

const (
	// OutcomeValue assigns Decision.Value to the field.
	OutcomeValue Outcome = iota
	// OutcomeSkip leaves the field alone because policy says so.
	OutcomeSkip
	// OutcomeUnset leaves the field for the store to fill.
	OutcomeUnset
	// OutcomeNull stores an explicit null; used for unresolvable references.
	OutcomeNull
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValue:
		return "value"
	case OutcomeSkip:
		return "skip"
	case OutcomeUnset:
		return "unset"
	case OutcomeNull:
		return "null"
	}
	return "unknown"
}

// Decision is the result of resolving one field.
type Decision struct {
	Outcome Outcome
	Value   any
}

// Value wraps v in a Decision.
func Value(v any) Decision { return Decision{Outcome: OutcomeValue, Value: v} }

var (
	Skip  = Decision{Outcome: OutcomeSkip}
	Unset = Decision{Outcome: OutcomeUnset}
	Null  = Decision{Outcome: OutcomeNull}
)

// References gives foreign key generators access to already persisted
// instances of other models.
type References interface {
	// RandomID returns the id of a uniformly chosen instance of model.
	RandomID(model *schema.Model) (id any, ok bool)
}

// Request is what a kind generator may consult.
type Request struct {
	Model  *schema.Model
	Field  *schema.Field
	Policy *schema.FieldPolicy
}

type kindGenerator func(g *Generators, req Request) Decision

// kindGenerators maps every generatable kind to its generator. KindUnknown
// and KindAutoGenerated are absent on purpose: the store fills those.
var kindGenerators = map[schema.Kind]kindGenerator{
	schema.KindText:                 (*Generators).text,
	schema.KindLongText:             (*Generators).longText,
	schema.KindInteger:              (*Generators).integer,
	schema.KindPositiveInteger:      (*Generators).boundedInteger,
	schema.KindPositiveSmallInteger: (*Generators).boundedInteger,
	schema.KindSmallInteger:         (*Generators).boundedInteger,
	schema.KindDecimal:              (*Generators).decimal,
	schema.KindBoolean:              (*Generators).boolean,
	schema.KindDate:                 (*Generators).date,
	schema.KindDateTime:             (*Generators).dateTime,
	schema.KindTime:                 (*Generators).timeOfDay,
	schema.KindURL:                  (*Generators).url,
	schema.KindEmail:                (*Generators).email,
	schema.KindIPAddress:            (*Generators).ipAddress,
	schema.KindSlug:                 (*Generators).slug,
	schema.KindForeignKey:           (*Generators).foreignKey,
}

// HasGenerator reports whether values of kind are produced by the engine.
func HasGenerator(kind schema.Kind) bool {
	_, ok := kindGenerators[kind]
	return ok
}

// Generators holds the per-run state shared by every value generator.
type Generators struct {
	src    *Source
	refs   References
	urls   []string
	secret string
	logger *slog.Logger
	warned map[string]bool
}

// NewGenerators returns generators drawing from src. refs may be nil when
// no foreign keys are generated.
func NewGenerators(src *Source, refs References, urls []string, secret string, logger *slog.Logger) *Generators {
	if len(urls) == 0 {
		urls = DefaultURLs
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generators{
		src:    src,
		refs:   refs,
		urls:   urls,
		secret: secret,
		logger: logger,
		warned: make(map[string]bool),
	}
}

// Source returns the run's random source.
func (g *Generators) Source() *Source { return g.src }

// Generate produces a value for req.Field according to its kind.
func (g *Generators) Generate(req Request) Decision {
	gen, ok := kindGenerators[req.Field.Kind]
	if !ok {
		return Unset
	}
	return gen(g, req)
}

// warnOnce logs msg the first time key is seen in this run.
func (g *Generators) warnOnce(key, msg string, args ...any) {
	if g.warned[key] {
		return
	}
	g.warned[key] = true
	g.logger.Warn(msg, args...)
}

func fieldKey(req Request) string {
	if req.Model == nil {
		return req.Field.Name
	}
	return req.Model.Key() + "." + req.Field.Name
}
