package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dilla-go/dilla/internal/generate"
	"github.com/dilla-go/dilla/internal/schema"
	"github.com/dilla-go/dilla/internal/store"
)

// Populator builds and persists one instance of a model per call.
type Populator struct {
	Resolver *generate.Resolver
	Store    store.Store
	// NoDoubt fills optional fields every time instead of flipping a coin.
	NoDoubt bool
	Logger  *slog.Logger
}

// Populate fills the fields of a new instance of m and saves it. A nil
// instance with a nil error means the store rejected it as a duplicate.
func (p *Populator) Populate(ctx context.Context, m *schema.Model) (*store.Instance, error) {
	inst := store.NewInstance(m)
	src := p.Resolver.Generators().Source()

	for _, f := range m.Fields {
		if f.AutoCreated {
			continue
		}
		if f.Nullable && !p.NoDoubt && !f.AutoPopulated && !src.Coin() {
			continue
		}
		p.apply(inst, f, p.Resolver.Resolve(ctx, m, f))
	}

	if err := p.Store.Save(ctx, inst); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			p.Logger.Debug("discarding duplicate instance", "model", m.Key(), "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("saving %s: %w", m.Key(), err)
	}
	return inst, nil
}

func (p *Populator) apply(inst *store.Instance, f *schema.Field, d generate.Decision) {
	switch d.Outcome {
	case generate.OutcomeValue:
		inst.Values[f.Name] = d.Value
	case generate.OutcomeNull:
		inst.Values[f.Name] = nil
	}
}
