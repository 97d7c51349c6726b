package engine

import (
	"context"
	"fmt"

	"github.com/dilla-go/dilla/internal/generate"
	"github.com/dilla-go/dilla/internal/schema"
	"github.com/dilla-go/dilla/internal/store"
)

// existingSampleSize caps how many stored rows seed a model's pool.
const existingSampleSize = 1000

// Pool holds the instances available for references, keyed by model. It is
// owned by a single run.
type Pool struct {
	src       *generate.Source
	instances map[*schema.Model][]*store.Instance
}

// NewPool returns an empty pool drawing from src.
func NewPool(src *generate.Source) *Pool {
	return &Pool{
		src:       src,
		instances: make(map[*schema.Model][]*store.Instance),
	}
}

// Add records a persisted instance.
func (p *Pool) Add(inst *store.Instance) {
	p.instances[inst.Model] = append(p.instances[inst.Model], inst)
}

// Instances returns the pooled instances of m.
func (p *Pool) Instances(m *schema.Model) []*store.Instance {
	return p.instances[m]
}

// Len returns the number of pooled instances of m.
func (p *Pool) Len(m *schema.Model) int {
	return len(p.instances[m])
}

// RandomID returns the ID of a uniformly chosen instance of m.
func (p *Pool) RandomID(m *schema.Model) (any, bool) {
	list := p.instances[m]
	if len(list) == 0 {
		return nil, false
	}
	return list[p.src.IntN(len(list))].ID, true
}

// SeedFromStore adds up to existingSampleSize rows already in st for each
// model, so references and links can point at data from earlier runs.
func (p *Pool) SeedFromStore(ctx context.Context, st store.Store, models []*schema.Model) error {
	for _, m := range models {
		n, err := st.Count(ctx, m)
		if err != nil {
			return fmt.Errorf("counting %s: %w", m.Key(), err)
		}
		if n == 0 {
			continue
		}
		rows, err := st.Sample(ctx, m, int(min(n, existingSampleSize)))
		if err != nil {
			return fmt.Errorf("sampling %s: %w", m.Key(), err)
		}
		for _, inst := range rows {
			p.Add(inst)
		}
	}
	return nil
}
