package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dilla-go/dilla/internal/generate"
	"github.com/dilla-go/dilla/internal/schema"
	"github.com/dilla-go/dilla/internal/store"
)

// Linker attaches many-to-many associations once every pool is final.
type Linker struct {
	Source *generate.Source
	Pool   *Pool
	Store  store.Store
	Logger *slog.Logger
}

// Link gives each instance of m up to limit-1 random partners per relation,
// bounded by the size of the target pool. It returns the number of links made.
func (l *Linker) Link(ctx context.Context, m *schema.Model, instances []*store.Instance) (int, error) {
	total := 0
	for _, inst := range instances {
		for _, rel := range m.Relations {
			ids := l.pick(m, rel)
			if len(ids) == 0 {
				continue
			}
			if err := l.Store.Link(ctx, inst, rel, ids); err != nil {
				return total, fmt.Errorf("linking %s.%s: %w", m.Key(), rel.Name, err)
			}
			total += len(ids)
		}
	}
	return total, nil
}

func (l *Linker) pick(m *schema.Model, rel *schema.Relation) []any {
	limit := m.FieldPolicy(rel.Name).MaxRelated()
	if limit <= 0 {
		return nil
	}
	available := l.Pool.Instances(rel.TargetModel)
	if len(available) == 0 {
		l.Logger.Debug("no instances to link", "model", m.Key(), "relation", rel.Name)
		return nil
	}
	n := min(l.Source.IntN(limit), len(available))
	ids := make([]any, 0, n)
	for _, i := range l.Source.Perm(len(available))[:n] {
		ids = append(ids, available[i].ID)
	}
	return ids
}
