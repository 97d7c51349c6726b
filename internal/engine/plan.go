package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dilla-go/dilla/internal/schema"
)

// Plan is the ordered set of models a run populates.
type Plan struct {
	Models []*schema.Model
	// Ordered is false when models come from a namespace without a declared
	// order; references between them may then find empty pools.
	Ordered bool
}

// Keys returns the model keys in plan order.
func (p *Plan) Keys() []string {
	keys := make([]string, len(p.Models))
	for i, m := range p.Models {
		keys[i] = m.Key()
	}
	return keys
}

// BuildPlan resolves the models to populate. Explicit models win over
// namespaces; a namespace's declared order wins over its model list. With no
// selection at all, every namespace in the catalog is used.
func BuildPlan(c *schema.Catalog, req Request, logger *slog.Logger) (*Plan, error) {
	models, namespaces := splitSelectors(req)

	plan := &Plan{}
	seen := make(map[*schema.Model]bool)
	add := func(m *schema.Model) {
		if !seen[m] {
			seen[m] = true
			plan.Models = append(plan.Models, m)
		}
	}

	switch {
	case len(models) > 0:
		for _, ref := range models {
			m, err := c.Model(ref)
			if err != nil {
				return nil, err
			}
			add(m)
		}
		plan.Ordered = true
	default:
		if len(namespaces) == 0 {
			for _, ns := range c.Namespaces {
				namespaces = append(namespaces, ns.Name)
			}
		}
		plan.Ordered = true
		for _, name := range namespaces {
			ns := c.Namespace(name)
			if ns == nil {
				return nil, fmt.Errorf("namespace %q not found", name)
			}
			if len(ns.Order) == 0 {
				plan.Ordered = false
				for _, m := range ns.Models {
					add(m)
				}
				continue
			}
			for _, modelName := range ns.Order {
				m := ns.Model(modelName)
				if m == nil {
					logger.Warn("model not found", "namespace", ns.Name, "model", modelName)
					continue
				}
				add(m)
			}
		}
	}

	if req.AutoOrder {
		plan.Models = sortByDependencies(plan.Models, logger)
		plan.Ordered = true
	}
	return plan, nil
}

// splitSelectors separates "namespace.Model" selectors from bare namespace
// selectors. Models named with Request.Models are always explicit.
func splitSelectors(req Request) (models, namespaces []string) {
	models = append(models, req.Models...)
	for _, sel := range req.Selectors {
		if strings.Contains(sel, ".") {
			models = append(models, sel)
		} else {
			namespaces = append(namespaces, sel)
		}
	}
	namespaces = append(namespaces, req.Namespaces...)
	return models, namespaces
}

// sortByDependencies orders models so foreign key targets come first. Models
// outside the plan are ignored and cycles keep their incoming order.
func sortByDependencies(models []*schema.Model, logger *slog.Logger) []*schema.Model {
	byKey := make(map[string]*schema.Model, len(models))
	for _, m := range models {
		byKey[m.Key()] = m
	}

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	out := make([]*schema.Model, 0, len(models))

	var visit func(m *schema.Model)
	visit = func(m *schema.Model) {
		key := m.Key()
		if visited[key] {
			return
		}
		if visiting[key] {
			logger.Warn("circular dependency", "model", key)
			return
		}
		visiting[key] = true
		for _, dep := range m.Dependencies() {
			if target, ok := byKey[dep]; ok {
				visit(target)
			}
		}
		visiting[key] = false
		visited[key] = true
		out = append(out, m)
	}

	for _, m := range models {
		visit(m)
	}
	return out
}
