package schema

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Catalog is the full set of model definitions available to a run.
type Catalog struct {
	Version    int          `yaml:"version"`
	Namespaces []*Namespace `yaml:"namespaces"`
}

// Namespace groups models the way an application or schema does.
type Namespace struct {
	Name string `yaml:"name"`
	// Order is the declared population order (model names). Optional.
	Order  []string `yaml:"order,omitempty"`
	Models []*Model `yaml:"models"`
}

// Model describes one table or collection.
type Model struct {
	Name      string       `yaml:"name"`
	Table     string       `yaml:"table,omitempty"`
	Fields    []*Field     `yaml:"fields"`
	Relations []*Relation  `yaml:"relations,omitempty"`
	Policy    *ModelPolicy `yaml:"policy,omitempty"`

	Namespace string `yaml:"-"`
}

// Field describes one column.
type Field struct {
	Name          string `yaml:"name"`
	Column        string `yaml:"column,omitempty"`
	Kind          Kind   `yaml:"kind"`
	Nullable      bool   `yaml:"nullable,omitempty"`
	MaxLength     int    `yaml:"max_length,omitempty"`
	DecimalPlaces int    `yaml:"decimal_places,omitempty"`
	Unique        bool   `yaml:"unique,omitempty"`
	AutoPopulated bool   `yaml:"auto_populated,omitempty"`
	AutoCreated   bool   `yaml:"auto_created,omitempty"`
	// References names the target model of a foreign key ("Model" or "namespace.Model").
	References string `yaml:"references,omitempty"`

	Target *Model `yaml:"-"`
}

// Relation describes a many-to-many association stored in a join table.
type Relation struct {
	Name         string `yaml:"name"`
	Target       string `yaml:"target"`
	Through      string `yaml:"through,omitempty"`
	SourceColumn string `yaml:"source_column,omitempty"`
	TargetColumn string `yaml:"target_column,omitempty"`

	TargetModel *Model `yaml:"-"`
}

// Key identifies a model across namespaces.
func (m *Model) Key() string {
	if m.Namespace == "" {
		return m.Name
	}
	return m.Namespace + "." + m.Name
}

// Field returns the named field, or nil.
func (m *Model) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldPolicy returns the policy attached to the named field, or nil.
func (m *Model) FieldPolicy(name string) *FieldPolicy {
	return m.Policy.Field(name)
}

// Dependencies returns the keys of models referenced by foreign keys, excluding itself.
func (m *Model) Dependencies() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, f := range m.Fields {
		if f.Kind != KindForeignKey || f.Target == nil || f.Target == m {
			continue
		}
		if !seen[f.Target.Key()] {
			seen[f.Target.Key()] = true
			deps = append(deps, f.Target.Key())
		}
	}
	return deps
}

// Namespace returns the namespace with the given name, or nil.
func (c *Catalog) Namespace(name string) *Namespace {
	for _, ns := range c.Namespaces {
		if ns.Name == name {
			return ns
		}
	}
	return nil
}

// Model returns the model named by ref. A bare name must be unambiguous
// across namespaces.
func (c *Catalog) Model(ref string) (*Model, error) {
	if nsName, name, ok := strings.Cut(ref, "."); ok {
		ns := c.Namespace(nsName)
		if ns == nil {
			return nil, fmt.Errorf("namespace %q not found", nsName)
		}
		if m := ns.Model(name); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("model %q not found in namespace %q", name, nsName)
	}

	var found *Model
	for _, ns := range c.Namespaces {
		if m := ns.Model(ref); m != nil {
			if found != nil {
				return nil, fmt.Errorf("model %q is ambiguous (%s, %s)", ref, found.Key(), m.Key())
			}
			found = m
		}
	}
	if found == nil {
		return nil, fmt.Errorf("model %q not found", ref)
	}
	return found, nil
}

// Models returns every model in catalog order.
func (c *Catalog) Models() []*Model {
	var out []*Model
	for _, ns := range c.Namespaces {
		out = append(out, ns.Models...)
	}
	return out
}

// Model returns the named model in this namespace, or nil.
func (ns *Namespace) Model(name string) *Model {
	for _, m := range ns.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Resolve fills defaults, links foreign keys and relations to their target
// models and validates policies. Warnings are non-fatal problems such as
// invalid numeric ranges.
func (c *Catalog) Resolve() (warnings []string, err error) {
	var problems []string

	for _, ns := range c.Namespaces {
		if ns.Name == "" {
			problems = append(problems, "namespace with empty name")
		}
		for _, m := range ns.Models {
			m.Namespace = ns.Name
			if m.Table == "" {
				m.Table = TableName(m.Name)
			}
		}
	}

	for _, ns := range c.Namespaces {
		seenModels := make(map[string]bool)
		for _, m := range ns.Models {
			if seenModels[m.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate model", m.Key()))
			}
			seenModels[m.Name] = true

			p, w := c.resolveModel(ns, m)
			problems = append(problems, p...)
			warnings = append(warnings, w...)
		}
	}

	if len(problems) > 0 {
		return warnings, &ValidationError{Problems: problems}
	}
	return warnings, nil
}

func (c *Catalog) resolveModel(ns *Namespace, m *Model) (problems, warnings []string) {
	seen := make(map[string]bool)
	for _, f := range m.Fields {
		where := m.Key() + "." + f.Name
		if f.Name == "" {
			problems = append(problems, m.Key()+": field with empty name")
			continue
		}
		if seen[f.Name] {
			problems = append(problems, where+": duplicate field")
		}
		seen[f.Name] = true

		if f.Kind == KindUnknown {
			problems = append(problems, where+": missing kind")
		}
		if f.MaxLength < 0 {
			problems = append(problems, where+": negative max_length")
		}
		if f.Kind == KindForeignKey {
			if f.References == "" {
				problems = append(problems, where+": foreign key without references")
			} else if target, err := c.lookupFrom(ns, f.References); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			} else {
				f.Target = target
			}
			if f.Column == "" {
				f.Column = f.Name + "_id"
			}
		}
		if f.Column == "" {
			f.Column = f.Name
		}
	}

	for _, r := range m.Relations {
		where := m.Key() + "." + r.Name
		target, err := c.lookupFrom(ns, r.Target)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			continue
		}
		r.TargetModel = target
		if r.Through == "" {
			r.Through = m.Table + "_" + ToSnake(r.Name)
		}
		if r.SourceColumn == "" {
			r.SourceColumn = ToSnake(m.Name) + "_id"
		}
		if r.TargetColumn == "" {
			r.TargetColumn = ToSnake(target.Name) + "_id"
			if target == m {
				r.TargetColumn = "to_" + r.TargetColumn
			}
		}
	}

	if m.Policy == nil {
		return problems, warnings
	}
	for _, name := range m.Policy.SkipFields {
		if m.Field(name) == nil {
			warnings = append(warnings, fmt.Sprintf("%s: skip_fields names unknown field %q", m.Key(), name))
		}
	}
	for _, name := range m.Policy.ImageFields {
		if m.Field(name) == nil {
			warnings = append(warnings, fmt.Sprintf("%s: image_fields names unknown field %q", m.Key(), name))
		}
	}
	for name, fp := range m.Policy.Fields {
		if fp == nil {
			continue
		}
		p, w := fp.validate(m.Key() + "." + name)
		problems = append(problems, p...)
		warnings = append(warnings, w...)
	}
	return problems, warnings
}

// lookupFrom resolves a model reference relative to a namespace.
func (c *Catalog) lookupFrom(ns *Namespace, ref string) (*Model, error) {
	if !strings.Contains(ref, ".") {
		if m := ns.Model(ref); m != nil {
			return m, nil
		}
	}
	return c.Model(ref)
}

// TableName derives the default storage name for a model: "EventVenue" -> "event_venues".
func TableName(model string) string {
	return inflection.Plural(ToSnake(model))
}

// ToSnake converts CamelCase to snake_case.
func ToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
