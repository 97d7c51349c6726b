package discovery

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/dilla-go/dilla/internal/schema"
	"github.com/dilla-go/dilla/internal/typemap"
)

// BuildCatalog turns discovered tables into a one-namespace catalog. Join
// tables become many-to-many relations on the first referenced model, and
// the namespace order lists referenced models before the models that point
// at them.
func BuildCatalog(namespace string, tables []Table, tm *typemap.TypeMap) (*schema.Catalog, []string, error) {
	byName := make(map[string]*Table, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	ns := &schema.Namespace{Name: namespace}
	models := make(map[string]*schema.Model)
	var joins []*Table

	for i := range tables {
		t := &tables[i]
		if isJoinTable(t, byName) {
			joins = append(joins, t)
			continue
		}
		m := buildModel(t, byName, tm)
		models[t.Name] = m
		ns.Models = append(ns.Models, m)
	}

	for _, t := range joins {
		src, dst := t.ForeignKeys[0], t.ForeignKeys[1]
		owner, target := models[src.ReferencedTable], models[dst.ReferencedTable]
		if owner == nil || target == nil {
			continue
		}
		owner.Relations = append(owner.Relations, &schema.Relation{
			Name:         relationName(owner, target, t.Name),
			Target:       target.Name,
			Through:      t.Name,
			SourceColumn: src.Columns[0],
			TargetColumn: dst.Columns[0],
		})
	}

	order, err := insertionOrder(tables, byName)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range order {
		if m, ok := models[name]; ok {
			ns.Order = append(ns.Order, m.Name)
		}
	}

	c := &schema.Catalog{Version: schema.CurrentVersion, Namespaces: []*schema.Namespace{ns}}
	warnings, err := c.Resolve()
	if err != nil {
		return nil, warnings, fmt.Errorf("resolving discovered catalog: %w", err)
	}
	return c, warnings, nil
}

func buildModel(t *Table, tables map[string]*Table, tm *typemap.TypeMap) *schema.Model {
	m := &schema.Model{Name: ModelName(t.Name), Table: t.Name}
	var policy schema.ModelPolicy

	for _, col := range t.Columns {
		f := &schema.Field{
			Name:     col.Name,
			Column:   col.Name,
			Nullable: col.Nullable,
			Unique:   t.isUnique(col.Name),
		}

		fk := t.foreignKey(col.Name)
		switch {
		case len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == col.Name && col.IsSequence:
			f.Kind = schema.KindAutoGenerated
			f.AutoCreated = true
		case fk != nil && tables[fk.ReferencedTable] != nil:
			f.Kind = schema.KindForeignKey
			f.Name = strings.TrimSuffix(col.Name, "_id")
			f.References = ModelName(fk.ReferencedTable)
		case col.IsSequence:
			f.Kind = schema.KindAutoGenerated
			f.AutoCreated = true
		default:
			f.Kind = tm.ResolveColumn(col.Name, col.DataType)
			f.MaxLength = col.MaxLength
			if f.Kind == schema.KindDecimal {
				f.DecimalPlaces = col.Scale
			}
			if col.DefaultNow && (f.Kind == schema.KindDateTime || f.Kind == schema.KindDate) {
				f.AutoPopulated = true
			}
			if strings.EqualFold(col.DataType, "uuid") {
				if policy.Fields == nil {
					policy.Fields = make(map[string]*schema.FieldPolicy)
				}
				policy.Fields[f.Name] = &schema.FieldPolicy{Generator: schema.GeneratorUUID}
			}
		}
		m.Fields = append(m.Fields, f)
	}

	if policy.Fields != nil {
		m.Policy = &policy
	}
	return m
}

// isJoinTable reports whether t only links two other discovered tables.
func isJoinTable(t *Table, tables map[string]*Table) bool {
	if len(t.ForeignKeys) != 2 {
		return false
	}
	linked := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || tables[fk.ReferencedTable] == nil || fk.ReferencedTable == t.Name {
			return false
		}
		linked[fk.Columns[0]] = true
	}
	for _, col := range t.Columns {
		if linked[col.Name] {
			continue
		}
		if !col.IsSequence {
			return false
		}
	}
	return true
}

// relationName names a relation after its target ("artists"), unless the
// join table already carries a more specific suffix ("event_headliners").
func relationName(owner, target *schema.Model, through string) string {
	if rest, ok := strings.CutPrefix(through, owner.Table+"_"); ok && rest != "" {
		return rest
	}
	return inflection.Plural(schema.ToSnake(target.Name))
}

// ModelName derives a model name from a table name: "event_venues" -> "EventVenue".
func ModelName(table string) string {
	var b strings.Builder
	for _, part := range strings.Split(inflection.Singular(table), "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// insertionOrder sorts tables so referenced tables come first. Self
// references are ignored, cycles through a nullable key are broken there and
// any other cycle is an error.
func insertionOrder(tables []Table, byName map[string]*Table) ([]string, error) {
	visited := make(map[string]bool)
	temp := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if temp[name] {
			return fmt.Errorf("circular dependency detected involving table: %s", name)
		}
		if visited[name] {
			return nil
		}

		temp[name] = true
		if t := byName[name]; t != nil {
			for _, fk := range t.ForeignKeys {
				if fk.ReferencedTable == name || byName[fk.ReferencedTable] == nil {
					continue
				}
				if temp[fk.ReferencedTable] && t.nullableKey(fk) {
					continue
				}
				if err := visit(fk.ReferencedTable); err != nil {
					return err
				}
			}
		}
		temp[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, t := range tables {
		if err := visit(t.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// nullableKey reports whether every column of fk accepts NULL.
func (t *Table) nullableKey(fk ForeignKey) bool {
	for _, name := range fk.Columns {
		if col := t.Column(name); col == nil || !col.Nullable {
			return false
		}
	}
	return true
}
