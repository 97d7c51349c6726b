// Package store persists generated instances.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dilla-go/dilla/internal/config"
	"github.com/dilla-go/dilla/internal/schema"
)

// ErrUniqueViolation is wrapped by Save when the store rejects an instance
// because of a unique constraint. Callers discard the instance and go on.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Instance is one generated record.
type Instance struct {
	Model *schema.Model
	// ID is set by Save.
	ID any
	// Values holds field values keyed by field name.
	Values map[string]any
	// Links holds related ids keyed by relation name, set by Link.
	Links map[string][]any
}

// NewInstance returns an empty instance of m.
func NewInstance(m *schema.Model) *Instance {
	return &Instance{Model: m, Values: make(map[string]any)}
}

// Store is where instances are written.
type Store interface {
	// Save persists inst and sets inst.ID. A unique constraint failure
	// wraps ErrUniqueViolation.
	Save(ctx context.Context, inst *Instance) error
	// Link associates inst with the target ids of a many-to-many relation.
	Link(ctx context.Context, inst *Instance, rel *schema.Relation, ids []any) error
	// Sample returns up to n existing instances of m in random order.
	Sample(ctx context.Context, m *schema.Model, n int) ([]*Instance, error)
	// Count returns the number of stored instances of m.
	Count(ctx context.Context, m *schema.Model) (int64, error)
	Close(ctx context.Context) error
}

// UnsupportedStoreError is returned for an unknown store type.
type UnsupportedStoreError struct {
	Type string
}

func (e *UnsupportedStoreError) Error() string {
	return fmt.Sprintf("unsupported store type: %q (supported: postgresql, mysql, sqlite, mongodb, memory)", e.Type)
}

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "postgresql", "postgres":
		return OpenPostgres(ctx, cfg.URL, cfg.Schema)
	case "mysql":
		return OpenSQL(ctx, DialectMySQL, cfg.URL)
	case "sqlite", "sqlite3":
		return OpenSQL(ctx, DialectSQLite, cfg.URL)
	case "mongodb", "mongo":
		return OpenMongo(ctx, cfg.URL, cfg.Database)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, &UnsupportedStoreError{Type: cfg.Type}
	}
}

// primaryKey returns the first auto-created field of m, or nil.
func primaryKey(m *schema.Model) *schema.Field {
	for _, f := range m.Fields {
		if f.AutoCreated {
			return f
		}
	}
	return nil
}

// pkColumn is the storage column of the primary key, "id" by convention.
func pkColumn(m *schema.Model) string {
	if f := primaryKey(m); f != nil {
		return f.Column
	}
	return "id"
}

// columns maps the instance values to storage columns in a stable order.
func columns(inst *Instance) (cols []string, vals []any) {
	names := make([]string, 0, len(inst.Values))
	for name := range inst.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		col := name
		if f := inst.Model.Field(name); f != nil {
			col = f.Column
		}
		cols = append(cols, col)
		vals = append(vals, inst.Values[name])
	}
	return cols, vals
}

// presetID returns the primary key value when the caller supplied one.
func presetID(inst *Instance) (any, bool) {
	f := primaryKey(inst.Model)
	if f == nil {
		return nil, false
	}
	v, ok := inst.Values[f.Name]
	return v, ok && v != nil
}
