package discovery

import (
	"context"

	"github.com/dilla-go/dilla/internal/config"
)

// Discoverer reads table definitions from a live database.
type Discoverer interface {
	// Connect establishes a read-only connection to the database.
	Connect(ctx context.Context) error

	// Discover lists the tables of the configured schema.
	Discover(ctx context.Context) ([]Table, error)

	// Close closes the database connection.
	Close() error
}

// New creates a Discoverer for the given store configuration.
func New(cfg config.StoreConfig) (Discoverer, error) {
	switch cfg.Type {
	case "postgresql", "postgres":
		return NewPostgres(cfg.URL, cfg.Schema), nil
	default:
		return nil, &UnsupportedDBError{DBType: cfg.Type}
	}
}

// UnsupportedDBError is returned when live discovery is not available for a
// store type.
type UnsupportedDBError struct {
	DBType string
}

func (e *UnsupportedDBError) Error() string {
	return "unsupported database type for discovery: " + e.DBType
}

// Table is a database table as seen by discovery, before it becomes a model.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	// Unique lists single- and multi-column unique constraints.
	Unique [][]string
}

// Column is one table column.
type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	MaxLength  int
	Scale      int
	IsSequence bool
	// DefaultNow is set for columns defaulting to the current time.
	DefaultNow bool
}

// ForeignKey is a foreign key constraint, possibly composite.
type ForeignKey struct {
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// isUnique reports whether column alone carries a unique constraint.
func (t *Table) isUnique(column string) bool {
	for _, u := range t.Unique {
		if len(u) == 1 && u[0] == column {
			return true
		}
	}
	return len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == column
}

// foreignKey returns the single-column foreign key on column, or nil.
func (t *Table) foreignKey(column string) *ForeignKey {
	for i := range t.ForeignKeys {
		fk := &t.ForeignKeys[i]
		if len(fk.Columns) == 1 && fk.Columns[0] == column {
			return fk
		}
	}
	return nil
}
