package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Discoverer for PostgreSQL databases.
type Postgres struct {
	url    string
	pool   *pgxpool.Pool
	schema string // pg schema to discover, defaults to "public"
}

// NewPostgres creates a new PostgreSQL discoverer.
func NewPostgres(url, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{url: url, schema: schema}
}

func (p *Postgres) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.url)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *Postgres) Discover(ctx context.Context) ([]Table, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	tables, err := p.discoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering tables: %w", err)
	}

	tableMap := make(map[string]*Table, len(tables))
	for i := range tables {
		tableMap[tables[i].Name] = &tables[i]
	}

	if err := p.discoverColumns(ctx, tableMap); err != nil {
		return nil, fmt.Errorf("discovering columns: %w", err)
	}

	if err := p.discoverKeys(ctx, tableMap); err != nil {
		return nil, fmt.Errorf("discovering keys: %w", err)
	}

	if err := p.discoverForeignKeys(ctx, tableMap); err != nil {
		return nil, fmt.Errorf("discovering foreign keys: %w", err)
	}

	return tables, nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// discoverTables lists all user tables of the schema.
func (p *Postgres) discoverTables(ctx context.Context) ([]Table, error) {
	query := `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind = 'r'
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// discoverColumns fetches all columns for all tables in the schema, marking
// sequence-backed and time-defaulted ones.
func (p *Postgres) discoverColumns(ctx context.Context, tableMap map[string]*Table) error {
	query := `
		SELECT
			table_name,
			column_name,
			data_type,
			is_nullable,
			column_default,
			is_identity,
			character_maximum_length,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = ANY($2)
		ORDER BY table_name, ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, tableNames(tableMap))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, colName, dataType, nullable, identity string
			defaultVal                                       *string
			maxLen, scale                                    *int
		)
		if err := rows.Scan(&tableName, &colName, &dataType, &nullable, &defaultVal, &identity, &maxLen, &scale); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}

		col := Column{
			Name:       colName,
			DataType:   dataType,
			Nullable:   nullable == "YES",
			IsSequence: identity == "YES",
		}
		if maxLen != nil {
			col.MaxLength = *maxLen
		}
		if scale != nil {
			col.Scale = *scale
		}
		if defaultVal != nil {
			def := strings.ToLower(*defaultVal)
			col.IsSequence = col.IsSequence || strings.HasPrefix(def, "nextval(")
			col.DefaultNow = def == "now()" || strings.HasPrefix(def, "current_timestamp")
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

// discoverKeys fetches primary key and unique constraints.
func (p *Postgres) discoverKeys(ctx context.Context, tableMap map[string]*Table) error {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		  AND tc.table_schema = $1
		  AND tc.table_name = ANY($2)
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, tableNames(tableMap))
	if err != nil {
		return err
	}
	defer rows.Close()

	type ukKey struct{ table, constraint string }
	grouped := make(map[ukKey][]string)
	var order []ukKey

	for rows.Next() {
		var tableName, constraintName, constraintType, colName string
		if err := rows.Scan(&tableName, &constraintName, &constraintType, &colName); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}
		if constraintType == "PRIMARY KEY" {
			t.PrimaryKey = append(t.PrimaryKey, colName)
			continue
		}
		k := ukKey{tableName, constraintName}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		tableMap[k.table].Unique = append(tableMap[k.table].Unique, grouped[k])
	}
	return nil
}

// discoverForeignKeys fetches foreign key relationships including composite keys.
func (p *Postgres) discoverForeignKeys(ctx context.Context, tableMap map[string]*Table) error {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		  AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = ANY($2)
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, tableNames(tableMap))
	if err != nil {
		return err
	}
	defer rows.Close()

	// Group columns by constraint name since composite FKs have multiple rows
	type fkKey struct{ table, constraint string }
	grouped := make(map[fkKey]*ForeignKey)
	var order []fkKey

	for rows.Next() {
		var tableName, constraintName, column, refTable, refColumn string
		if err := rows.Scan(&tableName, &constraintName, &column, &refTable, &refColumn); err != nil {
			return err
		}
		k := fkKey{tableName, constraintName}
		fk, exists := grouped[k]
		if !exists {
			fk = &ForeignKey{ReferencedTable: refTable}
			grouped[k] = fk
			order = append(order, k)
		}
		fk.Columns = append(fk.Columns, column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.ForeignKeys = append(t.ForeignKeys, *grouped[k])
		}
	}
	return nil
}

func tableNames(tableMap map[string]*Table) []string {
	names := make([]string, 0, len(tableMap))
	for name := range tableMap {
		names = append(names, name)
	}
	return names
}

// compile-time interface check
var _ Discoverer = (*Postgres)(nil)
