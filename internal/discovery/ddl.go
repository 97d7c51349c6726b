package discovery

import (
	"errors"
	"fmt"
	"os"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// ParseDDLFile reads a PostgreSQL schema or migration file and returns its tables.
func ParseDDLFile(path string) ([]Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DDL file: %w", err)
	}
	return ParseDDL(string(data))
}

// ParseDDL builds tables from CREATE TABLE and ALTER TABLE ... ADD CONSTRAINT
// statements without a database connection. Everything after a goose Down
// marker is ignored.
func ParseDDL(sql string) ([]Table, error) {
	ast, err := pg_query.Parse(omitDownMigration(sql))
	if err != nil {
		return nil, fmt.Errorf("parsing DDL: %w", err)
	}

	var tables []Table
	index := make(map[string]int)
	for _, s := range ast.GetStmts() {
		switch node := s.GetStmt().GetNode().(type) {
		case *pg_query.Node_CreateStmt:
			t, err := createTable(node.CreateStmt)
			if err != nil {
				return nil, err
			}
			index[t.Name] = len(tables)
			tables = append(tables, *t)
		case *pg_query.Node_AlterTableStmt:
			name := node.AlterTableStmt.GetRelation().GetRelname()
			i, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("altering unknown table %q", name)
			}
			for _, cmd := range node.AlterTableStmt.GetCmds() {
				alter := cmd.GetAlterTableCmd()
				if alter.GetSubtype() == pg_query.AlterTableType_AT_AddConstraint {
					addTableConstraint(&tables[i], alter.GetDef().GetConstraint())
				}
			}
		}
	}
	return tables, nil
}

func createTable(stmt *pg_query.CreateStmt) (*Table, error) {
	rel := stmt.GetRelation()
	if rel == nil {
		return nil, errors.New("no relation")
	}
	name := rel.GetRelname()
	if name == "" {
		return nil, errors.New("empty table name")
	}

	t := &Table{Name: name}
	for _, elt := range stmt.GetTableElts() {
		if def := elt.GetColumnDef(); def != nil {
			if err := addColumn(t, def); err != nil {
				return nil, fmt.Errorf("table %s: %w", name, err)
			}
		} else if c := elt.GetConstraint(); c != nil {
			addTableConstraint(t, c)
		}
	}
	return t, nil
}

func addColumn(t *Table, def *pg_query.ColumnDef) error {
	typeName := def.GetTypeName()
	if typeName == nil {
		return fmt.Errorf("column %s: no type name", def.GetColname())
	}

	col := Column{
		Name:     def.GetColname(),
		DataType: columnType(typeName),
		Nullable: !def.GetIsNotNull(),
	}
	mods := typeName.GetTypmods()
	if len(mods) == 1 && isCharType(col.DataType) {
		col.MaxLength = int(mods[0].GetAConst().GetIval().GetIval())
	}
	if len(mods) == 2 {
		col.Scale = int(mods[1].GetAConst().GetIval().GetIval())
	}
	switch col.DataType {
	case "serial", "bigserial", "smallserial", "serial4", "serial8", "serial2":
		col.IsSequence = true
	}

	for _, n := range def.GetConstraints() {
		c := n.GetConstraint()
		switch c.GetContype() {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			col.Nullable = false
		case pg_query.ConstrType_CONSTR_PRIMARY:
			col.Nullable = false
			t.PrimaryKey = []string{col.Name}
		case pg_query.ConstrType_CONSTR_UNIQUE:
			t.Unique = append(t.Unique, []string{col.Name})
		case pg_query.ConstrType_CONSTR_IDENTITY:
			col.IsSequence = true
		case pg_query.ConstrType_CONSTR_DEFAULT:
			col.DefaultNow = isNowExpr(c.GetRawExpr())
		case pg_query.ConstrType_CONSTR_FOREIGN:
			t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
				Columns:           []string{col.Name},
				ReferencedTable:   c.GetPktable().GetRelname(),
				ReferencedColumns: nodeStrings(c.GetPkAttrs()),
			})
		}
	}

	t.Columns = append(t.Columns, col)
	return nil
}

func addTableConstraint(t *Table, c *pg_query.Constraint) {
	switch c.GetContype() {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		t.PrimaryKey = nodeStrings(c.GetKeys())
		for _, name := range t.PrimaryKey {
			if col := t.Column(name); col != nil {
				col.Nullable = false
			}
		}
	case pg_query.ConstrType_CONSTR_UNIQUE:
		t.Unique = append(t.Unique, nodeStrings(c.GetKeys()))
	case pg_query.ConstrType_CONSTR_FOREIGN:
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Columns:           nodeStrings(c.GetFkAttrs()),
			ReferencedTable:   c.GetPktable().GetRelname(),
			ReferencedColumns: nodeStrings(c.GetPkAttrs()),
		})
	}
}

// columnType flattens a type name, dropping the pg_catalog qualifier the
// parser adds to built-in types ("pg_catalog.int4" -> "int4").
func columnType(typeName *pg_query.TypeName) string {
	names := nodeStrings(typeName.GetNames())
	if len(names) == 2 && names[0] == "pg_catalog" {
		names = names[1:]
	}
	t := strings.ToLower(strings.Join(names, "."))
	if len(typeName.GetArrayBounds()) > 0 {
		t += "[]"
	}
	return t
}

func isCharType(t string) bool {
	switch t {
	case "varchar", "bpchar", "char", "character", "character varying":
		return true
	}
	return false
}

// isNowExpr reports whether a DEFAULT expression yields the current time.
func isNowExpr(n *pg_query.Node) bool {
	if n == nil {
		return false
	}
	if n.GetSqlvalueFunction() != nil {
		return true
	}
	if fc := n.GetFuncCall(); fc != nil {
		names := nodeStrings(fc.GetFuncname())
		return len(names) > 0 && strings.EqualFold(names[len(names)-1], "now")
	}
	return false
}

func nodeStrings(nodes []*pg_query.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.GetString_().GetSval())
	}
	return out
}

func omitDownMigration(sql string) string {
	lines := strings.Split(sql, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "-- +goose Down") {
			return strings.Join(lines[:i], "\n")
		}
	}
	return sql
}
