package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dilla-go/dilla/internal/schema"
)

// Postgres writes instances to PostgreSQL through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	schema string
	qb     squirrel.StatementBuilderType
}

// OpenPostgres connects and pings. Tables are looked up in dbSchema when set.
func OpenPostgres(ctx context.Context, url, dbSchema string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 2 // populate is sequential
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	return newPostgres(pool, dbSchema), nil
}

func newPostgres(pool *pgxpool.Pool, dbSchema string) *Postgres {
	return &Postgres{
		pool:   pool,
		schema: dbSchema,
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (p *Postgres) table(name string) string {
	if p.schema == "" {
		return quoteIdentPg(name)
	}
	return quoteIdentPg(p.schema) + "." + quoteIdentPg(name)
}

func (p *Postgres) insertSQL(inst *Instance) (string, []any, error) {
	cols, vals := columns(inst)
	returning := "RETURNING " + quoteIdentPg(pkColumn(inst.Model))
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES %s", p.table(inst.Model.Table), returning), nil, nil
	}
	return p.qb.Insert(p.table(inst.Model.Table)).
		Columns(quoteAll(cols, quoteIdentPg)...).
		Values(vals...).
		Suffix(returning).
		ToSql()
}

func (p *Postgres) Save(ctx context.Context, inst *Instance) error {
	query, args, err := p.insertSQL(inst)
	if err != nil {
		return fmt.Errorf("building insert for %s: %w", inst.Model.Key(), err)
	}
	var id any
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("saving %s: %w", inst.Model.Key(), mapPgError(err))
	}
	inst.ID = id
	return nil
}

func (p *Postgres) Link(ctx context.Context, inst *Instance, rel *schema.Relation, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := linkInsert(p.qb, p.table(rel.Through), quoteIdentPg, rel, inst.ID, ids).
		Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("building link for %s.%s: %w", inst.Model.Key(), rel.Name, err)
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("linking %s.%s: %w", inst.Model.Key(), rel.Name, mapPgError(err))
	}
	if inst.Links == nil {
		inst.Links = make(map[string][]any)
	}
	inst.Links[rel.Name] = append(inst.Links[rel.Name], ids...)
	return nil
}

func (p *Postgres) Sample(ctx context.Context, m *schema.Model, n int) ([]*Instance, error) {
	query, args, err := p.qb.Select(quoteIdentPg(pkColumn(m))).From(p.table(m.Table)).
		OrderBy("random()").Limit(uint64(n)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sampling %s: %w", m.Key(), err)
	}
	defer rows.Close()

	var out []*Instance
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		inst := NewInstance(m)
		inst.ID = vals[0]
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

func (p *Postgres) Count(ctx context.Context, m *schema.Model) (int64, error) {
	var count int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", p.table(m.Table))
	if err := p.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", m.Table, err)
	}
	return count, nil
}

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}

// mapPgError wraps unique_violation (SQLSTATE 23505) in ErrUniqueViolation.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
	}
	return err
}

func quoteIdentPg(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteAll(names []string, quote func(string) string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return out
}

// linkInsert builds a multi-row insert into a join table.
func linkInsert(qb squirrel.StatementBuilderType, table string, quote func(string) string, rel *schema.Relation, sourceID any, ids []any) squirrel.InsertBuilder {
	q := qb.Insert(table).Columns(quote(rel.SourceColumn), quote(rel.TargetColumn))
	for _, id := range ids {
		q = q.Values(sourceID, id)
	}
	return q
}
