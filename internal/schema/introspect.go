package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the narrow read interface the introspector needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Introspector reads table metadata from the Postgres catalogs.
type Introspector struct {
	db Querier
}

// NewIntrospector creates an Introspector over the given connection.
func NewIntrospector(db Querier) *Introspector {
	return &Introspector{db: db}
}

// Load fetches the column list and primary key for a table. Returns a
// *LookupError when the table has no columns in the catalog.
func (in *Introspector) Load(ctx context.Context, name TableName) (*Table, error) {
	t := &Table{TableName: name}

	cols, err := in.LoadColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	t.Columns = cols

	pk, err := in.LoadPrimaryKey(ctx, name)
	if err != nil {
		return nil, err
	}
	t.PrimaryKey = pk

	return t, nil
}

// LoadColumns returns the table's column names in ordinal position order.
func (in *Introspector) LoadColumns(ctx context.Context, name TableName) ([]string, error) {
	rows, err := in.db.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, name.Schema, name.Name)
	if err != nil {
		return nil, fmt.Errorf("querying columns for %s: %w", name, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning column for %s: %w", name, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns for %s: %w", name, err)
	}

	if len(cols) == 0 {
		return nil, &LookupError{Table: name}
	}
	return cols, nil
}

// LoadPrimaryKey returns the table's primary key column names via the
// catalog index lookup. A table without a primary key returns nil.
func (in *Introspector) LoadPrimaryKey(ctx context.Context, name TableName) ([]string, error) {
	rows, err := in.db.Query(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE i.indisprimary
		  AND n.nspname = $1
		  AND c.relname = $2
	`, name.Schema, name.Name)
	if err != nil {
		return nil, fmt.Errorf("querying primary key for %s: %w", name, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning primary key for %s: %w", name, err)
		}
		pk = append(pk, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading primary key for %s: %w", name, err)
	}
	return pk, nil
}
