// Package schema introspects table metadata from the Postgres catalogs.
// A table's schema is fetched once per run and treated as immutable.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTable is returned when a table identifier has more than one
// schema separator.
var ErrMalformedTable = errors.New("malformed table identifier")

// TableName is a possibly schema-qualified table identifier.
type TableName struct {
	Schema string
	Name   string
}

// ParseTableName parses "[schema.]name". An unqualified name resolves to
// the public schema.
func ParseTableName(s string) (TableName, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		return TableName{Schema: "public", Name: parts[0]}, nil
	case 2:
		return TableName{Schema: parts[0], Name: parts[1]}, nil
	}
	return TableName{}, fmt.Errorf("%w: %q", ErrMalformedTable, s)
}

// String returns the schema-qualified form.
func (t TableName) String() string {
	return t.Schema + "." + t.Name
}

// Quoted returns the identifier quoted for use in SQL.
func (t TableName) Quoted() string {
	return QuoteIdent(t.Schema) + "." + QuoteIdent(t.Name)
}

// QuoteIdent safely quotes a Postgres identifier, escaping embedded quotes.
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Table holds a table's column list (in ordinal position order) and its
// primary key column set.
type Table struct {
	TableName
	Columns    []string
	PrimaryKey []string
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// LookupError indicates a table was not found in the catalog (or the
// caller cannot read it).
type LookupError struct {
	Table TableName
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("table %s not found in catalog", e.Table)
}
