// Package upsert writes row batches to the destination table as single
// bulk parameterized inserts with configurable conflict handling. Each
// batch commits in its own transaction, which bounds the blast radius of a
// mid-run failure to one batch and makes re-runs safe under the skip and
// update policies.
package upsert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/art-vbst/art/internal/logging"
	"github.com/art-vbst/art/internal/mapping"
	"github.com/art-vbst/art/internal/schema"
	"github.com/art-vbst/art/internal/value"
)

// Tx is the narrow destination transaction interface. pgx.Tx satisfies it.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB begins destination transactions.
type DB interface {
	Begin(ctx context.Context) (Tx, error)
}

// PoolDB adapts a pgx pool to the DB interface.
type PoolDB struct {
	Pool *pgxpool.Pool
}

func (p PoolDB) Begin(ctx context.Context) (Tx, error) {
	return p.Pool.Begin(ctx)
}

// ConflictError reports a unique violation under the error policy. The
// offending batch's writes were rolled back; prior batches remain
// committed.
type ConflictError struct {
	BatchStart int64 // row offset of the batch's first row within the run
	BatchLen   int
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict in batch starting at row %d (%d rows, rolled back): %v",
		e.BatchStart, e.BatchLen, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Upserter writes batches to one destination table.
type Upserter struct {
	db             DB
	table          schema.TableName
	mapping        *mapping.Mapping
	policy         Policy
	conflictTarget []string
	offset         int64
}

// New creates an Upserter. conflictTarget names the destination columns
// whose values identify a conflicting row.
func New(db DB, table schema.TableName, m *mapping.Mapping, policy Policy, conflictTarget []string) *Upserter {
	return &Upserter{
		db:             db,
		table:          table,
		mapping:        m,
		policy:         policy,
		conflictTarget: conflictTarget,
	}
}

// Apply writes one batch in one transaction. It returns the count of rows
// genuinely inserted and the count skipped or updated. In dry-run mode the
// statement is still built (so the full pipeline is exercised) but nothing
// is written and both counts are zero.
func (u *Upserter) Apply(ctx context.Context, batch []value.Row, dryRun bool) (inserted, skippedOrUpdated int64, err error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}

	batchStart := u.offset
	u.offset += int64(len(batch))

	sql := BuildInsertSQL(u.table, u.mapping.DestColumns(), u.conflictTarget, u.policy, len(batch))
	args := buildArgs(batch, u.mapping.SourceColumns())

	if dryRun {
		logging.Debug("dry-run: would execute batch insert (%d rows): %s", len(batch), sql)
		return 0, 0, nil
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning destination transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		var pgErr *pgconn.PgError
		if u.policy == PolicyError && errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, 0, &ConflictError{BatchStart: batchStart, BatchLen: len(batch), Err: err}
		}
		return 0, 0, fmt.Errorf("inserting batch starting at row %d: %w", batchStart, err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, 0, fmt.Errorf("committing batch starting at row %d: %w", batchStart, err)
	}

	affected := tag.RowsAffected()
	return affected, int64(len(batch)) - affected, nil
}

// BuildInsertSQL builds one multi-row parameterized INSERT covering the
// whole batch, with the conflict clause the policy calls for.
func BuildInsertSQL(table schema.TableName, destCols, conflictTarget []string, policy Policy, rowCount int) string {
	quoted := make([]string, len(destCols))
	for i, c := range destCols {
		quoted[i] = schema.QuoteIdent(c)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table.Quoted())
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range destCols {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", n)
			n++
		}
		sb.WriteString(")")
	}

	switch policy {
	case PolicySkip:
		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(joinQuoted(conflictTarget))
		sb.WriteString(") DO NOTHING")
	case PolicyUpdate:
		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(joinQuoted(conflictTarget))
		sb.WriteString(")")
		if set := buildUpdateSet(destCols, conflictTarget); set != "" {
			sb.WriteString(" DO UPDATE SET ")
			sb.WriteString(set)
		} else {
			// Every mapped column is part of the conflict target; there
			// is nothing to overwrite.
			sb.WriteString(" DO NOTHING")
		}
	case PolicyError:
		// No conflict clause: a duplicate key aborts the batch and the
		// transaction rolls back.
	}

	return sb.String()
}

func joinQuoted(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = schema.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// buildUpdateSet assigns EXCLUDED values to every non-conflict-target
// column: a full replace, not a merge.
func buildUpdateSet(destCols, conflictTarget []string) string {
	target := make(map[string]bool, len(conflictTarget))
	for _, c := range conflictTarget {
		target[c] = true
	}

	var assignments []string
	for _, c := range destCols {
		if target[c] {
			continue
		}
		q := schema.QuoteIdent(c)
		assignments = append(assignments, q+" = EXCLUDED."+q)
	}
	return strings.Join(assignments, ", ")
}

// buildArgs flattens the batch into statement parameters, row-major, in
// mapping key order. Missing row keys become explicit NULLs.
func buildArgs(batch []value.Row, srcCols []string) []any {
	args := make([]any, 0, len(batch)*len(srcCols))
	for _, row := range batch {
		for _, col := range srcCols {
			args = append(args, row.Get(col).Arg())
		}
	}
	return args
}
