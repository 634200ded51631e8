// Package stream reads source rows through a server-held cursor and yields
// them in bounded batches. Memory stays O(batch size) no matter how many
// rows the source query matches; the consumer regains control between
// batches so it can commit destination work before more rows are fetched.
package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/art-vbst/art/internal/schema"
	"github.com/art-vbst/art/internal/value"
)

// Cursor is an open row-source handle. Fetch returns up to n rows; an empty
// result means the source is drained.
type Cursor interface {
	Fetch(ctx context.Context, n int) ([]value.Row, error)
	Close(ctx context.Context) error
}

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const cursorName = "artmigrate_src"

// BuildSelect builds the source read query. The WHERE clause is passed
// through verbatim: this is an operator-run tool and the predicate is
// trusted input.
func BuildSelect(table schema.TableName, cols []string, where string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = schema.QuoteIdent(c)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), table.Quoted())
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

// pgxCursor holds a Postgres server-side cursor open inside a transaction.
// The cursor keeps its position on the server between Fetch calls.
type pgxCursor struct {
	tx   pgx.Tx
	cols []string
}

// Open declares a server-side cursor over the source query. The caller must
// Close the cursor to release the transaction. No other cursor may run
// concurrently on the same connection.
func Open(ctx context.Context, db TxBeginner, table schema.TableName, cols []string, where string) (Cursor, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning source transaction: %w", err)
	}

	sel := BuildSelect(table, cols, where)
	if _, err := tx.Exec(ctx, fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR %s", cursorName, sel)); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("declaring cursor over %s: %w", table, err)
	}

	return &pgxCursor{tx: tx, cols: cols}, nil
}

// Fetch advances the cursor by up to n rows.
func (c *pgxCursor) Fetch(ctx context.Context, n int) ([]value.Row, error) {
	rows, err := c.tx.Query(ctx, fmt.Sprintf("FETCH FORWARD %d FROM %s", n, cursorName))
	if err != nil {
		return nil, fmt.Errorf("fetching batch: %w", err)
	}
	defer rows.Close()

	var out []value.Row
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row, err := value.FromValues(c.cols, raw)
		if err != nil {
			return nil, fmt.Errorf("converting row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch: %w", err)
	}
	return out, nil
}

// Close closes the cursor and ends its transaction.
func (c *pgxCursor) Close(ctx context.Context) error {
	_, _ = c.tx.Exec(ctx, fmt.Sprintf("CLOSE %s", cursorName))
	if err := c.tx.Commit(ctx); err != nil {
		_ = c.tx.Rollback(ctx)
		return fmt.Errorf("closing source transaction: %w", err)
	}
	return nil
}

// Streamer pulls fixed-size batches from a cursor. The last batch of a
// stream may be smaller; every earlier batch is exactly BatchSize rows.
type Streamer struct {
	cur       Cursor
	batchSize int
	done      bool
}

// NewStreamer wraps a cursor with a batch size.
func NewStreamer(cur Cursor, batchSize int) *Streamer {
	return &Streamer{cur: cur, batchSize: batchSize}
}

// Next returns the next batch, or an empty batch once the source is
// drained. It refills partial fetches so batches stay full until the end
// of the stream.
func (s *Streamer) Next(ctx context.Context) ([]value.Row, error) {
	if s.done {
		return nil, nil
	}

	var batch []value.Row
	for len(batch) < s.batchSize {
		rows, err := s.cur.Fetch(ctx, s.batchSize-len(batch))
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			s.done = true
			break
		}
		batch = append(batch, rows...)
	}
	return batch, nil
}
