// Package assets moves image files from the legacy media host to the new
// platform's upload API. Rows referencing assets are resolved lazily from
// the source database and each asset is transferred independently, so one
// failure never stops the run.
package assets

import (
	"context"
	"fmt"

	"github.com/art-vbst/art/internal/schema"
	"github.com/art-vbst/art/internal/value"
)

// Image describes one asset row: its identity, the artwork that owns it,
// its relative path on the media host, and whether it is the artwork's
// main image.
type Image struct {
	ID        int64
	ArtworkID string
	Path      string
	IsMain    bool
}

// Resolver reads asset rows from the source table, ordered by id.
type Resolver struct {
	db    schema.Querier
	table schema.TableName
	where string
	limit int
}

// NewResolver creates a Resolver. limit of 0 means unbounded. The WHERE
// clause is trusted operator input, passed through verbatim.
func NewResolver(db schema.Querier, table schema.TableName, where string, limit int) *Resolver {
	return &Resolver{db: db, table: table, where: where, limit: limit}
}

// BuildQuery returns the asset row query.
func BuildQuery(table schema.TableName, where string, limit int) string {
	q := fmt.Sprintf("SELECT id, artwork_id, image, is_main_image FROM %s", table.Quoted())
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY id"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}

// Each iterates asset rows one at a time, calling fn for each. Iteration
// stops on the first error fn returns.
func (r *Resolver) Each(ctx context.Context, fn func(Image) error) error {
	rows, err := r.db.Query(ctx, BuildQuery(r.table, r.where, r.limit))
	if err != nil {
		return fmt.Errorf("querying asset rows from %s: %w", r.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        int64
			artworkID any
			path      string
			isMain    bool
		)
		if err := rows.Scan(&id, &artworkID, &path, &isMain); err != nil {
			return fmt.Errorf("scanning asset row: %w", err)
		}

		// artwork_id may be a uuid or plain text depending on the legacy
		// schema; render it the way it prints.
		owner, err := value.FromAny(artworkID)
		if err != nil {
			return fmt.Errorf("asset row id=%d: %w", id, err)
		}

		img := Image{ID: id, ArtworkID: owner.String(), Path: path, IsMain: isMain}
		if err := fn(img); err != nil {
			return err
		}
	}
	return rows.Err()
}
