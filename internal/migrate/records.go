// Package migrate wires the per-concern packages into the two runnable
// migrations: record migration between Postgres databases and asset
// transfer from the legacy media host to the platform API.
package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/art-vbst/art/internal/config"
	"github.com/art-vbst/art/internal/logging"
	"github.com/art-vbst/art/internal/mapping"
	"github.com/art-vbst/art/internal/progress"
	"github.com/art-vbst/art/internal/schema"
	"github.com/art-vbst/art/internal/stream"
	"github.com/art-vbst/art/internal/upsert"
)

// Records runs the schema-driven record migration: introspect both tables,
// resolve the column mapping, then stream source rows in batches and upsert
// each batch into the destination under the configured conflict policy.
func Records(ctx context.Context, cfg *config.Records) error {
	srcName, err := schema.ParseTableName(cfg.SourceTable)
	if err != nil {
		return fmt.Errorf("source table: %w", err)
	}
	dstName, err := schema.ParseTableName(cfg.DestTable)
	if err != nil {
		return fmt.Errorf("destination table: %w", err)
	}
	policy, err := upsert.ParsePolicy(cfg.OnConflict)
	if err != nil {
		return err
	}
	explicit, err := mapping.LoadColumnMap(cfg.ColumnMap)
	if err != nil {
		return fmt.Errorf("column map: %w", err)
	}

	srcPool, err := pgxpool.New(ctx, cfg.SourceDSN)
	if err != nil {
		return fmt.Errorf("connecting to source: %w", err)
	}
	defer srcPool.Close()
	if err := srcPool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging source: %w", err)
	}

	dstPool, err := pgxpool.New(ctx, cfg.DestDSN)
	if err != nil {
		return fmt.Errorf("connecting to destination: %w", err)
	}
	defer dstPool.Close()
	if err := dstPool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging destination: %w", err)
	}

	srcTable, err := schema.NewIntrospector(srcPool).Load(ctx, srcName)
	if err != nil {
		return fmt.Errorf("introspecting source: %w", err)
	}
	dstTable, err := schema.NewIntrospector(dstPool).Load(ctx, dstName)
	if err != nil {
		return fmt.Errorf("introspecting destination: %w", err)
	}

	idColumn := cfg.IDColumn
	if idColumn == "" {
		idColumn = "id"
	}
	exclude := make(map[string]bool, len(cfg.ExcludeColumns))
	for _, c := range cfg.ExcludeColumns {
		exclude[c] = true
	}

	res := mapping.Build(srcTable.Columns, dstTable.Columns, explicit, exclude, idColumn)
	for _, w := range res.Warnings {
		logging.Warn("%s", w)
	}
	if res.Mapping.Len() == 0 {
		return fmt.Errorf("no columns map from %s to %s", srcName, dstName)
	}
	logging.Info("Mapping %d columns from %s to %s", res.Mapping.Len(), srcName, dstName)
	for _, p := range res.Mapping.Pairs() {
		logging.Debug("  %s -> %s", p.Source, p.Dest)
	}

	target := conflictTarget(cfg.IDColumn, dstTable.PrimaryKey)
	if policy != upsert.PolicyError {
		// The error policy emits no ON CONFLICT clause, so the target is
		// only validated when a clause will reference it.
		for _, c := range target {
			if !dstTable.HasColumn(c) {
				return fmt.Errorf("conflict target column %q not in destination table %s", c, dstName)
			}
		}
	}

	cur, err := stream.Open(ctx, srcPool, srcName, res.Mapping.SourceColumns(), cfg.Where)
	if err != nil {
		return err
	}
	defer cur.Close(context.WithoutCancel(ctx))

	streamer := stream.NewStreamer(cur, cfg.BatchSize)
	up := upsert.New(upsert.PoolDB{Pool: dstPool}, dstName, res.Mapping, policy, target)

	tracker := progress.New("rows")
	tracker.Start(-1)

	var read, inserted, conflicted int64
	for {
		batch, err := streamer.Next(ctx)
		if err != nil {
			return fmt.Errorf("reading source rows: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		ins, rest, err := up.Apply(ctx, batch, cfg.DryRun)
		if err != nil {
			return err
		}

		read += int64(len(batch))
		inserted += ins
		conflicted += rest
		tracker.Add(int64(len(batch)))
	}
	tracker.Finish()

	if cfg.DryRun {
		logging.Info("Dry run: would migrate %d rows from %s to %s", read, srcName, dstName)
		return nil
	}
	logging.Info("Migrated %d rows from %s to %s (%d inserted, %d skipped or updated)",
		read, srcName, dstName, inserted, conflicted)
	return nil
}

// conflictTarget resolves the ON CONFLICT column set: an explicit identity
// column wins, then the destination primary key, then "id".
func conflictTarget(idColumn string, primaryKey []string) []string {
	if idColumn != "" {
		return []string{idColumn}
	}
	if len(primaryKey) > 0 {
		return primaryKey
	}
	return []string{"id"}
}
