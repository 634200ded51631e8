package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/art-vbst/art/internal/assets"
	"github.com/art-vbst/art/internal/config"
	"github.com/art-vbst/art/internal/logging"
	"github.com/art-vbst/art/internal/progress"
	"github.com/art-vbst/art/internal/schema"
)

// Assets runs the asset transfer pipeline: resolve image rows from the
// source database, then download and re-upload each one through a bounded
// worker pool. Individual asset failures are recorded and logged; they
// never abort the run.
func Assets(ctx context.Context, cfg *config.Assets) error {
	table, err := schema.ParseTableName(cfg.SourceTable)
	if err != nil {
		return fmt.Errorf("source table: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.SourceDSN)
	if err != nil {
		return fmt.Errorf("connecting to source: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging source: %w", err)
	}

	exec := assets.NewExecutor(assets.NewHTTPTransport(cfg.Timeout), assets.Options{
		FetchPrefix:  cfg.FetchPrefix,
		SaveDir:      cfg.SaveDir,
		UploadPrefix: cfg.UploadPrefix,
		UploadURL:    cfg.UploadURL,
		Cookie:       cfg.Cookie,
		FileField:    cfg.FileField,
		IsMainField:  cfg.IsMainField,
		DryRun:       cfg.DryRun,
		SkipDownload: cfg.SkipDownload,
		Cleanup:      cfg.Cleanup,
	})
	resolver := assets.NewResolver(pool, table, cfg.Where, cfg.Limit)

	tracker := progress.New("images")
	tracker.Start(-1)

	outcome := &assets.Outcome{}
	var g errgroup.Group
	g.SetLimit(cfg.Workers)

	resolveErr := resolver.Each(ctx, func(img assets.Image) error {
		g.Go(func() error {
			if err := exec.Process(ctx, img, outcome); err != nil {
				logging.Error("image %d (%s): %v", img.ID, img.Path, err)
			}
			tracker.Add(1)
			return nil
		})
		// Stop enqueuing work once the run is canceled; in-flight items
		// drain through the pool below.
		return ctx.Err()
	})
	_ = g.Wait()
	tracker.Finish()

	if resolveErr != nil {
		return fmt.Errorf("reading image rows: %w", resolveErr)
	}

	if cfg.DryRun {
		logging.Info("Dry run: %s", outcome)
	} else {
		logging.Info("Asset transfer complete: %s", outcome)
	}
	if n := outcome.Failed.Load(); n > 0 {
		logging.Warn("%d images failed; rerun with --skip-download to retry uploads without refetching", n)
	}
	return nil
}
