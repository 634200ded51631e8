package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/art-vbst/art/internal/config"
	"github.com/art-vbst/art/internal/logging"
	"github.com/art-vbst/art/internal/migrate"
	"github.com/art-vbst/art/internal/util"
	"github.com/art-vbst/art/internal/version"
)

func init() {
	// The verbosity flag owns the -v shorthand; keep --version long-form
	// only so the two don't collide at flag registration.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    version.Name,
		Usage:   version.Description,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
			&cli.StringFlag{
				Name:    "verbosity",
				Aliases: []string{"v"},
				Value:   "info",
				Usage:   "Log level: debug, info, warn, error",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			recordsCommand(),
			assetsCommand(),
		},
	}
}

func setupLogging(c *cli.Context) error {
	level, err := logging.ParseLevel(c.String("verbosity"))
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	logging.SetFormat(c.String("log-format"))
	return nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM. The
// migrations stop at the next batch or item boundary.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nInterrupted. Finishing in-flight work...")
		cancel()
	}()

	return ctx, cancel
}

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:   "records",
		Usage:  "Migrate table rows between the legacy and platform databases",
		Action: runRecords,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source-dsn",
				EnvVars: []string{"SOURCE_DB_DSN"},
				Usage:   "Source Postgres DSN",
			},
			&cli.StringFlag{
				Name:    "dest-dsn",
				EnvVars: []string{"DEST_DB_DSN"},
				Usage:   "Destination Postgres DSN",
			},
			&cli.StringFlag{
				Name:    "source-table",
				EnvVars: []string{"SOURCE_TABLE"},
				Usage:   "Source table, optionally schema-qualified",
			},
			&cli.StringFlag{
				Name:    "dest-table",
				EnvVars: []string{"DEST_TABLE"},
				Usage:   "Destination table (defaults to the source table)",
			},
			&cli.StringFlag{
				Name:    "id-column",
				EnvVars: []string{"ID_COLUMN"},
				Usage:   "Identity column used as the conflict target",
			},
			&cli.StringFlag{
				Name:    "exclude-columns",
				EnvVars: []string{"EXCLUDE_COLUMNS"},
				Usage:   "Comma-separated source columns to leave behind",
			},
			&cli.StringFlag{
				Name:    "column-map",
				EnvVars: []string{"COLUMN_MAP"},
				Usage:   "Explicit source-to-dest column mapping, inline JSON or a file path",
			},
			&cli.IntFlag{
				Name:    "batch-size",
				EnvVars: []string{"BATCH_SIZE"},
				Usage:   "Rows per fetch and per destination transaction",
			},
			&cli.StringFlag{
				Name:    "where",
				EnvVars: []string{"WHERE"},
				Usage:   "Raw SQL predicate applied to the source read",
			},
			&cli.StringFlag{
				Name:    "on-conflict",
				EnvVars: []string{"ON_CONFLICT"},
				Usage:   "Conflict policy: skip, update, or error",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Read and report without writing to the destination",
			},
		},
	}
}

func runRecords(c *cli.Context) error {
	cfg, err := recordsConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return migrate.Records(ctx, cfg)
}

func recordsConfig(c *cli.Context) (*config.Records, error) {
	cfg := &config.Records{}
	if path := c.String("config"); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		*cfg = f.Records
	}

	// Flags (and their env fallbacks) override the file.
	if c.IsSet("source-dsn") {
		cfg.SourceDSN = c.String("source-dsn")
	}
	if c.IsSet("dest-dsn") {
		cfg.DestDSN = c.String("dest-dsn")
	}
	if c.IsSet("source-table") {
		cfg.SourceTable = c.String("source-table")
	}
	if c.IsSet("dest-table") {
		cfg.DestTable = c.String("dest-table")
	}
	if c.IsSet("id-column") {
		cfg.IDColumn = c.String("id-column")
	}
	if c.IsSet("exclude-columns") {
		cfg.ExcludeColumns = util.SplitCSV(c.String("exclude-columns"))
	}
	if c.IsSet("column-map") {
		cfg.ColumnMap = c.String("column-map")
	}
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("where") {
		cfg.Where = c.String("where")
	}
	if c.IsSet("on-conflict") {
		cfg.OnConflict = c.String("on-conflict")
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func assetsCommand() *cli.Command {
	return &cli.Command{
		Name:   "assets",
		Usage:  "Download legacy image files and re-upload them through the platform API",
		Action: runAssets,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source-dsn",
				EnvVars: []string{"SOURCE_DB_DSN"},
				Usage:   "Source Postgres DSN holding the image rows",
			},
			&cli.StringFlag{
				Name:    "source-table",
				EnvVars: []string{"SOURCE_TABLE"},
				Usage:   "Image table, optionally schema-qualified",
			},
			&cli.StringFlag{
				Name:    "where",
				EnvVars: []string{"WHERE"},
				Usage:   "Raw SQL predicate applied to the image read",
			},
			&cli.IntFlag{
				Name:    "limit",
				EnvVars: []string{"LIMIT"},
				Usage:   "Stop after this many image rows (0 = all)",
			},
			&cli.StringFlag{
				Name:    "fetch-prefix",
				EnvVars: []string{"FETCH_PREFIX"},
				Usage:   "Base URL of the legacy media host",
			},
			&cli.StringFlag{
				Name:    "save-dir",
				EnvVars: []string{"SAVE_DIR"},
				Usage:   "Local directory for downloaded files",
			},
			&cli.StringFlag{
				Name:    "upload-prefix",
				EnvVars: []string{"UPLOAD_PREFIX"},
				Usage:   "Platform API base URL (appends artworks/<id>/images)",
			},
			&cli.StringFlag{
				Name:    "upload-url",
				EnvVars: []string{"UPLOAD_URL"},
				Usage:   "Full upload URL template, may contain {artwork_id}",
			},
			&cli.StringFlag{
				Name:    "cookie",
				EnvVars: []string{"COOKIE"},
				Usage:   "Cookie header value for authenticated uploads",
			},
			&cli.StringFlag{
				Name:    "file-field",
				EnvVars: []string{"UPLOAD_FIELD_FILE"},
				Usage:   "Multipart field name for the file part",
			},
			&cli.StringFlag{
				Name:    "is-main-field",
				EnvVars: []string{"UPLOAD_FIELD_IS_MAIN"},
				Usage:   "Multipart field name for the main-image flag",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the equivalent curl commands without transferring",
			},
			&cli.BoolFlag{
				Name:  "skip-download",
				Usage: "Reuse files already present in the save directory",
			},
			&cli.BoolFlag{
				Name:  "cleanup",
				Usage: "Delete each local file after a successful upload",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent asset transfers",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request HTTP timeout",
			},
		},
	}
}

func runAssets(c *cli.Context) error {
	cfg, err := assetsConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return migrate.Assets(ctx, cfg)
}

func assetsConfig(c *cli.Context) (*config.Assets, error) {
	cfg := &config.Assets{}
	if path := c.String("config"); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		*cfg = f.Assets
	}

	if c.IsSet("source-dsn") {
		cfg.SourceDSN = c.String("source-dsn")
	}
	if c.IsSet("source-table") {
		cfg.SourceTable = c.String("source-table")
	}
	if c.IsSet("where") {
		cfg.Where = c.String("where")
	}
	if c.IsSet("limit") {
		cfg.Limit = c.Int("limit")
	}
	if c.IsSet("fetch-prefix") {
		cfg.FetchPrefix = c.String("fetch-prefix")
	}
	if c.IsSet("save-dir") {
		cfg.SaveDir = c.String("save-dir")
	}
	if c.IsSet("upload-prefix") {
		cfg.UploadPrefix = c.String("upload-prefix")
	}
	if c.IsSet("upload-url") {
		cfg.UploadURL = c.String("upload-url")
	}
	if c.IsSet("cookie") {
		cfg.Cookie = c.String("cookie")
	}
	if c.IsSet("file-field") {
		cfg.FileField = c.String("file-field")
	}
	if c.IsSet("is-main-field") {
		cfg.IsMainField = c.String("is-main-field")
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}
	if c.IsSet("skip-download") {
		cfg.SkipDownload = c.Bool("skip-download")
	}
	if c.IsSet("cleanup") {
		cfg.Cleanup = c.Bool("cleanup")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
