package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/art-vbst/art/internal/config"
)

// testApp wires the real global and command flags around a capturing action
// so the flag-to-config resolution can be exercised without touching a
// database or the network.
func testApp(t *testing.T, capture func(c *cli.Context) error) *cli.App {
	t.Helper()

	app := newApp()
	app.Before = nil
	for _, cmd := range app.Commands {
		cmd.Action = capture
	}
	return app
}

func TestRecordsConfigFromFlags(t *testing.T) {
	var got *config.Records
	app := testApp(t, func(c *cli.Context) error {
		cfg, err := recordsConfig(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	})

	err := app.Run([]string{"artmigrate", "records",
		"--source-dsn", "postgres://src",
		"--dest-dsn", "postgres://dest",
		"--source-table", "legacy.artwork_artwork",
		"--exclude-columns", "order_id, internal_notes",
		"--batch-size", "250",
		"--on-conflict", "update",
		"--dry-run",
	})
	if err != nil {
		t.Fatalf("app.Run() error: %v", err)
	}

	if got.SourceDSN != "postgres://src" || got.DestDSN != "postgres://dest" {
		t.Errorf("DSNs = %q, %q", got.SourceDSN, got.DestDSN)
	}
	if got.SourceTable != "legacy.artwork_artwork" {
		t.Errorf("SourceTable = %q", got.SourceTable)
	}
	if got.DestTable != "legacy.artwork_artwork" {
		t.Errorf("DestTable = %q, want source table default", got.DestTable)
	}
	if len(got.ExcludeColumns) != 2 || got.ExcludeColumns[1] != "internal_notes" {
		t.Errorf("ExcludeColumns = %v", got.ExcludeColumns)
	}
	if got.BatchSize != 250 {
		t.Errorf("BatchSize = %d", got.BatchSize)
	}
	if got.OnConflict != "update" {
		t.Errorf("OnConflict = %q", got.OnConflict)
	}
	if !got.DryRun {
		t.Error("DryRun = false")
	}
}

func TestRecordsConfigEnvFallback(t *testing.T) {
	t.Setenv("SOURCE_DB_DSN", "postgres://env-src")
	t.Setenv("DEST_DB_DSN", "postgres://env-dest")
	t.Setenv("ON_CONFLICT", "error")

	var got *config.Records
	app := testApp(t, func(c *cli.Context) error {
		cfg, err := recordsConfig(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	})

	if err := app.Run([]string{"artmigrate", "records"}); err != nil {
		t.Fatalf("app.Run() error: %v", err)
	}

	if got.SourceDSN != "postgres://env-src" {
		t.Errorf("SourceDSN = %q", got.SourceDSN)
	}
	if got.DestDSN != "postgres://env-dest" {
		t.Errorf("DestDSN = %q", got.DestDSN)
	}
	if got.OnConflict != "error" {
		t.Errorf("OnConflict = %q", got.OnConflict)
	}
}

func TestRecordsConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
records:
  source_dsn: postgres://file-src
  dest_dsn: postgres://file-dest
  batch_size: 100
  on_conflict: skip
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var got *config.Records
	app := testApp(t, func(c *cli.Context) error {
		cfg, err := recordsConfig(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	})

	err := app.Run([]string{"artmigrate", "--config", path, "records",
		"--batch-size", "50"})
	if err != nil {
		t.Fatalf("app.Run() error: %v", err)
	}

	if got.SourceDSN != "postgres://file-src" {
		t.Errorf("SourceDSN = %q, want file value", got.SourceDSN)
	}
	if got.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want flag to override file", got.BatchSize)
	}
	if got.OnConflict != "skip" {
		t.Errorf("OnConflict = %q, want file value", got.OnConflict)
	}
}

func TestRecordsConfigMissingDSN(t *testing.T) {
	app := testApp(t, func(c *cli.Context) error {
		_, err := recordsConfig(c)
		return err
	})

	err := app.Run([]string{"artmigrate", "records", "--source-dsn", "postgres://src"})
	if err == nil {
		t.Fatal("expected error for missing destination DSN")
	}
	if !strings.Contains(err.Error(), "destination DSN") {
		t.Errorf("error = %v, want destination DSN mention", err)
	}
}

func TestAssetsConfigFromFlags(t *testing.T) {
	var got *config.Assets
	app := testApp(t, func(c *cli.Context) error {
		cfg, err := assetsConfig(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	})

	err := app.Run([]string{"artmigrate", "assets",
		"--source-dsn", "postgres://src",
		"--fetch-prefix", "https://old.example.com/media",
		"--upload-prefix", "https://api.example.com",
		"--cookie", "access_token=x",
		"--limit", "10",
		"--skip-download",
		"--workers", "4",
		"--timeout", "30s",
	})
	if err != nil {
		t.Fatalf("app.Run() error: %v", err)
	}

	if got.FetchPrefix != "https://old.example.com/media" {
		t.Errorf("FetchPrefix = %q", got.FetchPrefix)
	}
	if got.SourceTable != "artwork_image" {
		t.Errorf("SourceTable = %q, want default", got.SourceTable)
	}
	if got.FileField != "image" || got.IsMainField != "is_main_image" {
		t.Errorf("form fields = %q, %q, want defaults", got.FileField, got.IsMainField)
	}
	if got.Limit != 10 {
		t.Errorf("Limit = %d", got.Limit)
	}
	if !got.SkipDownload {
		t.Error("SkipDownload = false")
	}
	if got.Workers != 4 {
		t.Errorf("Workers = %d", got.Workers)
	}
	if got.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", got.Timeout)
	}
}

func TestAssetsConfigMissingCookie(t *testing.T) {
	app := testApp(t, func(c *cli.Context) error {
		_, err := assetsConfig(c)
		return err
	})

	err := app.Run([]string{"artmigrate", "assets",
		"--source-dsn", "postgres://src",
		"--fetch-prefix", "https://old.example.com/media",
		"--upload-prefix", "https://api.example.com",
	})
	if err == nil {
		t.Fatal("expected error for missing cookie")
	}
	if !strings.Contains(err.Error(), "cookie") {
		t.Errorf("error = %v, want cookie mention", err)
	}
}
