// Package config holds the runtime configuration for the record and asset
// migrations. Values come from CLI flags (with environment fallbacks) and
// optionally from a YAML file; flags win over the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Records configures the schema-driven record migration.
type Records struct {
	SourceDSN      string   `yaml:"source_dsn"`
	DestDSN        string   `yaml:"dest_dsn"`
	SourceTable    string   `yaml:"source_table"`
	DestTable      string   `yaml:"dest_table"`
	IDColumn       string   `yaml:"id_column"`
	ExcludeColumns []string `yaml:"exclude_columns"`
	ColumnMap      string   `yaml:"column_map"`
	BatchSize      int      `yaml:"batch_size"`
	Where          string   `yaml:"where"`
	OnConflict     string   `yaml:"on_conflict"`
	DryRun         bool     `yaml:"dry_run"`
}

// Normalize fills in defaults for optional settings.
func (c *Records) Normalize() {
	if c.SourceTable == "" {
		c.SourceTable = "artwork_artwork"
	}
	if c.DestTable == "" {
		c.DestTable = c.SourceTable
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.OnConflict == "" {
		c.OnConflict = "skip"
	}
}

// Validate reports missing mandatory configuration.
func (c *Records) Validate() error {
	if c.SourceDSN == "" {
		return fmt.Errorf("missing source DSN (--source-dsn or SOURCE_DB_DSN)")
	}
	if c.DestDSN == "" {
		return fmt.Errorf("missing destination DSN (--dest-dsn or DEST_DB_DSN)")
	}
	return nil
}

// Assets configures the asset transfer pipeline.
type Assets struct {
	SourceDSN    string        `yaml:"source_dsn"`
	SourceTable  string        `yaml:"source_table"`
	Where        string        `yaml:"where"`
	Limit        int           `yaml:"limit"`
	FetchPrefix  string        `yaml:"fetch_prefix"`
	SaveDir      string        `yaml:"save_dir"`
	UploadPrefix string        `yaml:"upload_prefix"`
	UploadURL    string        `yaml:"upload_url"`
	Cookie       string        `yaml:"cookie"`
	FileField    string        `yaml:"file_field"`
	IsMainField  string        `yaml:"is_main_field"`
	DryRun       bool          `yaml:"dry_run"`
	SkipDownload bool          `yaml:"skip_download"`
	Cleanup      bool          `yaml:"cleanup"`
	Workers      int           `yaml:"workers"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Normalize fills in defaults for optional settings.
func (c *Assets) Normalize() {
	if c.SourceTable == "" {
		c.SourceTable = "artwork_image"
	}
	if c.SaveDir == "" {
		c.SaveDir = "images"
	}
	if c.FileField == "" {
		c.FileField = "image"
	}
	if c.IsMainField == "" {
		c.IsMainField = "is_main_image"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Validate reports missing mandatory configuration.
func (c *Assets) Validate() error {
	if c.SourceDSN == "" {
		return fmt.Errorf("missing source DSN (--source-dsn or SOURCE_DB_DSN)")
	}
	if c.FetchPrefix == "" {
		return fmt.Errorf("missing fetch prefix (--fetch-prefix or FETCH_PREFIX)")
	}
	if c.UploadPrefix == "" && c.UploadURL == "" {
		return fmt.Errorf("provide --upload-prefix, or --upload-url (optionally containing {artwork_id})")
	}
	if c.Cookie == "" {
		return fmt.Errorf("missing auth cookie (--cookie or COOKIE)")
	}
	return nil
}

// File is the optional YAML configuration file, one section per command.
type File struct {
	Records Records `yaml:"records"`
	Assets  Assets  `yaml:"assets"`
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &f, nil
}
