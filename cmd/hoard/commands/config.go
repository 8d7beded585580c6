// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hoardkeep/hoard/lib/catalog"
	"github.com/hoardkeep/hoard/lib/ingest"
	"github.com/hoardkeep/hoard/lib/metadata"
	"github.com/hoardkeep/hoard/lib/probe"
	"github.com/hoardkeep/hoard/lib/store"

	"log/slog"
)

// Config is the hoard configuration file. Every field has a working
// default; the file and all fields are optional. Flags override the
// file.
type Config struct {
	// StoreRoot is the content-addressed store directory.
	StoreRoot string `yaml:"store_root"`

	// CatalogPath is the catalog database file. Empty disables the
	// catalog (placement still works; "created" falls back to the
	// placement decision).
	CatalogPath string `yaml:"catalog_path"`

	// FFprobePath overrides the ffprobe binary; empty resolves via
	// PATH.
	FFprobePath string `yaml:"ffprobe_path"`

	// MediaInfoPath overrides the mediainfo binary; empty resolves
	// via PATH.
	MediaInfoPath string `yaml:"mediainfo_path"`

	// ProbeTimeoutSeconds bounds one external tool invocation.
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`

	// MaxFileSize caps ingestible file size in bytes; zero selects
	// the default cap, negative disables it.
	MaxFileSize int64 `yaml:"max_file_size"`

	// AllowedExtensions restricts ingestion to the listed extensions
	// (lowercase, leading dot). Empty allows all.
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// defaultConfig places everything under ~/.hoard.
func defaultConfig() Config {
	base := ".hoard"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".hoard")
	}
	return Config{
		StoreRoot:   filepath.Join(base, "store"),
		CatalogPath: filepath.Join(base, "catalog.db"),
	}
}

// loadConfig reads the YAML config at path over the defaults. An
// empty path falls back to ~/.hoard/config.yaml when that file
// exists, or plain defaults when it does not; an explicit path that
// cannot be read is an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".hoard", "config.yaml")
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) probeTimeout() time.Duration {
	if c.ProbeTimeoutSeconds <= 0 {
		return probe.DefaultTimeout
	}
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c Config) gate() ingest.Gate {
	return ingest.Gate{MaxSize: c.MaxFileSize, Extensions: c.AllowedExtensions}
}

// buildEngine assembles the full ingestion stack from the config.
// The returned cleanup closes the catalog.
func buildEngine(cfg Config, logger *slog.Logger) (*ingest.Engine, func(), error) {
	st, err := store.NewStore(cfg.StoreRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	var cat *catalog.Catalog
	cleanup := func() {}
	if cfg.CatalogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.CatalogPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		cat, err = catalog.Open(cfg.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { cat.Close() }
	}

	prober := probe.NewProber(cfg.FFprobePath, cfg.probeTimeout(), logger)
	extras := probe.NewMediaInfo(cfg.MediaInfoPath, cfg.probeTimeout(), logger)
	classifier := metadata.NewClassifier(prober, extras, logger)

	return ingest.NewEngine(st, classifier, cat, cfg.gate(), logger), cleanup, nil
}
