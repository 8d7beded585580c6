// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hoardkeep/hoard/cmd/hoard/cli"
	"github.com/hoardkeep/hoard/lib/catalog"
	"github.com/hoardkeep/hoard/lib/probe"
)

// checkStatus is the outcome of one environment check.
type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
)

type checkResult struct {
	Name    string
	Status  checkStatus
	Message string
}

func doctorCommand(logger *slog.Logger) *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "doctor",
		Summary: "Diagnose the hoard environment",
		Description: `Check that the store, catalog, and external tools are usable.

Warnings (a missing optional tool) do not affect the exit code;
failures exit non-zero.`,
		Usage: "hoard doctor [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file (default ~/.hoard/config.yaml)")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			results := runChecks(ctx, cfg, logger)
			return printChecklist(results)
		},
	}
}

func runChecks(ctx context.Context, cfg Config, logger *slog.Logger) []checkResult {
	var results []checkResult

	results = append(results, checkStoreRoot(cfg.StoreRoot))
	results = append(results, checkCatalog(cfg.CatalogPath))

	prober := probe.NewProber(cfg.FFprobePath, cfg.probeTimeout(), logger)
	if version, ok := prober.Version(ctx); ok {
		results = append(results, checkResult{"ffprobe", statusPass,
			fmt.Sprintf("version %s", version)})
	} else {
		results = append(results, checkResult{"ffprobe", statusFail,
			"not available; video and audio files will classify as corrupt (install ffmpeg)"})
	}

	extras := probe.NewMediaInfo(cfg.MediaInfoPath, cfg.probeTimeout(), logger)
	if extras.Available(ctx) {
		results = append(results, checkResult{"mediainfo", statusPass, "available"})
	} else {
		results = append(results, checkResult{"mediainfo", statusWarn,
			"not available; extended tag extraction disabled (optional)"})
	}

	return results
}

// checkStoreRoot verifies the store directory can be created and
// written, and that hardlinks work inside it.
func checkStoreRoot(root string) checkResult {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return checkResult{"store root", statusFail, err.Error()}
	}
	probeFile, err := os.CreateTemp(root, ".doctor-*")
	if err != nil {
		return checkResult{"store root", statusFail, fmt.Sprintf("not writable: %v", err)}
	}
	probePath := probeFile.Name()
	probeFile.Close()
	defer os.Remove(probePath)

	linkPath := probePath + ".link"
	if err := os.Link(probePath, linkPath); err != nil {
		return checkResult{"store root", statusWarn,
			fmt.Sprintf("writable, but hardlinks fail (%v); every ingest will copy", err)}
	}
	os.Remove(linkPath)
	return checkResult{"store root", statusPass, root}
}

func checkCatalog(path string) checkResult {
	if path == "" {
		return checkResult{"catalog", statusWarn, "disabled (no catalog_path configured)"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return checkResult{"catalog", statusFail, err.Error()}
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return checkResult{"catalog", statusFail, err.Error()}
	}
	count, err := cat.Count()
	cat.Close()
	if err != nil {
		return checkResult{"catalog", statusFail, err.Error()}
	}
	return checkResult{"catalog", statusPass, fmt.Sprintf("%s (%d records)", path, count)}
}

// printChecklist renders results and converts failures into a
// non-zero exit without a redundant error line.
func printChecklist(results []checkResult) error {
	anyFailed := false
	for _, result := range results {
		fmt.Fprintf(os.Stdout, "[%-4s]  %-12s  %s\n",
			strings.ToUpper(string(result.Status)), result.Name, result.Message)
		if result.Status == statusFail {
			anyFailed = true
		}
	}
	fmt.Fprintln(os.Stdout)
	if anyFailed {
		fmt.Fprintln(os.Stdout, "Some checks failed.")
		return &cli.ExitError{Code: 1}
	}
	fmt.Fprintln(os.Stdout, "All checks passed.")
	return nil
}
