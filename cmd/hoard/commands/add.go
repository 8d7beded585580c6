// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hoardkeep/hoard/cmd/hoard/cli"
	"github.com/hoardkeep/hoard/lib/ingest"
	"github.com/hoardkeep/hoard/lib/store"
)

func addCommand(logger *slog.Logger) *cli.Command {
	var (
		configPath   string
		storeRoot    string
		catalogPath  string
		hardlinkOnly bool
		deleteAfter  bool
	)
	return &cli.Command{
		Name:    "add",
		Summary: "Ingest files and directories into the store",
		Description: `Ingest files into the content-addressed store.

Directories are walked recursively in sorted order. One file's
failure never aborts the batch; a per-file success/failure summary
is printed at the end.`,
		Usage: "hoard add [flags] <path>...",
		Examples: []cli.Example{
			{Description: "Ingest a download directory, removing originals", Command: "hoard add --delete-after ~/Downloads/media"},
			{Description: "Refuse cross-filesystem copies", Command: "hoard add --hardlink-only /mnt/same-volume/pics"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("add", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file (default ~/.hoard/config.yaml)")
			flags.StringVar(&storeRoot, "store", "", "store root directory (overrides config)")
			flags.StringVar(&catalogPath, "catalog", "", "catalog database path (overrides config)")
			flags.BoolVar(&hardlinkOnly, "hardlink-only", false, "fail instead of copying across filesystems")
			flags.BoolVar(&deleteAfter, "delete-after", false, "remove original files after successful ingestion")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one path is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if storeRoot != "" {
				cfg.StoreRoot = storeRoot
			}
			if catalogPath != "" {
				cfg.CatalogPath = catalogPath
			}

			engine, cleanup, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			options := ingest.Options{
				HardlinkOnly:   hardlinkOnly,
				RemoveOriginal: deleteAfter,
			}
			interactive := term.IsTerminal(int(os.Stdout.Fd()))
			if interactive {
				options.Progress = hashProgress
			}

			var imported, duplicates int
			onFile := func(path string, result ingest.Result, err error) {
				if err != nil {
					return
				}
				if result.Created {
					imported++
				} else {
					duplicates++
				}
				if interactive {
					fmt.Printf("\r\033[K%s  %s  %s\n",
						result.Digests.Strong.String()[:12], decisionLabel(result.Decision), path)
				}
			}

			failures := engine.IngestPaths(ctx, args, options, onFile)

			var skipped, failed int
			for path, err := range failures {
				if errors.Is(err, ingest.ErrRejected) {
					skipped++
					continue
				}
				failed++
				fmt.Fprintf(os.Stderr, "failed: %s: %v\n", path, err)
			}

			fmt.Printf("%d imported, %d duplicate, %d skipped, %d failed\n",
				imported, duplicates, skipped, failed)
			if failed > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// hashProgress renders an in-place percentage while hashing large
// files. The line is overwritten by the per-file result print.
func hashProgress(processed, total int64) error {
	if total <= 0 {
		return nil
	}
	fmt.Printf("\r\033[Khashing: %3d%%", processed*100/total)
	return nil
}

func decisionLabel(decision store.Decision) string {
	// Fixed width keeps the per-file output columnar.
	return fmt.Sprintf("%-19s", decision.String())
}
