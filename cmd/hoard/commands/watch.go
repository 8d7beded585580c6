// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/hoardkeep/hoard/cmd/hoard/cli"
	"github.com/hoardkeep/hoard/lib/ingest"
)

func watchCommand(logger *slog.Logger) *cli.Command {
	var (
		configPath     string
		deleteAfter    bool
		importExisting bool
	)
	return &cli.Command{
		Name:    "watch",
		Summary: "Watch directories and ingest files as they appear",
		Description: `Watch one or more directories recursively and ingest every file
that appears. Runs until interrupted. Per-file failures are logged
and never stop the watch.`,
		Usage: "hoard watch [flags] <directory>...",
		Examples: []cli.Example{
			{Description: "Drain a drop directory continuously", Command: "hoard watch --delete-after /srv/dropbox"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file (default ~/.hoard/config.yaml)")
			flags.BoolVar(&deleteAfter, "delete-after", false, "remove original files after successful ingestion")
			flags.BoolVar(&importExisting, "import-existing", true, "ingest files already present before watching")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one directory is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			engine, cleanup, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("watching for files", "directories", args)
			err = engine.Watch(ctx, args, ingest.WatchOptions{
				Options:        ingest.Options{RemoveOriginal: deleteAfter},
				ImportExisting: importExisting,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
