// Copyright 2026 The Hoard Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the hoard CLI command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hoardkeep/hoard/cmd/hoard/cli"
	"github.com/hoardkeep/hoard/lib/version"
)

// Root builds the complete hoard command tree.
func Root(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name: "hoard",
		Description: `Hoard: content-addressed media ingestion.

Files are stored once, keyed by cryptographic digest, deduplicated
via hardlinks where possible, with media metadata and a perceptual
hash extracted on the way in.`,
		Subcommands: []*cli.Command{
			addCommand(logger),
			watchCommand(logger),
			doctorCommand(logger),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string) error {
					fmt.Printf("hoard %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{Description: "Check the environment", Command: "hoard doctor"},
			{Description: "Ingest a directory tree", Command: "hoard add ~/Pictures"},
			{Description: "Watch a drop directory", Command: "hoard watch /srv/dropbox"},
		},
	}
}
