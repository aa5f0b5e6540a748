/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chainguard-dev/asset-pipe/pkg/assetpipe"
	"github.com/chainguard-dev/asset-pipe/pkg/feed"
)

func newWriteCmd() *cobra.Command {
	var (
		sources []string
		dest    string
		typ     string
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a feed for the given sources to a file or bucket",
		Example: `  assetpipe write -s src/main.js -d build/main.json
  assetpipe write -s a.css -s b.css -d gs://feeds/styles.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			t, err := writeType(typ, sources)
			if err != nil {
				return err
			}
			d, err := feed.ParseDestination(dest)
			if err != nil {
				return err
			}
			w, err := feed.NewFileWriter(sources, feed.WriterOptions{Type: string(t)})
			if err != nil {
				return err
			}
			if err := feed.Write(ctx, d, w.Bundle(ctx)); err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), d.String())
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "entrypoint file (repeatable)")
	cmd.Flags().StringVarP(&dest, "destination", "d", "", "file path or bucket URL to write the feed to")
	cmd.Flags().StringVar(&typ, "type", "", "asset type, js or css (default: from the first source's extension)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func writeType(typ string, sources []string) (assetpipe.AssetType, error) {
	if typ == "" {
		if len(sources) == 0 {
			return "", fmt.Errorf("at least one source is required")
		}
		typ = strings.TrimPrefix(filepath.Ext(sources[0]), ".")
	}
	return assetpipe.ParseAssetType(typ)
}
