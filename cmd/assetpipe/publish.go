/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainguard-dev/asset-pipe/pkg/assetpipe"
)

func newPublishCmd(root *rootOptions) *cobra.Command {
	var js, css []string
	cmd := &cobra.Command{
		Use:     "publish",
		Short:   "Publish JavaScript and CSS entrypoints and print their feed hashes",
		Example: `  assetpipe publish --tag podlet --js src/main.js --css src/main.css`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := root.client(cmd)
			if err != nil {
				return err
			}
			op, err := c.Publish(ctx, assetpipe.Entrypoints{assetpipe.JS: js, assetpipe.CSS: css})
			if err != nil {
				return err
			}
			res, err := op.Wait(ctx)
			for _, t := range assetpipe.AssetTypes() {
				if h, ok := res[t]; ok {
					printLine(cmd.OutOrStdout(), fmt.Sprintf("%s\t%s", t, h))
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&js, "js", nil, "JavaScript entrypoint (repeatable)")
	cmd.Flags().StringSliceVar(&css, "css", nil, "CSS entrypoint (repeatable)")
	return cmd
}

func newBundleCmd(root *rootOptions) *cobra.Command {
	var js, css []string
	cmd := &cobra.Command{
		Use:     "bundle",
		Short:   "Submit bundle instructions: the ordered tags to combine per type",
		Example: `  assetpipe bundle --tag layout --js header,podlet,footer --css header,footer`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := root.client(cmd)
			if err != nil {
				return err
			}
			op, err := c.BundleInstructions(ctx, assetpipe.Instructions{assetpipe.JS: js, assetpipe.CSS: css})
			if err != nil {
				return err
			}
			res, err := op.Wait(ctx)
			for _, t := range assetpipe.AssetTypes() {
				if s, ok := res[t]; ok {
					printLine(cmd.OutOrStdout(), fmt.Sprintf("%s\t%s", t, s))
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&js, "js", nil, "tags to bundle into the JavaScript bundle, in order")
	cmd.Flags().StringSliceVar(&css, "css", nil, "tags to bundle into the CSS bundle, in order")
	return cmd
}
