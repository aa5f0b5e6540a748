/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/chainguard-dev/asset-pipe/pkg/assetpipe"
)

func newSyncCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Print the public feed and bundle URLs advertised by the build server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.client(cmd)
			if err != nil {
				return err
			}
			res, err := c.Sync(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newUploadCmd(root *rootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload a feed built from FILEs to /feed/{type}",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := writeType(typ, args)
			if err != nil {
				return err
			}
			c, err := root.client(cmd)
			if err != nil {
				return err
			}
			resp, err := c.UploadFeed(cmd.Context(), t, args)
			if err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), string(resp.Raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "asset type, js or css (default: from the first file's extension)")
	return cmd
}

func newRemoteBundleCmd(root *rootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "remote-bundle FEED...",
		Short: "Ask the build server to bundle previously uploaded feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := assetpipe.ParseAssetType(typ)
			if err != nil {
				return err
			}
			c, err := root.client(cmd)
			if err != nil {
				return err
			}
			resp, err := c.CreateRemoteBundle(cmd.Context(), t, args)
			if err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), string(resp.Raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "js", "asset type, js or css")
	return cmd
}
