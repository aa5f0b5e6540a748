/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/chainguard-dev/asset-pipe/pkg/assetpipe"
)

type rootOptions struct {
	verbose bool

	server     string
	serverID   string
	tag        string
	minify     bool
	sourceMaps bool
	rebundle   bool
	maxRPS     float64
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "assetpipe",
		Short: "Publish and bundle front-end asset feeds",
		Long: `assetpipe talks to an asset build server.

Feeds are built from JavaScript and CSS entrypoints, published under a tag,
and combined into bundles according to bundle instructions. Settings are read
from ASSET_* environment variables; flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			cmd.SetContext(clog.WithLogger(cmd.Context(), clog.New(h)))
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&opts.server, "server", "", "asset build server URI (ASSET_SERVER)")
	pf.StringVar(&opts.serverID, "server-id", "", "value of the origin-server-id header (ASSET_SERVER_ID)")
	pf.StringVar(&opts.tag, "tag", "", "alphanumeric tag identifying this server's feeds (ASSET_TAG)")
	pf.BoolVar(&opts.minify, "minify", false, "ask the build server to minify (ASSET_MINIFY)")
	pf.BoolVar(&opts.sourceMaps, "source-maps", false, "ask the build server for source maps (ASSET_SOURCE_MAPS)")
	pf.BoolVar(&opts.rebundle, "rebundle", true, "rebundle dependent bundles after publishing (ASSET_REBUNDLE)")
	pf.Float64Var(&opts.maxRPS, "max-rps", 0, "cap on requests per second to the build server, 0 for none (ASSET_MAX_RPS)")

	cmd.AddCommand(
		newWriteCmd(),
		newPublishCmd(opts),
		newBundleCmd(opts),
		newSyncCmd(opts),
		newUploadCmd(opts),
		newRemoteBundleCmd(opts),
		newDevCmd(opts),
	)
	return cmd
}

// config reads assetpipe.Config from the environment, with any flag the
// user set taking precedence over its variable.
func (o *rootOptions) config(cmd *cobra.Command) (assetpipe.Config, error) {
	flags := map[string]string{}
	set := func(flag, env, value string) {
		if cmd.Flags().Changed(flag) {
			flags[env] = value
		}
	}
	set("server", "ASSET_SERVER", o.server)
	set("server-id", "ASSET_SERVER_ID", o.serverID)
	set("tag", "ASSET_TAG", o.tag)
	set("minify", "ASSET_MINIFY", strconv.FormatBool(o.minify))
	set("source-maps", "ASSET_SOURCE_MAPS", strconv.FormatBool(o.sourceMaps))
	set("rebundle", "ASSET_REBUNDLE", strconv.FormatBool(o.rebundle))
	set("max-rps", "ASSET_MAX_RPS", strconv.FormatFloat(o.maxRPS, 'f', -1, 64))

	var cfg assetpipe.Config
	err := envconfig.ProcessWith(cmd.Context(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MultiLookuper(envconfig.MapLookuper(flags), envconfig.OsLookuper()),
	})
	return cfg, err
}

func (o *rootOptions) client(cmd *cobra.Command, mutate ...func(*assetpipe.Config)) (*assetpipe.Client, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return assetpipe.New(cfg)
}

func printLine(w io.Writer, s string) {
	_, _ = io.WriteString(w, s+"\n")
}
