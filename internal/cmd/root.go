// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/config"
	"github.com/woco-foundation/swarmctl/internal/db"
	"github.com/woco-foundation/swarmctl/internal/dilution"
	"github.com/woco-foundation/swarmctl/internal/formatter"
	"github.com/woco-foundation/swarmctl/internal/logger"
	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
	"github.com/woco-foundation/swarmctl/internal/telemetry"
)

var (
	configFlag  string
	nodeFlag    string
	nodeURLFlag string
	formatFlag  string
	logJSONFlag bool
	verboseFlag bool

	cfg               *config.Config
	shutdownTelemetry telemetry.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:   "swarmctl",
	Short: "Postage batch calculator and companion for a Bee node",
	Long: `swarmctl prices postage batch dilutions and purchases against a Bee node.

It reads the current storage price from the node, computes how much a batch
needs to be topped up to keep (or reach) a lifetime at a higher depth, and can
send the top-up and dilution for you once the quote is priced.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		if cmd.Flags().Changed("node") {
			loaded.Node = nodeFlag
			loaded.NodeURL = ""
		}
		if nodeURLFlag != "" {
			loaded.NodeURL = nodeURLFlag
		}
		if cmd.Flags().Changed("log-json") {
			loaded.LogJSON = logJSONFlag
		}
		if verboseFlag {
			loaded.LogLevel = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		cfg = loaded

		logger.SetOutput(cmd.ErrOrStderr(), cfg.LogJSON)
		logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

		shutdownTelemetry, err = telemetry.Init(cmd.Context(), telemetry.Config{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     Version,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("Error: failed to initialize telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		if err := shutdownTelemetry(context.WithoutCancel(cmd.Context())); err != nil {
			logger.Logger.Warn("Failed to flush traces", "error", err)
		}
		return nil
	},
}

// Execute runs the command tree.
func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", config.DefaultPath(), "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVarP(&nodeFlag, "node", "n", string(rpc.Local), "Node preset to use (local, dappnode)")
	rootCmd.PersistentFlags().StringVar(&nodeURLFlag, "node-url", "", "Custom Bee API URL, overrides --node")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "o", string(formatter.FormatTable), "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

func nodeClient() *rpc.Client {
	return cfg.NodeClient()
}

// newService opens the history store and wires it with a node client. The
// returned close function must be called when done.
func newService() (*dilution.Service, *rpc.Client, func()) {
	client := nodeClient()
	store, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		logger.Logger.Warn("Quote history disabled", "path", cfg.DatabasePath, "error", err)
		return dilution.NewService(client, nil, cfg.BlockTimeSeconds), client, func() {}
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Logger.Warn("Failed to close history", "error", err)
		}
	}
	return dilution.NewService(client, store, cfg.BlockTimeSeconds), client, closeFn
}

func render(cmd *cobra.Command, data any) error {
	format, err := formatter.ParseFormat(formatFlag)
	if err != nil {
		return fmt.Errorf("Error: %w", err)
	}
	out, err := formatter.NewFormatter(format).Format(data)
	if err != nil {
		return fmt.Errorf("Error: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func parseDepth(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("Error: invalid depth %q", s)
	}
	d := uint8(n)
	if d < postage.MinDepth || d > postage.MaxDepth {
		return 0, fmt.Errorf("Error: depth %d outside %d..%d", d, postage.MinDepth, postage.MaxDepth)
	}
	return d, nil
}
