// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/server"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calculator over JSON-RPC",
	Long: `Start an HTTP server exposing the calculator as JSON-RPC on /rpc, Prometheus
metrics on /metrics and a liveness probe on /healthz.

Methods: Calculator.Quote, Calculator.BuyCost, Calculator.Lifetime,
Calculator.Price. Prices are fetched from the configured node unless a request
carries one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := cfg.Server.Listen
		if listenFlag != "" {
			listen = listenFlag
		}
		srv, err := server.New(server.Options{
			Listen:           listen,
			BlockTimeSeconds: cfg.BlockTimeSeconds,
			RateLimit:        cfg.Server.RateLimit,
			Burst:            cfg.Server.Burst,
		}, nodeClient())
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "Listen address, overrides Server.Listen")
	rootCmd.AddCommand(serveCmd)
}
