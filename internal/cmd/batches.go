// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/rpc"
)

var usableOnlyFlag bool

var batchesCmd = &cobra.Command{
	Use:     "batches",
	Aliases: []string{"stamps"},
	Short:   "List the node's postage batches, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stamps, err := nodeClient().Stamps(cmd.Context())
		if err != nil {
			return fmt.Errorf("Error: failed to list batches: %w", err)
		}
		if usableOnlyFlag {
			filtered := stamps[:0]
			for _, s := range stamps {
				if s.Usable {
					filtered = append(filtered, s)
				}
			}
			stamps = filtered
		}
		if len(stamps) == 0 && formatFlag != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), "No batches found.")
			return nil
		}
		if stamps == nil {
			stamps = []rpc.Stamp{}
		}
		return render(cmd, stamps)
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show the node wallet balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, err := nodeClient().Wallet(cmd.Context())
		if err != nil {
			return fmt.Errorf("Error: failed to fetch wallet: %w", err)
		}
		return render(cmd, wallet)
	},
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Check that the node is reachable and its API is supported",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := nodeClient()
		health, err := client.CheckNode(cmd.Context())
		if health != nil {
			if rerr := render(cmd, health); rerr != nil {
				return rerr
			}
		}
		if err != nil {
			return fmt.Errorf("Error: node %s: %w", client.BaseURL(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Node %s is compatible.\n", client.BaseURL())
		return nil
	},
}

func init() {
	batchesCmd.Flags().BoolVar(&usableOnlyFlag, "usable", false, "Only list usable batches")
	rootCmd.AddCommand(batchesCmd, walletCmd, nodeCmd)
}
