// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/postage"
)

var (
	buyDepthFlag     uint8
	buyTTLFlag       string
	buyLabelFlag     string
	buyImmutableFlag bool
	buyDryRunFlag    bool
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Price or buy a new postage batch",
	Long: `Compute what a new batch of the given depth costs for the requested
lifetime and, unless --dry-run is set, buy it.

Use --size to pick the smallest depth that holds that many megabytes.`,
	Example: `  swarmctl buy --depth 20 --ttl 30d --dry-run
  swarmctl buy --size 500 --ttl 1y --label website --wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		depth := buyDepthFlag
		if sizeFlag != 0 {
			if !validSize(sizeFlag) {
				return fmt.Errorf("Error: --size must be a positive number of megabytes, got %g", sizeFlag)
			}
			var ok bool
			if depth, ok = postage.DepthForSize(sizeFlag, postage.MinDepth); !ok {
				return fmt.Errorf("Error: no depth up to %d holds %g MB", postage.MaxDepth, sizeFlag)
			}
		}
		if depth < postage.MinDepth || depth > postage.MaxDepth {
			return fmt.Errorf("Error: depth %d outside %d..%d", depth, postage.MinDepth, postage.MaxDepth)
		}
		mode, err := postage.ParseLifetimeMode(buyTTLFlag)
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		if mode.Kind != postage.ModeExplicit {
			return fmt.Errorf("Error: --ttl must be a duration such as 30d")
		}

		svc, _, closeFn := newService()
		defer closeFn()

		if buyDryRunFlag {
			quote, err := svc.QuotePurchase(cmd.Context(), depth, mode.Seconds)
			if err != nil {
				return fmt.Errorf("Error: %w", err)
			}
			return render(cmd, quote)
		}

		if !yesFlag {
			quote, err := svc.QuotePurchase(cmd.Context(), depth, mode.Seconds)
			if err != nil {
				return fmt.Errorf("Error: %w", err)
			}
			if err := render(cmd, quote); err != nil {
				return err
			}
			if quote.PriceUnavailable {
				return fmt.Errorf("Error: price unavailable, nothing was bought")
			}
			ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Buy this batch?")
			if err != nil {
				return fmt.Errorf("Error: %w", err)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		result, err := svc.Purchase(cmd.Context(), depth, mode.Seconds, buyLabelFlag, buyImmutableFlag)
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		if err := render(cmd, result); err != nil {
			return err
		}
		if waitFlag {
			return waitUsable(cmd, svc, result.Tx.BatchID)
		}
		return nil
	},
}

func init() {
	buyCmd.Flags().Uint8Var(&buyDepthFlag, "depth", 20, "Batch depth")
	buyCmd.Flags().Float64Var(&sizeFlag, "size", 0, "Capacity in megabytes, instead of --depth")
	buyCmd.Flags().StringVar(&buyTTLFlag, "ttl", "30d", "Lifetime to pay for")
	buyCmd.Flags().StringVar(&buyLabelFlag, "label", "", "Batch label")
	buyCmd.Flags().BoolVar(&buyImmutableFlag, "immutable", true, "Create an immutable batch")
	buyCmd.Flags().BoolVar(&buyDryRunFlag, "dry-run", false, "Only print the cost")
	addCommitFlags(buyCmd)
	rootCmd.AddCommand(buyCmd)
}
