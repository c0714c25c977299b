// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

var (
	lifetimeFlag string
	sizeFlag     float64
)

var quoteCmd = &cobra.Command{
	Use:   "quote <batch-id> [new-depth]",
	Short: "Price a batch dilution without sending anything",
	Long: `Fetch a batch and the current price from the node and compute the top-up
needed to raise the batch to a new depth.

The lifetime the batch should have afterwards is chosen with --lifetime:
  preserve   keep the lifetime the batch has now (default, alias: match)
  none       pay nothing; the lifetime shrinks by half per extra depth
  <n><unit>  an explicit lifetime such as 30d, 12w or 1y

Instead of a depth, --size picks the smallest depth that holds that many
megabytes.`,
	Example: `  # Double the capacity and keep the current lifetime
  swarmctl quote 3f1c...9ab2 21

  # Reach 1 GB with a one-year lifetime
  swarmctl quote 3f1c...9ab2 --size 1000 --lifetime 1y`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rpc.ValidateBatchID(args[0]); err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		if sizeFlag != 0 && !validSize(sizeFlag) {
			return fmt.Errorf("Error: --size must be a positive number of megabytes, got %g", sizeFlag)
		}
		if len(args) == 1 && sizeFlag <= 0 {
			return fmt.Errorf("Error: give a new depth or --size")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := postage.ParseLifetimeMode(lifetimeFlag)
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		svc, client, closeFn := newService()
		defer closeFn()

		newDepth, err := targetDepth(cmd, client, args)
		if err != nil {
			return err
		}
		preview, err := svc.Preview(cmd.Context(), args[0], newDepth, mode)
		if err != nil {
			return fmt.Errorf("Error: failed to quote dilution: %w", err)
		}
		if preview.Quote.PriceUnavailable {
			fmt.Fprintln(cmd.ErrOrStderr(), "Price unavailable: the quote is provisional and cannot be committed.")
		}
		return render(cmd, preview)
	},
}

// targetDepth resolves the depth argument, or --size against the batch's
// current depth.
func targetDepth(cmd *cobra.Command, client *rpc.Client, args []string) (uint8, error) {
	if len(args) == 2 {
		return parseDepth(args[1])
	}
	stamp, err := client.Stamp(cmd.Context(), args[0])
	if err != nil {
		return 0, fmt.Errorf("Error: failed to fetch batch: %w", err)
	}
	depth, ok := postage.DepthForSize(sizeFlag, stamp.Depth)
	if !ok {
		return 0, fmt.Errorf("Error: no depth up to %d holds %g MB", postage.MaxDepth, sizeFlag)
	}
	return depth, nil
}

func validSize(mb float64) bool {
	return mb > 0 && !math.IsInf(mb, 0)
}

func addLifetimeFlags(c *cobra.Command) {
	c.Flags().StringVarP(&lifetimeFlag, "lifetime", "l", "preserve", "Lifetime after the change (preserve, none, or a duration like 30d)")
	c.Flags().Float64Var(&sizeFlag, "size", 0, "Target capacity in megabytes, instead of a depth")
}

func init() {
	addLifetimeFlags(quoteCmd)
	rootCmd.AddCommand(quoteCmd)
}
