// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

// ttlReport is the lifetime of one batch at the current price.
type ttlReport struct {
	BatchID          string `json:"batchID"`
	Depth            uint8  `json:"depth"`
	AmountPerChunk   string `json:"amountPerChunk"`
	Seconds          int64  `json:"seconds"`
	Lifetime         string `json:"lifetime"`
	NodeTTLSeconds   int64  `json:"nodeTTLSeconds"`
	PriceUnavailable bool   `json:"priceUnavailable"`
}

var ttlCmd = &cobra.Command{
	Use:   "ttl <batch-id>",
	Short: "Show how long a batch lasts at the current price",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rpc.ValidateBatchID(args[0]); err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := nodeClient()

		stamp, err := client.Stamp(ctx, args[0])
		if err != nil {
			return fmt.Errorf("Error: failed to fetch batch: %w", err)
		}
		cs, err := client.ChainState(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Price unavailable: %v\n", err)
			cs = nil
		}
		price := cs.Price()
		batch := stamp.StorageBatch(cs)
		seconds := batch.RemainingLifetime(price, cfg.BlockTimeSeconds)

		report := ttlReport{
			BatchID:          stamp.BatchID,
			Depth:            stamp.Depth,
			AmountPerChunk:   batch.AmountPerChunk.String(),
			Seconds:          seconds,
			Lifetime:         postage.FormatTTL(seconds),
			NodeTTLSeconds:   stamp.BatchTTL,
			PriceUnavailable: !price.Available(),
		}
		if formatFlag == "json" {
			return render(cmd, report)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Batch:     %s\n", report.BatchID)
		fmt.Fprintf(out, "Depth:     %d\n", report.Depth)
		if report.PriceUnavailable {
			fmt.Fprintf(out, "Lifetime:  unknown (price unavailable), node reports %s\n", postage.FormatTTL(report.NodeTTLSeconds))
			return nil
		}
		fmt.Fprintf(out, "Lifetime:  %s\n", report.Lifetime)
		fmt.Fprintf(out, "Node TTL:  %s\n", postage.FormatTTL(report.NodeTTLSeconds))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ttlCmd)
}
