// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/db"
)

var (
	historyBatchFlag     string
	historyKindFlag      string
	historyModeFlag      string
	historyCommittedFlag bool
	historyLimitFlag     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Search past quotes",
	Long: `Search the local history of dilution and purchase quotes, optionally
restricted to one batch, a lifetime mode, or quotes that were actually sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.InitDB(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("Error: failed to initialize database: %w", err)
		}
		defer store.Close()

		records, err := store.SearchQuotes(cmd.Context(), db.SearchParams{
			BatchID:       historyBatchFlag,
			Kind:          historyKindFlag,
			Mode:          historyModeFlag,
			CommittedOnly: historyCommittedFlag,
			Limit:         historyLimitFlag,
		})
		if err != nil {
			return fmt.Errorf("Error: search failed: %w", err)
		}
		if len(records) == 0 && formatFlag != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching quotes found.")
			return nil
		}
		if records == nil {
			records = []db.QuoteRecord{}
		}
		return render(cmd, records)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyBatchFlag, "batch", "", "Only quotes for this batch ID")
	historyCmd.Flags().StringVar(&historyKindFlag, "kind", "", "Only quotes of this kind (dilution, purchase)")
	historyCmd.Flags().StringVar(&historyModeFlag, "mode", "", "Only quotes with this lifetime mode")
	historyCmd.Flags().BoolVar(&historyCommittedFlag, "committed", false, "Only quotes that were sent to the node")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 10, "Maximum number of results to return")

	rootCmd.AddCommand(historyCmd)
}
