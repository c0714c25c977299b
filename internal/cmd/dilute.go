// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/dilution"
	"github.com/woco-foundation/swarmctl/internal/postage"
)

var (
	yesFlag  bool
	waitFlag bool
)

var diluteCmd = &cobra.Command{
	Use:   "dilute <batch-id> [new-depth]",
	Short: "Top up and dilute a batch",
	Long: `Quote a dilution exactly like 'swarmctl quote', then send the top-up (when
one is due) followed by the dilution to the node.

Nothing is sent while the price is unavailable: retry once the node reports a
price.`,
	Example: `  swarmctl dilute 3f1c...9ab2 22 --lifetime 90d
  swarmctl dilute 3f1c...9ab2 21 --lifetime none --yes --wait`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: quoteCmd.PreRunE,
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
		if err := render(cmd, preview); err != nil {
			return err
		}
		if err := preview.Quote.Committable(); err != nil {
			return fmt.Errorf("Error: refusing to commit: %w", err)
		}

		if !yesFlag {
			ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Send top-up and dilution?")
			if err != nil {
				return fmt.Errorf("Error: %w", err)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		result, err := svc.Commit(cmd.Context(), preview)
		if err != nil {
			if result != nil && result.TopUp != nil {
				_ = render(cmd, result)
			}
			return fmt.Errorf("Error: %w", err)
		}
		if err := render(cmd, result); err != nil {
			return err
		}
		if waitFlag {
			return waitUsable(cmd, svc, preview.Quote.BatchID)
		}
		return nil
	},
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// waitUsable polls the batch with a progress bar on stderr.
func waitUsable(cmd *cobra.Command, svc *dilution.Service, batchID string) error {
	attempts := cfg.Poll.Attempts
	bar := progressbar.NewOptions(attempts,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Waiting for batch to become usable"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	stamp, err := svc.WaitUsable(cmd.Context(), batchID, cfg.Poll.Interval.Duration, attempts, func(attempt int) {
		_ = bar.Set(attempt)
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("Error: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Batch %s is usable at depth %d.\n", stamp.BatchID, stamp.Depth)
	return nil
}

func addCommitFlags(c *cobra.Command) {
	c.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")
	c.Flags().BoolVar(&waitFlag, "wait", false, "Wait until the node reports the batch usable")
}

func init() {
	addLifetimeFlags(diluteCmd)
	addCommitFlags(diluteCmd)
	rootCmd.AddCommand(diluteCmd)
}
