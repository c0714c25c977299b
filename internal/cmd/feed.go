// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woco-foundation/swarmctl/internal/feed"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Work with feeds",
}

var feedTopicCmd = &cobra.Command{
	Use:   "topic <name>",
	Short: "Print the topic a feed name maps to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, err := feed.Topic(args[0])
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), topic)
		return nil
	},
}

var feedLatestCmd = &cobra.Command{
	Use:   "latest <owner> <name-or-topic>",
	Short: "Fetch the newest update of a feed",
	Long: `Fetch the latest update of the feed owned by <owner>. The second argument
is either a 64-character hex topic or a feed name, which is hashed to a topic.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := feed.Owner(args[0])
		if err != nil {
			return fmt.Errorf("Error: %w", err)
		}
		topic := strings.ToLower(strings.TrimPrefix(args[1], "0x"))
		if !feed.IsTopic(args[1]) {
			if topic, err = feed.Topic(args[1]); err != nil {
				return fmt.Errorf("Error: %w", err)
			}
		}
		update, err := nodeClient().FeedLatest(cmd.Context(), owner, topic)
		if err != nil {
			return fmt.Errorf("Error: failed to fetch feed: %w", err)
		}
		return render(cmd, update)
	},
}

func init() {
	feedCmd.AddCommand(feedTopicCmd, feedLatestCmd)
	rootCmd.AddCommand(feedCmd)
}
