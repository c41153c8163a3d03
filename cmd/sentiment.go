package cmd

import (
	"fmt"
	"strings"

	"livevision/internal/settings"
	processing "livevision/processing/detector"

	"github.com/spf13/cobra"
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment <text>",
	Short: "Classify the sentiment of a sentence",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		det := newDetector(urlStore(settings.NewConfigStore(cfg, "")))

		ctx, cancel := requestTimeout(cmd.Context())
		defer cancel()

		resp, err := det.SendSentiment(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("sentiment: %s", processing.UserMessage(err))
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Sentiment)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sentimentCmd)
}
