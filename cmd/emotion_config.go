package cmd

import (
	"encoding/json"
	"fmt"

	"livevision/internal/settings"
	processing "livevision/processing/detector"

	"github.com/spf13/cobra"
)

var emotionOpts struct {
	Endpoint string
	Token    string
	Model    string
}

var emotionConfigCmd = &cobra.Command{
	Use:   "emotion-config",
	Short: "Show or change the backend's emotion model settings",
}

var emotionGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current emotion model settings as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		det := newDetector(urlStore(settings.NewConfigStore(cfg, "")))

		ctx, cancel := requestTimeout(cmd.Context())
		defer cancel()

		current, err := det.GetEmotionConfig(ctx)
		if err != nil {
			return fmt.Errorf("load emotion config: %s", processing.UserMessage(err))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(current)
	},
}

var emotionSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the emotion model settings; flags left out keep their value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		det := newDetector(urlStore(settings.NewConfigStore(cfg, "")))

		ctx, cancel := requestTimeout(cmd.Context())
		defer cancel()

		current, err := det.GetEmotionConfig(ctx)
		if err != nil {
			return fmt.Errorf("load emotion config: %s", processing.UserMessage(err))
		}

		next := *current
		if cmd.Flags().Changed("endpoint") {
			next.Endpoint = emotionOpts.Endpoint
		}
		if cmd.Flags().Changed("token") {
			next.Token = emotionOpts.Token
		}
		if cmd.Flags().Changed("model") {
			next.Model = emotionOpts.Model
		}

		if err := det.SaveEmotionConfig(ctx, next); err != nil {
			return fmt.Errorf("save emotion config: %s", processing.UserMessage(err))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Saved")
		return nil
	},
}

func init() {
	emotionSetCmd.Flags().StringVar(&emotionOpts.Endpoint, "endpoint", "", "Chat completions endpoint of the emotion model")
	emotionSetCmd.Flags().StringVar(&emotionOpts.Token, "token", "", "Bearer token for the endpoint")
	emotionSetCmd.Flags().StringVar(&emotionOpts.Model, "model", "", "Model name")

	emotionConfigCmd.AddCommand(emotionGetCmd, emotionSetCmd)
	rootCmd.AddCommand(emotionConfigCmd)
}
