package cmd

import (
	"fmt"

	"livevision/internal/settings"

	"github.com/spf13/cobra"
)

var backendURLCmd = &cobra.Command{
	Use:   "backend-url [url]",
	Short: "Print or set the backend URL shared with the GUI",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := settings.NewConfigStore(cfg, configPath)

		var saveErr error
		store.OnSaveError = func(err error) { saveErr = err }

		if len(args) == 1 {
			store.Set(args[0])
			if saveErr != nil {
				return fmt.Errorf("save config: %w", saveErr)
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), newDetector(store).BaseURL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backendURLCmd)
}
