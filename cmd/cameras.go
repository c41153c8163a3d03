package cmd

import (
	"fmt"

	"livevision/processing/capture"

	"github.com/spf13/cobra"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List capture devices ffmpeg can open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := capture.ListCameras()
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No cameras found.")
			return nil
		}

		current := cfg.GetDeviceID()
		for _, d := range devices {
			marker := " "
			if d == current {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)
}
