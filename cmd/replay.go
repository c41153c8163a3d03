package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"livevision/internal/recording"

	"github.com/spf13/cobra"
)

var replayPretty bool

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Print the records of a recording file as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := replay(f, cmd.OutOrStdout(), replayPretty)
		if err != nil {
			return fmt.Errorf("%s: record %d: %w", args[0], n+1, err)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().BoolVarP(&replayPretty, "pretty", "p", false, "Indent each record")
	rootCmd.AddCommand(replayCmd)
}

// replay copies every record from r to out and returns how many it wrote.
func replay(r io.Reader, out io.Writer, pretty bool) (int, error) {
	rd, err := recording.NewReader(r)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}

	n := 0
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := enc.Encode(rec); err != nil {
			return n, err
		}
		n++
	}
}
