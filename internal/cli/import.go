package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Astrrra/arcmini/internal/feed"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import a JSONL revision file",
	Long: `Apply every record of a JSONL revision file to the timeline database.

Each line is one record: {"op":"item",...}, {"op":"processing","value":true},
{"op":"recorder","sleeping":false} or {"op":"current","id":"<uuid>"}.
Invalid lines are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return &PreflightError{
				Message:  fmt.Sprintf("cannot read %s: %v", path, err),
				Hint:     "Pass the path of an existing JSONL file",
				NextStep: "arcmini import ./feed.jsonl",
			}
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := feed.New(path, rt.engine, rt.recorder).Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), stats)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items from %d lines (%d skipped).\n",
			stats.Items, stats.Lines, stats.Skipped)
		return err
	},
}
