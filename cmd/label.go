package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:         "label <run_id> <name>",
	Short:       "Assign a name to a stored evaluation run",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationDB: "required"},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}
		cmd.SilenceUsage = true
		name := args[1]

		if err := DB.LabelRun(cmd.Context(), id, name); err != nil {
			return fmt.Errorf("failed to label run: %w", err)
		}

		fmt.Printf("✅ Run %s labeled as '%s'\n", id, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}
