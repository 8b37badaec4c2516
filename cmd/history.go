package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facecheck/internal/report"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:         "history",
	Short:       "List stored evaluation runs, newest first",
	Annotations: map[string]string{annotationDB: "required"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		runs, err := DB.ListRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No evaluation runs found in database.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDETECTOR\tIMAGES\tACCURACY\tPRECISION\tRECALL\tF1\tCORPUS\tCREATED")
		fmt.Fprintln(w, "--\t----\t--------\t------\t--------\t---------\t------\t--\t------\t-------")

		for _, run := range runs {
			r := run.Report
			corpus := run.CorpusID
			if len(corpus) > 12 {
				corpus = corpus[:12]
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				run.ID, run.Name, run.Detector, r.Total(),
				report.Percent(r.Accuracy), report.Percent(r.Precision), report.Percent(r.Recall), report.Percent(r.F1),
				corpus, run.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
