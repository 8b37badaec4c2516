package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresmejia3/facecheck/internal/archive"
	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/andresmejia3/facecheck/internal/eval"
	"github.com/andresmejia3/facecheck/internal/report"
	"github.com/andresmejia3/facecheck/internal/store"
	"github.com/andresmejia3/facecheck/internal/types"
	"github.com/andresmejia3/facecheck/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var evalOpts Options

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a face detector against a folder of faces and a folder of non-faces",
	Long: `Runs the detector once on every .jpg, .jpeg and .png file of both inputs and
prints the confusion matrix with accuracy, precision, recall and F1.
Each input may be a directory or a .zip archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := evalOpts
		if err := validateEvaluateFlags(&opts); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		det, err := loadDetector(opts.DetectorName, opts.CascadePath)
		if err != nil {
			return fmt.Errorf("failed to load %s detector: %w", opts.DetectorName, err)
		}
		defer det.Close()

		var db *store.Store
		if opts.Save {
			db = DB
		}
		return runEvaluate(cmd.Context(), cmd.OutOrStdout(), opts, det, db)
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalOpts.PositivePath, "faces", "f", "", "Directory or .zip of images that contain a face")
	evaluateCmd.Flags().StringVarP(&evalOpts.NegativePath, "non-faces", "n", "", "Directory or .zip of images that contain no face")
	evaluateCmd.Flags().IntVarP(&evalOpts.NumEngines, "engines", "e", 1, "Number of parallel detector engines")
	evaluateCmd.Flags().StringVar(&evalOpts.TempDir, "temp-dir", "", "Where archives are extracted (default: system temp dir)")
	evaluateCmd.Flags().BoolVar(&evalOpts.JSON, "json", false, "Print the report as JSON")
	evaluateCmd.Flags().BoolVar(&evalOpts.Save, "save", false, "Store the run in the database")
	evaluateCmd.Flags().StringVar(&evalOpts.RunName, "name", "", "Label for the stored run (implies nothing without --save)")
	addDetectorFlags(evaluateCmd, &evalOpts)

	evaluateCmd.MarkFlagRequired("faces")
	evaluateCmd.MarkFlagRequired("non-faces")
	rootCmd.AddCommand(evaluateCmd)
}

func validateEvaluateFlags(opts *Options) error {
	if opts.PositivePath == "" || opts.NegativePath == "" {
		return errors.New("both --faces and --non-faces are required")
	}
	if opts.NumEngines < 1 {
		return fmt.Errorf("--engines must be at least 1, got %d", opts.NumEngines)
	}
	if _, err := defaultCascade(opts.DetectorName); err != nil {
		return err
	}
	return nil
}

// runEvaluate resolves both inputs, scores them with det and writes the report
// to out. When db is non-nil the run is persisted as well.
func runEvaluate(ctx context.Context, out io.Writer, opts Options, det detector.Detector, db *store.Store) error {
	log := logger()

	posDir, negDir, cleanup, err := resolveCorpus(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	samples, err := eval.Collect(posDir, negDir)
	if err != nil {
		return err
	}
	positives := countLabel(samples, types.Positive)
	fmt.Fprintf(os.Stderr, "🖼️  Found %d images (%d faces, %d non-faces)\n", len(samples), positives, len(samples)-positives)
	fmt.Fprintf(os.Stderr, "⚙️  Spawning %d detector engines...\n", opts.NumEngines)

	bar := progressbar.NewOptions(len(samples),
		progressbar.OptionSetDescription("🔍 Evaluating"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	start := time.Now()
	e := eval.New(det,
		eval.WithWorkers(opts.NumEngines),
		eval.WithLogger(log),
		eval.WithProgress(func(types.Sample, int) { bar.Add(1) }),
	)
	r, err := e.Run(ctx, samples)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	log.Info("evaluation complete", "samples", r.Total(), "unreadable", r.Unreadable, "duration", time.Since(start))

	name := detectorName(det, opts.DetectorName)
	if opts.JSON {
		if err := report.WriteJSON(out, name, r); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, report.Text(r))
		fmt.Fprintln(out)
		for _, m := range report.Summary(r) {
			fmt.Fprintf(out, "%-10s %s\n", m.Name+":", m.Value)
		}
		if r.Unreadable > 0 {
			fmt.Fprintf(out, "⚠️  %d image(s) could not be decoded and were scored as zero faces\n", r.Unreadable)
		}
	}

	if db == nil {
		return nil
	}
	corpusID, err := utils.CorpusID(samples)
	if err != nil {
		return fmt.Errorf("failed to fingerprint corpus: %w", err)
	}
	id, err := db.SaveRun(ctx, store.Run{
		Name:        opts.RunName,
		Detector:    name,
		PositiveDir: opts.PositivePath,
		NegativeDir: opts.NegativePath,
		CorpusID:    corpusID,
		Report:      r,
	})
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	fmt.Fprintf(os.Stderr, "💾 Saved run %s (corpus %s)\n", id, corpusID[:12])
	return nil
}

// resolveCorpus turns the --faces and --non-faces inputs into directories,
// extracting archives into a temporary workspace. cleanup removes the workspace.
func resolveCorpus(opts Options) (posDir, negDir string, cleanup func(), err error) {
	cleanup = func() {}
	if !isArchive(opts.PositivePath) && !isArchive(opts.NegativePath) {
		return opts.PositivePath, opts.NegativePath, cleanup, nil
	}

	ws, err := archive.NewWorkspace(opts.TempDir)
	if err != nil {
		return "", "", cleanup, fmt.Errorf("failed to create workspace: %w", err)
	}
	cleanup = func() {
		if err := ws.Close(); err != nil {
			logger().Warn("workspace cleanup failed", "root", ws.Root, "error", err)
		}
	}

	posDir, negDir = opts.PositivePath, opts.NegativePath
	if isArchive(posDir) {
		if posDir, err = ws.ExtractPositiveFile(posDir); err != nil {
			cleanup()
			return "", "", func() {}, err
		}
	}
	if isArchive(negDir) {
		if negDir, err = ws.ExtractNegativeFile(negDir); err != nil {
			cleanup()
			return "", "", func() {}, err
		}
	}
	return posDir, negDir, cleanup, nil
}

// isArchive reports whether path names an existing .zip file.
func isArchive(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func countLabel(samples []types.Sample, label types.Label) int {
	n := 0
	for _, s := range samples {
		if s.Label == label {
			n++
		}
	}
	return n
}

func detectorName(det detector.Detector, fallback string) string {
	if s, ok := det.(fmt.Stringer); ok {
		return s.String()
	}
	return fallback
}
