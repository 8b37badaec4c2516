package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/facecheck/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveOpts   Options
	serveAddr   string
	maxUploadMB int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload page and JSON evaluation endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		if maxUploadMB < 1 {
			return fmt.Errorf("--max-upload-mb must be at least 1, got %d", maxUploadMB)
		}
		if serveOpts.NumEngines < 1 {
			return fmt.Errorf("--engines must be at least 1, got %d", serveOpts.NumEngines)
		}
		cmd.SilenceUsage = true

		det, err := loadDetector(serveOpts.DetectorName, serveOpts.CascadePath)
		if err != nil {
			return fmt.Errorf("failed to load %s detector: %w", serveOpts.DetectorName, err)
		}
		defer det.Close()

		cfg := server.DefaultConfig()
		cfg.Addr = serveAddr
		cfg.MaxUploadBytes = maxUploadMB << 20
		cfg.TempDir = serveOpts.TempDir
		cfg.Workers = serveOpts.NumEngines
		cfg.Detector = det.String()

		return runServe(cmd.Context(), server.New(cfg, det, logger()))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().IntVar(&maxUploadMB, "max-upload-mb", 512, "Maximum request body size in megabytes")
	serveCmd.Flags().IntVarP(&serveOpts.NumEngines, "engines", "e", 1, "Number of parallel detector engines per request")
	serveCmd.Flags().StringVar(&serveOpts.TempDir, "temp-dir", "", "Where uploads are extracted (default: system temp dir)")
	addDetectorFlags(serveCmd, &serveOpts)
	rootCmd.AddCommand(serveCmd)
}

// runServe blocks until the server fails or ctx is cancelled, then drains
// in-flight requests before returning.
func runServe(ctx context.Context, s *server.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Listen()
	}()
	fmt.Fprintln(os.Stderr, "🌐 Serving facecheck, press Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(os.Stderr, "🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
