package cmd

import (
	"errors"
	"fmt"

	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/spf13/cobra"
)

var detectOpts Options

var detectCmd = &cobra.Command{
	Use:   "detect <image_path>",
	Short: "Count the faces the detector finds in a single image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		det, err := loadDetector(detectOpts.DetectorName, detectOpts.CascadePath)
		if err != nil {
			return fmt.Errorf("failed to load %s detector: %w", detectOpts.DetectorName, err)
		}
		defer det.Close()

		return runDetect(cmd, det, args[0])
	},
}

func init() {
	addDetectorFlags(detectCmd, &detectOpts)
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, det detector.Detector, path string) error {
	faces, err := det.Detect(path)
	if errors.Is(err, detector.ErrUnreadableImage) {
		// Same fold-in as evaluate: an undecodable image has no faces.
		logger().Warn("unreadable image", "path", path, "error", err)
		faces, err = 0, nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d face(s)\n", path, faces)
	return nil
}
