package cmd

import (
	"fmt"
	"io"

	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/andresmejia3/facecheck/internal/detector/haar"
	"github.com/andresmejia3/facecheck/internal/detector/pico"
	"github.com/spf13/cobra"
)

// loadedDetector is a detector backed by a cascade file that must be released.
type loadedDetector interface {
	detector.Detector
	io.Closer
	fmt.Stringer
}

// addDetectorFlags registers --detector and --cascade on cmd.
func addDetectorFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVar(&opts.DetectorName, "detector", haar.Name, "Face detector backend: haar (OpenCV) or pico (pure Go)")
	cmd.Flags().StringVar(&opts.CascadePath, "cascade", "", "Path to the cascade file (default depends on --detector)")
}

// defaultCascade returns the cascade file used when --cascade is not given.
func defaultCascade(name string) (string, error) {
	switch name {
	case haar.Name:
		return haar.DefaultCascade, nil
	case pico.Name:
		return pico.DefaultCascade, nil
	default:
		return "", fmt.Errorf("unknown detector %q (want %q or %q)", name, haar.Name, pico.Name)
	}
}

// loadDetector constructs the named backend from its cascade file.
func loadDetector(name, cascadePath string) (loadedDetector, error) {
	def, err := defaultCascade(name)
	if err != nil {
		return nil, err
	}
	if cascadePath == "" {
		cascadePath = def
	}

	switch name {
	case haar.Name:
		c, err := haar.Load(cascadePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		d, err := pico.Load(cascadePath)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}
