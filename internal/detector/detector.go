// Package detector defines the face-count capability the evaluator relies on.
//
// Concrete detectors live in subpackages: haar wraps an OpenCV Haar cascade,
// pico runs a pure-Go pixel-intensity-comparison cascade. Both load their
// model once and are borrowed by every Detect call.
package detector

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnreadableImage is returned when a file cannot be decoded as an image.
// Callers classifying samples treat it the same as "no face found".
var ErrUnreadableImage = errors.New("unreadable image")

// Default detection parameters shared by every cascade implementation.
const (
	ScaleFactor  = 1.1
	MinNeighbors = 5
)

// SupportedExtensions lists the image extensions a sample must carry (lowercase).
var SupportedExtensions = []string{".jpg", ".jpeg", ".png"}

// Detector returns the number of faces found in the image at path.
type Detector interface {
	Detect(path string) (int, error)
}

// Func adapts an ordinary function to the Detector interface.
type Func func(path string) (int, error)

// Detect calls f(path).
func (f Func) Detect(path string) (int, error) {
	return f(path)
}

// Unreadable wraps ErrUnreadableImage with the offending path and cause.
func Unreadable(path string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrUnreadableImage, path)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnreadableImage, path, cause)
}

// IsSupported reports whether name has one of the SupportedExtensions, ignoring case.
func IsSupported(name string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(name)))
}
