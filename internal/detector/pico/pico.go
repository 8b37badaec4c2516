// Package pico counts faces with a pure-Go pixel-intensity-comparison cascade.
// It needs no cgo and serves as the portable alternative to the OpenCV detector.
package pico

import (
	"fmt"
	"image"
	"os"

	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"
)

// Name identifies this detector in reports and stored runs.
const Name = "pico"

// DefaultCascade is the conventional location of the pigo face model.
const DefaultCascade = "cascade/facefinder"

// Detector runs an unpacked cascade. The cascade is read-only after Unpack,
// so a Detector may be shared between goroutines.
type Detector struct {
	classifier *pigo.Pigo
	path       string

	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinQuality discards clustered detections scoring below it. It plays the
	// role of the Haar minimum-neighbor threshold.
	MinQuality float32
}

// Load reads and unpacks the cascade file at path.
func Load(path string) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file: %w", err)
	}
	d, err := New(data)
	if err != nil {
		return nil, err
	}
	d.path = path
	return d, nil
}

// New unpacks an in-memory cascade.
func New(cascade []byte) (d *Detector, err error) {
	// Unpack indexes into the packet without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error unpacking the cascade file: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &Detector{
		classifier:   classifier,
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  detector.ScaleFactor,
		IoUThreshold: 0.2,
		MinQuality:   float32(detector.MinNeighbors),
	}, nil
}

// Detect decodes the image, honoring EXIF orientation, and counts faces.
func (d *Detector) Detect(path string) (int, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return 0, detector.Unreadable(path, err)
	}
	return d.Count(img), nil
}

// Count runs the cascade over an already decoded image.
func (d *Detector) Count(img image.Image) int {
	src := imaging.Clone(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     d.MaxSize,
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: d.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.IoUThreshold)

	var faces int
	for _, det := range dets {
		if det.Q >= d.MinQuality {
			faces++
		}
	}
	return faces
}

// String returns the detector name and model path.
func (d *Detector) String() string {
	return fmt.Sprintf("%s(%s)", Name, d.path)
}

// Close is a no-op; the cascade lives in ordinary Go memory.
func (d *Detector) Close() error {
	return nil
}
