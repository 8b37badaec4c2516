// Package haar counts faces with an OpenCV Haar cascade.
package haar

import (
	"fmt"
	"image"
	"sync"

	"github.com/andresmejia3/facecheck/internal/detector"
	"gocv.io/x/gocv"
)

// Name identifies this detector in reports and stored runs.
const Name = "haar"

// DefaultCascade is the frontal-face model shipped with OpenCV.
const DefaultCascade = "haarcascade_frontalface_default.xml"

// Cascade holds a loaded classifier for the lifetime of the process.
// Detect calls are serialized; a CascadeClassifier is not safe for concurrent use.
type Cascade struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	path       string

	ScaleFactor  float64
	MinNeighbors int
	// MinSize and MaxSize bound the detection window. Zero means unbounded.
	MinSize image.Point
	MaxSize image.Point
}

// Load reads the cascade XML at path.
func Load(path string) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to read cascade file: %s", path)
	}
	return &Cascade{
		classifier:   classifier,
		path:         path,
		ScaleFactor:  detector.ScaleFactor,
		MinNeighbors: detector.MinNeighbors,
	}, nil
}

// Detect decodes the image, converts it to grayscale and runs multi-scale detection.
func (c *Cascade) Detect(path string) (int, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return 0, detector.Unreadable(path, nil)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	c.mu.Lock()
	defer c.mu.Unlock()
	rects := c.classifier.DetectMultiScaleWithParams(gray, c.ScaleFactor, c.MinNeighbors, 0, c.MinSize, c.MaxSize)
	return len(rects), nil
}

// String returns the detector name and model path.
func (c *Cascade) String() string {
	return fmt.Sprintf("%s(%s)", Name, c.path)
}

// Close releases the classifier.
func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.Close()
}
