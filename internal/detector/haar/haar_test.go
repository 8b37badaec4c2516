package haar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/facecheck/internal/detector"
	"gocv.io/x/gocv"
)

func TestDetectUnreadableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not a jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	// The classifier is never reached for undecodable input, so a zero Cascade is enough.
	c := &Cascade{ScaleFactor: detector.ScaleFactor, MinNeighbors: detector.MinNeighbors}
	n, err := c.Detect(path)
	if !errors.Is(err, detector.ErrUnreadableImage) {
		t.Fatalf("Expected ErrUnreadableImage, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 faces for unreadable image, got %d", n)
	}
}

func TestLoadMissingCascade(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Fatal("Expected error loading a missing cascade file")
	}
}

// TestDetectBlankImage needs a real cascade; point FACECHECK_HAAR_CASCADE at one to run it.
func TestDetectBlankImage(t *testing.T) {
	cascadePath := os.Getenv("FACECHECK_HAAR_CASCADE")
	if cascadePath == "" {
		t.Skip("FACECHECK_HAAR_CASCADE not set")
	}

	c, err := Load(cascadePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer c.Close()

	path := filepath.Join(t.TempDir(), "blank.png")
	blank := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC3)
	ok := gocv.IMWrite(path, blank)
	blank.Close()
	if !ok {
		t.Fatalf("Failed to write %s", path)
	}

	n, err := c.Detect(path)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no faces in a blank image, got %d", n)
	}
}
