package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/facecheck/internal/types"
)

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	writeError(&buf, "Evaluation failed", errors.New("cannot access sample directory"))

	out := buf.String()
	if !strings.Contains(out, "FACECHECK ERROR: Evaluation failed") {
		t.Errorf("Missing context line in %q", out)
	}
	if !strings.Contains(out, "DETAILS: cannot access sample directory") {
		t.Errorf("Missing details line in %q", out)
	}

	buf.Reset()
	writeError(&buf, "No details", nil)
	if strings.Contains(buf.String(), "DETAILS") {
		t.Errorf("Unexpected details line for nil error: %q", buf.String())
	}
}

func TestCorpusID(t *testing.T) {
	dir := t.TempDir()
	face := filepath.Join(dir, "face.jpg")
	wall := filepath.Join(dir, "wall.jpg")
	for _, p := range []string{face, wall} {
		if err := os.WriteFile(p, []byte("fake image content"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	samples := []types.Sample{
		{Path: face, Label: types.Positive},
		{Path: wall, Label: types.Negative},
	}

	id, err := CorpusID(samples)
	if err != nil || id == "" {
		t.Fatalf("Failed to generate ID: %v", err)
	}

	// Verify Determinism
	id2, _ := CorpusID(samples)
	if id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Relabel -> Change ID)
	relabeled := []types.Sample{
		{Path: face, Label: types.Negative},
		{Path: wall, Label: types.Negative},
	}
	if id3, _ := CorpusID(relabeled); id == id3 {
		t.Error("Hash did not change after relabeling a sample")
	}

	// Verify Sensitivity (Change content -> Change ID)
	f, _ := os.OpenFile(wall, os.O_APPEND|os.O_WRONLY, 0644)
	f.Write([]byte(" modification"))
	f.Close()

	id4, _ := CorpusID(samples)
	if id == id4 {
		t.Error("Hash did not change after file modification")
	}

	// Missing files are reported
	if _, err := CorpusID([]types.Sample{{Path: filepath.Join(dir, "gone.jpg")}}); err == nil {
		t.Error("Expected error for missing sample")
	}
}
