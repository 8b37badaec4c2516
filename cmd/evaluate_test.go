package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/andresmejia3/facecheck/internal/eval"
	"github.com/andresmejia3/facecheck/internal/logging"
	"github.com/andresmejia3/facecheck/internal/report"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"
)

func init() {
	Logger = logging.Discard()
}

// byName reports one face for files whose name starts with "face".
var byName = detector.Func(func(path string) (int, error) {
	if strings.HasPrefix(filepath.Base(path), "face") {
		return 1, nil
	}
	return 0, nil
})

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func writeZip(t *testing.T, path string, names ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("img"))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateEvaluateFlags(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"Valid haar", Options{PositivePath: "p", NegativePath: "n", NumEngines: 1, DetectorName: "haar"}, false},
		{"Valid pico", Options{PositivePath: "p", NegativePath: "n", NumEngines: 4, DetectorName: "pico"}, false},
		{"Missing faces", Options{NegativePath: "n", NumEngines: 1, DetectorName: "haar"}, true},
		{"Zero engines", Options{PositivePath: "p", NegativePath: "n", NumEngines: 0, DetectorName: "haar"}, true},
		{"Unknown detector", Options{PositivePath: "p", NegativePath: "n", NumEngines: 1, DetectorName: "yolo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEvaluateFlags(&tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEvaluateFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDetectorUnknown(t *testing.T) {
	if _, err := loadDetector("yolo", ""); err == nil {
		t.Error("Expected an error for an unknown detector")
	}
}

func TestLoadDetectorMissingPicoCascade(t *testing.T) {
	if _, err := loadDetector("pico", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected an error for a missing cascade file")
	}
}

func TestRunEvaluateDirectories(t *testing.T) {
	root := t.TempDir()
	pos := filepath.Join(root, "faces")
	neg := filepath.Join(root, "non_faces")
	writeImages(t, pos, "face1.jpg", "face2.png", "blank.jpg", "readme.txt")
	writeImages(t, neg, "wall.jpg", "face_poster.jpeg")

	var out bytes.Buffer
	opts := Options{PositivePath: pos, NegativePath: neg, NumEngines: 2, DetectorName: "stub"}
	if err := runEvaluate(context.Background(), &out, opts, byName, nil); err != nil {
		t.Fatalf("runEvaluate failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		report.Title,
		"True Positives (TP): 2",
		"False Negatives (FN): 1",
		"True Negatives (TN): 1",
		"False Positives (FP): 1",
		"Accuracy: 0.60",
		"60.00%",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Output missing %q:\n%s", want, got)
		}
	}
}

func TestRunEvaluateArchivesJSON(t *testing.T) {
	root := t.TempDir()
	pos := filepath.Join(root, "faces.zip")
	neg := filepath.Join(root, "non_faces.ZIP")
	writeZip(t, pos, "faces/face1.jpg", "faces/face2.jpg")
	writeZip(t, neg, "sky.png", "face_mural.jpg")
	tmp := filepath.Join(root, "work")
	if err := os.Mkdir(tmp, 0755); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	opts := Options{PositivePath: pos, NegativePath: neg, NumEngines: 1, DetectorName: "stub", TempDir: tmp, JSON: true}
	if err := runEvaluate(context.Background(), &out, opts, byName, nil); err != nil {
		t.Fatalf("runEvaluate failed: %v", err)
	}

	var doc report.Document
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, out.String())
	}
	want := eval.Counts{TP: 2, TN: 1, FP: 1}
	if doc.Report.Counts != want {
		t.Errorf("Expected counts %+v, got %+v", want, doc.Report.Counts)
	}
	if doc.Detector != "stub" {
		t.Errorf("Expected detector 'stub', got %q", doc.Detector)
	}

	// The extraction workspace is removed once the run finishes.
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty temp dir, found %d entries", len(entries))
	}
}

func TestRunEvaluateFailureCleansUp(t *testing.T) {
	root := t.TempDir()
	pos := filepath.Join(root, "faces.zip")
	neg := filepath.Join(root, "non_faces.zip")
	writeZip(t, pos, "face1.jpg")
	writeZip(t, neg, "wall.jpg")
	tmp := filepath.Join(root, "work")
	if err := os.Mkdir(tmp, 0755); err != nil {
		t.Fatal(err)
	}

	broken := detector.Func(func(string) (int, error) {
		return 0, errors.New("model crashed")
	})
	var out bytes.Buffer
	opts := Options{PositivePath: pos, NegativePath: neg, NumEngines: 1, TempDir: tmp}
	err := runEvaluate(context.Background(), &out, opts, broken, nil)
	if err == nil || !strings.Contains(err.Error(), "model crashed") {
		t.Fatalf("Expected the detector failure, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no report on failure, got %q", out.String())
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty temp dir after failure, found %d entries", len(entries))
	}
}

func TestRunEvaluateMissingDirectory(t *testing.T) {
	root := t.TempDir()
	writeImages(t, filepath.Join(root, "faces"), "face.jpg")

	opts := Options{
		PositivePath: filepath.Join(root, "faces"),
		NegativePath: filepath.Join(root, "nope"),
		NumEngines:   1,
	}
	err := runEvaluate(context.Background(), &bytes.Buffer{}, opts, byName, nil)

	var dirErr *eval.DirectoryAccessError
	if !errors.As(err, &dirErr) {
		t.Fatalf("Expected DirectoryAccessError, got %v", err)
	}
	if dirErr.Path != opts.NegativePath {
		t.Errorf("Expected path %q, got %q", opts.NegativePath, dirErr.Path)
	}
}

func TestIsArchive(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "set.zip")
	writeZip(t, zipPath, "a.jpg")
	zipDir := filepath.Join(root, "folder.zip")
	if err := os.Mkdir(zipDir, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{zipPath, true},
		{zipDir, false},
		{root, false},
		{filepath.Join(root, "missing.zip"), false},
	}
	for _, tt := range tests {
		if got := isArchive(tt.path); got != tt.want {
			t.Errorf("isArchive(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRunDetectFoldsUnreadable(t *testing.T) {
	broken := detector.Func(func(path string) (int, error) {
		return 0, detector.Unreadable(path, errors.New("bad header"))
	})

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := runDetect(cmd, broken, "x.jpg"); err != nil {
		t.Fatalf("runDetect failed: %v", err)
	}
	if got := out.String(); got != "x.jpg: 0 face(s)\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestResolveDBURL(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "facecheck")
	t.Setenv("POSTGRES_PORT", "")

	if got, want := resolveDBURL(), "postgres://u:p@db:5432/facecheck"; got != want {
		t.Errorf("resolveDBURL() = %q, want %q", got, want)
	}

	dbURL = "postgres://override/x"
	defer func() { dbURL = "" }()
	if got := resolveDBURL(); got != dbURL {
		t.Errorf("Expected --db to win, got %q", got)
	}
}

func TestNeedsDB(t *testing.T) {
	if needsDB(detectCmd) {
		t.Error("detect should not need the database")
	}
	if !needsDB(historyCmd) {
		t.Error("history should need the database")
	}

	c := &cobra.Command{}
	c.Flags().Bool("save", false, "")
	if needsDB(c) {
		t.Error("Expected no database without --save")
	}
	c.Flags().Set("save", "true")
	if !needsDB(c) {
		t.Error("Expected --save to require the database")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		r := bufio.NewReader(strings.NewReader(tt.input))
		if got := confirm(r, &bytes.Buffer{}, "sure?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
