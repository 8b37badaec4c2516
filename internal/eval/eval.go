// Package eval scores a face detector against a labeled corpus: a directory of
// images known to contain faces and a directory of images known not to.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/andresmejia3/facecheck/internal/types"
	"github.com/andresmejia3/facecheck/internal/worker"
)

// DirectoryAccessError reports a sample directory that is missing or cannot be listed.
type DirectoryAccessError struct {
	Path string
	Err  error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("cannot access sample directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// ProgressFunc is called after each sample is classified with the face count used.
type ProgressFunc func(s types.Sample, faces int)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers sets how many samples are classified concurrently.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.workers = n }
}

// WithLogger sets the logger used for per-sample diagnostics. A nil logger
// leaves the default in place.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgress registers a callback invoked once per classified sample.
// With more than one worker it is called from several goroutines.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Evaluator) { e.progress = fn }
}

// Evaluator borrows a Detector and turns its face counts into a confusion matrix.
// It holds no per-run state and may be reused.
type Evaluator struct {
	det      detector.Detector
	workers  int
	logger   *slog.Logger
	progress ProgressFunc
}

// New returns an Evaluator that classifies with det.
func New(det detector.Detector, opts ...Option) *Evaluator {
	e := &Evaluator{det: det, workers: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Evaluate lists both directories and classifies every qualifying image in them.
func (e *Evaluator) Evaluate(ctx context.Context, positiveDir, negativeDir string) (Report, error) {
	samples, err := Collect(positiveDir, negativeDir)
	if err != nil {
		return Report{}, err
	}
	return e.Run(ctx, samples)
}

// Run classifies samples and reduces the outcomes to a Report. The detector is
// called exactly once per sample.
func (e *Evaluator) Run(ctx context.Context, samples []types.Sample) (Report, error) {
	partials, err := worker.Run(ctx, e.workers, samples, e.classify)
	if err != nil {
		return Report{}, err
	}

	var total Counts
	for _, p := range partials {
		total = total.Add(p)
	}
	return total.Report(), nil
}

func (e *Evaluator) classify(_ context.Context, task types.SampleTask, acc *Counts) error {
	s := task.Sample
	faces, err := e.det.Detect(s.Path)
	if err != nil {
		if !errors.Is(err, detector.ErrUnreadableImage) {
			return fmt.Errorf("detect %s: %w", s.Path, err)
		}
		// Unreadable images count as "no face found".
		e.logger.Warn("unreadable image counted as no face", "path", s.Path, "label", s.Label.String(), "error", err)
		acc.Unreadable++
		faces = 0
	}

	acc.Record(s.Label, faces)
	e.logger.Debug("classified sample", "index", task.Index, "path", s.Path, "label", s.Label.String(), "faces", faces)

	if e.progress != nil {
		e.progress(s, faces)
	}
	return nil
}

// Collect lists the qualifying images of both directories, positives first.
// Either directory failing to list aborts the whole collection.
func Collect(positiveDir, negativeDir string) ([]types.Sample, error) {
	positives, err := ListSamples(positiveDir, types.Positive)
	if err != nil {
		return nil, err
	}
	negatives, err := ListSamples(negativeDir, types.Negative)
	if err != nil {
		return nil, err
	}
	return append(positives, negatives...), nil
}

// ListSamples returns the images directly inside dir whose extension is supported,
// sorted by file name. Subdirectories, including symlinks to directories, are
// skipped rather than descended into.
func ListSamples(dir string, label types.Label) ([]types.Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryAccessError{Path: dir, Err: err}
	}

	samples := make([]types.Sample, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !detector.IsSupported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			// Broken links stay in and score as unreadable.
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				continue
			}
		}
		samples = append(samples, types.Sample{Path: path, Label: label})
	}
	return samples, nil
}
