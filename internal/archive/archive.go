// Package archive unpacks uploaded sample corpora into a scoped temporary workspace.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// DefaultMaxBytes caps the total uncompressed size of one archive.
const DefaultMaxBytes int64 = 2 << 30

const (
	positiveDirName = "faces"
	negativeDirName = "non_faces"
	macMetadataDir  = "__MACOSX"
)

// ErrTooLarge is returned when an archive inflates past its byte limit.
var ErrTooLarge = errors.New("archive exceeds size limit")

// ExtractionError reports an archive that could not be unpacked. Nothing from
// the failed archive is left on disk when it is returned.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract archive %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Workspace is a temporary directory holding one positive and one negative corpus.
// Callers must Close it, typically with defer, to remove everything it extracted.
type Workspace struct {
	Root        string
	PositiveDir string
	NegativeDir string
	// MaxBytes limits the uncompressed size of each archive.
	MaxBytes int64
}

// NewWorkspace creates the temporary directory tree under parent, or under the
// system temp directory when parent is empty.
func NewWorkspace(parent string) (*Workspace, error) {
	root, err := os.MkdirTemp(parent, "facecheck-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	ws := &Workspace{
		Root:        root,
		PositiveDir: filepath.Join(root, positiveDirName),
		NegativeDir: filepath.Join(root, negativeDirName),
		MaxBytes:    DefaultMaxBytes,
	}
	for _, dir := range []string{ws.PositiveDir, ws.NegativeDir} {
		if err := os.Mkdir(dir, 0755); err != nil {
			os.RemoveAll(root)
			return nil, fmt.Errorf("failed to create workspace: %w", err)
		}
	}
	return ws, nil
}

// ExtractPositive unpacks the face archive and returns the directory holding its samples.
func (w *Workspace) ExtractPositive(name string, r io.ReaderAt, size int64) (string, error) {
	return w.extract(name, r, size, w.PositiveDir)
}

// ExtractNegative unpacks the non-face archive and returns the directory holding its samples.
func (w *Workspace) ExtractNegative(name string, r io.ReaderAt, size int64) (string, error) {
	return w.extract(name, r, size, w.NegativeDir)
}

// ExtractPositiveFile is ExtractPositive for an archive on disk.
func (w *Workspace) ExtractPositiveFile(path string) (string, error) {
	return w.extractFile(path, w.PositiveDir)
}

// ExtractNegativeFile is ExtractNegative for an archive on disk.
func (w *Workspace) ExtractNegativeFile(path string) (string, error) {
	return w.extractFile(path, w.NegativeDir)
}

func (w *Workspace) extractFile(path, dest string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ExtractionError{Archive: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ExtractionError{Archive: path, Err: err}
	}
	return w.extract(path, f, info.Size(), dest)
}

func (w *Workspace) extract(name string, r io.ReaderAt, size int64, dest string) (string, error) {
	if err := Extract(r, size, dest, w.MaxBytes); err != nil {
		// Leave an empty destination rather than a partial corpus.
		os.RemoveAll(dest)
		os.Mkdir(dest, 0755)
		return "", &ExtractionError{Archive: name, Err: err}
	}
	return SampleRoot(dest)
}

// Close removes the workspace and everything extracted into it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.Root)
}

// Extract unpacks a zip archive into dest, which must already exist. Entries that
// would land outside dest are rejected, symlinks are skipped, and extraction stops
// once more than maxBytes have been written (maxBytes <= 0 disables the limit).
func Extract(r io.ReaderAt, size int64, dest string, maxBytes int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return err
	}

	remaining := maxBytes
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if name == macMetadataDir+"/" || strings.HasPrefix(name, macMetadataDir+"/") {
			continue
		}

		target, err := safeJoin(dest, name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir() || strings.HasSuffix(name, "/"):
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		case mode&os.ModeSymlink != 0:
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		written, err := writeEntry(f, target, remaining, maxBytes > 0)
		if err != nil {
			return err
		}
		remaining -= written
	}
	return nil
}

func writeEntry(f *zip.File, target string, remaining int64, limited bool) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	if !limited {
		n, err := io.Copy(out, rc)
		if err != nil {
			return n, fmt.Errorf("%s: %w", f.Name, err)
		}
		return n, nil
	}

	// Copy one byte past the budget to detect overflow without trusting the header sizes.
	n, err := io.CopyN(out, rc, remaining+1)
	if n > remaining {
		return n, ErrTooLarge
	}
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%s: %w", f.Name, err)
	}
	return n, nil
}

func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("illegal absolute path in archive: %s", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}
	return target, nil
}

// SampleRoot returns the directory under dir that holds the samples. Archives
// are often built by zipping a folder, so while dir contains nothing but a single
// subdirectory that subdirectory is used instead. Dot-files such as .DS_Store
// do not count.
func SampleRoot(dir string) (string, error) {
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}

		var only string
		count := 0
		for _, e := range entries {
			if e.Name() == macMetadataDir || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			count++
			if e.IsDir() {
				only = e.Name()
			}
		}
		if count != 1 || only == "" {
			return dir, nil
		}
		dir = filepath.Join(dir, only)
	}
}
