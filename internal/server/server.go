// Package server exposes the evaluator over HTTP: an upload page for people and
// a JSON endpoint for scripts. Both accept a zip of face images and a zip of
// non-face images.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/andresmejia3/facecheck/internal/archive"
	"github.com/andresmejia3/facecheck/internal/detector"
	"github.com/andresmejia3/facecheck/internal/eval"
	"github.com/andresmejia3/facecheck/internal/report"
	"github.com/gofiber/fiber/v2"
)

// Form field names of the two uploads.
const (
	FieldFaces    = "faces"
	FieldNonFaces = "non_faces"
)

//go:embed templates/index.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/index.html"))

// Config holds the server settings.
type Config struct {
	Addr string
	// MaxUploadBytes bounds the whole request body.
	MaxUploadBytes int
	// MaxArchiveBytes bounds the uncompressed size of each archive.
	MaxArchiveBytes int64
	// TempDir is where workspaces are created; empty means the system default.
	TempDir  string
	Workers  int
	Detector string
}

// DefaultConfig returns the settings used by `facecheck serve` without flags.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxUploadBytes:  512 << 20,
		MaxArchiveBytes: archive.DefaultMaxBytes,
		Workers:         1,
	}
}

// Server serves evaluations using a detector borrowed for its whole lifetime.
type Server struct {
	cfg    Config
	det    detector.Detector
	logger *slog.Logger
	app    *fiber.App
}

// New builds the server and registers its routes.
func New(cfg Config, det detector.Detector, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, det: det, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "facecheck",
		BodyLimit:             cfg.MaxUploadBytes,
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Minute,
	})

	s.app.Get("/", s.handleIndex)
	s.app.Post("/", s.handlePage)
	s.app.Post("/api/evaluate", s.handleAPI)
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	s.logger.Info("listening", "addr", s.cfg.Addr, "detector", s.cfg.Detector)
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown stops accepting requests and waits for in-flight evaluations.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type pageData struct {
	Detector string
	Report   string
	Summary  []report.Metric
	Error    string
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, pageData{Detector: s.cfg.Detector})
}

func (s *Server) handlePage(c *fiber.Ctx) error {
	r, status, err := s.evaluate(c)
	if err != nil {
		return s.render(c, status, pageData{Detector: s.cfg.Detector, Error: err.Error()})
	}
	return s.render(c, fiber.StatusOK, pageData{
		Detector: s.cfg.Detector,
		Report:   report.Text(r),
		Summary:  report.Summary(r),
	})
}

func (s *Server) handleAPI(c *fiber.Ctx) error {
	r, status, err := s.evaluate(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report.Document{Detector: s.cfg.Detector, Report: r, Summary: report.Summary(r)})
}

func (s *Server) render(c *fiber.Ctx, status int, data pageData) error {
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// evaluate extracts both uploads into a fresh workspace, scores them and
// removes the workspace on every path out.
func (s *Server) evaluate(c *fiber.Ctx) (eval.Report, int, error) {
	faces, err := c.FormFile(FieldFaces)
	if err != nil {
		return eval.Report{}, fiber.StatusBadRequest, fmt.Errorf("missing upload %q", FieldFaces)
	}
	nonFaces, err := c.FormFile(FieldNonFaces)
	if err != nil {
		return eval.Report{}, fiber.StatusBadRequest, fmt.Errorf("missing upload %q", FieldNonFaces)
	}

	ws, err := archive.NewWorkspace(s.cfg.TempDir)
	if err != nil {
		s.logger.Error("workspace setup failed", "error", err)
		return eval.Report{}, fiber.StatusInternalServerError, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			s.logger.Warn("workspace cleanup failed", "root", ws.Root, "error", err)
		}
	}()
	if s.cfg.MaxArchiveBytes != 0 {
		ws.MaxBytes = s.cfg.MaxArchiveBytes
	}

	posDir, err := extractUpload(faces, ws.ExtractPositive)
	if err != nil {
		return eval.Report{}, statusFor(err), err
	}
	negDir, err := extractUpload(nonFaces, ws.ExtractNegative)
	if err != nil {
		return eval.Report{}, statusFor(err), err
	}

	start := time.Now()
	e := eval.New(s.det, eval.WithWorkers(s.cfg.Workers), eval.WithLogger(s.logger))
	r, err := e.Evaluate(c.UserContext(), posDir, negDir)
	if err != nil {
		s.logger.Error("evaluation failed", "error", err)
		return eval.Report{}, statusFor(err), err
	}

	s.logger.Info("evaluation complete",
		"faces", faces.Filename, "non_faces", nonFaces.Filename,
		"samples", r.Total(), "unreadable", r.Unreadable,
		"accuracy", r.Accuracy, "duration", time.Since(start))
	return r, fiber.StatusOK, nil
}

type extractFunc func(name string, r io.ReaderAt, size int64) (string, error)

func extractUpload(fh *multipart.FileHeader, extract extractFunc) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", &archive.ExtractionError{Archive: fh.Filename, Err: err}
	}
	defer f.Close()
	return extract(fh.Filename, f, fh.Size)
}

func statusFor(err error) int {
	var extErr *archive.ExtractionError
	if errors.As(err, &extErr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
