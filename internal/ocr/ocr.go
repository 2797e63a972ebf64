// Package ocr decodes documents into plain text with poppler and tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "ell+eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	TessdataDir   string

	HeicConverter string // heif-convert | magick | sips; empty -> HEIC unsupported

	Timeout time.Duration // bounds the external tools of one Decode; 0 = none
}

type Decoder struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Decoder)

// WithRunner swaps the command runner (tests).
func WithRunner(r Runner) Option {
	return func(d *Decoder) {
		if r != nil {
			d.runner = r
		}
	}
}

func NewDecoder(cfg Config, logger *slog.Logger, opts ...Option) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "ell+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	d := &Decoder{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode picks a strategy from the document name's extension.
// Plain text is returned byte-for-byte.
func (d *Decoder) Decode(ctx context.Context, doc entity.Document) (string, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(doc.Name))
	format := constants.MapExtToFormat(ext)
	d.logger.Debug("starting decode", "document", doc.Name, "format", format, "bytes", len(doc.Data))

	if format == constants.TXT {
		return string(doc.Data), nil
	}
	if format == "" {
		d.logger.Error("unsupported document extension", "extension", ext)
		return "", common.DecodeError("unsupported document", fmt.Errorf("extension %q", ext))
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	// External tools need a path.
	tmpDir, err := os.MkdirTemp("", "inv-doc-*")
	if err != nil {
		return "", common.DecodeError("create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			d.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()
	path := filepath.Join(tmpDir, "document."+ext)
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		return "", common.DecodeError("write temp document", err)
	}

	var (
		text   string
		method string
	)
	switch format {
	case constants.PDF:
		text, method, err = d.decodePDF(ctx, path)
	case constants.IMAGE:
		text, err = d.tesseractOCR(ctx, path)
		method = "image-ocr"
	case constants.HEIC:
		var png string
		if png, err = d.convertHEIC(ctx, path, filepath.Join(tmpDir, "page.png")); err == nil {
			text, err = d.tesseractOCR(ctx, png)
		}
		method = "heic-ocr"
	}
	if err != nil {
		return "", common.DecodeError("decode "+doc.Name, err)
	}

	d.logger.Info("document decoded",
		"document", doc.Name,
		"method", method,
		"chars", len([]rune(text)),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
