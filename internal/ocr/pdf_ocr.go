package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// decodePDF prefers the embedded text layer and falls back to rasterize + OCR
// for scanned documents.
func (d *Decoder) decodePDF(ctx context.Context, path string) (string, string, error) {
	text, err := d.pdfToText(ctx, path)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(strings.ReplaceAll(text, "\f", "")) != "" {
		return text, "pdf-text", nil
	}
	d.logger.Debug("pdf has no text layer, falling back to ocr", "path", path)
	text, err = d.pdfToOCR(ctx, path)
	return text, "pdf-ocr", err
}

func (d *Decoder) pdfToText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := d.runner.Run(ctx, d.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (d *Decoder) pdfToOCR(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := d.runner.Run(ctx, d.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", d.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if d.cfg.MaxPages > 0 && len(matches) > d.cfg.MaxPages {
		matches = matches[:d.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm rendered no pages")
	}

	var b strings.Builder
	for _, img := range matches {
		txt, err := d.tesseractOCR(ctx, img)
		if err != nil {
			d.logger.Warn("page ocr failed", "page", filepath.Base(img), "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}
