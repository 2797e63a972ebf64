package ocr

import (
	"context"
	"fmt"
	"os"
)

// convertHEIC writes a PNG rendering of in to out with the configured converter.
func (d *Decoder) convertHEIC(ctx context.Context, in, out string) (string, error) {
	var args []string
	switch d.cfg.HeicConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", fmt.Errorf("HEIC not supported: set OCR_HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := d.runner.Run(ctx, d.cfg.HeicConverter, args...); err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", d.cfg.HeicConverter, err, truncate(string(errb), 512))
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	d.logger.Debug("converted heic to png", "converter", d.cfg.HeicConverter)
	return out, nil
}
