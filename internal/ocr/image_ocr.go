package ocr

import (
	"context"
	"fmt"
)

func (d *Decoder) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", d.cfg.TesseractLang}
	if d.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", d.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := d.runner.Run(ctx, d.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
