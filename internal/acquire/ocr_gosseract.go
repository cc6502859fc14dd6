//go:build ocr

package acquire

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// libTesseract recognizes images through libtesseract bindings. A gosseract
// client is not safe for concurrent use, so each call gets its own.
type libTesseract struct {
	opts OCROptions
}

// NewOCR returns the libtesseract-backed engine selected by the "ocr" build tag.
func NewOCR(opts OCROptions) (OCR, error) {
	return &libTesseract{opts: opts.withDefaults()}, nil
}

func (l *libTesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(l.opts.Language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if l.opts.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(l.opts.PSM)); err != nil {
			return "", fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}
