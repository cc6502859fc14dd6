package acquire

import (
	"context"
	"fmt"
	"io"
)

const maxImageBytes = 50 << 20

// ImageExtractor handles photographed or scanned reports.
type ImageExtractor struct {
	OCR OCR
}

func (e *ImageExtractor) Extract(ctx context.Context, r io.Reader, _ string) (string, error) {
	if e.OCR == nil {
		return "", ErrNoOCR
	}
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return e.OCR.Recognize(ctx, data)
}
