//go:build !ocr

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// tesseractCLI runs the tesseract binary once per image.
type tesseractCLI struct {
	opts OCROptions
}

// NewOCR returns the default OCR engine. Without the "ocr" build tag it shells
// out to the tesseract command, which must be on PATH.
func NewOCR(opts OCROptions) (OCR, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return nil, fmt.Errorf("tesseract not found: %w", err)
	}
	return &tesseractCLI{opts: opts.withDefaults()}, nil
}

func (t *tesseractCLI) Recognize(ctx context.Context, image []byte) (string, error) {
	tmp, err := os.CreateTemp("", "labgest-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	return t.recognizeFile(ctx, tmp.Name())
}

func (t *tesseractCLI) recognizeFile(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", t.opts.Language}
	if t.opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.opts.PSM))
	}
	cmd := exec.CommandContext(ctx, "tesseract", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
