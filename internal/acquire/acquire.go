// Package acquire turns uploaded report files into raw text.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported is returned for file types with no extractor.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrNoOCR is returned when an image needs OCR and none is configured.
	ErrNoOCR = errors.New("ocr is not enabled")
)

// Extractor converts raw document bytes into plain text, one report line per
// text line. Blank output is not an error.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, filename string) (string, error)
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".bmp": true, ".gif": true, ".webp": true,
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = func() map[string]bool {
	m := map[string]bool{
		".txt":      true,
		".md":       true,
		".markdown": true,
		".csv":      true,
		".html":     true,
		".htm":      true,
		".pdf":      true,
		".docx":     true,
	}
	for ext := range imageExtensions {
		m[ext] = true
	}
	return m
}()

// Options configures the extractors that need external tools.
type Options struct {
	// FallbackPdftotext runs pdftotext when the PDF library fails.
	FallbackPdftotext bool
	// OCR recognizes images and scanned PDF pages. Nil disables OCR.
	OCR OCR
	// DPI is the rasterization resolution for scanned PDF pages.
	DPI int
}

// Acquirer dispatches files to the extractor for their extension.
type Acquirer struct {
	opts Options
}

func New(opts Options) *Acquirer {
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	return &Acquirer{opts: opts}
}

// OCREnabled reports whether images and scanned PDFs can be read.
func (a *Acquirer) OCREnabled() bool {
	return a.opts.OCR != nil
}

// Accepts reports whether the file type can be acquired with the configured
// engines. Images need OCR.
func (a *Acquirer) Accepts(filename string) bool {
	if IsImage(filename) {
		return a.OCREnabled()
	}
	return IsSupportedExtension(filename)
}

// ForFile returns the appropriate extractor for a filename.
func (a *Acquirer) ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: a.opts.FallbackPdftotext, OCR: a.opts.OCR, DPI: a.opts.DPI}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	}
	if imageExtensions[ext] {
		return &ImageExtractor{OCR: a.opts.OCR}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// Extract reads the whole document and returns its text.
func (a *Acquirer) Extract(ctx context.Context, r io.Reader, filename string) (string, error) {
	ex, err := a.ForFile(filename)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(ctx, r, filename)
	if err != nil {
		return "", fmt.Errorf("acquire %s: %w", filepath.Base(filename), err)
	}
	return text, nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsImage reports whether the file is handled by OCR alone.
func IsImage(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}
