package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF reports. It reads the text layer with the Go
// library, falls back to pdftotext if enabled, and OCRs rasterized pages when
// the text layer is blank (scanned reports).
type PDFExtractor struct {
	FallbackPdftotext bool
	OCR               OCR
	DPI               int
}

func (p *PDFExtractor) Extract(ctx context.Context, r io.Reader, _ string) (string, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "labgest-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(ctx, tmpPath)
	}
	if err != nil && p.OCR == nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	if strings.TrimSpace(text) == "" && p.OCR != nil {
		ocrText, ocrErr := p.ocrPages(ctx, tmpPath)
		if ocrErr != nil {
			if err != nil {
				return "", fmt.Errorf("extract pdf text: %w; ocr: %w", err, ocrErr)
			}
			return "", fmt.Errorf("ocr scanned pdf: %w", ocrErr)
		}
		return ocrText, nil
	}
	return pagesToLines(text), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// ocrPages rasterizes every page with pdftoppm and recognizes each image.
func (p *PDFExtractor) ocrPages(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "labgest-pages-*")
	if err != nil {
		return "", fmt.Errorf("create page dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dpi := p.DPI
	if dpi <= 0 {
		dpi = 300
	}
	cmd := exec.CommandContext(ctx, "pdftoppm", "-r", strconv.Itoa(dpi), "-png", path, filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return "", err
	}
	// pdftoppm zero-pads page numbers to a common width, so names sort in
	// page order.
	slices.Sort(pages)

	var texts []string
	for _, pg := range pages {
		img, err := os.ReadFile(pg)
		if err != nil {
			return "", fmt.Errorf("read page image: %w", err)
		}
		t, err := p.OCR.Recognize(ctx, img)
		if err != nil {
			return "", fmt.Errorf("%s: %w", filepath.Base(pg), err)
		}
		texts = append(texts, t)
	}
	return pagesToLines(strings.Join(texts, "\f")), nil
}

// pagesToLines drops page breaks and blank lines.
func pagesToLines(text string) string {
	var lines []string
	for _, page := range strings.Split(text, "\f") {
		for _, ln := range strings.Split(page, "\n") {
			if ln = strings.TrimRight(ln, " \t\r"); strings.TrimSpace(ln) != "" {
				lines = append(lines, ln)
			}
		}
	}
	return strings.Join(lines, "\n")
}
