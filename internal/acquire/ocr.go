package acquire

import "context"

// OCR recognizes the text in one image.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// OCROptions configures the Tesseract engine.
type OCROptions struct {
	Language string // tesseract language code, e.g. "eng" or "eng+hin"
	PSM      int    // page segmentation mode; 0 keeps the engine default
}

func (o OCROptions) withDefaults() OCROptions {
	if o.Language == "" {
		o.Language = "eng"
	}
	return o
}
