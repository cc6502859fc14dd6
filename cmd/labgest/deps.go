package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/labgest/internal/acquire"
	"github.com/dgallion1/labgest/internal/catalog"
	"github.com/dgallion1/labgest/internal/config"
	"github.com/dgallion1/labgest/internal/enhance"
	"github.com/dgallion1/labgest/internal/pathstore"
	"github.com/dgallion1/labgest/internal/store"
	"github.com/dgallion1/labgest/internal/store/memstore"
	"github.com/dgallion1/labgest/internal/store/pgstore"
)

// loadCatalog returns the built-in catalog unless path names an override.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// newGenerator returns nil when no provider is configured.
func newGenerator(ctx context.Context, cfg config.Config) (enhance.Generator, error) {
	switch cfg.Provider() {
	case config.ProviderGemini:
		g, err := enhance.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderAnthropic:
		return enhance.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	}
	return nil, nil
}

// newAcquirer builds the text acquirer. A missing OCR engine disables OCR
// rather than failing startup.
func newAcquirer(cfg config.Config, log *slog.Logger) *acquire.Acquirer {
	opts := acquire.Options{
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		DPI:               cfg.OCRDPI,
	}
	if cfg.OCREnabled {
		ocr, err := acquire.NewOCR(acquire.OCROptions{Language: cfg.OCRLanguage, PSM: cfg.OCRPSM})
		if err != nil {
			log.Warn("ocr unavailable, images and scanned pdfs will fail", "error", err)
		} else {
			opts.OCR = ocr
		}
	}
	return acquire.New(opts)
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		st, err := pgstore.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	case config.StorePathstore:
		client := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		return pathstore.NewStore(client, log), nil
	case config.StoreMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
