package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "LLM_PROVIDER", "WORKER_COUNT", "JOB_TTL", "CHAT_WINDOW", "OCR_DPI", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Errorf("expected memory backend, got %q", cfg.StoreBackend)
	}
	if cfg.LLMProvider != ProviderAuto {
		t.Errorf("expected auto provider, got %q", cfg.LLMProvider)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h job TTL, got %v", cfg.JobTTL)
	}
	if cfg.ChatWindow != 6 {
		t.Errorf("expected chat window 6, got %d", cfg.ChatWindow)
	}
	if cfg.OCRDPI != 300 {
		t.Errorf("expected 300 dpi, got %d", cfg.OCRDPI)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "9")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("OCR_ENABLED", "true")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	cfg := Load()
	if cfg.WorkerCount != 9 {
		t.Errorf("expected 9 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 15*time.Minute {
		t.Errorf("expected 15m, got %v", cfg.JobTTL)
	}
	if !cfg.OCREnabled {
		t.Error("expected OCR enabled")
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback disabled")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-2")
	t.Setenv("MAX_QUEUE_SIZE", "lots")
	t.Setenv("JOB_TTL", "soon")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("expected queue 100, got %d", cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h, got %v", cfg.JobTTL)
	}
}

func validConfig() Config {
	return Config{
		APIKey:       "secret",
		StoreBackend: StoreMemory,
		LLMProvider:  ProviderAuto,
		LogFormat:    "json",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.APIKey = "" }, "LABGEST_API_KEY"},
		{"postgres without url", func(c *Config) { c.StoreBackend = StorePostgres }, "DATABASE_URL"},
		{"postgres with url", func(c *Config) { c.StoreBackend = StorePostgres; c.DatabaseURL = "postgres://x" }, ""},
		{"pathstore without key", func(c *Config) { c.StoreBackend = StorePathstore }, "PATHSTORE_API_KEY"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, "STORE_BACKEND"},
		{"gemini without key", func(c *Config) { c.LLMProvider = ProviderGemini }, "GEMINI_API_KEY"},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }, "ANTHROPIC_API_KEY"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "llama" }, "LLM_PROVIDER"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"auto none", Config{LLMProvider: ProviderAuto}, ProviderNone},
		{"auto gemini first", Config{LLMProvider: ProviderAuto, GeminiAPIKey: "g", AnthropicAPIKey: "a"}, ProviderGemini},
		{"auto anthropic", Config{LLMProvider: ProviderAuto, AnthropicAPIKey: "a"}, ProviderAnthropic},
		{"explicit none", Config{LLMProvider: ProviderNone, GeminiAPIKey: "g"}, ProviderNone},
	}
	for _, tc := range tests {
		if got := tc.cfg.Provider(); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
