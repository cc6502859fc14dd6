package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/dgallion1/labgest/internal/config"
)

func TestParseCommand_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cbc.txt")
	report := "Hemoglobin: 11.2 g/dL (12.0-18.0)\nWBC 9500 /uL\n"
	if err := os.WriteFile(path, []byte(report), 0o600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	app := &cli.Command{
		Name:     "labgest",
		Writer:   &buf,
		Commands: []*cli.Command{cmdParse},
	}
	if err := app.Run(context.Background(), []string{"labgest", "parse", "--json", "--tips", path}); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Report map[string]struct {
			Value  float64 `json:"value"`
			Status string  `json:"status"`
		} `json:"report"`
		Tips []string `json:"tips"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if hb := out.Report["hemoglobin"]; hb.Value != 11.2 || hb.Status != "Low" {
		t.Errorf("unexpected hemoglobin %+v", hb)
	}
	if wbc := out.Report["wbc"]; wbc.Status != "Normal" {
		t.Errorf("expected wbc Normal, got %+v", wbc)
	}
	if len(out.Tips) != 3 {
		t.Errorf("expected default tips, got %v", out.Tips)
	}
}

func TestParseCommand_MissingFile(t *testing.T) {
	if _, err := readReport(context.Background(), config.Config{}, filepath.Join(t.TempDir(), "missing.txt"), nil, nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadReport_Stdin(t *testing.T) {
	cfg := config.Config{MaxUploadBytes: 16}
	ctx := context.Background()

	text, err := readReport(ctx, cfg, "-", strings.NewReader("TSH 5.9\nAMH 2.3"), nil)
	if err != nil {
		t.Fatalf("expected stdin within limit to be read, got %v", err)
	}
	if text != "TSH 5.9\nAMH 2.3" {
		t.Errorf("expected full text, got %q", text)
	}

	if _, err := readReport(ctx, cfg, "-", strings.NewReader(strings.Repeat("x", 17)), nil); err == nil || !strings.Contains(err.Error(), "exceeds max size") {
		t.Errorf("expected size error for oversized stdin, got %v", err)
	}
}

func TestParseCommand_Stdin(t *testing.T) {
	var buf bytes.Buffer
	app := &cli.Command{
		Name:     "labgest",
		Reader:   strings.NewReader("TSH 5.9 uIU/mL\n"),
		Writer:   &buf,
		Commands: []*cli.Command{cmdParse},
	}
	if err := app.Run(context.Background(), []string{"labgest", "parse", "--json", "-"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"tsh"`) {
		t.Errorf("expected tsh in output, got %q", buf.String())
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := loadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Tests()) == 0 {
		t.Error("expected built-in tests")
	}
	if _, err := loadCatalog(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing catalog file")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	st, err := openStore(ctx, config.Config{StoreBackend: config.StoreMemory}, nil)
	if err != nil {
		t.Fatal(err)
	}
	st.Close()
	if _, err := openStore(ctx, config.Config{StoreBackend: "redis"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewGenerator_None(t *testing.T) {
	gen, err := newGenerator(context.Background(), config.Config{LLMProvider: config.ProviderAuto})
	if err != nil {
		t.Fatal(err)
	}
	if gen != nil {
		t.Errorf("expected no generator, got %T", gen)
	}
	gen, err = newGenerator(context.Background(), config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKey: "k", AnthropicModel: "m"})
	if err != nil || gen == nil || gen.Model() != "m" {
		t.Errorf("expected anthropic generator, got %v (%v)", gen, err)
	}
}
