package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dgallion1/labgest/internal/compose"
	"github.com/dgallion1/labgest/internal/config"
	"github.com/dgallion1/labgest/internal/enhance"
	"github.com/dgallion1/labgest/internal/logging"
	"github.com/dgallion1/labgest/internal/pipeline"
)

var errFileRequired = errors.New("a report file is required (use - for stdin)")

var cmdParse = &cli.Command{
	Name:      "parse",
	Usage:     "Parse a report file and print its classified values",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print the report and summary as JSON",
		},
		&cli.StringFlag{
			Name:    "catalog",
			Sources: cli.EnvVars("CATALOG_FILE"),
			Usage:   "JSON file overriding the test and threshold tables",
		},
		&cli.BoolFlag{
			Name:  "tips",
			Usage: "also print health tips",
		},
		&cli.BoolFlag{
			Name:  "enhance",
			Usage: "rewrite the doctor note and tips with the configured LLM provider",
		},
	},
	Action: parse,
}

func parse(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errFileRequired
	}

	cfg := config.Load()
	log := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	cat, err := loadCatalog(cmd.String("catalog"))
	if err != nil {
		return err
	}

	var gen enhance.Generator
	if cmd.Bool("enhance") {
		if gen, err = newGenerator(ctx, cfg); err != nil {
			return fmt.Errorf("create text generator: %w", err)
		}
	}
	enhancer := enhance.NewEnhancer(gen, log)
	defer enhancer.Close()

	stdin := cmd.Root().Reader
	if stdin == nil {
		stdin = os.Stdin
	}
	text, err := readReport(ctx, cfg, path, stdin, log)
	if err != nil {
		return err
	}

	analyzer := pipeline.NewAnalyzer(cat, compose.NewComposer(cat, enhancer, log))
	an := analyzer.Analyze(ctx, text)
	var tips []string
	if cmd.Bool("tips") {
		tips = analyzer.Tips(ctx, an)
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			pipeline.Analysis
			Tips []string `json:"tips,omitempty"`
		}{an, tips})
	}

	fmt.Fprintln(out, an.Summary.English)
	fmt.Fprintln(out, an.Summary.DoctorNote)
	if len(tips) > 0 {
		fmt.Fprintln(out)
		for _, tip := range tips {
			fmt.Fprintln(out, "- "+tip)
		}
	}
	return nil
}

// readReport returns the text of a report file, or of stdin when path is "-".
// Stdin is read as plain text and must fit in MaxUploadBytes.
func readReport(ctx context.Context, cfg config.Config, path string, stdin io.Reader, log *slog.Logger) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, cfg.MaxUploadBytes+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if int64(len(data)) > cfg.MaxUploadBytes {
			return "", fmt.Errorf("stdin exceeds max size (%d bytes)", cfg.MaxUploadBytes)
		}
		return string(data), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	return newAcquirer(cfg, log).Extract(ctx, f, path)
}
