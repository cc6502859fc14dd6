package pipeline

import (
	"context"

	"github.com/dgallion1/labgest/internal/catalog"
	"github.com/dgallion1/labgest/internal/classify"
	"github.com/dgallion1/labgest/internal/compose"
	"github.com/dgallion1/labgest/internal/extract"
)

// Analysis is a parsed, classified and summarized report.
type Analysis struct {
	Report  classify.Report `json:"report"`
	Summary compose.Summary `json:"summary"`
}

// Analyzer runs the text-to-summary steps shared by the worker, the parse
// route and the CLI.
type Analyzer struct {
	parser     *extract.Parser
	classifier *classify.Classifier
	composer   *compose.Composer
}

func NewAnalyzer(c *catalog.Catalog, composer *compose.Composer) *Analyzer {
	return &Analyzer{
		parser:     extract.NewParser(c),
		classifier: classify.NewClassifier(c),
		composer:   composer,
	}
}

// Classify parses and classifies text. Empty text yields an empty report.
func (a *Analyzer) Classify(text string) classify.Report {
	return a.classifier.Classify(a.parser.Parse(text))
}

// Analyze classifies text and composes its summary.
func (a *Analyzer) Analyze(ctx context.Context, text string) Analysis {
	return a.Summarize(ctx, a.Classify(text))
}

// Summarize composes the summary of an already classified report.
func (a *Analyzer) Summarize(ctx context.Context, report classify.Report) Analysis {
	return Analysis{Report: report, Summary: a.composer.Summarize(ctx, report)}
}

// Tips returns health tips for an analysis.
func (a *Analyzer) Tips(ctx context.Context, an Analysis) []string {
	return a.composer.Tips(ctx, an.Report, an.Summary)
}
