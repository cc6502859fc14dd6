package compose

import (
	"context"
	"strings"

	"github.com/dgallion1/labgest/internal/classify"
)

// DefaultTips are returned when no generated tips are available.
var DefaultTips = []string{"Drink water", "Walk daily", "Sleep well"}

// Tips returns general health tips for a report. Generated tips are parsed from
// a bullet list; without a generator the fixed defaults are used.
func (c *Composer) Tips(ctx context.Context, r classify.Report, s Summary) []string {
	if !c.enhancer.Available() {
		return defaultTips()
	}
	text, err := c.enhancer.Generate(ctx, tipsPrompt(r, s))
	if err != nil {
		c.log.Warn("tips generation failed, using defaults", "error", err)
		return defaultTips()
	}
	return ParseBullets(text)
}

// ParseBullets returns the lines of text starting with "-" or "•", with the
// marker removed. Text without any bullet is returned whole.
func ParseBullets(text string) []string {
	text = strings.TrimSpace(text)
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if !strings.HasPrefix(ln, "-") && !strings.HasPrefix(ln, "•") {
			continue
		}
		if tip := strings.TrimSpace(strings.TrimLeft(ln, "-• ")); tip != "" {
			out = append(out, tip)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func defaultTips() []string {
	return append([]string(nil), DefaultTips...)
}
