package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/labgest/internal/catalog"
)

// Flag is an annotation printed on the report itself, not a computed status.
type Flag string

const (
	FlagUnset Flag = ""
	FlagLow   Flag = "Low"
	FlagHigh  Flag = "High"
)

// Observation is one parsed measurement.
type Observation struct {
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	Flag           Flag    `json:"flag"`
	ReferenceRange *string `json:"reference_range"`
}

// Report maps each detected test to its last observation in the document.
type Report map[catalog.TestKey]Observation

// Keys returns the report's tests in catalog priority order.
func (r Report) Keys(c *catalog.Catalog) []catalog.TestKey {
	keys := make([]catalog.TestKey, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return c.Order(keys)
}

var (
	numberRe = regexp.MustCompile(`[0-9]+\.?[0-9]*`)
	unitRe   = regexp.MustCompile(`(g/dl|mg/dl|ng/ml|iu/l|mlu/ml|%|/ul)`)
)

// Parser turns raw report text into a Report. It holds no mutable state.
type Parser struct {
	catalog *catalog.Catalog
}

func NewParser(c *catalog.Catalog) *Parser {
	return &Parser{catalog: c}
}

// Parse scans text line by line. Lines that name no known test, or name one
// without any number, are skipped. Later lines for the same test replace
// earlier ones.
func (p *Parser) Parse(text string) Report {
	report := make(Report)
	for _, line := range strings.Split(text, "\n") {
		key, obs, ok := p.ParseLine(strings.TrimSuffix(line, "\r"))
		if ok {
			report[key] = obs
		}
	}
	return report
}

// ParseLine extracts a single observation from one line.
func (p *Parser) ParseLine(line string) (catalog.TestKey, Observation, bool) {
	lower := strings.ToLower(line)

	key, ok := p.catalog.Detect(lower)
	if !ok {
		return "", Observation{}, false
	}

	nums := numberRe.FindAllString(line, -1)
	if len(nums) == 0 {
		return "", Observation{}, false
	}
	value, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return "", Observation{}, false
	}

	obs := Observation{
		Value: value,
		Unit:  detectUnit(lower),
		Flag:  detectFlag(lower),
	}
	if len(nums) >= 3 {
		ref := nums[1] + " - " + nums[2]
		obs.ReferenceRange = &ref
	}
	return key, obs, true
}

func detectUnit(lower string) string {
	if m := unitRe.FindStringSubmatch(lower); len(m) > 1 {
		return m[1]
	}
	return ""
}

func detectFlag(lower string) Flag {
	switch {
	case strings.Contains(lower, "low"):
		return FlagLow
	case strings.Contains(lower, "high"):
		return FlagHigh
	}
	return FlagUnset
}
