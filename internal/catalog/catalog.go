package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// TestKey is the canonical identifier of a lab test, e.g. "hemoglobin".
type TestKey string

// Test pairs a TestKey with the substrings that detect it in a lower-cased line.
type Test struct {
	Key     TestKey  `json:"key"`
	Aliases []string `json:"aliases"`
}

// Threshold is the clinical reference range for a threshold key.
type Threshold struct {
	Key  string  `json:"key"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Unit string  `json:"unit"`
}

// Catalog holds the alias and threshold tables. It is immutable once built and
// safe to share between goroutines.
type Catalog struct {
	tests      []Test
	thresholds []Threshold
	byKey      map[string]Threshold
	priority   map[TestKey]int
}

// New validates and freezes the two tables. Slice order is significant: tests
// are matched in order, and the threshold fallback scans in order.
func New(tests []Test, thresholds []Threshold) (*Catalog, error) {
	c := &Catalog{
		byKey:    make(map[string]Threshold, len(thresholds)),
		priority: make(map[TestKey]int, len(tests)),
	}

	for i, t := range tests {
		key := TestKey(strings.TrimSpace(string(t.Key)))
		if key == "" {
			return nil, fmt.Errorf("test %d: empty key", i)
		}
		if _, dup := c.priority[key]; dup {
			return nil, fmt.Errorf("test %q: duplicate key", key)
		}
		if len(t.Aliases) == 0 {
			return nil, fmt.Errorf("test %q: no aliases", key)
		}
		aliases := make([]string, 0, len(t.Aliases))
		for _, a := range t.Aliases {
			a = strings.ToLower(a)
			if strings.TrimSpace(a) == "" {
				return nil, fmt.Errorf("test %q: empty alias", key)
			}
			aliases = append(aliases, a)
		}
		c.priority[key] = len(c.tests)
		c.tests = append(c.tests, Test{Key: key, Aliases: aliases})
	}

	for i, th := range thresholds {
		if th.Key == "" {
			return nil, fmt.Errorf("threshold %d: empty key", i)
		}
		if th.Low > th.High {
			return nil, fmt.Errorf("threshold %q: low %v above high %v", th.Key, th.Low, th.High)
		}
		// Keys are stored as written; "fs h" and "fsh" are distinct entries.
		if _, dup := c.byKey[th.Key]; dup {
			return nil, fmt.Errorf("threshold %q: duplicate key", th.Key)
		}
		c.byKey[th.Key] = th
		c.thresholds = append(c.thresholds, th)
	}

	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultTests(), defaultThresholds())
	if err != nil {
		panic("catalog: invalid built-in tables: " + err.Error())
	}
	return c
}

// fileFormat is the on-disk shape of a catalog override.
type fileFormat struct {
	Tests      []Test      `json:"tests"`
	Thresholds []Threshold `json:"thresholds"`
}

// Load reads a catalog from a JSON file. Either table may be omitted, in which
// case the built-in one is used.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if f.Tests == nil {
		f.Tests = defaultTests()
	}
	if f.Thresholds == nil {
		f.Thresholds = defaultThresholds()
	}
	c, err := New(f.Tests, f.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Detect returns the first test whose alias list has a substring match in
// lineLower. The caller lower-cases the line.
func (c *Catalog) Detect(lineLower string) (TestKey, bool) {
	for _, t := range c.tests {
		for _, a := range t.Aliases {
			if strings.Contains(lineLower, a) {
				return t.Key, true
			}
		}
	}
	return "", false
}

// Threshold returns the entry stored under exactly key.
func (c *Catalog) Threshold(key string) (Threshold, bool) {
	th, ok := c.byKey[key]
	return th, ok
}

// Thresholds returns the threshold table in its defined order.
func (c *Catalog) Thresholds() []Threshold {
	out := make([]Threshold, len(c.thresholds))
	copy(out, c.thresholds)
	return out
}

// Tests returns the alias table in priority order.
func (c *Catalog) Tests() []Test {
	out := make([]Test, len(c.tests))
	for i, t := range c.tests {
		out[i] = Test{Key: t.Key, Aliases: append([]string(nil), t.Aliases...)}
	}
	return out
}

// Order sorts keys by detection priority. Keys unknown to the catalog (for
// example from a snapshot written under another catalog) go last, by name.
func (c *Catalog) Order(keys []TestKey) []TestKey {
	out := append([]TestKey(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, iok := c.priority[out[i]]
		pj, jok := c.priority[out[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}
