package classify

import (
	"math"
	"strings"

	"github.com/dgallion1/labgest/internal/catalog"
	"github.com/dgallion1/labgest/internal/extract"
)

// Status is the clinical classification of a value.
type Status string

const (
	StatusUnknown Status = ""
	StatusLow     Status = "Low"
	StatusNormal  Status = "Normal"
	StatusHigh    Status = "High"
)

// Field is an observation with its derived status.
type Field struct {
	extract.Observation
	Status Status `json:"status"`
}

// Report is a classified StructuredReport.
type Report map[catalog.TestKey]Field

// Alert is an abnormal field worth a doctor's attention.
type Alert struct {
	Key    catalog.TestKey `json:"key"`
	Status Status          `json:"status"`
	Value  float64         `json:"value"`
}

// Classifier assigns statuses using the catalog's threshold table.
type Classifier struct {
	catalog *catalog.Catalog
}

func NewClassifier(c *catalog.Catalog) *Classifier {
	return &Classifier{catalog: c}
}

// Status classifies one observation. An exact threshold key wins; otherwise
// the first threshold, in table order, whose key is a substring of the test key
// applies. With no threshold the report's own flag is used. NaN values are
// treated as absent.
func (c *Classifier) Status(key catalog.TestKey, obs extract.Observation) Status {
	if math.IsNaN(obs.Value) {
		return StatusUnknown
	}

	k := strings.ToLower(string(key))
	if th, ok := c.catalog.Threshold(k); ok {
		return compare(obs.Value, th)
	}
	for _, th := range c.catalog.Thresholds() {
		if strings.Contains(k, th.Key) {
			return compare(obs.Value, th)
		}
	}

	switch obs.Flag {
	case extract.FlagLow:
		return StatusLow
	case extract.FlagHigh:
		return StatusHigh
	}
	return StatusUnknown
}

// Classify annotates every field of a report.
func (c *Classifier) Classify(r extract.Report) Report {
	out := make(Report, len(r))
	for key, obs := range r {
		out[key] = Field{Observation: obs, Status: c.Status(key, obs)}
	}
	return out
}

// Alerts returns the Low and High fields in catalog order.
func (c *Classifier) Alerts(r Report) []Alert {
	keys := make([]catalog.TestKey, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}

	var alerts []Alert
	for _, k := range c.catalog.Order(keys) {
		f := r[k]
		if f.Status == StatusLow || f.Status == StatusHigh {
			alerts = append(alerts, Alert{Key: k, Status: f.Status, Value: f.Value})
		}
	}
	return alerts
}

// Bounds are inclusive.
func compare(v float64, th catalog.Threshold) Status {
	switch {
	case v < th.Low:
		return StatusLow
	case v > th.High:
		return StatusHigh
	}
	return StatusNormal
}
