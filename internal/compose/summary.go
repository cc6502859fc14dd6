package compose

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/labgest/internal/catalog"
	"github.com/dgallion1/labgest/internal/classify"
	"github.com/dgallion1/labgest/internal/enhance"
)

const noAlertsNote = "No immediate abnormal alerts detected."

// Summary is the human-readable rendering of one classified report.
type Summary struct {
	English     string           `json:"english"`
	Hindi       string           `json:"hindi"`
	DoctorNote  string           `json:"doctor_note"`
	Alerts      []classify.Alert `json:"alerts"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Composer renders summaries, doctor notes and tips. Generated text is
// optional; every output has a rule-based form.
type Composer struct {
	catalog    *catalog.Catalog
	classifier *classify.Classifier
	enhancer   *enhance.Enhancer
	log        *slog.Logger
	now        func() time.Time
}

func NewComposer(c *catalog.Catalog, enhancer *enhance.Enhancer, log *slog.Logger) *Composer {
	return &Composer{
		catalog:    c,
		classifier: classify.NewClassifier(c),
		enhancer:   enhancer,
		log:        log,
		now:        time.Now,
	}
}

// Summarize builds the English and Hindi summaries and the doctor note.
func (c *Composer) Summarize(ctx context.Context, r classify.Report) Summary {
	now := c.now().UTC()
	stamp := now.Format("2006-01-02 15:04") + " UTC"

	en := []string{"Medical Report Summary — " + stamp + "\n"}
	hi := []string{"मेडिकल रिपोर्ट सारांश — " + stamp + "\n"}
	for _, key := range c.keys(r) {
		line := fieldLine(key, r[key])
		en = append(en, line, "")
		// Values and statuses are not translated.
		hi = append(hi, line, "")
	}

	alerts := c.classifier.Alerts(r)
	note := doctorNote(alerts)
	if c.enhancer.Available() {
		note = c.enhancer.Rewrite(ctx, doctorNotePrompt(note), note)
	}

	return Summary{
		English:     strings.Join(en, "\n"),
		Hindi:       strings.Join(hi, "\n"),
		DoctorNote:  note,
		Alerts:      alerts,
		GeneratedAt: now,
	}
}

func (c *Composer) keys(r classify.Report) []catalog.TestKey {
	keys := make([]catalog.TestKey, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return c.catalog.Order(keys)
}

// fieldLine renders "VITAMIN D: 18 ng/ml  |  Status: Low".
func fieldLine(key catalog.TestKey, f classify.Field) string {
	name := strings.ReplaceAll(strings.ToUpper(string(key)), "_", " ")
	line := strings.TrimSpace(name + ": " + FormatValue(f.Value) + " " + f.Unit)
	if f.Status != classify.StatusUnknown {
		line += "  |  Status: " + string(f.Status)
	}
	return line
}

func doctorNote(alerts []classify.Alert) string {
	if len(alerts) == 0 {
		return noAlertsNote
	}
	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, "ALERTS FOR DOCTOR:")
	for _, a := range alerts {
		lines = append(lines, strings.ToUpper(string(a.Key))+": "+strings.ToUpper(string(a.Status))+
			" (value "+FormatValue(a.Value)+")")
	}
	return strings.Join(lines, "\n")
}

// FormatValue prints a value with the fewest digits that round-trip.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
