package compose

import "strings"

// Risk is the urgency assigned to a symptom description.
type Risk string

const (
	RiskLow      Risk = "Low"
	RiskModerate Risk = "Moderate"
	RiskHigh     Risk = "High"
)

var (
	highRiskTerms     = []string{"severe", "chest pain", "unconscious", "difficulty breathing"}
	moderateRiskTerms = []string{"fever", "dizziness", "fatigue", "vomiting"}
)

// Triage is a rule-based risk assessment of free-text symptoms.
type Triage struct {
	Risk    Risk   `json:"risk"`
	English string `json:"english"`
	Hindi   string `json:"hindi"`
}

// AssessSymptoms classifies symptoms by keyword. It is not a diagnosis.
func AssessSymptoms(symptoms string) Triage {
	s := strings.ToLower(symptoms)
	risk := RiskLow
	switch {
	case containsAny(s, highRiskTerms):
		risk = RiskHigh
	case containsAny(s, moderateRiskTerms):
		risk = RiskModerate
	}
	return Triage{
		Risk:    risk,
		English: "Your symptoms are " + string(risk),
		Hindi:   "आपके लक्षण " + string(risk) + " हैं",
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
