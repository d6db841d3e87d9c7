package enhancer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/themobileprof/symptomcheck/internal/knowledge"
)

// Confidence levels accepted in a reply.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ConfidenceScore maps a confidence level onto a probability-like score.
func ConfidenceScore(level string) float64 {
	switch level {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.6
	default:
		return 0.3
	}
}

// Percent accepts 25, 25.5, "25" or "25%".
type Percent float64

func (p *Percent) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("percent %q: %w", s, err)
	}
	*p = Percent(v)
	return nil
}

// Differential is an alternative condition proposed by the model.
type Differential struct {
	Condition   string  `json:"condition"`
	Probability Percent `json:"probability"`
}

// Reply is the structured differential returned by an enhancer backend.
type Reply struct {
	PrimaryCondition string         `json:"primary_condition"`
	ConfidenceLevel  string         `json:"confidence_level"`
	Differentials    []Differential `json:"differential_diagnoses"`
	KeySymptoms      []string       `json:"key_symptoms"`
	Severity         string         `json:"severity"`
	RedFlags         []string       `json:"red_flags"`
	Recommendations  []string       `json:"recommendations"`
	Reasoning        string         `json:"reasoning"`
}

// ParseReply extracts the outermost JSON object from a model answer and
// validates the required fields. Code fences and chatter around the object
// are tolerated.
func ParseReply(content string) (Reply, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return Reply{}, fmt.Errorf("%w: no JSON object found", ErrMalformedReply)
	}

	var r Reply
	if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	r.PrimaryCondition = strings.TrimSpace(r.PrimaryCondition)
	r.ConfidenceLevel = strings.ToLower(strings.TrimSpace(r.ConfidenceLevel))
	r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))

	var missing []string
	if r.PrimaryCondition == "" {
		missing = append(missing, "primary_condition")
	}
	if r.ConfidenceLevel == "" {
		missing = append(missing, "confidence_level")
	}
	if r.Severity == "" {
		missing = append(missing, "severity")
	}
	if len(missing) > 0 {
		return Reply{}, fmt.Errorf("%w: missing %s", ErrMalformedReply, strings.Join(missing, ", "))
	}

	switch r.ConfidenceLevel {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return Reply{}, fmt.Errorf("%w: confidence_level %q", ErrMalformedReply, r.ConfidenceLevel)
	}

	return r, nil
}

// SeverityValid reports whether the reply's severity is a known label.
func (r Reply) SeverityValid() bool {
	return knowledge.ValidSeverity(r.Severity)
}
