package diagnosis

import (
	"sort"
)

// Band is a coarse confidence label.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Thresholds are tunable presentation policy, not clinical constants.
type Thresholds struct {
	// Candidates at or below Floor are never presented.
	Floor  float64
	High   float64
	Medium float64
}

// DefaultThresholds returns floor 0.08, high > 0.5, medium > 0.2.
func DefaultThresholds() Thresholds {
	return Thresholds{Floor: 0.08, High: 0.5, Medium: 0.2}
}

// Band maps a probability to its confidence band.
func (t Thresholds) Band(p float64) Band {
	switch {
	case p > t.High:
		return BandHigh
	case p > t.Medium:
		return BandMedium
	default:
		return BandLow
	}
}

// Candidate is one scored condition.
type Candidate struct {
	Condition   string  `json:"condition"`
	Probability float64 `json:"probability"`
}

// Result is the transient analysis state handed from the classifier stage
// to the assembler. It is built per call and never shared.
type Result struct {
	Symptoms           []string
	Probabilities      map[string]float64
	Severity           string
	SeverityConfidence float64

	// Promoted, when set, ranks first regardless of probability.
	Promoted        string
	Enhanced        bool
	Reasoning       string
	RedFlags        []string
	Recommendations []string
}

// Ranked orders candidates by probability descending, then id ascending,
// with the promoted condition (if any) moved to the front.
func (r Result) Ranked() []Candidate {
	out := make([]Candidate, 0, len(r.Probabilities))
	for id, p := range r.Probabilities {
		out = append(out, Candidate{Condition: id, Probability: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].Condition < out[j].Condition
	})

	if r.Promoted == "" {
		return out
	}
	for i, c := range out {
		if c.Condition == r.Promoted {
			copy(out[1:i+1], out[:i])
			out[0] = c
			break
		}
	}
	return out
}

// Top returns the first ranked candidate.
func (r Result) Top() (Candidate, bool) {
	ranked := r.Ranked()
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}
