package render

import (
	"fmt"
	"strings"

	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/fallback"
	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

// Audience selects the render mode.
type Audience string

const (
	AudiencePatient   Audience = "patient"
	AudienceClinician Audience = "clinician"
)

// ParseAudience accepts "patient" or "clinician" in any case. Anything else
// is reported as not ok and treated as patient by callers.
func ParseAudience(s string) (Audience, bool) {
	switch Audience(strings.ToLower(strings.TrimSpace(s))) {
	case AudiencePatient:
		return AudiencePatient, true
	case AudienceClinician:
		return AudienceClinician, true
	}
	return AudiencePatient, false
}

// Disclaimer closes every patient narrative.
const Disclaimer = "Remember, I'm here to provide information and support, but this assessment is not a substitute for professional medical advice. If you're concerned about your symptoms or they worsen, please don't hesitate to consult with a healthcare provider. I hope you feel better soon!"

// Emotions in the order they take precedence for the opening line.
var empathy = []struct {
	emotion string
	line    string
}{
	{"urgent", "I understand this feels urgent, so let's look at it right away."},
	{"worried", "I can hear that you're worried, and that's completely understandable."},
	{"frustrated", "I'm sorry this has been so frustrating for you."},
	{"confused", "It's okay to feel unsure about what's going on. Let's go through it together."},
}

const defaultEmpathy = "I understand you're not feeling well."

// Render dispatches on audience.
func Render(a Audience, rec diagnosis.Record, emotions []string) string {
	if a == AudienceClinician {
		return Clinician(rec)
	}
	return Patient(rec, emotions)
}

// Patient renders an empathetic narrative.
func Patient(rec diagnosis.Record, emotions []string) string {
	var sb strings.Builder
	sb.Grow(1024)

	sb.WriteString(openingLine(emotions))
	fmt.Fprintf(&sb, " Based on your description, it sounds like you may have %s", rec.Condition)

	switch rec.Confidence {
	case diagnosis.BandHigh:
		sb.WriteString(" (I'm quite confident about this assessment)")
	case diagnosis.BandMedium:
		sb.WriteString(" (this seems likely based on your symptoms)")
	default:
		sb.WriteString(" (this is a possibility, but I'd recommend professional evaluation)")
	}
	sb.WriteString(".")

	if rec.Description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(rec.Description)
	}

	names := displayNames(rec.Symptoms)
	switch len(names) {
	case 0:
	case 1:
		fmt.Fprintf(&sb, "\n\nThe main symptom I noticed from your description is %s.", names[0])
	default:
		fmt.Fprintf(&sb, "\n\nThe symptoms I identified include: %s and %s.",
			strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	}

	switch rec.Severity {
	case "mild":
		sb.WriteString(" This appears to be a mild case, which is good news.")
	case "moderate":
		sb.WriteString(" This seems to be a moderate case that should be manageable with proper care.")
	case "severe":
		sb.WriteString(" This appears to be more severe and may require medical attention.")
	}

	if len(rec.Treatment) > 0 {
		sb.WriteString("\n\nHere's what I recommend to help you feel better:")
		for i, t := range rec.Treatment {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, t)
		}
	}

	writeBullets(&sb, "Some gentle home remedies that might provide comfort:", rec.HomeRemedies)
	writeBullets(&sb, "Please seek medical attention if you experience any of these warning signs:", rec.Warnings)

	if len(rec.Alternatives) > 0 {
		sb.WriteString("\n\nOther conditions I considered:")
		for _, alt := range rec.Alternatives {
			fmt.Fprintf(&sb, "\n• %s (%.1f%% likelihood)", alt.Name, alt.Probability*100)
		}
	}

	if rec.Enhanced && rec.Reasoning != "" {
		fmt.Fprintf(&sb, "\n\nWhy I think so: %s", rec.Reasoning)
	}

	sb.WriteString("\n\n")
	sb.WriteString(Disclaimer)
	return sb.String()
}

// Clinician renders terse structured lines.
func Clinician(rec diagnosis.Record) string {
	lines := []string{
		fmt.Sprintf("Assessment: %s (%s confidence, p~%.2f)", rec.Condition, rec.Confidence, rec.Probability),
		fmt.Sprintf("Severity: %s (p~%.2f)", orDefault(rec.Severity, "moderate"), rec.SeverityConfidence),
	}

	if names := displayNames(rec.Symptoms); len(names) > 0 {
		lines = append(lines, "Symptoms: "+strings.Join(names, ", "))
	}

	if len(rec.Alternatives) > 0 {
		alts := make([]string, len(rec.Alternatives))
		for i, a := range rec.Alternatives {
			alts[i] = fmt.Sprintf("%s (%.0f%%)", a.Name, a.Probability*100)
		}
		lines = append(lines, "Differentials: "+strings.Join(alts, ", "))
	}

	if len(rec.Treatment) > 0 {
		lines = append(lines, "Plan: "+strings.Join(firstN(rec.Treatment, 4), "; "))
	}
	if len(rec.Warnings) > 0 {
		lines = append(lines, "Red flags: "+strings.Join(firstN(rec.Warnings, 3), "; "))
	}
	if rec.Enhanced {
		note := "Enhanced by external model"
		if rec.Reasoning != "" {
			note += ": " + rec.Reasoning
		}
		lines = append(lines, note)
	}

	return strings.Join(lines, "\n")
}

// Failure renders guidance for a non-diagnosis outcome. It always returns
// actionable text.
func Failure(kind fallback.Kind, followUps []string) string {
	resp := fallback.GetFallbackResponse(kind)

	var sb strings.Builder
	sb.WriteString(resp.Content)

	if resp.Action == "rephrase" || resp.Action == "retry" {
		sb.WriteString("\n\nFor example, you might say:")
		for _, ex := range fallback.Examples {
			fmt.Fprintf(&sb, "\n• \"%s\"", ex)
		}
	}

	writeBullets(&sb, "It would help to know:", followUps)

	sb.WriteString("\n\n")
	sb.WriteString(fallback.SafetyNet)
	return sb.String()
}

func openingLine(emotions []string) string {
	present := make(map[string]bool, len(emotions))
	for _, e := range emotions {
		present[e] = true
	}
	for _, e := range empathy {
		if present[e.emotion] {
			return e.line
		}
	}
	return defaultEmpathy
}

func displayNames(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if d := lexicon.Display(id); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func writeBullets(sb *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n\n")
	sb.WriteString(header)
	for _, it := range items {
		sb.WriteString("\n• ")
		sb.WriteString(it)
	}
}

func firstN(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
