package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/fallback"
)

func sampleRecord() diagnosis.Record {
	return diagnosis.Record{
		ConditionID:        "common_cold",
		Condition:          "Common Cold",
		Description:        "A viral infection of the nose and throat.",
		Probability:        0.62,
		Confidence:         diagnosis.BandHigh,
		Severity:           "mild",
		SeverityConfidence: 0.8,
		Symptoms:           []string{"runny_nose", "sneezing", "sore_throat"},
		Treatment:          []string{"Rest", "Fluids", "Saline spray", "Zinc lozenges", "Honey"},
		HomeRemedies:       []string{"Warm tea"},
		Warnings:           []string{"Fever above 39C", "Trouble breathing", "Symptoms beyond 10 days", "Ear pain"},
		Alternatives: []diagnosis.Alternative{
			{ID: "allergic_rhinitis", Name: "Allergic Rhinitis", Probability: 0.2, Confidence: diagnosis.BandLow},
		},
	}
}

func TestPatient(t *testing.T) {
	out := Patient(sampleRecord(), nil)

	for _, want := range []string{
		"I understand you're not feeling well.",
		"it sounds like you may have Common Cold (I'm quite confident about this assessment).",
		"A viral infection of the nose and throat.",
		"The symptoms I identified include: Runny Nose, Sneezing and Sore Throat.",
		"This appears to be a mild case",
		"\n1. Rest",
		"\n5. Honey",
		"\n• Warm tea",
		"\n• Trouble breathing",
		"Allergic Rhinitis (20.0% likelihood)",
		Disclaimer,
	} {
		assert.Contains(t, out, want)
	}

	// sections appear in a fixed order
	order := []string{"Here's what I recommend", "home remedies", "warning signs", "Other conditions", Disclaimer}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		assert.Greater(t, i, last, s)
		last = i
	}
}

func TestPatientEmpathyLine(t *testing.T) {
	tests := []struct {
		emotions []string
		want     string
	}{
		{nil, "I understand you're not feeling well."},
		{[]string{"worried"}, "I can hear that you're worried"},
		{[]string{"confused", "frustrated"}, "I'm sorry this has been so frustrating"},
		{[]string{"worried", "urgent"}, "I understand this feels urgent"},
	}
	for _, tt := range tests {
		out := Patient(sampleRecord(), tt.emotions)
		assert.True(t, strings.HasPrefix(out, tt.want), "emotions %v: %q", tt.emotions, out[:60])
	}
}

func TestPatientSingleSymptomAndLowConfidence(t *testing.T) {
	rec := sampleRecord()
	rec.Symptoms = []string{"cough"}
	rec.Confidence = diagnosis.BandLow
	rec.Alternatives = nil
	rec.Enhanced = true
	rec.Reasoning = "dry cough only"

	out := Patient(rec, nil)
	assert.Contains(t, out, "The main symptom I noticed from your description is Cough.")
	assert.Contains(t, out, "I'd recommend professional evaluation")
	assert.Contains(t, out, "Why I think so: dry cough only")
	assert.NotContains(t, out, "Other conditions")
}

func TestClinician(t *testing.T) {
	out := Clinician(sampleRecord())
	lines := strings.Split(out, "\n")

	assert.Equal(t, "Assessment: Common Cold (high confidence, p~0.62)", lines[0])
	assert.Equal(t, "Severity: mild (p~0.80)", lines[1])
	assert.Equal(t, "Symptoms: Runny Nose, Sneezing, Sore Throat", lines[2])
	assert.Equal(t, "Differentials: Allergic Rhinitis (20%)", lines[3])
	assert.Equal(t, "Plan: Rest; Fluids; Saline spray; Zinc lozenges", lines[4])
	assert.Equal(t, "Red flags: Fever above 39C; Trouble breathing; Symptoms beyond 10 days", lines[5])
	assert.Len(t, lines, 6)
	assert.NotContains(t, out, Disclaimer)
}

func TestRenderDispatch(t *testing.T) {
	rec := sampleRecord()
	assert.Equal(t, Clinician(rec), Render(AudienceClinician, rec, nil))
	assert.Equal(t, Patient(rec, nil), Render(AudiencePatient, rec, nil))
}

func TestParseAudience(t *testing.T) {
	a, ok := ParseAudience(" Clinician ")
	assert.True(t, ok)
	assert.Equal(t, AudienceClinician, a)

	a, ok = ParseAudience("nurse")
	assert.False(t, ok)
	assert.Equal(t, AudiencePatient, a)
}

func TestFailure(t *testing.T) {
	for _, k := range fallback.Kinds {
		out := Failure(k, nil)
		assert.NotEmpty(t, out, k)
		assert.Contains(t, out, fallback.SafetyNet, k)
	}

	out := Failure(fallback.KindSymptomsUnclear, []string{"When did it start?"})
	assert.Contains(t, out, "For example, you might say:")
	assert.Contains(t, out, "It would help to know:\n• When did it start?")

	out = Failure(fallback.KindInsufficientInput, nil)
	assert.NotContains(t, out, "For example")
}
