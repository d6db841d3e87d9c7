package analyzer

import (
	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/emergency"
	"github.com/themobileprof/symptomcheck/internal/fallback"
	"github.com/themobileprof/symptomcheck/internal/symptoms"
)

// Kind names the outcome of one analysis.
type Kind string

const (
	KindDiagnosis         Kind = "diagnosis"
	KindEmergency         Kind = "emergency"
	KindInsufficientInput      = Kind(fallback.KindInsufficientInput)
	KindNoSymptoms             = Kind(fallback.KindNoSymptoms)
	KindSymptomsUnclear        = Kind(fallback.KindSymptomsUnclear)
	KindLowConfidence          = Kind(fallback.KindLowConfidence)
	KindProcessingError        = Kind(fallback.KindProcessingError)
)

// IsError reports whether k is one of the error kinds.
func (k Kind) IsError() bool {
	return k != KindDiagnosis && k != KindEmergency
}

// Outcome is one of Emergency, Diagnosis or Failure.
type Outcome interface {
	Kind() Kind
	outcome()
}

// Emergency preempts every other outcome.
type Emergency struct {
	Signal   emergency.Signal
	Symptoms []string
}

// Diagnosis is a presented finding.
type Diagnosis struct {
	Record diagnosis.Record
	Cues   symptoms.Cues
}

// Failure is a non-fatal error outcome. Err carries the internal cause for
// logging and is never shown to the user.
type Failure struct {
	Reason   Kind
	Symptoms []string
	Err      error
}

func (Emergency) Kind() Kind { return KindEmergency }
func (Diagnosis) Kind() Kind { return KindDiagnosis }
func (f Failure) Kind() Kind { return f.Reason }

func (Emergency) outcome() {}
func (Diagnosis) outcome() {}
func (Failure) outcome()   {}

// Response is the caller-facing result of Analyze.
type Response struct {
	ID                string                  `json:"id"`
	Emergency         bool                    `json:"emergency"`
	Kind              Kind                    `json:"kind"`
	Symptoms          []string                `json:"symptoms"`
	SymptomIDs        []string                `json:"symptom_ids,omitempty"`
	Severity          string                  `json:"severity,omitempty"`
	ConditionID       string                  `json:"condition_id,omitempty"`
	PrimaryCondition  string                  `json:"primary_condition,omitempty"`
	Confidence        string                  `json:"confidence,omitempty"`
	Probability       float64                 `json:"probability,omitempty"`
	ResponseText      string                  `json:"response_text"`
	Alternatives      []diagnosis.Alternative `json:"alternatives"`
	EmergencySymptoms []string                `json:"emergency_symptoms,omitempty"`
	Enhanced          bool                    `json:"enhanced"`
	FollowUps         []string                `json:"follow_ups,omitempty"`
	Diagnosis         *diagnosis.Record       `json:"diagnosis,omitempty"`
}
