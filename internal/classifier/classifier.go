package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/themobileprof/symptomcheck/internal/knowledge"
)

// Corpus sizes below which predictions are considered unreliable.
const (
	MinSamples = 50
	MinLabels  = 20
)

// ErrEmptyCorpus is returned when there is nothing to train on.
var ErrEmptyCorpus = errors.New("training corpus is empty")

// Options configures training.
type Options struct {
	MaxFeatures    int
	ConditionTrees int
	SeverityTrees  int
	Seed           int64
}

// DefaultOptions mirrors the tuned production settings.
func DefaultOptions() Options {
	return Options{
		MaxFeatures:    DefaultMaxFeatures,
		ConditionTrees: 100,
		SeverityTrees:  50,
		Seed:           42,
	}
}

// Prediction is the raw statistical output for one text.
type Prediction struct {
	Conditions         map[string]float64 `json:"conditions"`
	Severity           string             `json:"severity"`
	SeverityConfidence float64            `json:"severity_confidence"`
}

// Sufficiency describes whether the training corpus is large enough.
type Sufficiency struct {
	Samples    int  `json:"samples"`
	Labels     int  `json:"labels"`
	Sufficient bool `json:"sufficient"`
}

// Model pairs a frozen vectorizer with the condition and severity forests.
// It is built once and only read afterwards.
type Model struct {
	vectorizer  *Vectorizer
	conditions  *Forest
	severity    *Forest
	sufficiency Sufficiency
}

// Train fits the vectorizer and both forests on samples.
func Train(samples []knowledge.Sample, opts Options) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyCorpus
	}

	docs := make([]string, len(samples))
	conditionLabels := make([]string, len(samples))
	severityLabels := make([]string, len(samples))
	for i, s := range samples {
		docs[i] = trainingText(s)
		conditionLabels[i] = s.Condition
		severityLabels[i] = s.Severity
		if !knowledge.ValidSeverity(s.Severity) {
			return nil, fmt.Errorf("sample %d (%s): invalid severity %q", i, s.Condition, s.Severity)
		}
	}

	v := NewVectorizer(opts.MaxFeatures)
	v.Fit(docs)
	if v.Size() == 0 {
		return nil, fmt.Errorf("training corpus produced an empty vocabulary")
	}

	rows := make([][]float64, len(docs))
	for i, d := range docs {
		rows[i] = v.Transform(d)
	}

	m := &Model{
		vectorizer: v,
		conditions: TrainForest(rows, conditionLabels, ForestOptions{Trees: opts.ConditionTrees, Seed: opts.Seed}),
		severity:   TrainForest(rows, severityLabels, ForestOptions{Trees: opts.SeverityTrees, Seed: opts.Seed}),
	}

	labels := len(m.conditions.Classes())
	m.sufficiency = Sufficiency{
		Samples:    len(samples),
		Labels:     labels,
		Sufficient: len(samples) >= MinSamples && labels >= MinLabels,
	}
	return m, nil
}

// Predict scores text against every known condition and severity level.
func (m *Model) Predict(text string) (Prediction, error) {
	if m == nil || m.vectorizer == nil {
		return Prediction{}, errors.New("classifier is not trained")
	}
	x := m.vectorizer.Transform(text)
	severity, confidence := m.severity.Predict(x)
	return Prediction{
		Conditions:         m.conditions.PredictProba(x),
		Severity:           severity,
		SeverityConfidence: confidence,
	}, nil
}

// Sufficiency reports corpus size against the reliability thresholds.
func (m *Model) Sufficiency() Sufficiency {
	return m.sufficiency
}

// Labels returns the known condition identifiers.
func (m *Model) Labels() []string {
	return m.conditions.Classes()
}

// VocabularySize returns the number of features.
func (m *Model) VocabularySize() int {
	return m.vectorizer.Size()
}

// trainingText joins the sample description with its symptom names.
func trainingText(s knowledge.Sample) string {
	parts := make([]string, 0, len(s.Symptoms)+1)
	for _, sym := range s.Symptoms {
		parts = append(parts, strings.ReplaceAll(sym, "_", " "))
	}
	parts = append(parts, s.Description)
	return strings.Join(parts, " ")
}
