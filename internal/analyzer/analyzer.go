package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/themobileprof/symptomcheck/internal/classifier"
	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/emergency"
	"github.com/themobileprof/symptomcheck/internal/enhancer"
	"github.com/themobileprof/symptomcheck/internal/fallback"
	"github.com/themobileprof/symptomcheck/internal/lexicon"
	"github.com/themobileprof/symptomcheck/internal/privacy"
	"github.com/themobileprof/symptomcheck/internal/render"
	"github.com/themobileprof/symptomcheck/internal/symptoms"
)

const (
	// MinTextLength is the shortest trimmed input, in characters, that is analyzed.
	MinTextLength = 5
	// minTermlessWords is the word count below which text without any
	// symptom vocabulary is rejected outright.
	minTermlessWords = 8
	// unclearWords is the word count above which an empty extraction is
	// reported as unclear instead of being classified.
	unclearWords = 10

	// DefaultEnhanceThreshold is the top probability below which the
	// enhancer is consulted.
	DefaultEnhanceThreshold = 0.5
	// DefaultFollowUpLimit caps suggested clarifying questions.
	DefaultFollowUpLimit = 3

	// EmergencyCondition is reported as the primary condition of an escalation.
	EmergencyCondition = "MEDICAL EMERGENCY"
	// EmergencyConfidence is reported as the confidence of an escalation.
	EmergencyConfidence = "emergency"
	emergencySeverity   = "severe"
)

// Dependencies for the pipeline stages.

type Extractor interface {
	ExtractScored(text string) []symptoms.Match
	HasSymptomTerm(text string) bool
	Cues(text string) symptoms.Cues
	FollowUps(ids []string, asked map[string]bool, limit int) []string
	Lexicon() *lexicon.Lexicon
}

type Gate interface {
	Check(extracted []string, text string) *emergency.Signal
}

type Classifier interface {
	Predict(text string) (classifier.Prediction, error)
}

type Adjuster interface {
	Adjust(probs map[string]float64, symptoms []string, text string) map[string]float64
}

type Assembler interface {
	Assemble(ctx context.Context, r diagnosis.Result) (diagnosis.Record, error)
}

// Deps are the stage implementations. Enhancer may be nil.
type Deps struct {
	Extractor  Extractor
	Gate       Gate
	Classifier Classifier
	Adjuster   Adjuster
	Enhancer   enhancer.Enhancer
	Assembler  Assembler
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithEnhanceThreshold sets the top probability below which the enhancer runs.
func WithEnhanceThreshold(t float64) Option {
	return func(a *Analyzer) {
		a.enhanceBelow = t
	}
}

// WithFollowUpLimit caps the follow-up questions attached to a response.
func WithFollowUpLimit(n int) Option {
	return func(a *Analyzer) {
		a.followUpLimit = n
	}
}

// Analyzer runs the intake pipeline. It holds no per-call state and is
// safe for concurrent use once built.
type Analyzer struct {
	deps          Deps
	enhanceBelow  float64
	followUpLimit int
}

// New wires an analyzer from its stages.
func New(deps Deps, opts ...Option) *Analyzer {
	a := &Analyzer{
		deps:          deps,
		enhanceBelow:  DefaultEnhanceThreshold,
		followUpLimit: DefaultFollowUpLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request is one analysis call. History and Asked come from a chat session
// and may be empty.
type Request struct {
	Text     string
	Audience render.Audience
	History  []string
	Asked    map[string]bool
}

// Analyze runs the pipeline on text and renders for audience. It never
// panics and never returns a Go error; failures are reported by Kind.
func (a *Analyzer) Analyze(ctx context.Context, text string, audience render.Audience) Response {
	return a.Process(ctx, Request{Text: text, Audience: audience})
}

// Process is Analyze with chat context.
func (a *Analyzer) Process(ctx context.Context, req Request) (resp Response) {
	id := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analyzer: recovered panic id=%s: %v", id, r)
			resp = a.respond(id, req, Failure{Reason: KindProcessingError})
		}
	}()

	log.Printf("analyzer: id=%s audience=%s text=%q", id, req.Audience, privacy.SanitizeForLogging(req.Text))
	out := a.Run(ctx, req)
	log.Printf("analyzer: id=%s kind=%s", id, out.Kind())
	return a.respond(id, req, out)
}

// Run executes the pipeline stages and returns the typed outcome without
// rendering it. Errors from a stage become a processing_error Failure.
// Only panics during emergency screening are recovered here.
func (a *Analyzer) Run(ctx context.Context, req Request) Outcome {
	text := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(text) < MinTextLength {
		return Failure{Reason: KindInsufficientInput}
	}

	ids, signal := a.screen(text)
	if signal != nil {
		return Emergency{Signal: *signal, Symptoms: ids}
	}

	words := len(strings.Fields(text))
	if len(ids) == 0 && words < minTermlessWords && !a.deps.Extractor.HasSymptomTerm(text) {
		return Failure{Reason: KindNoSymptoms}
	}
	if len(ids) == 0 && words > unclearWords {
		return Failure{Reason: KindSymptomsUnclear}
	}

	pred, err := a.deps.Classifier.Predict(text)
	if err != nil {
		log.Printf("analyzer: classifier failed: %v", err)
		return Failure{Reason: KindProcessingError, Symptoms: ids, Err: fmt.Errorf("predict: %w", err)}
	}

	result := diagnosis.Result{
		Symptoms:           ids,
		Probabilities:      a.deps.Adjuster.Adjust(pred.Conditions, ids, text),
		Severity:           pred.Severity,
		SeverityConfidence: pred.SeverityConfidence,
	}
	result = a.enhance(ctx, text, req.History, result)

	rec, err := a.deps.Assembler.Assemble(ctx, result)
	switch {
	case errors.Is(err, diagnosis.ErrLowConfidence), errors.Is(err, diagnosis.ErrNoCandidates):
		return Failure{Reason: KindLowConfidence, Symptoms: ids, Err: err}
	case err != nil:
		log.Printf("analyzer: assemble failed: %v", err)
		return Failure{Reason: KindProcessingError, Symptoms: ids, Err: fmt.Errorf("assemble: %w", err)}
	}

	return Diagnosis{Record: rec, Cues: a.deps.Extractor.Cues(text)}
}

// screen extracts symptoms and runs the emergency gate. A panic in either
// stage escalates instead of falling through to processing_error.
func (a *Analyzer) screen(text string) (ids []string, signal *emergency.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analyzer: emergency screening panicked, escalating: %v", r)
			signal = emergency.Unscreened()
		}
	}()

	matches := a.deps.Extractor.ExtractScored(text)
	ids = make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids, a.deps.Gate.Check(ids, text)
}

// enhance consults the enhancer on low classifier confidence. Any enhancer
// failure leaves the result untouched.
func (a *Analyzer) enhance(ctx context.Context, text string, history []string, r diagnosis.Result) diagnosis.Result {
	if !enhancer.Available(a.deps.Enhancer) {
		return r
	}
	top, ok := r.Top()
	if ok && top.Probability >= a.enhanceBelow {
		return r
	}

	reply, err := a.deps.Enhancer.Enhance(ctx, enhancer.Request{Text: text, Result: r, History: history})
	if err != nil {
		log.Printf("analyzer: enhancer skipped: %v", err)
		return r
	}
	merged, promoted := enhancer.Merge(r, reply)
	log.Printf("analyzer: enhancer merged primary=%s promoted=%t", merged.Promoted, promoted)
	return merged
}

func (a *Analyzer) respond(id string, req Request, out Outcome) Response {
	lex := a.deps.Extractor.Lexicon()
	resp := Response{
		ID:           id,
		Kind:         out.Kind(),
		Symptoms:     []string{},
		Alternatives: []diagnosis.Alternative{},
	}

	switch o := out.(type) {
	case Emergency:
		ids := appendMissing(o.Symptoms, o.Signal.Symptoms)
		resp.Emergency = true
		resp.SymptomIDs = ids
		resp.Symptoms = displayNames(lex, ids)
		resp.Severity = emergencySeverity
		resp.PrimaryCondition = EmergencyCondition
		resp.Confidence = EmergencyConfidence
		resp.EmergencySymptoms = o.Signal.Labels
		resp.ResponseText = o.Signal.Text

	case Diagnosis:
		rec := o.Record
		resp.SymptomIDs = rec.Symptoms
		resp.Symptoms = displayNames(lex, rec.Symptoms)
		resp.Severity = rec.Severity
		resp.ConditionID = rec.ConditionID
		resp.PrimaryCondition = rec.Condition
		resp.Confidence = string(rec.Confidence)
		resp.Probability = rec.Probability
		resp.Enhanced = rec.Enhanced
		if rec.Alternatives != nil {
			resp.Alternatives = rec.Alternatives
		}
		resp.Diagnosis = &rec
		if rec.Confidence == diagnosis.BandLow {
			resp.FollowUps = a.deps.Extractor.FollowUps(rec.Symptoms, req.Asked, a.followUpLimit)
		}
		resp.ResponseText = render.Render(req.Audience, rec, o.Cues.Emotions)

	case Failure:
		if o.Symptoms != nil {
			resp.SymptomIDs = o.Symptoms
			resp.Symptoms = displayNames(lex, o.Symptoms)
		}
		resp.FollowUps = a.deps.Extractor.FollowUps(o.Symptoms, req.Asked, a.followUpLimit)
		resp.ResponseText = render.Failure(fallback.Kind(o.Reason), resp.FollowUps)
	}
	return resp
}

func displayNames(lex *lexicon.Lexicon, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if lex != nil {
			if s, ok := lex.Lookup(id); ok {
				out[i] = s.Display()
				continue
			}
		}
		out[i] = lexicon.Display(id)
	}
	return out
}

func appendMissing(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base))
	for _, id := range base {
		seen[id] = true
	}
	for _, id := range extra {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
