package diagnosis

import (
	"context"
	"errors"
	"log"

	"github.com/themobileprof/symptomcheck/internal/catalog"
	"github.com/themobileprof/symptomcheck/internal/knowledge"
	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

var (
	// ErrNoCandidates means the result carried no scored conditions.
	ErrNoCandidates = errors.New("no candidate conditions")
	// ErrLowConfidence means every top candidate was at or below the floor.
	ErrLowConfidence = errors.New("all candidates below presentation floor")
)

// maxCandidates bounds the primary plus alternatives.
const maxCandidates = 3

// Alternative is a secondary differential.
type Alternative struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Confidence  Band    `json:"confidence"`
}

// Record is the assembled diagnosis. It is immutable once returned.
type Record struct {
	ConditionID        string        `json:"condition_id"`
	Condition          string        `json:"condition"`
	Description        string        `json:"description"`
	Probability        float64       `json:"probability"`
	Confidence         Band          `json:"confidence"`
	Severity           string        `json:"severity"`
	SeverityConfidence float64       `json:"severity_confidence"`
	Symptoms           []string      `json:"symptoms"`
	Treatment          []string      `json:"treatment"`
	HomeRemedies       []string      `json:"home_remedies"`
	Warnings           []string      `json:"warnings"`
	Prevention         []string      `json:"prevention"`
	Alternatives       []Alternative `json:"alternatives"`
	Enhanced           bool          `json:"enhanced"`
	Reasoning          string        `json:"reasoning,omitempty"`
}

// Assembler maps the top candidate to knowledge-base content.
type Assembler struct {
	kb         *knowledge.Base
	provider   catalog.Provider
	thresholds Thresholds
}

// NewAssembler builds an assembler. provider may be nil; it is consulted
// only for conditions the knowledge base does not cover.
func NewAssembler(kb *knowledge.Base, provider catalog.Provider, t Thresholds) *Assembler {
	return &Assembler{kb: kb, provider: provider, thresholds: t}
}

// Thresholds returns the assembler's presentation policy.
func (a *Assembler) Thresholds() Thresholds {
	return a.thresholds
}

// Assemble builds a Record from r. A condition missing from every source
// is rendered by its title-cased id with empty guidance, never an error.
func (a *Assembler) Assemble(ctx context.Context, r Result) (Record, error) {
	ranked := r.Ranked()
	if len(ranked) == 0 {
		return Record{}, ErrNoCandidates
	}
	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}

	kept := ranked[:0:0]
	for _, c := range ranked {
		if c.Probability > a.thresholds.Floor {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return Record{}, ErrLowConfidence
	}

	primary := kept[0]
	cond := a.resolve(ctx, primary.Condition)

	rec := Record{
		ConditionID:        primary.Condition,
		Condition:          cond.Name,
		Description:        cond.Description,
		Probability:        primary.Probability,
		Confidence:         a.thresholds.Band(primary.Probability),
		Severity:           r.Severity,
		SeverityConfidence: r.SeverityConfidence,
		Symptoms:           append([]string(nil), r.Symptoms...),
		Treatment:          cloneStrings(cond.Treatment),
		HomeRemedies:       cloneStrings(cond.HomeRemedies),
		Warnings:           cloneStrings(cond.Warnings),
		Prevention:         cloneStrings(cond.Prevention),
		Enhanced:           r.Enhanced,
		Reasoning:          r.Reasoning,
	}

	// Enhancer guidance fills gaps for conditions outside the catalog.
	if len(rec.Treatment) == 0 {
		rec.Treatment = cloneStrings(r.Recommendations)
	}
	if len(rec.Warnings) == 0 {
		rec.Warnings = cloneStrings(r.RedFlags)
	}

	for _, c := range kept[1:] {
		rec.Alternatives = append(rec.Alternatives, Alternative{
			ID:          c.Condition,
			Name:        a.resolve(ctx, c.Condition).Name,
			Probability: c.Probability,
			Confidence:  a.thresholds.Band(c.Probability),
		})
	}

	return rec, nil
}

func (a *Assembler) resolve(ctx context.Context, id string) knowledge.Condition {
	if a.kb != nil {
		if c, ok := a.kb.Lookup(id); ok {
			return c
		}
	}
	if a.provider != nil {
		c, err := a.provider.Condition(ctx, id)
		if err == nil && c.Name != "" {
			return c
		}
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			log.Printf("diagnosis: catalog lookup for %q failed: %v", id, err)
		}
	}
	return knowledge.Condition{ID: id, Name: lexicon.Display(id)}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
