package heuristics

import (
	"sort"
	"strings"
)

// DefaultSeed is the probability given to a condition a rule promotes
// when the classifier did not score it at all.
const DefaultSeed = 0.05

// Input is what a rule guard can inspect.
type Input struct {
	symptoms map[string]bool
	text     string
}

// Has reports whether any of ids was extracted.
func (in Input) Has(ids ...string) bool {
	for _, id := range ids {
		if in.symptoms[id] {
			return true
		}
	}
	return false
}

// Mentions reports whether the lowercased text contains any phrase.
func (in Input) Mentions(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(in.text, p) {
			return true
		}
	}
	return false
}

// Delta is a signed change to one condition's probability.
type Delta struct {
	Condition string
	Change    float64
}

// Rule applies its deltas, in order, when Guard holds.
type Rule struct {
	Name   string
	Guard  func(Input) bool
	Deltas []Delta
}

var (
	productivePhrases = []string{"phlegm", "mucus", "sputum", "bring up", "brings up", "productive cough"}
	breathingPhrases  = []string{"breathing feels harder", "breathing harder", "breathing heavy", "winded", "harder than usual", "short of breath", "out of breath"}
	progressPhrases   = []string{"over time", "progressively", "worsen", "heavier over time", "getting worse"}
	exertionPhrases   = []string{"require effort", "with effort", "when exercising", "when i exercise", "when moving around", "climbing", "walking fast", "on exertion", "upstairs", "when i walk"}
	chestPhrases      = []string{"chest feels funny", "chest feels “funny”", "chest tight", "tight chest", "pressure in chest", "pressure in my chest", "chest discomfort"}
	radiationPhrases  = []string{"spreads to your arm", "spreads to my arm", "to your neck", "to my neck", "to your jaw", "to my jaw", "radiate to arm", "radiates to", "radiating to"}
	cognitiveCluster  = []string{"memory_loss", "confusion", "word_finding_difficulty", "attention_issues", "planning_difficulty", "gradual_onset"}
	infectionMarkers  = []string{"fever", "cough", "chills"}
)

func exertion(in Input) bool {
	return in.Has("exertional_pain") || in.Mentions(exertionPhrases...)
}

func chest(in Input) bool {
	return in.Has("chest_pain") || in.Mentions(chestPhrases...)
}

// DefaultRules is the ordered rule set. Later rules see earlier deltas.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "respiratory_progression",
			Guard: func(in Input) bool {
				productive := in.Has("cough", "productive_cough") || in.Mentions(productivePhrases...)
				sob := in.Has("shortness_of_breath") || in.Mentions(breathingPhrases...)
				return productive && sob
			},
			Deltas: []Delta{{"pneumonia", 0.15}, {"covid19", 0.05}, {"influenza", -0.10}},
		},
		{
			Name:   "worsening_over_time",
			Guard:  func(in Input) bool { return in.Mentions(progressPhrases...) },
			Deltas: []Delta{{"pneumonia", 0.10}, {"influenza", -0.05}},
		},
		{
			Name:   "no_fever",
			Guard:  func(in Input) bool { return !in.Has("fever") && !in.Mentions("fever") },
			Deltas: []Delta{{"influenza", -0.10}},
		},
		{
			Name:   "exertional_chest",
			Guard:  func(in Input) bool { return chest(in) && exertion(in) },
			Deltas: []Delta{{"angina", 0.25}, {"anxiety", -0.10}},
		},
		{
			Name:   "radiating_chest",
			Guard:  func(in Input) bool { return chest(in) && in.Mentions(radiationPhrases...) },
			Deltas: []Delta{{"angina", 0.25}, {"anxiety", -0.10}},
		},
		{
			Name:   "exertional_dyspnea",
			Guard:  func(in Input) bool { return exertion(in) && in.Has("shortness_of_breath") },
			Deltas: []Delta{{"angina", 0.10}, {"anxiety", -0.05}},
		},
		{
			Name:  "cognitive_cluster",
			Guard: func(in Input) bool { return in.Has(cognitiveCluster...) && !in.Has(infectionMarkers...) },
			Deltas: []Delta{
				{"mild_cognitive_impairment", 0.35},
				{"influenza", -0.20},
				{"pneumonia", -0.10},
				{"covid19", -0.10},
				{"anxiety", 0.05},
			},
		},
	}
}

// Adjuster post-processes classifier probabilities with ordered rules.
// Adjust is pure; the adjuster holds no mutable state.
type Adjuster struct {
	rules []Rule
	seed  float64
}

// Option configures an Adjuster.
type Option func(*Adjuster)

// WithSeed sets the probability used to create missing condition keys.
func WithSeed(seed float64) Option {
	return func(a *Adjuster) {
		a.seed = seed
	}
}

// WithRules replaces the rule set.
func WithRules(rules []Rule) Option {
	return func(a *Adjuster) {
		a.rules = rules
	}
}

// NewAdjuster creates an adjuster with the default rules.
func NewAdjuster(opts ...Option) *Adjuster {
	a := &Adjuster{rules: DefaultRules(), seed: DefaultSeed}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adjust returns a new probability map; probs is not modified.
func (a *Adjuster) Adjust(probs map[string]float64, symptoms []string, text string) map[string]float64 {
	adjusted, _ := a.Trace(probs, symptoms, text)
	return adjusted
}

// Trace is Adjust that also returns the names of the rules that fired.
func (a *Adjuster) Trace(probs map[string]float64, symptoms []string, text string) (map[string]float64, []string) {
	out := make(map[string]float64, len(probs)+4)
	for k, v := range probs {
		out[k] = clamp(v)
	}

	in := Input{symptoms: make(map[string]bool, len(symptoms)), text: strings.ToLower(text)}
	for _, s := range symptoms {
		in.symptoms[s] = true
	}

	var fired []string
	for _, rule := range a.rules {
		if rule.Guard == nil || !rule.Guard(in) {
			continue
		}
		fired = append(fired, rule.Name)
		for _, d := range rule.Deltas {
			if _, ok := out[d.Condition]; !ok {
				out[d.Condition] = a.seed
			}
			out[d.Condition] = clamp(out[d.Condition] + d.Change)
		}
	}

	// Summing in key order keeps the result bit-for-bit reproducible.
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total float64
	for _, k := range keys {
		total += out[k]
	}
	if total > 1 {
		for _, k := range keys {
			out[k] /= total
		}
	}
	return out, fired
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
