package lexicon

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultData []byte

// Symptom is one canonical symptom with its surface patterns.
type Symptom struct {
	ID        string
	Category  string
	Weight    float64
	Emergency bool
	Fuzzy     bool
	Patterns  []*regexp.Regexp
	FollowUps []string
}

// Display returns the human-readable name of the symptom.
func (s Symptom) Display() string {
	return Display(s.ID)
}

// CompoundRule marks Triggers as present when one of Phrases matches the
// raw text. When Requires is non-empty one of those symptoms must also have
// been extracted.
type CompoundRule struct {
	Triggers string
	Requires []string
	Phrases  []*regexp.Regexp
}

// Lexicon holds the ordered symptom table and the cue vocabularies.
// It is immutable after Load.
type Lexicon struct {
	symptoms     []Symptom
	compound     []CompoundRule
	index        map[string]int
	severity     map[string][]string
	frequency    map[string][]string
	emotions     map[string][]string
	symptomTerms []string
}

type fileSymptom struct {
	ID        string   `yaml:"id"`
	Category  string   `yaml:"category"`
	Weight    float64  `yaml:"weight"`
	Emergency bool     `yaml:"emergency"`
	Fuzzy     bool     `yaml:"fuzzy"`
	Patterns  []string `yaml:"patterns"`
	FollowUps []string `yaml:"follow_ups"`
}

type fileCompound struct {
	Triggers string   `yaml:"triggers"`
	Requires []string `yaml:"requires"`
	Phrases  []string `yaml:"phrases"`
}

type file struct {
	Symptoms     []fileSymptom       `yaml:"symptoms"`
	Compound     []fileCompound      `yaml:"compound_emergencies"`
	Severity     map[string][]string `yaml:"severity"`
	Frequency    map[string][]string `yaml:"frequency"`
	Emotions     map[string][]string `yaml:"emotions"`
	SymptomTerms []string            `yaml:"symptom_terms"`
}

// Load parses a YAML lexicon and compiles every pattern case-insensitively.
func Load(data []byte) (*Lexicon, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(f.Symptoms) == 0 {
		return nil, fmt.Errorf("lexicon has no symptoms")
	}

	lex := &Lexicon{
		symptoms:     make([]Symptom, 0, len(f.Symptoms)),
		index:        make(map[string]int, len(f.Symptoms)),
		severity:     lowerAll(f.Severity),
		frequency:    lowerAll(f.Frequency),
		emotions:     lowerAll(f.Emotions),
		symptomTerms: f.SymptomTerms,
	}

	for _, fs := range f.Symptoms {
		if fs.ID == "" {
			return nil, fmt.Errorf("lexicon entry without id")
		}
		if _, dup := lex.index[fs.ID]; dup {
			return nil, fmt.Errorf("duplicate symptom %q", fs.ID)
		}
		if len(fs.Patterns) == 0 {
			return nil, fmt.Errorf("symptom %q has no patterns", fs.ID)
		}

		compiled, err := compile(fs.Patterns)
		if err != nil {
			return nil, fmt.Errorf("symptom %q: %w", fs.ID, err)
		}

		lex.index[fs.ID] = len(lex.symptoms)
		lex.symptoms = append(lex.symptoms, Symptom{
			ID:        fs.ID,
			Category:  fs.Category,
			Weight:    fs.Weight,
			Emergency: fs.Emergency,
			Fuzzy:     fs.Fuzzy,
			Patterns:  compiled,
			FollowUps: fs.FollowUps,
		})
	}

	for _, fc := range f.Compound {
		sym, ok := lex.Lookup(fc.Triggers)
		if !ok || !sym.Emergency {
			return nil, fmt.Errorf("compound rule triggers %q, which is not an emergency symptom", fc.Triggers)
		}
		for _, id := range fc.Requires {
			if _, ok := lex.index[id]; !ok {
				return nil, fmt.Errorf("compound rule %q requires unknown symptom %q", fc.Triggers, id)
			}
		}
		if len(fc.Phrases) == 0 {
			return nil, fmt.Errorf("compound rule %q has no phrases", fc.Triggers)
		}
		phrases, err := compile(fc.Phrases)
		if err != nil {
			return nil, fmt.Errorf("compound rule %q: %w", fc.Triggers, err)
		}
		lex.compound = append(lex.compound, CompoundRule{
			Triggers: fc.Triggers,
			Requires: fc.Requires,
			Phrases:  phrases,
		})
	}

	return lex, nil
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Default loads the embedded lexicon.
func Default() (*Lexicon, error) {
	return Load(defaultData)
}

// MustDefault loads the embedded lexicon and panics if it is corrupt.
func MustDefault() *Lexicon {
	lex, err := Default()
	if err != nil {
		panic("lexicon: " + err.Error())
	}
	return lex
}

// Symptoms returns the symptom table in declaration order.
func (l *Lexicon) Symptoms() []Symptom {
	return l.symptoms
}

// CompoundRules returns the phrase rules that escalate a milder symptom to
// an emergency, in declaration order.
func (l *Lexicon) CompoundRules() []CompoundRule {
	return l.compound
}

// Lookup finds a symptom by id.
func (l *Lexicon) Lookup(id string) (Symptom, bool) {
	i, ok := l.index[id]
	if !ok {
		return Symptom{}, false
	}
	return l.symptoms[i], true
}

// Order returns the declaration position of id, or -1 when unknown.
func (l *Lexicon) Order(id string) int {
	if i, ok := l.index[id]; ok {
		return i
	}
	return -1
}

// SeverityVocabulary returns indicator words for a level (mild, moderate, severe).
func (l *Lexicon) SeverityVocabulary(level string) []string {
	return l.severity[level]
}

// FrequencyVocabulary returns indicator phrases for a frequency class.
func (l *Lexicon) FrequencyVocabulary(class string) []string {
	return l.frequency[class]
}

// EmotionVocabulary returns indicator phrases for an emotion.
func (l *Lexicon) EmotionVocabulary(emotion string) []string {
	return l.emotions[emotion]
}

// SymptomTerms returns the words that mark text as symptom talk.
func (l *Lexicon) SymptomTerms() []string {
	return l.symptomTerms
}

// Display title-cases a snake_case identifier: runny_nose -> Runny Nose.
func Display(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func lowerAll(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, vs := range in {
		lowered := make([]string, len(vs))
		for i, v := range vs {
			lowered[i] = strings.ToLower(v)
		}
		out[k] = lowered
	}
	return out
}
