package knowledge

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultData []byte

// Severity labels.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// ValidSeverity reports whether s is one of mild, moderate, severe.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// TypicalSymptom is a symptom commonly present with a condition.
type TypicalSymptom struct {
	ID          string  `yaml:"id" json:"id"`
	Probability float64 `yaml:"probability" json:"probability"`
}

// Condition is a catalog entry describing one candidate diagnosis.
type Condition struct {
	ID           string           `yaml:"id" json:"id"`
	Name         string           `yaml:"name" json:"name"`
	Description  string           `yaml:"description" json:"description"`
	Symptoms     []TypicalSymptom `yaml:"symptoms" json:"symptoms"`
	Treatment    []string         `yaml:"treatment" json:"treatment"`
	HomeRemedies []string         `yaml:"home_remedies" json:"home_remedies"`
	Warnings     []string         `yaml:"warnings" json:"warnings"`
	Prevention   []string         `yaml:"prevention" json:"prevention"`
}

// Sample is one training example for the classifier.
type Sample struct {
	Description string   `yaml:"description" json:"description"`
	Symptoms    []string `yaml:"symptoms" json:"symptoms"`
	Condition   string   `yaml:"-" json:"condition"`
	Severity    string   `yaml:"severity" json:"severity"`
}

type entry struct {
	Condition `yaml:",inline"`
	Samples   []Sample `yaml:"samples"`
}

// Base is the static knowledge base. It is immutable after Load.
type Base struct {
	conditions map[string]Condition
	order      []string
	corpus     []Sample
}

// Load parses a YAML knowledge base.
func Load(data []byte) (*Base, error) {
	var f struct {
		Conditions []entry `yaml:"conditions"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if len(f.Conditions) == 0 {
		return nil, fmt.Errorf("knowledge base has no conditions")
	}

	b := &Base{conditions: make(map[string]Condition, len(f.Conditions))}
	for _, e := range f.Conditions {
		id := NormalizeID(e.ID)
		if id == "" {
			return nil, fmt.Errorf("condition without id")
		}
		if _, dup := b.conditions[id]; dup {
			return nil, fmt.Errorf("duplicate condition %q", id)
		}
		c := e.Condition
		c.ID = id
		b.conditions[id] = c
		b.order = append(b.order, id)

		for i, s := range e.Samples {
			if !ValidSeverity(s.Severity) {
				return nil, fmt.Errorf("condition %q sample %d: invalid severity %q", id, i, s.Severity)
			}
			s.Condition = id
			b.corpus = append(b.corpus, s)
		}
	}
	return b, nil
}

// Default loads the embedded knowledge base.
func Default() (*Base, error) {
	return Load(defaultData)
}

// MustDefault loads the embedded knowledge base and panics if it is corrupt.
func MustDefault() *Base {
	b, err := Default()
	if err != nil {
		panic("knowledge: " + err.Error())
	}
	return b
}

// Lookup returns the condition with the given id.
func (b *Base) Lookup(id string) (Condition, bool) {
	c, ok := b.conditions[NormalizeID(id)]
	return c, ok
}

// IDs returns condition ids in declaration order.
func (b *Base) IDs() []string {
	return b.order
}

// FallbackCorpus returns a copy of the built-in training samples.
func (b *Base) FallbackCorpus() []Sample {
	out := make([]Sample, len(b.corpus))
	copy(out, b.corpus)
	return out
}

// Labels returns the distinct condition labels of the built-in corpus, sorted.
func (b *Base) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, s := range b.corpus {
		if !seen[s.Condition] {
			seen[s.Condition] = true
			labels = append(labels, s.Condition)
		}
	}
	sort.Strings(labels)
	return labels
}

// NormalizeID lowercases a condition name and replaces spaces and hyphens
// with underscores: "Angina Pectoris" -> angina_pectoris.
func NormalizeID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
