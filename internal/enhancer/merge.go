package enhancer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/knowledge"
)

// topCandidates is how many classifier candidates count as "named" when
// deciding whether the enhancer proposes something new.
const topCandidates = 3

// maxKeptAlternatives bounds the classifier candidates kept after promotion.
const maxKeptAlternatives = 2

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	nonIdent      = regexp.MustCompile(`[^a-z0-9]+`)
)

// Merge folds a reply into r. The enhancer's condition is promoted to rank
// one when its mapped confidence beats the classifier's top probability or
// when it names a condition outside the classifier's top candidates. The
// second return reports whether r was changed.
func Merge(r diagnosis.Result, reply Reply) (diagnosis.Result, bool) {
	id := CanonicalID(reply.PrimaryCondition, r.Probabilities)
	if id == "" {
		return r, false
	}

	ranked := r.Ranked()
	var topProb float64
	if len(ranked) > 0 {
		topProb = ranked[0].Probability
	}

	named := false
	for i := 0; i < len(ranked) && i < topCandidates; i++ {
		if ranked[i].Condition == id {
			named = true
			break
		}
	}

	score := ConfidenceScore(reply.ConfidenceLevel)
	if score <= topProb && named {
		return r, false
	}

	out := r
	out.Probabilities = map[string]float64{id: score}
	kept := 0
	for _, c := range ranked {
		if kept == maxKeptAlternatives {
			break
		}
		if c.Condition == id {
			continue
		}
		out.Probabilities[c.Condition] = c.Probability
		kept++
	}
	out.Promoted = id

	out.Symptoms = unionSymptoms(r.Symptoms, reply.KeySymptoms)
	if reply.SeverityValid() {
		out.Severity = reply.Severity
		out.SeverityConfidence = score
	}

	out.Enhanced = true
	out.Reasoning = reply.Reasoning
	out.RedFlags = append([]string(nil), reply.RedFlags...)
	out.Recommendations = append([]string(nil), reply.Recommendations...)

	return out, true
}

// CanonicalID turns a free-form condition name into a snake_case id,
// snapping onto a known id when they differ only by separators
// ("COVID-19" -> covid19, "Influenza (Flu)" -> influenza).
func CanonicalID(name string, known map[string]float64) string {
	s := strings.ToLower(parenthetical.ReplaceAllString(name, " "))
	s = strings.Trim(nonIdent.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return ""
	}
	if _, ok := known[s]; ok {
		return s
	}
	keys := make([]string, 0, len(known))
	for k := range known {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	squashed := strings.ReplaceAll(s, "_", "")
	for _, k := range keys {
		if strings.ReplaceAll(k, "_", "") == squashed {
			return k
		}
	}
	return s
}

func unionSymptoms(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base)+len(extra))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range extra {
		id := knowledge.NormalizeID(s)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
