package symptoms

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

const (
	// patternConfidence is assigned to symptoms found by a lexicon pattern.
	patternConfidence = 0.9
	// fuzzyThreshold is the minimum normalized similarity for a fuzzy token match.
	fuzzyThreshold = 0.80
	// minFuzzyTokenLen excludes short tokens from fuzzy matching.
	minFuzzyTokenLen = 4
)

// Source tells how a symptom was detected.
type Source string

const (
	SourcePattern Source = "pattern"
	SourceFuzzy   Source = "fuzzy"
	SourceDerived Source = "derived"
)

// Match is one detected symptom with its detection confidence.
type Match struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// derivations lists symptoms implied by another detected symptom.
var derivations = []struct {
	from, implies string
}{
	{from: "productive_cough", implies: "cough"},
}

var tokenSplitter = regexp.MustCompile(`[a-z]+`)

// Extractor turns free text into canonical symptom identifiers using the lexicon.
// It is stateless and safe for concurrent use.
type Extractor struct {
	lex *lexicon.Lexicon
}

// NewExtractor creates an extractor over lex.
func NewExtractor(lex *lexicon.Lexicon) *Extractor {
	return &Extractor{lex: lex}
}

// Lexicon returns the lexicon backing the extractor.
func (e *Extractor) Lexicon() *lexicon.Lexicon {
	return e.lex
}

// Extract returns the detected symptom identifiers in lexicon order.
func (e *Extractor) Extract(text string) []string {
	matches := e.ExtractScored(text)
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

// ExtractScored returns detected symptoms with confidences, in lexicon order,
// each identifier at most once.
func (e *Extractor) ExtractScored(text string) []Match {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return []Match{}
	}

	found := make(map[string]Match)
	keep := func(m Match) {
		if prev, ok := found[m.ID]; ok && prev.Confidence >= m.Confidence {
			return
		}
		found[m.ID] = m
	}

	// Pattern pass: first matching pattern wins
	for _, s := range e.lex.Symptoms() {
		for _, re := range s.Patterns {
			if re.MatchString(lower) {
				keep(Match{ID: s.ID, Confidence: patternConfidence, Source: SourcePattern})
				break
			}
		}
	}

	// Fuzzy pass over single-word symptom names
	tokens := tokenSplitter.FindAllString(lower, -1)
	for _, s := range e.lex.Symptoms() {
		if !s.Fuzzy {
			continue
		}
		for _, name := range strings.Split(s.ID, "_") {
			for _, tok := range tokens {
				if len(tok) < minFuzzyTokenLen {
					continue
				}
				if sim := similarity(tok, name); sim > fuzzyThreshold {
					keep(Match{ID: s.ID, Confidence: sim, Source: SourceFuzzy})
				}
			}
		}
	}

	for _, d := range derivations {
		if _, ok := found[d.from]; !ok {
			continue
		}
		if _, ok := found[d.implies]; !ok {
			found[d.implies] = Match{ID: d.implies, Confidence: found[d.from].Confidence, Source: SourceDerived}
		}
	}

	out := make([]Match, 0, len(found))
	for _, m := range found {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return e.lex.Order(out[i].ID) < e.lex.Order(out[j].ID)
	})
	return out
}

// HasSymptomTerm reports whether text contains any generic symptom word.
func (e *Extractor) HasSymptomTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range e.lex.SymptomTerms() {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)).
func similarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Cues are contextual details about how the user describes their symptoms.
type Cues struct {
	Severity  string         `json:"severity"`
	Frequency string         `json:"frequency"`
	Onset     string         `json:"onset"`
	Duration  map[string]int `json:"duration,omitempty"`
	Emotions  []string       `json:"emotions,omitempty"`
}

// Cues extracts severity, frequency, onset, duration and emotional tone.
func (e *Extractor) Cues(text string) Cues {
	lower := strings.ToLower(text)
	return Cues{
		Severity:  e.extractSeverity(lower),
		Frequency: e.extractFrequency(lower),
		Onset:     extractOnsetTime(lower),
		Duration:  extractDuration(lower),
		Emotions:  e.extractEmotions(lower),
	}
}

var severityScales = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2})\s*(?:out of|/)\s*10\b`),
	regexp.MustCompile(`(?:rate|scale|level)\D{0,20}?(\d{1,2})\b`),
}

// extractSeverity reads the stated intensity; severe words are checked first.
func (e *Extractor) extractSeverity(message string) string {
	for _, level := range []string{"severe", "moderate", "mild"} {
		for _, keyword := range e.lex.SeverityVocabulary(level) {
			if containsWord(message, keyword) {
				return level
			}
		}
	}

	for _, re := range severityScales {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		switch {
		case n <= 3:
			return "mild"
		case n <= 7:
			return "moderate"
		default:
			return "severe"
		}
	}

	return "unknown"
}

func (e *Extractor) extractFrequency(message string) string {
	for _, class := range []string{"constant", "daily", "hourly", "intermittent"} {
		for _, keyword := range e.lex.FrequencyVocabulary(class) {
			if strings.Contains(message, keyword) {
				return class
			}
		}
	}
	return "unknown"
}

func (e *Extractor) extractEmotions(message string) []string {
	var emotions []string
	for _, emotion := range []string{"worried", "frustrated", "confused", "urgent"} {
		for _, keyword := range e.lex.EmotionVocabulary(emotion) {
			if strings.Contains(message, keyword) {
				emotions = append(emotions, emotion)
				break
			}
		}
	}
	return emotions
}

// onsetPatterns are checked in order; the first hit is returned verbatim.
var onsetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(right now|just now|currently)`),
	regexp.MustCompile(`(today|this morning|this afternoon|this evening|tonight)`),
	regexp.MustCompile(`yesterday`),
	regexp.MustCompile(`(\d+)\s*days?\s*ago`),
	regexp.MustCompile(`(\d+)\s*weeks?\s*ago`),
	regexp.MustCompile(`(this|last) week`),
	regexp.MustCompile(`(few days|couple( of)? days|several days)`),
	regexp.MustCompile(`(recently|lately)`),
}

func extractOnsetTime(message string) string {
	for _, pattern := range onsetPatterns {
		if match := pattern.FindString(message); match != "" {
			return match
		}
	}
	return "unknown"
}

var durationPatterns = []struct {
	unit    string
	pattern *regexp.Regexp
}{
	{"minutes", regexp.MustCompile(`(\d+)\s*(?:mins?|minutes?)\b`)},
	{"hours", regexp.MustCompile(`(\d+)\s*(?:hrs?|hours?)\b`)},
	{"days", regexp.MustCompile(`(\d+)\s*days?\b`)},
	{"weeks", regexp.MustCompile(`(\d+)\s*weeks?\b`)},
	{"months", regexp.MustCompile(`(\d+)\s*months?\b`)},
}

func extractDuration(message string) map[string]int {
	var out map[string]int
	for _, d := range durationPatterns {
		m := d.pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[d.unit] = n
	}
	return out
}

// containsWord matches keyword on word boundaries so "bad" does not hit "badge".
func containsWord(message, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(message[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		if (start == 0 || !isLetter(message[start-1])) && (end == len(message) || !isLetter(message[end])) {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// FollowUps suggests up to limit clarifying questions for the detected symptoms,
// skipping any question already in asked.
func (e *Extractor) FollowUps(ids []string, asked map[string]bool, limit int) []string {
	if limit <= 0 {
		return nil
	}
	var questions []string
	add := func(q string) bool {
		if asked[q] {
			return false
		}
		for _, existing := range questions {
			if existing == q {
				return false
			}
		}
		questions = append(questions, q)
		return len(questions) >= limit
	}

	for _, id := range ids {
		s, ok := e.lex.Lookup(id)
		if !ok {
			continue
		}
		name := strings.ReplaceAll(id, "_", " ")
		candidates := s.FollowUps
		if len(candidates) == 0 {
			candidates = []string{
				"How long have you had the " + name + "?",
				"On a scale of 1 to 10, how bad is the " + name + "?",
				"What seems to trigger or worsen the " + name + "?",
			}
		}
		for _, q := range candidates {
			if !asked[q] {
				if add(q) {
					return questions
				}
				break
			}
		}
	}

	if len(questions) == 0 && len(ids) == 0 {
		for _, q := range []string{
			"Where in your body do you feel it?",
			"When did it start?",
			"How severe is it on a scale of 1 to 10?",
		} {
			if add(q) {
				break
			}
		}
	}
	return questions
}
