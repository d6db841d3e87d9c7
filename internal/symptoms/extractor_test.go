package symptoms

import (
	"reflect"
	"testing"

	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(lexicon.MustDefault())
}

func TestExtract(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "cold symptoms",
			message: "I have a runny nose and sneezing",
			want:    []string{"runny_nose", "sneezing"},
		},
		{
			name:    "empty input",
			message: "",
			want:    []string{},
		},
		{
			name:    "whitespace only",
			message: "   \n\t ",
			want:    []string{},
		},
		{
			name:    "productive cough implies cough",
			message: "I keep bringing up phlegm",
			want:    []string{"cough", "productive_cough"},
		},
		{
			name:    "lexicon order not input order",
			message: "sneezing all day, and now a sore throat",
			want:    []string{"sneezing", "sore_throat"},
		},
		{
			name:    "case insensitive",
			message: "SEVERE CHEST PAIN",
			want:    []string{"severe_chest_pain", "chest_pain"},
		},
		{
			name:    "cognitive cluster",
			message: "I keep forgetting things and words are hard to find",
			want:    []string{"memory_loss", "word_finding_difficulty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.message)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractNoDuplicates(t *testing.T) {
	e := newTestExtractor(t)

	inputs := []string{
		"cough cough coughing coughs",
		"fever fever feverish, hot and burning up with a temperature",
		"headache, bad head pain, migraine and my head is pounding",
		"phlegm and a productive cough with coughing",
	}

	for _, in := range inputs {
		seen := make(map[string]bool)
		for _, id := range e.Extract(in) {
			if seen[id] {
				t.Errorf("duplicate %q in extraction of %q", id, in)
			}
			seen[id] = true
		}
	}
}

func TestExtractScoredFuzzy(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name    string
		message string
		wantID  string
		minConf float64
	}{
		{name: "misspelled dizziness", message: "I have dizzyness", wantID: "dizziness", minConf: 0.85},
		{name: "truncated sneezing", message: "constant sneezin", wantID: "sneezing", minConf: 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := e.ExtractScored(tt.message)
			var found *Match
			for i := range matches {
				if matches[i].ID == tt.wantID {
					found = &matches[i]
				}
			}
			if found == nil {
				t.Fatalf("expected %s in %v", tt.wantID, matches)
			}
			if found.Source != SourceFuzzy {
				t.Errorf("expected fuzzy source, got %s", found.Source)
			}
			if found.Confidence < tt.minConf {
				t.Errorf("confidence %.2f below %.2f", found.Confidence, tt.minConf)
			}
		})
	}
}

func TestExtractFuzzyRejectsNearMisses(t *testing.T) {
	e := newTestExtractor(t)

	// Each word is exactly 0.80 similar to a symptom name, which is not enough.
	for _, msg := range []string{"rough", "never", "trash"} {
		if got := e.Extract(msg); len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want none", msg, got)
		}
	}
}

func TestExtractKeepsMaxConfidence(t *testing.T) {
	e := newTestExtractor(t)

	matches := e.ExtractScored("sneezing")
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %v", matches)
	}
	if matches[0].Confidence != 1 {
		t.Errorf("expected exact fuzzy hit to win with 1.0, got %.2f", matches[0].Confidence)
	}
}

func TestHasSymptomTerm(t *testing.T) {
	e := newTestExtractor(t)

	if !e.HasSymptomTerm("my head hurts") {
		t.Error("expected symptom term in 'my head hurts'")
	}
	if e.HasSymptomTerm("hello there") {
		t.Error("did not expect symptom term in 'hello there'")
	}
}

func TestCues(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name          string
		message       string
		wantSeverity  string
		wantFrequency string
		wantOnset     string
	}{
		{
			name:          "severe constant",
			message:       "The pain is unbearable and constant since yesterday",
			wantSeverity:  "severe",
			wantFrequency: "constant",
			wantOnset:     "yesterday",
		},
		{
			name:          "mild intermittent",
			message:       "A slight headache that comes and goes, started 3 days ago",
			wantSeverity:  "mild",
			wantFrequency: "intermittent",
			wantOnset:     "3 days ago",
		},
		{
			name:          "numeric scale low",
			message:       "my back is about 2 out of 10",
			wantSeverity:  "mild",
			wantFrequency: "unknown",
			wantOnset:     "unknown",
		},
		{
			name:          "numeric scale high",
			message:       "I would rate it 9",
			wantSeverity:  "severe",
			wantFrequency: "unknown",
			wantOnset:     "unknown",
		},
		{
			name:          "severity word inside another word is ignored",
			message:       "I lost my badge",
			wantSeverity:  "unknown",
			wantFrequency: "unknown",
			wantOnset:     "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues := e.Cues(tt.message)
			if cues.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", cues.Severity, tt.wantSeverity)
			}
			if cues.Frequency != tt.wantFrequency {
				t.Errorf("frequency = %q, want %q", cues.Frequency, tt.wantFrequency)
			}
			if cues.Onset != tt.wantOnset {
				t.Errorf("onset = %q, want %q", cues.Onset, tt.wantOnset)
			}
		})
	}
}

func TestCuesDurationAndEmotions(t *testing.T) {
	e := newTestExtractor(t)

	cues := e.Cues("I'm worried and frustrated, this has gone on for 2 weeks")
	if cues.Duration["weeks"] != 2 {
		t.Errorf("expected 2 weeks, got %v", cues.Duration)
	}
	want := []string{"worried", "frustrated"}
	if !reflect.DeepEqual(cues.Emotions, want) {
		t.Errorf("emotions = %v, want %v", cues.Emotions, want)
	}
}

func TestFollowUps(t *testing.T) {
	e := newTestExtractor(t)

	got := e.FollowUps([]string{"headache"}, nil, 3)
	if len(got) != 1 || got[0] != "Is the headache throbbing or more like pressure?" {
		t.Errorf("unexpected follow-ups: %v", got)
	}

	asked := map[string]bool{"Is the headache throbbing or more like pressure?": true}
	got = e.FollowUps([]string{"headache"}, asked, 3)
	if len(got) != 1 || got[0] != "Where exactly is the headache?" {
		t.Errorf("expected second headache question, got %v", got)
	}

	got = e.FollowUps([]string{"sore_throat", "fatigue"}, nil, 3)
	if len(got) != 2 || got[0] != "How long have you had the sore throat?" {
		t.Errorf("expected generic questions, got %v", got)
	}

	got = e.FollowUps(nil, nil, 3)
	if len(got) != 3 {
		t.Errorf("expected 3 opening questions, got %v", got)
	}

	if got := e.FollowUps([]string{"fever"}, nil, 0); got != nil {
		t.Errorf("expected nil for zero limit, got %v", got)
	}
}
