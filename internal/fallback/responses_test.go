package fallback

import (
	"strings"
	"testing"
)

func TestGetFallbackResponse(t *testing.T) {
	tests := []struct {
		name           string
		kind           Kind
		expectedAction string
		containsText   string
	}{
		{
			name:           "insufficient input",
			kind:           KindInsufficientInput,
			expectedAction: "add_detail",
			containsText:   "more detailed description",
		},
		{
			name:           "no symptoms",
			kind:           KindNoSymptoms,
			expectedAction: "add_detail",
			containsText:   "specific symptoms",
		},
		{
			name:           "symptoms unclear",
			kind:           KindSymptomsUnclear,
			expectedAction: "rephrase",
			containsText:   "fever, cough or pain",
		},
		{
			name:           "low confidence",
			kind:           KindLowConfidence,
			expectedAction: "add_detail",
			containsText:   "confident assessment",
		},
		{
			name:           "processing error",
			kind:           KindProcessingError,
			expectedAction: "retry",
			containsText:   "simpler terms",
		},
		{
			name:           "unknown kind",
			kind:           Kind("mystery"),
			expectedAction: "retry",
			containsText:   "simpler terms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := GetFallbackResponse(tt.kind)

			if response.Action != tt.expectedAction {
				t.Errorf("Expected action %q, got %q", tt.expectedAction, response.Action)
			}
			if !strings.Contains(response.Content, tt.containsText) {
				t.Errorf("Expected content to contain %q, got %q", tt.containsText, response.Content)
			}
		})
	}
}

func TestEveryKindHasGuidance(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("kind %q has no fallback", k)
		}
		if GetFallbackResponse(k).Content == "" {
			t.Errorf("kind %q has empty content", k)
		}
	}
	if Kind("emergency").Valid() {
		t.Error("emergency is not a failure kind")
	}
}
