package privacy

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "email redaction",
			input:    "My email is john.doe@example.com",
			expected: "My email is [EMAIL]",
		},
		{
			name:     "phone redaction",
			input:    "Call me at 555-123-4567",
			expected: "Call me at [PHONE]",
		},
		{
			name:     "SSN redaction",
			input:    "My SSN is 123-45-6789",
			expected: "My SSN is [SSN]",
		},
		{
			name:     "credit card redaction",
			input:    "Card: 4532-1234-5678-9010",
			expected: "Card: [CARD]",
		},
		{
			name:     "medical record number",
			input:    "MRN: AB123456 says asthma",
			expected: "[MEDICAL_ID] says asthma",
		},
		{
			name:     "date of birth",
			input:    "born 04/12/1961, chest tightness",
			expected: "born [DATE], chest tightness",
		},
		{
			name:     "multiple PII types",
			input:    "Email: test@test.com, Phone: 555-1234",
			expected: "Email: [EMAIL], Phone: [PHONE]",
		},
		{
			name:     "pain scale and temperature untouched",
			input:    "Pain is 8/10 and fever of 101.5 for 3 days",
			expected: "Pain is 8/10 and fever of 101.5 for 3 days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RedactSensitiveData(tt.input)
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestSanitizeForPrompt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "self introduction",
			input:    "My name is Jane Doe and I have a cough",
			expected: "My name is [NAME] and I have a cough",
		},
		{
			name:     "lowercase words are not names",
			input:    "my name is not important, my head hurts",
			expected: "my name is not important, my head hurts",
		},
		{
			name:     "contact details",
			input:    "  sore throat, reach me at a@b.io  ",
			expected: "sore throat, reach me at [EMAIL]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForPrompt(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestContainsPII(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "contains email", input: "Contact me at user@example.com", expected: true},
		{name: "contains phone", input: "My number is 555-1234", expected: true},
		{name: "no PII", input: "I'm feeling nauseous today", expected: false},
		{name: "symptom duration", input: "headache for 2 weeks, pain 7 out of 10", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsPII(tt.input); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSanitizeForLogging(t *testing.T) {
	result := SanitizeForLogging(strings.Repeat("a", 250))
	if utf8.RuneCountInString(result) > 200 {
		t.Errorf("result not truncated: got length %d, want <= 200", len(result))
	}
	if !strings.HasSuffix(result, "...") {
		t.Errorf("truncated text should end with '...'")
	}

	multibyte := SanitizeForLogging(strings.Repeat("é", 250))
	if !utf8.ValidString(multibyte) {
		t.Error("truncation split a multi-byte rune")
	}

	if got := SanitizeForLogging("short"); got != "short" {
		t.Errorf("short text changed: %q", got)
	}
}
