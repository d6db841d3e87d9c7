package privacy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxLogLength = 200

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// Rules apply in order; earlier, more specific shapes (SSN, card) win over
// the looser phone pattern.
var rules = []rule{
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
	{regexp.MustCompile(`\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b`), "[CARD]"},
	// US, international and 7-digit local numbers
	{regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}|\b\d{3}[-.\s]\d{4}\b`), "[PHONE]"},
	{regexp.MustCompile(`(?i)\b(MRN|Medical Record|Patient ID)[-:\s]*[A-Z0-9]{6,}\b`), "[MEDICAL_ID]"},
	{regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-](\d{4}|\d{2})\b`), "[DATE]"},
}

// Self-introductions keep their lead-in so the sentence still reads.
var nameRegex = regexp.MustCompile(`\b((?i:my name is|i am called|i'm called))\s+[A-Z][a-z]+(\s+[A-Z][a-z]+)?`)

// RedactSensitiveData removes PII from text
func RedactSensitiveData(text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.placeholder)
	}
	return text
}

// SanitizeForLogging redacts PII and truncates for safe log lines.
func SanitizeForLogging(text string) string {
	redacted := RedactSensitiveData(text)
	if utf8.RuneCountInString(redacted) <= maxLogLength {
		return redacted
	}
	runes := []rune(redacted)
	return string(runes[:maxLogLength-3]) + "..."
}

// SanitizeForPrompt removes PII before text is sent to an external model.
// Names from self-introductions are dropped as well; symptom wording,
// durations and pain scales are preserved.
func SanitizeForPrompt(text string) string {
	text = RedactSensitiveData(text)
	text = nameRegex.ReplaceAllString(text, "${1} [NAME]")
	return strings.TrimSpace(text)
}

// ContainsPII checks if text contains potential PII
func ContainsPII(text string) bool {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return true
		}
	}
	return false
}
