package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/themobileprof/symptomcheck/pkg/llm"
)

// ReplySchema is the exact JSON shape the enhancer must answer with.
const ReplySchema = `{
    "primary_condition": "Most likely diagnosis",
    "confidence_level": "high/medium/low",
    "differential_diagnoses": [
        {"condition": "Alternative diagnosis 1", "probability": 25},
        {"condition": "Alternative diagnosis 2", "probability": 15}
    ],
    "key_symptoms": ["symptom1", "symptom2", "symptom3"],
    "severity": "mild/moderate/severe",
    "red_flags": ["warning sign 1", "warning sign 2"],
    "recommendations": [
        "Primary treatment recommendation",
        "Secondary treatment recommendation",
        "When to seek medical attention"
    ],
    "reasoning": "Brief explanation of diagnosis reasoning"
}`

// Candidate is one scored condition from the statistical pass.
type Candidate struct {
	Condition   string  `json:"condition"`
	Probability float64 `json:"probability"`
}

// Analysis is the pre-enhancement result shown to the model.
type Analysis struct {
	Symptoms           []string    `json:"extracted_symptoms"`
	Candidates         []Candidate `json:"predicted_conditions"`
	Severity           string      `json:"predicted_severity,omitempty"`
	SeverityConfidence float64     `json:"severity_confidence,omitempty"`
}

// PromptRequest contains all information needed to build an enhancer prompt.
// Description must already be sanitized.
type PromptRequest struct {
	Description string
	Analysis    *Analysis
	// Earlier patient messages from the same chat session, oldest first.
	History []string
}

// Builder constructs prompts for the enhancer backends
type Builder struct {
	maxHistory int
}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{maxHistory: 4}
}

// BuildPrompt returns a system message with guidelines and a user message
// carrying the description, the statistical analysis and the reply schema.
func (b *Builder) BuildPrompt(req PromptRequest) []llm.ChatMessage {
	return []llm.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.buildUserPrompt(req)},
	}
}

const systemPrompt = "You are a medical AI assistant helping to analyze symptoms. " +
	"You provide a structured assessment that a symptom-intake service merges with its own statistical analysis.\n\n" +
	"IMPORTANT GUIDELINES:\n" +
	"- Be conservative and prioritize patient safety\n" +
	"- Always recommend professional medical evaluation for serious symptoms\n" +
	"- If symptoms suggest emergency, clearly state this in red_flags\n" +
	"- Consider common conditions before rare ones\n" +
	"- Provide practical, evidence-based recommendations\n" +
	"- Response must be valid JSON only"

func (b *Builder) buildUserPrompt(req PromptRequest) string {
	var sb strings.Builder
	sb.Grow(2048)

	history := req.History
	if len(history) > b.maxHistory {
		history = history[len(history)-b.maxHistory:]
	}
	if len(history) > 0 {
		sb.WriteString("EARLIER MESSAGES FROM THE PATIENT:\n")
		for _, h := range history {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("PATIENT DESCRIPTION:\n")
	sb.WriteString(req.Description)
	sb.WriteString("\n\n")

	sb.WriteString("STATISTICAL INITIAL ANALYSIS:\n")
	sb.WriteString(formatAnalysis(req.Analysis))
	sb.WriteString("\n\n")

	sb.WriteString("Please provide your assessment in this EXACT JSON format:\n")
	sb.WriteString(ReplySchema)
	sb.WriteString("\n")

	return sb.String()
}

func formatAnalysis(a *Analysis) string {
	if a == nil {
		return "No statistical analysis available"
	}
	out, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "No statistical analysis available"
	}
	return string(out)
}
