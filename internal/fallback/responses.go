package fallback

// Kind names an analysis outcome that did not produce a diagnosis.
type Kind string

const (
	KindInsufficientInput Kind = "insufficient_input"
	KindNoSymptoms        Kind = "no_symptoms_detected"
	KindSymptomsUnclear   Kind = "symptoms_unclear"
	KindLowConfidence     Kind = "low_confidence"
	KindProcessingError   Kind = "processing_error"
)

// Kinds lists every failure kind in taxonomy order.
var Kinds = []Kind{KindInsufficientInput, KindNoSymptoms, KindSymptomsUnclear, KindLowConfidence, KindProcessingError}

// Response represents a fallback response
type Response struct {
	Content string
	Action  string // "add_detail", "rephrase", "retry"
}

// SafetyNet closes every fallback so the user is never left without a next step.
const SafetyNet = "If you feel very unwell or your symptoms are getting worse quickly, please contact a healthcare provider or your local emergency number."

// Examples show users how to phrase a description.
var Examples = []string{
	"I have a fever and body aches",
	"I'm feeling tired with a headache",
	"I've had a cough and sore throat for three days",
}

var fallbacks = map[Kind]Response{
	KindInsufficientInput: {
		Content: "Please provide a more detailed description of your symptoms.",
		Action:  "add_detail",
	},
	KindNoSymptoms: {
		Content: "I couldn't detect any clear symptoms in your description. Please describe how you're feeling with specific symptoms.",
		Action:  "add_detail",
	},
	KindSymptomsUnclear: {
		Content: "I couldn't identify specific symptoms from your description. Please mention specific symptoms like fever, cough or pain.",
		Action:  "rephrase",
	},
	KindLowConfidence: {
		Content: "I don't have enough information to make a confident assessment. Please provide more details about your symptoms.",
		Action:  "add_detail",
	},
	KindProcessingError: {
		Content: "I'm having some difficulty analyzing your symptoms right now. Could you try describing them in simpler terms?",
		Action:  "retry",
	},
}

// GetFallbackResponse returns the guidance for kind. Unknown kinds get the
// processing-error guidance.
func GetFallbackResponse(kind Kind) Response {
	if response, ok := fallbacks[kind]; ok {
		return response
	}
	return fallbacks[KindProcessingError]
}

// Valid reports whether k is a known failure kind.
func (k Kind) Valid() bool {
	_, ok := fallbacks[k]
	return ok
}
