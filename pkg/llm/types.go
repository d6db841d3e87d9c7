package llm

// ChatMessage represents a message in the conversation
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// ChatRequest represents a generic request to an LLM API
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`

	// ResponseFormat asks the backend for a structured reply. Backends
	// without JSON mode ignore it.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormatJSON requests a single JSON object as the reply.
const ResponseFormatJSON = "json_object"

// ResponseFormat is the OpenAI-style response_format field.
type ResponseFormat struct {
	Type string `json:"type"`
}

// JSONObject is a ResponseFormat of type json_object.
func JSONObject() *ResponseFormat {
	return &ResponseFormat{Type: ResponseFormatJSON}
}

// Choice is one completion candidate.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse represents a non-streaming response
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the text of the first choice, or ErrEmptyReply.
func (r *ChatResponse) Content() (string, error) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return r.Choices[0].Message.Content, nil
}
