package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/themobileprof/symptomcheck/pkg/llm"
)

// Client implements llm.Client on top of the go-openai SDK.
type Client struct {
	client   *goopenai.Client
	model    string
	provider string
}

var _ llm.Client = (*Client)(nil)

// DeepSeekBaseURL serves DeepSeek's OpenAI-compatible API.
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekModel is the default model on DeepSeekBaseURL.
const DeepSeekModel = "deepseek-chat"

// Config holds configuration for the OpenAI client
type Config struct {
	APIKey  string
	BaseURL string // optional, for compatible gateways such as DeepSeek
	Model   string // Default: gpt-4o-mini

	// Provider names the backend in errors. Default: openai
	Provider string
}

// NewClient creates a new OpenAI client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.Model == "" {
		config.Model = goopenai.GPT4oMini
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Client{
		client:   goopenai.NewClientWithConfig(clientConfig),
		model:    config.Model,
		provider: config.Provider,
	}, nil
}

// ChatCompletion implements llm.Client.ChatCompletion
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role != goopenai.ChatMessageRoleSystem && role != goopenai.ChatMessageRoleAssistant {
			role = goopenai.ChatMessageRoleUser
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	creq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == llm.ResponseFormatJSON {
		creq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, c.apiError(err)
	}

	out := &llm.ChatResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, llm.Choice{
			Index:        ch.Index,
			Message:      llm.ChatMessage{Role: ch.Message.Role, Content: ch.Message.Content},
			FinishReason: string(ch.FinishReason),
		})
	}
	return out, nil
}

// apiError turns the SDK's HTTP errors into llm.APIError so callers can
// tell a rejected request from a transient failure.
func (c *Client) apiError(err error) error {
	var (
		apiErr *goopenai.APIError
		reqErr *goopenai.RequestError
	)
	switch {
	case errors.As(err, &apiErr):
		return &llm.APIError{Provider: c.provider, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	case errors.As(err, &reqErr):
		body := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &llm.APIError{Provider: c.provider, StatusCode: reqErr.HTTPStatusCode, Body: body}
	default:
		return fmt.Errorf("%s request failed: %w", c.provider, err)
	}
}
