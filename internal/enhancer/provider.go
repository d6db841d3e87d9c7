package enhancer

import (
	"fmt"
	"strings"

	"github.com/themobileprof/symptomcheck/pkg/gemini"
	"github.com/themobileprof/symptomcheck/pkg/llm"
	"github.com/themobileprof/symptomcheck/pkg/openai"
)

// Backend names.
const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
)

// Credentials holds per-backend API keys.
type Credentials struct {
	Gemini   string
	DeepSeek string
	OpenAI   string
}

// Settings selects and configures a backend.
type Settings struct {
	Enabled     bool
	Provider    string
	Credentials Credentials
	Config
}

// New returns the configured enhancer. A disabled flag or a missing
// credential yields Disabled rather than an error; an unknown provider
// name is a configuration error.
func New(s Settings) (Enhancer, error) {
	if !s.Enabled {
		return Disabled{Reason: "disabled by configuration"}, nil
	}

	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		provider = ProviderGemini
	}

	var client llm.Client
	switch provider {
	case ProviderGemini:
		if s.Credentials.Gemini == "" {
			return Disabled{Reason: "GEMINI_API_KEY not set"}, nil
		}
		client = gemini.NewHTTPClient(gemini.Config{APIKey: s.Credentials.Gemini, Model: s.Model, Timeout: s.Timeout})
	case ProviderDeepSeek:
		if s.Credentials.DeepSeek == "" {
			return Disabled{Reason: "DEEPSEEK_API_KEY not set"}, nil
		}
		model := s.Model
		if model == "" {
			model = openai.DeepSeekModel
		}
		c, err := openai.NewClient(openai.Config{
			APIKey:   s.Credentials.DeepSeek,
			BaseURL:  openai.DeepSeekBaseURL,
			Model:    model,
			Provider: ProviderDeepSeek,
		})
		if err != nil {
			return nil, fmt.Errorf("deepseek client: %w", err)
		}
		client = c
	case ProviderOpenAI:
		if s.Credentials.OpenAI == "" {
			return Disabled{Reason: "OPENAI_API_KEY not set"}, nil
		}
		c, err := openai.NewClient(openai.Config{APIKey: s.Credentials.OpenAI, Model: s.Model})
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		client = c
	default:
		return nil, fmt.Errorf("unknown enhancer provider %q", s.Provider)
	}

	return NewLLMEnhancer(client, s.Config), nil
}
