package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/themobileprof/symptomcheck/pkg/llm"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestClient_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}

		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != goopenai.GPT4oMini {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != goopenai.ChatMessageRoleUser {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != goopenai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}

		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: goopenai.GPT4oMini,
			Choices: []goopenai.ChatCompletionChoice{{
				Message:      goopenai.ChatCompletionMessage{Role: "assistant", Content: `{"severity":"mild"}`},
				FinishReason: goopenai.FinishReasonStop,
			}},
			Usage: goopenai.Usage{TotalTokens: 42},
		})
	}))
	defer server.Close()

	c, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := c.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "sys"},
			{Role: "tool", Content: "coerced to user"},
		},
		ResponseFormat: llm.JSONObject(),
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	content, err := resp.Content()
	if err != nil || content != `{"severity":"mild"}` {
		t.Errorf("content = %q, err = %v", content, err)
	}
	if resp.Usage.TotalTokens != 42 || resp.Choices[0].FinishReason != "stop" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestClient_ChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := c.ChatCompletion(context.Background(), llm.ChatRequest{})

	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *llm.APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Provider != "openai" || apiErr.Retryable() {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(apiErr.Body, "bad key") {
		t.Errorf("body = %q", apiErr.Body)
	}
}

func TestClient_DeepSeekCompatible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != DeepSeekModel {
			t.Errorf("model = %q, want %q", req.Model, DeepSeekModel)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"server busy","type":"server_error"}}`))
	}))
	defer server.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: DeepSeekModel, Provider: "deepseek"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.ChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.ChatMessage{{Role: "user", Content: "hi"}},
	})

	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.Provider != "deepseek" || !apiErr.Retryable() {
		t.Fatalf("err = %v, want retryable deepseek APIError", err)
	}
}
