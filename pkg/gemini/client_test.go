package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/themobileprof/symptomcheck/pkg/llm"
)

func TestNewHTTPClientDefaults(t *testing.T) {
	c := NewHTTPClient(Config{APIKey: "k"})
	if c.model != "gemini-2.0-flash" {
		t.Errorf("model = %q", c.model)
	}
	if c.timeout != 30*time.Second {
		t.Errorf("timeout = %v", c.timeout)
	}
	if !strings.HasPrefix(c.baseURL, "https://generativelanguage.googleapis.com") {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}

func TestToGeminiRequest(t *testing.T) {
	c := NewHTTPClient(Config{APIKey: "k"})
	gr := c.toGeminiRequest(llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "be careful"},
			{Role: "user", Content: "I have a cough"},
			{Role: "assistant", Content: "how long?"},
		},
		Temperature: 0.1,
		MaxTokens:   1000,
	})

	if gr.SystemInstruction == nil || gr.SystemInstruction.Parts[0].Text != "be careful" {
		t.Fatalf("system instruction not mapped: %+v", gr.SystemInstruction)
	}
	if len(gr.Contents) != 2 {
		t.Fatalf("contents = %d, want 2", len(gr.Contents))
	}
	if gr.Contents[1].Role != "model" {
		t.Errorf("assistant role mapped to %q", gr.Contents[1].Role)
	}
	if gr.GenerationConfig.MaxOutputTokens != 1000 {
		t.Errorf("max tokens = %d", gr.GenerationConfig.MaxOutputTokens)
	}
}

func TestHTTPClient_ChatCompletion(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantStatus  int
		wantContent string
	}{
		{
			name:   "success joins parts",
			status: http.StatusOK,
			body: `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}],
				"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`,
			wantContent: `{"a":1}`,
		},
		{name: "quota error", status: http.StatusTooManyRequests, body: `{"error":{"code":429}}`, wantErr: true, wantStatus: http.StatusTooManyRequests},
		{name: "bad key", status: http.StatusForbidden, body: `{"error":{"code":403}}`, wantErr: true, wantStatus: http.StatusForbidden},
		{name: "bad json", status: http.StatusOK, body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/gemini-test:generateContent") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("key") != "secret" {
					t.Errorf("api key not passed")
				}
				var gr geminiRequest
				if err := json.NewDecoder(r.Body).Decode(&gr); err != nil {
					t.Errorf("decode: %v", err)
				}
				if gr.GenerationConfig.ResponseMimeType != "application/json" {
					t.Errorf("responseMimeType = %q", gr.GenerationConfig.ResponseMimeType)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewHTTPClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "gemini-test", Timeout: 5 * time.Second})
			resp, err := c.ChatCompletion(context.Background(), llm.ChatRequest{
				Messages:       []llm.ChatMessage{{Role: "user", Content: "hi"}},
				ResponseFormat: llm.JSONObject(),
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				var apiErr *llm.APIError
				if tt.wantStatus != 0 && (!errors.As(err, &apiErr) || apiErr.StatusCode != tt.wantStatus) {
					t.Errorf("err = %v, want APIError with status %d", err, tt.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("ChatCompletion: %v", err)
			}
			got, err := resp.Content()
			if err != nil {
				t.Fatalf("Content: %v", err)
			}
			if got != tt.wantContent {
				t.Errorf("content = %q, want %q", got, tt.wantContent)
			}
			if resp.Usage.TotalTokens != 5 {
				t.Errorf("usage = %+v", resp.Usage)
			}
		})
	}
}

func TestHTTPClient_ErrorDoesNotLeakKey(t *testing.T) {
	c := NewHTTPClient(Config{APIKey: "very-secret", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.ChatCompletion(context.Background(), llm.ChatRequest{})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "very-secret") {
		t.Errorf("error leaks api key: %v", err)
	}
}
