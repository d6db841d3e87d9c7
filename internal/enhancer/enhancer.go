package enhancer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/themobileprof/symptomcheck/internal/circuitbreaker"
	"github.com/themobileprof/symptomcheck/internal/diagnosis"
	"github.com/themobileprof/symptomcheck/internal/privacy"
	"github.com/themobileprof/symptomcheck/internal/prompt"
	"github.com/themobileprof/symptomcheck/pkg/llm"
)

var (
	// ErrUnavailable means no backend is configured or every attempt failed.
	ErrUnavailable = errors.New("enhancer unavailable")
	// ErrMalformedReply means the backend answered but not with the schema.
	ErrMalformedReply = errors.New("malformed enhancer reply")
)

// Request is one enhancement query.
type Request struct {
	Text    string
	Result  diagnosis.Result
	History []string
}

// Enhancer is an optional capability consulted on low classifier confidence.
type Enhancer interface {
	Enhance(ctx context.Context, req Request) (Reply, error)
}

// Disabled is the enhancer used when the feature is off or has no credential.
type Disabled struct {
	Reason string
}

// Enhance always returns ErrUnavailable.
func (d Disabled) Enhance(context.Context, Request) (Reply, error) {
	return Reply{}, ErrUnavailable
}

// Available reports whether e can be consulted at all.
func Available(e Enhancer) bool {
	if e == nil {
		return false
	}
	switch v := e.(type) {
	case Disabled, *Disabled:
		return false
	case *LLMEnhancer:
		return v != nil && v.client != nil
	}
	return true
}

// Config tunes the outbound call.
type Config struct {
	Model         string
	Timeout       time.Duration // per attempt
	MaxRetries    int           // attempts after the first
	Backoff       time.Duration // base delay, doubled per retry
	RatePerMinute int
	CacheTTL      time.Duration
	// Breaker trips after this many consecutive transport failures.
	BreakerFailures int
	BreakerReset    time.Duration
}

// DefaultConfig returns conservative settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		Backoff:         time.Second,
		RatePerMinute:   30,
		CacheTTL:        30 * time.Minute,
		BreakerFailures: 5,
		BreakerReset:    30 * time.Second,
	}
}

// LLMEnhancer consults an llm.Client.
type LLMEnhancer struct {
	client  llm.Client
	builder *prompt.Builder
	breaker *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
	replies *cache.Cache
	cfg     Config
	sleep   func(context.Context, time.Duration) error
}

// NewLLMEnhancer wraps client. Unset durations and limits take DefaultConfig
// values; MaxRetries is used as given.
func NewLLMEnhancer(client llm.Client, cfg Config) *LLMEnhancer {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = def.RatePerMinute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = def.BreakerReset
	}

	burst := cfg.RatePerMinute / 6
	if burst < 1 {
		burst = 1
	}

	return &LLMEnhancer{
		client:  client,
		builder: prompt.NewBuilder(),
		breaker: circuitbreaker.NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerReset,
			circuitbreaker.WithName("enhancer"),
			circuitbreaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Printf("%s circuit %s -> %s", name, from, to)
			})),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), burst),
		replies: cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		cfg:     cfg,
		sleep:   sleepCtx,
	}
}

// Enhance asks the backend for a structured differential. Transport errors
// are retried with exponential backoff; malformed replies are not.
func (e *LLMEnhancer) Enhance(ctx context.Context, req Request) (Reply, error) {
	if e == nil || e.client == nil {
		return Reply{}, ErrUnavailable
	}

	text := privacy.SanitizeForPrompt(req.Text)
	history := make([]string, len(req.History))
	for i, h := range req.History {
		history[i] = privacy.SanitizeForPrompt(h)
	}

	key := cacheKey(text, history)
	if v, ok := e.replies.Get(key); ok {
		return v.(Reply), nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return Reply{}, fmt.Errorf("%w: rate limit: %w", ErrUnavailable, err)
	}

	chatReq := llm.ChatRequest{
		Model: e.cfg.Model,
		Messages: e.builder.BuildPrompt(prompt.PromptRequest{
			Description: text,
			Analysis:    analysisOf(req.Result),
			History:     history,
		}),
		Temperature:    0.1,
		MaxTokens:      1000,
		ResponseFormat: llm.JSONObject(),
	}

	content, err := e.complete(ctx, chatReq)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	reply, err := ParseReply(content)
	if err != nil {
		return Reply{}, err
	}

	e.replies.Set(key, reply, cache.DefaultExpiration)
	return reply, nil
}

func (e *LLMEnhancer) complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	var (
		content string
		lastErr error
	)
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.cfg.Backoff << (attempt - 1)
			if err := e.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		lastErr = e.breaker.Execute(ctx, func(ctx context.Context) error {
			actx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
			defer cancel()

			resp, err := e.client.ChatCompletion(actx, req)
			if err != nil {
				return err
			}
			content, err = resp.Content()
			return err
		})
		if lastErr == nil {
			return content, nil
		}

		if errors.Is(lastErr, circuitbreaker.ErrCircuitOpen) ||
			errors.Is(lastErr, circuitbreaker.ErrTooManyRequests) ||
			!llm.IsRetryable(lastErr) ||
			ctx.Err() != nil {
			break
		}
		log.Printf("enhancer attempt %d/%d failed: %v", attempt+1, e.cfg.MaxRetries+1, lastErr)
	}
	return "", lastErr
}

func analysisOf(r diagnosis.Result) *prompt.Analysis {
	if len(r.Probabilities) == 0 && len(r.Symptoms) == 0 {
		return nil
	}
	a := &prompt.Analysis{
		Symptoms:           r.Symptoms,
		Severity:           r.Severity,
		SeverityConfidence: r.SeverityConfidence,
	}
	for i, c := range r.Ranked() {
		if i == topCandidates {
			break
		}
		a.Candidates = append(a.Candidates, prompt.Candidate{Condition: c.Condition, Probability: c.Probability})
	}
	return a
}

func cacheKey(text string, history []string) string {
	parts := append(append([]string(nil), history...), text)
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
