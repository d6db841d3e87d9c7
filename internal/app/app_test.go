package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/config"
	"github.com/themobileprof/symptomcheck/internal/enhancer"
	"github.com/themobileprof/symptomcheck/internal/knowledge"
	"github.com/themobileprof/symptomcheck/internal/render"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromViper(config.New())
	require.NoError(t, err)
	return cfg
}

type stubCatalog struct {
	samples []knowledge.Sample
	err     error
}

func (s stubCatalog) TrainingSamples(context.Context) ([]knowledge.Sample, error) {
	return s.samples, s.err
}

func (s stubCatalog) Condition(context.Context, string) (knowledge.Condition, error) {
	return knowledge.Condition{}, errors.New("not here")
}

func TestNewBuiltinCorpus(t *testing.T) {
	a, err := New(context.Background(), defaultConfig(t), WithEnhancer(enhancer.Disabled{Reason: "test"}))
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Model.Sufficiency().Sufficient)
	assert.False(t, enhancer.Available(a.Enhancer))

	resp := a.Analyzer.Analyze(context.Background(), "I have a runny nose and sneezing", render.AudiencePatient)
	assert.Equal(t, analyzer.KindDiagnosis, resp.Kind)
	assert.NotEmpty(t, resp.PrimaryCondition)
}

func TestNewFallsBackOnCatalogFailure(t *testing.T) {
	builtin := len(knowledge.MustDefault().FallbackCorpus())

	tests := []struct {
		name    string
		catalog stubCatalog
	}{
		{name: "catalog error", catalog: stubCatalog{err: errors.New("connection refused")}},
		{name: "catalog empty", catalog: stubCatalog{}},
		{name: "catalog untrainable", catalog: stubCatalog{samples: []knowledge.Sample{
			{Description: "cough", Condition: "flu", Severity: "catastrophic"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(context.Background(), defaultConfig(t),
				WithCatalog(tt.catalog), WithEnhancer(enhancer.Disabled{}))
			require.NoError(t, err)
			assert.Equal(t, builtin, a.Model.Sufficiency().Samples)
		})
	}
}

func TestNewUnreachableDatabase(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Database.Driver = "sqlite3"
	cfg.Database.URL = "file:/nonexistent/dir/catalog.db?mode=ro"

	a, err := New(context.Background(), cfg, WithEnhancer(enhancer.Disabled{}))
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.Model.Sufficiency().Sufficient)
}

func TestNewEnhancerFromConfig(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Enhancer.Enabled = true
	cfg.Enhancer.Provider = "deepseek"
	cfg.Credentials.DeepSeek = "sk-test"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, enhancer.Available(a.Enhancer))

	cfg.Enhancer.Provider = "cohere"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg.Enhancer.Enabled = false
	a, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, enhancer.Available(a.Enhancer))
}

func TestMappings(t *testing.T) {
	cfg := defaultConfig(t)

	th := Thresholds(cfg)
	assert.Equal(t, 0.08, th.Floor)
	assert.Equal(t, 0.5, th.High)
	assert.Equal(t, 0.2, th.Medium)

	cfg.Enhancer.MaxRetries = 0
	s := EnhancerSettings(cfg)
	assert.Equal(t, 0, s.MaxRetries)
	assert.Equal(t, cfg.Enhancer.Timeout, s.Timeout)
	assert.Equal(t, enhancer.DefaultConfig().BreakerFailures, s.BreakerFailures)
}
