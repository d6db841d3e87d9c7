package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themobileprof/symptomcheck/internal/knowledge"
)

type stubProvider struct {
	samples    []knowledge.Sample
	samplesErr error
	conditions map[string]knowledge.Condition
	condErr    error
	calls      int
}

func (s *stubProvider) TrainingSamples(ctx context.Context) ([]knowledge.Sample, error) {
	return s.samples, s.samplesErr
}

func (s *stubProvider) Condition(ctx context.Context, id string) (knowledge.Condition, error) {
	s.calls++
	if s.condErr != nil {
		return knowledge.Condition{}, s.condErr
	}
	c, ok := s.conditions[id]
	if !ok {
		return knowledge.Condition{}, ErrNotFound
	}
	return c, nil
}

func TestBuiltin(t *testing.T) {
	b := NewBuiltin(knowledge.MustDefault())
	ctx := context.Background()

	samples, err := b.TrainingSamples(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, samples)

	c, err := b.Condition(ctx, "influenza")
	require.NoError(t, err)
	assert.Equal(t, "Influenza (Flu)", c.Name)

	_, err = b.Condition(ctx, "dragon_pox")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallbackTrainingSamples(t *testing.T) {
	ctx := context.Background()
	builtin := NewBuiltin(knowledge.MustDefault())
	builtinSamples, _ := builtin.TrainingSamples(ctx)

	catalogSample := []knowledge.Sample{{Description: "x", Condition: "flu", Severity: "mild"}}

	tests := []struct {
		name    string
		primary Provider
		want    int
	}{
		{name: "primary ok", primary: &stubProvider{samples: catalogSample}, want: 1},
		{name: "primary error", primary: &stubProvider{samplesErr: errors.New("connection refused")}, want: len(builtinSamples)},
		{name: "primary empty", primary: &stubProvider{}, want: len(builtinSamples)},
		{name: "no primary", primary: nil, want: len(builtinSamples)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := WithFallback(tt.primary, builtin)
			got, err := f.TrainingSamples(ctx)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestFallbackCondition(t *testing.T) {
	ctx := context.Background()
	primary := &stubProvider{conditions: map[string]knowledge.Condition{
		"influenza": {ID: "influenza", Name: "Catalog Flu"},
	}}
	f := WithFallback(primary, NewBuiltin(knowledge.MustDefault()))

	c, err := f.Condition(ctx, "influenza")
	require.NoError(t, err)
	assert.Equal(t, "Catalog Flu", c.Name)

	c, err = f.Condition(ctx, "angina")
	require.NoError(t, err)
	assert.Equal(t, "Angina", c.Name)

	primary.condErr = errors.New("timeout")
	c, err = f.Condition(ctx, "influenza")
	require.NoError(t, err)
	assert.Equal(t, "Influenza (Flu)", c.Name)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	stub := &stubProvider{conditions: map[string]knowledge.Condition{
		"common_cold": {ID: "common_cold", Name: "Common Cold"},
	}}
	c := NewCached(stub, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := c.Condition(ctx, "Common Cold")
		require.NoError(t, err)
		assert.Equal(t, "common_cold", got.ID)
	}
	assert.Equal(t, 1, stub.calls)

	_, err := c.Condition(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _ = c.Condition(ctx, "unknown")
	assert.Equal(t, 3, stub.calls, "misses are not cached")

	c.Flush()
	_, err = c.Condition(ctx, "common_cold")
	require.NoError(t, err)
	assert.Equal(t, 4, stub.calls)
}
