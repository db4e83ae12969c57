package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func TestGenerateWithoutCredential(t *testing.T) {
	c, err := NewOpenAIClient(Config{})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "prompt", 100, 0.7)
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestGenerateTrimsAndPassesOptions(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  Because you viewed it.\n"}}}}
	c := &OpenAIClient{model: fake}

	text, err := c.Generate(context.Background(), "describe", 100, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "Because you viewed it.", text)

	require.Len(t, fake.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, fake.messages[1].Role)
	assert.Equal(t, 100, fake.opts.MaxTokens)
	assert.Equal(t, 0.7, fake.opts.Temperature)
}

func TestGenerateEmptyChoices(t *testing.T) {
	c := &OpenAIClient{model: &fakeModel{resp: &llms.ContentResponse{}}}
	_, err := c.Generate(context.Background(), "p", 10, 0)
	assert.True(t, errors.Is(err, ErrEmptyResponse))

	c = &OpenAIClient{model: &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "   "}}}}}
	_, err = c.Generate(context.Background(), "p", 10, 0)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestGenerateWrapsUpstreamError(t *testing.T) {
	boom := errors.New("503")
	c := &OpenAIClient{model: &fakeModel{err: boom}}
	_, err := c.Generate(context.Background(), "p", 10, 0)
	assert.True(t, errors.Is(err, boom))
}

type countingGenerator struct {
	calls int
	err   error
}

func (g *countingGenerator) Generate(context.Context, string, int, float64) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "ok", nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &countingGenerator{err: errors.New("timeout")}
	b := NewBreakerClient(next, BreakerSettings{Name: "test-open", ConsecutiveFailures: 2, OpenTimeout: time.Hour})

	for range 2 {
		_, err := b.Generate(context.Background(), "p", 10, 0)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Generate(context.Background(), "p", 10, 0)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, next.calls)
}

func TestBreakerIgnoresMissingCredential(t *testing.T) {
	next := &countingGenerator{err: ErrMissingCredential}
	b := NewBreakerClient(next, BreakerSettings{Name: "test-cred", ConsecutiveFailures: 1})

	for range 3 {
		_, err := b.Generate(context.Background(), "p", 10, 0)
		assert.True(t, errors.Is(err, ErrMissingCredential))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 3, next.calls)
}
