package explain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

var (
	shoes = domain.Item{ID: 1, Name: "Red Shoes", Description: "running shoes", Category: "Shoes"}
	shirt = domain.Item{ID: 3, Name: "Red Shirt", Description: "cotton shirt", Category: "Apparel"}
)

type stubGenerator struct {
	text   string
	err    error
	block  bool
	panics bool
	prompt string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, _ int, _ float64) (string, error) {
	s.prompt = prompt
	if s.panics {
		panic("boom")
	}
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func TestFallbackFormat(t *testing.T) {
	assert.Equal(t,
		"Because you viewed Red Shoes, you might also like this Apparel product.",
		Fallback(shoes, shirt))
}

func TestExplainUsesGeneratedText(t *testing.T) {
	gen := &stubGenerator{text: "  Because you viewed Red Shoes, this shirt completes the look. "}
	e := NewExplainer(gen)

	got := e.Explain(context.Background(), shoes, shirt)
	assert.Equal(t, "Because you viewed Red Shoes, this shirt completes the look.", got)
	assert.Contains(t, gen.prompt, "Source Product: Red Shoes")
	assert.Contains(t, gen.prompt, "Recommended Category: Apparel")
	assert.Contains(t, gen.prompt, "max 50 words")
}

func TestExplainFallbacks(t *testing.T) {
	want := Fallback(shoes, shirt)

	cases := map[string]Generator{
		"nil generator": nil,
		"unreachable":   &stubGenerator{err: errors.New("dial tcp: connection refused")},
		"blank output":  &stubGenerator{text: "   "},
		"panic":         &stubGenerator{panics: true},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewExplainer(gen)
			first := e.Explain(context.Background(), shoes, shirt)
			second := e.Explain(context.Background(), shoes, shirt)
			assert.Equal(t, want, first)
			assert.Equal(t, first, second)
		})
	}
}

func TestExplainTimeout(t *testing.T) {
	e := NewExplainer(&stubGenerator{block: true}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := e.Explain(context.Background(), shoes, shirt)
	assert.Equal(t, Fallback(shoes, shirt), got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerateReportsExternalServiceError(t *testing.T) {
	e := NewExplainer(&stubGenerator{err: errors.New("401 unauthorized")})

	_, err := e.generate(context.Background(), shoes, shirt)
	var extErr *ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.EqualError(t, extErr.Err, "401 unauthorized")
}

func TestBuildPromptWordLimit(t *testing.T) {
	assert.Contains(t, BuildPrompt(shoes, shirt, 150), "max 150 words")
	assert.Contains(t, BuildPrompt(shoes, shirt, 0), "max 50 words")
}
