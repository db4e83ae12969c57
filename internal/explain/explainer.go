// Package explain produces the human-readable "why this item" text attached
// to every recommendation. Generation never fails outward: any problem with
// the external service degrades to a fixed template.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/metrics"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxTokens   = 100
	defaultTemperature = 0.7
	defaultMaxWords    = 50
)

type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// ExternalServiceError reports a failed text-generation call. It never
// leaves this package: Explain recovers it with the fallback sentence.
type ExternalServiceError struct {
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("text generation failed: %v", e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

var errNoGenerator = errors.New("no text generator configured")

type Explainer struct {
	gen         Generator
	timeout     time.Duration
	maxTokens   int
	temperature float64
	maxWords    int
}

type Option func(*Explainer)

func WithTimeout(d time.Duration) Option {
	return func(e *Explainer) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(e *Explainer) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(e *Explainer) { e.temperature = t }
}

func WithMaxWords(n int) Option {
	return func(e *Explainer) {
		if n > 0 {
			e.maxWords = n
		}
	}
}

// NewExplainer accepts a nil generator; every explanation is then the
// fallback sentence.
func NewExplainer(gen Generator, opts ...Option) *Explainer {
	e := &Explainer{
		gen:         gen,
		timeout:     defaultTimeout,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		maxWords:    defaultMaxWords,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain returns a non-empty rationale for recommending target to someone
// who viewed source.
func (e *Explainer) Explain(ctx context.Context, source, target domain.Item) string {
	text, err := e.generate(ctx, source, target)
	if err != nil {
		logging.Debug().Err(err).Int64("source_id", source.ID).Int64("target_id", target.ID).
			Msg("[explain] using fallback explanation")
		metrics.Explanations.WithLabelValues("fallback").Inc()
		return Fallback(source, target)
	}
	metrics.Explanations.WithLabelValues("generated").Inc()
	return text
}

func (e *Explainer) generate(ctx context.Context, source, target domain.Item) (text string, err error) {
	if e.gen == nil {
		return "", &ExternalServiceError{Err: errNoGenerator}
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ExternalServiceError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, genErr := e.gen.Generate(ctx, BuildPrompt(source, target, e.maxWords), e.maxTokens, e.temperature)
	if genErr != nil {
		return "", &ExternalServiceError{Err: genErr}
	}
	if err := ctx.Err(); err != nil {
		return "", &ExternalServiceError{Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &ExternalServiceError{Err: errors.New("empty explanation")}
	}
	return out, nil
}

// Fallback is the deterministic explanation used whenever generation fails.
func Fallback(source, target domain.Item) string {
	return fmt.Sprintf("Because you viewed %s, you might also like this %s product.", source.Name, target.Category)
}

func BuildPrompt(source, target domain.Item, maxWords int) string {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Source Product: %s\n", source.Name)
	fmt.Fprintf(&b, "Source Description: %s\n", source.Description)
	fmt.Fprintf(&b, "Source Category: %s\n\n", source.Category)
	fmt.Fprintf(&b, "Recommended Product: %s\n", target.Name)
	fmt.Fprintf(&b, "Recommended Description: %s\n", target.Description)
	fmt.Fprintf(&b, "Recommended Category: %s\n\n", target.Category)
	fmt.Fprintf(&b, "Generate a brief, persuasive explanation (max %d words) for why someone interested in the source product "+
		"would also like the recommended product. Start with \"Because you viewed\" and focus on key similarities or complementary features.",
		maxWords)
	return b.String()
}
