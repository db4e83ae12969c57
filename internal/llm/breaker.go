package llm

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/metrics"
)

type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

type BreakerSettings struct {
	Name string
	// ConsecutiveFailures opens the circuit once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "text-generation",
		ConsecutiveFailures: 5,
		OpenTimeout:         time.Minute,
	}
}

// BreakerClient stops calling the text-generation service after repeated
// failures so explanation requests fall back immediately.
type BreakerClient struct {
	next Generator
	cb   *gobreaker.CircuitBreaker[string]
}

func NewBreakerClient(next Generator, s BreakerSettings) *BreakerClient {
	if s.Name == "" {
		s.Name = DefaultBreakerSettings().Name
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// A missing credential is configuration, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMissingCredential)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[llm] circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return &BreakerClient{next: next, cb: cb}
}

func (b *BreakerClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, prompt, maxTokens, temperature)
	})
}

func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
