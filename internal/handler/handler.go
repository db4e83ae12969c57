package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/service"
)

// Recommender is the engine surface the HTTP layer depends on.
type Recommender interface {
	GetRecommendations(ctx context.Context, req service.Request) (*domain.RecommendationResult, error)
	GetActorRecommendations(ctx context.Context, req service.Request) (*domain.RecommendationResult, error)
	GetBatchRecommendations(ctx context.Context, page, limit int) (*domain.BatchResponse, error)
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
	RecordInteraction(ctx context.Context, in domain.Interaction) error
	ListItems(ctx context.Context) ([]domain.Item, error)
	ActorInteractions(ctx context.Context, actorID string) ([]domain.Interaction, error)
}

const (
	defaultMaxK          = 50
	defaultMaxBatchLimit = 100
	defaultBatchLimit    = 20
)

// Limits bound the query parameters the handlers accept. Zero fields take
// the defaults.
type Limits struct {
	MaxK          int
	MaxBatchLimit int
}

type Handler struct {
	service  Recommender
	validate *validator.Validate
	limits   Limits
}

func NewHandler(svc Recommender, limits Limits) *Handler {
	if limits.MaxK <= 0 {
		limits.MaxK = defaultMaxK
	}
	if limits.MaxBatchLimit <= 0 {
		limits.MaxBatchLimit = defaultMaxBatchLimit
	}
	return &Handler{
		service:  svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limits:   limits,
	}
}

// intParam reads an optional integer query parameter. ok is false when the
// value is present but not an integer in [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("[handler] encode response")
	}
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps engine errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", "Item does not exist")
	case errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, domain.ErrInvalidInteraction),
		errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
	default:
		logging.Error().Err(err).Msg("[handler] unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
