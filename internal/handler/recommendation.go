package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/service"
)

const actorHeader = "X-Actor-ID"

// actorID reads the caller identity from the X-Actor-ID header, falling back
// to the actor query parameter.
func actorID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(actorHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("actor"))
}

// GET /items/{itemID}/recommendations
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	// Parse and validate item_id
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid item_id parameter")
		return
	}

	k, ok := intParam(r, "k", 0, 1, h.limits.MaxK)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
		return
	}

	strategy, err := domain.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid strategy parameter")
		return
	}

	actor := actorID(r)
	result, err := h.service.GetRecommendations(r.Context(), service.Request{
		SourceID: itemID,
		ActorID:  actor,
		Strategy: strategy,
		K:        k,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if actor != "" {
		view := domain.Interaction{ActorID: actor, ItemID: itemID, Kind: domain.KindView}
		if err := h.service.RecordInteraction(r.Context(), view); err != nil {
			logging.Warn().Err(err).Str("actor_id", actor).Int64("item_id", itemID).Msg("[handler] record view failed")
		}
	}

	writeJSON(w, http.StatusOK, newRecommendationResponse(itemID, actor, strategy, result))
}

// GET /actors/{actorID}/recommendations
func (h *Handler) GetActorRecommendations(w http.ResponseWriter, r *http.Request) {
	actor := strings.TrimSpace(chi.URLParam(r, "actorID"))
	if actor == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid actor_id parameter")
		return
	}
	k, ok := intParam(r, "k", 0, 1, h.limits.MaxK)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
		return
	}
	strategy, err := domain.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid strategy parameter")
		return
	}

	result, err := h.service.GetActorRecommendations(r.Context(), service.Request{ActorID: actor, Strategy: strategy, K: k})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecommendationResponse(0, actor, strategy, result))
}

func newRecommendationResponse(sourceID int64, actor string, strategy domain.Strategy, result *domain.RecommendationResult) RecommendationResponse {
	return RecommendationResponse{
		SourceID:        sourceID,
		ActorID:         actor,
		Recommendations: result.Recommendations,
		Metadata: domain.RecommendationMeta{
			CacheHit:    result.CacheHit,
			Strategy:    string(strategy),
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalCount:  len(result.Recommendations),
		},
	}
}

// GET /search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Missing q parameter")
		return
	}

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results, TotalCount: len(results)})
}

// GET /items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items, TotalCount: len(items)})
}
