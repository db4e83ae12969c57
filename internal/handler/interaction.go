package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

const maxBodyBytes = 1 << 16

// POST /interactions
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	// Anonymous callers get a fresh actor id they can reuse.
	actor := strings.TrimSpace(req.ActorID)
	if actor == "" {
		actor = uuid.NewString()
	}

	in := domain.Interaction{
		ActorID:    actor,
		ItemID:     req.ItemID,
		Kind:       domain.InteractionKind(req.Kind),
		Rating:     req.Rating,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.service.RecordInteraction(r.Context(), in); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

// GET /actors/{actorID}/interactions
func (h *Handler) ActorInteractions(w http.ResponseWriter, r *http.Request) {
	actor := strings.TrimSpace(chi.URLParam(r, "actorID"))
	if actor == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid actor_id parameter")
		return
	}

	records, err := h.service.ActorInteractions(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []domain.Interaction{}
	}
	writeJSON(w, http.StatusOK, InteractionsResponse{ActorID: actor, Interactions: records, TotalCount: len(records)})
}
