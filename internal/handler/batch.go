package handler

import (
	"math"
	"net/http"
)

// GET /recommendations/batch
//
// Pages past the end of the catalog come back with no results, so page is
// only bounded below.
func (h *Handler) GetBatchRecommendations(w http.ResponseWriter, r *http.Request) {
	page, ok := intParam(r, "page", 1, 1, math.MaxInt)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid page parameter")
		return
	}
	limit, ok := intParam(r, "limit", min(defaultBatchLimit, h.limits.MaxBatchLimit), 1, h.limits.MaxBatchLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
		return
	}

	result, err := h.service.GetBatchRecommendations(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
