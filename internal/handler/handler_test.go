package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/service"
)

type fakeRecommender struct {
	lastReq      service.Request
	recorded     []domain.Interaction
	recsErr      error
	recordErr    error
	searchResult []domain.SearchResult
	history      []domain.Interaction
}

func (f *fakeRecommender) GetRecommendations(_ context.Context, req service.Request) (*domain.RecommendationResult, error) {
	f.lastReq = req
	if f.recsErr != nil {
		return nil, f.recsErr
	}
	return &domain.RecommendationResult{Recommendations: []domain.RankedRecommendation{
		{Item: domain.Item{ID: 2, Name: "blue shoes"}, Score: 0.8, Explanation: "Because you viewed red shoes, you might also like this Shoes product."},
	}}, nil
}

func (f *fakeRecommender) GetActorRecommendations(ctx context.Context, req service.Request) (*domain.RecommendationResult, error) {
	return f.GetRecommendations(ctx, req)
}

func (f *fakeRecommender) GetBatchRecommendations(_ context.Context, page, limit int) (*domain.BatchResponse, error) {
	return &domain.BatchResponse{Page: page, Limit: limit, Results: []domain.BatchItemResult{}}, nil
}

func (f *fakeRecommender) Search(_ context.Context, query string) ([]domain.SearchResult, error) {
	return f.searchResult, nil
}

func (f *fakeRecommender) RecordInteraction(_ context.Context, in domain.Interaction) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, in)
	return nil
}

func (f *fakeRecommender) ListItems(_ context.Context) ([]domain.Item, error) {
	return []domain.Item{{ID: 1, Name: "red shoes"}}, nil
}

func (f *fakeRecommender) ActorInteractions(_ context.Context, actorID string) ([]domain.Interaction, error) {
	return f.history, nil
}

func newTestRouter(f *fakeRecommender) http.Handler {
	return newLimitedRouter(f, Limits{})
}

func newLimitedRouter(f *fakeRecommender, limits Limits) http.Handler {
	h := NewHandler(f, limits)
	r := chi.NewRouter()
	r.Get("/items", h.ListItems)
	r.Get("/items/{itemID}/recommendations", h.GetRecommendations)
	r.Get("/recommendations/batch", h.GetBatchRecommendations)
	r.Get("/search", h.Search)
	r.Post("/interactions", h.RecordInteraction)
	r.Get("/actors/{actorID}/interactions", h.ActorInteractions)
	r.Get("/actors/{actorID}/recommendations", h.GetActorRecommendations)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetRecommendations(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newTestRouter(f), http.MethodGet, "/items/1/recommendations?strategy=content&k=3", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp RecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.SourceID)
	assert.Equal(t, "content", resp.Metadata.Strategy)
	assert.Equal(t, 1, resp.Metadata.TotalCount)
	assert.Equal(t, service.Request{SourceID: 1, Strategy: domain.StrategyContent, K: 3}, f.lastReq)
	assert.Empty(t, f.recorded)
}

func TestGetRecommendationsDefaultsToHybridAndRecordsView(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newTestRouter(f), http.MethodGet, "/items/1/recommendations", "", map[string]string{actorHeader: "actor-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StrategyHybrid, f.lastReq.Strategy)
	assert.Equal(t, "actor-1", f.lastReq.ActorID)
	assert.Equal(t, 0, f.lastReq.K)
	require.Len(t, f.recorded, 1)
	assert.Equal(t, domain.KindView, f.recorded[0].Kind)
	assert.Equal(t, int64(1), f.recorded[0].ItemID)
}

func TestGetRecommendationsActorFromQuery(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newTestRouter(f), http.MethodGet, "/items/1/recommendations?actor=abc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", f.lastReq.ActorID)
}

func TestGetRecommendationsViewFailureIsIgnored(t *testing.T) {
	f := &fakeRecommender{recordErr: errors.New("db down")}
	rec := do(t, newTestRouter(f), http.MethodGet, "/items/1/recommendations", "", map[string]string{actorHeader: "a"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRecommendationsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"non numeric id", "/items/abc/recommendations"},
		{"zero id", "/items/0/recommendations"},
		{"k too large", "/items/1/recommendations?k=51"},
		{"k zero", "/items/1/recommendations?k=0"},
		{"unknown strategy", "/items/1/recommendations?strategy=popular"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&fakeRecommender{}), http.MethodGet, tt.target, "", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_parameter", decodeError(t, rec).Error)
		})
	}
}

func TestGetRecommendationsConfiguredMaxK(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newLimitedRouter(f, Limits{MaxK: 100}), http.MethodGet, "/items/1/recommendations?k=60", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 60, f.lastReq.K)

	rec = do(t, newLimitedRouter(f, Limits{MaxK: 10}), http.MethodGet, "/items/1/recommendations?k=11", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, newLimitedRouter(f, Limits{MaxK: 10}), http.MethodGet, "/actors/a/recommendations?k=11", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActorRecommendations(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newTestRouter(f), http.MethodGet, "/actors/actor-1/recommendations?strategy=collaborative&k=4", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp RecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "actor-1", resp.ActorID)
	assert.Zero(t, resp.SourceID)
	assert.NotContains(t, rec.Body.String(), "source_id")
	assert.Equal(t, "collaborative", resp.Metadata.Strategy)
	assert.Equal(t, service.Request{ActorID: "actor-1", Strategy: domain.StrategyCollaborative, K: 4}, f.lastReq)
	assert.Empty(t, f.recorded)

	rec = do(t, newTestRouter(f), http.MethodGet, "/actors/actor-1/recommendations?strategy=popular", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecommendationsErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		rec := do(t, newTestRouter(&fakeRecommender{recsErr: tt.err}), http.MethodGet, "/items/9/recommendations", "", nil)
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.code, decodeError(t, rec).Error)
	}
}

func TestSearch(t *testing.T) {
	f := &fakeRecommender{searchResult: []domain.SearchResult{{Item: domain.Item{ID: 1, Name: "red shoes"}}}}

	rec := do(t, newTestRouter(f), http.MethodGet, "/search?q=shoes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "shoes", resp.Query)
	assert.Equal(t, 1, resp.TotalCount)

	rec = do(t, newTestRouter(f), http.MethodGet, "/search?q=%20", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListItems(t *testing.T) {
	rec := do(t, newTestRouter(&fakeRecommender{}), http.MethodGet, "/items", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ItemsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
}

func TestRecordInteraction(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newTestRouter(f), http.MethodPost, "/interactions",
		`{"actor_id":"actor-1","item_id":3,"kind":"purchase","rating":0.8}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.recorded, 1)
	got := f.recorded[0]
	assert.Equal(t, "actor-1", got.ActorID)
	assert.Equal(t, int64(3), got.ItemID)
	assert.Equal(t, domain.KindPurchase, got.Kind)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 0.8, *got.Rating)
}

func TestRecordInteractionAssignsActor(t *testing.T) {
	f := &fakeRecommender{}
	rec := do(t, newTestRouter(f), http.MethodPost, "/interactions", `{"item_id":3,"kind":"view"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var echoed domain.Interaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &echoed))
	_, err := uuid.Parse(echoed.ActorID)
	assert.NoError(t, err)
	assert.Equal(t, f.recorded[0].ActorID, echoed.ActorID)
}

func TestRecordInteractionRejectsInvalid(t *testing.T) {
	bodies := []string{
		`{"item_id":3,"kind":"wishlist"}`,
		`{"item_id":0,"kind":"view"}`,
		`{"item_id":3,"kind":"view","rating":1.5}`,
		`{"item_id":3,"kind":"view","extra":true}`,
		`not json`,
	}
	for _, body := range bodies {
		f := &fakeRecommender{}
		rec := do(t, newTestRouter(f), http.MethodPost, "/interactions", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Empty(t, f.recorded)
	}
}

func TestRecordInteractionUnknownItem(t *testing.T) {
	f := &fakeRecommender{recordErr: domain.ErrItemNotFound}
	rec := do(t, newTestRouter(f), http.MethodPost, "/interactions", `{"actor_id":"a","item_id":77,"kind":"like"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActorInteractions(t *testing.T) {
	f := &fakeRecommender{history: []domain.Interaction{{ActorID: "a", ItemID: 1, Kind: domain.KindView}}}
	rec := do(t, newTestRouter(f), http.MethodGet, "/actors/a/interactions", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp InteractionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a", resp.ActorID)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestGetBatchRecommendationsParams(t *testing.T) {
	h := newTestRouter(&fakeRecommender{})

	rec := do(t, h, http.MethodGet, "/recommendations/batch?page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 5, resp.Limit)

	rec = do(t, h, http.MethodGet, "/recommendations/batch?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/recommendations/batch?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Pages past the catalog are the service's to answer.
	rec = do(t, h, http.MethodGet, "/recommendations/batch?page=250000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 250000, resp.Page)
	assert.Equal(t, 20, resp.Limit)
}

func TestGetBatchRecommendationsConfiguredLimit(t *testing.T) {
	h := newLimitedRouter(&fakeRecommender{}, Limits{MaxBatchLimit: 10})

	rec := do(t, h, http.MethodGet, "/recommendations/batch", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Limit)

	rec = do(t, h, http.MethodGet, "/recommendations/batch?limit=11", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
