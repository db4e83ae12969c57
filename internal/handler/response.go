package handler

import "github.com/actuallystonmai/product-recommender/internal/domain"

type RecommendationResponse struct {
	SourceID        int64                         `json:"source_id,omitempty"`
	ActorID         string                        `json:"actor_id,omitempty"`
	Recommendations []domain.RankedRecommendation `json:"recommendations"`
	Metadata        domain.RecommendationMeta     `json:"metadata"`
}

type ItemsResponse struct {
	Items      []domain.Item `json:"items"`
	TotalCount int           `json:"total_count"`
}

type SearchResponse struct {
	Query      string                `json:"query"`
	Results    []domain.SearchResult `json:"results"`
	TotalCount int                   `json:"total_count"`
}

type InteractionRequest struct {
	ActorID string   `json:"actor_id" validate:"omitempty,max=128"`
	ItemID  int64    `json:"item_id" validate:"required,gt=0"`
	Kind    string   `json:"kind" validate:"required,oneof=view like cart purchase"`
	Rating  *float64 `json:"rating" validate:"omitempty,gte=0,lte=1"`
}

type InteractionsResponse struct {
	ActorID      string               `json:"actor_id"`
	Interactions []domain.Interaction `json:"interactions"`
	TotalCount   int                  `json:"total_count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
