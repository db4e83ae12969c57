package domain

import (
	"fmt"
	"time"
)

type Strategy string

const (
	StrategyContent       Strategy = "content"
	StrategyCollaborative Strategy = "collaborative"
	StrategyHybrid        Strategy = "hybrid"
)

// ParseStrategy maps a request parameter to a Strategy. Empty input selects
// the hybrid blend.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case "":
		return StrategyHybrid, nil
	case StrategyContent, StrategyCollaborative, StrategyHybrid:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// Scope identifies the set of persisted rows one computation produces.
// Content results do not depend on the actor, so ActorID is always empty for
// StrategyContent.
type Scope struct {
	SourceID int64
	Strategy Strategy
	ActorID  string
}

func NewScope(sourceID int64, strategy Strategy, actorID string) Scope {
	if strategy == StrategyContent {
		actorID = ""
	}
	return Scope{SourceID: sourceID, Strategy: strategy, ActorID: actorID}
}

// NewActorScope identifies a list built from an actor's history alone. It has
// no source item, so every strategy keeps the actor.
func NewActorScope(strategy Strategy, actorID string) Scope {
	return Scope{Strategy: strategy, ActorID: actorID}
}

// Recommendation is a persisted (source, target) row. Recomputation replaces
// every row of the scope. Complete marks a list that held every candidate
// the ranker found, so it answers any larger k as well.
type Recommendation struct {
	SourceID    int64     `json:"source_id"`
	TargetID    int64     `json:"target_id"`
	Strategy    Strategy  `json:"strategy"`
	ActorID     string    `json:"actor_id,omitempty"`
	Score       float64   `json:"score"`
	Explanation string    `json:"explanation"`
	Complete    bool      `json:"complete"`
	ComputedAt  time.Time `json:"computed_at"`
}

type ScoredItem struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

type RankedRecommendation struct {
	Item        Item    `json:"item"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type SearchResult struct {
	Item            Item                   `json:"item"`
	Recommendations []RankedRecommendation `json:"recommendations"`
}

type RecommendationMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	Strategy    string `json:"strategy"`
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

type RecommendationResult struct {
	Recommendations []RankedRecommendation
	CacheHit        bool
}

type BatchStatus string

const (
	StatusSuccess BatchStatus = "success"
	StatusFailed  BatchStatus = "failed"
)

type BatchItemResult struct {
	ItemID          int64                  `json:"item_id"`
	Recommendations []RankedRecommendation `json:"recommendations,omitempty"`
	Status          BatchStatus            `json:"status"`
	Error           string                 `json:"error,omitempty"`
	Message         string                 `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchMeta struct {
	GeneratedAt string `json:"generated_at"`
}

type BatchResponse struct {
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalItems int               `json:"total_items"`
	Results    []BatchItemResult `json:"results"`
	Summary    BatchSummary      `json:"summary"`
	Metadata   BatchMeta         `json:"metadata"`
}
