package service

import (
	"context"
	"fmt"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/metrics"
	"github.com/actuallystonmai/product-recommender/internal/model"
)

// GetActorRecommendations ranks items for an actor from their history alone,
// with no source item. Every item the actor has interacted with is excluded.
// Lists are cached but never persisted.
func (s *Service) GetActorRecommendations(ctx context.Context, req Request) (*domain.RecommendationResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	empty := &domain.RecommendationResult{Recommendations: []domain.RankedRecommendation{}}
	if req.ActorID == "" {
		return empty, nil
	}
	scope := domain.NewActorScope(req.Strategy, req.ActorID)

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, scope, req.K)
		if err != nil {
			logging.Warn().Err(err).Str("actor_id", req.ActorID).Msg("[service] cache get error")
		}
		if found {
			metrics.Lookups.WithLabelValues(string(scope.Strategy), sourceRedis).Inc()
			return &domain.RecommendationResult{Recommendations: cached, CacheHit: true}, nil
		}
	}

	history, err := s.log.ListInteractions(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("fetch interactions for %s: %w", req.ActorID, err)
	}
	if len(history) == 0 {
		return empty, nil
	}
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	byID := indexItems(items)
	anchor, ok := anchorItem(history, byID)
	if !ok {
		return empty, nil
	}

	start := s.now()
	scored, err := s.rankForActor(ctx, scope, history, items, req.K)
	if err != nil {
		return nil, err
	}
	recs := s.explainAll(ctx, scope, anchor, items, scored)
	metrics.ComputeDuration.WithLabelValues(string(scope.Strategy)).Observe(s.now().Sub(start).Seconds())
	metrics.Lookups.WithLabelValues(string(scope.Strategy), sourceComputed).Inc()

	s.setCache(ctx, scope, req.K, recs)
	return &domain.RecommendationResult{Recommendations: recs}, nil
}

func (s *Service) rankForActor(ctx context.Context, scope domain.Scope, history []domain.Interaction, items []domain.Item, k int) ([]domain.ScoredItem, error) {
	pool := max(k, s.opts.CandidatePool)

	switch scope.Strategy {
	case domain.StrategyContent:
		return s.profileScores(history, items, k)

	case domain.StrategyCollaborative:
		return s.collaborativeScores(ctx, scope, items, k)

	case domain.StrategyHybrid:
		content, err := s.profileScores(history, items, pool)
		if err != nil {
			return nil, err
		}
		collab, err := s.collaborativeScores(ctx, scope, items, pool)
		if err != nil {
			return nil, err
		}
		return model.Blend(collab, content, k), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, scope.Strategy)
}

// profileScores ranks unseen items against the mean vector of the items the
// actor liked or purchased. Views and carts alone build no profile.
func (s *Service) profileScores(history []domain.Interaction, items []domain.Item, k int) ([]domain.ScoredItem, error) {
	seen := make(map[int64]struct{}, len(history))
	var liked []int64
	for _, in := range history {
		seen[in.ItemID] = struct{}{}
		if in.Kind == domain.KindLike || in.Kind == domain.KindPurchase {
			liked = append(liked, in.ItemID)
		}
	}
	if len(liked) == 0 {
		return []domain.ScoredItem{}, nil
	}

	matrix, err := model.NewVectorizer(s.opts.MaxFeatures).Fit(items)
	if err != nil {
		return nil, err
	}
	return matrix.SimilarToProfile(matrix.Profile(liked), seen, k), nil
}

// anchorItem picks the item explanations refer to: the latest like or
// purchase, else the latest interaction of any kind.
func anchorItem(history []domain.Interaction, byID map[int64]domain.Item) (domain.Item, bool) {
	var best, bestLiked *domain.Interaction
	for i := range history {
		in := &history[i]
		if _, ok := byID[in.ItemID]; !ok {
			continue
		}
		if best == nil || !in.OccurredAt.Before(best.OccurredAt) {
			best = in
		}
		if in.Kind != domain.KindLike && in.Kind != domain.KindPurchase {
			continue
		}
		if bestLiked == nil || !in.OccurredAt.Before(bestLiked.OccurredAt) {
			bestLiked = in
		}
	}
	if bestLiked != nil {
		return byID[bestLiked.ItemID], true
	}
	if best != nil {
		return byID[best.ItemID], true
	}
	return domain.Item{}, false
}
