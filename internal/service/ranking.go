package service

import (
	"context"
	"fmt"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/model"
)

// rank produces the scored candidates for a scope. The vectorizer and the
// collaborative scorer are rebuilt from the current catalog and log on every
// call.
func (s *Service) rank(ctx context.Context, scope domain.Scope, items []domain.Item, k int) ([]domain.ScoredItem, error) {
	pool := max(k, s.opts.CandidatePool)

	switch scope.Strategy {
	case domain.StrategyContent:
		return s.contentScores(scope.SourceID, items, k)

	case domain.StrategyCollaborative:
		collab, err := s.collaborativeScores(ctx, scope, items, pool)
		if err != nil {
			return nil, err
		}
		return truncate(collab, k), nil

	case domain.StrategyHybrid:
		content, err := s.contentScores(scope.SourceID, items, pool)
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

func (s *Service) contentScores(sourceID int64, items []domain.Item, k int) ([]domain.ScoredItem, error) {
	matrix, err := model.NewVectorizer(s.opts.MaxFeatures).Fit(items)
	if err != nil {
		return nil, err
	}
	return matrix.SimilarItems(sourceID, k)
}

// collaborativeScores scores items for the scope's actor, dropping the
// source item and anything no longer in the catalog.
func (s *Service) collaborativeScores(ctx context.Context, scope domain.Scope, items []domain.Item, k int) ([]domain.ScoredItem, error) {
	if scope.ActorID == "" {
		return []domain.ScoredItem{}, nil
	}
	interactions, err := s.log.ListInteractions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetch interactions: %w", err)
	}

	inCatalog := indexItems(items)
	scored := model.NewCollaborativeScorer(interactions).Scores(scope.ActorID, k+1)
	out := make([]domain.ScoredItem, 0, len(scored))
	for _, sc := range scored {
		if sc.ItemID == scope.SourceID {
			continue
		}
		if _, ok := inCatalog[sc.ItemID]; !ok {
			continue
		}
		out = append(out, sc)
	}
	return truncate(out, k), nil
}

func truncate(scored []domain.ScoredItem, k int) []domain.ScoredItem {
	if len(scored) > k {
		return scored[:k]
	}
	return scored
}
