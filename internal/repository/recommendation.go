package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

// FindRecommendations returns the persisted rows of a scope, best first.
func (r *Repository) FindRecommendations(ctx context.Context, scope domain.Scope) ([]domain.Recommendation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source_id, target_id, strategy, actor_id, score, explanation, complete, computed_at
		FROM recommendations
		WHERE source_id = $1 AND strategy = $2 AND actor_id = $3
		ORDER BY score DESC, target_id ASC`,
		scope.SourceID, string(scope.Strategy), scope.ActorID,
	)
	if err != nil {
		return nil, fmt.Errorf("query recommendations for source %d: %w", scope.SourceID, err)
	}
	defer rows.Close()

	var recs []domain.Recommendation
	for rows.Next() {
		var rec domain.Recommendation
		var strategy string
		if err := rows.Scan(&rec.SourceID, &rec.TargetID, &strategy, &rec.ActorID,
			&rec.Score, &rec.Explanation, &rec.Complete, &rec.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		rec.Strategy = domain.Strategy(strategy)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over recommendations: %w", err)
	}
	return recs, nil
}

// UpsertRecommendation writes one row, overwriting score, explanation and
// computed_at when the (scope, target) pair already exists.
func (r *Repository) UpsertRecommendation(ctx context.Context, rec domain.Recommendation) error {
	if rec.ComputedAt.IsZero() {
		rec.ComputedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recommendations (source_id, target_id, strategy, actor_id, score, explanation, complete, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_id, strategy, actor_id, target_id)
		DO UPDATE SET score = EXCLUDED.score,
			explanation = EXCLUDED.explanation,
			complete = EXCLUDED.complete,
			computed_at = EXCLUDED.computed_at`,
		rec.SourceID, rec.TargetID, string(rec.Strategy), rec.ActorID, rec.Score, rec.Explanation, rec.Complete, rec.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert recommendation %d->%d: %w", rec.SourceID, rec.TargetID, err)
	}
	return nil
}

func (r *Repository) DeleteRecommendations(ctx context.Context, scope domain.Scope) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM recommendations WHERE source_id = $1 AND strategy = $2 AND actor_id = $3`,
		scope.SourceID, string(scope.Strategy), scope.ActorID,
	)
	if err != nil {
		return fmt.Errorf("delete recommendations for source %d: %w", scope.SourceID, err)
	}
	return nil
}

// DeleteActorRecommendations drops every row computed for actorID. Rows of
// actor-independent scopes carry an empty actor and are never matched.
func (r *Repository) DeleteActorRecommendations(ctx context.Context, actorID string) error {
	if actorID == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM recommendations WHERE actor_id = $1`, actorID); err != nil {
		return fmt.Errorf("delete recommendations for actor %s: %w", actorID, err)
	}
	return nil
}
