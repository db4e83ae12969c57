package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

// ListInteractions returns the whole log when actorID is empty, otherwise
// only that actor's records. Newest first.
func (r *Repository) ListInteractions(ctx context.Context, actorID string) ([]domain.Interaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if actorID == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT actor_id, item_id, kind, rating, occurred_at
			FROM interactions
			ORDER BY occurred_at DESC, id DESC`)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT actor_id, item_id, kind, rating, occurred_at
			FROM interactions
			WHERE actor_id = $1
			ORDER BY occurred_at DESC, id DESC`, actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("query interactions actor=%q: %w", actorID, err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		var kind string
		if err := rows.Scan(&in.ActorID, &in.ItemID, &kind, &in.Rating, &in.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Kind = domain.InteractionKind(kind)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over interactions: %w", err)
	}
	return out, nil
}

func (r *Repository) AddInteraction(ctx context.Context, in domain.Interaction) error {
	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO interactions (actor_id, item_id, kind, rating, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		in.ActorID, in.ItemID, string(in.Kind), in.Rating, in.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction actor=%q item=%d: %w", in.ActorID, in.ItemID, err)
	}
	return nil
}
