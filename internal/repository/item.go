package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

const itemColumns = `id, name, COALESCE(description, ''), COALESCE(category, ''), COALESCE(brand, ''),
	price, COALESCE(image_url, ''), COALESCE(attributes, '{}'::jsonb), created_at`

func scanItem(row pgx.Row) (domain.Item, error) {
	var it domain.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.Brand,
		&it.Price, &it.ImageURL, &it.Attributes, &it.CreatedAt)
	return it, err
}

func collectItems(rows pgx.Rows) ([]domain.Item, error) {
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over items: %w", err)
	}
	return items, nil
}

func (r *Repository) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return collectItems(rows)
}

func (r *Repository) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, fmt.Errorf("item %d: %w", id, domain.ErrItemNotFound)
		}
		return domain.Item{}, fmt.Errorf("query item id=%d: %w", id, err)
	}
	return it, nil
}

// SearchItems matches query case-insensitively as a substring of name,
// description, category or brand.
func (r *Repository) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+`
		FROM items
		WHERE name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1 OR brand ILIKE $1
		ORDER BY id`, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search items %q: %w", query, err)
	}
	return collectItems(rows)
}

func (r *Repository) CountItems(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
