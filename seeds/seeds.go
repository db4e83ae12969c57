package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var kinds = []domain.InteractionKind{domain.KindView, domain.KindLike, domain.KindCart, domain.KindPurchase}

// Products is the sample catalog, in insertion order.
var Products = []domain.Item{
	{Name: "Wireless Bluetooth Headphones", Description: "High-quality wireless headphones with noise cancellation and 30-hour battery life",
		Category: "Electronics", Brand: "SoundWave", Price: 199.99, ImageURL: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=300"},
	{Name: "Smart Fitness Watch", Description: "Advanced fitness tracking watch with heart rate monitor and GPS",
		Category: "Electronics", Brand: "PulseFit", Price: 299.99, ImageURL: "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=300"},
	{Name: "Organic Cotton T-Shirt", Description: "Comfortable organic cotton t-shirt in various colors",
		Category: "Clothing", Brand: "GreenThread", Price: 29.99, ImageURL: "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=300"},
	{Name: "Stainless Steel Water Bottle", Description: "Insulated stainless steel water bottle that keeps drinks cold for 24 hours",
		Category: "Home & Kitchen", Brand: "HydroKeep", Price: 24.99, ImageURL: "https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=300"},
	{Name: "Wireless Charging Pad", Description: "Fast wireless charging pad compatible with all Qi-enabled devices",
		Category: "Electronics", Brand: "SoundWave", Price: 39.99, ImageURL: "https://images.unsplash.com/photo-1583394838336-acd977736f90?w=300"},
	{Name: "Yoga Mat Premium", Description: "Non-slip yoga mat with excellent grip and cushioning",
		Category: "Sports & Fitness", Brand: "PulseFit", Price: 49.99, ImageURL: "https://images.unsplash.com/photo-1544367567-0f2fcb009e0b?w=300"},
	{Name: "Coffee Maker Deluxe", Description: "Programmable coffee maker with built-in grinder and thermal carafe",
		Category: "Home & Kitchen", Brand: "BrewHaus", Price: 149.99, ImageURL: "https://images.unsplash.com/photo-1495474472287-4d71bcdd2085?w=300"},
	{Name: "Running Shoes Pro", Description: "Lightweight running shoes with responsive cushioning and breathable upper",
		Category: "Sports & Fitness", Brand: "StrideLab", Price: 129.99, ImageURL: "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=300"},
	{Name: "Laptop Stand Adjustable", Description: "Ergonomic laptop stand with adjustable height and angle",
		Category: "Electronics", Brand: "DeskForm", Price: 59.99, ImageURL: "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=300"},
	{Name: "Essential Oil Diffuser", Description: "Ultrasonic essential oil diffuser with LED lights and timer",
		Category: "Home & Kitchen", Brand: "CalmNest", Price: 34.99, ImageURL: "https://images.unsplash.com/photo-1607853202273-797f1c22a7e2?w=300"},
}

// Setup replaces the catalog and interaction log with deterministic sample
// data. Persisted recommendations are dropped with them.
func Setup(ctx context.Context, db Execer) error {
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()

	// Truncate existing data before insert
	logging.Info().Msg("[seed] truncating existing data")
	if _, err := db.Exec(ctx, `
		TRUNCATE recommendations, interactions, items RESTART IDENTITY CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	logging.Info().Int("count", len(Products)).Msg("[seed] inserting items")
	if err := seedItems(ctx, db, now); err != nil {
		return fmt.Errorf("seed items: %w", err)
	}

	records, err := Interactions(rng, 5, len(Products), now)
	if err != nil {
		return fmt.Errorf("generate interactions: %w", err)
	}
	logging.Info().Int("count", len(records)).Msg("[seed] inserting interactions")
	if err := seedInteractions(ctx, db, records); err != nil {
		return fmt.Errorf("seed interactions: %w", err)
	}

	logging.Info().Msg("[seed] seeding complete")
	return nil
}

func seedItems(ctx context.Context, db Execer, now time.Time) error {
	rows := []string{}
	args := []any{}

	for _, p := range Products {
		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, p.Name, p.Description, p.Category, p.Brand, p.Price, p.ImageURL, now)
	}

	query := "INSERT INTO items (name, description, category, brand, price, image_url, created_at) VALUES " +
		strings.Join(rows, ", ")
	_, err := db.Exec(ctx, query, args...)
	return err
}

// Interactions generates activity for the given number of anonymous actors over item ids
// 1..itemCount. Each actor touches 3 to 8 distinct items with 1 to 3 distinct
// kinds per item, within the last 30 days. Likes and purchases carry a rating.
func Interactions(rng *rand.Rand, sessions, itemCount int, now time.Time) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for range sessions {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, err
		}
		actor := id.String()

		touched := 3 + rng.Intn(min(8, itemCount)-2)
		for _, idx := range rng.Perm(itemCount)[:min(touched, itemCount)] {
			itemID := int64(idx + 1)
			perItem := 1 + rng.Intn(3)
			for _, k := range rng.Perm(len(kinds))[:perItem] {
				in := domain.Interaction{
					ActorID:    actor,
					ItemID:     itemID,
					Kind:       kinds[k],
					OccurredAt: now.AddDate(0, 0, -rng.Intn(31)),
				}
				if in.Kind == domain.KindLike || in.Kind == domain.KindPurchase {
					r := math.Round((0.5+rng.Float64()*0.5)*100) / 100
					in.Rating = &r
				}
				out = append(out, in)
			}
		}
	}
	return out, nil
}

func seedInteractions(ctx context.Context, db Execer, records []domain.Interaction) error {
	if len(records) == 0 {
		return nil
	}

	rows := []string{}
	args := []any{}
	for _, in := range records {
		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, in.ActorID, in.ItemID, string(in.Kind), in.Rating, in.OccurredAt)
	}

	query := "INSERT INTO interactions (actor_id, item_id, kind, rating, occurred_at) VALUES " +
		strings.Join(rows, ", ")
	_, err := db.Exec(ctx, query, args...)
	return err
}
