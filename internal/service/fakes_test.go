package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

type memCatalog struct {
	items []domain.Item
}

func (c *memCatalog) ListItems(_ context.Context) ([]domain.Item, error) {
	out := append([]domain.Item(nil), c.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) GetItem(_ context.Context, id int64) (domain.Item, error) {
	for _, it := range c.items {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.Item{}, fmt.Errorf("item %d: %w", id, domain.ErrItemNotFound)
}

// SearchItems returns every item whose name shares a word with query, a
// looser match than the service accepts.
func (c *memCatalog) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	all, _ := c.ListItems(ctx)
	words := strings.Fields(strings.ToLower(query))
	var out []domain.Item
	for _, it := range all {
		for _, w := range words {
			if strings.Contains(strings.ToLower(it.Name), w) {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

type memLog struct {
	mu      sync.Mutex
	records []domain.Interaction
}

func (l *memLog) ListInteractions(_ context.Context, actorID string) ([]domain.Interaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Interaction
	for _, in := range l.records {
		if actorID == "" || in.ActorID == actorID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (l *memLog) AddInteraction(_ context.Context, in domain.Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, in)
	return nil
}

type storeKey struct {
	scope  domain.Scope
	target int64
}

type memStore struct {
	mu        sync.Mutex
	rows      map[storeKey]domain.Recommendation
	writes    int
	failWrite bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[storeKey]domain.Recommendation)}
}

func (s *memStore) FindRecommendations(_ context.Context, scope domain.Scope) ([]domain.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recommendation
	for k, row := range s.rows {
		if k.scope == scope {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

func (s *memStore) UpsertRecommendation(_ context.Context, rec domain.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failWrite {
		return errors.New("connection refused")
	}
	scope := domain.Scope{SourceID: rec.SourceID, Strategy: rec.Strategy, ActorID: rec.ActorID}
	s.rows[storeKey{scope: scope, target: rec.TargetID}] = rec
	return nil
}

func (s *memStore) DeleteRecommendations(_ context.Context, scope domain.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.scope == scope {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *memStore) DeleteActorRecommendations(_ context.Context, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.scope.ActorID == actorID {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type cacheKey struct {
	scope domain.Scope
	k     int
}

type memCache struct {
	mu      sync.Mutex
	entries map[cacheKey][]domain.RankedRecommendation
	clears  int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[cacheKey][]domain.RankedRecommendation)}
}

func (c *memCache) Get(_ context.Context, scope domain.Scope, k int) ([]domain.RankedRecommendation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.entries[cacheKey{scope: scope, k: k}]
	return recs, ok, nil
}

func (c *memCache) Set(_ context.Context, scope domain.Scope, k int, recs []domain.RankedRecommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{scope: scope, k: k}] = recs
	return nil
}

func (c *memCache) ClearInteractionDependent(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	for key := range c.entries {
		if key.scope.Strategy != domain.StrategyContent || key.scope.SourceID == 0 {
			delete(c.entries, key)
		}
	}
	return nil
}
