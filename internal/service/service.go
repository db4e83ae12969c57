package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
	"github.com/actuallystonmai/product-recommender/internal/metrics"
)

const (
	defaultK          = 5
	maxK              = 50
	searchK           = 3
	candidatePoolSize = 50
	batchConcurrency  = 10

	sourceRedis    = "redis"
	sourceStore    = "store"
	sourceComputed = "computed"
)

type Catalog interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id int64) (domain.Item, error)
	SearchItems(ctx context.Context, query string) ([]domain.Item, error)
}

type InteractionLog interface {
	// ListInteractions returns every record when actorID is empty.
	ListInteractions(ctx context.Context, actorID string) ([]domain.Interaction, error)
	AddInteraction(ctx context.Context, in domain.Interaction) error
}

type Store interface {
	FindRecommendations(ctx context.Context, scope domain.Scope) ([]domain.Recommendation, error)
	UpsertRecommendation(ctx context.Context, rec domain.Recommendation) error
	DeleteRecommendations(ctx context.Context, scope domain.Scope) error
	// DeleteActorRecommendations drops every row computed for actorID.
	DeleteActorRecommendations(ctx context.Context, actorID string) error
}

type Cache interface {
	Get(ctx context.Context, scope domain.Scope, k int) ([]domain.RankedRecommendation, bool, error)
	Set(ctx context.Context, scope domain.Scope, k int, recs []domain.RankedRecommendation) error
	ClearInteractionDependent(ctx context.Context) error
}

type Explainer interface {
	Explain(ctx context.Context, source, target domain.Item) string
}

// StoreWriteError wraps a failed upsert. The computed list is still returned
// to the caller.
type StoreWriteError struct {
	SourceID int64
	TargetID int64
	Err      error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %d->%d: %v", e.SourceID, e.TargetID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

type Options struct {
	MaxFeatures   int
	DefaultK      int
	MaxK          int
	SearchK       int
	CandidatePool int
	// StoreMaxAge of zero trusts persisted rows regardless of age.
	StoreMaxAge  time.Duration
	BatchWorkers int
}

func (o *Options) applyDefaults() {
	if o.DefaultK <= 0 {
		o.DefaultK = defaultK
	}
	if o.MaxK < o.DefaultK {
		o.MaxK = max(maxK, o.DefaultK)
	}
	if o.SearchK <= 0 {
		o.SearchK = searchK
	}
	if o.CandidatePool <= 0 {
		o.CandidatePool = candidatePoolSize
	}
	if o.BatchWorkers <= 0 {
		o.BatchWorkers = batchConcurrency
	}
}

// Service is the recommendation engine. It is built once at startup and
// shared by every request handler.
type Service struct {
	catalog   Catalog
	log       InteractionLog
	store     Store
	cache     Cache
	explainer Explainer
	opts      Options
	now       func() time.Time
}

// NewService wires the engine. cache may be nil.
func NewService(catalog Catalog, log InteractionLog, store Store, cache Cache, explainer Explainer, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		catalog:   catalog,
		log:       log,
		store:     store,
		cache:     cache,
		explainer: explainer,
		opts:      opts,
		now:       time.Now,
	}
}

type Request struct {
	SourceID int64
	ActorID  string
	Strategy domain.Strategy
	K        int
}

// GetRecommendations normalizes k and strategy, then serves the request
// from cache, store, or a fresh computation.
func (s *Service) GetRecommendations(ctx context.Context, req Request) (*domain.RecommendationResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	return s.getOrCompute(ctx, req)
}

func (s *Service) normalize(req Request) (Request, error) {
	if req.K <= 0 {
		req.K = s.opts.DefaultK
	} else if req.K > s.opts.MaxK {
		req.K = s.opts.MaxK
	}
	strategy, err := domain.ParseStrategy(string(req.Strategy))
	if err != nil {
		return req, err
	}
	req.Strategy = strategy
	return req, nil
}

// GetOrCompute returns at most req.K ranked, explained recommendations for
// req.SourceID.
func (s *Service) GetOrCompute(ctx context.Context, req Request) ([]domain.RankedRecommendation, error) {
	res, err := s.getOrCompute(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Recommendations, nil
}

func (s *Service) getOrCompute(ctx context.Context, req Request) (*domain.RecommendationResult, error) {
	scope := domain.NewScope(req.SourceID, req.Strategy, req.ActorID)
	if req.K <= 0 {
		return &domain.RecommendationResult{Recommendations: []domain.RankedRecommendation{}}, nil
	}

	// Check Cache
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, scope, req.K)
		if err != nil {
			logging.Warn().Err(err).Int64("source_id", req.SourceID).Msg("[service] cache get error")
		}
		if found {
			metrics.Lookups.WithLabelValues(string(scope.Strategy), sourceRedis).Inc()
			return &domain.RecommendationResult{Recommendations: cached, CacheHit: true}, nil
		}
	}

	source, err := s.catalog.GetItem(ctx, req.SourceID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch source item: %w", err)
	}

	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	if recs, ok := s.fromStore(ctx, scope, req.K, items); ok {
		metrics.Lookups.WithLabelValues(string(scope.Strategy), sourceStore).Inc()
		s.setCache(ctx, scope, req.K, recs)
		return &domain.RecommendationResult{Recommendations: recs, CacheHit: true}, nil
	}

	start := s.now()
	recs, err := s.compute(ctx, scope, source, items, req.K)
	if err != nil {
		return nil, err
	}
	metrics.ComputeDuration.WithLabelValues(string(scope.Strategy)).Observe(s.now().Sub(start).Seconds())
	metrics.Lookups.WithLabelValues(string(scope.Strategy), sourceComputed).Inc()

	s.setCache(ctx, scope, req.K, recs)
	return &domain.RecommendationResult{Recommendations: recs, CacheHit: false}, nil
}

// fromStore serves persisted rows when they are current and either hold k
// entries or form a complete list shorter than k.
func (s *Service) fromStore(ctx context.Context, scope domain.Scope, k int, items []domain.Item) ([]domain.RankedRecommendation, bool) {
	rows, err := s.store.FindRecommendations(ctx, scope)
	if err != nil {
		logging.Warn().Err(err).Int64("source_id", scope.SourceID).Msg("[service] store read error, recomputing")
		return nil, false
	}
	if len(rows) == 0 {
		return nil, false
	}

	byID := indexItems(items)
	complete := true
	recs := make([]domain.RankedRecommendation, 0, min(k, len(rows)))
	for _, row := range rows {
		if s.opts.StoreMaxAge > 0 && s.now().Sub(row.ComputedAt) > s.opts.StoreMaxAge {
			return nil, false
		}
		target, ok := byID[row.TargetID]
		if !ok || row.TargetID == scope.SourceID {
			return nil, false
		}
		complete = complete && row.Complete
		recs = append(recs, domain.RankedRecommendation{Item: target, Score: row.Score, Explanation: row.Explanation})
		if len(recs) == k {
			return recs, true
		}
	}
	if !complete {
		return nil, false
	}
	return recs, true
}

func (s *Service) compute(ctx context.Context, scope domain.Scope, source domain.Item, items []domain.Item, k int) ([]domain.RankedRecommendation, error) {
	scored, err := s.rank(ctx, scope, items, k)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCorpus) {
			return []domain.RankedRecommendation{}, nil
		}
		return nil, err
	}

	recs := s.explainAll(ctx, scope, source, items, scored)
	s.persist(ctx, scope, recs, len(recs) < k)
	return recs, nil
}

// explainAll hydrates scored ids into ranked recommendations explained
// against source. Ids outside the catalog and the scope's own source are
// dropped.
func (s *Service) explainAll(ctx context.Context, scope domain.Scope, source domain.Item, items []domain.Item, scored []domain.ScoredItem) []domain.RankedRecommendation {
	byID := indexItems(items)
	recs := make([]domain.RankedRecommendation, 0, len(scored))
	for _, sc := range scored {
		target, ok := byID[sc.ItemID]
		if !ok || sc.ItemID == scope.SourceID {
			continue
		}
		recs = append(recs, domain.RankedRecommendation{
			Item:        target,
			Score:       min(1, max(0, sc.Score)),
			Explanation: s.explainer.Explain(ctx, source, target),
		})
	}
	return recs
}

// persist replaces the scope's rows with recs. A partially written list is
// removed again so it is never mistaken for a complete one.
func (s *Service) persist(ctx context.Context, scope domain.Scope, recs []domain.RankedRecommendation, complete bool) {
	if err := s.store.DeleteRecommendations(ctx, scope); err != nil {
		logging.Error().Err(err).Int64("source_id", scope.SourceID).Msg("[service] clearing stored recommendations failed")
		metrics.StoreWriteErrors.Inc()
		return
	}

	now := s.now().UTC()
	failed := false
	for _, rec := range recs {
		err := s.store.UpsertRecommendation(ctx, domain.Recommendation{
			SourceID:    scope.SourceID,
			TargetID:    rec.Item.ID,
			Strategy:    scope.Strategy,
			ActorID:     scope.ActorID,
			Score:       rec.Score,
			Explanation: rec.Explanation,
			Complete:    complete,
			ComputedAt:  now,
		})
		if err != nil {
			failed = true
			werr := &StoreWriteError{SourceID: scope.SourceID, TargetID: rec.Item.ID, Err: err}
			metrics.StoreWriteErrors.Inc()
			logging.Error().Err(werr).Msg("[service] recommendation upsert failed")
		}
	}
	if failed {
		if err := s.store.DeleteRecommendations(ctx, scope); err != nil {
			logging.Error().Err(err).Int64("source_id", scope.SourceID).Msg("[service] clearing partial recommendations failed")
		}
	}
}

func (s *Service) setCache(ctx context.Context, scope domain.Scope, k int, recs []domain.RankedRecommendation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, scope, k, recs); err != nil {
		logging.Warn().Err(err).Int64("source_id", scope.SourceID).Msg("[service] cache set error")
	}
}

// Search returns every item whose text fields contain query, each with up
// to SearchK content-based recommendations.
func (s *Service) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	matches, err := s.catalog.SearchItems(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(matches))
	for _, item := range matches {
		// Database collation may fold case differently.
		if !item.Matches(query) {
			continue
		}
		recs, err := s.GetOrCompute(ctx, Request{SourceID: item.ID, Strategy: domain.StrategyContent, K: s.opts.SearchK})
		if err != nil {
			logging.Warn().Err(err).Int64("item_id", item.ID).Msg("[service] search: recommendations failed")
			recs = []domain.RankedRecommendation{}
		}
		results = append(results, domain.SearchResult{Item: item, Recommendations: recs})
	}
	return results, nil
}

// RecordInteraction appends to the interaction log and drops the cached and
// stored lists that depend on it.
func (s *Service) RecordInteraction(ctx context.Context, in domain.Interaction) error {
	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.now().UTC()
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if _, err := s.catalog.GetItem(ctx, in.ItemID); err != nil {
		return err
	}
	if err := s.log.AddInteraction(ctx, in); err != nil {
		return err
	}
	if err := s.store.DeleteActorRecommendations(ctx, in.ActorID); err != nil {
		logging.Error().Err(err).Str("actor_id", in.ActorID).Msg("[service] stored recommendation invalidation error")
	}
	if s.cache != nil {
		if err := s.cache.ClearInteractionDependent(ctx); err != nil {
			logging.Warn().Err(err).Str("actor_id", in.ActorID).Msg("[service] cache invalidation error")
		}
	}
	return nil
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.catalog.ListItems(ctx)
}

func (s *Service) ActorInteractions(ctx context.Context, actorID string) ([]domain.Interaction, error) {
	if actorID == "" {
		return []domain.Interaction{}, nil
	}
	return s.log.ListInteractions(ctx, actorID)
}

func indexItems(items []domain.Item) map[int64]domain.Item {
	byID := make(map[int64]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID
}
