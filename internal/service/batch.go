package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/actuallystonmai/product-recommender/internal/domain"
	"github.com/actuallystonmai/product-recommender/internal/logging"
)

// GetBatchRecommendations precomputes content recommendations for one page
// of the catalog. Per-item failures are reported in the result rather than
// failing the batch.
func (s *Service) GetBatchRecommendations(ctx context.Context, page, limit int) (*domain.BatchResponse, error) {
	start := s.now()

	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	pageItems := paginate(items, page, limit)

	// Process items concurrently with bounded worker pool
	results := make([]domain.BatchItemResult, len(pageItems))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.BatchWorkers)

	for i, item := range pageItems {
		wg.Add(1)
		go func(idx int, id int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = s.processItemForBatch(ctx, id)
		}(i, item.ID)
	}
	wg.Wait()

	var summary domain.BatchSummary
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			summary.SuccessCount++
		} else {
			summary.FailedCount++
		}
	}
	summary.ProcessingTimeMs = s.now().Sub(start).Milliseconds()

	return &domain.BatchResponse{
		Page:       page,
		Limit:      limit,
		TotalItems: len(items),
		Results:    results,
		Summary:    summary,
		Metadata: domain.BatchMeta{
			GeneratedAt: s.now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *Service) processItemForBatch(ctx context.Context, itemID int64) domain.BatchItemResult {
	recs, err := s.GetOrCompute(ctx, Request{SourceID: itemID, Strategy: domain.StrategyContent, K: s.opts.DefaultK})
	if err != nil {
		logging.Warn().Err(err).Int64("item_id", itemID).Msg("[service] batch: item failed")
		code, msg := categorizeError(err)
		return domain.BatchItemResult{
			ItemID:  itemID,
			Status:  domain.StatusFailed,
			Error:   code,
			Message: msg,
		}
	}
	return domain.BatchItemResult{
		ItemID:          itemID,
		Recommendations: recs,
		Status:          domain.StatusSuccess,
	}
}

// paginate returns the 1-based page of items. Pages past the end of the
// catalog are empty.
func paginate(items []domain.Item, page, limit int) []domain.Item {
	if page < 1 || limit < 1 || page-1 > len(items)/limit {
		return []domain.Item{}
	}
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []domain.Item{}
	}
	return items[offset:min(offset+limit, len(items))]
}

func categorizeError(err error) (string, string) {
	if errors.Is(err, domain.ErrItemNotFound) {
		return "item_not_found", "item not found"
	}
	return "internal_error", "an unexpected error occurred"
}
