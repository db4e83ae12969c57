package model

import (
	"fmt"
	"sort"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

// Cosine returns the cosine similarity of two sparse vectors, 0 when either
// is the zero vector. Weights are non-negative so the result is in [0,1].
func Cosine(a, b SparseVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}

	var dot float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].index == b[j].index:
			dot += a[i].weight * b[j].weight
			i++
			j++
		case a[i].index < b[j].index:
			i++
		default:
			j++
		}
	}

	sim := dot / (na * nb)
	return min(1, max(0, sim))
}

// SimilarItems ranks every other item in the corpus by cosine similarity to
// sourceID and returns at most k of them.
func (m *Matrix) SimilarItems(sourceID int64, k int) ([]domain.ScoredItem, error) {
	src, ok := m.vectors[sourceID]
	if !ok {
		return nil, fmt.Errorf("similar items for %d: %w", sourceID, domain.ErrItemNotFound)
	}
	if k <= 0 {
		return []domain.ScoredItem{}, nil
	}

	return m.rankAgainst(src, map[int64]struct{}{sourceID: {}}, k), nil
}

// Profile averages the vectors of ids into one preference vector. Ids outside
// the corpus are ignored; the result is empty when none remain.
func (m *Matrix) Profile(ids []int64) SparseVector {
	sums := make(map[int]float64)
	n := 0
	for _, id := range ids {
		vec, ok := m.vectors[id]
		if !ok {
			continue
		}
		n++
		for _, t := range vec {
			sums[t.index] += t.weight
		}
	}
	if n == 0 {
		return SparseVector{}
	}

	profile := make(SparseVector, 0, len(sums))
	for idx, w := range sums {
		profile = append(profile, term{index: idx, weight: w / float64(n)})
	}
	sort.Slice(profile, func(i, j int) bool { return profile[i].index < profile[j].index })
	return profile
}

// SimilarToProfile ranks the items not in exclude by cosine similarity to a
// preference vector. A zero profile ranks nothing.
func (m *Matrix) SimilarToProfile(profile SparseVector, exclude map[int64]struct{}, k int) []domain.ScoredItem {
	if k <= 0 || profile.Norm() == 0 {
		return []domain.ScoredItem{}
	}
	return m.rankAgainst(profile, exclude, k)
}

func (m *Matrix) rankAgainst(vec SparseVector, exclude map[int64]struct{}, k int) []domain.ScoredItem {
	scored := make([]domain.ScoredItem, 0, len(m.ids))
	for _, id := range m.ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		scored = append(scored, domain.ScoredItem{ItemID: id, Score: Cosine(vec, m.vectors[id])})
	}
	return topK(scored, k)
}

// topK sorts by score descending, ties by ascending item id, and truncates.
func topK(scored []domain.ScoredItem, k int) []domain.ScoredItem {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ItemID < scored[j].ItemID
	})
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
