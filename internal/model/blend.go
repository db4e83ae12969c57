package model

import "github.com/actuallystonmai/product-recommender/internal/domain"

const (
	CollaborativeWeight = 0.6
	ContentWeight       = 0.4
)

// Blend merges collaborative and content scores into one ranked list. An item
// missing from one input contributes 0 for that side.
func Blend(collab, content []domain.ScoredItem, k int) []domain.ScoredItem {
	if k <= 0 {
		return []domain.ScoredItem{}
	}

	collabScores := make(map[int64]float64, len(collab))
	contentScores := make(map[int64]float64, len(content))
	var order []int64
	seen := make(map[int64]struct{}, len(collab)+len(content))
	for _, s := range collab {
		collabScores[s.ItemID] = s.Score
		if _, ok := seen[s.ItemID]; !ok {
			seen[s.ItemID] = struct{}{}
			order = append(order, s.ItemID)
		}
	}
	for _, s := range content {
		contentScores[s.ItemID] = s.Score
		if _, ok := seen[s.ItemID]; !ok {
			seen[s.ItemID] = struct{}{}
			order = append(order, s.ItemID)
		}
	}

	blended := make([]domain.ScoredItem, 0, len(order))
	for _, id := range order {
		score := CollaborativeWeight*collabScores[id] + ContentWeight*contentScores[id]
		blended = append(blended, domain.ScoredItem{ItemID: id, Score: score})
	}
	return topK(blended, k)
}
