package model

import (
	"sort"
	"time"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

// MaxNeighbors bounds how many similar actors contribute to a score.
const MaxNeighbors = 5

type Neighbor struct {
	ActorID    string
	Similarity float64
}

type rating struct {
	value float64
	at    time.Time
	rated bool
}

// CollaborativeScorer scores unseen items for an actor by the activity of
// the actors whose interaction sets overlap most with theirs.
type CollaborativeScorer struct {
	itemsByActor map[string]map[int64]struct{}
	ratings      map[string]map[int64]rating
	actors       []string
}

func NewCollaborativeScorer(interactions []domain.Interaction) *CollaborativeScorer {
	s := &CollaborativeScorer{
		itemsByActor: make(map[string]map[int64]struct{}),
		ratings:      make(map[string]map[int64]rating),
	}

	for _, in := range interactions {
		items, ok := s.itemsByActor[in.ActorID]
		if !ok {
			items = make(map[int64]struct{})
			s.itemsByActor[in.ActorID] = items
			s.ratings[in.ActorID] = make(map[int64]rating)
			s.actors = append(s.actors, in.ActorID)
		}
		items[in.ItemID] = struct{}{}

		if in.Rating == nil {
			continue
		}
		// Latest explicit rating wins; equal timestamps keep the higher one.
		prev := s.ratings[in.ActorID][in.ItemID]
		if !prev.rated || in.OccurredAt.After(prev.at) ||
			(in.OccurredAt.Equal(prev.at) && *in.Rating > prev.value) {
			s.ratings[in.ActorID][in.ItemID] = rating{value: *in.Rating, at: in.OccurredAt, rated: true}
		}
	}
	sort.Strings(s.actors)
	return s
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[int64]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for id := range a {
		if _, ok := b[id]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Neighbors returns up to MaxNeighbors actors with non-zero similarity,
// most similar first, ties by actor id.
func (s *CollaborativeScorer) Neighbors(actorID string) []Neighbor {
	own, ok := s.itemsByActor[actorID]
	if !ok || len(own) == 0 {
		return nil
	}

	var neighbors []Neighbor
	for _, other := range s.actors {
		if other == actorID {
			continue
		}
		if sim := Jaccard(own, s.itemsByActor[other]); sim > 0 {
			neighbors = append(neighbors, Neighbor{ActorID: other, Similarity: sim})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].ActorID < neighbors[j].ActorID
	})
	if len(neighbors) > MaxNeighbors {
		neighbors = neighbors[:MaxNeighbors]
	}
	return neighbors
}

// Scores returns at most k items the actor has not interacted with, scored by
// the similarity-weighted mean rating of the neighbors who did.
func (s *CollaborativeScorer) Scores(actorID string, k int) []domain.ScoredItem {
	neighbors := s.Neighbors(actorID)
	if len(neighbors) == 0 || k <= 0 {
		return []domain.ScoredItem{}
	}
	own := s.itemsByActor[actorID]

	weighted := make(map[int64]float64)
	totals := make(map[int64]float64)
	for _, n := range neighbors {
		for id := range s.itemsByActor[n.ActorID] {
			if _, seen := own[id]; seen {
				continue
			}
			weighted[id] += s.weightedRating(n.ActorID, id) * n.Similarity
			totals[id] += n.Similarity
		}
	}

	scored := make([]domain.ScoredItem, 0, len(totals))
	for id, total := range totals {
		if total <= 0 {
			continue
		}
		scored = append(scored, domain.ScoredItem{ItemID: id, Score: weighted[id] / total})
	}
	return topK(scored, k)
}

func (s *CollaborativeScorer) weightedRating(actorID string, itemID int64) float64 {
	if r := s.ratings[actorID][itemID]; r.rated {
		return r.value
	}
	return 1.0
}
