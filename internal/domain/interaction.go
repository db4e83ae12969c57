package domain

import (
	"fmt"
	"time"
)

type InteractionKind string

const (
	KindView     InteractionKind = "view"
	KindLike     InteractionKind = "like"
	KindCart     InteractionKind = "cart"
	KindPurchase InteractionKind = "purchase"
)

func ParseInteractionKind(s string) (InteractionKind, error) {
	switch k := InteractionKind(s); k {
	case KindView, KindLike, KindCart, KindPurchase:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidInteraction, s)
}

// Interaction is an append-only record of an actor (user or anonymous
// session) acting on an item. Rating is optional and normalized to [0,1].
type Interaction struct {
	ActorID    string          `json:"actor_id"`
	ItemID     int64           `json:"item_id"`
	Kind       InteractionKind `json:"kind"`
	Rating     *float64        `json:"rating,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (in Interaction) Validate() error {
	if in.ActorID == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidInteraction)
	}
	if in.ItemID <= 0 {
		return fmt.Errorf("%w: item id must be positive", ErrInvalidInteraction)
	}
	if _, err := ParseInteractionKind(string(in.Kind)); err != nil {
		return err
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 1) {
		return fmt.Errorf("%w: rating %.3f outside [0,1]", ErrInvalidInteraction, *in.Rating)
	}
	return nil
}
