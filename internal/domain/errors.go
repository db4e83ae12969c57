package domain

import "errors"

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrEmptyCorpus        = errors.New("empty corpus")
	ErrInvalidStrategy    = errors.New("invalid strategy")
	ErrInvalidInteraction = errors.New("invalid interaction")
	ErrEmptyQuery         = errors.New("empty search query")
)
