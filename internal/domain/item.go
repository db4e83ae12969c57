package domain

import (
	"strings"
	"time"
)

type Item struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Brand       string            `json:"brand"`
	Price       float64           `json:"price"`
	ImageURL    string            `json:"image_url,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Text joins the fields used for text similarity. Missing fields contribute
// an empty string.
func (i Item) Text() string {
	return i.Name + " " + i.Description + " " + i.Category + " " + i.Brand
}

// Matches reports whether query occurs in any text field, ignoring case.
func (i Item) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, field := range []string{i.Name, i.Description, i.Category, i.Brand} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
