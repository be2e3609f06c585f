package domain

import "strings"

// CafeQuery narrows a catalog listing. Zero fields match everything.
type CafeQuery struct {
	// Text matches a case-insensitive substring of name, address or cuisine.
	Text       string
	Cuisine    string
	PriceRange string
}

// Normalized trims surrounding whitespace from every field.
func (q CafeQuery) Normalized() CafeQuery {
	return CafeQuery{
		Text:       strings.TrimSpace(q.Text),
		Cuisine:    strings.TrimSpace(q.Cuisine),
		PriceRange: strings.TrimSpace(q.PriceRange),
	}
}

// Matches reports whether s satisfies every non-empty field of q.
func (q CafeQuery) Matches(s Stop) bool {
	q = q.Normalized()
	if q.Cuisine != "" && !strings.EqualFold(s.Cuisine, q.Cuisine) {
		return false
	}
	if q.PriceRange != "" && !strings.EqualFold(s.PriceRange, q.PriceRange) {
		return false
	}
	if q.Text == "" {
		return true
	}

	text := strings.ToLower(q.Text)
	for _, field := range []string{s.Name, s.Address, s.Cuisine} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}
