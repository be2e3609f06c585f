package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// StopID identifies a cafe across the catalog, plans and the archive.
type StopID string

// UnmarshalJSON accepts both string and numeric ids, as older exports stored numbers.
func (id *StopID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StopID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("stop id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("stop id must be a string or number: %w", err)
	}
	*id = StopID(n.String())
	return nil
}

// A cafe placed into a plan.
// Display attributes are opaque payload; Order and TimeSlot are derived
// by the itinerary and the route optimizer.
type Stop struct {
	ID          StopID       `json:"id" validate:"required"`
	Name        string       `json:"name"`
	Address     string       `json:"address,omitempty"`
	Rating      float64      `json:"rating,omitempty"`
	PriceRange  string       `json:"priceRange,omitempty"`
	Cuisine     string       `json:"cuisine,omitempty"`
	Photos      []string     `json:"photos,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Notes       string       `json:"notes" validate:"max=200"`
	Order       int          `json:"order" validate:"gte=0"`
	TimeSlot    string       `json:"timeSlot" validate:"omitempty,clock"`
}

// HasLocation reports whether the stop carries usable coordinates.
func (s Stop) HasLocation() bool {
	return s.Coordinates != nil && s.Coordinates.Valid()
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Stop) Clone() Stop {
	out := s
	if s.Photos != nil {
		out.Photos = append([]string(nil), s.Photos...)
	}
	if s.Coordinates != nil {
		c := *s.Coordinates
		out.Coordinates = &c
	}
	return out
}

func cloneStops(stops []Stop) []Stop {
	out := make([]Stop, len(stops))
	for i, s := range stops {
		out[i] = s.Clone()
	}
	return out
}
