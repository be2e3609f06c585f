package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// Geographic coordinates in decimal degrees (WGS84).
type Coordinates struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Valid reports whether both fields are finite and within WGS84 range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Return coordinates as an orb point ([lng, lat]) for geo and GeoJSON helpers.
func (c Coordinates) Point() orb.Point { return orb.Point{c.Lng, c.Lat} }
