package services

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"cafe-route-service/internal/domain"
)

// RouteGeoJSON renders the plan for a map widget: one Point feature per located
// stop in plan order, plus a "route" LineString when at least two stops are located.
func RouteGeoJSON(plan domain.Plan) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(plan.Cafes))
	for i, s := range plan.Cafes {
		if !s.HasLocation() {
			continue
		}
		pt := s.Coordinates.Point()
		line = append(line, pt)

		f := geojson.NewFeature(pt)
		f.ID = string(s.ID)
		f.Properties["kind"] = "stop"
		f.Properties["id"] = string(s.ID)
		f.Properties["name"] = s.Name
		f.Properties["order"] = i + 1
		if s.TimeSlot != "" {
			f.Properties["timeSlot"] = s.TimeSlot
		}
		fc.Append(f)
	}

	if len(line) >= 2 {
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "route"
		f.Properties["transportMode"] = string(plan.TransportMode)
		fc.Append(f)
	}

	return fc
}
