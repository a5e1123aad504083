package itinerary

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection converts the itinerary into GeoJSON: a Point feature per stop
// carrying its leg statistics, then a LineString feature for the route with the
// totals as properties. Elevation is carried in properties only.
func FeatureCollection(it *Itinerary) *geojson.FeatureCollection {
	view := it.Snapshot()
	stops, totals, path := view.Stops, view.Totals, view.Path

	fc := geojson.NewFeatureCollection()
	for _, stop := range stops {
		acc := stop.Accommodation
		f := geojson.NewFeature(orb.Point{acc.Longitude, acc.Latitude})
		f.ID = stop.ID
		f.Properties["kind"] = "stop"
		f.Properties["position"] = stop.Position
		f.Properties["accommodation_id"] = acc.ID
		f.Properties["name"] = acc.Name
		f.Properties["type"] = acc.Type
		f.Properties["location_type"] = acc.Accessibility.String()
		if acc.Altitude != nil {
			f.Properties["altitude"] = *acc.Altitude
		}
		f.Properties["distance_km"] = stop.Leg.DistanceKm
		f.Properties["elevation_gain_m"] = stop.Leg.ElevationGainM
		f.Properties["elevation_loss_m"] = stop.Leg.ElevationLossM
		f.Properties["estimated_hours"] = stop.Leg.EstimatedHours
		f.Properties["label"] = stop.Leg.Label
		f.Properties["precision"] = string(stop.Leg.Precision)
		fc.Append(f)
	}

	if len(path) >= 2 {
		line := make(orb.LineString, len(path))
		for i, p := range path {
			line[i] = orb.Point{p.Longitude, p.Latitude}
		}
		route := geojson.NewFeature(line)
		route.Properties["kind"] = "route"
		route.Properties["name"] = view.Name
		route.Properties["days"] = totals.Days
		route.Properties["distance_km"] = totals.DistanceKm
		route.Properties["elevation_gain_m"] = totals.GainM
		route.Properties["elevation_loss_m"] = totals.LossM
		route.Properties["estimated_hours"] = totals.Hours
		route.Properties["label"] = totals.Label
		fc.Append(route)
	}

	return fc
}

// WriteGeoJSON writes the itinerary FeatureCollection as JSON
func WriteGeoJSON(w io.Writer, it *Itinerary) error {
	data, err := FeatureCollection(it).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
