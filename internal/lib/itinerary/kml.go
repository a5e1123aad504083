package itinerary

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"
)

// WriteKML writes the itinerary as a KML document: one placemark per stop and a
// line string for the walked route.
func WriteKML(w io.Writer, it *Itinerary) error {
	view := it.Snapshot()

	folder := kml.Folder(kml.Name("Stops"))
	for i, stop := range view.Stops {
		acc := stop.Accommodation
		at := view.StopPoints[i]
		folder.Add(kml.Placemark(
			kml.Name(fmt.Sprintf("Day %d: %s", stop.Position, acc.Name)),
			kml.Description(legDescription(stop)),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: at.Longitude, Lat: at.Latitude, Alt: at.Elevation}),
			),
		))
	}

	doc := kml.Document(kml.Name(view.Name), folder)

	if len(view.Path) >= 2 {
		coords := make([]kml.Coordinate, len(view.Path))
		for i, p := range view.Path {
			coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude, Alt: p.Elevation}
		}
		doc.Add(kml.Placemark(
			kml.Name("Route"),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	if err := kml.KML(doc).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func legDescription(stop Stop) string {
	if stop.Leg.Precision == PrecisionStart {
		return fmt.Sprintf("%s, start", stop.Accommodation.Accessibility)
	}
	return fmt.Sprintf("%s, %.1f km, +%.0f m / -%.0f m, %s (%s)",
		stop.Accommodation.Accessibility,
		stop.Leg.DistanceKm,
		stop.Leg.ElevationGainM,
		stop.Leg.ElevationLossM,
		stop.Leg.Label,
		precisionLabel(stop.Leg.Precision))
}
