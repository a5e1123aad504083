package geo

import "math"

// Project snaps (lat, lon) to the nearest track vertex. This is a vertex-snap, not a
// point-to-segment projection; recorded trails are sampled densely enough for it.
// Ties resolve to the lowest index.
func Project(t *Track, lat, lon float64) (Projection, error) {
	if t.PointCount() == 0 {
		return Projection{}, ErrEmptyTrack
	}

	query := Point{Latitude: lat, Longitude: lon}
	best := Projection{Index: 0, OffsetKm: math.Inf(1)}

	for i, p := range t.points {
		d := Distance(query, p.Point())
		if d < best.OffsetKm {
			best = Projection{Index: i, OffsetKm: d}
		}
	}

	return best, nil
}
