package geo

import "fmt"

// Track is an immutable, ordered sequence of trail points. Index i lies further
// along the path than index i-1.
type Track struct {
	points []TrackPoint
}

// NewTrack copies the given points into a read-only Track. Non-finite values are
// rejected because they would poison every downstream distance.
func NewTrack(points []TrackPoint) (*Track, error) {
	owned := make([]TrackPoint, len(points))
	for i, p := range points {
		if !isFinite(p.Latitude) || !isFinite(p.Longitude) || !isFinite(p.Elevation) {
			return nil, fmt.Errorf("track point %d: %w", i, ErrNonFiniteCoordinate)
		}
		owned[i] = p
	}
	return &Track{points: owned}, nil
}

// NewTrackFromCoordinates builds a Track from [longitude, latitude, elevation]
// triples, the order used by GeoJSON. A missing elevation is treated as 0.
func NewTrackFromCoordinates(coords [][]float64) (*Track, error) {
	points := make([]TrackPoint, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("track coordinate %d: %w", i, ErrMalformedCoordinate)
		}
		points[i] = TrackPoint{Longitude: c[0], Latitude: c[1]}
		if len(c) > 2 {
			points[i].Elevation = c[2]
		}
	}
	return NewTrack(points)
}

// PointCount returns the number of points in the track
func (t *Track) PointCount() int {
	if t == nil {
		return 0
	}
	return len(t.points)
}

// PointAt returns the point at index i. It panics when i is out of range, like a slice.
func (t *Track) PointAt(i int) TrackPoint {
	return t.points[i]
}

// Points returns a copy of the track points
func (t *Track) Points() []TrackPoint {
	if t == nil {
		return nil
	}
	out := make([]TrackPoint, len(t.points))
	copy(out, t.points)
	return out
}

// Validate reports whether the track supports projection and aggregation.
func (t *Track) Validate() error {
	switch t.PointCount() {
	case 0:
		return ErrEmptyTrack
	case 1:
		return ErrInvalidTrack
	}
	return nil
}

// Length returns the full trail length in kilometers
func (t *Track) Length() float64 {
	return Aggregate(t, 0, t.PointCount()-1).DistanceKm
}
