package geo

import "errors"

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// TrackPoint is a single recorded trail sample. Elevation is in meters.
type TrackPoint struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Elevation float64 `json:"ele"`
}

// Point returns the 2D position of the track point
func (tp TrackPoint) Point() Point {
	return Point{Latitude: tp.Latitude, Longitude: tp.Longitude}
}

// Projection is the result of snapping a coordinate onto a Track
type Projection struct {
	Index    int     `json:"index"`
	OffsetKm float64 `json:"offset_km"`
}

// SegmentStats holds the trail-following statistics between two track indices
type SegmentStats struct {
	DistanceKm float64 `json:"distance_km"`
	GainM      float64 `json:"gain_m"`
	LossM      float64 `json:"loss_m"`
}

// IsZero reports whether no trail-relative data was produced
func (s SegmentStats) IsZero() bool {
	return s == SegmentStats{}
}

var (
	// ErrEmptyTrack is returned when projecting onto a track with no points.
	ErrEmptyTrack = errors.New("track has no points")

	// ErrInvalidTrack is returned when a track cannot support segment computation.
	ErrInvalidTrack = errors.New("track must have at least 2 points")

	// ErrNonFiniteCoordinate is returned for NaN or infinite coordinate values.
	ErrNonFiniteCoordinate = errors.New("coordinate is not finite")

	// ErrMalformedCoordinate is returned for coordinate tuples that are too short.
	ErrMalformedCoordinate = errors.New("coordinate must have at least longitude and latitude")
)
