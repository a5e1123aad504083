package itinerary

import (
	"fmt"
	"strings"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
)

// Precision tells how a leg's statistics were derived
type Precision string

const (
	PrecisionStart         Precision = "start"
	PrecisionTrailRelative Precision = "trail-relative"
	PrecisionStraightLine  Precision = "straight-line"
)

// Direction is the way a waypoint moves within the itinerary
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("invalid direction %q: must be up or down", s)
}

// Waypoint is one planned stop
type Waypoint struct {
	ID            string                 `json:"id"`
	Accommodation *catalog.Accommodation `json:"accommodation"`
	Position      int                    `json:"position"`
}

// Leg holds the statistics for walking from the previous waypoint to this one.
// The first waypoint always carries a Start leg with zero values.
type Leg struct {
	DistanceKm     float64   `json:"distance_km"`
	ElevationGainM float64   `json:"elevation_gain_m"`
	ElevationLossM float64   `json:"elevation_loss_m"`
	EstimatedHours float64   `json:"estimated_hours"`
	Label          string    `json:"label"`
	Precision      Precision `json:"precision"`

	// track indices walked for trail-relative legs
	fromIndex int
	toIndex   int
}

// Stop pairs a waypoint with the leg that arrives at it
type Stop struct {
	Waypoint
	Leg Leg `json:"leg"`
}

// Totals are the itinerary-wide sums of every leg
type Totals struct {
	Days       int     `json:"days"`
	DistanceKm float64 `json:"distance_km"`
	GainM      float64 `json:"gain_m"`
	LossM      float64 `json:"loss_m"`
	Hours      float64 `json:"hours"`
	Label      string  `json:"label"`
}

// View is a point-in-time copy of an itinerary. StopPoints holds one 3D point
// per stop in the same order as Stops.
type View struct {
	Name       string
	Stops      []Stop
	Totals     Totals
	StopPoints []geo.TrackPoint
	Path       []geo.TrackPoint
}
