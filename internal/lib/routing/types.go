package routing

import (
	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
)

const (
	// DefaultOnTrailThreshold is the largest offset, in meters, still counted as on the trail
	DefaultOnTrailThreshold = 100.0

	// DefaultNearTrailThreshold is the largest offset, in meters, counted as near the trail
	DefaultNearTrailThreshold = 1000.0
)

// Thresholds hold the accessibility classification distances in meters
type Thresholds struct {
	OnTrailMeters   float64 `json:"on_trail_meters"`
	NearTrailMeters float64 `json:"near_trail_meters"`
}

// DefaultThresholds returns the 100 m / 1000 m classification bands
func DefaultThresholds() Thresholds {
	return Thresholds{
		OnTrailMeters:   DefaultOnTrailThreshold,
		NearTrailMeters: DefaultNearTrailThreshold,
	}
}

// Match is an accommodation snapped onto the trail
type Match struct {
	Accommodation  *catalog.Accommodation `json:"accommodation"`
	Classification catalog.Accessibility  `json:"classification"`
	TrackIndex     int                    `json:"track_index"`
	OffsetMeters   float64                `json:"offset_meters"`
	// Cumulative trail distance from the track start to the snapped vertex
	TrailKm float64 `json:"trail_km"`
}

func matchFromProjection(acc *catalog.Accommodation, p geo.Projection, class catalog.Accessibility) Match {
	return Match{
		Accommodation:  acc,
		Classification: class,
		TrackIndex:     p.Index,
		OffsetMeters:   p.OffsetKm * 1000,
	}
}
