// Package hiking estimates walking time over mountain terrain.
//
// The model extends Naismith's rule: 5 km/h on the flat, one extra hour per
// 600 m of ascent, one extra hour per 1800 m of descent, plus a fixed penalty for
// each endpoint that is not directly on the trail.
package hiking

import (
	"fmt"
	"math"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
)

const (
	// FlatSpeedKmh is the walking speed on level ground.
	FlatSpeedKmh = 5.0

	// AscentMetersPerHour is the vertical gain that costs one extra hour.
	AscentMetersPerHour = 600.0

	// DescentMetersPerHour is the vertical loss that costs one extra hour.
	DescentMetersPerHour = 1800.0

	// OffTrailPenaltyHours is added for each endpoint classified Off-trail.
	OffTrailPenaltyHours = 0.5

	// NearTrailPenaltyHours is added for each endpoint classified Near-trail (10 min).
	NearTrailPenaltyHours = 10.0 / 60.0
)

// Estimate is an estimated walking duration with its display label
type Estimate struct {
	Hours float64 `json:"hours"`
	Label string  `json:"label"`
}

// EstimateLeg converts leg statistics into a walking time. Penalties for the start and
// end accommodation are applied independently.
func EstimateLeg(distanceKm, gainM, lossM float64, start, end catalog.Accessibility) Estimate {
	hours := distanceKm/FlatSpeedKmh +
		gainM/AscentMetersPerHour +
		lossM/DescentMetersPerHour +
		AccessPenalty(start) +
		AccessPenalty(end)

	return Estimate{Hours: hours, Label: FormatDuration(hours)}
}

// AccessPenalty returns the extra hours needed to reach the trail from an endpoint
func AccessPenalty(a catalog.Accessibility) float64 {
	switch a {
	case catalog.OffTrail:
		return OffTrailPenaltyHours
	case catalog.NearTrail:
		return NearTrailPenaltyHours
	}
	return 0
}

// FormatDuration renders hours as "48 min", "3h" or "3h 25min".
func FormatDuration(hours float64) string {
	if hours < 1 {
		return fmt.Sprintf("%d min", int(math.Round(hours*60)))
	}

	h := math.Floor(hours)
	m := int(math.Round((hours - h) * 60))
	if m == 60 {
		// 2.999h rounds up to the next full hour
		h++
		m = 0
	}
	if m == 0 {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%dh %dmin", int(h), m)
}
