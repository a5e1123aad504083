package hiking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
)

func TestEstimateLeg_FlatDistance(t *testing.T) {
	est := EstimateLeg(4.0, 0, 0, catalog.OnTrail, catalog.OnTrail)
	assert.InDelta(t, 0.8, est.Hours, 1e-12)
	assert.Equal(t, "48 min", est.Label)
}

func TestEstimateLeg_ElevationTerms(t *testing.T) {
	// 10 km flat = 2h, 600 m up = 1h, 1800 m down = 1h
	est := EstimateLeg(10, 600, 1800, catalog.Unknown, catalog.Unknown)
	assert.InDelta(t, 4.0, est.Hours, 1e-12)
	assert.Equal(t, "4h", est.Label)
}

func TestEstimateLeg_AccessibilityPenalties(t *testing.T) {
	base := EstimateLeg(5, 0, 0, catalog.OnTrail, catalog.OnTrail).Hours
	assert.InDelta(t, 1.0, base, 1e-12)

	offBoth := EstimateLeg(5, 0, 0, catalog.OffTrail, catalog.OffTrail)
	assert.InDelta(t, 2.0, offBoth.Hours, 1e-12, "both off-trail endpoints are penalized")
	assert.Equal(t, "2h", offBoth.Label)

	nearStart := EstimateLeg(5, 0, 0, catalog.NearTrail, catalog.OnTrail)
	assert.InDelta(t, 1.0+10.0/60.0, nearStart.Hours, 1e-12)
	assert.Equal(t, "1h 10min", nearStart.Label)

	mixed := EstimateLeg(5, 0, 0, catalog.NearTrail, catalog.OffTrail)
	assert.InDelta(t, 1.0+10.0/60.0+0.5, mixed.Hours, 1e-12)
	assert.Equal(t, "1h 40min", mixed.Label)
}

func TestEstimateLeg_Zero(t *testing.T) {
	est := EstimateLeg(0, 0, 0, catalog.OnTrail, catalog.OnTrail)
	assert.Equal(t, 0.0, est.Hours)
	assert.Equal(t, "0 min", est.Label)
}

func TestAccessPenalty(t *testing.T) {
	assert.Equal(t, 0.0, AccessPenalty(catalog.OnTrail))
	assert.Equal(t, 0.0, AccessPenalty(catalog.Unknown))
	assert.Equal(t, 0.5, AccessPenalty(catalog.OffTrail))
	assert.InDelta(t, 0.1667, AccessPenalty(catalog.NearTrail), 1e-4)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{0, "0 min"},
		{0.25, "15 min"},
		{0.8, "48 min"},
		{1, "1h"},
		{1.5, "1h 30min"},
		{2.0041, "2h"},
		{3.4167, "3h 25min"},
		{2.999, "3h"},
		{10.75, "10h 45min"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.hours), "hours=%v", tc.hours)
	}
}
