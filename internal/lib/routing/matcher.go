package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
)

// Matcher classifies accommodations by their distance from the trail
type Matcher struct {
	mu         sync.RWMutex
	thresholds Thresholds
}

// NewMatcher creates a Matcher with the default thresholds
func NewMatcher() *Matcher {
	return &Matcher{thresholds: DefaultThresholds()}
}

// SetThresholds replaces the classification distances. The near-trail band must
// not be narrower than the on-trail band.
func (m *Matcher) SetThresholds(t Thresholds) error {
	if t.OnTrailMeters < 0 || t.NearTrailMeters < t.OnTrailMeters {
		return fmt.Errorf("invalid thresholds: on-trail %.0f m, near-trail %.0f m", t.OnTrailMeters, t.NearTrailMeters)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = t
	return nil
}

// Thresholds returns the current classification distances
func (m *Matcher) Thresholds() Thresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

// Classify maps an offset from the trail onto an accessibility band
func (m *Matcher) Classify(offsetMeters float64) catalog.Accessibility {
	t := m.Thresholds()
	switch {
	case offsetMeters <= t.OnTrailMeters:
		return catalog.OnTrail
	case offsetMeters <= t.NearTrailMeters:
		return catalog.NearTrail
	}
	return catalog.OffTrail
}

// Match snaps a single accommodation to the track and classifies it
func (m *Matcher) Match(ctx context.Context, track *geo.Track, acc *catalog.Accommodation) (Match, error) {
	if acc == nil {
		return Match{}, errors.New("accommodation is nil")
	}
	p, err := geo.Project(track, acc.Latitude, acc.Longitude)
	if err != nil {
		return Match{}, fmt.Errorf("failed to project %s: %w", acc.ID, err)
	}
	return matchFromProjection(acc, p, m.Classify(p.OffsetKm*1000)), nil
}

// FillAccessibility returns the accommodations with a classification derived from
// the track wherever the catalog has none. Records with a declared location type
// are returned as is; the others are copied, never modified in place.
func (m *Matcher) FillAccessibility(ctx context.Context, track *geo.Track, accs []*catalog.Accommodation) ([]*catalog.Accommodation, error) {
	out := make([]*catalog.Accommodation, len(accs))
	for i, acc := range accs {
		if acc == nil || acc.Accessibility != catalog.Unknown {
			out[i] = acc
			continue
		}

		match, err := m.Match(ctx, track, acc)
		if err != nil {
			return nil, err
		}
		filled := *acc
		filled.Accessibility = match.Classification
		out[i] = &filled
	}
	return out, nil
}

// AlongTrail snaps every accommodation onto the track and returns them in trail
// order: by track index, then by offset, then by name.
func (m *Matcher) AlongTrail(ctx context.Context, track *geo.Track, accs []*catalog.Accommodation) ([]Match, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}

	cumulative := cumulativeKm(track)
	matches := make([]Match, 0, len(accs))
	for _, acc := range accs {
		if acc == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		match, err := m.Match(ctx, track, acc)
		if err != nil {
			return nil, err
		}
		// keep the catalog's declared classification when it has one
		if acc.Accessibility != catalog.Unknown {
			match.Classification = acc.Accessibility
		}
		match.TrailKm = cumulative[match.TrackIndex]
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.TrackIndex != b.TrackIndex {
			return a.TrackIndex < b.TrackIndex
		}
		if a.OffsetMeters != b.OffsetMeters {
			return a.OffsetMeters < b.OffsetMeters
		}
		return a.Accommodation.Name < b.Accommodation.Name
	})

	return matches, nil
}

// Within returns the matches whose classification is at least as close as max.
// OnTrail keeps only on-trail stops, NearTrail keeps on- and near-trail stops.
func Within(matches []Match, max catalog.Accessibility) []Match {
	rank := map[catalog.Accessibility]int{
		catalog.OnTrail:   1,
		catalog.NearTrail: 2,
		catalog.OffTrail:  3,
	}
	limit, ok := rank[max]
	if !ok {
		return matches
	}

	var out []Match
	for _, match := range matches {
		if r, ok := rank[match.Classification]; ok && r <= limit {
			out = append(out, match)
		}
	}
	return out
}

func cumulativeKm(track *geo.Track) []float64 {
	out := make([]float64, track.PointCount())
	for i := 1; i < len(out); i++ {
		out[i] = out[i-1] + geo.Distance(track.PointAt(i-1).Point(), track.PointAt(i).Point())
	}
	return out
}
