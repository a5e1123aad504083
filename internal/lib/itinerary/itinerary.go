// Package itinerary holds an ordered multi-day plan of accommodations and derives
// the walking legs between consecutive stops.
//
// Legs are measured along the trail when a usable Track is available and fall
// back to straight-line distance otherwise. Every mutation recomputes all legs
// before returning, so readers always observe a consistent plan.
package itinerary

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
	"github.com/dpup/trailplanner/server/internal/lib/hiking"
)

// Option configures an Itinerary
type Option func(*Itinerary)

// WithName sets the display name used by exports
func WithName(name string) Option {
	return func(it *Itinerary) {
		it.name = name
	}
}

// WithIDGenerator replaces the waypoint id generator
func WithIDGenerator(gen func() string) Option {
	return func(it *Itinerary) {
		it.newID = gen
	}
}

// Itinerary is an ordered list of waypoints plus the legs derived from them.
// All methods are safe for concurrent use.
type Itinerary struct {
	mu        sync.Mutex
	name      string
	track     *geo.Track
	waypoints []Waypoint
	legs      []Leg
	newID     func() string
}

// New creates an empty itinerary. The track may be nil, in which case every leg
// is a straight-line estimate.
func New(track *geo.Track, opts ...Option) *Itinerary {
	it := &Itinerary{
		name:  "Trail Itinerary",
		track: track,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Name returns the itinerary's display name
func (it *Itinerary) Name() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.name
}

// Track returns the track snapshot legs are measured against
func (it *Itinerary) Track() *geo.Track {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.track
}

// SetTrack swaps the track snapshot and recomputes every leg
func (it *Itinerary) SetTrack(track *geo.Track) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.track = track
	it.recompute()
}

// Append adds the accommodation as the last stop. A nil accommodation is ignored.
func (it *Itinerary) Append(acc *catalog.Accommodation) Waypoint {
	if acc == nil {
		return Waypoint{}
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	wp := Waypoint{
		ID:            it.newID(),
		Accommodation: acc,
		Position:      len(it.waypoints) + 1,
	}
	it.waypoints = append(it.waypoints, wp)
	it.recompute()
	return wp
}

// Remove deletes the waypoint and renumbers the ones after it. It reports whether
// the waypoint existed.
func (it *Itinerary) Remove(id string) bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	idx := it.indexOf(id)
	if idx < 0 {
		return false
	}
	it.waypoints = append(it.waypoints[:idx], it.waypoints[idx+1:]...)
	it.renumber()
	it.recompute()
	return true
}

// Move swaps the waypoint with its neighbor in the given direction. Moving the
// first stop up or the last stop down does nothing. It reports whether the order
// changed.
func (it *Itinerary) Move(id string, dir Direction) bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	idx := it.indexOf(id)
	if idx < 0 {
		return false
	}

	target := idx
	switch dir {
	case Up:
		target = idx - 1
	case Down:
		target = idx + 1
	}
	if target < 0 || target >= len(it.waypoints) || target == idx {
		return false
	}

	it.waypoints[idx], it.waypoints[target] = it.waypoints[target], it.waypoints[idx]
	it.renumber()
	it.recompute()
	return true
}

// Clear removes every waypoint
func (it *Itinerary) Clear() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.waypoints = nil
	it.legs = nil
}

// RecomputeAll rederives every leg from the current waypoints and track
func (it *Itinerary) RecomputeAll() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.recompute()
}

// Len returns the number of waypoints
func (it *Itinerary) Len() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return len(it.waypoints)
}

// Waypoints returns the stops in order
func (it *Itinerary) Waypoints() []Waypoint {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]Waypoint, len(it.waypoints))
	copy(out, it.waypoints)
	return out
}

// Legs returns one leg per waypoint, in order
func (it *Itinerary) Legs() []Leg {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]Leg, len(it.legs))
	copy(out, it.legs)
	return out
}

// Stops returns waypoints paired with their arriving legs
func (it *Itinerary) Stops() []Stop {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.stops()
}

// Totals sums all legs
func (it *Itinerary) Totals() Totals {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.totals()
}

// Path returns the walked route: track points for trail-relative legs and the
// stop coordinates for straight-line legs.
func (it *Itinerary) Path() []geo.TrackPoint {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.path(it.stopPoints())
}

// Snapshot reads the name, stops, totals, stop points and path under a single
// lock. Exports render from it.
func (it *Itinerary) Snapshot() View {
	it.mu.Lock()
	defer it.mu.Unlock()

	points := it.stopPoints()
	return View{
		Name:       it.name,
		Stops:      it.stops(),
		Totals:     it.totals(),
		StopPoints: points,
		Path:       it.path(points),
	}
}

func (it *Itinerary) path(points []geo.TrackPoint) []geo.TrackPoint {
	var path []geo.TrackPoint
	for i := range it.waypoints {
		leg := it.legs[i]
		if leg.Precision == PrecisionTrailRelative {
			step := 1
			if leg.toIndex < leg.fromIndex {
				step = -1
			}
			for j := leg.fromIndex; ; j += step {
				path = appendDistinct(path, it.track.PointAt(j))
				if j == leg.toIndex {
					break
				}
			}
		}
		path = appendDistinct(path, points[i])
	}
	return path
}

// stopPoints places every stop in 3D. A stop without a declared altitude takes
// the elevation of the track vertex its leg snapped to, or 0 when no leg did.
func (it *Itinerary) stopPoints() []geo.TrackPoint {
	points := make([]geo.TrackPoint, len(it.waypoints))
	for i, wp := range it.waypoints {
		acc := wp.Accommodation
		p := geo.TrackPoint{Longitude: acc.Longitude, Latitude: acc.Latitude}
		switch {
		case acc.Altitude != nil:
			p.Elevation = *acc.Altitude
		case it.legs[i].Precision == PrecisionTrailRelative:
			p.Elevation = it.track.PointAt(it.legs[i].toIndex).Elevation
		case i+1 < len(it.legs) && it.legs[i+1].Precision == PrecisionTrailRelative:
			p.Elevation = it.track.PointAt(it.legs[i+1].fromIndex).Elevation
		}
		points[i] = p
	}
	return points
}

func (it *Itinerary) stops() []Stop {
	out := make([]Stop, len(it.waypoints))
	for i, wp := range it.waypoints {
		out[i] = Stop{Waypoint: wp, Leg: it.legs[i]}
	}
	return out
}

func (it *Itinerary) totals() Totals {
	var t Totals
	if n := len(it.waypoints); n > 0 {
		t.Days = n - 1
	}
	for _, leg := range it.legs {
		t.DistanceKm += leg.DistanceKm
		t.GainM += leg.ElevationGainM
		t.LossM += leg.ElevationLossM
		t.Hours += leg.EstimatedHours
	}
	t.Label = hiking.FormatDuration(t.Hours)
	return t
}

func (it *Itinerary) indexOf(id string) int {
	for i, wp := range it.waypoints {
		if wp.ID == id {
			return i
		}
	}
	return -1
}

func (it *Itinerary) renumber() {
	for i := range it.waypoints {
		it.waypoints[i].Position = i + 1
	}
}

// recompute must be called with mu held
func (it *Itinerary) recompute() {
	legs := make([]Leg, len(it.waypoints))
	if len(legs) == 0 {
		it.legs = nil
		return
	}

	legs[0] = Leg{Label: "Start", Precision: PrecisionStart}
	trackOK := it.track.Validate() == nil
	for i := 1; i < len(it.waypoints); i++ {
		legs[i] = computeLeg(it.track, trackOK, it.waypoints[i-1].Accommodation, it.waypoints[i].Accommodation)
	}
	it.legs = legs
}

func computeLeg(track *geo.Track, trackOK bool, from, to *catalog.Accommodation) Leg {
	leg := Leg{Precision: PrecisionStraightLine}

	var stats geo.SegmentStats
	if trackOK {
		start, errStart := geo.Project(track, from.Latitude, from.Longitude)
		end, errEnd := geo.Project(track, to.Latitude, to.Longitude)
		if errStart == nil && errEnd == nil {
			stats = aggregateDirected(track, start.Index, end.Index)
			if !stats.IsZero() {
				leg.Precision = PrecisionTrailRelative
				leg.fromIndex = start.Index
				leg.toIndex = end.Index
			}
		}
	}

	if stats.IsZero() {
		stats = geo.SegmentStats{DistanceKm: geo.Distance(from.Point(), to.Point())}
		// unknown altitude on either end means unknown climb
		if from.Altitude != nil && to.Altitude != nil {
			stats.GainM, stats.LossM = geo.ElevationDelta(*from.Altitude, *to.Altitude)
		}
	}

	est := hiking.EstimateLeg(stats.DistanceKm, stats.GainM, stats.LossM, from.Accessibility, to.Accessibility)
	leg.DistanceKm = stats.DistanceKm
	leg.ElevationGainM = stats.GainM
	leg.ElevationLossM = stats.LossM
	leg.EstimatedHours = est.Hours
	leg.Label = est.Label
	return leg
}

// aggregateDirected measures the trail from index a to index b in either
// direction. Walking against the recording climbs what the forward walk descends.
func aggregateDirected(track *geo.Track, a, b int) geo.SegmentStats {
	if a <= b {
		return geo.Aggregate(track, a, b)
	}
	stats := geo.Aggregate(track, b, a)
	stats.GainM, stats.LossM = stats.LossM, stats.GainM
	return stats
}

func appendDistinct(path []geo.TrackPoint, p geo.TrackPoint) []geo.TrackPoint {
	if n := len(path); n > 0 && path[n-1] == p {
		return path
	}
	return append(path, p)
}
