package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
	"github.com/dpup/trailplanner/server/internal/lib/itinerary"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
	"github.com/dpup/trailplanner/server/internal/lib/stages"
	"github.com/dpup/trailplanner/server/internal/logging"
	"github.com/dpup/trailplanner/server/internal/store"
)

var (
	// ErrNotFound is returned for unknown sessions, waypoints, accommodations and plans
	ErrNotFound = errors.New("not found")

	// ErrStoreDisabled is returned by Save and Load when no plan store is configured
	ErrStoreDisabled = errors.New("plan store is disabled")
)

const defaultItineraryName = "Trail Itinerary"

// ItineraryView is the read model returned for a planning session
type ItineraryView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	PlanID   string           `json:"plan_id,omitempty"`
	Stops    []itinerary.Stop `json:"stops"`
	Totals   itinerary.Totals `json:"totals"`
	Polyline string           `json:"polyline"`
}

// AccommodationQuery filters the accommodation listing
type AccommodationQuery struct {
	Stage      int                   // 0 lists every stage
	MaxAccess  catalog.Accessibility // Unknown lists every classification
	TrailOrder bool                  // sort by position along the trail instead of by name
}

type session struct {
	it     *itinerary.Itinerary
	name   string
	planID string
}

// PlannerService holds the in-memory planning sessions. Each session is an
// itinerary that follows the current trail snapshot.
type PlannerService struct {
	snapshots SnapshotSource
	matcher   *routing.Matcher
	plans     store.PlanStore

	mu       sync.RWMutex
	sessions map[string]*session
	newID    func() string
}

// NewPlannerService creates a PlannerService. plans may be nil, which disables
// Save and Load.
func NewPlannerService(snapshots SnapshotSource, matcher *routing.Matcher, plans store.PlanStore) *PlannerService {
	if matcher == nil {
		matcher = routing.NewMatcher()
	}
	return &PlannerService{
		snapshots: snapshots,
		matcher:   matcher,
		plans:     plans,
		sessions:  make(map[string]*session),
		newID:     uuid.NewString,
	}
}

// Create starts an empty planning session
func (s *PlannerService) Create(ctx context.Context, name string) (ItineraryView, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return ItineraryView{}, err
	}

	sess := newSession(snap.Track, name)
	id := s.newID()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	logging.Infow(ctx, "Created itinerary", "itinerary_id", id, "name", sess.name)
	return s.view(id, sess), nil
}

// Get returns the current view of a session
func (s *PlannerService) Get(ctx context.Context, id string) (ItineraryView, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return ItineraryView{}, err
	}
	return s.view(id, sess), nil
}

// Delete discards a session
func (s *PlannerService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: itinerary %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	logging.Infow(ctx, "Deleted itinerary", "itinerary_id", id)
	return nil
}

// Append adds the catalog accommodation as the next stop
func (s *PlannerService) Append(ctx context.Context, id, accommodationID string) (ItineraryView, error) {
	sess, snap, err := s.session(ctx, id)
	if err != nil {
		return ItineraryView{}, err
	}
	acc, ok := snap.Catalog.Get(accommodationID)
	if !ok {
		return ItineraryView{}, fmt.Errorf("%w: accommodation %s", ErrNotFound, accommodationID)
	}

	wp := sess.it.Append(acc)
	logging.Debugw(ctx, "Appended waypoint",
		"itinerary_id", id,
		"waypoint_id", wp.ID,
		"accommodation_id", acc.ID,
		"position", wp.Position)
	return s.view(id, sess), nil
}

// Remove deletes a waypoint. An unknown waypoint id leaves the itinerary unchanged.
func (s *PlannerService) Remove(ctx context.Context, id, waypointID string) (ItineraryView, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return ItineraryView{}, err
	}
	if !sess.it.Remove(waypointID) {
		logging.Debugw(ctx, "Remove ignored unknown waypoint", "itinerary_id", id, "waypoint_id", waypointID)
	}
	return s.view(id, sess), nil
}

// Move swaps a waypoint with its neighbor. Moves past either end are ignored.
func (s *PlannerService) Move(ctx context.Context, id, waypointID string, dir itinerary.Direction) (ItineraryView, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return ItineraryView{}, err
	}
	if !sess.it.Move(waypointID, dir) {
		logging.Debugw(ctx, "Move ignored", "itinerary_id", id, "waypoint_id", waypointID, "direction", string(dir))
	}
	return s.view(id, sess), nil
}

// Clear removes every waypoint
func (s *PlannerService) Clear(ctx context.Context, id string) (ItineraryView, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return ItineraryView{}, err
	}
	sess.it.Clear()
	return s.view(id, sess), nil
}

// Export writes the session in the requested format
func (s *PlannerService) Export(ctx context.Context, id string, format itinerary.Format, w io.Writer) error {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	return itinerary.Write(w, sess.it, format)
}

// Save persists the session's stop order. Saving again updates the same plan.
func (s *PlannerService) Save(ctx context.Context, id string) (store.Plan, error) {
	if s.plans == nil {
		return store.Plan{}, ErrStoreDisabled
	}
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return store.Plan{}, err
	}

	s.mu.Lock()
	if sess.planID == "" {
		sess.planID = s.newID()
	}
	planID := sess.planID
	s.mu.Unlock()

	waypoints := sess.it.Waypoints()
	ids := make([]string, len(waypoints))
	for i, wp := range waypoints {
		ids[i] = wp.Accommodation.ID
	}

	plan, err := s.plans.Save(ctx, store.Plan{
		ID:               planID,
		Name:             sess.name,
		AccommodationIDs: ids,
	})
	if err != nil {
		return store.Plan{}, fmt.Errorf("failed to save plan: %w", err)
	}
	logging.Infow(ctx, "Saved plan", "itinerary_id", id, "plan_id", plan.ID, "stops", len(ids))
	return plan, nil
}

// Load opens a saved plan as a new session. Accommodations no longer in the
// catalog are skipped.
func (s *PlannerService) Load(ctx context.Context, planID string) (ItineraryView, error) {
	if s.plans == nil {
		return ItineraryView{}, ErrStoreDisabled
	}
	plan, err := s.plans.Get(ctx, planID)
	if errors.Is(err, store.ErrNotFound) {
		return ItineraryView{}, fmt.Errorf("%w: plan %s", ErrNotFound, planID)
	}
	if err != nil {
		return ItineraryView{}, fmt.Errorf("failed to load plan: %w", err)
	}

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return ItineraryView{}, err
	}

	sess := newSession(snap.Track, plan.Name)
	sess.planID = plan.ID
	for _, accID := range plan.AccommodationIDs {
		acc, ok := snap.Catalog.Get(accID)
		if !ok {
			logging.Warnw(ctx, "Saved plan references missing accommodation", "plan_id", plan.ID, "accommodation_id", accID)
			continue
		}
		sess.it.Append(acc)
	}

	id := s.newID()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	logging.Infow(ctx, "Loaded plan", "itinerary_id", id, "plan_id", plan.ID, "stops", sess.it.Len())
	return s.view(id, sess), nil
}

// Plans lists saved plans, most recently updated first
func (s *PlannerService) Plans(ctx context.Context) ([]store.Plan, error) {
	if s.plans == nil {
		return nil, ErrStoreDisabled
	}
	return s.plans.List(ctx)
}

// DeletePlan removes a saved plan
func (s *PlannerService) DeletePlan(ctx context.Context, planID string) error {
	if s.plans == nil {
		return ErrStoreDisabled
	}
	err := s.plans.Delete(ctx, planID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: plan %s", ErrNotFound, planID)
	}
	return err
}

// StageGroups returns the catalog grouped by stage
func (s *PlannerService) StageGroups(ctx context.Context) ([]stages.StageGroup, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Stages, nil
}

// Accommodations lists catalog entries snapped onto the trail. Without a usable
// track the entries keep their declared classification and a track index of -1.
func (s *PlannerService) Accommodations(ctx context.Context, q AccommodationQuery) ([]routing.Match, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	accs := snap.Catalog.All()
	if q.Stage > 0 {
		group, ok := stages.Find(snap.Stages, q.Stage)
		if !ok {
			return nil, fmt.Errorf("%w: stage %d", ErrNotFound, q.Stage)
		}
		accs = group.Accommodations
	}

	var matches []routing.Match
	if snap.Track.Validate() == nil {
		matches, err = s.matcher.AlongTrail(ctx, snap.Track, accs)
		if err != nil {
			return nil, err
		}
	} else {
		matches = make([]routing.Match, len(accs))
		for i, acc := range accs {
			matches[i] = routing.Match{Accommodation: acc, Classification: acc.Accessibility, TrackIndex: -1}
		}
	}

	if !q.TrailOrder {
		sort.SliceStable(matches, func(i, j int) bool {
			return strings.ToLower(matches[i].Accommodation.Name) < strings.ToLower(matches[j].Accommodation.Name)
		})
	}
	if q.MaxAccess != catalog.Unknown {
		matches = routing.Within(matches, q.MaxAccess)
	}
	return matches, nil
}

// SessionCount returns the number of open sessions
func (s *PlannerService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// session looks up a session and moves it onto the latest track
func (s *PlannerService) session(ctx context.Context, id string) (*session, *Snapshot, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: itinerary %s", ErrNotFound, id)
	}

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	if sess.it.Track() != snap.Track {
		sess.it.SetTrack(snap.Track)
	}
	return sess, snap, nil
}

func newSession(track *geo.Track, name string) *session {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultItineraryName
	}
	return &session{
		it:   itinerary.New(track, itinerary.WithName(name)),
		name: name,
	}
}

func (s *PlannerService) view(id string, sess *session) ItineraryView {
	s.mu.RLock()
	planID := sess.planID
	s.mu.RUnlock()

	snap := sess.it.Snapshot()
	v := ItineraryView{
		ID:     id,
		Name:   sess.name,
		PlanID: planID,
		Stops:  snap.Stops,
		Totals: snap.Totals,
	}
	if v.Stops == nil {
		v.Stops = []itinerary.Stop{}
	}
	if path, err := geo.NewTrack(snap.Path); err == nil {
		v.Polyline = geo.EncodePolyline(path)
	}
	return v
}
