package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/itinerary"
	"github.com/dpup/trailplanner/server/internal/store"
)

func newTestPlanner(t *testing.T, plans store.PlanStore) (*PlannerService, *staticSnapshots) {
	t.Helper()
	snaps := newStaticSnapshots(t, testTrack(t))
	return NewPlannerService(snaps, nil, plans), snaps
}

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stopIDs(v ItineraryView) []string {
	ids := make([]string, len(v.Stops))
	for i, stop := range v.Stops {
		ids[i] = stop.Accommodation.ID
	}
	return ids
}

func TestPlannerService_CreateEmpty(t *testing.T) {
	planner, _ := newTestPlanner(t, nil)

	v, err := planner.Create(context.Background(), "  ")
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Trail Itinerary", v.Name)
	assert.NotNil(t, v.Stops)
	assert.Empty(t, v.Stops)
	assert.Equal(t, 0, v.Totals.Days)
	assert.Equal(t, 1, planner.SessionCount())
}

func TestPlannerService_AppendComputesTrailLegs(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "TMB")
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		v, err = planner.Append(ctx, v.ID, id)
		require.NoError(t, err)
	}

	require.Len(t, v.Stops, 3)
	assert.Equal(t, []string{"a", "b", "c"}, stopIDs(v))
	assert.Equal(t, itinerary.PrecisionStart, v.Stops[0].Leg.Precision)

	second := v.Stops[1].Leg
	assert.Equal(t, itinerary.PrecisionTrailRelative, second.Precision)
	assert.InDelta(t, 2.0, second.DistanceKm, 0.01)
	assert.InDelta(t, 200, second.ElevationGainM, 1e-9)
	assert.Zero(t, second.ElevationLossM)

	assert.Equal(t, 2, v.Totals.Days)
	assert.InDelta(t, 4.0, v.Totals.DistanceKm, 0.02)
	assert.InDelta(t, 400, v.Totals.GainM, 1e-9)
	assert.NotEmpty(t, v.Polyline)
}

func TestPlannerService_NotFound(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)

	_, err := planner.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	v, err := planner.Create(ctx, "")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(planner.Delete(ctx, "missing"), ErrNotFound))
}

func TestPlannerService_RemoveMoveClear(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "")
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		v, err = planner.Append(ctx, v.ID, id)
		require.NoError(t, err)
	}

	last := v.Stops[2].ID
	v, err = planner.Move(ctx, v.ID, last, itinerary.Up)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, stopIDs(v))

	v, err = planner.Move(ctx, v.ID, v.Stops[0].ID, itinerary.Up)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, stopIDs(v), "moving the first stop up is ignored")

	v, err = planner.Remove(ctx, v.ID, v.Stops[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stopIDs(v))
	assert.Equal(t, 2, v.Stops[1].Position)

	v, err = planner.Remove(ctx, v.ID, "unknown-waypoint")
	require.NoError(t, err)
	assert.Len(t, v.Stops, 2)

	v, err = planner.Clear(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Stops)
	assert.Empty(t, v.Polyline)
}

func TestPlannerService_FollowsTrackChanges(t *testing.T) {
	ctx := context.Background()
	planner, snaps := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "a")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "b")
	require.NoError(t, err)

	noTrack, err := buildSnapshot(snapshotRecord{Accommodations: testAccommodations()}, time.Now())
	require.NoError(t, err)
	snaps.snap = noTrack

	v, err = planner.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, itinerary.PrecisionStraightLine, v.Stops[1].Leg.Precision)
	assert.InDelta(t, 2.0, v.Stops[1].Leg.DistanceKm, 0.01)
}

func TestPlannerService_SnapshotErrorPropagates(t *testing.T) {
	ctx := context.Background()
	planner, snaps := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "")
	require.NoError(t, err)

	snaps.err = errors.New("no trail data")
	_, err = planner.Get(ctx, v.ID)
	assert.EqualError(t, err, "no trail data")
}

func TestPlannerService_Export(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "Tour du Mont Blanc")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "a")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "b")
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, planner.Export(ctx, v.ID, itinerary.FormatText, &text))
	assert.Contains(t, text.String(), "Tour du Mont Blanc\n")
	assert.Contains(t, text.String(), "Day 1: Refuge A")
	assert.Contains(t, text.String(), "Day 2: Gite B")

	var kml bytes.Buffer
	require.NoError(t, planner.Export(ctx, v.ID, itinerary.FormatKML, &kml))
	assert.Contains(t, kml.String(), "<kml")

	err = planner.Export(ctx, "missing", itinerary.FormatText, &bytes.Buffer{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlannerService_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, openTestStore(t))
	v, err := planner.Create(ctx, "Weekend")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "c")
	require.NoError(t, err)
	_, err = planner.Append(ctx, v.ID, "a")
	require.NoError(t, err)

	plan, err := planner.Save(ctx, v.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "Weekend", plan.Name)
	assert.Equal(t, []string{"c", "a"}, plan.AccommodationIDs)

	_, err = planner.Append(ctx, v.ID, "b")
	require.NoError(t, err)
	again, err := planner.Save(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, again.ID, "saving again updates the same plan")
	assert.Equal(t, []string{"c", "a", "b"}, again.AccommodationIDs)

	loaded, err := planner.Load(ctx, plan.ID)
	require.NoError(t, err)
	assert.NotEqual(t, v.ID, loaded.ID)
	assert.Equal(t, plan.ID, loaded.PlanID)
	assert.Equal(t, "Weekend", loaded.Name)
	assert.Equal(t, []string{"c", "a", "b"}, stopIDs(loaded))

	plans, err := planner.Plans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	require.NoError(t, planner.DeletePlan(ctx, plan.ID))
	_, err = planner.Load(ctx, plan.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(planner.DeletePlan(ctx, plan.ID), ErrNotFound))
}

func TestPlannerService_LoadSkipsMissingAccommodations(t *testing.T) {
	ctx := context.Background()
	plans := openTestStore(t)
	_, err := plans.Save(ctx, store.Plan{ID: "plan-1", Name: "Old plan", AccommodationIDs: []string{"a", "closed-hut", "c"}})
	require.NoError(t, err)

	planner, _ := newTestPlanner(t, plans)
	v, err := planner.Load(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, stopIDs(v))
}

func TestPlannerService_StoreDisabled(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "")
	require.NoError(t, err)

	_, err = planner.Save(ctx, v.ID)
	assert.ErrorIs(t, err, ErrStoreDisabled)
	_, err = planner.Load(ctx, "plan-1")
	assert.ErrorIs(t, err, ErrStoreDisabled)
	_, err = planner.Plans(ctx)
	assert.ErrorIs(t, err, ErrStoreDisabled)
}

func TestPlannerService_Accommodations(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)

	byName, err := planner.Accommodations(ctx, AccommodationQuery{})
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, "Gite B", byName[0].Accommodation.Name)
	assert.Equal(t, "Hotel C", byName[1].Accommodation.Name)
	assert.Equal(t, "Refuge A", byName[2].Accommodation.Name)

	alongTrail, err := planner.Accommodations(ctx, AccommodationQuery{TrailOrder: true})
	require.NoError(t, err)
	require.Len(t, alongTrail, 3)
	assert.Equal(t, "a", alongTrail[0].Accommodation.ID)
	assert.Equal(t, "b", alongTrail[1].Accommodation.ID)
	assert.Equal(t, "c", alongTrail[2].Accommodation.ID)
	assert.InDelta(t, 2.0, alongTrail[1].TrailKm, 0.01)
	assert.Equal(t, catalog.OffTrail, alongTrail[2].Classification)

	onTrail, err := planner.Accommodations(ctx, AccommodationQuery{TrailOrder: true, MaxAccess: catalog.OnTrail})
	require.NoError(t, err)
	assert.Len(t, onTrail, 2)

	stage2, err := planner.Accommodations(ctx, AccommodationQuery{Stage: 2})
	require.NoError(t, err)
	require.Len(t, stage2, 1)
	assert.Equal(t, "c", stage2[0].Accommodation.ID)

	_, err = planner.Accommodations(ctx, AccommodationQuery{Stage: 9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlannerService_AccommodationsWithoutTrack(t *testing.T) {
	planner := NewPlannerService(newStaticSnapshots(t, nil), nil, nil)

	matches, err := planner.Accommodations(context.Background(), AccommodationQuery{TrailOrder: true})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, -1, matches[0].TrackIndex)
	assert.Equal(t, catalog.OnTrail, matches[0].Classification)
}

func TestPlannerService_StageGroups(t *testing.T) {
	planner, _ := newTestPlanner(t, nil)
	groups, err := planner.StageGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Les Contamines to Les Chapieux", groups[1].StageName)
}

func TestPlannerService_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	planner, _ := newTestPlanner(t, nil)
	v, err := planner.Create(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := planner.Append(ctx, v.ID, "b")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err = planner.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, v.Stops, 20)
	assert.Equal(t, 20, v.Totals.Days+1)
}
