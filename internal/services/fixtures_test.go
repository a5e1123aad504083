package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dpup/trailplanner/server/internal/cache"
	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
)

// MockTrackFetcher is a mock implementation of TrackFetcher
type MockTrackFetcher struct {
	mock.Mock
}

func (m *MockTrackFetcher) FetchTrack(ctx context.Context) (*geo.Track, error) {
	args := m.Called(ctx)
	track, _ := args.Get(0).(*geo.Track)
	return track, args.Error(1)
}

// MockCatalogFetcher is a mock implementation of CatalogFetcher
type MockCatalogFetcher struct {
	mock.Mock
}

func (m *MockCatalogFetcher) FetchCatalog(ctx context.Context) (*catalog.Catalog, error) {
	args := m.Called(ctx)
	cat, _ := args.Get(0).(*catalog.Catalog)
	return cat, args.Error(1)
}

// testTrack runs east along the equator in 1 km steps (0.009 degrees) with a
// 100 m climb per step.
func testTrack(t *testing.T) *geo.Track {
	t.Helper()
	points := make([]geo.TrackPoint, 5)
	for i := range points {
		points[i] = geo.TrackPoint{Longitude: float64(i) * 0.009, Latitude: 0, Elevation: 1000 + float64(i)*100}
	}
	track, err := geo.NewTrack(points)
	require.NoError(t, err)
	return track
}

func testAccommodations() []*catalog.Accommodation {
	stage1 := &catalog.Stage{Number: 1, Name: "Les Houches to Les Contamines", StartLocation: "Les Houches", EndLocation: "Les Contamines"}
	stage2 := &catalog.Stage{Number: 2, Name: "Les Contamines to Les Chapieux", StartLocation: "Les Contamines", EndLocation: "Les Chapieux"}
	return []*catalog.Accommodation{
		{ID: "a", Name: "Refuge A", Type: "Refuge", Latitude: 0, Longitude: 0, Stage: stage1, Accessibility: catalog.OnTrail},
		{ID: "b", Name: "Gite B", Type: "Gite", Latitude: 0, Longitude: 0.018, Stage: stage1},
		{ID: "c", Name: "Hotel C", Type: "Hotel", Latitude: 0.02, Longitude: 0.036, Stage: stage2},
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(testAccommodations())
	require.NoError(t, err)
	return cat
}

// newTestSnapshotService returns a service over the memory cache with fetchers
// that succeed until reconfigured.
func newTestSnapshotService(t *testing.T, backend cache.Backend) (*SnapshotService, *MockTrackFetcher, *MockCatalogFetcher) {
	t.Helper()
	tracks := &MockTrackFetcher{}
	catalogs := &MockCatalogFetcher{}
	if backend == nil {
		backend = cache.NewCache()
	}
	svc := NewSnapshotService(tracks, catalogs, backend, routing.NewMatcher(), 10*time.Minute)
	return svc, tracks, catalogs
}

// staticSnapshots serves a fixed snapshot
type staticSnapshots struct {
	snap *Snapshot
	err  error
}

func (s *staticSnapshots) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.snap, s.err
}

func newStaticSnapshots(t *testing.T, track *geo.Track) *staticSnapshots {
	t.Helper()
	snap, err := buildSnapshot(snapshotRecord{Track: track.Points(), Accommodations: testAccommodations()}, time.Now())
	require.NoError(t, err)
	return &staticSnapshots{snap: snap}
}
