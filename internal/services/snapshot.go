package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dpup/trailplanner/server/internal/cache"
	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
	"github.com/dpup/trailplanner/server/internal/lib/stages"
	"github.com/dpup/trailplanner/server/internal/logging"
)

// SnapshotCacheKey is where the serialized trail snapshot is cached
const SnapshotCacheKey = "snapshot:trail"

// TrackFetcher loads the recorded trail
type TrackFetcher interface {
	FetchTrack(ctx context.Context) (*geo.Track, error)
}

// CatalogFetcher loads the accommodation catalog
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// Snapshot is a read-only view of the trail data shared by all planning sessions
type Snapshot struct {
	Track     *geo.Track
	Catalog   *catalog.Catalog
	Stages    []stages.StageGroup
	UpdatedAt time.Time
	Stale     bool
}

// snapshotRecord is the cached form of a Snapshot
type snapshotRecord struct {
	Track          []geo.TrackPoint         `json:"track"`
	Accommodations []*catalog.Accommodation `json:"accommodations"`
}

// SnapshotService keeps the trail snapshot loaded and cached
type SnapshotService struct {
	trackClient   TrackFetcher
	catalogClient CatalogFetcher
	cache         cache.Backend
	matcher       *routing.Matcher
	ttl           time.Duration
	now           func() time.Time

	mu      sync.Mutex
	current *Snapshot
}

// NewSnapshotService creates a SnapshotService whose cached snapshot is fresh for ttl
func NewSnapshotService(trackClient TrackFetcher, catalogClient CatalogFetcher, backend cache.Backend, matcher *routing.Matcher, ttl time.Duration) *SnapshotService {
	if matcher == nil {
		matcher = routing.NewMatcher()
	}
	return &SnapshotService{
		trackClient:   trackClient,
		catalogClient: catalogClient,
		cache:         backend,
		matcher:       matcher,
		ttl:           ttl,
		now:           time.Now,
	}
}

// Matcher returns the matcher used to classify accommodations
func (s *SnapshotService) Matcher() *routing.Matcher {
	return s.matcher
}

// Snapshot returns the cached snapshot, refreshing it when stale. When a refresh
// fails, stale data is served until it becomes very stale.
func (s *SnapshotService) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found, err := s.cache.GetWithMetadata(ctx, SnapshotCacheKey, nil)
	if err != nil {
		logging.Warnw(ctx, "Snapshot cache read failed", "error", err)
		found = false
	}

	now := s.now()
	if found && !entry.IsStale(now) {
		snap, err := s.fromCache(ctx, entry)
		if err == nil {
			return snap, nil
		}
		logging.Warnw(ctx, "Cached snapshot unusable, refreshing", "error", err)
		found = false
	}

	snap, err := s.refresh(ctx)
	if err != nil {
		if found && !entry.IsVeryStale(now) {
			logging.Warnw(ctx, "Snapshot refresh failed, returning stale data", "error", err, "age", entry.Age(now).String())
			stale, cacheErr := s.fromCache(ctx, entry)
			if cacheErr == nil {
				copied := *stale
				copied.Stale = true
				return &copied, nil
			}
		}
		return nil, fmt.Errorf("failed to refresh trail snapshot: %w", err)
	}
	return snap, nil
}

// Refresh reloads the track and catalog regardless of cache state
func (s *SnapshotService) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

// fromCache reuses the decoded snapshot when the cache still holds the entry it
// was built from; otherwise the entry is decoded again.
func (s *SnapshotService) fromCache(ctx context.Context, entry *cache.CacheEntry) (*Snapshot, error) {
	if s.current != nil && s.current.UpdatedAt.Equal(entry.CreatedAt) {
		return s.current, nil
	}

	var record snapshotRecord
	if _, _, err := s.cache.GetWithMetadata(ctx, SnapshotCacheKey, &record); err != nil {
		return nil, err
	}
	snap, err := buildSnapshot(record, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.current = snap
	return snap, nil
}

func (s *SnapshotService) refresh(ctx context.Context) (*Snapshot, error) {
	logging.Infow(ctx, "Refreshing trail snapshot")

	track, err := s.trackClient.FetchTrack(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track: %w", err)
	}
	cat, err := s.catalogClient.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	accs := cat.All()
	if track.Validate() == nil {
		accs, err = s.matcher.FillAccessibility(ctx, track, accs)
		if err != nil {
			return nil, fmt.Errorf("failed to classify accommodations: %w", err)
		}
	} else {
		logging.Warnw(ctx, "Track cannot support trail-relative legs, using straight-line estimates",
			"points", track.PointCount())
	}

	record := snapshotRecord{Track: track.Points(), Accommodations: accs}
	updatedAt := s.now().UTC()
	snap, err := buildSnapshot(record, updatedAt)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, SnapshotCacheKey, record, s.ttl, "trail"); err != nil {
		logging.Warnw(ctx, "Failed to cache snapshot", "error", err)
	} else if entry, found, err := s.cache.GetWithMetadata(ctx, SnapshotCacheKey, nil); err == nil && found {
		snap.UpdatedAt = entry.CreatedAt
	}

	s.current = snap
	logging.Infow(ctx, "Trail snapshot refreshed",
		"track_points", track.PointCount(),
		"track_km", track.Length(),
		"accommodations", snap.Catalog.Len(),
		"stages", len(snap.Stages))
	return snap, nil
}

func buildSnapshot(record snapshotRecord, updatedAt time.Time) (*Snapshot, error) {
	track, err := geo.NewTrack(record.Track)
	if err != nil {
		return nil, fmt.Errorf("invalid track: %w", err)
	}
	cat, err := catalog.New(record.Accommodations)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &Snapshot{
		Track:     track,
		Catalog:   cat,
		Stages:    stages.GroupByStage(cat.All()),
		UpdatedAt: updatedAt,
	}, nil
}
