package services

import (
	"context"
	"sync"
	"time"

	"github.com/dpup/trailplanner/server/internal/logging"
)

// SnapshotSource is satisfied by SnapshotService
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// PeriodicRefreshService requests the snapshot on a fixed interval so the cache
// is refreshed in the background instead of on a user request.
type PeriodicRefreshService struct {
	snapshots SnapshotSource
	interval  time.Duration
	timeout   time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

// NewPeriodicRefreshService creates a new periodic refresh service
func NewPeriodicRefreshService(snapshots SnapshotSource, interval time.Duration) *PeriodicRefreshService {
	return &PeriodicRefreshService{
		snapshots: snapshots,
		interval:  interval,
		timeout:   2 * time.Minute,
	}
}

// StartPeriodicRefresh begins refreshing every interval. The first refresh runs
// immediately.
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	logging.Infow(ctx, "Starting periodic snapshot refresh", "interval", p.interval.String())
	go p.refreshLoop(ctx, p.stopChan, p.done)
	return nil
}

// Stop halts the refresh loop and waits for it to exit
func (p *PeriodicRefreshService) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	done := p.done
	p.mu.Unlock()

	<-done
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Infow(ctx, "Periodic refresh stopping due to context cancellation")
			return
		case <-stop:
			logging.Infow(ctx, "Periodic refresh stopping due to stop signal")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// refresh goes through Snapshot so a fresh cache entry is left alone
func (p *PeriodicRefreshService) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap, err := p.snapshots.Snapshot(refreshCtx)
	if err != nil {
		logging.Errorw(ctx, "Periodic refresh failed", "error", err)
		return
	}
	logging.Debugw(ctx, "Periodic refresh completed",
		"updated_at", snap.UpdatedAt,
		"stale", snap.Stale)
}
