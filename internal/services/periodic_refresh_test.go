package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSnapshots counts Snapshot calls
type countingSnapshots struct {
	calls atomic.Int32
	err   error
}

func (c *countingSnapshots) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &Snapshot{UpdatedAt: time.Now()}, nil
}

func TestPeriodicRefreshService_RefreshesImmediatelyAndOnTick(t *testing.T) {
	source := &countingSnapshots{}
	svc := NewPeriodicRefreshService(source, 10*time.Millisecond)

	require.NoError(t, svc.StartPeriodicRefresh(context.Background()))
	assert.True(t, svc.IsRunning())

	assert.Eventually(t, func() bool { return source.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())

	stopped := source.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, source.calls.Load(), "no refresh after Stop")
}

func TestPeriodicRefreshService_StartIsIdempotent(t *testing.T) {
	source := &countingSnapshots{}
	svc := NewPeriodicRefreshService(source, time.Hour)

	require.NoError(t, svc.StartPeriodicRefresh(context.Background()))
	require.NoError(t, svc.StartPeriodicRefresh(context.Background()))
	assert.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	svc.Stop()
	svc.Stop()
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestPeriodicRefreshService_StopsOnContextCancel(t *testing.T) {
	source := &countingSnapshots{err: errors.New("source down")}
	svc := NewPeriodicRefreshService(source, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.StartPeriodicRefresh(ctx))
	assert.Eventually(t, func() bool { return source.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	// Stop still returns once the loop has exited on its own
	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
