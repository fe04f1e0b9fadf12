package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitbrand/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduler_RunsJobAndStops(t *testing.T) {
	s := New(logging.Discard())
	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	assert.True(t, s.IsRunning())

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(logging.Discard())
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	require.NoError(t, s.AddJob("slow", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	assert.True(t, cancelled.Load())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(logging.Discard())
	assert.Error(t, s.AddJob("bad", "every so often", func(context.Context) error { return nil }))
	assert.False(t, s.IsRunning())
	s.Stop()
}
