package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type expirerFunc func(ctx context.Context, now time.Time) (int, error)

func (f expirerFunc) ExpireDue(ctx context.Context, now time.Time) (int, error) { return f(ctx, now) }

func TestAddExpiryJobRejectsBadSpec(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	err := s.AddExpiryJob("not a cron spec", expirerFunc(func(context.Context, time.Time) (int, error) { return 0, nil }))
	assert.Error(t, err)
}

func TestRunPassesClockAndSkipsOverlap(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	fixed := time.Date(2024, 6, 1, 0, 5, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	job := func(ctx context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.run("slow", job)
		close(done)
	}()
	<-started

	// Second run while the first is active is skipped
	s.run("slow", job)
	close(release)
	<-done
	assert.EqualValues(t, 1, calls.Load())

	var seen time.Time
	require.NoError(t, s.AddExpiryJob("@every 1h", expirerFunc(func(_ context.Context, now time.Time) (int, error) {
		seen = now
		return 2, nil
	})))
	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()
	assert.Equal(t, fixed, seen)
}

func TestRunLogsFailures(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	s.run("broken", func(context.Context) error { return errors.New("boom") })
	// A failed run releases the job for the next tick
	ran := false
	s.run("broken", func(context.Context) error { ran = true; return nil })
	assert.True(t, ran)
}

func TestStartStop(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
