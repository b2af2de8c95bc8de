package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New(context.Background(), "Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s, err := New(context.Background(), "UTC")
	require.NoError(t, err)

	err = s.AddJob("verify", "every so often", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.ListJobs())
}

func TestAddDailyJob(t *testing.T) {
	s, err := New(context.Background(), "UTC")
	require.NoError(t, err)

	require.NoError(t, s.AddDailyJob("morning", "07:30", func(context.Context) error { return nil }))
	assert.Error(t, s.AddDailyJob("evening", "7pm", func(context.Context) error { return nil }))

	s.Start()
	defer s.Stop()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "morning", jobs[0].Name)
	assert.Equal(t, 7, jobs[0].NextRun.Hour())
	assert.Equal(t, 30, jobs[0].NextRun.Minute())
}

func TestRemoveJob(t *testing.T) {
	s, err := New(context.Background(), "UTC")
	require.NoError(t, err)

	require.NoError(t, s.AddJob("verify", "*/30 * * * *", func(context.Context) error { return nil }))
	s.RemoveJob("verify")
	s.RemoveJob("missing")
	assert.Empty(t, s.ListJobs())
}

func TestRunNow(t *testing.T) {
	s, err := New(context.Background(), "UTC")
	require.NoError(t, err)

	var calls atomic.Int32
	err = s.RunNow("verify", func(ctx context.Context) error {
		calls.Add(1)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	boom := errors.New("boom")
	assert.ErrorIs(t, s.RunNow("verify", func(context.Context) error { return boom }), boom)
}

func TestJobsInheritParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, "UTC")
	require.NoError(t, err)
	cancel()

	err = s.RunNow("verify", func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduledJobRuns(t *testing.T) {
	s, err := New(context.Background(), "UTC")
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("verify", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never ran")
	}
}
