package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/metrics"
)

func TestNewReconciler_InvalidSchedule(t *testing.T) {
	_, err := NewReconciler("every now and then", func(context.Context) (int, error) { return 0, nil }, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recount schedule")
}

func TestReconciler_RunOnce(t *testing.T) {
	m := metrics.New(nil)
	var calls atomic.Int32

	r, err := NewReconciler("@every 1h", func(ctx context.Context) (int, error) {
		calls.Add(1)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 3, nil
	}, m, nil)
	require.NoError(t, err)

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(1), calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(m.RecountRuns.WithLabelValues("ok")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RecountCorrected), 0)
}

func TestReconciler_RunOnce_Error(t *testing.T) {
	m := metrics.New(nil)
	boom := errors.New("disk on fire")

	r, err := NewReconciler("@every 1h", func(context.Context) (int, error) { return 0, boom }, m, nil)
	require.NoError(t, err)

	_, err = r.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RecountRuns.WithLabelValues("error")), 0)
}

func TestReconciler_StartStop(t *testing.T) {
	r, err := NewReconciler("@every 1h", func(context.Context) (int, error) { return 0, nil }, nil, nil)
	require.NoError(t, err)

	assert.True(t, r.NextRun().IsZero())

	r.Start()
	r.Start()
	assert.WithinDuration(t, time.Now().Add(time.Hour), r.NextRun(), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Shutdown(ctx))
}

func TestReconciler_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	r, err := NewReconciler("@every 1s", func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	}, nil, nil)
	require.NoError(t, err)

	r.Start()
	defer func() { _ = r.Stop(context.Background()) }()

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
