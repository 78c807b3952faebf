package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testJob struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

func (testJob) JobName() string { return "test_job" }

func (testJob) Policy() Policy {
	return Policy{
		MaxAttempts:   3,
		MaxExceptions: 2,
		Timeout:       time.Second,
		Backoff:       []time.Duration{10 * time.Second, 20 * time.Second},
		RetryFor:      time.Hour,
	}
}

func (j testJob) UniqueKey() string { return j.Key }

var testTarget = Target{Connection: "memory", Queue: "indexation"}

func TestPolicy_BackoffFor(t *testing.T) {
	p := Policy{Backoff: []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}}

	assert.Equal(t, time.Duration(0), p.BackoffFor(0))
	assert.Equal(t, 30*time.Second, p.BackoffFor(1))
	assert.Equal(t, 120*time.Second, p.BackoffFor(3))
	assert.Equal(t, 120*time.Second, p.BackoffFor(9))
	assert.Equal(t, time.Duration(0), Policy{}.BackoffFor(2))
}

func TestErrors_Classification(t *testing.T) {
	base := errors.New("boom")

	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Fatal(nil))
	assert.True(t, IsFatal(Fatal(base)))
	assert.False(t, IsFatal(Retryable(base)))
	assert.False(t, IsFatal(base))
	assert.ErrorIs(t, Fatal(base), base)
	assert.ErrorIs(t, Retryable(base), base)

	assert.True(t, isException(&PanicError{Value: "x"}))
	assert.True(t, isException(ErrTaskTimeout))
	assert.False(t, isException(base))
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register("a", HandlerFunc(func(context.Context, *Task) error { return nil }))

	_, err := r.Lookup("a")
	require.NoError(t, err)

	_, err = r.Lookup("b")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestDispatcher_DropsDuplicateWhilePending(t *testing.T) {
	clk := newClock()
	backend := NewMemoryBackend(clk.Now)
	d := NewDispatcher(backend, WithDispatchClock(clk.Now))
	ctx := context.Background()

	first, queued, err := d.Dispatch(ctx, testTarget, testJob{Key: "service_offers:o1"})
	require.NoError(t, err)
	require.True(t, queued)
	assert.Equal(t, "test_job:service_offers:o1", first.UniqueKey)
	assert.Equal(t, clk.Now().Add(time.Hour), first.RetryUntil)

	_, queued, err = d.Dispatch(ctx, testTarget, testJob{Key: "service_offers:o1", Value: 2})
	require.NoError(t, err)
	assert.False(t, queued)

	_, queued, err = d.Dispatch(ctx, testTarget, testJob{Key: "service_offers:o2"})
	require.NoError(t, err)
	assert.True(t, queued)

	size, err := backend.Size(ctx, testTarget)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}

func TestDispatcher_LockReleasedAfterSuccess(t *testing.T) {
	clk := newClock()
	backend := NewMemoryBackend(clk.Now)
	d := NewDispatcher(backend, WithDispatchClock(clk.Now))
	ctx := context.Background()

	registry := NewRegistry()
	registry.Register("test_job", HandlerFunc(func(context.Context, *Task) error { return nil }))
	w := NewWorker(1, backend, registry, []Target{testTarget}, WithClock(clk.Now))

	_, queued, err := d.Dispatch(ctx, testTarget, testJob{Key: "k"})
	require.NoError(t, err)
	require.True(t, queued)
	assert.True(t, backend.Locked("test_job:k"))

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.False(t, backend.Locked("test_job:k"))

	_, queued, err = d.Dispatch(ctx, testTarget, testJob{Key: "k"})
	require.NoError(t, err)
	assert.True(t, queued)
}

func TestDispatcher_NonUniqueJobs(t *testing.T) {
	backend := NewMemoryBackend(nil)
	d := NewDispatcher(backend)

	for i := 0; i < 3; i++ {
		task, queued, err := d.Dispatch(context.Background(), testTarget, testJob{})
		require.NoError(t, err)
		require.True(t, queued)
		assert.Empty(t, task.UniqueKey)
	}
	size, _ := backend.Size(context.Background(), testTarget)
	assert.Equal(t, int64(3), size)
}

func TestDispatcher_DelayedTaskHiddenUntilDue(t *testing.T) {
	clk := newClock()
	backend := NewMemoryBackend(clk.Now)
	d := NewDispatcher(backend, WithDispatchClock(clk.Now))
	ctx := context.Background()

	_, _, err := d.DispatchAfter(ctx, testTarget, testJob{}, time.Minute)
	require.NoError(t, err)

	task, err := backend.Pop(ctx, testTarget)
	require.NoError(t, err)
	assert.Nil(t, task)

	clk.Advance(time.Minute)
	task, err = backend.Pop(ctx, testTarget)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "test_job", task.Job)
}

func TestMemoryBackend_UniqueLockExpires(t *testing.T) {
	clk := newClock()
	backend := NewMemoryBackend(clk.Now)
	ctx := context.Background()

	ok, _ := backend.AcquireUnique(ctx, "k", "a", time.Minute)
	assert.True(t, ok)
	ok, _ = backend.AcquireUnique(ctx, "k", "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, backend.ReleaseUnique(ctx, "k", "b"))
	assert.True(t, backend.Locked("k"), "only the owner may release")

	clk.Advance(time.Minute)
	ok, _ = backend.AcquireUnique(ctx, "k", "b", time.Minute)
	assert.True(t, ok)
}

func TestMemoryBackend_Dead(t *testing.T) {
	backend := NewMemoryBackend(nil)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, backend.Bury(ctx, &FailedTask{Task: Task{ID: id, Connection: "memory", Queue: "indexation"}, Error: "x"}))
	}

	dead, err := backend.Dead(ctx, testTarget, 2)
	require.NoError(t, err)
	require.Len(t, dead, 2)
	assert.Equal(t, "t3", dead[0].Task.ID)

	n, _ := backend.DeadSize(ctx, testTarget)
	assert.Equal(t, int64(3), n)

	stats, err := CollectStats(ctx, backend, []Target{testTarget})
	require.NoError(t, err)
	assert.Equal(t, []Stats{{Connection: "memory", Queue: "indexation", Ready: 0, Dead: 3}}, stats)
}

func TestPolicy_LockTTL(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   time.Duration
	}{
		{name: "explicit unique window", policy: Policy{UniqueFor: 10 * time.Minute, RetryFor: 2 * time.Hour}, want: 10 * time.Minute},
		{name: "retry horizon plus one run", policy: Policy{RetryFor: 2 * time.Hour, Timeout: 120 * time.Second}, want: 2*time.Hour + 120*time.Second},
		{name: "no horizon", policy: Policy{Timeout: time.Minute}, want: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.lockTTL())
		})
	}
}
