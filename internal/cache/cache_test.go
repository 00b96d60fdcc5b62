package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medterms/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func countingLoader(calls *int32, value string) Loader[string] {
	return func(ctx context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestCache_FreshHitDoesNotReload(t *testing.T) {
	clock := newManualClock()
	c := New[string](Options{Name: "test", Clock: clock})

	var calls int32
	v, err := c.Get(context.Background(), "terms", countingLoader(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	clock.Advance(9 * time.Minute)
	v, err = c.Get(context.Background(), "terms", countingLoader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_StaleRefetchAndWait(t *testing.T) {
	clock := newManualClock()
	c := New[string](Options{Clock: clock})

	var calls int32
	_, err := c.Get(context.Background(), "terms", countingLoader(&calls, "a"))
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	v, err := c.Get(context.Background(), "terms", countingLoader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_StaleWhileRevalidate(t *testing.T) {
	clock := newManualClock()
	c := New[string](Options{Clock: clock, Policy: PolicyStaleWhileRevalidate})

	var calls int32
	_, err := c.Get(context.Background(), "terms", countingLoader(&calls, "a"))
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	v, err := c.Get(context.Background(), "terms", countingLoader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v, "stale value is served immediately")

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.entries["terms"].value == "b"
	}, time.Second, 5*time.Millisecond)

	v, err = c.Get(context.Background(), "terms", countingLoader(&calls, "c"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_BeyondRetentionReloadsEvenWhenServingStale(t *testing.T) {
	clock := newManualClock()
	c := New[string](Options{Clock: clock, Policy: PolicyStaleWhileRevalidate})

	var calls int32
	_, err := c.Get(context.Background(), "terms", countingLoader(&calls, "a"))
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	v, err := c.Get(context.Background(), "terms", countingLoader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestCache_ConcurrentMissesLoadOnce(t *testing.T) {
	c := New[string](Options{Clock: newManualClock()})

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	loader := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		return "terms", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Get(context.Background(), "terms", loader)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), "terms", loader)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, "terms", results[i])
	}
}

func TestCache_LoadFailureIsNotCached(t *testing.T) {
	c := New[string](Options{Clock: newManualClock()})
	boom := errors.New("network down")

	_, err := c.Get(context.Background(), "terms", func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCacheLoad)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	var calls int32
	v, err := c.Get(context.Background(), "terms", countingLoader(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_FailurePropagatesToAllWaiters(t *testing.T) {
	c := New[string](Options{Clock: newManualClock()})
	boom := errors.New("boom")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var calls int32

	loader := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		return "", boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Get(context.Background(), "terms", loader)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = c.Get(context.Background(), "terms", loader)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrCacheLoad)
	}
	assert.Equal(t, 0, c.Len())
}

func TestCache_Invalidate(t *testing.T) {
	c := New[string](Options{Clock: newManualClock()})

	var calls int32
	_, err := c.Get(context.Background(), "terms", countingLoader(&calls, "a"))
	require.NoError(t, err)

	c.Invalidate("terms")
	assert.Equal(t, 0, c.Len())

	v, err := c.Get(context.Background(), "terms", countingLoader(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_InvalidateDuringLoadDropsResult(t *testing.T) {
	c := New[string](Options{Clock: newManualClock()})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), "terms", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	c.Invalidate("terms")
	close(release)
	<-done

	assert.Equal(t, 0, c.Len())
}

func TestCache_Prune(t *testing.T) {
	clock := newManualClock()
	c := New[string](Options{Clock: clock})

	var calls int32
	_, _ = c.Get(context.Background(), "old", countingLoader(&calls, "a"))
	clock.Advance(20 * time.Minute)
	_, _ = c.Get(context.Background(), "new", countingLoader(&calls, "b"))
	clock.Advance(11 * time.Minute)

	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 1, c.Len())
}

func TestNew_Defaults(t *testing.T) {
	c := New[int](Options{})

	assert.Equal(t, DefaultFreshTTL, c.freshTTL)
	assert.Equal(t, DefaultRetention, c.retention)
	assert.Equal(t, PolicyRefetch, c.policy)
	assert.Equal(t, "default", c.Name())
}

func TestParseStalePolicy(t *testing.T) {
	assert.Equal(t, PolicyStaleWhileRevalidate, ParseStalePolicy("stale"))
	assert.Equal(t, PolicyRefetch, ParseStalePolicy("refetch"))
	assert.Equal(t, PolicyRefetch, ParseStalePolicy(""))
}
