package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	moviesTag = ListTag("Movies")
	movie1Tag = ItemTag("Movies", 1)
	movie2Tag = ItemTag("Movies", 2)
)

func counting(value any, calls *atomic.Int32) FetchFunc {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestKey(t *testing.T) {
	k1, err := Key("listMovies", map[string]any{"title": "x", "limit": 5})
	require.NoError(t, err)
	k2, err := Key("listMovies", map[string]any{"limit": 5, "title": "x"})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := Key("getMovie", nil)
	require.NoError(t, err)
	assert.Equal(t, "getMovie()", k3)

	_, err = Key("bad", make(chan int))
	assert.Error(t, err)
}

func TestTag_String(t *testing.T) {
	assert.Equal(t, "Movies", moviesTag.String())
	assert.Equal(t, "Movies:1", movie1Tag.String())
}

func TestQuery_CachesUntilInvalidated(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		v, err := c.Query(ctx, "listMovies", "a", []Tag{moviesTag}, counting("list", &calls))
		require.NoError(t, err)
		assert.Equal(t, "list", v)
	}
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, 1, c.Invalidate(moviesTag))

	_, err := c.Query(ctx, "listMovies", "a", []Tag{moviesTag}, counting("list", &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(1), stats.Refetches)
	assert.Equal(t, uint64(1), stats.Invalidations)
}

func TestInvalidate_ExactTagMatch(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("list", &calls))
	require.NoError(t, err)
	_, err = c.Query(ctx, "getMovie", 1, []Tag{movie1Tag}, counting("one", &calls))
	require.NoError(t, err)
	_, err = c.Query(ctx, "getMovie", 2, []Tag{movie2Tag}, counting("two", &calls))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Invalidate(moviesTag, movie1Tag))

	_, stale, ok := c.Peek("getMovie", 2)
	require.True(t, ok)
	assert.False(t, stale, "other items stay fresh")

	_, stale, ok = c.Peek("getMovie", 1)
	require.True(t, ok)
	assert.True(t, stale)

	_, stale, ok = c.Peek("listMovies", nil)
	require.True(t, ok)
	assert.True(t, stale)

	// already stale entries are not counted twice
	assert.Equal(t, 0, c.Invalidate(moviesTag))
	assert.Equal(t, 0, c.Invalidate())
}

func TestQuery_FailedRefetchKeepsStale(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("old", &calls))
	require.NoError(t, err)
	c.Invalidate(moviesTag)

	boom := errors.New("boom")
	_, err = c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	v, stale, ok := c.Peek("listMovies", nil)
	require.True(t, ok)
	assert.True(t, stale)
	assert.Equal(t, "old", v)
}

func TestQuery_CoalescesConcurrentFetches(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "list", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "list", v)
	}
}

func TestQuery_FetchRacingInvalidationStoresStale(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, func(context.Context) (any, error) {
		c.Invalidate(moviesTag)
		return "before-mutation", nil
	})
	require.NoError(t, err)

	_, stale, ok := c.Peek("listMovies", nil)
	require.True(t, ok)
	assert.True(t, stale)

	var calls atomic.Int32
	v, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("after", &calls))
	require.NoError(t, err)
	assert.Equal(t, "after", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, "listMovies", nil, nil, counting("v", &calls))
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = c.Query(ctx, "listMovies", nil, nil, counting("v", &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(time.Minute)
	_, err = c.Query(ctx, "listMovies", nil, nil, counting("v", &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_LRUEviction(t *testing.T) {
	c := New(WithMaxEntries(2))
	ctx := context.Background()
	var calls atomic.Int32

	var evicted []string
	unsubscribe := c.Subscribe(func(ev Event) {
		if ev.Kind == EventEvicted {
			evicted = append(evicted, ev.Key)
		}
	})
	defer unsubscribe()

	for _, id := range []int{1, 2} {
		_, err := c.Query(ctx, "getMovie", id, nil, counting(id, &calls))
		require.NoError(t, err)
	}
	// touch 1 so 2 becomes the oldest
	_, err := c.Query(ctx, "getMovie", 1, nil, counting(1, &calls))
	require.NoError(t, err)
	_, err = c.Query(ctx, "getMovie", 3, nil, counting(3, &calls))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"getMovie(2)"}, evicted)
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	_, _, ok := c.Peek("getMovie", 2)
	assert.False(t, ok)
}

func TestFetch_Typed(t *testing.T) {
	c := New()
	ctx := context.Background()

	n, err := Fetch(ctx, c, "count", nil, nil, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Fetch(ctx, c, "count", nil, nil, func(context.Context) (string, error) {
		return "unused", nil
	})
	assert.Error(t, err)
}

func TestSubscribe_Events(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	var kinds []EventKind
	unsubscribe := c.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
	})

	_, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("v", &calls))
	require.NoError(t, err)
	c.Invalidate(moviesTag)
	c.Clear()

	assert.Equal(t, []EventKind{EventStored, EventInvalidated, EventCleared}, kinds)
	assert.Equal(t, 0, c.Len())

	unsubscribe()
	unsubscribe()
	c.Clear()
	assert.Len(t, kinds, 3)
}

func TestEntries(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("v", &calls))
	require.NoError(t, err)
	_, err = c.Query(ctx, "getMovie", 1, []Tag{movie1Tag}, counting("v", &calls))
	require.NoError(t, err)
	c.Invalidate(movie1Tag)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "getMovie(1)", entries[0].Key)
	assert.True(t, entries[0].Stale)
	assert.Equal(t, "listMovies()", entries[1].Key)
	assert.False(t, entries[1].Stale)
}

// blockingFetch returns a fetch that signals started and then waits for
// release before returning value
func blockingFetch(value any, started, release chan struct{}) FetchFunc {
	return func(context.Context) (any, error) {
		close(started)
		<-release
		return value, nil
	}
}

func TestQuery_InvalidationDetachesInFlightFetch(t *testing.T) {
	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	var first any
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, blockingFetch("old", started, release))
		assert.NoError(t, err)
		first = v
	}()
	<-started

	c.Invalidate(moviesTag)

	var calls atomic.Int32
	v, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("new", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", v, "a read after invalidation must not join the earlier fetch")
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	wg.Wait()
	assert.Equal(t, "old", first)

	// the earlier fetch finishing last does not replace the newer result
	cached, stale, ok := c.Peek("listMovies", nil)
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, "new", cached)
}

func TestQuery_UnrelatedInvalidationKeepsSharing(t *testing.T) {
	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Query(ctx, "getMovie", 1, []Tag{movie1Tag}, blockingFetch("one", started, release))
		assert.NoError(t, err)
	}()
	<-started

	c.Invalidate(movie2Tag)

	var calls atomic.Int32
	done := make(chan any)
	go func() {
		v, _ := c.Query(ctx, "getMovie", 1, []Tag{movie1Tag}, counting("again", &calls))
		done <- v
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	assert.Equal(t, "one", <-done)
	wg.Wait()
	assert.Equal(t, int32(0), calls.Load())
}

func TestClear_DiscardsInFlightFetch(t *testing.T) {
	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, blockingFetch("previous session", started, release))
		assert.NoError(t, err)
		assert.Equal(t, "previous session", v)
	}()
	<-started

	c.Clear()
	close(release)
	wg.Wait()

	_, _, ok := c.Peek("listMovies", nil)
	assert.False(t, ok, "a fetch started before Clear must not be cached")

	var calls atomic.Int32
	v, err := c.Query(ctx, "listMovies", nil, []Tag{moviesTag}, counting("current session", &calls))
	require.NoError(t, err)
	assert.Equal(t, "current session", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_CallerCancelDoesNotFailOtherWaiters(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})

	var fetchErr atomic.Value
	fetch := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
		}
		return "list", nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error)
	go func() {
		_, err := c.Query(leaderCtx, "listMovies", nil, []Tag{moviesTag}, fetch)
		leaderDone <- err
	}()
	<-started

	followerDone := make(chan any)
	go func() {
		v, err := c.Query(context.Background(), "listMovies", nil, []Tag{moviesTag}, fetch)
		assert.NoError(t, err)
		followerDone <- v
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderDone, context.Canceled)

	close(release)
	assert.Equal(t, "list", <-followerDone)
	assert.Nil(t, fetchErr.Load(), "shared fetch must not see the leader's cancellation")

	_, stale, ok := c.Peek("listMovies", nil)
	require.True(t, ok)
	assert.False(t, stale)
}
