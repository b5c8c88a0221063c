// Package querycache caches query results keyed by operation and arguments
// and lets mutations mark them stale through tags.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// EventKind identifies what happened to a cache entry
type EventKind int

const (
	// EventStored fires after a fetch result is stored
	EventStored EventKind = iota
	// EventInvalidated fires when a fresh entry is marked stale
	EventInvalidated
	// EventEvicted fires when the size bound pushes an entry out
	EventEvicted
	// EventCleared fires once when the whole cache is emptied
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventStored:
		return "stored"
	case EventInvalidated:
		return "invalidated"
	case EventEvicted:
		return "evicted"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers
type Event struct {
	Kind      EventKind
	Key       string
	Operation string
	Tags      []Tag
}

// EntryInfo describes a cached entry without exposing its value
type EntryInfo struct {
	Key       string
	Operation string
	Tags      []Tag
	Stale     bool
	FetchedAt time.Time
}

// Stats tracks cache behaviour
type Stats struct {
	Hits          uint64
	Misses        uint64
	Refetches     uint64
	Invalidations uint64
	Evictions     uint64
}

type entry struct {
	key       string
	op        string
	value     any
	tags      []Tag
	fetchedAt time.Time
	stale     bool
	// started is the epoch at which the fetch that produced value began
	started uint64
}

// flight is a fetch shared by every concurrent query for one key
type flight struct {
	tags    []Tag
	started uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of cached results (0 means unbounded).
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n >= 0 {
			c.index = newLRUIndex(n)
		}
	}
}

// WithTTL treats entries older than ttl as stale (0 disables expiry).
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger.With().Str("component", "querycache").Logger()
	}
}

// Cache owns the mapping from query key to entry
type Cache struct {
	mu    sync.Mutex
	index *lruIndex
	ttl   time.Duration
	now   func() time.Time

	// epoch counts invalidations; tagEpochs records the epoch at which each
	// tag was last invalidated so a fetch that raced an invalidation is
	// stored stale. Fetches started before clearedAt are discarded.
	epoch     uint64
	tagEpochs map[Tag]uint64
	clearedAt uint64

	// inflight tracks the fetches queries can still join; invalidating or
	// clearing removes them from group so later queries fetch again
	group    singleflight.Group
	inflight map[string]*flight

	subsMu  sync.RWMutex
	subs    map[int]func(Event)
	nextSub int

	hits          atomic.Uint64
	misses        atomic.Uint64
	refetches     atomic.Uint64
	invalidations atomic.Uint64
	evictions     atomic.Uint64

	logger zerolog.Logger
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		index:     newLRUIndex(0),
		now:       time.Now,
		tagEpochs: make(map[Tag]uint64),
		inflight:  make(map[string]*flight),
		subs:      make(map[int]func(Event)),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for an operation and its arguments
func Key(op string, args any) (string, error) {
	if args == nil {
		return op + "()", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to serialise %s arguments: %w", op, err)
	}
	return op + "(" + string(data) + ")", nil
}

// FetchFunc loads a value from the server
type FetchFunc func(ctx context.Context) (any, error)

// Query returns the cached value for (op, args) unless it is missing or
// stale, in which case fetch is called and its result stored under tags.
// Concurrent queries for the same key share one fetch until an invalidation
// touching tags, or Clear, detaches it. The shared fetch is not cancelled
// when one caller's ctx is; that caller alone returns ctx.Err().
func (c *Cache) Query(ctx context.Context, op string, args any, tags []Tag, fetch FetchFunc) (any, error) {
	key, err := Key(op, args)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, cached := c.index.get(key)
	if cached && c.freshLocked(e) {
		value := e.value
		c.mu.Unlock()
		c.hits.Add(1)
		c.logger.Debug().Str("key", key).Msg("Cache hit")
		return value, nil
	}
	c.mu.Unlock()

	c.misses.Add(1)
	if cached {
		c.refetches.Add(1)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		f := &flight{tags: tags, started: c.epoch}
		c.inflight[key] = f
		c.mu.Unlock()

		v, err := fetch(shared)

		c.mu.Lock()
		if c.inflight[key] == f {
			delete(c.inflight, key)
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("Fetch failed")
			return nil, err
		}
		c.store(key, op, v, tags, f.started)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is the typed form of Cache.Query
func Fetch[T any](ctx context.Context, c *Cache, op string, args any, tags []Tag, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Query(ctx, op, args, tags, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cached value for %s has type %T, want %T", op, v, zero)
	}
	return typed, nil
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.stale {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(e.fetchedAt) < c.ttl
}

func (c *Cache) store(key, op string, value any, tags []Tag, started uint64) {
	e := &entry{
		key:       key,
		op:        op,
		value:     value,
		tags:      append([]Tag(nil), tags...),
		fetchedAt: c.now(),
		started:   started,
	}

	c.mu.Lock()
	if started < c.clearedAt {
		c.mu.Unlock()
		c.logger.Debug().Str("key", key).Msg("Discarded result fetched before clear")
		return
	}
	if existing, ok := c.index.items[key]; ok && existing.Value.(*entry).started > started {
		c.mu.Unlock()
		c.logger.Debug().Str("key", key).Msg("Discarded result older than cached entry")
		return
	}
	for _, t := range e.tags {
		if c.tagEpochs[t] > started {
			e.stale = true
			break
		}
	}
	evicted := c.index.put(e)
	c.mu.Unlock()

	c.logger.Debug().Str("key", key).Bool("stale", e.stale).Msg("Stored query result")
	c.emit(Event{Kind: EventStored, Key: key, Operation: op, Tags: e.tags})
	if evicted != nil {
		c.evictions.Add(1)
		c.emit(Event{Kind: EventEvicted, Key: evicted.key, Operation: evicted.op, Tags: evicted.tags})
	}
}

// Invalidate marks every entry carrying any of tags as stale and returns how
// many fresh entries were affected
func (c *Cache) Invalidate(tags ...Tag) int {
	if len(tags) == 0 {
		return 0
	}
	want := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	var events []Event
	c.mu.Lock()
	c.epoch++
	for t := range want {
		c.tagEpochs[t] = c.epoch
	}
	for key, f := range c.inflight {
		if hasAnyTag(f.tags, want) {
			c.group.Forget(key)
			delete(c.inflight, key)
		}
	}
	c.index.each(func(e *entry) {
		if e.stale || !hasAnyTag(e.tags, want) {
			return
		}
		e.stale = true
		events = append(events, Event{Kind: EventInvalidated, Key: e.key, Operation: e.op, Tags: e.tags})
	})
	c.mu.Unlock()

	c.invalidations.Add(uint64(len(events)))
	c.logger.Debug().Stringer("tags", tagList(tags)).Int("entries", len(events)).Msg("Invalidated tags")
	for _, ev := range events {
		c.emit(ev)
	}
	return len(events)
}

// Peek returns the cached value without fetching
func (c *Cache) Peek(op string, args any) (value any, stale bool, ok bool) {
	key, err := Key(op, args)
	if err != nil {
		return nil, false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	node, exists := c.index.items[key]
	if !exists {
		return nil, false, false
	}
	e := node.Value.(*entry)
	return e.value, !c.freshLocked(e), true
}

// Entries lists cached entries from most to least recently used
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	infos := make([]EntryInfo, 0, c.index.len())
	c.index.each(func(e *entry) {
		infos = append(infos, EntryInfo{
			Key:       e.key,
			Operation: e.op,
			Tags:      e.tags,
			Stale:     !c.freshLocked(e),
			FetchedAt: e.fetchedAt,
		})
	})
	return infos
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.len()
}

// Clear drops every entry. Fetches still running are neither stored nor
// shared with later queries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.index.clear()
	c.epoch++
	c.clearedAt = c.epoch
	for key := range c.inflight {
		c.group.Forget(key)
	}
	clear(c.inflight)
	c.mu.Unlock()
	c.emit(Event{Kind: EventCleared})
}

// Stats returns current cache statistics
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Refetches:     c.refetches.Load(),
		Invalidations: c.invalidations.Load(),
		Evictions:     c.evictions.Load(),
	}
}

// Subscribe registers fn for every event and returns a function that
// removes it. fn runs on the goroutine that caused the event.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

func (c *Cache) emit(ev Event) {
	c.subsMu.RLock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

type tagList []Tag

func (l tagList) String() string {
	s := ""
	for i, t := range l {
		if i > 0 {
			s += ","
		}
		s += t.String()
	}
	return s
}
