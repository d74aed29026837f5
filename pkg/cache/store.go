package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/rs/zerolog"
)

// ErrPopulatePanic is returned to every waiter when a populate function panics.
var ErrPopulatePanic = errors.New("cache population panicked")

// PopulateFunc produces a fresh payload for a key. The context it receives is
// not cancelled when the caller that started the population goes away.
type PopulateFunc func(ctx context.Context) ([]byte, error)

// Config holds store configuration.
type Config struct {
	// MaxEntries bounds the number of entries; the least recently populated
	// entry is evicted first. 0 means unbounded.
	MaxEntries int

	// Now is the clock used for freshness (default: time.Now)
	Now func() time.Time
}

// DefaultConfig returns an unbounded store using the wall clock.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 0,
		Now:        time.Now,
	}
}

// call is one in-flight population. val and err are written once before done
// is closed and only read after it.
type call struct {
	done chan struct{}
	val  []byte
	err  error
}

// Store is an in-memory TTL cache with single-flight population.
//
// Reads of fresh entries are lock-free. At most one population per key runs
// at a time: callers that find one in progress wait for its outcome instead of
// starting another. Returned payloads are shared and must not be modified.
type Store struct {
	entries  sync.Map // resource.Key -> *Entry
	inflight sync.Map // resource.Key -> *call
	size     atomic.Int64

	now        func() time.Time
	maxEntries int

	// guards order and elems; only used when maxEntries > 0
	orderMu sync.Mutex
	order   *list.List
	elems   map[resource.Key]*list.Element

	logger zerolog.Logger
}

// NewStore creates a store.
func NewStore(cfg Config, logger zerolog.Logger) *Store {
	s := &Store{
		now:        cfg.Now,
		maxEntries: cfg.MaxEntries,
		logger:     logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxEntries > 0 {
		s.order = list.New()
		s.elems = make(map[resource.Key]*list.Element)
	}
	return s
}

// Get returns the cached payload if a fresh entry exists.
// Expired entries are left in place until the next population overwrites them.
func (s *Store) Get(key resource.Key) ([]byte, bool) {
	v, ok := s.lookup(key)
	if !ok {
		CacheMisses.Inc()
		return nil, false
	}
	CacheHits.Inc()
	return v, true
}

func (s *Store) lookup(key resource.Key) ([]byte, bool) {
	v, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*Entry)
	now := s.now()
	if !e.IsFresh(now) {
		return nil, false
	}
	s.logger.Debug().
		Str("key", key.String()).
		Dur("remaining", e.Remaining(now)).
		Msg("Cache hit")
	return e.Value, true
}

// GetOrPopulate returns the fresh cached payload for key, or runs populate to
// produce one. Concurrent callers for the same key share a single populate
// invocation and all receive its outcome, success or failure.
//
// The population is detached from ctx: if ctx is done the caller stops
// waiting and gets ctx.Err(), while the population keeps running for the
// other waiters and still stores its result. Failed populations are never
// cached. Nothing is stored when policy.TTL is zero.
func (s *Store) GetOrPopulate(ctx context.Context, key resource.Key, policy Policy, populate PopulateFunc) ([]byte, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	c := &call{done: make(chan struct{})}
	if existing, loaded := s.inflight.LoadOrStore(key, c); loaded {
		Coalesced.Inc()
		s.logger.Debug().Str("key", key.String()).Msg("Awaiting in-flight population")
		return wait(ctx, existing.(*call))
	}

	// A population may have completed between the miss above and our
	// registration; serve its entry instead of fetching again.
	if v, ok := s.lookup(key); ok {
		c.val = v
		s.finish(key, c)
		return v, nil
	}

	go s.run(context.WithoutCancel(ctx), key, policy, c, populate)

	return wait(ctx, c)
}

// run executes one population and publishes its outcome.
func (s *Store) run(ctx context.Context, key resource.Key, policy Policy, c *call, populate PopulateFunc) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.val = nil
			c.err = fmt.Errorf("%w: %v", ErrPopulatePanic, r)
			Populations.WithLabelValues("panic").Inc()
			s.logger.Error().
				Str("key", key.String()).
				Interface("panic", r).
				Msg("Cache population panicked")
		}
		s.finish(key, c)
	}()

	c.val, c.err = populate(ctx)
	if c.err != nil {
		Populations.WithLabelValues("error").Inc()
		s.logger.Debug().
			Str("key", key.String()).
			Err(c.err).
			Dur("duration", time.Since(start)).
			Msg("Cache population failed")
		return
	}

	Populations.WithLabelValues("success").Inc()
	if policy.Cacheable() {
		s.put(key, c.val, policy.TTL)
		s.logger.Debug().
			Str("key", key.String()).
			Dur("ttl", policy.TTL).
			Dur("duration", time.Since(start)).
			Msg("Cached population result")
	}
}

// finish removes the registration and releases every waiter. The entry (if
// any) is written before this, so a caller arriving after the registration is
// gone finds it fresh.
func (s *Store) finish(key resource.Key, c *call) {
	s.inflight.CompareAndDelete(key, c)
	close(c.done)
}

func wait(ctx context.Context, c *call) ([]byte, error) {
	select {
	case <-c.done:
		return c.val, c.err
	default:
	}

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// put stores a new entry, replacing any previous one wholesale.
func (s *Store) put(key resource.Key, value []byte, ttl time.Duration) {
	e := &Entry{
		Value:    value,
		StoredAt: s.now(),
		TTL:      ttl,
	}

	if s.maxEntries <= 0 {
		if _, loaded := s.entries.Swap(key, e); !loaded {
			s.size.Add(1)
			Entries.Inc()
		}
		return
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	s.entries.Store(key, e)
	if el, ok := s.elems[key]; ok {
		s.order.MoveToFront(el)
	} else {
		s.elems[key] = s.order.PushFront(key)
		s.size.Add(1)
		Entries.Inc()
	}

	for s.order.Len() > s.maxEntries {
		oldest := s.order.Back()
		evicted := oldest.Value.(resource.Key)
		s.order.Remove(oldest)
		delete(s.elems, evicted)
		s.entries.Delete(evicted)
		s.size.Add(-1)
		Entries.Dec()
		Evictions.Inc()
		s.logger.Debug().Str("key", evicted.String()).Msg("Evicted least recently populated entry")
	}
}

// Len returns the number of stored entries, fresh or expired.
func (s *Store) Len() int {
	return int(s.size.Load())
}

// Purge drops every entry. In-flight populations are unaffected and will
// store their results when they complete.
func (s *Store) Purge() {
	if s.maxEntries > 0 {
		s.orderMu.Lock()
		defer s.orderMu.Unlock()
		s.order.Init()
		clear(s.elems)
	}

	s.entries.Range(func(k, _ any) bool {
		if _, loaded := s.entries.LoadAndDelete(k); loaded {
			s.size.Add(-1)
			Entries.Dec()
		}
		return true
	})
}
