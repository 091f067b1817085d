package querycache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status describes the state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// Fetcher loads the value for a key from the backend.
type Fetcher func(ctx context.Context) (any, error)

// Result is delivered to subscribers and returned by blocking gets. On a
// failed refetch Data still carries the last known good value.
type Result struct {
	Data      any
	Err       error
	Status    Status
	FetchedAt time.Time
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	err       error
	status    Status
	fetchedAt time.Time
	stale     bool
	fetcher   Fetcher
	subs      map[int]*Subscription
	nextSubID int
}

// Cache is a keyed cache of fetches. Concurrent gets for the same key share
// one in-flight request; successful results stay fresh for the configured
// window; an expired or invalidated entry keeps serving its last value while
// a background refetch runs. A fetch failure is recorded on the entry without
// clearing previously cached data.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	ttl     time.Duration
	log     *zap.SugaredLogger
	now     func() time.Time
}

// New creates a cache whose successful results stay fresh for ttl.
func New(ttl time.Duration, log *zap.SugaredLogger) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// Get returns the value for key, fetching it when necessary. A fresh cached
// value is returned without network traffic. A stale one is returned
// immediately while a refetch runs in the background, so a view that already
// has data is never blanked. With no cached data the call blocks on the
// (coalesced) fetch.
func (c *Cache) Get(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	canon := key.canonical()

	c.mu.Lock()
	e := c.ensureLocked(canon, key)
	e.fetcher = fetch
	if e.hasData {
		fresh := e.status == StatusSuccess && !e.stale && c.now().Sub(e.fetchedAt) < c.ttl
		data := e.data
		c.mu.Unlock()
		if !fresh {
			go c.refresh(key)
		}
		return data, nil
	}
	c.mu.Unlock()

	res := c.flight(ctx, key, fetch)
	return res.Data, res.Err
}

// Subscribe registers a callback for every completed fetch of key. If the
// entry already holds a result it is delivered immediately. A result that
// lands after Unsubscribe is discarded, never delivered to torn-down state.
func (c *Cache) Subscribe(key Key, fn func(Result)) *Subscription {
	canon := key.canonical()

	c.mu.Lock()
	e := c.ensureLocked(canon, key)
	id := e.nextSubID
	e.nextSubID++
	sub := &Subscription{fn: fn}
	sub.cancel = func() {
		c.mu.Lock()
		delete(e.subs, id)
		c.mu.Unlock()
	}
	e.subs[id] = sub

	var current *Result
	if e.hasData || e.status == StatusError {
		r := c.resultLocked(e)
		current = &r
	}
	c.mu.Unlock()

	if current != nil {
		sub.deliver(*current)
	}
	return sub
}

// Invalidate marks every entry whose key starts with prefix as stale and
// triggers a refetch for entries that have live subscribers. Refetches go
// through the same coalescing as gets, so back-to-back invalidations of the
// same prefix share one request.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	var refetch []Key
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.stale = true
		if len(e.subs) > 0 && e.fetcher != nil {
			refetch = append(refetch, e.key)
		}
	}
	c.mu.Unlock()

	c.log.Debugw("cache invalidated", "prefix", prefix.String(), "refetching", len(refetch))
	for _, k := range refetch {
		go c.refresh(k)
	}
}

// refresh refetches a key with its last known fetcher, detached from any
// caller context.
func (c *Cache) refresh(key Key) {
	c.mu.Lock()
	e := c.entries[key.canonical()]
	var fetch Fetcher
	if e != nil {
		fetch = e.fetcher
	}
	c.mu.Unlock()
	if fetch == nil {
		return
	}
	c.flight(context.Background(), key, fetch)
}

// flight runs the fetch for key, merged with any concurrent fetch for the
// same key. Recording and subscriber notification happen inside the shared
// call, once per flight, no matter how many callers were merged into it.
func (c *Cache) flight(ctx context.Context, key Key, fetch Fetcher) Result {
	canon := key.canonical()
	data, err, _ := c.group.Do(canon, func() (any, error) {
		c.setStatus(canon, StatusLoading)
		fetched, ferr := fetch(ctx)
		c.record(canon, key, fetched, ferr)
		return fetched, ferr
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	res := Result{Data: data, Status: StatusSuccess}
	e := c.entries[canon]
	if e != nil {
		res.FetchedAt = e.fetchedAt
	}
	if err != nil {
		res.Err = err
		res.Status = StatusError
		res.Data = nil
		if e != nil && e.hasData {
			res.Data = e.data
		}
	}
	return res
}

func (c *Cache) setStatus(canon string, status Status) {
	c.mu.Lock()
	if e := c.entries[canon]; e != nil {
		e.status = status
	}
	c.mu.Unlock()
}

// record stores a fetch outcome and notifies subscribers.
func (c *Cache) record(canon string, key Key, data any, err error) {
	c.mu.Lock()
	e := c.ensureLocked(canon, key)
	if err != nil {
		e.err = err
		e.status = StatusError
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.status = StatusSuccess
		e.fetchedAt = c.now()
		e.stale = false
	}
	res := c.resultLocked(e)
	subs := make([]*Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Debugw("fetch failed", "key", key.String(), "error", err)
	}
	for _, s := range subs {
		s.deliver(res)
	}
}

func (c *Cache) ensureLocked(canon string, key Key) *entry {
	e := c.entries[canon]
	if e == nil {
		e = &entry{key: key, subs: make(map[int]*Subscription)}
		c.entries[canon] = e
	}
	return e
}

func (c *Cache) resultLocked(e *entry) Result {
	return Result{Data: e.data, Err: e.err, Status: e.status, FetchedAt: e.fetchedAt}
}

// Subscription is a live interest in one key. Unsubscribe stops delivery
// permanently; a fetch completing afterwards is dropped.
type Subscription struct {
	mu     sync.Mutex
	closed bool
	fn     func(Result)
	cancel func()
}

func (s *Subscription) deliver(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(r)
}

func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}
