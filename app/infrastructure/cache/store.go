package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultStaleAfter is the freshness window applied when a key has no
	// explicit override.
	DefaultStaleAfter = time.Minute

	// DefaultGCGrace is how long an entry survives with no subscribers
	// before it is collected.
	DefaultGCGrace = 30 * time.Second

	// DefaultFetchTimeout bounds every background fetch. A hung request
	// surfaces as an error instead of leaving subscribers loading forever.
	DefaultFetchTimeout = 20 * time.Second
)

var ErrNoLoader = errors.New("cache: no loader registered for key")

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is an immutable snapshot of one cache slot. During revalidation the
// status is StatusLoading while Data still holds the previous value, which
// is what lets views render stale data instead of a blank screen.
type Entry struct {
	Key        Key
	Data       any
	Err        error
	Status     Status
	FetchedAt  time.Time
	StaleAfter time.Duration
}

// Fresh reports whether the entry holds data inside its freshness window.
func (e Entry) Fresh(now time.Time) bool {
	if e.Status != StatusSuccess || e.FetchedAt.IsZero() {
		return false
	}
	return now.Before(e.FetchedAt.Add(e.StaleAfter))
}

// Loader fetches the value for a key from the backend.
type Loader func(ctx context.Context) (any, error)

// Subscriber receives an entry snapshot after every state change.
// Callbacks run synchronously and must not block or call back into the
// store.
type Subscriber func(Entry)

type Options struct {
	DefaultStaleAfter time.Duration
	GCGrace           time.Duration
	FetchTimeout      time.Duration
}

type entryState struct {
	entry      Entry
	loader     Loader
	staleAfter time.Duration
	subs       map[int]Subscriber
	nextSubID  int
	gcTimer    *time.Timer
	gen        uint64
}

// Store is the keyed query cache: stale-while-revalidate reads, in-flight
// de-duplication, subscriptions, and pattern invalidation.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entryState
	sf      singleflight.Group
	opts    Options
	closed  bool
}

func NewStore(opts Options) *Store {
	if opts.DefaultStaleAfter <= 0 {
		opts.DefaultStaleAfter = DefaultStaleAfter
	}
	if opts.GCGrace <= 0 {
		opts.GCGrace = DefaultGCGrace
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &Store{
		entries: make(map[Key]*entryState),
		opts:    opts,
	}
}

func (s *Store) ensureLocked(key Key) *entryState {
	st, ok := s.entries[key]
	if !ok {
		st = &entryState{
			entry: Entry{
				Key:        key,
				Status:     StatusIdle,
				StaleAfter: s.opts.DefaultStaleAfter,
			},
			staleAfter: s.opts.DefaultStaleAfter,
			subs:       make(map[int]Subscriber),
		}
		s.entries[key] = st
	}
	return st
}

// Register attaches the loader used to (re)fetch the key. Registering an
// already-known key replaces the loader and is otherwise a no-op.
func (s *Store) Register(key Key, loader Loader) {
	s.RegisterTTL(key, loader, 0)
}

// RegisterTTL registers a loader with a per-key freshness window.
func (s *Store) RegisterTTL(key Key, loader Loader, staleAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(key)
	st.loader = loader
	if staleAfter > 0 {
		st.staleAfter = staleAfter
		st.entry.StaleAfter = staleAfter
	}
}

// Get returns the current entry synchronously. An absent or stale entry
// with a registered loader kicks off a background fetch; the snapshot is
// returned immediately either way.
func (s *Store) Get(ctx context.Context, key Key) Entry {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{Key: key, Status: StatusIdle}
	}
	st := s.ensureLocked(key)
	snap, notify := s.maybeStartFetchLocked(key, st)
	s.mu.Unlock()
	s.notify(notify, snap)
	return snap
}

// maybeStartFetchLocked transitions the entry to loading and spawns the
// fetch goroutine when a revalidation is due. Returns the snapshot to hand
// to the caller plus subscribers to notify of the loading transition.
func (s *Store) maybeStartFetchLocked(key Key, st *entryState) (Entry, []Subscriber) {
	now := time.Now()
	needsFetch := st.loader != nil &&
		st.entry.Status != StatusLoading &&
		(st.entry.Status == StatusIdle || st.entry.Status == StatusError || !st.entry.Fresh(now))
	if !needsFetch {
		return st.entry, nil
	}
	st.entry.Status = StatusLoading
	st.gen++
	gen := st.gen
	loader := st.loader
	go s.runFetch(key, gen, loader)
	return st.entry, subscriberListLocked(st)
}

func (s *Store) runFetch(key Key, gen uint64, loader Loader) {
	data, err, _ := s.sf.Do(key.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
		defer cancel()
		return loader(ctx)
	})
	s.applyResult(key, gen, data, err)
}

// applyResult writes a fetch outcome back to the entry. A failed fetch
// keeps the previous data visible next to the error. Results from a
// superseded fetch generation are dropped.
func (s *Store) applyResult(key Key, gen uint64, data any, err error) {
	s.mu.Lock()
	st, ok := s.entries[key]
	if !ok || s.closed || st.gen != gen || st.entry.Status != StatusLoading {
		s.mu.Unlock()
		return
	}
	if err != nil {
		st.entry.Status = StatusError
		st.entry.Err = err
	} else {
		st.entry.Status = StatusSuccess
		st.entry.Data = data
		st.entry.Err = nil
		st.entry.FetchedAt = time.Now()
	}
	snap := st.entry
	notify := subscriberListLocked(st)
	s.mu.Unlock()
	s.notify(notify, snap)
}

// Fetch blocks until the key holds a fresh value (or the fetch fails) and
// returns the resulting entry. Concurrent Fetch and Get calls share the
// single in-flight request.
func (s *Store) Fetch(ctx context.Context, key Key) (Entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Entry{Key: key, Status: StatusIdle}, errors.New("cache: store closed")
	}
	st := s.ensureLocked(key)
	if st.entry.Fresh(time.Now()) {
		snap := st.entry
		s.mu.Unlock()
		return snap, nil
	}
	loader := st.loader
	if loader == nil {
		snap := st.entry
		s.mu.Unlock()
		return snap, ErrNoLoader
	}
	if st.entry.Status != StatusLoading {
		st.entry.Status = StatusLoading
		st.gen++
	}
	gen := st.gen
	notify := subscriberListLocked(st)
	loadingSnap := st.entry
	s.mu.Unlock()
	s.notify(notify, loadingSnap)

	data, err, _ := s.sf.Do(key.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
		return loader(fetchCtx)
	})
	s.applyResult(key, gen, data, err)
	if err != nil {
		snap, _ := s.Peek(key)
		return snap, err
	}
	snap, _ := s.Peek(key)
	return snap, nil
}

// Subscribe binds fn to the key until the returned function is called.
// Unsubscribing never cancels an in-flight fetch; the result still lands in
// the cache for other subscribers and future reads.
func (s *Store) Subscribe(key Key, fn Subscriber) func() {
	s.mu.Lock()
	st := s.ensureLocked(key)
	if st.gcTimer != nil {
		st.gcTimer.Stop()
		st.gcTimer = nil
	}
	id := st.nextSubID
	st.nextSubID++
	st.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.unsubscribe(key, id)
		})
	}
}

func (s *Store) unsubscribe(key Key, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[key]
	if !ok {
		return
	}
	delete(st.subs, id)
	if len(st.subs) == 0 && !s.closed {
		s.scheduleGCLocked(key, st)
	}
}

func (s *Store) scheduleGCLocked(key Key, st *entryState) {
	if st.gcTimer != nil {
		st.gcTimer.Stop()
	}
	st.gcTimer = time.AfterFunc(s.opts.GCGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.entries[key]
		if !ok || cur != st || len(cur.subs) > 0 {
			return
		}
		if cur.entry.Status == StatusLoading {
			// Let the in-flight fetch land first.
			s.scheduleGCLocked(key, cur)
			return
		}
		delete(s.entries, key)
	})
}

// Invalidate marks every entry matching any of the patterns stale.
// Entries with live subscribers refetch immediately; the rest refetch on
// their next read. A fetch that was already in flight started before the
// invalidation, so it is superseded: its result is dropped and the key is
// fetched again, guaranteeing no read after Invalidate returns sees
// pre-invalidation data as fresh.
func (s *Store) Invalidate(patterns ...Pattern) {
	type pending struct {
		snap Entry
		subs []Subscriber
	}
	var notifications []pending

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for key, st := range s.entries {
		if !matchesAny(key, patterns) {
			continue
		}
		st.entry.FetchedAt = time.Time{}
		if st.entry.Status == StatusLoading {
			// Forget the shared call so the refetch hits the backend
			// instead of joining the superseded request.
			s.sf.Forget(key.String())
			st.gen++
			go s.runFetch(key, st.gen, st.loader)
			continue
		}
		if len(st.subs) == 0 {
			continue
		}
		if st.loader != nil {
			st.entry.Status = StatusLoading
			st.gen++
			go s.runFetch(key, st.gen, st.loader)
		}
		notifications = append(notifications, pending{snap: st.entry, subs: subscriberListLocked(st)})
	}
	s.mu.Unlock()

	for _, n := range notifications {
		s.notify(n.subs, n.snap)
	}
}

// SetEntry writes data directly under the key, marking it fresh. Used for
// optimistic patches and for seeding detail entries from list responses.
func (s *Store) SetEntry(key Key, data any) {
	s.mu.Lock()
	st := s.ensureLocked(key)
	st.entry.Data = data
	st.entry.Err = nil
	st.entry.Status = StatusSuccess
	st.entry.FetchedAt = time.Now()
	st.gen++
	snap := st.entry
	notify := subscriberListLocked(st)
	s.mu.Unlock()
	s.notify(notify, snap)
}

// Peek returns the entry snapshot without triggering any fetch.
func (s *Store) Peek(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[key]
	if !ok {
		return Entry{Key: key, Status: StatusIdle}, false
	}
	return st.entry, true
}

// restore puts a previously captured snapshot back, exactly as it was.
// Optimistic rollback depends on this being byte-identical to the snapshot.
func (s *Store) restore(e Entry) {
	s.mu.Lock()
	st := s.ensureLocked(e.Key)
	st.entry = e
	st.gen++
	notify := subscriberListLocked(st)
	s.mu.Unlock()
	s.notify(notify, e)
}

// drop removes an entry entirely, for rolling back an optimistic patch that
// created the entry in the first place.
func (s *Store) drop(key Key) {
	s.mu.Lock()
	st, ok := s.entries[key]
	if ok && st.gcTimer != nil {
		st.gcTimer.Stop()
	}
	delete(s.entries, key)
	s.mu.Unlock()
}

// Close stops GC timers and drops all entries.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, st := range s.entries {
		if st.gcTimer != nil {
			st.gcTimer.Stop()
		}
	}
	s.entries = make(map[Key]*entryState)
}

func (s *Store) notify(subs []Subscriber, snap Entry) {
	for _, fn := range subs {
		fn(snap)
	}
}

func subscriberListLocked(st *entryState) []Subscriber {
	if len(st.subs) == 0 {
		return nil
	}
	subs := make([]Subscriber, 0, len(st.subs))
	for _, fn := range st.subs {
		subs = append(subs, fn)
	}
	return subs
}

func matchesAny(key Key, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.Matches(key) {
			return true
		}
	}
	return false
}
