package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

func newTestStore() *cache.Store {
	return cache.NewStore(cache.Options{
		DefaultStaleAfter: time.Minute,
		GCGrace:           50 * time.Millisecond,
		FetchTimeout:      time.Second,
	})
}

// countingLoader counts invocations and can be gated to hold fetches open.
type countingLoader struct {
	calls   atomic.Int64
	gate    chan struct{}
	results chan any
	err     atomic.Value
}

func newCountingLoader() *countingLoader {
	return &countingLoader{
		results: make(chan any, 16),
	}
}

func (l *countingLoader) load(ctx context.Context) (any, error) {
	l.calls.Add(1)
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := l.err.Load().(error); ok && err != nil {
		return nil, err
	}
	select {
	case v := <-l.results:
		return v, nil
	default:
		return "default", nil
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestKeyCanonicalSerialization(t *testing.T) {
	a := cache.NewKey("v1:applications:list", map[string]string{"status": "applied", "page": "2"})
	b := cache.NewKey("v1:applications:list", map[string]string{"page": "2", "status": "applied"})
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
	if a.String() != "v1:applications:list?page=2&status=applied" {
		t.Fatalf("unexpected serialization: %s", a)
	}
}

func TestPatternMatching(t *testing.T) {
	listKey := cache.ApplicationListKey(map[string]string{"status": "applied"})
	detailKey := cache.ApplicationDetailKey(7)

	prefix := cache.ResourcePattern(cache.ApplicationResourcePrefix)
	if !prefix.Matches(listKey) || !prefix.Matches(detailKey) {
		t.Fatal("resource prefix should match both list and detail keys")
	}

	exact := cache.ExactPattern(cache.ApplicationDetailResource, map[string]string{"id": "7"})
	if !exact.Matches(detailKey) {
		t.Fatal("exact pattern should match detail key")
	}
	if exact.Matches(cache.ApplicationDetailKey(8)) {
		t.Fatal("exact pattern should not match a different id")
	}
	if prefix.Matches(cache.CompanyListKey(nil)) {
		t.Fatal("application prefix should not match company keys")
	}
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	loader := newCountingLoader()
	loader.gate = make(chan struct{})
	loader.results <- "value"

	key := cache.NewKey("v1:test", nil)
	store.Register(key, loader.load)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Get(context.Background(), key)
		}()
	}
	wg.Wait()
	close(loader.gate)

	waitFor(t, time.Second, func() bool {
		entry, _ := store.Peek(key)
		return entry.Status == cache.StatusSuccess
	})
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 loader call, got %d", got)
	}
}

func TestGetReturnsLoadingImmediately(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	loader := newCountingLoader()
	loader.gate = make(chan struct{})
	key := cache.NewKey("v1:test", nil)
	store.Register(key, loader.load)

	entry := store.Get(context.Background(), key)
	if entry.Status != cache.StatusLoading {
		t.Fatalf("expected loading status, got %s", entry.Status)
	}
	if entry.Data != nil {
		t.Fatalf("expected no data yet, got %v", entry.Data)
	}
	close(loader.gate)
}

func TestStaleWhileRevalidate(t *testing.T) {
	store := cache.NewStore(cache.Options{
		DefaultStaleAfter: 10 * time.Millisecond,
		GCGrace:           time.Minute,
		FetchTimeout:      time.Second,
	})
	defer store.Close()

	loader := newCountingLoader()
	loader.results <- "first"
	key := cache.NewKey("v1:test", nil)
	store.Register(key, loader.load)

	if _, err := store.Fetch(context.Background(), key); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	loader.results <- "second"
	entry := store.Get(context.Background(), key)
	if entry.Status != cache.StatusLoading {
		t.Fatalf("stale read should revalidate, got status %s", entry.Status)
	}
	if entry.Data != "first" {
		t.Fatalf("stale read should serve previous data, got %v", entry.Data)
	}

	waitFor(t, time.Second, func() bool {
		e, _ := store.Peek(key)
		return e.Status == cache.StatusSuccess && e.Data == "second"
	})
}

func TestFailedFetchKeepsStaleData(t *testing.T) {
	store := cache.NewStore(cache.Options{
		DefaultStaleAfter: 10 * time.Millisecond,
		GCGrace:           time.Minute,
		FetchTimeout:      time.Second,
	})
	defer store.Close()

	loader := newCountingLoader()
	loader.results <- "good"
	key := cache.NewKey("v1:test", nil)
	store.Register(key, loader.load)

	if _, err := store.Fetch(context.Background(), key); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	boom := errors.New("backend down")
	loader.err.Store(boom)
	store.Get(context.Background(), key)

	waitFor(t, time.Second, func() bool {
		e, _ := store.Peek(key)
		return e.Status == cache.StatusError
	})
	entry, _ := store.Peek(key)
	if entry.Data != "good" {
		t.Fatalf("error entry should keep stale data, got %v", entry.Data)
	}
	if !errors.Is(entry.Err, boom) {
		t.Fatalf("expected stored error, got %v", entry.Err)
	}
}

func TestInvalidateRefetchesSubscribedKeys(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	loader := newCountingLoader()
	loader.results <- "v1"
	key := cache.NewKey("v1:applications:list", nil)
	store.Register(key, loader.load)
	if _, err := store.Fetch(context.Background(), key); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	var mu sync.Mutex
	var seen []cache.Status
	unsubscribe := store.Subscribe(key, func(e cache.Entry) {
		mu.Lock()
		seen = append(seen, e.Status)
		mu.Unlock()
	})
	defer unsubscribe()

	loader.results <- "v2"
	store.Invalidate(cache.ResourcePattern("v1:applications"))

	waitFor(t, time.Second, func() bool {
		e, _ := store.Peek(key)
		return e.Status == cache.StatusSuccess && e.Data == "v2"
	})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 || seen[0] != cache.StatusLoading || seen[len(seen)-1] != cache.StatusSuccess {
		t.Fatalf("expected loading then success notifications, got %v", seen)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("expected 2 loader calls, got %d", got)
	}
}

func TestInvalidateUnsubscribedDefersRefetch(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	loader := newCountingLoader()
	loader.results <- "v1"
	key := cache.NewKey("v1:test", nil)
	store.Register(key, loader.load)
	if _, err := store.Fetch(context.Background(), key); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	store.Invalidate(cache.ResourcePattern("v1:test"))
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("unsubscribed invalidation should not refetch eagerly, got %d calls", got)
	}

	loader.results <- "v2"
	store.Get(context.Background(), key)
	waitFor(t, time.Second, func() bool {
		e, _ := store.Peek(key)
		return e.Data == "v2"
	})
}

func TestInvalidateSupersedesInFlightFetch(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	var calls atomic.Int64
	gate := make(chan struct{})
	key := cache.NewKey("v1:applications:list", nil)
	store.Register(key, func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			<-gate
			return "pre-mutation", nil
		}
		return "post-mutation", nil
	})

	store.Get(context.Background(), key) // first fetch blocks on the gate

	// A mutation resolves while the fetch is still in flight. The blocked
	// fetch snapshotted the backend before the write, so its result must
	// be dropped and the key fetched again.
	store.Invalidate(cache.ResourcePattern("v1:applications"))

	waitFor(t, time.Second, func() bool {
		e, _ := store.Peek(key)
		return e.Status == cache.StatusSuccess && e.Data == "post-mutation"
	})

	close(gate)
	time.Sleep(20 * time.Millisecond)

	entry, _ := store.Peek(key)
	if entry.Status != cache.StatusSuccess || entry.Data != "post-mutation" {
		t.Fatalf("superseded fetch must not land: got %s %v", entry.Status, entry.Data)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected the invalidation to refetch, got %d calls", got)
	}
}

func TestUnsubscribeDoesNotCancelFetch(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	loader := newCountingLoader()
	loader.gate = make(chan struct{})
	loader.results <- "value"
	key := cache.NewKey("v1:test", nil)
	store.Register(key, loader.load)

	unsubscribe := store.Subscribe(key, func(cache.Entry) {})
	store.Get(context.Background(), key)
	unsubscribe()
	close(loader.gate)

	waitFor(t, time.Second, func() bool {
		e, _ := store.Peek(key)
		return e.Status == cache.StatusSuccess && e.Data == "value"
	})
}

func TestEntryCollectedAfterGrace(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	key := cache.NewKey("v1:test", nil)
	store.SetEntry(key, "value")
	unsubscribe := store.Subscribe(key, func(cache.Entry) {})
	unsubscribe()

	waitFor(t, time.Second, func() bool {
		_, ok := store.Peek(key)
		return !ok
	})
}

func TestSubscriberKeptAliveEntrySurvives(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	key := cache.NewKey("v1:test", nil)
	store.SetEntry(key, "value")
	unsubscribe := store.Subscribe(key, func(cache.Entry) {})
	defer unsubscribe()

	time.Sleep(100 * time.Millisecond)
	if _, ok := store.Peek(key); !ok {
		t.Fatal("entry with a live subscriber must not be collected")
	}
}
