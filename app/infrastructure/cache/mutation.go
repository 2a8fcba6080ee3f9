package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrMutationPending is returned when Execute is called on a mutation whose
// previous invocation has not finished. Unrelated mutations run freely;
// only the same logical mutation instance is guarded.
var ErrMutationPending = errors.New("cache: mutation already pending")

// MutationStatus follows idle -> pending -> success | error. A new Execute
// on a settled mutation starts the cycle over.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

func (s MutationStatus) String() string {
	switch s {
	case MutationIdle:
		return "idle"
	case MutationPending:
		return "pending"
	case MutationSuccess:
		return "success"
	case MutationError:
		return "error"
	default:
		return "unknown"
	}
}

// Patch is a provisional cache write applied before the network call
// resolves. Apply must return a new value rather than mutate prev, so the
// captured snapshot stays intact for rollback.
type Patch struct {
	Key   Key
	Apply func(prev any) any
}

// Operation describes one create/update/delete call: the request itself,
// the cache regions it invalidates on success, and an optional optimistic
// patch.
type Operation struct {
	Do         func(ctx context.Context) (any, error)
	Invalidate []Pattern
	Optimistic *Patch
}

// Mutation runs a single logical mutation against the store. It is
// ephemeral: create one per form or action, discard it with the view.
type Mutation struct {
	store  *Store
	mu     sync.Mutex
	status MutationStatus
	err    error
}

func NewMutation(store *Store) *Mutation {
	return &Mutation{store: store}
}

func (m *Mutation) Status() MutationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Execute runs the operation. On success the configured invalidations are
// applied before Execute returns, so a subsequent read never sees
// pre-mutation data. On failure the cache is left exactly as it was: the
// optimistic patch, if any, is rolled back to the captured snapshot, the
// error is surfaced, and nothing is retried.
func (m *Mutation) Execute(ctx context.Context, op Operation) (any, error) {
	m.mu.Lock()
	if m.status == MutationPending {
		m.mu.Unlock()
		return nil, ErrMutationPending
	}
	m.status = MutationPending
	m.err = nil
	m.mu.Unlock()

	rollback := m.applyOptimistic(op.Optimistic)

	result, err := op.Do(ctx)
	if err != nil {
		if rollback != nil {
			rollback()
		}
		m.settle(MutationError, err)
		return nil, err
	}

	if len(op.Invalidate) > 0 {
		m.store.Invalidate(op.Invalidate...)
	}
	m.settle(MutationSuccess, nil)
	return result, nil
}

func (m *Mutation) applyOptimistic(patch *Patch) func() {
	if patch == nil {
		return nil
	}
	prev, existed := m.store.Peek(patch.Key)
	m.store.SetEntry(patch.Key, patch.Apply(prev.Data))
	if !existed {
		return func() { m.store.drop(patch.Key) }
	}
	return func() { m.store.restore(prev) }
}

func (m *Mutation) settle(status MutationStatus, err error) {
	m.mu.Lock()
	m.status = status
	m.err = err
	m.mu.Unlock()
}
