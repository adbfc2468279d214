package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/interview"
)

// MockStore provides an in-memory implementation of the Store interface for
// tests and ephemeral runs. Records are cloned on the way in and out so
// callers never share memory with the store.
type MockStore struct {
	mu sync.RWMutex

	opts *options

	interviews map[string]interview.Interview
	cache      *SummaryEntry

	// failWrites, when set, makes every mutating call fail with the
	// returned error.
	failWrites func() error
}

// A compile-time check that MockStore satisfies Store.
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new in-memory store.
func NewMockStore(opts ...Option) *MockStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &MockStore{
		opts:       o,
		interviews: make(map[string]interview.Interview),
	}
}

// FailWrites makes subsequent writes fail with err. Passing nil restores
// normal behavior.
func (m *MockStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		m.failWrites = nil
		return
	}
	m.failWrites = func() error { return err }
}

// writeErr returns the injected write failure, if any. Callers must hold
// the lock.
func (m *MockStore) writeErr() error {
	if m.failWrites == nil {
		return nil
	}
	return m.failWrites()
}

// List returns all interviews, most recently updated first.
func (m *MockStore) List(_ context.Context) ([]interview.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ivs := make([]interview.Interview, 0, len(m.interviews))
	for _, iv := range m.interviews {
		ivs = append(ivs, iv.Clone())
	}
	sortByRecency(ivs)

	return ivs, nil
}

// Get returns the interview with the given id.
func (m *MockStore) Get(_ context.Context,
	id string) (fn.Option[interview.Interview], error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	iv, ok := m.interviews[id]
	if !ok {
		return fn.None[interview.Interview](), nil
	}

	return fn.Some(iv.Clone()), nil
}

// Upsert inserts or replaces the interview.
func (m *MockStore) Upsert(_ context.Context,
	iv interview.Interview) (interview.Interview, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr(); err != nil {
		return interview.Interview{}, err
	}

	stored := iv.Clone()
	stamp(&stored, m.opts.clock())
	if err := stored.Validate(); err != nil {
		return interview.Interview{}, err
	}
	m.interviews[stored.ID] = stored

	return stored.Clone(), nil
}

// Delete removes the interview with the given id.
func (m *MockStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr(); err != nil {
		return false, err
	}

	if _, ok := m.interviews[id]; !ok {
		return false, nil
	}
	delete(m.interviews, id)

	return true, nil
}

// Reset removes every interview and the summary cache.
func (m *MockStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr(); err != nil {
		return err
	}

	m.interviews = make(map[string]interview.Interview)
	m.cache = nil

	return nil
}

// SummaryCache returns the stored summary cache entry.
func (m *MockStore) SummaryCache(
	_ context.Context) (fn.Option[SummaryEntry], error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cache == nil {
		return fn.None[SummaryEntry](), nil
	}

	entry := *m.cache
	entry.Result = append(json.RawMessage{}, m.cache.Result...)

	return fn.Some(entry), nil
}

// PutSummaryCache replaces the stored summary cache entry.
func (m *MockStore) PutSummaryCache(_ context.Context,
	entry SummaryEntry) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr(); err != nil {
		return err
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = m.opts.clock().UTC()
	}
	entry.Result = append(json.RawMessage{}, entry.Result...)
	m.cache = &entry

	return nil
}

// Close is a no-op for the in-memory store.
func (m *MockStore) Close() error {
	return nil
}
