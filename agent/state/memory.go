package state

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node runs.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, principalID string) (*PersonalizationState, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, ErrInvalidPrincipal
	}

	m.mu.RLock()
	raw, ok := m.states[principalID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	var st PersonalizationState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	st.EnsurePreferences()
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, st *PersonalizationState) error {
	if st == nil {
		return ErrNilState
	}
	if strings.TrimSpace(st.PrincipalID) == "" {
		return ErrInvalidPrincipal
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.states[st.PrincipalID] = raw
	m.mu.Unlock()
	return nil
}

// Manager layers lazy creation and merge/append semantics over a Store.
// It is the concrete personalization store handed to the composer and the
// handlers.
type Manager struct {
	store Store
	now   func() time.Time

	// serializes read-modify-write cycles against the backing store
	mu sync.Mutex
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
	}
}

// Load returns the principal's state, or a fresh empty state when none has
// been written yet. The fresh state is not persisted until the first write.
func (m *Manager) Load(ctx context.Context, principalID string) (*PersonalizationState, error) {
	st, err := m.store.Load(ctx, principalID)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, ErrStateNotFound) {
		return NewPersonalizationState(principalID, m.now()), nil
	}
	return nil, err
}

func (m *Manager) MergePreferences(ctx context.Context, principalID string, prefs map[string]string) error {
	if len(prefs) == 0 {
		return nil
	}
	return m.mutate(ctx, principalID, func(st *PersonalizationState) {
		st.MergePreferences(prefs)
	})
}

func (m *Manager) AppendLearningPoint(ctx context.Context, principalID, point string) error {
	return m.mutate(ctx, principalID, func(st *PersonalizationState) {
		st.AppendLearningPoint(point)
	})
}

func (m *Manager) SetInteractionSummary(ctx context.Context, principalID, summary string) error {
	return m.mutate(ctx, principalID, func(st *PersonalizationState) {
		st.InteractionSummary = strings.TrimSpace(summary)
	})
}

func (m *Manager) mutate(ctx context.Context, principalID string, apply func(*PersonalizationState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.Load(ctx, principalID)
	if err != nil {
		return err
	}

	apply(st)
	st.Touch(m.now())
	return m.store.Save(ctx, st)
}
