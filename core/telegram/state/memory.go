package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryStore constructs a process-local Store. Idle chats are not kept in the map.
func NewMemoryStore() Store {
	return &memoryStore{
		states: make(map[int64]State),
	}
}

// GetState returns the chat's state or StateIdle if none exists.
func (m *memoryStore) GetState(_ context.Context, chatID int64) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[chatID]; ok {
		return st, nil
	}
	return StateIdle, nil
}

// SetState updates the chat's state; StateIdle removes the entry.
func (m *memoryStore) SetState(_ context.Context, chatID int64, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == StateIdle || st == "" {
		delete(m.states, chatID)
		return nil
	}
	m.states[chatID] = st
	return nil
}

// ClearState resets the chat to idle.
func (m *memoryStore) ClearState(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }
