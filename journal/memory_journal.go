// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package journal

import (
	"context"
	"sync"
)

// MemoryJournal keeps the most recent entries in process memory.
type MemoryJournal struct {
	mu         sync.RWMutex
	entries    []*Entry
	maxEntries int
}

func NewMemoryJournal(maxEntries int) *MemoryJournal {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryJournal{maxEntries: maxEntries}
}

func (m *MemoryJournal) Record(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.maxEntries; over > 0 {
		m.entries = append([]*Entry(nil), m.entries[over:]...)
	}
	return nil
}

func (m *MemoryJournal) List(_ context.Context, f Filter) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, 0)
	for i := len(m.entries) - 1; i >= 0 && len(out) < f.limit(); i-- {
		if f.matches(m.entries[i]) {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *MemoryJournal) Close() error { return nil }
