package cache

import (
	"context"
	"sync"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

type memoryKey struct {
	userID   string
	category model.RateLimitCategory
}

type memoryEntry struct {
	mu     sync.Mutex
	record *model.RateLimitRecord
}

// memoryRateLimit keeps one mutex per key so different users never contend.
type memoryRateLimit struct {
	mu      sync.Mutex
	entries map[memoryKey]*memoryEntry
}

func NewMemoryRateLimit() repository.IRateLimit {
	return &memoryRateLimit{entries: make(map[memoryKey]*memoryEntry)}
}

func (m *memoryRateLimit) entry(userID string, category model.RateLimitCategory) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey{userID, category}
	e, ok := m.entries[k]
	if !ok {
		e = &memoryEntry{}
		m.entries[k] = e
	}
	return e
}

func (m *memoryRateLimit) Get(_ context.Context, userID string, category model.RateLimitCategory) (*model.RateLimitRecord, error) {
	e := m.entry(userID, category)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil {
		return nil, nil
	}
	rec := *e.record
	return &rec, nil
}

func (m *memoryRateLimit) Update(_ context.Context, userID string, category model.RateLimitCategory, fn func(*model.RateLimitRecord) *model.RateLimitRecord) error {
	e := m.entry(userID, category)
	e.mu.Lock()
	defer e.mu.Unlock()
	var current *model.RateLimitRecord
	if e.record != nil {
		c := *e.record
		current = &c
	}
	if next := fn(current); next != nil {
		e.record = next
	}
	return nil
}

func (m *memoryRateLimit) Delete(_ context.Context, userID string, category model.RateLimitCategory) error {
	e := m.entry(userID, category)
	e.mu.Lock()
	e.record = nil
	e.mu.Unlock()
	return nil
}
