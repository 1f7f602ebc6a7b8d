package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"hubbook/internal/models"
)

// MemoryAvailabilityCache is the in-process fallback cache. Entries expire
// by timestamp on read; no background sweeper is needed for this workload.
type MemoryAvailabilityCache struct {
	entries sync.Map
}

type memoryEntry struct {
	view      *models.DailyAvailability
	expiresAt time.Time
}

func NewMemoryAvailabilityCache() *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{}
}

func (m *MemoryAvailabilityCache) Get(ctx context.Context, hubID int64, date string) (*models.DailyAvailability, error) {
	key := availabilityKey(hubID, date)
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.entries.Delete(key)
		return nil, nil
	}
	return entry.view, nil
}

func (m *MemoryAvailabilityCache) Set(ctx context.Context, view *models.DailyAvailability, ttl time.Duration) error {
	m.entries.Store(availabilityKey(view.HubID, view.Date), &memoryEntry{
		view:      view,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (m *MemoryAvailabilityCache) Invalidate(ctx context.Context, hubID int64, date string) error {
	m.entries.Delete(availabilityKey(hubID, date))
	return nil
}

func (m *MemoryAvailabilityCache) InvalidateHub(ctx context.Context, hubID int64) error {
	prefix := availabilityKey(hubID, "")
	m.entries.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			m.entries.Delete(key)
		}
		return true
	})
	return nil
}
