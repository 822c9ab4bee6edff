package repository

import (
	"context"
	"sync"
	"time"

	"xparking/internal/models"
)

type MemoryExitCache struct {
	entries sync.Map
	ttl     time.Duration
}

type exitCacheEntry struct {
	verification *models.ExitVerification
	expiresAt    time.Time
}

func NewMemoryExitCache(ttl time.Duration) *MemoryExitCache {
	return &MemoryExitCache{
		ttl: ttl,
	}
}

func (m *MemoryExitCache) GetExitVerification(ctx context.Context, plate string) (*models.ExitVerification, bool, error) {
	val, ok := m.entries.Load(plate)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*exitCacheEntry)
	if time.Now().After(entry.expiresAt) {
		m.entries.Delete(plate)
		return nil, false, nil
	}
	return entry.verification, true, nil
}

func (m *MemoryExitCache) SetExitVerification(ctx context.Context, plate string, v *models.ExitVerification) error {
	m.entries.Store(plate, &exitCacheEntry{
		verification: v,
		expiresAt:    time.Now().Add(m.ttl),
	})
	return nil
}

func (m *MemoryExitCache) InvalidateExitVerification(ctx context.Context, plate string) error {
	m.entries.Delete(plate)
	return nil
}
