package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	"SignalDeck/pkg/cache"
)

const latestViewKey = "view:latest"

// CacheViewStore keeps the most recent dashboard view in the cache service,
// so several API replicas behind Redis serve the same view.
type CacheViewStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheViewStore stores views for ttl. A view older than that is treated
// as missing rather than served stale forever.
func NewCacheViewStore(c cache.Service, ttl time.Duration) *CacheViewStore {
	return &CacheViewStore{cache: c, ttl: ttl}
}

func (s *CacheViewStore) Name() string { return "view_store" }

func (s *CacheViewStore) Deliver(ctx context.Context, v *models.DashboardView) error {
	if err := s.cache.Set(ctx, latestViewKey, v, s.ttl); err != nil {
		return fmt.Errorf("store view: %w", err)
	}
	return nil
}

func (s *CacheViewStore) Latest(ctx context.Context) (*models.DashboardView, error) {
	var v models.DashboardView
	if err := s.cache.Get(ctx, latestViewKey, &v); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNoView
		}
		return nil, fmt.Errorf("load view: %w", err)
	}
	return &v, nil
}
