package repository

import (
	"context"
	"sync/atomic"
	"time"

	"hubbook/internal/domain"
	"hubbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache serves from the primary cache (Redis) and drops
// to the in-memory fallback when the primary fails. The primary is probed
// again after a cooldown.
type FailoverAvailabilityCache struct {
	primary  domain.AvailabilityCache
	fallback domain.AvailabilityCache
	logger   *zerolog.Logger

	isDown    atomic.Bool
	downSince atomic.Int64 // unix nanos of the last failure
}

const recoveryInterval = time.Minute

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverAvailabilityCache) markDown(err error) {
	f.logger.Error().Err(err).Msg("primary availability cache failed, falling back to memory")
	f.isDown.Store(true)
	f.downSince.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried for this call.
func (f *FailoverAvailabilityCache) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	if time.Since(time.Unix(0, f.downSince.Load())) > recoveryInterval {
		f.downSince.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (f *FailoverAvailabilityCache) recover() {
	if f.isDown.Load() {
		f.isDown.Store(false)
		f.logger.Info().Msg("primary availability cache recovered")
	}
}

func (f *FailoverAvailabilityCache) Get(ctx context.Context, hubID int64, date string) (*models.DailyAvailability, error) {
	if f.usePrimary() {
		view, err := f.primary.Get(ctx, hubID, date)
		if err == nil {
			f.recover()
			return view, nil
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, hubID, date)
}

func (f *FailoverAvailabilityCache) Set(ctx context.Context, view *models.DailyAvailability, ttl time.Duration) error {
	if f.usePrimary() {
		if err := f.primary.Set(ctx, view, ttl); err != nil {
			f.markDown(err)
		} else {
			f.recover()
		}
	}
	return f.fallback.Set(ctx, view, ttl)
}

func (f *FailoverAvailabilityCache) Invalidate(ctx context.Context, hubID int64, date string) error {
	// Invalidation must reach both layers; a stale entry surviving in either
	// would serve a pre-mutation view for up to the TTL.
	var primaryErr error
	if f.usePrimary() {
		if primaryErr = f.primary.Invalidate(ctx, hubID, date); primaryErr != nil {
			f.markDown(primaryErr)
		} else {
			f.recover()
		}
	}
	if err := f.fallback.Invalidate(ctx, hubID, date); err != nil {
		return err
	}
	return primaryErr
}

func (f *FailoverAvailabilityCache) InvalidateHub(ctx context.Context, hubID int64) error {
	var primaryErr error
	if f.usePrimary() {
		if primaryErr = f.primary.InvalidateHub(ctx, hubID); primaryErr != nil {
			f.markDown(primaryErr)
		} else {
			f.recover()
		}
	}
	if err := f.fallback.InvalidateHub(ctx, hubID); err != nil {
		return err
	}
	return primaryErr
}
