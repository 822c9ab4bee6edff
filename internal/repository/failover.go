package repository

import (
	"context"
	"sync/atomic"
	"time"

	"xparking/internal/domain"
	"xparking/internal/models"

	"github.com/rs/zerolog"
)

type FailoverExitCache struct {
	primary   domain.ExitCache
	fallback  domain.ExitCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverExitCache(primary, fallback domain.ExitCache, logger *zerolog.Logger) *FailoverExitCache {
	return &FailoverExitCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverExitCache) GetExitVerification(ctx context.Context, plate string) (*models.ExitVerification, bool, error) {
	if !r.isDown.Load() {
		v, ok, err := r.primary.GetExitVerification(ctx, plate)
		if err == nil {
			return v, ok, nil
		}
		r.logger.Error().Err(err).Msg("Primary exit cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		v, ok, err := r.primary.GetExitVerification(ctx, plate)
		if err == nil {
			r.isDown.Store(false)
			return v, ok, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetExitVerification(ctx, plate)
}

func (r *FailoverExitCache) SetExitVerification(ctx context.Context, plate string, v *models.ExitVerification) error {
	if !r.isDown.Load() {
		err := r.primary.SetExitVerification(ctx, plate, v)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary exit cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetExitVerification(ctx, plate, v)
}

func (r *FailoverExitCache) InvalidateExitVerification(ctx context.Context, plate string) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateExitVerification(ctx, plate)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary exit cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.InvalidateExitVerification(ctx, plate)
}
