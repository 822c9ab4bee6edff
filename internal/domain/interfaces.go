package domain

import (
	"context"

	"xparking/internal/models"
)

// ExitCache stores recent exit verification payloads per license plate so the
// gate camera can poll cheaply between frames.
type ExitCache interface {
	GetExitVerification(ctx context.Context, plate string) (*models.ExitVerification, bool, error)
	SetExitVerification(ctx context.Context, plate string, v *models.ExitVerification) error
	InvalidateExitVerification(ctx context.Context, plate string) error
}

// EventPublisher is the producer side of the event bus.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ReconcileQueue wakes the payment reconcile worker for a specific reference.
type ReconcileQueue interface {
	EnqueueRef(ctx context.Context, ref string) error
}
