package storage

import (
	"context"
	"errors"

	"charge-gateway/internal/models"
)

var ErrAttemptNotFound = errors.New("charge attempt not found")

// Store keeps the charge-attempt audit trail: processor references and
// statuses only, never card data. The processor remains the system of
// record; the service functions fully with the in-memory implementation.
type Store interface {
	SaveAttempt(ctx context.Context, attempt *models.ChargeAttempt) error
	GetAttempt(ctx context.Context, reference string) (*models.ChargeAttempt, error)
	UpsertStatus(ctx context.Context, reference string, status models.ChargeStatus, declineCode string) error
	ListAttempts(ctx context.Context, status models.ChargeStatus, limit, offset int) ([]*models.ChargeAttempt, error)
	Ping(ctx context.Context) error
	Close() error
}
