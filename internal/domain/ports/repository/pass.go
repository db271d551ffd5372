package repository

import (
	"context"

	"eventpass-backend/internal/domain/model"
)

// PassRepository persists entitlements. The store carries two unique
// backstops: the pass code, and a partial unique index on
// (user_id) WHERE status='active'.
type PassRepository interface {
	// Create inserts a new pass. Returns domain.ErrAlreadyExists on a
	// unique violation (duplicate code or second active pass for the user).
	Create(ctx context.Context, tx Tx, p *model.Pass) error

	// FindActiveByUser returns the user's active pass, or domain.ErrNotFound.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Pass, error)

	// FindByUser returns the user's most recent pass regardless of status,
	// or domain.ErrNotFound.
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Pass, error)
}
