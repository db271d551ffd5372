package repository

import "context"

// UserRepository is the narrow slice of the auth service's user store
// this core needs: flipping the activation flag on issuance.
type UserRepository interface {
	SetPassActivated(ctx context.Context, tx Tx, userID string, activated bool) error
}
