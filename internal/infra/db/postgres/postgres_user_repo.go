package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) SetPassActivated(ctx context.Context, tx repository.Tx, userID string, activated bool) error {
	const q = `UPDATE users SET has_activated_pass=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, activated)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext || err == domain.ErrStoreTimeout {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
