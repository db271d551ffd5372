package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/model"
	"eventpass-backend/internal/domain/ports/repository"
)

var _ repository.PassRepository = (*passRepo)(nil)

type passRepo struct{ pool *pgxpool.Pool }

func NewPassRepo(pool *pgxpool.Pool) *passRepo {
	return &passRepo{pool: pool}
}

const passCols = `id, user_id, transaction_id, code, status, qr_data, created_at, updated_at`

func scanPass(row pgx.Row) (*model.Pass, error) {
	p := &model.Pass{}
	if err := row.Scan(&p.ID, &p.UserID, &p.TransactionID, &p.Code, &p.Status, &p.QRData, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrStoreTimeout
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// Create inserts a pass. The schema carries a unique index on code and a
// partial unique index on (user_id) WHERE status='active'; both surface
// here as domain.ErrAlreadyExists.
func (r *passRepo) Create(ctx context.Context, tx repository.Tx, p *model.Pass) error {
	const q = `
INSERT INTO passes (id, user_id, transaction_id, code, status, qr_data, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.TransactionID, p.Code, p.Status, p.QRData, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext || err == domain.ErrStoreTimeout {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *passRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Pass, error) {
	q := `SELECT ` + passCols + ` FROM passes WHERE user_id=$1 AND status='active' LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanPass(row)
}

func (r *passRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Pass, error) {
	const q = `SELECT ` + passCols + ` FROM passes WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanPass(row)
}
