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

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionCols = `id, user_id, order_id, payment_id, signature, amount, currency, status, created_at, updated_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var paymentID, signature *string
	if err := row.Scan(&t.ID, &t.UserID, &t.OrderID, &paymentID, &signature, &t.Amount, &t.Currency, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrStoreTimeout
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if paymentID != nil {
		t.PaymentID = *paymentID
	}
	if signature != nil {
		t.Signature = *signature
	}
	return t, nil
}

func (r *transactionRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (id, user_id, order_id, amount, currency, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.OrderID, t.Amount, t.Currency, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return domain.ErrDuplicateOrder
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext || err == domain.ErrStoreTimeout {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionCols + ` FROM transactions WHERE order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) FindByOrderAndUser(ctx context.Context, tx repository.Tx, orderID, userID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionCols + ` FROM transactions WHERE order_id=$1 AND user_id=$2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID, userID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

// MarkPaidIfCreated is the single atomic created→paid transition. Two
// concurrent callers racing on the same order are serialized here and
// exactly one sees won=true.
func (r *transactionRepo) MarkPaidIfCreated(ctx context.Context, tx repository.Tx, orderID, paymentID, signature string) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'paid',
       payment_id = $2,
       signature = NULLIF($3, ''),
       updated_at = NOW()
 WHERE order_id = $1
   AND status = 'created';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, paymentID, signature)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext || err == domain.ErrStoreTimeout {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) MarkFailedIfCreated(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'failed',
       updated_at = NOW()
 WHERE order_id = $1
   AND status = 'created';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext || err == domain.ErrStoreTimeout {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
