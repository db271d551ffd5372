package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque handle to a storage transaction. Its concrete type is
// infra-defined (pgx.Tx for Postgres). Repositories MUST accept a nil Tx
// and fall back to the non-transactional path.
type Tx interface{}

// TransactionManager executes a function within a database transaction,
// passing the transaction handle to the callback. Keeping the handle
// opaque keeps use-case interfaces free of storage types while still
// letting repositories run tx-bound statements when one is supplied.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
