package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound                = errors.New("entity not found")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrAlreadyExists           = errors.New("entity already exists")
	ErrSignatureInvalid        = errors.New("invalid payment signature")
	ErrDuplicateOrder          = errors.New("duplicate gateway order id")
	ErrCodeGenerationExhausted = errors.New("pass code generation exhausted")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrGatewayTimeout          = errors.New("payment gateway timeout")
	ErrStoreTimeout            = errors.New("store operation timed out")
	ErrLockNotAcquired         = errors.New("could not acquire lock")

	// Infrastructure-level errors surfaced by repositories
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)
