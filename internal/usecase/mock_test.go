//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/model"
	"eventpass-backend/internal/domain/ports/repository"
)

// -----------------------------
// In-memory TransactionRepository
// -----------------------------

type MockTransactionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Transaction // by order id

	CreateFunc            func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	FindByOrderIDFunc     func(ctx context.Context, tx repository.Tx, orderID string) (*model.Transaction, error)
	MarkPaidIfCreatedFunc func(ctx context.Context, tx repository.Tx, orderID, paymentID, signature string) (bool, error)
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{data: map[string]*model.Transaction{}}
}

func (r *MockTransactionRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[t.OrderID]; exists {
		return domain.ErrDuplicateOrder
	}
	cp := *t
	r.data[t.OrderID] = &cp
	return nil
}

func (r *MockTransactionRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Transaction, error) {
	if r.FindByOrderIDFunc != nil {
		return r.FindByOrderIDFunc(ctx, tx, orderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MockTransactionRepo) FindByOrderAndUser(ctx context.Context, tx repository.Tx, orderID, userID string) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[orderID]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// MarkPaidIfCreated mirrors the store's conditional update: the check and
// the write happen under one lock so concurrent callers serialize.
func (r *MockTransactionRepo) MarkPaidIfCreated(ctx context.Context, tx repository.Tx, orderID, paymentID, signature string) (bool, error) {
	if r.MarkPaidIfCreatedFunc != nil {
		return r.MarkPaidIfCreatedFunc(ctx, tx, orderID, paymentID, signature)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[orderID]
	if !ok || t.Status != model.TransactionStatusCreated {
		return false, nil
	}
	t.Status = model.TransactionStatusPaid
	t.PaymentID = paymentID
	t.Signature = signature
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockTransactionRepo) MarkFailedIfCreated(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[orderID]
	if !ok || t.Status != model.TransactionStatusCreated {
		return false, nil
	}
	t.Status = model.TransactionStatusFailed
	t.UpdatedAt = time.Now()
	return true, nil
}

// Get returns a copy of the stored transaction for assertions.
func (r *MockTransactionRepo) Get(orderID string) *model.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.data[orderID]; ok {
		cp := *t
		return &cp
	}
	return nil
}

// -----------------------------
// In-memory PassRepository
// -----------------------------

type MockPassRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Pass // by pass id
	codes map[string]bool

	CreateFunc func(ctx context.Context, tx repository.Tx, p *model.Pass) error
}

var _ repository.PassRepository = (*MockPassRepo)(nil)

func NewMockPassRepo() *MockPassRepo {
	return &MockPassRepo{data: map[string]*model.Pass{}, codes: map[string]bool{}}
}

// Create enforces the same unique backstops as the schema: pass code and
// one active pass per user.
func (r *MockPassRepo) Create(ctx context.Context, tx repository.Tx, p *model.Pass) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes[p.Code] {
		return domain.ErrAlreadyExists
	}
	for _, q := range r.data {
		if q.UserID == p.UserID && q.Status == model.PassStatusActive && p.Status == model.PassStatusActive {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	r.data[cp.ID] = &cp
	r.codes[cp.Code] = true
	return nil
}

func (r *MockPassRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.UserID == userID && p.Status == model.PassStatusActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPassRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Pass
	for _, p := range r.data {
		if p.UserID != userID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// CountForUser returns how many passes exist for a user, for assertions.
func (r *MockPassRepo) CountForUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.data {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

// -----------------------------
// In-memory UserRepository
// -----------------------------

type MockUserRepo struct {
	mu        sync.Mutex
	activated map[string]bool

	SetPassActivatedFunc func(ctx context.Context, tx repository.Tx, userID string, activated bool) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{activated: map[string]bool{}}
}

func (r *MockUserRepo) SetPassActivated(ctx context.Context, tx repository.Tx, userID string, activated bool) error {
	if r.SetPassActivatedFunc != nil {
		return r.SetPassActivatedFunc(ctx, tx, userID, activated)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activated[userID] = activated
	return nil
}

func (r *MockUserRepo) Activated(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activated[userID]
}

// -----------------------------
// TxManager and Locker
// -----------------------------

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the callback immediately with a nil handle; repositories
// treat nil as the non-transactional path.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.TryLockFunc != nil {
		return l.TryLockFunc(ctx, key, ttl)
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		l.mu.Lock()
		if _, taken := l.held[key]; !taken {
			tok := uuid.NewString()
			l.held[key] = tok
			l.mu.Unlock()
			return tok, nil
		}
		l.mu.Unlock()
		if time.Now().After(deadline) {
			return "", domain.ErrLockNotAcquired
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
