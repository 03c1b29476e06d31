package service

import (
	"context"
	"sync"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/repository"

	"github.com/stretchr/testify/mock"
	"gopkg.in/gomail.v2"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendSettlementNotice(ctx context.Context, to domain.Participant, n SettlementNotice) error {
	args := m.Called(ctx, to, n)
	return args.Error(0)
}

func (m *MockNotifier) SendOverdueReminder(ctx context.Context, to domain.Participant, r OverdueReminder) error {
	args := m.Called(ctx, to, r)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

type MockTransactor struct {
	mock.Mock
}

// WithinTransaction runs fn when the expectation returns a UnitOfWork,
// otherwise it returns the configured error.
func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	args := m.Called(ctx, fn)
	if uow, ok := args.Get(0).(repository.UnitOfWork); ok {
		return fn(ctx, uow)
	}
	return args.Error(0)
}

type MockUnitOfWork struct {
	users *MockUserRepo
	books *MockInventoryLedger
	loans *MockLoanRepo
}

func newMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{users: new(MockUserRepo), books: new(MockInventoryLedger), loans: new(MockLoanRepo)}
}

func (u *MockUnitOfWork) Users() repository.UserRepository { return u.users }
func (u *MockUnitOfWork) Books() repository.InventoryLedger { return u.books }
func (u *MockUnitOfWork) Loans() repository.LoanRepository  { return u.loans }

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) ResolveByEmails(ctx context.Context, emails []string) (map[string]*domain.User, error) {
	args := m.Called(ctx, emails)
	found, _ := args.Get(0).(map[string]*domain.User)
	return found, args.Error(1)
}

func (m *MockUserRepo) LockParticipants(ctx context.Context, ids []int32) error {
	return m.Called(ctx, ids).Error(0)
}

type MockInventoryLedger struct {
	mock.Mock
}

func (m *MockInventoryLedger) GetForUpdate(ctx context.Context, bookID int32) (*domain.Book, error) {
	args := m.Called(ctx, bookID)
	b, _ := args.Get(0).(*domain.Book)
	return b, args.Error(1)
}

func (m *MockInventoryLedger) DecrementIfPositive(ctx context.Context, bookID int32) (bool, error) {
	args := m.Called(ctx, bookID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventoryLedger) Increment(ctx context.Context, bookID int32) error {
	return m.Called(ctx, bookID).Error(0)
}

type MockLoanRepo struct {
	mock.Mock
}

func (m *MockLoanRepo) Create(ctx context.Context, loan *domain.Loan) error {
	return m.Called(ctx, loan).Error(0)
}

func (m *MockLoanRepo) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*domain.Loan)
	return l, args.Error(1)
}

func (m *MockLoanRepo) GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*domain.Loan)
	return l, args.Error(1)
}

func (m *MockLoanRepo) FindActiveByParticipants(ctx context.Context, userIDs []int32) ([]domain.ActiveLoanConflict, error) {
	args := m.Called(ctx, userIDs)
	c, _ := args.Get(0).([]domain.ActiveLoanConflict)
	return c, args.Error(1)
}

func (m *MockLoanRepo) Settle(ctx context.Context, loan *domain.Loan) error {
	return m.Called(ctx, loan).Error(0)
}

func (m *MockLoanRepo) ListByParticipant(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error) {
	args := m.Called(ctx, userID, status, page, pageSize)
	loans, _ := args.Get(0).([]domain.Loan)
	return loans, args.Get(1).(int32), args.Error(2)
}

type MockFinePolicyRepo struct {
	mock.Mock
}

func (m *MockFinePolicyRepo) Get(ctx context.Context) (domain.FinePolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.FinePolicy), args.Error(1)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
