package repository

import (
	"context"
	"time"

	"library-circulation/internal/domain"
)

// UserRepository is the identity provider as seen by the circulation core.
type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	// ResolveByEmails returns the accounts found for emails, keyed by lower-cased email.
	ResolveByEmails(ctx context.Context, emails []string) (map[string]*domain.User, error)
	// LockParticipants row-locks the given users in ascending id order.
	LockParticipants(ctx context.Context, ids []int32) error
}

// InventoryLedger owns the availableCopies counter of each book.
type InventoryLedger interface {
	GetForUpdate(ctx context.Context, bookID int32) (*domain.Book, error)
	DecrementIfPositive(ctx context.Context, bookID int32) (bool, error)
	Increment(ctx context.Context, bookID int32) error
}

// LoanReader is the read side of the loan store, safe to use outside a unit of work.
type LoanReader interface {
	GetByID(ctx context.Context, id int32) (*domain.Loan, error)
	ListByParticipant(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error)
}

// LoanRepository is only handed out by a UnitOfWork.
type LoanRepository interface {
	LoanReader
	Create(ctx context.Context, loan *domain.Loan) error
	GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error)
	FindActiveByParticipants(ctx context.Context, userIDs []int32) ([]domain.ActiveLoanConflict, error)
	Settle(ctx context.Context, loan *domain.Loan) error
}

type FinePolicyRepository interface {
	// Get returns the current policy, or the documented defaults when none is stored.
	Get(ctx context.Context) (domain.FinePolicy, error)
}

// OverdueLoan is a read-model row for reminder notices.
type OverdueLoan struct {
	LoanID    int32     `db:"loan_id"`
	BookID    int32     `db:"book_id"`
	BookTitle string    `db:"book_title"`
	BookPrice string    `db:"book_price"`
	DueDate   time.Time `db:"due_date"`
	UserID    int32     `db:"user_id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
}

type ReminderRepository interface {
	ListOverdueActive(ctx context.Context, asOf time.Time) ([]OverdueLoan, error)
}

// UnitOfWork exposes the stores that take part in one transaction.
type UnitOfWork interface {
	Users() UserRepository
	Books() InventoryLedger
	Loans() LoanRepository
}

// Transactor runs fn atomically: every write made through uow commits
// together, or none of them does.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// Offset is the row offset of a 1-based page. It is computed in int64 so any
// int32 page and page size are representable.
func Offset(page, pageSize int32) int64 {
	if page < 1 || pageSize < 1 {
		return 0
	}
	return int64(page-1) * int64(pageSize)
}
