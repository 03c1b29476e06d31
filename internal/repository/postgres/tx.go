package postgres

import (
	"context"
	"database/sql"

	"library-circulation/internal/logger"
	"library-circulation/internal/repository"
)

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) repository.Transactor {
	return &transactor{db: db}
}

// WithinTransaction runs fn under READ COMMITTED; the repositories take
// row locks (SELECT ... FOR UPDATE) on every row they read-then-write.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) (err error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr, "cause", err)
			}
			err = classify(err)
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = classify(cErr)
		}
	}()

	return fn(ctx, &unitOfWork{tx: tx})
}

type unitOfWork struct {
	tx *sql.Tx
}

func (u *unitOfWork) Users() repository.UserRepository { return NewUserRepository(u.tx) }
func (u *unitOfWork) Books() repository.InventoryLedger { return NewInventoryLedger(u.tx) }
func (u *unitOfWork) Loans() repository.LoanRepository  { return NewLoanRepository(u.tx) }
