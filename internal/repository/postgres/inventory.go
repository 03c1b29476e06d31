package postgres

import (
	"context"
	"fmt"

	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/repository"
)

type inventoryLedger struct {
	db DBTX
}

func NewInventoryLedger(db DBTX) repository.InventoryLedger {
	return &inventoryLedger{db: db}
}

func (r *inventoryLedger) GetForUpdate(ctx context.Context, bookID int32) (*domain.Book, error) {
	b := &domain.Book{}
	query := `SELECT id, title, price, total_copies, available_copies FROM books WHERE id = $1 FOR UPDATE`
	err := r.db.QueryRowContext(ctx, query, bookID).Scan(&b.ID, &b.Title, &b.Price, &b.TotalCopies, &b.AvailableCopies)
	if err != nil {
		return nil, notFound(err, "book")
	}
	return b, nil
}

// DecrementIfPositive takes one copy out of circulation. The guard in the
// WHERE clause is evaluated against the latest committed row, so it holds
// even when the caller skipped the row lock.
func (r *inventoryLedger) DecrementIfPositive(ctx context.Context, bookID int32) (bool, error) {
	query := `UPDATE books SET available_copies = available_copies - 1 WHERE id = $1 AND available_copies > 0`
	res, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	logger.DatabaseResult("UPDATE", n, nil, "operation", "decrement", "bookID", bookID)
	return n == 1, nil
}

// Increment puts one copy back. Going above total_copies means the counter
// and the loans disagree; that is reported, never clamped.
func (r *inventoryLedger) Increment(ctx context.Context, bookID int32) error {
	query := `UPDATE books SET available_copies = available_copies + 1 WHERE id = $1 AND available_copies < total_copies`
	res, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		logger.ErrorContext(ctx, "Inventory integrity fault: increment would exceed total copies", "bookID", bookID)
		return domain.Internal(fmt.Sprintf("inventory integrity fault on book %d", bookID), nil)
	}
	return nil
}
