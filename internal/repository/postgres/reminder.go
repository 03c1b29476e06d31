package postgres

import (
	"context"
	"time"

	"library-circulation/internal/repository"

	"github.com/jmoiron/sqlx"
)

type reminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

// ListOverdueActive returns one row per participant of every ACTIVE loan
// whose due date is before asOf. It never changes loan status.
func (r *reminderRepository) ListOverdueActive(ctx context.Context, asOf time.Time) ([]repository.OverdueLoan, error) {
	query := `SELECT l.id AS loan_id, l.book_id, b.title AS book_title, b.price::text AS book_price, l.due_date,
	                 u.id AS user_id, u.email, u.name
	          FROM loans l
	          JOIN books b ON b.id = l.book_id
	          JOIN loan_participants p ON p.loan_id = l.id
	          JOIN users u ON u.id = p.user_id
	          WHERE l.status = 'ACTIVE' AND l.due_date < $1
	          ORDER BY l.due_date, l.id, p.position`

	var rows []repository.OverdueLoan
	if err := r.db.SelectContext(ctx, &rows, query, asOf); err != nil {
		return nil, err
	}
	return rows, nil
}
