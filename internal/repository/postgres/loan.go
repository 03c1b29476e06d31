package postgres

import (
	"context"
	"fmt"

	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/repository"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
)

const dialectPostgres = "postgres"

type loanRepository struct {
	db DBTX
}

func NewLoanRepository(db DBTX) repository.LoanRepository {
	return &loanRepository{db: db}
}

const selectLoan = `SELECT l.id, l.book_id, l.borrow_type, l.status, l.created_on, l.due_date, l.settled_on, l.total_fine,
	i.returned, i.damage_level, i.damage_notes, i.damage_fine
	FROM loans l JOIN loaned_items i ON i.loan_id = l.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanLoan(s scanner) (*domain.Loan, error) {
	l := &domain.Loan{}
	err := s.Scan(&l.ID, &l.BookID, &l.BorrowType, &l.Status, &l.CreatedOn, &l.DueDate, &l.SettledOn, &l.TotalFine,
		&l.Item.Returned, &l.Item.Damage, &l.Item.DamageNotes, &l.Item.DamageFine)
	if err != nil {
		return nil, err
	}
	l.Item.BookID = l.BookID
	return l, nil
}

// Create inserts the loan, its participants and its loaned item. A participant
// that already holds an active loan trips loan_participants_one_active_idx.
func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	query := `INSERT INTO loans (book_id, borrow_type, status, created_on, due_date, total_fine)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, l.BookID, l.BorrowType, l.Status, l.CreatedOn, l.DueDate, l.TotalFine).Scan(&l.ID)
	if err != nil {
		return err
	}

	participants := `INSERT INTO loan_participants (loan_id, user_id, position)
	                 SELECT $1, p.user_id, p.position FROM unnest($2::int[]) WITH ORDINALITY AS p(user_id, position)`
	if _, err := r.db.ExecContext(ctx, participants, l.ID, pq.Array(toInt64s(l.ParticipantIDs()))); err != nil {
		return classify(err)
	}

	item := `INSERT INTO loaned_items (loan_id, book_id, returned, damage_level, damage_notes, damage_fine)
	         VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, item, l.ID, l.BookID, l.Item.Returned, l.Item.Damage, l.Item.DamageNotes, l.Item.DamageFine)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	return r.get(ctx, selectLoan+` WHERE l.id = $1`, id)
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	return r.get(ctx, selectLoan+` WHERE l.id = $1 FOR UPDATE OF l`, id)
}

func (r *loanRepository) get(ctx context.Context, query string, id int32) (*domain.Loan, error) {
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "loan")
	}
	byLoan, err := r.participants(ctx, []int32{l.ID})
	if err != nil {
		return nil, err
	}
	l.Participants = byLoan[l.ID]
	return l, nil
}

func (r *loanRepository) participants(ctx context.Context, loanIDs []int32) (map[int32][]domain.Participant, error) {
	query := `SELECT p.loan_id, p.user_id, u.email, u.name FROM loan_participants p JOIN users u ON u.id = p.user_id
	          WHERE p.loan_id = ANY($1) ORDER BY p.loan_id, p.position`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(toInt64s(loanIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int32][]domain.Participant, len(loanIDs))
	for rows.Next() {
		var loanID int32
		var p domain.Participant
		if err := rows.Scan(&loanID, &p.UserID, &p.Email, &p.Name); err != nil {
			return nil, err
		}
		out[loanID] = append(out[loanID], p)
	}
	return out, rows.Err()
}

func (r *loanRepository) FindActiveByParticipants(ctx context.Context, userIDs []int32) ([]domain.ActiveLoanConflict, error) {
	query := `SELECT p.user_id, u.email, l.id, l.book_id, b.title
	          FROM loan_participants p
	          JOIN loans l ON l.id = p.loan_id
	          JOIN users u ON u.id = p.user_id
	          JOIN books b ON b.id = l.book_id
	          WHERE l.status = 'ACTIVE' AND p.user_id = ANY($1)
	          ORDER BY p.user_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(toInt64s(userIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []domain.ActiveLoanConflict
	for rows.Next() {
		var c domain.ActiveLoanConflict
		if err := rows.Scan(&c.UserID, &c.Email, &c.LoanID, &c.BookID, &c.BookTitle); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// Settle persists a terminal loan. The status guard makes a second settlement
// of the same loan a NOT_ACTIVE refusal rather than a double write.
func (r *loanRepository) Settle(ctx context.Context, l *domain.Loan) error {
	if !l.Status.IsTerminal() || l.SettledOn == nil {
		return domain.Internal(fmt.Sprintf("loan %d is not settled", l.ID), nil)
	}

	query := `UPDATE loans SET status = $1, settled_on = $2, total_fine = $3 WHERE id = $4 AND status = 'ACTIVE'`
	res, err := r.db.ExecContext(ctx, query, l.Status, *l.SettledOn, l.TotalFine, l.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewError(domain.KindNotActive, fmt.Sprintf("loan %d is no longer active", l.ID))
	}

	item := `UPDATE loaned_items SET returned = $1, damage_level = $2, damage_notes = $3, damage_fine = $4 WHERE loan_id = $5`
	if _, err := r.db.ExecContext(ctx, item, l.Item.Returned, l.Item.Damage, l.Item.DamageNotes, l.Item.DamageFine, l.ID); err != nil {
		return err
	}

	release := `UPDATE loan_participants SET released_on = $1 WHERE loan_id = $2 AND released_on IS NULL`
	_, err = r.db.ExecContext(ctx, release, *l.SettledOn, l.ID)
	return err
}

func (r *loanRepository) ListByParticipant(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error) {
	base := goqu.Dialect(dialectPostgres).
		From(goqu.T("loans").As("l")).
		Join(goqu.T("loaned_items").As("i"), goqu.On(goqu.I("i.loan_id").Eq(goqu.I("l.id")))).
		Join(goqu.T("loan_participants").As("p"), goqu.On(goqu.I("p.loan_id").Eq(goqu.I("l.id")))).
		Where(goqu.I("p.user_id").Eq(userID))
	if status != "" {
		base = base.Where(goqu.I("l.status").Eq(status))
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var count int32
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&count); err != nil {
		return nil, 0, err
	}

	offset := repository.Offset(page, pageSize)
	if offset >= int64(count) {
		return nil, count, nil
	}
	listSQL, listArgs, err := base.
		Select("l.id", "l.book_id", "l.borrow_type", "l.status", "l.created_on", "l.due_date", "l.settled_on", "l.total_fine",
			"i.returned", "i.damage_level", "i.damage_notes", "i.damage_fine").
		Order(goqu.I("l.created_on").Desc(), goqu.I("l.id").Desc()).
		Limit(uint(pageSize)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	logger.DatabaseCall("SELECT", "loans by participant", "userID", userID, "status", status)
	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var loans []domain.Loan
	var ids []int32
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, 0, err
		}
		loans = append(loans, *l)
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(loans) == 0 {
		return loans, count, nil
	}

	byLoan, err := r.participants(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range loans {
		loans[i].Participants = byLoan[loans[i].ID]
	}
	return loans, count, nil
}
