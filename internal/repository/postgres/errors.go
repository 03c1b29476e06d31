package postgres

import (
	"database/sql"
	"errors"

	"library-circulation/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	activeParticipantIndex = "loan_participants_one_active_idx"
)

// pgError extracts the SQLSTATE and constraint name from either driver's error type.
func pgError(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

// classify turns store errors into the circulation error taxonomy.
// Errors that already carry a kind pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	if code, constraint, ok := pgError(err); ok {
		switch code {
		case codeUniqueViolation:
			if constraint == activeParticipantIndex {
				return domain.NewError(domain.KindAlreadyBorrowing, "participant already has an active loan")
			}
			return domain.NewError(domain.KindConflict, "concurrent update on "+constraint)
		case codeSerializationFailure, codeDeadlockDetected:
			return domain.NewError(domain.KindConflict, "transaction lost a concurrent update, retry")
		case codeCheckViolation:
			return domain.Internal("data integrity check failed on "+constraint, err)
		}
	}
	return domain.Internal("store operation failed", err)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewError(domain.KindNotFound, what+" not found")
	}
	return err
}
