package postgres

import (
	"context"
	"strings"

	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/repository"

	"github.com/lib/pq"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, name, verified, removed_on FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.Verified, &u.RemovedOn)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *userRepository) ResolveByEmails(ctx context.Context, emails []string) (map[string]*domain.User, error) {
	found := make(map[string]*domain.User, len(emails))
	if len(emails) == 0 {
		return found, nil
	}

	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	query := `SELECT id, email, name, verified, removed_on FROM users WHERE LOWER(email) = ANY($1)`
	logger.DatabaseCall("SELECT", "users by email", "count", len(lowered))
	rows, err := r.db.QueryContext(ctx, query, pq.Array(lowered))
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Verified, &u.RemovedOn); err != nil {
			return nil, err
		}
		found[strings.ToLower(u.Email)] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("SELECT", int64(len(found)), nil)
	return found, nil
}

// LockParticipants serialises concurrent borrows by the same people. Rows are
// locked in id order so two group borrows cannot deadlock on each other.
func (r *userRepository) LockParticipants(ctx context.Context, ids []int32) error {
	if len(ids) == 0 {
		return nil
	}
	query := `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(toInt64s(ids)))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func toInt64s(ids []int32) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
