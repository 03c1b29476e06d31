package memory

import (
	"context"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/repository"
)

// The locked* types serve reads made outside a unit of work.

type lockedLoans struct{ s *Store }

func (r *lockedLoans) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&loans{r.s.data}).GetByID(ctx, id)
}

func (r *lockedLoans) ListByParticipant(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&loans{r.s.data}).ListByParticipant(ctx, userID, status, page, pageSize)
}

type lockedPolicy struct{ s *Store }

func (r *lockedPolicy) Get(context.Context) (domain.FinePolicy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.data.finePolicy(r.s.fallback), nil
}

type lockedReminders struct{ s *Store }

func (r *lockedReminders) ListOverdueActive(_ context.Context, asOf time.Time) ([]repository.OverdueLoan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.data.overdueActive(asOf), nil
}
