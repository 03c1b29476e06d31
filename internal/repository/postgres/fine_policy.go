package postgres

import (
	"context"
	"database/sql"
	"errors"

	"library-circulation/internal/domain"
	"library-circulation/internal/repository"
)

type finePolicyRepository struct {
	db       DBTX
	fallback domain.FinePolicy
}

func NewFinePolicyRepository(db DBTX, fallback domain.FinePolicy) repository.FinePolicyRepository {
	return &finePolicyRepository{db: db, fallback: fallback}
}

// Get reads the policy on every call, so edits to the row apply to the next settlement.
func (r *finePolicyRepository) Get(ctx context.Context) (domain.FinePolicy, error) {
	var p domain.FinePolicy
	query := `SELECT daily_rate, lost_multiplier, small_damage_pct, large_damage_pct, overdue_threshold_days FROM fine_policy WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&p.DailyRate, &p.LostMultiplier, &p.SmallDamagePct, &p.LargeDamagePct, &p.OverdueThresholdDays)
	if errors.Is(err, sql.ErrNoRows) {
		return r.fallback, nil
	}
	if err != nil {
		return domain.FinePolicy{}, err
	}
	return p, nil
}
