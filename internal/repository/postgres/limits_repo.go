package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

type limitsRepo struct{ pool *pgxpool.Pool }

func (r *limitsRepo) Upsert(ctx context.Context, l models.Limit) (models.Limit, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO limits (id, transaction_type, min_amount, max_amount, daily_limit, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (transaction_type) DO UPDATE
		 SET min_amount=EXCLUDED.min_amount,
		     max_amount=EXCLUDED.max_amount,
		     daily_limit=EXCLUDED.daily_limit,
		     is_active=EXCLUDED.is_active`,
		l.ID, l.Type, l.MinAmount, l.MaxAmount, l.DailyLimit, l.IsActive)
	return l, mapErr(err)
}

func (r *limitsRepo) UpsertUserLimit(ctx context.Context, l models.UserLimit) (models.UserLimit, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_limits (id, user_id, transaction_type, max_amount, daily_limit)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id, transaction_type) DO UPDATE
		 SET max_amount=EXCLUDED.max_amount,
		     daily_limit=EXCLUDED.daily_limit`,
		l.ID, l.UserID, l.Type, l.MaxAmount, l.DailyLimit)
	return l, mapErr(err)
}
