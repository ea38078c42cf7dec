package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

type agentsRepo struct{ pool *pgxpool.Pool }

const agentCols = `id, user_id, business_name, business_number, location, commission_rate, is_active`

func (r *agentsRepo) Create(ctx context.Context, a models.Agent) (models.Agent, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO agents (id, user_id, business_name, business_number, location, commission_rate, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.UserID, a.BusinessName, a.BusinessNumber, a.Location, a.CommissionRate, a.IsActive)
	return a, mapErr(err)
}

func (r *agentsRepo) get(ctx context.Context, where string, arg any) (models.Agent, error) {
	var a models.Agent
	err := r.pool.QueryRow(ctx,
		`SELECT `+agentCols+` FROM agents WHERE `+where, arg,
	).Scan(&a.ID, &a.UserID, &a.BusinessName, &a.BusinessNumber, &a.Location, &a.CommissionRate, &a.IsActive)
	return a, mapErr(err)
}

func (r *agentsRepo) GetByID(ctx context.Context, id string) (models.Agent, error) {
	return r.get(ctx, `id=$1`, id)
}

func (r *agentsRepo) GetByUserID(ctx context.Context, userID string) (models.Agent, error) {
	return r.get(ctx, `user_id=$1`, userID)
}
