package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

type accountsRepo struct{ pool *pgxpool.Pool }

func (r *accountsRepo) GetByOwner(ctx context.Context, ownerID string, kind models.AccountKind) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE owner_id=$1 AND kind=$2`, ownerID, kind))
}

func (r *accountsRepo) GetByNumber(ctx context.Context, number string) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE account_number=$1`, number))
}
