package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

type loansRepo struct{ pool *pgxpool.Pool }

func (r *loansRepo) ListByUser(ctx context.Context, userID string) ([]models.Loan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+loanCols+` FROM loans WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
