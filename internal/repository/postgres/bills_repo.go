package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

type billsRepo struct{ pool *pgxpool.Pool }

func (r *billsRepo) Create(ctx context.Context, b models.Bill) (models.Bill, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bills (id, biller_name, bill_type, account_number, amount, due_date, is_paid)
		 VALUES ($1,$2,$3,$4,$5,$6,false)`,
		b.ID, b.BillerName, b.Type, b.AccountNumber, b.Amount, b.DueDate)
	return b, mapErr(err)
}

func (r *billsRepo) ListUnpaid(ctx context.Context, limit int) ([]models.Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, biller_name, bill_type, account_number, amount, due_date, is_paid, payment_txn_id
		   FROM bills WHERE NOT is_paid ORDER BY due_date LIMIT $1`, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Bill
	for rows.Next() {
		var b models.Bill
		if err := rows.Scan(&b.ID, &b.BillerName, &b.Type, &b.AccountNumber, &b.Amount, &b.DueDate, &b.IsPaid, &b.PaymentTxnID); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
