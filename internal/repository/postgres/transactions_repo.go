package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnCols = `id, transaction_id, type, sender_id, receiver_id, agent_id, amount, fee, status, description, created_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.TransactionID, &t.Type, &t.SenderID, &t.ReceiverID, &t.AgentID, &t.Amount, &t.Fee, &t.Status, &t.Description, &t.CreatedAt)
	return t, mapErr(err)
}

func (r *transactionsRepo) GetByTransactionID(ctx context.Context, transactionID string) (models.Transaction, error) {
	return scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE transaction_id=$1`, transactionID))
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnCols+`
		   FROM transactions t
		  WHERE t.sender_id   IN (SELECT id FROM accounts WHERE owner_id=$1)
		     OR t.receiver_id IN (SELECT id FROM accounts WHERE owner_id=$1)
		  ORDER BY t.created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]models.AgentTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT at.id, at.transaction_id, at.agent_id, at.customer_id, at.type, at.commission
		   FROM agent_transactions at
		   JOIN transactions t ON t.id = at.transaction_id
		  WHERE at.agent_id=$1
		  ORDER BY t.created_at DESC
		  LIMIT $2 OFFSET $3`,
		agentID, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.AgentTransaction
	for rows.Next() {
		var at models.AgentTransaction
		if err := rows.Scan(&at.ID, &at.TransactionID, &at.AgentID, &at.CustomerID, &at.Type, &at.Commission); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

// UpdateStatus enforces ledger immutability in the WHERE clause: a PENDING
// row may move anywhere, a COMPLETED row only to REVERSED, and FAILED or
// REVERSED rows never move again.
func (r *transactionsRepo) UpdateStatus(ctx context.Context, transactionID string, status models.TransactionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		    SET status=$2
		  WHERE transaction_id=$1
		    AND (status='PENDING' OR (status='COMPLETED' AND $2='REVERSED'))`,
		transactionID, status)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
