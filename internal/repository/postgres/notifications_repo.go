package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

type notificationsRepo struct{ pool *pgxpool.Pool }

func (r *notificationsRepo) Create(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, notification_type, title, message, txn_id)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.TxnID)
	return mapErr(err)
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, notification_type, title, message, txn_id, is_read, created_at
		   FROM notifications
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.TxnID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
