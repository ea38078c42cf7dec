package services

import (
	"context"

	"github.com/pesaflow/pesaflow-backend/internal/metrics"
	"github.com/pesaflow/pesaflow-backend/internal/models"
	"github.com/pesaflow/pesaflow-backend/internal/notify"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
	"github.com/pesaflow/pesaflow-backend/internal/worker"
)

// emitter handles everything that happens after an atomic unit commits:
// metrics, the audit trail, and best-effort notifications. All of it runs
// on the worker pool so no ledger operation blocks on I/O it does not
// need, and none of it can roll back a committed financial mutation.
type emitter struct {
	audit repo.AuditLogs
	notes repo.Notifications
	pub   notify.Publisher
	wp    *worker.Pool
}

func (e *emitter) emit(txn models.Transaction, action string, ns []models.Notification) {
	metrics.TransactionsTotal.WithLabelValues(string(txn.Type)).Inc()
	if txn.Fee > 0 {
		metrics.FeesCollected.Add(float64(txn.Fee))
	}
	e.wp.Submit(func() {
		ctx := context.Background()
		id := txn.TransactionID
		_ = e.audit.Create(ctx, models.AuditLog{
			EntityType: "transaction",
			EntityID:   &id,
			Action:     action,
			Details: map[string]any{
				"type":   string(txn.Type),
				"amount": txn.Amount,
				"fee":    txn.Fee,
			},
		})
		for _, n := range ns {
			n := n
			n.TxnID = &txn.ID
			_ = e.notes.Create(ctx, n)
			_ = e.pub.Publish(ctx, notify.Event{
				UserID:        n.UserID,
				Type:          n.Type,
				Title:         n.Title,
				Message:       n.Message,
				TransactionID: txn.TransactionID,
			})
		}
	})
}

func (e *emitter) rejected(typ models.TransactionType) {
	metrics.TransactionsFailed.WithLabelValues(string(typ)).Inc()
}
