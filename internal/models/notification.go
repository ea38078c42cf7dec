package models

import "time"

type NotificationType string

const (
	NotifySMS   NotificationType = "SMS"
	NotifyApp   NotificationType = "APP"
	NotifyEmail NotificationType = "EMAIL"
)

// Notification is a best-effort message to a user, persisted after the
// financial commit and also published to the broker. Delivery failures
// never affect the ledger.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"notification_type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	TxnID     *string          `json:"transaction_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
