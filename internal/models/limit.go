package models

// Limit is a global per-transaction-type policy. Only active rows are
// enforced; a missing row means the type is unconstrained.
type Limit struct {
	ID         string          `json:"id"`
	Type       TransactionType `json:"transaction_type"`
	MinAmount  int64           `json:"min_amount"`
	MaxAmount  int64           `json:"max_amount"`
	DailyLimit int64           `json:"daily_limit"`
	IsActive   bool            `json:"is_active"`
}

// UserLimit overrides the global max and daily cap for one user and type.
// The source carries no per-user minimum, so none exists here either.
type UserLimit struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Type       TransactionType `json:"transaction_type"`
	MaxAmount  int64           `json:"max_amount"`
	DailyLimit int64           `json:"daily_limit"`
}
