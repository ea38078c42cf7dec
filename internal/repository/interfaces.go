package repository

import (
	"context"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

// Tx is one atomic unit of ledger work. Every balance-mutating business
// operation runs inside exactly one Tx: it either fully commits or leaves
// no trace. Lookups do not lock; LockAccount takes the row lock, and
// callers acquire locks in ascending account-ID order.
type Tx interface {
	AccountByID(ctx context.Context, id string) (models.Account, error)
	AccountByOwner(ctx context.Context, ownerID string, kind models.AccountKind) (models.Account, error)
	WalletByPhone(ctx context.Context, phone string) (models.Account, error)
	LockAccount(ctx context.Context, id string) (models.Account, error)
	// ApplyDelta adds delta cents to a locked account's balance.
	ApplyDelta(ctx context.Context, id string, delta int64) (models.Account, error)

	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	CreateAgentTransaction(ctx context.Context, t models.AgentTransaction) (models.AgentTransaction, error)
	// SumCompleted totals the user's COMPLETED transactions of one type in
	// [from, to); it backs the daily cumulative cap. The user's side is
	// the receiver for DEPOSIT and the sender for everything else.
	SumCompleted(ctx context.Context, userID string, typ models.TransactionType, from, to time.Time) (int64, error)

	AgentByID(ctx context.Context, id string) (models.Agent, error)

	GlobalLimit(ctx context.Context, typ models.TransactionType) (models.Limit, error)
	UserLimit(ctx context.Context, userID string, typ models.TransactionType) (models.UserLimit, error)

	OutstandingLoan(ctx context.Context, userID string) (models.Loan, error)
	PendingLoanExists(ctx context.Context, userID string) (bool, error)
	CreateLoan(ctx context.Context, l models.Loan) (models.Loan, error)
	UpdateLoan(ctx context.Context, l models.Loan) error

	BillByID(ctx context.Context, id string) (models.Bill, error)
	MarkBillPaid(ctx context.Context, billID, txnID string) error

	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UserByPhone(ctx context.Context, phone string) (models.User, error)
	CreateAccount(ctx context.Context, a models.Account) (models.Account, error)
	CreateAgent(ctx context.Context, a models.Agent) (models.Agent, error)
	CountActivePhoneLines(ctx context.Context, idNumber string) (int, error)
	CreatePhoneLine(ctx context.Context, l models.PhoneLine) (models.PhoneLine, error)
}

// Ledger runs fn inside a single serializable database transaction,
// retrying bounded times on serialization failures and deadlocks.
type Ledger interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Users interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByPhone(ctx context.Context, phone string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Accounts interface {
	GetByOwner(ctx context.Context, ownerID string, kind models.AccountKind) (models.Account, error)
	GetByNumber(ctx context.Context, number string) (models.Account, error)
}

type Agents interface {
	Create(ctx context.Context, a models.Agent) (models.Agent, error)
	GetByID(ctx context.Context, id string) (models.Agent, error)
	GetByUserID(ctx context.Context, userID string) (models.Agent, error)
}

type Transactions interface {
	GetByTransactionID(ctx context.Context, transactionID string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]models.AgentTransaction, error)
	// UpdateStatus enforces immutability: PENDING may move anywhere,
	// COMPLETED only to REVERSED, FAILED and REVERSED never move.
	UpdateStatus(ctx context.Context, transactionID string, status models.TransactionStatus) error
}

type Loans interface {
	ListByUser(ctx context.Context, userID string) ([]models.Loan, error)
}

type Bills interface {
	Create(ctx context.Context, b models.Bill) (models.Bill, error)
	ListUnpaid(ctx context.Context, limit int) ([]models.Bill, error)
}

type Limits interface {
	Upsert(ctx context.Context, l models.Limit) (models.Limit, error)
	UpsertUserLimit(ctx context.Context, l models.UserLimit) (models.UserLimit, error)
}

type Notifications interface {
	Create(ctx context.Context, n models.Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
