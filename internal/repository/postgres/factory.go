package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

type Repositories struct {
	Ledger        repo.Ledger
	Users         repo.Users
	Accounts      repo.Accounts
	Agents        repo.Agents
	Transactions  repo.Transactions
	Loans         repo.Loans
	Bills         repo.Bills
	Limits        repo.Limits
	Notifications repo.Notifications
	AuditLogs     repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Ledger:        &ledgerRepo{pool},
		Users:         &usersRepo{pool},
		Accounts:      &accountsRepo{pool},
		Agents:        &agentsRepo{pool},
		Transactions:  &transactionsRepo{pool},
		Loans:         &loansRepo{pool},
		Bills:         &billsRepo{pool},
		Limits:        &limitsRepo{pool},
		Notifications: &notificationsRepo{pool},
		AuditLogs:     &auditLogsRepo{pool},
	}
}
