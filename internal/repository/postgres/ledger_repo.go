package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

const txRetries = 3

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedger(pool *pgxpool.Pool) repo.Ledger { return &ledgerRepo{pool: pool} }

// WithTx runs fn in one serializable transaction. Serialization failures
// and deadlocks are retried up to txRetries times; everything else rolls
// back and surfaces as-is.
func (r *ledgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error {
	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !errors.Is(err, repo.ErrConflict) {
			return err
		}
	}
	return err
}

func (r *ledgerRepo) runOnce(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return mapErr(err)
	}
	lt := &ledgerTx{q: tx}
	if err := fn(ctx, lt); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return mapErr(tx.Commit(ctx))
}

type ledgerTx struct{ q pgx.Tx }

const accountCols = `id, owner_id, kind, account_number, balance, COALESCE(pin_hash,''), is_active, created_at, last_activity`

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Kind, &a.AccountNumber, &a.Balance, &a.PINHash, &a.IsActive, &a.CreatedAt, &a.LastActivity)
	return a, mapErr(err)
}

func (t *ledgerTx) AccountByID(ctx context.Context, id string) (models.Account, error) {
	return scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id=$1`, id))
}

func (t *ledgerTx) AccountByOwner(ctx context.Context, ownerID string, kind models.AccountKind) (models.Account, error) {
	return scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE owner_id=$1 AND kind=$2`, ownerID, kind))
}

func (t *ledgerTx) WalletByPhone(ctx context.Context, phone string) (models.Account, error) {
	return scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountCols+`
		   FROM accounts a
		  WHERE a.kind='WALLET'
		    AND a.owner_id = (SELECT id FROM users WHERE phone_number=$1)`, phone))
}

func (t *ledgerTx) LockAccount(ctx context.Context, id string) (models.Account, error) {
	return scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
}

func (t *ledgerTx) ApplyDelta(ctx context.Context, id string, delta int64) (models.Account, error) {
	return scanAccount(t.q.QueryRow(ctx,
		`UPDATE accounts
		    SET balance = balance + $2,
		        last_activity = now()
		  WHERE id=$1
		  RETURNING `+accountCols, id, delta))
}

func (t *ledgerTx) CreateTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	err := t.q.QueryRow(ctx,
		`INSERT INTO transactions (id, transaction_id, type, sender_id, receiver_id, agent_id, amount, fee, status, description)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING created_at`,
		txn.ID, txn.TransactionID, txn.Type, txn.SenderID, txn.ReceiverID, txn.AgentID,
		txn.Amount, txn.Fee, txn.Status, txn.Description,
	).Scan(&txn.CreatedAt)
	return txn, mapErr(err)
}

func (t *ledgerTx) CreateAgentTransaction(ctx context.Context, at models.AgentTransaction) (models.AgentTransaction, error) {
	if at.ID == "" {
		at.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO agent_transactions (id, transaction_id, agent_id, customer_id, type, commission)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		at.ID, at.TransactionID, at.AgentID, at.CustomerID, at.Type, at.Commission)
	return at, mapErr(err)
}

func (t *ledgerTx) SumCompleted(ctx context.Context, userID string, typ models.TransactionType, from, to time.Time) (int64, error) {
	var sum int64
	// The customer side of a DEPOSIT is the receiver; everywhere else it
	// is the sender.
	err := t.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(tr.amount), 0)
		   FROM transactions tr
		   JOIN accounts a ON a.id = CASE WHEN tr.type='DEPOSIT' THEN tr.receiver_id ELSE tr.sender_id END
		  WHERE a.owner_id=$1 AND tr.type=$2 AND tr.status='COMPLETED'
		    AND tr.created_at >= $3 AND tr.created_at < $4`,
		userID, typ, from, to).Scan(&sum)
	return sum, mapErr(err)
}

func (t *ledgerTx) AgentByID(ctx context.Context, id string) (models.Agent, error) {
	var a models.Agent
	err := t.q.QueryRow(ctx,
		`SELECT id, user_id, business_name, business_number, location, commission_rate, is_active
		   FROM agents WHERE id=$1`, id,
	).Scan(&a.ID, &a.UserID, &a.BusinessName, &a.BusinessNumber, &a.Location, &a.CommissionRate, &a.IsActive)
	return a, mapErr(err)
}

func (t *ledgerTx) GlobalLimit(ctx context.Context, typ models.TransactionType) (models.Limit, error) {
	var l models.Limit
	err := t.q.QueryRow(ctx,
		`SELECT id, transaction_type, min_amount, max_amount, daily_limit, is_active
		   FROM limits WHERE transaction_type=$1 AND is_active`, typ,
	).Scan(&l.ID, &l.Type, &l.MinAmount, &l.MaxAmount, &l.DailyLimit, &l.IsActive)
	return l, mapErr(err)
}

func (t *ledgerTx) UserLimit(ctx context.Context, userID string, typ models.TransactionType) (models.UserLimit, error) {
	var l models.UserLimit
	err := t.q.QueryRow(ctx,
		`SELECT id, user_id, transaction_type, max_amount, daily_limit
		   FROM user_limits WHERE user_id=$1 AND transaction_type=$2`, userID, typ,
	).Scan(&l.ID, &l.UserID, &l.Type, &l.MaxAmount, &l.DailyLimit)
	return l, mapErr(err)
}

const loanCols = `id, user_id, amount, interest_rate, due_date, status, remaining_amount, created_at, updated_at`

func scanLoan(row pgx.Row) (models.Loan, error) {
	var l models.Loan
	err := row.Scan(&l.ID, &l.UserID, &l.Amount, &l.InterestRate, &l.DueDate, &l.Status, &l.Remaining, &l.CreatedAt, &l.UpdatedAt)
	return l, mapErr(err)
}

// OutstandingLoan locks the user's open loan row so concurrent repayments
// serialize on it.
func (t *ledgerTx) OutstandingLoan(ctx context.Context, userID string) (models.Loan, error) {
	return scanLoan(t.q.QueryRow(ctx,
		`SELECT `+loanCols+`
		   FROM loans
		  WHERE user_id=$1 AND remaining_amount > 0 AND status IN ('PENDING','APPROVED')
		  ORDER BY created_at
		  LIMIT 1
		  FOR UPDATE`, userID))
}

func (t *ledgerTx) PendingLoanExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=$1 AND status='PENDING')`, userID,
	).Scan(&exists)
	return exists, mapErr(err)
}

func (t *ledgerTx) CreateLoan(ctx context.Context, l models.Loan) (models.Loan, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := t.q.QueryRow(ctx,
		`INSERT INTO loans (id, user_id, amount, interest_rate, due_date, status, remaining_amount)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at, updated_at`,
		l.ID, l.UserID, l.Amount, l.InterestRate, l.DueDate, l.Status, l.Remaining,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	return l, mapErr(err)
}

func (t *ledgerTx) UpdateLoan(ctx context.Context, l models.Loan) error {
	_, err := t.q.Exec(ctx,
		`UPDATE loans SET status=$2, remaining_amount=$3, updated_at=now() WHERE id=$1`,
		l.ID, l.Status, l.Remaining)
	return mapErr(err)
}

func (t *ledgerTx) BillByID(ctx context.Context, id string) (models.Bill, error) {
	var b models.Bill
	err := t.q.QueryRow(ctx,
		`SELECT id, biller_name, bill_type, account_number, amount, due_date, is_paid, payment_txn_id
		   FROM bills WHERE id=$1 FOR UPDATE`, id,
	).Scan(&b.ID, &b.BillerName, &b.Type, &b.AccountNumber, &b.Amount, &b.DueDate, &b.IsPaid, &b.PaymentTxnID)
	return b, mapErr(err)
}

func (t *ledgerTx) MarkBillPaid(ctx context.Context, billID, txnID string) error {
	_, err := t.q.Exec(ctx,
		`UPDATE bills SET is_paid=true, payment_txn_id=$2 WHERE id=$1`, billID, txnID)
	return mapErr(err)
}

func (t *ledgerTx) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := t.q.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, id_number, phone_number, is_verified)
		 VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8)
		 RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IDNumber, u.PhoneNumber, u.IsVerified,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err)
}

func (t *ledgerTx) UserByPhone(ctx context.Context, phone string) (models.User, error) {
	var u models.User
	err := t.q.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, COALESCE(id_number,''), COALESCE(phone_number,''), is_verified, created_at, updated_at
		   FROM users WHERE phone_number=$1`, phone,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IDNumber, &u.PhoneNumber, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err)
}

func (t *ledgerTx) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := t.q.QueryRow(ctx,
		`INSERT INTO accounts (id, owner_id, kind, account_number, balance, pin_hash, is_active)
		 VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
		 RETURNING created_at, last_activity`,
		a.ID, a.OwnerID, a.Kind, a.AccountNumber, a.Balance, a.PINHash, a.IsActive,
	).Scan(&a.CreatedAt, &a.LastActivity)
	return a, mapErr(err)
}

func (t *ledgerTx) CreateAgent(ctx context.Context, a models.Agent) (models.Agent, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO agents (id, user_id, business_name, business_number, location, commission_rate, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.UserID, a.BusinessName, a.BusinessNumber, a.Location, a.CommissionRate, a.IsActive)
	return a, mapErr(err)
}

func (t *ledgerTx) CountActivePhoneLines(ctx context.Context, idNumber string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM phone_lines WHERE id_number=$1 AND is_active`, idNumber).Scan(&n)
	return n, mapErr(err)
}

func (t *ledgerTx) CreatePhoneLine(ctx context.Context, l models.PhoneLine) (models.PhoneLine, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := t.q.QueryRow(ctx,
		`INSERT INTO phone_lines (id, id_number, phone_number, is_active)
		 VALUES ($1,$2,$3,$4)
		 RETURNING registered_at`,
		l.ID, l.IDNumber, l.PhoneNumber, l.IsActive,
	).Scan(&l.RegisteredAt)
	return l, mapErr(err)
}
