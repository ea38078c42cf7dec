package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/models"
	"github.com/pesaflow/pesaflow-backend/internal/notify"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
	"github.com/pesaflow/pesaflow-backend/internal/worker"
)

// loanTier maps a wallet balance threshold to the largest loan it
// unlocks. Tiers are ordered ascending; the highest threshold the
// balance meets wins. All amounts in cents.
type loanTier struct {
	MinBalance int64
	MaxLoan    int64
}

var loanTiers = []loanTier{
	{100_00, 0},
	{300_00, 50_00},
	{500_00, 100_00},
	{1000_00, 200_00},
	{2000_00, 500_00},
	{5000_00, 1000_00},
	{10000_00, 2000_00},
}

const loanTermDays = 30

// MaxLoanFor returns the largest loan a wallet balance qualifies for.
// Balances below the lowest tier qualify for nothing.
func MaxLoanFor(balance int64) int64 {
	var max int64
	for _, t := range loanTiers {
		if balance < t.MinBalance {
			break
		}
		max = t.MaxLoan
	}
	return max
}

// LoanService handles disbursement and repayment. A user holds at most
// one pending loan at a time; disbursements draw down the system account
// and repayments pay it back.
type LoanService struct {
	emitter
	ledger          repo.Ledger
	loans           repo.Loans
	systemAccountID string
	now             func() time.Time
}

func NewLoanService(ledger repo.Ledger, loans repo.Loans, audit repo.AuditLogs, notes repo.Notifications, pub notify.Publisher, wp *worker.Pool, systemAccountID string) *LoanService {
	return &LoanService{
		emitter:         emitter{audit: audit, notes: notes, pub: pub, wp: wp},
		ledger:          ledger,
		loans:           loans,
		systemAccountID: systemAccountID,
		now:             time.Now,
	}
}

func (s *LoanService) run(ctx context.Context, typ models.TransactionType, op func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error)) (models.Transaction, error) {
	var (
		txn   models.Transaction
		notes []models.Notification
	)
	var err error
	for attempt := 0; attempt < txnIDRetries; attempt++ {
		err = s.ledger.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			var opErr error
			txn, notes, opErr = op(ctx, tx)
			return opErr
		})
		if !errors.Is(err, repo.ErrDuplicateTransactionID) {
			break
		}
	}
	if err != nil {
		s.rejected(typ)
		return models.Transaction{}, err
	}
	s.emit(txn, "completed", notes)
	return txn, nil
}

// Request disburses a loan into the user's wallet if the wallet balance
// qualifies for the requested amount and the system account can fund it.
// The loan stays PENDING until repaid or acted on by an admin.
func (s *LoanService) Request(ctx context.Context, userID string, amount int64) (models.Transaction, error) {
	if amount <= 0 {
		s.rejected(models.TxnLoan)
		return models.Transaction{}, ErrInvalidAmount
	}
	return s.run(ctx, models.TxnLoan, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		pending, err := tx.PendingLoanExists(ctx, userID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if pending {
			return models.Transaction{}, nil, ErrActiveLoanExists
		}

		wallet, err := walletOf(ctx, tx, userID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		system, err := tx.AccountByID(ctx, s.systemAccountID)
		if err != nil {
			return models.Transaction{}, nil, err
		}

		locked, err := lockAccounts(ctx, tx, wallet.ID, system.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if amount > MaxLoanFor(locked[wallet.ID].Balance) {
			return models.Transaction{}, nil, ErrAboveTierLimit
		}
		if locked[system.ID].Balance < amount {
			return models.Transaction{}, nil, ErrSystemInsufficientFunds
		}

		if _, err := tx.ApplyDelta(ctx, system.ID, -amount); err != nil {
			return models.Transaction{}, nil, err
		}
		newWallet, err := tx.ApplyDelta(ctx, wallet.ID, amount)
		if err != nil {
			return models.Transaction{}, nil, err
		}

		now := s.now()
		if _, err := tx.CreateLoan(ctx, models.Loan{
			UserID:    userID,
			Amount:    amount,
			DueDate:   now.AddDate(0, 0, loanTermDays),
			Status:    models.LoanPending,
			Remaining: amount,
		}); err != nil {
			return models.Transaction{}, nil, err
		}

		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(models.TxnLoan),
			Type:          models.TxnLoan,
			SenderID:      &system.ID,
			ReceiverID:    &wallet.ID,
			Amount:        amount,
			Status:        models.TxnCompleted,
			Description:   "Loan disbursement",
		})
		if err != nil {
			return models.Transaction{}, nil, err
		}

		note := models.Notification{
			UserID: userID,
			Type:   models.NotifySMS,
			Title:  "Loan disbursed",
			Message: fmt.Sprintf("%s loan of %s disbursed. New balance: %s. Due %s.",
				txn.TransactionID, models.FormatAmount(amount), models.FormatAmount(newWallet.Balance),
				now.AddDate(0, 0, loanTermDays).Format("02 Jan 2006")),
		}
		return txn, []models.Notification{note}, nil
	})
}

// Repay applies amount against the user's outstanding loan. Repayments
// above the remaining balance are clamped; only the applied portion
// leaves the wallet.
func (s *LoanService) Repay(ctx context.Context, userID string, amount int64) (models.Transaction, error) {
	if amount <= 0 {
		s.rejected(models.TxnPayment)
		return models.Transaction{}, ErrInvalidAmount
	}
	return s.run(ctx, models.TxnPayment, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		loan, err := tx.OutstandingLoan(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, nil, ErrNoActiveLoan
		}
		if err != nil {
			return models.Transaction{}, nil, err
		}

		wallet, err := walletOf(ctx, tx, userID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		system, err := tx.AccountByID(ctx, s.systemAccountID)
		if err != nil {
			return models.Transaction{}, nil, err
		}

		applied, err := loan.ApplyRepayment(amount)
		if err != nil {
			return models.Transaction{}, nil, ErrNoActiveLoan
		}

		locked, err := lockAccounts(ctx, tx, wallet.ID, system.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if locked[wallet.ID].Balance < applied {
			return models.Transaction{}, nil, ErrInsufficientBalance
		}

		newWallet, err := tx.ApplyDelta(ctx, wallet.ID, -applied)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.ApplyDelta(ctx, system.ID, applied); err != nil {
			return models.Transaction{}, nil, err
		}
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return models.Transaction{}, nil, err
		}

		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(models.TxnPayment),
			Type:          models.TxnPayment,
			SenderID:      &wallet.ID,
			ReceiverID:    &system.ID,
			Amount:        applied,
			Status:        models.TxnCompleted,
			Description:   "Loan repayment",
		})
		if err != nil {
			return models.Transaction{}, nil, err
		}

		msg := fmt.Sprintf("%s repaid %s. Loan balance: %s. Wallet balance: %s.",
			txn.TransactionID, models.FormatAmount(applied), models.FormatAmount(loan.Remaining), models.FormatAmount(newWallet.Balance))
		if loan.IsPaid() {
			msg = fmt.Sprintf("%s repaid %s. Loan fully repaid. Wallet balance: %s.",
				txn.TransactionID, models.FormatAmount(applied), models.FormatAmount(newWallet.Balance))
		}
		note := models.Notification{
			UserID:  userID,
			Type:    models.NotifySMS,
			Title:   "Loan repayment",
			Message: msg,
		}
		return txn, []models.Notification{note}, nil
	})
}

// MaxLoan reports the largest loan the user's current wallet balance
// qualifies for. Read-only; no lock is taken, so the answer is advisory.
func (s *LoanService) MaxLoan(ctx context.Context, userID string) (int64, error) {
	var max int64
	err := s.ledger.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		wallet, err := walletOf(ctx, tx, userID)
		if err != nil {
			return err
		}
		max = MaxLoanFor(wallet.Balance)
		return nil
	})
	return max, err
}

func (s *LoanService) ListByUser(ctx context.Context, userID string) ([]models.Loan, error) {
	return s.loans.ListByUser(ctx, userID)
}
