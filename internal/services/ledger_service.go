package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/fees"
	"github.com/pesaflow/pesaflow-backend/internal/models"
	"github.com/pesaflow/pesaflow-backend/internal/notify"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
	"github.com/pesaflow/pesaflow-backend/internal/worker"
)

// MinWithdrawal is the hard floor for agent cash withdrawals, in cents.
const MinWithdrawal = 50_00

const txnIDRetries = 5

// LedgerService is the transaction engine. Every operation is one atomic
// unit: preconditions, limit checks, fee computation, balance mutations
// and the ledger row either all commit or none do. Accounts touched by an
// operation are locked in ascending account-ID order.
type LedgerService struct {
	emitter
	ledger repo.Ledger
	trx    repo.Transactions
	// System account id, injected from configuration at startup. Float
	// adjustments, loans, airtime and bill payments settle against it.
	systemAccountID string
	now             func() time.Time
}

func NewLedgerService(ledger repo.Ledger, trx repo.Transactions, audit repo.AuditLogs, notes repo.Notifications, pub notify.Publisher, wp *worker.Pool, systemAccountID string) *LedgerService {
	return &LedgerService{
		emitter:         emitter{audit: audit, notes: notes, pub: pub, wp: wp},
		ledger:          ledger,
		trx:             trx,
		systemAccountID: systemAccountID,
		now:             time.Now,
	}
}

// lockAccounts takes row locks in ascending account-ID order so two
// operations touching the same pair of accounts can never deadlock.
func lockAccounts(ctx context.Context, tx repo.Tx, ids ...string) (map[string]models.Account, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]models.Account, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		a, err := tx.LockAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

// run executes op as one atomic unit, regenerating transaction ids on the
// (rare) collision; serialization conflicts are retried one level down in
// the Ledger implementation.
func (s *LedgerService) run(ctx context.Context, typ models.TransactionType, op func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error)) (models.Transaction, error) {
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

func (s *LedgerService) agentAccounts(ctx context.Context, tx repo.Tx, agentID string) (models.Agent, models.Account, error) {
	agent, err := tx.AgentByID(ctx, agentID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Agent{}, models.Account{}, ErrAgentNotFound
	}
	if err != nil {
		return models.Agent{}, models.Account{}, err
	}
	if !agent.IsActive {
		return models.Agent{}, models.Account{}, ErrAgentInactive
	}
	floatAcc, err := tx.AccountByOwner(ctx, agent.UserID, models.AccountFloat)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Agent{}, models.Account{}, ErrAccountNotFound
	}
	return agent, floatAcc, err
}

func walletOf(ctx context.Context, tx repo.Tx, userID string) (models.Account, error) {
	w, err := tx.AccountByOwner(ctx, userID, models.AccountWallet)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	if !w.IsActive {
		return models.Account{}, ErrAccountInactive
	}
	return w, nil
}

// Deposit is an agent-assisted cash deposit into a customer wallet. The
// customer pays no fee; the agent's float funds the credit.
func (s *LedgerService) Deposit(ctx context.Context, agentID, customerID string, amount int64) (models.Transaction, error) {
	return s.deposit(ctx, agentID, customerID, amount, false)
}

// InitialDeposit is the first funding of a freshly registered account and
// requires a zero wallet balance.
func (s *LedgerService) InitialDeposit(ctx context.Context, agentID, customerID string, amount int64) (models.Transaction, error) {
	return s.deposit(ctx, agentID, customerID, amount, true)
}

func (s *LedgerService) deposit(ctx context.Context, agentID, customerID string, amount int64, initial bool) (models.Transaction, error) {
	if amount <= 0 {
		s.rejected(models.TxnDeposit)
		return models.Transaction{}, ErrInvalidAmount
	}
	return s.run(ctx, models.TxnDeposit, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		agent, floatAcc, err := s.agentAccounts(ctx, tx, agentID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		wallet, err := walletOf(ctx, tx, customerID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if err := checkLimits(ctx, tx, customerID, models.TxnDeposit, amount, s.now()); err != nil {
			return models.Transaction{}, nil, err
		}

		locked, err := lockAccounts(ctx, tx, wallet.ID, floatAcc.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if initial && locked[wallet.ID].Balance > 0 {
			return models.Transaction{}, nil, ErrAccountAlreadyFunded
		}
		if locked[floatAcc.ID].Balance < amount {
			return models.Transaction{}, nil, ErrInsufficientFloat
		}

		if _, err := tx.ApplyDelta(ctx, floatAcc.ID, -amount); err != nil {
			return models.Transaction{}, nil, err
		}
		newWallet, err := tx.ApplyDelta(ctx, wallet.ID, amount)
		if err != nil {
			return models.Transaction{}, nil, err
		}

		desc := fmt.Sprintf("Deposit by agent %s", agent.BusinessName)
		if initial {
			desc = fmt.Sprintf("Initial deposit by agent %s", agent.BusinessName)
		}
		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(models.TxnDeposit),
			Type:          models.TxnDeposit,
			SenderID:      &floatAcc.ID,
			ReceiverID:    &wallet.ID,
			AgentID:       &agent.ID,
			Amount:        amount,
			Fee:           0,
			Status:        models.TxnCompleted,
			Description:   desc,
		})
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.CreateAgentTransaction(ctx, models.AgentTransaction{
			TransactionID: txn.ID,
			AgentID:       agent.ID,
			CustomerID:    customerID,
			Type:          models.AgentTxnDeposit,
			Commission:    0,
		}); err != nil {
			return models.Transaction{}, nil, err
		}

		note := models.Notification{
			UserID: customerID,
			Type:   models.NotifySMS,
			Title:  "Deposit received",
			Message: fmt.Sprintf("%s %s received. New balance: %s.",
				txn.TransactionID, models.FormatAmount(amount), models.FormatAmount(newWallet.Balance)),
		}
		return txn, []models.Notification{note}, nil
	})
}

// Withdraw is an agent-assisted cash withdrawal. The customer pays
// amount plus the tiered fee; the agent's float covers the cash handed
// out and the fee is retained by the system, not the agent.
func (s *LedgerService) Withdraw(ctx context.Context, agentID, customerID string, amount int64) (models.Transaction, error) {
	if amount < MinWithdrawal {
		s.rejected(models.TxnWithdrawal)
		return models.Transaction{}, ErrBelowMinimum
	}
	fee := fees.ForWithdrawal(amount)
	return s.run(ctx, models.TxnWithdrawal, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		agent, floatAcc, err := s.agentAccounts(ctx, tx, agentID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		wallet, err := walletOf(ctx, tx, customerID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if err := checkLimits(ctx, tx, customerID, models.TxnWithdrawal, amount, s.now()); err != nil {
			return models.Transaction{}, nil, err
		}

		locked, err := lockAccounts(ctx, tx, wallet.ID, floatAcc.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if locked[wallet.ID].Balance < amount+fee {
			return models.Transaction{}, nil, ErrInsufficientBalance
		}
		if locked[floatAcc.ID].Balance < amount {
			return models.Transaction{}, nil, ErrInsufficientFloat
		}

		newWallet, err := tx.ApplyDelta(ctx, wallet.ID, -(amount + fee))
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.ApplyDelta(ctx, floatAcc.ID, -amount); err != nil {
			return models.Transaction{}, nil, err
		}

		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(models.TxnWithdrawal),
			Type:          models.TxnWithdrawal,
			SenderID:      &wallet.ID,
			AgentID:       &agent.ID,
			Amount:        amount,
			Fee:           fee,
			Status:        models.TxnCompleted,
			Description:   fmt.Sprintf("Withdrawal at agent %s", agent.BusinessName),
		})
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.CreateAgentTransaction(ctx, models.AgentTransaction{
			TransactionID: txn.ID,
			AgentID:       agent.ID,
			CustomerID:    customerID,
			Type:          models.AgentTxnWithdrawal,
			Commission:    0,
		}); err != nil {
			return models.Transaction{}, nil, err
		}

		note := models.Notification{
			UserID: customerID,
			Type:   models.NotifySMS,
			Title:  "Withdrawal",
			Message: fmt.Sprintf("%s withdraw %s. Fee %s. New balance: %s.",
				txn.TransactionID, models.FormatAmount(amount), models.FormatAmount(fee), models.FormatAmount(newWallet.Balance)),
		}
		return txn, []models.Notification{note}, nil
	})
}

// Transfer moves money between customer wallets. The recipient is
// resolved by phone number; the sender pays the tiered transfer fee.
func (s *LedgerService) Transfer(ctx context.Context, senderID, recipientPhone string, amount int64) (models.Transaction, error) {
	if amount <= 0 {
		s.rejected(models.TxnTransfer)
		return models.Transaction{}, ErrInvalidAmount
	}
	fee := fees.ForTransfer(amount)
	return s.run(ctx, models.TxnTransfer, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		sender, err := walletOf(ctx, tx, senderID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		recipient, err := tx.WalletByPhone(ctx, recipientPhone)
		if errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, nil, ErrRecipientNotFound
		}
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if recipient.ID == sender.ID {
			return models.Transaction{}, nil, ErrSelfTransfer
		}
		if err := checkLimits(ctx, tx, senderID, models.TxnTransfer, amount, s.now()); err != nil {
			return models.Transaction{}, nil, err
		}

		locked, err := lockAccounts(ctx, tx, sender.ID, recipient.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if locked[sender.ID].Balance < amount+fee {
			return models.Transaction{}, nil, ErrInsufficientBalance
		}

		newSender, err := tx.ApplyDelta(ctx, sender.ID, -(amount + fee))
		if err != nil {
			return models.Transaction{}, nil, err
		}
		newRecipient, err := tx.ApplyDelta(ctx, recipient.ID, amount)
		if err != nil {
			return models.Transaction{}, nil, err
		}

		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(models.TxnTransfer),
			Type:          models.TxnTransfer,
			SenderID:      &sender.ID,
			ReceiverID:    &recipient.ID,
			Amount:        amount,
			Fee:           fee,
			Status:        models.TxnCompleted,
			Description:   fmt.Sprintf("Transfer to %s", recipientPhone),
		})
		if err != nil {
			return models.Transaction{}, nil, err
		}

		notes := []models.Notification{
			{
				UserID: senderID,
				Type:   models.NotifySMS,
				Title:  "Money sent",
				Message: fmt.Sprintf("%s sent %s to %s. Fee %s. New balance: %s.",
					txn.TransactionID, models.FormatAmount(amount), recipientPhone, models.FormatAmount(fee), models.FormatAmount(newSender.Balance)),
			},
			{
				UserID: recipient.OwnerID,
				Type:   models.NotifySMS,
				Title:  "Money received",
				Message: fmt.Sprintf("%s received %s. New balance: %s.",
					txn.TransactionID, models.FormatAmount(amount), models.FormatAmount(newRecipient.Balance)),
			},
		}
		return txn, notes, nil
	})
}

// AdjustFloat moves float between the system account and an agent's
// float account. Increases are funded by the system account; decreases
// hand float back to it.
func (s *LedgerService) AdjustFloat(ctx context.Context, agentID string, amount int64, increase bool) (models.Transaction, error) {
	if amount <= 0 {
		s.rejected(models.TxnFloat)
		return models.Transaction{}, ErrInvalidAmount
	}
	return s.run(ctx, models.TxnFloat, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		agent, floatAcc, err := s.agentAccounts(ctx, tx, agentID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		system, err := tx.AccountByID(ctx, s.systemAccountID)
		if errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, nil, ErrAccountNotFound
		}
		if err != nil {
			return models.Transaction{}, nil, err
		}

		locked, err := lockAccounts(ctx, tx, floatAcc.ID, system.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}

		var sender, receiver string
		var desc string
		if increase {
			if locked[system.ID].Balance < amount {
				return models.Transaction{}, nil, ErrSystemInsufficientFunds
			}
			sender, receiver = system.ID, floatAcc.ID
			desc = fmt.Sprintf("Float increase for agent %s", agent.BusinessName)
		} else {
			if locked[floatAcc.ID].Balance < amount {
				return models.Transaction{}, nil, ErrInsufficientFloat
			}
			sender, receiver = floatAcc.ID, system.ID
			desc = fmt.Sprintf("Float decrease for agent %s", agent.BusinessName)
		}

		if _, err := tx.ApplyDelta(ctx, sender, -amount); err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.ApplyDelta(ctx, receiver, amount); err != nil {
			return models.Transaction{}, nil, err
		}

		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(models.TxnFloat),
			Type:          models.TxnFloat,
			SenderID:      &sender,
			ReceiverID:    &receiver,
			AgentID:       &agent.ID,
			Amount:        amount,
			Status:        models.TxnCompleted,
			Description:   desc,
		})
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.CreateAgentTransaction(ctx, models.AgentTransaction{
			TransactionID: txn.ID,
			AgentID:       agent.ID,
			CustomerID:    system.OwnerID,
			Type:          models.AgentTxnFloat,
			Commission:    0,
		}); err != nil {
			return models.Transaction{}, nil, err
		}
		return txn, nil, nil
	})
}

// SavingsDeposit moves money from the wallet into the savings account.
func (s *LedgerService) SavingsDeposit(ctx context.Context, userID string, amount int64) (models.Transaction, error) {
	return s.savingsMove(ctx, userID, amount, true)
}

// SavingsWithdraw moves money from the savings account back to the wallet.
func (s *LedgerService) SavingsWithdraw(ctx context.Context, userID string, amount int64) (models.Transaction, error) {
	return s.savingsMove(ctx, userID, amount, false)
}

func (s *LedgerService) savingsMove(ctx context.Context, userID string, amount int64, toSavings bool) (models.Transaction, error) {
	typ := models.TxnDeposit
	if !toSavings {
		typ = models.TxnWithdrawal
	}
	if amount <= 0 {
		s.rejected(typ)
		return models.Transaction{}, ErrInvalidAmount
	}
	return s.run(ctx, typ, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		wallet, err := walletOf(ctx, tx, userID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		savings, err := tx.AccountByOwner(ctx, userID, models.AccountSavings)
		if errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, nil, ErrAccountNotFound
		}
		if err != nil {
			return models.Transaction{}, nil, err
		}

		from, to := wallet, savings
		desc := "Move to savings"
		if !toSavings {
			from, to = savings, wallet
			desc = "Move from savings"
		}

		locked, err := lockAccounts(ctx, tx, from.ID, to.ID)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if locked[from.ID].Balance < amount {
			return models.Transaction{}, nil, ErrInsufficientBalance
		}

		if _, err := tx.ApplyDelta(ctx, from.ID, -amount); err != nil {
			return models.Transaction{}, nil, err
		}
		if _, err := tx.ApplyDelta(ctx, to.ID, amount); err != nil {
			return models.Transaction{}, nil, err
		}

		txn, err := tx.CreateTransaction(ctx, models.Transaction{
			TransactionID: models.NewTransactionID(typ),
			Type:          typ,
			SenderID:      &from.ID,
			ReceiverID:    &to.ID,
			Amount:        amount,
			Status:        models.TxnCompleted,
			Description:   desc,
		})
		return txn, nil, err
	})
}

// BuyAirtime debits the wallet and settles against the system account.
// No fee applies.
func (s *LedgerService) BuyAirtime(ctx context.Context, userID, phone string, amount int64) (models.Transaction, error) {
	if amount <= 0 {
		s.rejected(models.TxnAirtime)
		return models.Transaction{}, ErrInvalidAmount
	}
	return s.run(ctx, models.TxnAirtime, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		txn, err := s.payToSystem(ctx, tx, userID, amount, models.TxnAirtime, fmt.Sprintf("Airtime for %s", phone))
		return txn, nil, err
	})
}

// PayBill settles an unpaid bill from the customer wallet and marks the
// bill paid with the settling transaction.
func (s *LedgerService) PayBill(ctx context.Context, userID, billID string) (models.Transaction, error) {
	return s.run(ctx, models.TxnBillPay, func(ctx context.Context, tx repo.Tx) (models.Transaction, []models.Notification, error) {
		bill, err := tx.BillByID(ctx, billID)
		if errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, nil, ErrBillNotFound
		}
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if bill.IsPaid {
			return models.Transaction{}, nil, ErrBillAlreadyPaid
		}

		txn, err := s.payToSystem(ctx, tx, userID, bill.Amount, models.TxnBillPay,
			fmt.Sprintf("Bill payment to %s (%s)", bill.BillerName, bill.AccountNumber))
		if err != nil {
			return models.Transaction{}, nil, err
		}
		if err := tx.MarkBillPaid(ctx, bill.ID, txn.ID); err != nil {
			return models.Transaction{}, nil, err
		}

		note := models.Notification{
			UserID:  userID,
			Type:    models.NotifySMS,
			Title:   "Bill paid",
			Message: fmt.Sprintf("%s paid %s to %s.", txn.TransactionID, models.FormatAmount(bill.Amount), bill.BillerName),
		}
		return txn, []models.Notification{note}, nil
	})
}

// payToSystem is the shared wallet -> system movement behind airtime and
// bill payments.
func (s *LedgerService) payToSystem(ctx context.Context, tx repo.Tx, userID string, amount int64, typ models.TransactionType, desc string) (models.Transaction, error) {
	wallet, err := walletOf(ctx, tx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	system, err := tx.AccountByID(ctx, s.systemAccountID)
	if err != nil {
		return models.Transaction{}, err
	}

	locked, err := lockAccounts(ctx, tx, wallet.ID, system.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	if locked[wallet.ID].Balance < amount {
		return models.Transaction{}, ErrInsufficientBalance
	}

	if _, err := tx.ApplyDelta(ctx, wallet.ID, -amount); err != nil {
		return models.Transaction{}, err
	}
	if _, err := tx.ApplyDelta(ctx, system.ID, amount); err != nil {
		return models.Transaction{}, err
	}

	return tx.CreateTransaction(ctx, models.Transaction{
		TransactionID: models.NewTransactionID(typ),
		Type:          typ,
		SenderID:      &wallet.ID,
		ReceiverID:    &system.ID,
		Amount:        amount,
		Status:        models.TxnCompleted,
		Description:   desc,
	})
}

// ----------------- Queries -----------------

func (s *LedgerService) GetTransaction(ctx context.Context, transactionID string) (models.Transaction, error) {
	return s.trx.GetByTransactionID(ctx, transactionID)
}

func (s *LedgerService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	return s.trx.ListByUser(ctx, userID, limit, offset)
}

func (s *LedgerService) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]models.AgentTransaction, error) {
	return s.trx.ListByAgent(ctx, agentID, limit, offset)
}
