package services

import (
	"context"
	"strconv"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

// fakeStore is an in-memory stand-in for the postgres ledger. WithTx
// snapshots the whole store up front and restores it when the unit
// returns an error, mirroring transaction rollback.
type fakeStore struct {
	seq        int
	accounts   map[string]models.Account
	users      map[string]models.User
	agents     map[string]models.Agent
	limits     map[models.TransactionType]models.Limit
	userLimits map[string]models.UserLimit
	loans      []models.Loan
	bills      map[string]models.Bill
	txns       []models.Transaction
	agentTxns  []models.AgentTransaction
	phoneLines []models.PhoneLine
	now        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:   map[string]models.Account{},
		users:      map[string]models.User{},
		agents:     map[string]models.Agent{},
		limits:     map[models.TransactionType]models.Limit{},
		userLimits: map[string]models.UserLimit{},
		bills:      map[string]models.Bill{},
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

func (s *fakeStore) addUser(phone, role string) models.User {
	u := models.User{ID: s.nextID("usr"), Username: "u" + phone, Email: phone + "@x.io", Role: role, PhoneNumber: phone}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) addAccount(ownerID string, kind models.AccountKind, balance int64) models.Account {
	a := models.Account{
		ID:            s.nextID("acc"),
		OwnerID:       ownerID,
		Kind:          kind,
		AccountNumber: models.RandomAccountNumber(),
		Balance:       balance,
		IsActive:      true,
	}
	s.accounts[a.ID] = a
	return a
}

func (s *fakeStore) addAgent(userID string) models.Agent {
	a := models.Agent{ID: s.nextID("agt"), UserID: userID, BusinessName: "Duka One", IsActive: true}
	s.agents[a.ID] = a
	return a
}

func (s *fakeStore) totalBalance() int64 {
	var sum int64
	for _, a := range s.accounts {
		sum += a.Balance
	}
	return sum
}

func (s *fakeStore) clone() *fakeStore {
	c := &fakeStore{
		seq:        s.seq,
		accounts:   make(map[string]models.Account, len(s.accounts)),
		users:      make(map[string]models.User, len(s.users)),
		agents:     make(map[string]models.Agent, len(s.agents)),
		limits:     make(map[models.TransactionType]models.Limit, len(s.limits)),
		userLimits: make(map[string]models.UserLimit, len(s.userLimits)),
		loans:      append([]models.Loan(nil), s.loans...),
		bills:      make(map[string]models.Bill, len(s.bills)),
		txns:       append([]models.Transaction(nil), s.txns...),
		agentTxns:  append([]models.AgentTransaction(nil), s.agentTxns...),
		phoneLines: append([]models.PhoneLine(nil), s.phoneLines...),
		now:        s.now,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.agents {
		c.agents[k] = v
	}
	for k, v := range s.limits {
		c.limits[k] = v
	}
	for k, v := range s.userLimits {
		c.userLimits[k] = v
	}
	for k, v := range s.bills {
		c.bills[k] = v
	}
	return c
}

type fakeLedger struct{ s *fakeStore }

func (l *fakeLedger) WithTx(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error {
	snap := l.s.clone()
	if err := fn(ctx, &fakeTx{l.s}); err != nil {
		*l.s = *snap
		return err
	}
	return nil
}

type fakeTx struct{ s *fakeStore }

func (t *fakeTx) AccountByID(_ context.Context, id string) (models.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	return a, nil
}

func (t *fakeTx) AccountByOwner(_ context.Context, ownerID string, kind models.AccountKind) (models.Account, error) {
	for _, a := range t.s.accounts {
		if a.OwnerID == ownerID && a.Kind == kind {
			return a, nil
		}
	}
	return models.Account{}, repo.ErrNotFound
}

func (t *fakeTx) WalletByPhone(_ context.Context, phone string) (models.Account, error) {
	for _, u := range t.s.users {
		if u.PhoneNumber == phone {
			return t.AccountByOwner(nil, u.ID, models.AccountWallet)
		}
	}
	return models.Account{}, repo.ErrNotFound
}

func (t *fakeTx) LockAccount(ctx context.Context, id string) (models.Account, error) {
	return t.AccountByID(ctx, id)
}

func (t *fakeTx) ApplyDelta(_ context.Context, id string, delta int64) (models.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	a.Balance += delta
	a.LastActivity = t.s.now
	t.s.accounts[id] = a
	return a, nil
}

func (t *fakeTx) CreateTransaction(_ context.Context, txn models.Transaction) (models.Transaction, error) {
	for _, prev := range t.s.txns {
		if prev.TransactionID == txn.TransactionID {
			return models.Transaction{}, repo.ErrDuplicateTransactionID
		}
	}
	txn.ID = t.s.nextID("txn")
	txn.CreatedAt = t.s.now
	t.s.txns = append(t.s.txns, txn)
	return txn, nil
}

func (t *fakeTx) CreateAgentTransaction(_ context.Context, at models.AgentTransaction) (models.AgentTransaction, error) {
	at.ID = t.s.nextID("atx")
	t.s.agentTxns = append(t.s.agentTxns, at)
	return at, nil
}

func (t *fakeTx) SumCompleted(_ context.Context, userID string, typ models.TransactionType, from, to time.Time) (int64, error) {
	var sum int64
	for _, txn := range t.s.txns {
		if txn.Type != typ || txn.Status != models.TxnCompleted {
			continue
		}
		side := txn.SenderID
		if typ == models.TxnDeposit {
			side = txn.ReceiverID
		}
		if side == nil {
			continue
		}
		acc, ok := t.s.accounts[*side]
		if !ok || acc.OwnerID != userID {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		sum += txn.Amount
	}
	return sum, nil
}

func (t *fakeTx) AgentByID(_ context.Context, id string) (models.Agent, error) {
	a, ok := t.s.agents[id]
	if !ok {
		return models.Agent{}, repo.ErrNotFound
	}
	return a, nil
}

func (t *fakeTx) GlobalLimit(_ context.Context, typ models.TransactionType) (models.Limit, error) {
	l, ok := t.s.limits[typ]
	if !ok || !l.IsActive {
		return models.Limit{}, repo.ErrNotFound
	}
	return l, nil
}

func (t *fakeTx) UserLimit(_ context.Context, userID string, typ models.TransactionType) (models.UserLimit, error) {
	l, ok := t.s.userLimits[userID+"/"+string(typ)]
	if !ok {
		return models.UserLimit{}, repo.ErrNotFound
	}
	return l, nil
}

func (t *fakeTx) OutstandingLoan(_ context.Context, userID string) (models.Loan, error) {
	for _, l := range t.s.loans {
		if l.UserID == userID && l.Outstanding() {
			return l, nil
		}
	}
	return models.Loan{}, repo.ErrNotFound
}

func (t *fakeTx) PendingLoanExists(_ context.Context, userID string) (bool, error) {
	for _, l := range t.s.loans {
		if l.UserID == userID && l.Status == models.LoanPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) CreateLoan(_ context.Context, l models.Loan) (models.Loan, error) {
	l.ID = t.s.nextID("loan")
	l.CreatedAt = t.s.now
	l.UpdatedAt = t.s.now
	t.s.loans = append(t.s.loans, l)
	return l, nil
}

func (t *fakeTx) UpdateLoan(_ context.Context, l models.Loan) error {
	for i := range t.s.loans {
		if t.s.loans[i].ID == l.ID {
			t.s.loans[i] = l
			return nil
		}
	}
	return repo.ErrNotFound
}

func (t *fakeTx) BillByID(_ context.Context, id string) (models.Bill, error) {
	b, ok := t.s.bills[id]
	if !ok {
		return models.Bill{}, repo.ErrNotFound
	}
	return b, nil
}

func (t *fakeTx) MarkBillPaid(_ context.Context, billID, txnID string) error {
	b, ok := t.s.bills[billID]
	if !ok {
		return repo.ErrNotFound
	}
	b.IsPaid = true
	b.PaymentTxnID = &txnID
	t.s.bills[billID] = b
	return nil
}

func (t *fakeTx) CreateUser(_ context.Context, u models.User) (models.User, error) {
	for _, prev := range t.s.users {
		if prev.PhoneNumber == u.PhoneNumber {
			return models.User{}, repo.ErrDuplicate
		}
	}
	u.ID = t.s.nextID("usr")
	t.s.users[u.ID] = u
	return u, nil
}

func (t *fakeTx) UserByPhone(_ context.Context, phone string) (models.User, error) {
	for _, u := range t.s.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (t *fakeTx) CreateAccount(_ context.Context, a models.Account) (models.Account, error) {
	for _, prev := range t.s.accounts {
		if prev.OwnerID == a.OwnerID && prev.Kind == a.Kind {
			return models.Account{}, repo.ErrDuplicate
		}
	}
	a.ID = t.s.nextID("acc")
	t.s.accounts[a.ID] = a
	return a, nil
}

func (t *fakeTx) CreateAgent(_ context.Context, a models.Agent) (models.Agent, error) {
	a.ID = t.s.nextID("agt")
	t.s.agents[a.ID] = a
	return a, nil
}

func (t *fakeTx) CountActivePhoneLines(_ context.Context, idNumber string) (int, error) {
	n := 0
	for _, l := range t.s.phoneLines {
		if l.IDNumber == idNumber && l.IsActive {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) CreatePhoneLine(_ context.Context, l models.PhoneLine) (models.PhoneLine, error) {
	l.ID = t.s.nextID("line")
	l.RegisteredAt = t.s.now
	t.s.phoneLines = append(t.s.phoneLines, l)
	return l, nil
}

type fakeAuditLogs struct{ entries []models.AuditLog }

func (f *fakeAuditLogs) Create(_ context.Context, l models.AuditLog) error {
	f.entries = append(f.entries, l)
	return nil
}

type fakeNotifications struct{ entries []models.Notification }

func (f *fakeNotifications) Create(_ context.Context, n models.Notification) error {
	f.entries = append(f.entries, n)
	return nil
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID string, _, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.entries {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}
