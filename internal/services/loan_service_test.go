package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/models"
	"github.com/pesaflow/pesaflow-backend/internal/notify"
	"github.com/pesaflow/pesaflow-backend/internal/worker"
)

func newLoanFixture(t *testing.T, walletBalance int64) (*fakeStore, *LoanService, models.User, models.Account) {
	t.Helper()
	s := newFakeStore()

	sysUser := s.addUser("+254700000000", models.RoleAdmin)
	system := s.addAccount(sysUser.ID, models.AccountWallet, 1_000_000_00)

	customer := s.addUser("+254711111111", models.RoleCustomer)
	wallet := s.addAccount(customer.ID, models.AccountWallet, walletBalance)

	wp := worker.NewPool(1)
	t.Cleanup(wp.Stop)
	svc := NewLoanService(&fakeLedger{s}, nil, &fakeAuditLogs{}, &fakeNotifications{}, notify.NewNoop(), wp, system.ID)
	svc.now = func() time.Time { return s.now }
	return s, svc, customer, wallet
}

func TestMaxLoanFor(t *testing.T) {
	tests := []struct {
		balance int64
		want    int64
	}{
		{0, 0},
		{99_99, 0},
		{100_00, 0},
		{299_99, 0},
		{300_00, 50_00},
		{499_99, 50_00},
		{500_00, 100_00},
		{1000_00, 200_00},
		{2000_00, 500_00},
		{5000_00, 1000_00},
		{9999_99, 1000_00},
		{10000_00, 2000_00},
		{50_000_00, 2000_00},
	}
	for _, tc := range tests {
		if got := MaxLoanFor(tc.balance); got != tc.want {
			t.Errorf("MaxLoanFor(%d) = %d, want %d", tc.balance, got, tc.want)
		}
	}
}

func TestLoanRequestAboveTier(t *testing.T) {
	s, svc, customer, wallet := newLoanFixture(t, 250_00)

	_, err := svc.Request(context.Background(), customer.ID, 50_00)
	if !errors.Is(err, ErrAboveTierLimit) {
		t.Fatalf("err = %v, want ErrAboveTierLimit", err)
	}
	if got := s.accounts[wallet.ID].Balance; got != 250_00 {
		t.Errorf("wallet mutated on rejection: %d", got)
	}
	if len(s.loans) != 0 {
		t.Errorf("loan row created on rejection")
	}
}

func TestLoanLifecycle(t *testing.T) {
	s, svc, customer, wallet := newLoanFixture(t, 1000_00)

	txn, err := svc.Request(context.Background(), customer.ID, 200_00)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if txn.Type != models.TxnLoan {
		t.Errorf("txn type = %s, want LOAN", txn.Type)
	}
	if got := s.accounts[wallet.ID].Balance; got != 1200_00 {
		t.Errorf("wallet = %d, want 120000", got)
	}
	if len(s.loans) != 1 {
		t.Fatalf("loans = %d, want 1", len(s.loans))
	}
	loan := s.loans[0]
	if loan.Status != models.LoanPending || loan.Remaining != 200_00 {
		t.Errorf("loan = %+v, want PENDING remaining 20000", loan)
	}
	if want := s.now.AddDate(0, 0, 30); !loan.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", loan.DueDate, want)
	}

	// Second request while one is pending.
	if _, err := svc.Request(context.Background(), customer.ID, 100_00); !errors.Is(err, ErrActiveLoanExists) {
		t.Fatalf("err = %v, want ErrActiveLoanExists", err)
	}

	// Partial repayment.
	if _, err := svc.Repay(context.Background(), customer.ID, 150_00); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if got := s.loans[0].Remaining; got != 50_00 {
		t.Errorf("remaining = %d, want 5000", got)
	}

	// Overpayment clamps to the remaining balance.
	txn, err = svc.Repay(context.Background(), customer.ID, 100_00)
	if err != nil {
		t.Fatalf("final repay: %v", err)
	}
	if txn.Amount != 50_00 {
		t.Errorf("applied = %d, want 5000", txn.Amount)
	}
	if got := s.loans[0].Status; got != models.LoanRepaid {
		t.Errorf("status = %s, want REPAID", got)
	}
	// 1000 + 200 - 150 - 50
	if got := s.accounts[wallet.ID].Balance; got != 1000_00 {
		t.Errorf("wallet = %d, want 100000", got)
	}

	// Nothing left to repay.
	if _, err := svc.Repay(context.Background(), customer.ID, 10_00); !errors.Is(err, ErrNoActiveLoan) {
		t.Fatalf("err = %v, want ErrNoActiveLoan", err)
	}
}

func TestLoanRepayNeedsWalletFunds(t *testing.T) {
	s, svc, customer, wallet := newLoanFixture(t, 1000_00)

	if _, err := svc.Request(context.Background(), customer.ID, 200_00); err != nil {
		t.Fatalf("request: %v", err)
	}
	// Drain the wallet below the repayment.
	acc := s.accounts[wallet.ID]
	acc.Balance = 20_00
	s.accounts[wallet.ID] = acc

	_, err := svc.Repay(context.Background(), customer.ID, 100_00)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := s.loans[0].Remaining; got != 200_00 {
		t.Errorf("remaining mutated on failed repay: %d", got)
	}
}

func TestLoanSystemShortfall(t *testing.T) {
	s, svc, customer, _ := newLoanFixture(t, 1000_00)
	for id, a := range s.accounts {
		if a.OwnerID != customer.ID {
			a.Balance = 50_00
			s.accounts[id] = a
		}
	}

	_, err := svc.Request(context.Background(), customer.ID, 200_00)
	if !errors.Is(err, ErrSystemInsufficientFunds) {
		t.Fatalf("err = %v, want ErrSystemInsufficientFunds", err)
	}
}

func TestLoanRequestInvalidAmount(t *testing.T) {
	_, svc, customer, _ := newLoanFixture(t, 1000_00)

	for _, amount := range []int64{0, -100} {
		if _, err := svc.Request(context.Background(), customer.ID, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Request(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}
