package models

import "testing"

func TestLoanTransitions(t *testing.T) {
	l := Loan{Status: LoanPending, Amount: 200_00, Remaining: 200_00}

	if err := l.Approve(); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.Approve(); err == nil {
		t.Fatal("approve out of PENDING allowed")
	}
	if err := l.Reject(); err == nil {
		t.Fatal("reject out of PENDING allowed")
	}
	if !l.Outstanding() {
		t.Fatal("approved loan with balance should be outstanding")
	}
}

func TestLoanApplyRepayment(t *testing.T) {
	l := Loan{Status: LoanPending, Amount: 200_00, Remaining: 200_00}

	applied, err := l.ApplyRepayment(150_00)
	if err != nil || applied != 150_00 {
		t.Fatalf("ApplyRepayment = (%d, %v), want (15000, nil)", applied, err)
	}
	if l.Remaining != 50_00 || l.Status != LoanPending {
		t.Errorf("loan = %+v after partial repayment", l)
	}

	// Overpayment clamps and closes the loan.
	applied, err = l.ApplyRepayment(500_00)
	if err != nil || applied != 50_00 {
		t.Fatalf("ApplyRepayment = (%d, %v), want (5000, nil)", applied, err)
	}
	if l.Status != LoanRepaid || !l.IsPaid() {
		t.Errorf("loan = %+v, want REPAID", l)
	}

	if _, err := l.ApplyRepayment(10_00); err == nil {
		t.Fatal("repayment on a repaid loan allowed")
	}
	if _, err := (&Loan{Status: LoanPending, Remaining: 100}).ApplyRepayment(0); err == nil {
		t.Fatal("zero repayment allowed")
	}
}

func TestRejectedLoanNotOutstanding(t *testing.T) {
	l := Loan{Status: LoanPending, Amount: 100_00, Remaining: 100_00}
	if err := l.Reject(); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if l.Outstanding() {
		t.Error("rejected loan reported outstanding")
	}
}
