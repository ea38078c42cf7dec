package models

import (
	"errors"
	"time"
)

type LoanStatus string

const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
	LoanRepaid   LoanStatus = "REPAID"
)

// Loan tracks a disbursement against the system account. Remaining starts
// equal to Amount and only moves through the explicit transition methods
// below; status is never recomputed as a side effect of unrelated saves.
type Loan struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Amount       int64      `json:"amount"`
	InterestRate int64      `json:"interest_rate"` // basis points, informational
	DueDate      time.Time  `json:"due_date"`
	Status       LoanStatus `json:"status"`
	Remaining    int64      `json:"remaining_amount"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (l *Loan) IsPaid() bool { return l.Remaining == 0 }

// Outstanding reports whether the loan still accepts repayments.
func (l *Loan) Outstanding() bool {
	return l.Remaining > 0 && (l.Status == LoanPending || l.Status == LoanApproved)
}

func (l *Loan) Approve() error {
	if l.Status != LoanPending {
		return errors.New("loan is not pending")
	}
	l.Status = LoanApproved
	return nil
}

func (l *Loan) Reject() error {
	if l.Status != LoanPending {
		return errors.New("loan is not pending")
	}
	l.Status = LoanRejected
	return nil
}

// ApplyRepayment reduces the remaining balance, clamped at zero, and
// returns the amount actually applied. Remaining hitting zero is the one
// place the status moves to REPAID.
func (l *Loan) ApplyRepayment(amount int64) (applied int64, err error) {
	if amount <= 0 {
		return 0, errors.New("repayment must be positive")
	}
	if !l.Outstanding() {
		return 0, errors.New("loan is not outstanding")
	}
	applied = amount
	if applied > l.Remaining {
		applied = l.Remaining
	}
	l.Remaining -= applied
	if l.Remaining == 0 {
		l.Status = LoanRepaid
	}
	return applied, nil
}
