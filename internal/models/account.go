package models

import (
	"crypto/rand"
	"fmt"
	"time"
)

type AccountKind string

const (
	AccountWallet  AccountKind = "WALLET"
	AccountSavings AccountKind = "SAVINGS"
	AccountFloat   AccountKind = "FLOAT"
)

// Account holds a single balance. Wallet and savings accounts belong to
// customers, float accounts to agents; one account per kind per owner.
// Balances are int64 cents and never go negative on a committed operation.
type Account struct {
	ID            string      `json:"id"`
	OwnerID       string      `json:"owner_id"`
	Kind          AccountKind `json:"kind"`
	AccountNumber string      `json:"account_number"`
	Balance       int64       `json:"balance"`
	PINHash       string      `json:"-"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
	LastActivity  time.Time   `json:"last_activity"`
}

// RandomAccountNumber returns a 10-digit account number. Uniqueness is
// guaranteed by the DB constraint; callers retry on collision.
func RandomAccountNumber() string {
	var b [10]byte
	_, _ = rand.Read(b[:])
	out := make([]byte, 10)
	for i, v := range b {
		out[i] = '0' + v%10
	}
	return string(out)
}

// FormatAmount renders cents as a KES display string for notifications.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("KES %s%d.%02d", sign, cents/100, cents%100)
}
