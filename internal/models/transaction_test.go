package models

import (
	"strings"
	"testing"
)

func TestNewTransactionIDPrefixes(t *testing.T) {
	tests := []struct {
		typ    TransactionType
		prefix string
	}{
		{TxnDeposit, "MPD"},
		{TxnWithdrawal, "MPW"},
		{TxnTransfer, "MPT"},
		{TxnPayment, "MPP"},
		{TxnAirtime, "MPA"},
		{TxnBillPay, "MPB"},
		{TxnFloat, "MPF"},
		{TxnLoan, "MPL"},
		{TransactionType("UNKNOWN"), "MPX"},
	}
	for _, tc := range tests {
		id := NewTransactionID(tc.typ)
		if !strings.HasPrefix(id, tc.prefix) {
			t.Errorf("NewTransactionID(%s) = %s, want prefix %s", tc.typ, id, tc.prefix)
		}
		if len(id) != len(tc.prefix)+10 {
			t.Errorf("NewTransactionID(%s) = %s, want %d chars", tc.typ, id, len(tc.prefix)+10)
		}
		if id != strings.ToUpper(id) {
			t.Errorf("NewTransactionID(%s) = %s, want uppercase", tc.typ, id)
		}
	}
}

func TestNewTransactionIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := NewTransactionID(TxnTransfer)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id after %d draws: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}
