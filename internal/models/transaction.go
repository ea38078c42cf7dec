package models

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TxnDeposit    TransactionType = "DEPOSIT"
	TxnWithdrawal TransactionType = "WITHDRAWAL"
	TxnTransfer   TransactionType = "TRANSFER"
	TxnPayment    TransactionType = "PAYMENT"
	TxnAirtime    TransactionType = "AIRTIME"
	TxnBillPay    TransactionType = "BILLPAY"
	TxnFloat      TransactionType = "FLOAT"
	TxnLoan       TransactionType = "LOAN"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnCompleted TransactionStatus = "COMPLETED"
	TxnFailed    TransactionStatus = "FAILED"
	// Reachable only from COMPLETED; no current flow triggers it.
	TxnReversed TransactionStatus = "REVERSED"
)

// Transaction is the append-only ledger record for every money movement.
// At least one of Sender/Receiver is set. Once COMPLETED the row is
// immutable except for an explicit move to REVERSED.
type Transaction struct {
	ID            string            `json:"id"`
	TransactionID string            `json:"transaction_id"`
	Type          TransactionType   `json:"type"`
	SenderID      *string           `json:"sender_id,omitempty"`
	ReceiverID    *string           `json:"receiver_id,omitempty"`
	AgentID       *string           `json:"agent_id,omitempty"`
	Amount        int64             `json:"amount"`
	Fee           int64             `json:"fee"`
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description"`
	CreatedAt     time.Time         `json:"created_at"`
}

type AgentTxnType string

const (
	AgentTxnDeposit    AgentTxnType = "DEPOSIT"
	AgentTxnWithdrawal AgentTxnType = "WITHDRAWAL"
	AgentTxnFloat      AgentTxnType = "FLOAT"
)

// AgentTransaction is the 1:1 extension recorded when an agent acts.
type AgentTransaction struct {
	ID            string       `json:"id"`
	TransactionID string       `json:"transaction_id"`
	AgentID       string       `json:"agent_id"`
	CustomerID    string       `json:"customer_id"`
	Type          AgentTxnType `json:"type"`
	Commission    int64        `json:"commission"`
}

var txnPrefixes = map[TransactionType]string{
	TxnDeposit:    "MPD",
	TxnWithdrawal: "MPW",
	TxnTransfer:   "MPT",
	TxnPayment:    "MPP",
	TxnAirtime:    "MPA",
	TxnBillPay:    "MPB",
	TxnFloat:      "MPF",
	TxnLoan:       "MPL",
}

// NewTransactionID returns an operator-legible id: a per-kind prefix plus
// 10 uppercase hex chars from a fresh UUID. Global uniqueness is enforced
// by the DB unique index; callers regenerate on collision.
func NewTransactionID(t TransactionType) string {
	prefix, ok := txnPrefixes[t]
	if !ok {
		prefix = "MPX"
	}
	u := uuid.New()
	return prefix + strings.ToUpper(hex.EncodeToString(u[:])[:10])
}
