package models

import "time"

type BillType string

const (
	BillElectric BillType = "ELECTRIC"
	BillWater    BillType = "WATER"
	BillTV       BillType = "TV"
	BillInternet BillType = "INTERNET"
	BillOther    BillType = "OTHER"
)

type Bill struct {
	ID            string    `json:"id"`
	BillerName    string    `json:"biller_name"`
	Type          BillType  `json:"bill_type"`
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	IsPaid        bool      `json:"is_paid"`
	// Ledger row that settled the bill, once paid.
	PaymentTxnID *string `json:"payment_transaction_id,omitempty"`
}
