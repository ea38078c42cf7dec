package services

import "errors"

// Typed failures returned by the transaction engine. Every one of these
// means the operation performed no balance mutation and appended no
// ledger row.
var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInsufficientFloat       = errors.New("insufficient agent float")
	ErrBelowMinimum            = errors.New("amount below minimum")
	ErrAboveMaximum            = errors.New("amount above maximum")
	ErrDailyCapExceeded        = errors.New("daily limit exceeded")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountInactive         = errors.New("account is inactive")
	ErrAccountAlreadyFunded    = errors.New("account already has funds")
	ErrRecipientNotFound       = errors.New("recipient not found")
	ErrSelfTransfer            = errors.New("cannot transfer to self")
	ErrAgentNotFound           = errors.New("agent not found")
	ErrAgentInactive           = errors.New("agent is inactive")
	ErrActiveLoanExists        = errors.New("a pending loan already exists")
	ErrNoActiveLoan            = errors.New("no outstanding loan")
	ErrAboveTierLimit          = errors.New("amount above loan tier limit")
	ErrSystemInsufficientFunds = errors.New("system account has insufficient funds")
	ErrPhoneLineCapExceeded    = errors.New("national ID already has the maximum active phone lines")
	ErrPhoneAlreadyRegistered  = errors.New("phone number already registered")
	ErrBillAlreadyPaid         = errors.New("bill already paid")
	ErrBillNotFound            = errors.New("bill not found")
)
