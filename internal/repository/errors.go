package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// Unique-constraint violation on a natural key (phone, account number).
	ErrDuplicate = errors.New("duplicate")
	// Collision on a generated transaction id; callers regenerate and retry.
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")
	// Serialization failure or deadlock; WithTx retries these internally a
	// bounded number of times before surfacing the error.
	ErrConflict = errors.New("concurrency conflict")
)
