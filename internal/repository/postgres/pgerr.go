package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

// mapErr translates driver errors into the repository sentinels so the
// service layer never sees pg error codes.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "transactions_transaction_id_key" {
				return repo.ErrDuplicateTransactionID
			}
			return repo.ErrDuplicate
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return repo.ErrConflict
		}
	}
	return err
}
