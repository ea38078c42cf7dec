package services

import (
	"context"
	"errors"
	"time"

	"github.com/pesaflow/pesaflow-backend/internal/models"
	repo "github.com/pesaflow/pesaflow-backend/internal/repository"
)

// checkLimits validates amount against the effective policy for (user,
// type): an active global Limit supplies min/max/daily, and a UserLimit
// row overrides max and the daily cap for that user. Absence of an active
// global row means the type is unconstrained. The daily cap sums the
// user's COMPLETED transactions of the type for the current UTC day, read
// inside the same database transaction as the mutation it guards.
func checkLimits(ctx context.Context, tx repo.Tx, userID string, typ models.TransactionType, amount int64, now time.Time) error {
	limit, err := tx.GlobalLimit(ctx, typ)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	maxAmount := limit.MaxAmount
	dailyLimit := limit.DailyLimit
	if ul, err := tx.UserLimit(ctx, userID, typ); err == nil {
		maxAmount = ul.MaxAmount
		dailyLimit = ul.DailyLimit
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	if amount < limit.MinAmount {
		return ErrBelowMinimum
	}
	if amount > maxAmount {
		return ErrAboveMaximum
	}
	if dailyLimit > 0 {
		dayStart := now.UTC().Truncate(24 * time.Hour)
		spent, err := tx.SumCompleted(ctx, userID, typ, dayStart, dayStart.Add(24*time.Hour))
		if err != nil {
			return err
		}
		if spent+amount > dailyLimit {
			return ErrDailyCapExceeded
		}
	}
	return nil
}
