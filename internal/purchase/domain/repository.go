package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	// CompleteFromPending flips the purchase to completed and bumps the
	// product sales counter in the same transaction. Returns false without
	// error when the purchase was already completed, so callers can skip
	// side effects that must apply exactly once.
	CompleteFromPending(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentRef string, sessionRef string, completedAt time.Time) (bool, error)
}
