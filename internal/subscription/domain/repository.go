package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByRef(ctx context.Context, db *gorm.DB, subscriptionRef string) (*Subscription, error)
	// Upsert writes the row keyed by gateway_subscription_ref. The update arm
	// only applies when the incoming current_period_end is not older than the
	// stored one, so a redelivered stale event cannot regress newer state.
	// The bool reports whether the row was written; false means the guard
	// declined a stale event.
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) (bool, error)
}
