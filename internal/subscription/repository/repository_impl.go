package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/skillhut/skillhut/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, subscriptionRef string) (*domain.Subscription, error) {
	var item domain.Subscription
	err := db.WithContext(ctx).
		Where("gateway_subscription_ref = ?", strings.TrimSpace(subscriptionRef)).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, user_id, gateway_customer_ref, gateway_subscription_ref, product_ref,
			price_ref, status, current_period_start, current_period_end,
			cancel_at_period_end, canceled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_subscription_ref) DO UPDATE SET
			user_id = COALESCE(EXCLUDED.user_id, subscriptions.user_id),
			gateway_customer_ref = EXCLUDED.gateway_customer_ref,
			product_ref = EXCLUDED.product_ref,
			price_ref = EXCLUDED.price_ref,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = EXCLUDED.updated_at
		WHERE subscriptions.current_period_end IS NULL
			OR EXCLUDED.current_period_end IS NULL
			OR EXCLUDED.current_period_end >= subscriptions.current_period_end`,
		sub.ID,
		sub.UserID,
		sub.GatewayCustomerRef,
		sub.GatewaySubscriptionRef,
		sub.ProductRef,
		sub.PriceRef,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.CanceledAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	// Zero rows means the update arm declined a stale period; callers
	// must not mirror anything from the event in that case.
	return res.RowsAffected > 0, nil
}
