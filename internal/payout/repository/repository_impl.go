package repository

import (
	"context"

	"github.com/skillhut/skillhut/internal/payout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payouts (
			id, user_id, gateway_payout_ref, account_ref, amount,
			currency, status, arrival_date, description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_payout_ref) DO NOTHING`,
		payout.ID,
		payout.UserID,
		payout.GatewayPayoutRef,
		payout.AccountRef,
		payout.Amount,
		payout.Currency,
		payout.Status,
		payout.ArrivalDate,
		payout.Description,
		payout.CreatedAt,
	).Error
}
