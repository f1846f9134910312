package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/skillhut/skillhut/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var item domain.Purchase
	err := db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) CompleteFromPending(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentRef string, sessionRef string, completedAt time.Time) (bool, error) {
	flipped := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`UPDATE purchases
			 SET status = ?, gateway_payment_ref = ?, gateway_session_ref = ?,
				completed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			domain.PurchaseStatusCompleted,
			paymentRef,
			sessionRef,
			completedAt,
			completedAt,
			id,
			domain.PurchaseStatusPending,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		flipped = true

		// The counter moves only when the status flips, so redelivery
		// cannot double-count a sale.
		return tx.Exec(
			`UPDATE products
			 SET sales_count = sales_count + 1, updated_at = ?
			 WHERE id = (SELECT product_id FROM purchases WHERE id = ?)`,
			completedAt,
			id,
		).Error
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}
