package repository

import (
	"context"

	"github.com/skillhut/skillhut/internal/transfer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.Record) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO transfers (
			id, purchase_id, gateway_transfer_ref, destination_ref,
			gross_amount, fee_amount, payee_amount, currency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (purchase_id) DO NOTHING`,
		record.ID,
		record.PurchaseID,
		record.GatewayTransferRef,
		record.DestinationRef,
		record.GrossAmount,
		record.FeeAmount,
		record.PayeeAmount,
		record.Currency,
		record.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
