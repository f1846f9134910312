package repository

import (
	"context"

	"github.com/skillhut/skillhut/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, user_id, gateway_invoice_ref, subscription_ref, amount_due,
			amount_paid, currency, status, period_start, period_end, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_invoice_ref) DO NOTHING`,
		invoice.ID,
		invoice.UserID,
		invoice.GatewayInvoiceRef,
		invoice.SubscriptionRef,
		invoice.AmountDue,
		invoice.AmountPaid,
		invoice.Currency,
		invoice.Status,
		invoice.PeriodStart,
		invoice.PeriodEnd,
		invoice.CreatedAt,
	).Error
}
