package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/skillhut/skillhut/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByAccountRef(ctx context.Context, db *gorm.DB, accountRef string) (*domain.ConnectedAccount, error) {
	var item domain.ConnectedAccount
	err := db.WithContext(ctx).
		Where("gateway_account_ref = ?", strings.TrimSpace(accountRef)).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.ConnectedAccount, error) {
	var item domain.ConnectedAccount
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, account *domain.ConnectedAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO connected_accounts (
			id, user_id, gateway_account_ref, status, charges_enabled, payouts_enabled,
			details_submitted, requirements_due_by, requirements_fields, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_account_ref) DO UPDATE SET
			status = EXCLUDED.status,
			charges_enabled = EXCLUDED.charges_enabled,
			payouts_enabled = EXCLUDED.payouts_enabled,
			details_submitted = EXCLUDED.details_submitted,
			requirements_due_by = EXCLUDED.requirements_due_by,
			requirements_fields = EXCLUDED.requirements_fields,
			updated_at = EXCLUDED.updated_at`,
		account.ID,
		account.UserID,
		account.GatewayAccountRef,
		account.Status,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.DetailsSubmitted,
		account.RequirementsDueBy,
		account.RequirementsFields,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}
