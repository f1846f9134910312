package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/skillhut/skillhut/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var item domain.User
	err := db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindByCustomerRef(ctx context.Context, db *gorm.DB, customerRef string) (*domain.User, error) {
	var item domain.User
	err := db.WithContext(ctx).
		Where("gateway_customer_ref = ?", strings.TrimSpace(customerRef)).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) SetGatewayCustomerRef(ctx context.Context, db *gorm.DB, userID snowflake.ID, customerRef string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET gateway_customer_ref = ?, updated_at = ?
		 WHERE id = ?`,
		strings.TrimSpace(customerRef),
		time.Now().UTC(),
		userID,
	).Error
}

func (r *repo) SetSubscriptionStatus(ctx context.Context, db *gorm.DB, userID snowflake.ID, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET subscription_status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		userID,
	).Error
}
