package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindByCustomerRef(ctx context.Context, db *gorm.DB, customerRef string) (*User, error)
	SetGatewayCustomerRef(ctx context.Context, db *gorm.DB, userID snowflake.ID, customerRef string) error
	SetSubscriptionStatus(ctx context.Context, db *gorm.DB, userID snowflake.ID, status string) error
}
