package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByAccountRef(ctx context.Context, db *gorm.DB, accountRef string) (*ConnectedAccount, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*ConnectedAccount, error)
	Upsert(ctx context.Context, db *gorm.DB, account *ConnectedAccount) error
}
