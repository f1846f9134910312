package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert appends the invoice; a duplicate gateway ref is a no-op.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
}
