package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertRecord appends the transfer trace; returns false when a record
	// for the purchase already exists.
	InsertRecord(ctx context.Context, db *gorm.DB, record *Record) (bool, error)
}
