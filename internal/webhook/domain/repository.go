package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent claims the delivery. Returns false when another delivery of
	// the same gateway event id already holds the row.
	InsertEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, gatewayEventID string) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, gatewayEventID string, processedAt time.Time) error
}
