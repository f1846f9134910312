package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skillhut/skillhut/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (
			id, gateway_event_id, event_kind, payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT (gateway_event_id) DO NOTHING`,
		event.ID,
		event.GatewayEventID,
		event.EventKind,
		event.Payload,
		event.ReceivedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, gatewayEventID string) (*domain.WebhookEvent, error) {
	var item domain.WebhookEvent
	err := db.WithContext(ctx).
		Where("gateway_event_id = ?", strings.TrimSpace(gatewayEventID)).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, gatewayEventID string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events SET processed_at = ? WHERE gateway_event_id = ?`,
		processedAt,
		strings.TrimSpace(gatewayEventID),
	).Error
}
