package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PayoutStatus string

const (
	PayoutStatusPaid   PayoutStatus = "paid"
	PayoutStatusFailed PayoutStatus = "failed"
)

// Payout is an append-only record of funds leaving a connected account for
// the educator's bank. Rows are never updated.
type Payout struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID           *snowflake.ID `json:"user_id" gorm:"index"`
	GatewayPayoutRef string        `json:"gateway_payout_ref" gorm:"type:text;not null;uniqueIndex"`
	AccountRef       string        `json:"account_ref" gorm:"type:text;not null"`
	Amount           int64         `json:"amount" gorm:"not null"`
	Currency         string        `json:"currency" gorm:"type:text;not null"`
	Status           PayoutStatus  `json:"status" gorm:"type:text;not null"`
	ArrivalDate      *time.Time    `json:"arrival_date"`
	Description      string        `json:"description" gorm:"type:text;not null"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null"`
}

func (Payout) TableName() string { return "payouts" }

// StatusEvent is the decoded payout payload.
type StatusEvent struct {
	EventID     string
	PayoutRef   string
	AccountRef  string
	Status      PayoutStatus
	Amount      int64
	Currency    string
	ArrivalDate *time.Time
	Description string
	OccurredAt  time.Time
}

var ErrInvalidEvent = errors.New("invalid_payout_event")
