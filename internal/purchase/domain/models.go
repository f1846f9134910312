package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Purchase is created at checkout time and settled by the webhook core.
// completed_at is set iff status is completed.
type Purchase struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	ProductID         snowflake.ID   `json:"product_id" gorm:"not null;index"`
	BuyerID           snowflake.ID   `json:"buyer_id" gorm:"not null;index"`
	Status            PurchaseStatus `json:"status" gorm:"type:text;not null"`
	Amount            int64          `json:"amount" gorm:"not null"`
	Currency          string         `json:"currency" gorm:"type:text;not null"`
	GatewayPaymentRef *string        `json:"gateway_payment_ref" gorm:"type:text"`
	GatewaySessionRef *string        `json:"gateway_session_ref" gorm:"type:text"`
	CompletedAt       *time.Time     `json:"completed_at"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null"`
}

func (Purchase) TableName() string { return "purchases" }

// SettlementEvent carries the checkout-completed payload fields the handler
// acts on. Identifiers travel as checkout metadata set at session creation.
type SettlementEvent struct {
	EventID     string
	PurchaseID  snowflake.ID
	ProductID   snowflake.ID
	BuyerID     snowflake.ID
	AmountTotal int64
	Currency    string
	PaymentRef  string
	SessionRef  string
	OccurredAt  time.Time
}

var (
	ErrPurchaseNotFound = errors.New("purchase_not_found")
	ErrInvalidEvent     = errors.New("invalid_purchase_event")
	ErrTransferPending  = errors.New("transfer_pending")
)
