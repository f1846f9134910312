package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type InvoiceStatus string

const (
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusFailed InvoiceStatus = "failed"
)

// Invoice is an append-only record of a gateway billing attempt. Rows are
// never updated; the unique gateway ref absorbs redeliveries.
type Invoice struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID            *snowflake.ID `json:"user_id" gorm:"index"`
	GatewayInvoiceRef string        `json:"gateway_invoice_ref" gorm:"type:text;not null;uniqueIndex"`
	SubscriptionRef   *string       `json:"subscription_ref" gorm:"type:text"`
	AmountDue         int64         `json:"amount_due" gorm:"not null"`
	AmountPaid        int64         `json:"amount_paid" gorm:"not null"`
	Currency          string        `json:"currency" gorm:"type:text;not null"`
	Status            InvoiceStatus `json:"status" gorm:"type:text;not null"`
	PeriodStart       *time.Time    `json:"period_start"`
	PeriodEnd         *time.Time    `json:"period_end"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// BillingEvent is the decoded invoice payload.
type BillingEvent struct {
	EventID         string
	InvoiceRef      string
	CustomerRef     string
	SubscriptionRef string
	Status          InvoiceStatus
	AmountDue       int64
	AmountPaid      int64
	Currency        string
	PeriodStart     *time.Time
	PeriodEnd       *time.Time
	OccurredAt      time.Time
}

var ErrInvalidEvent = errors.New("invalid_invoice_event")
