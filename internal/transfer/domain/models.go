package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Record is the durable trace of a fund transfer issued for a sale.
type Record struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	PurchaseID         snowflake.ID `json:"purchase_id" gorm:"not null;uniqueIndex"`
	GatewayTransferRef string       `json:"gateway_transfer_ref" gorm:"type:text"`
	DestinationRef     string       `json:"destination_ref" gorm:"type:text;not null"`
	GrossAmount        int64        `json:"gross_amount" gorm:"not null"`
	FeeAmount          int64        `json:"fee_amount" gorm:"not null"`
	PayeeAmount        int64        `json:"payee_amount" gorm:"not null"`
	Currency           string       `json:"currency" gorm:"type:text;not null"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
}

func (Record) TableName() string { return "transfers" }

// Request describes one payee payout for a settled sale.
type Request struct {
	// EventID is the inbound gateway event id; it seeds the transfer
	// idempotency key so redeliveries cannot double-pay.
	EventID        string
	PurchaseID     snowflake.ID
	ProductID      snowflake.ID
	EducatorID     snowflake.ID
	DestinationRef string
	GrossAmount    int64
	FeePercent     int64
	Currency       string
}

var (
	ErrInvalidAmount  = errors.New("invalid_transfer_amount")
	ErrInvalidPercent = errors.New("invalid_fee_percent")
)
