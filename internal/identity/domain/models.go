package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus mirrors the user's latest membership state.
const (
	SubscriptionStatusNone     = "none"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

type User struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	Email              string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Name               string       `json:"name" gorm:"type:text;not null"`
	GatewayCustomerRef *string      `json:"gateway_customer_ref" gorm:"type:text"`
	SubscriptionStatus string       `json:"subscription_status" gorm:"type:text;not null;default:none"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }
