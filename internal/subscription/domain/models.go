package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// Subscription mirrors a recurring billing agreement at the gateway. The row
// is keyed by the gateway's subscription reference; user_id stays null until
// the paying customer is resolved to an internal user.
type Subscription struct {
	ID                     snowflake.ID       `json:"id" gorm:"primaryKey"`
	UserID                 *snowflake.ID      `json:"user_id" gorm:"index"`
	GatewayCustomerRef     string             `json:"gateway_customer_ref" gorm:"type:text;not null"`
	GatewaySubscriptionRef string             `json:"gateway_subscription_ref" gorm:"type:text;not null;uniqueIndex"`
	ProductRef             string             `json:"product_ref" gorm:"type:text;not null"`
	PriceRef               string             `json:"price_ref" gorm:"type:text;not null"`
	Status                 SubscriptionStatus `json:"status" gorm:"type:text;not null"`
	CurrentPeriodStart     *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd       *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd      bool               `json:"cancel_at_period_end" gorm:"not null"`
	CanceledAt             *time.Time         `json:"canceled_at"`
	CreatedAt              time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt              time.Time          `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionUpdated EventAction = "updated"
	ActionDeleted EventAction = "deleted"
)

// LifecycleEvent is the decoded subscription payload. A deleted event may
// arrive for a subscription never seen locally; handlers upsert rather than
// require an existing row.
type LifecycleEvent struct {
	EventID            string
	Action             EventAction
	SubscriptionRef    string
	CustomerRef        string
	Status             SubscriptionStatus
	ProductRef         string
	PriceRef           string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	OccurredAt         time.Time
}

var ErrInvalidEvent = errors.New("invalid_subscription_event")
