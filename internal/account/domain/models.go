package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AccountStatus string

const (
	AccountStatusPending AccountStatus = "pending"
	AccountStatusActive  AccountStatus = "active"
)

// ConnectedAccount mirrors an educator's payout account at the gateway.
type ConnectedAccount struct {
	ID                 snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID             snowflake.ID   `json:"user_id" gorm:"not null;index"`
	GatewayAccountRef  string         `json:"gateway_account_ref" gorm:"type:text;not null;uniqueIndex"`
	Status             AccountStatus  `json:"status" gorm:"type:text;not null"`
	ChargesEnabled     bool           `json:"charges_enabled" gorm:"not null"`
	PayoutsEnabled     bool           `json:"payouts_enabled" gorm:"not null"`
	DetailsSubmitted   bool           `json:"details_submitted" gorm:"not null"`
	RequirementsDueBy  *time.Time     `json:"requirements_due_by"`
	RequirementsFields datatypes.JSON `json:"requirements_fields" gorm:"type:jsonb"`
	CreatedAt          time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"not null"`
}

func (ConnectedAccount) TableName() string { return "connected_accounts" }

// PayoutCapable reports whether the account can receive transfers.
func (a *ConnectedAccount) PayoutCapable() bool {
	return a != nil && a.ChargesEnabled && a.PayoutsEnabled && a.DetailsSubmitted
}

// StatusEvent carries the capability flags the gateway reports for an account.
type StatusEvent struct {
	EventID            string
	AccountRef         string
	UserID             snowflake.ID
	ChargesEnabled     bool
	PayoutsEnabled     bool
	DetailsSubmitted   bool
	RequirementsDueBy  *time.Time
	RequirementsFields []string
	OccurredAt         time.Time
}
