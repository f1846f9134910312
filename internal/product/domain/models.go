package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product is a sellable item owned by an educator.
type Product struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	EducatorID  snowflake.ID `json:"educator_id" gorm:"not null;index"`
	Title       string       `json:"title" gorm:"type:text;not null"`
	PriceAmount int64        `json:"price_amount" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"type:text;not null"`
	// FeePercent overrides the platform default when set.
	FeePercent *int64    `json:"fee_percent" gorm:"type:smallint"`
	SalesCount int64     `json:"sales_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
