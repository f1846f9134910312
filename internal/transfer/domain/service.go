package domain

import "context"

type Service interface {
	// PayoutSale computes the fee split and issues the payee's share to the
	// destination account. A nil record with a nil error means the payout
	// was intentionally skipped (amount below the configured minimum).
	PayoutSale(ctx context.Context, req Request) (*Record, error)
}
