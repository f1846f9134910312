package domain

import "context"

type Service interface {
	// Settle applies a checkout-completed event: conditionally completes the
	// purchase, then pays out the educator's share. Every step is safe to
	// repeat on redelivery.
	Settle(ctx context.Context, event *SettlementEvent) error
}
