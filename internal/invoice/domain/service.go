package domain

import "context"

type Service interface {
	// Record appends an invoice row for a paid or failed gateway invoice.
	// Recording is the whole job; no billing state machine runs here.
	Record(ctx context.Context, event *BillingEvent) error
}
