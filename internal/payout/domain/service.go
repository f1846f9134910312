package domain

import "context"

type Service interface {
	// Record appends a payout row for a paid or failed payout, resolving the
	// owning user through the connected-account reference.
	Record(ctx context.Context, event *StatusEvent) error
}
