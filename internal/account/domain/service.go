package domain

import "context"

type Service interface {
	// ApplyStatus upserts the account's capability flags as reported by the
	// gateway; the gateway is the source of truth for these fields.
	ApplyStatus(ctx context.Context, event *StatusEvent) error
}
