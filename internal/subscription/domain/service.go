package domain

import "context"

type Service interface {
	// Apply upserts the subscription described by the event and mirrors the
	// resulting status onto the owning user when one can be resolved.
	Apply(ctx context.Context, event *LifecycleEvent) error
}
