package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Resolver maps gateway customers onto internal users. A nil user with a nil
// error means no match; callers skip user-scoped side effects in that case.
type Resolver interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByCustomerRef(ctx context.Context, customerRef string) (*User, error)
}

type Service interface {
	Resolver
	LinkGatewayCustomer(ctx context.Context, userID snowflake.ID, customerRef string) error
	SetSubscriptionStatus(ctx context.Context, userID snowflake.ID, status string) error
}
