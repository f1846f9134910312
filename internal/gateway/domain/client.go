// Package domain defines the outbound payment-gateway contract. The gateway
// is a black box reached over HTTP; everything in this package is the narrow
// surface the processing core depends on, so tests can substitute fakes.
package domain

import (
	"context"
	"errors"
	"time"
)

type Subscription struct {
	Ref                string
	CustomerRef        string
	Status             string
	ProductRef         string
	PriceRef           string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

type Customer struct {
	Ref   string
	Email string
	Name  string
}

type TransferRequest struct {
	Amount         int64
	Currency       string
	DestinationRef string
	// IdempotencyKey lets the gateway dedupe retried requests; the caller
	// derives it from the inbound event so redeliveries cannot double-pay.
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

type Transfer struct {
	Ref            string
	DestinationRef string
	Amount         int64
	Currency       string
}

type Client interface {
	RetrieveSubscription(ctx context.Context, ref string) (*Subscription, error)
	RetrieveCustomer(ctx context.Context, ref string) (*Customer, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
}

var (
	ErrNotConfigured    = errors.New("gateway_not_configured")
	ErrTransferRejected = errors.New("transfer_rejected")
	ErrRequestFailed    = errors.New("gateway_request_failed")
)
