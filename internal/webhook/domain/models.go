// Package domain defines the inbound webhook contract: the closed set of
// event kinds, the decoded envelope, and the stored event row that backs
// the idempotency gate.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/skillhut/skillhut/internal/account/domain"
	invoicedomain "github.com/skillhut/skillhut/internal/invoice/domain"
	payoutdomain "github.com/skillhut/skillhut/internal/payout/domain"
	purchasedomain "github.com/skillhut/skillhut/internal/purchase/domain"
	subscriptiondomain "github.com/skillhut/skillhut/internal/subscription/domain"
	"gorm.io/datatypes"
)

// EventKind is the closed set of notifications the core acts on. Adding a
// kind means extending the decoder and the router's switch; the compiler
// flags any arm left unhandled.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindCheckoutCompleted
	KindSubscriptionCreated
	KindSubscriptionUpdated
	KindSubscriptionDeleted
	KindInvoicePaid
	KindInvoiceFailed
	KindAccountUpdated
	KindPayoutPaid
	KindPayoutFailed
)

func (k EventKind) String() string {
	switch k {
	case KindCheckoutCompleted:
		return "checkout.completed"
	case KindSubscriptionCreated:
		return "subscription.created"
	case KindSubscriptionUpdated:
		return "subscription.updated"
	case KindSubscriptionDeleted:
		return "subscription.deleted"
	case KindInvoicePaid:
		return "invoice.paid"
	case KindInvoiceFailed:
		return "invoice.failed"
	case KindAccountUpdated:
		return "account.updated"
	case KindPayoutPaid:
		return "payout.paid"
	case KindPayoutFailed:
		return "payout.failed"
	default:
		return "unknown"
	}
}

// Envelope is a verified, decoded notification. Exactly one of the typed
// event fields is set for a recognized kind; all are nil for KindUnknown.
type Envelope struct {
	EventID    string
	Kind       EventKind
	RawType    string
	OccurredAt time.Time
	Payload    []byte

	Purchase     *purchasedomain.SettlementEvent
	Subscription *subscriptiondomain.LifecycleEvent
	Invoice      *invoicedomain.BillingEvent
	Account      *accountdomain.StatusEvent
	Payout       *payoutdomain.StatusEvent
}

// WebhookEvent is the stored delivery record. processed_at is set only after
// the routed handler returns, so a crash mid-handler leaves the row eligible
// for the redelivered attempt.
type WebhookEvent struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	GatewayEventID string         `json:"gateway_event_id" gorm:"type:text;not null;uniqueIndex"`
	EventKind      string         `json:"event_kind" gorm:"type:text;not null"`
	Payload        datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt     time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt    *time.Time     `json:"processed_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Disposition tells the transport layer how to answer the gateway.
type Disposition int

const (
	// DispositionOK acknowledges the delivery; the gateway stops retrying.
	DispositionOK Disposition = iota
	// DispositionRetryable asks the gateway to redeliver later.
	DispositionRetryable
	// DispositionPermanent rejects the delivery; retrying cannot help.
	DispositionPermanent
)

// Result is the structured outcome of processing one delivery.
type Result struct {
	Disposition Disposition
	Kind        EventKind
	EventID     string
	Reason      string
}

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrStaleTimestamp        = errors.New("stale_signature_timestamp")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")

	// ErrTransferPending marks a handler failure whose remaining work is
	// the payout itself; the event stays unprocessed until redelivery
	// completes the transfer.
	ErrTransferPending = purchasedomain.ErrTransferPending
)
