package stripe

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/skillhut/skillhut/internal/account/domain"
	invoicedomain "github.com/skillhut/skillhut/internal/invoice/domain"
	payoutdomain "github.com/skillhut/skillhut/internal/payout/domain"
	purchasedomain "github.com/skillhut/skillhut/internal/purchase/domain"
	subscriptiondomain "github.com/skillhut/skillhut/internal/subscription/domain"
	"github.com/skillhut/skillhut/internal/webhook/domain"
)

// Decode turns a raw Stripe event body into an Envelope. An unrecognized
// event type yields KindUnknown with no error; a recognized type with a
// payload that cannot carry its meaning yields ErrInvalidPayload.
func Decode(payload []byte) (*domain.Envelope, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	envelope := &domain.Envelope{
		EventID:    event.ID,
		Kind:       domain.KindUnknown,
		RawType:    strings.TrimSpace(event.Type),
		OccurredAt: timestamp(event.Created),
		Payload:    payload,
	}

	switch envelope.RawType {
	case "checkout.session.completed":
		return decodeCheckout(envelope, event)
	case "customer.subscription.created":
		return decodeSubscription(envelope, event, domain.KindSubscriptionCreated, subscriptiondomain.ActionCreated)
	case "customer.subscription.updated":
		return decodeSubscription(envelope, event, domain.KindSubscriptionUpdated, subscriptiondomain.ActionUpdated)
	case "customer.subscription.deleted":
		return decodeSubscription(envelope, event, domain.KindSubscriptionDeleted, subscriptiondomain.ActionDeleted)
	case "invoice.paid", "invoice.payment_succeeded":
		return decodeInvoice(envelope, event, domain.KindInvoicePaid, invoicedomain.InvoiceStatusPaid)
	case "invoice.payment_failed":
		return decodeInvoice(envelope, event, domain.KindInvoiceFailed, invoicedomain.InvoiceStatusFailed)
	case "account.updated":
		return decodeAccount(envelope, event)
	case "payout.paid":
		return decodePayout(envelope, event, domain.KindPayoutPaid, payoutdomain.PayoutStatusPaid)
	case "payout.failed":
		return decodePayout(envelope, event, domain.KindPayoutFailed, payoutdomain.PayoutStatusFailed)
	default:
		return envelope, nil
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Account string          `json:"account"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string         `json:"id"`
	PaymentIntent string         `json:"payment_intent"`
	AmountTotal   int64          `json:"amount_total"`
	Currency      string         `json:"currency"`
	Metadata      map[string]any `json:"metadata"`
}

type stripeSubscription struct {
	ID                 string         `json:"id"`
	Customer           string         `json:"customer"`
	Status             string         `json:"status"`
	CurrentPeriodStart int64          `json:"current_period_start"`
	CurrentPeriodEnd   int64          `json:"current_period_end"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
	CanceledAt         int64          `json:"canceled_at"`
	Items              stripeSubItems `json:"items"`
}

type stripeSubItems struct {
	Data []stripeSubItem `json:"data"`
}

type stripeSubItem struct {
	Price stripePrice `json:"price"`
}

type stripePrice struct {
	ID      string `json:"id"`
	Product string `json:"product"`
}

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountDue    int64  `json:"amount_due"`
	AmountPaid   int64  `json:"amount_paid"`
	Currency     string `json:"currency"`
	PeriodStart  int64  `json:"period_start"`
	PeriodEnd    int64  `json:"period_end"`
}

type stripeAccount struct {
	ID               string             `json:"id"`
	ChargesEnabled   bool               `json:"charges_enabled"`
	PayoutsEnabled   bool               `json:"payouts_enabled"`
	DetailsSubmitted bool               `json:"details_submitted"`
	Requirements     stripeRequirements `json:"requirements"`
	Metadata         map[string]any     `json:"metadata"`
}

type stripeRequirements struct {
	CurrentlyDue    []string `json:"currently_due"`
	CurrentDeadline int64    `json:"current_deadline"`
}

type stripePayout struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ArrivalDate int64  `json:"arrival_date"`
	Description string `json:"description"`
}

func decodeCheckout(envelope *domain.Envelope, event stripeEvent) (*domain.Envelope, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	// Checkout metadata carries the internal identifiers set when the
	// session was created; without them the sale cannot be attributed.
	purchaseID, err := metadataID(session.Metadata, "purchase_id")
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	productID, _ := metadataID(session.Metadata, "product_id")
	buyerID, _ := metadataID(session.Metadata, "buyer_id")

	envelope.Kind = domain.KindCheckoutCompleted
	envelope.Purchase = &purchasedomain.SettlementEvent{
		EventID:     event.ID,
		PurchaseID:  purchaseID,
		ProductID:   productID,
		BuyerID:     buyerID,
		AmountTotal: session.AmountTotal,
		Currency:    strings.ToUpper(strings.TrimSpace(session.Currency)),
		PaymentRef:  strings.TrimSpace(session.PaymentIntent),
		SessionRef:  session.ID,
		OccurredAt:  envelope.OccurredAt,
	}
	return envelope, nil
}

func decodeSubscription(envelope *domain.Envelope, event stripeEvent, kind domain.EventKind, action subscriptiondomain.EventAction) (*domain.Envelope, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	lifecycle := &subscriptiondomain.LifecycleEvent{
		EventID:            event.ID,
		Action:             action,
		SubscriptionRef:    sub.ID,
		CustomerRef:        strings.TrimSpace(sub.Customer),
		Status:             subscriptiondomain.SubscriptionStatus(strings.TrimSpace(sub.Status)),
		CurrentPeriodStart: optionalTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   optionalTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         optionalTime(sub.CanceledAt),
		OccurredAt:         envelope.OccurredAt,
	}
	if len(sub.Items.Data) > 0 {
		lifecycle.PriceRef = sub.Items.Data[0].Price.ID
		lifecycle.ProductRef = sub.Items.Data[0].Price.Product
	}

	envelope.Kind = kind
	envelope.Subscription = lifecycle
	return envelope, nil
}

func decodeInvoice(envelope *domain.Envelope, event stripeEvent, kind domain.EventKind, status invoicedomain.InvoiceStatus) (*domain.Envelope, error) {
	var inv stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &inv); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(inv.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	envelope.Kind = kind
	envelope.Invoice = &invoicedomain.BillingEvent{
		EventID:         event.ID,
		InvoiceRef:      inv.ID,
		CustomerRef:     strings.TrimSpace(inv.Customer),
		SubscriptionRef: strings.TrimSpace(inv.Subscription),
		Status:          status,
		AmountDue:       inv.AmountDue,
		AmountPaid:      inv.AmountPaid,
		Currency:        strings.ToUpper(strings.TrimSpace(inv.Currency)),
		PeriodStart:     optionalTime(inv.PeriodStart),
		PeriodEnd:       optionalTime(inv.PeriodEnd),
		OccurredAt:      envelope.OccurredAt,
	}
	return envelope, nil
}

func decodeAccount(envelope *domain.Envelope, event stripeEvent) (*domain.Envelope, error) {
	var account stripeAccount
	if err := json.Unmarshal(event.Data.Object, &account); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(account.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	status := &accountdomain.StatusEvent{
		EventID:            event.ID,
		AccountRef:         account.ID,
		ChargesEnabled:     account.ChargesEnabled,
		PayoutsEnabled:     account.PayoutsEnabled,
		DetailsSubmitted:   account.DetailsSubmitted,
		RequirementsDueBy:  optionalTime(account.Requirements.CurrentDeadline),
		RequirementsFields: account.Requirements.CurrentlyDue,
		OccurredAt:         envelope.OccurredAt,
	}
	if userID, err := metadataID(account.Metadata, "user_id"); err == nil {
		status.UserID = userID
	}

	envelope.Kind = domain.KindAccountUpdated
	envelope.Account = status
	return envelope, nil
}

func decodePayout(envelope *domain.Envelope, event stripeEvent, kind domain.EventKind, status payoutdomain.PayoutStatus) (*domain.Envelope, error) {
	var payout stripePayout
	if err := json.Unmarshal(event.Data.Object, &payout); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(payout.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	envelope.Kind = kind
	envelope.Payout = &payoutdomain.StatusEvent{
		EventID:     event.ID,
		PayoutRef:   payout.ID,
		AccountRef:  strings.TrimSpace(event.Account),
		Status:      status,
		Amount:      payout.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(payout.Currency)),
		ArrivalDate: optionalTime(payout.ArrivalDate),
		Description: strings.TrimSpace(payout.Description),
		OccurredAt:  envelope.OccurredAt,
	}
	return envelope, nil
}

func timestamp(created int64) time.Time {
	if created == 0 {
		return time.Now().UTC()
	}
	return time.Unix(created, 0).UTC()
}

func optionalTime(unix int64) *time.Time {
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

func metadataID(metadata map[string]any, key string) (snowflake.ID, error) {
	raw := metadataValue(metadata, key)
	if raw == "" {
		return 0, domain.ErrInvalidPayload
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidPayload
	}
	return id, nil
}

func metadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
