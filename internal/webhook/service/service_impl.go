package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/skillhut/skillhut/internal/account/domain"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	invoicedomain "github.com/skillhut/skillhut/internal/invoice/domain"
	"github.com/skillhut/skillhut/internal/metrics"
	payoutdomain "github.com/skillhut/skillhut/internal/payout/domain"
	purchasedomain "github.com/skillhut/skillhut/internal/purchase/domain"
	subscriptiondomain "github.com/skillhut/skillhut/internal/subscription/domain"
	webhookdomain "github.com/skillhut/skillhut/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Metrics         *metrics.Metrics `optional:"true"`
	Verifier        webhookdomain.Verifier
	Decode          webhookdomain.DecodeFunc
	Repo            webhookdomain.Repository
	AuditSvc        auditdomain.Service
	PurchaseSvc     purchasedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	AccountSvc      accountdomain.Service
	PayoutSvc       payoutdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	metrics         *metrics.Metrics
	verifier        webhookdomain.Verifier
	decode          webhookdomain.DecodeFunc
	repo            webhookdomain.Repository
	auditSvc        auditdomain.Service
	purchaseSvc     purchasedomain.Service
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	accountSvc      accountdomain.Service
	payoutSvc       payoutdomain.Service
}

func NewService(p Params) webhookdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("webhook.service"),
		genID:           p.GenID,
		metrics:         p.Metrics,
		verifier:        p.Verifier,
		decode:          p.Decode,
		repo:            p.Repo,
		auditSvc:        p.AuditSvc,
		purchaseSvc:     p.PurchaseSvc,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		accountSvc:      p.AccountSvc,
		payoutSvc:       p.PayoutSvc,
	}
}

// Process runs one delivery through verify, decode, the idempotency gate,
// and the kind router. Nothing is written before the signature checks out.
func (s *Service) Process(ctx context.Context, payload []byte, signatureHeader string) (webhookdomain.Result, error) {
	start := time.Now()

	if err := s.verifier.Verify(payload, signatureHeader); err != nil {
		s.record(webhookdomain.KindUnknown, "rejected", start)
		return webhookdomain.Result{
			Disposition: webhookdomain.DispositionPermanent,
			Kind:        webhookdomain.KindUnknown,
			Reason:      "signature verification failed",
		}, err
	}

	envelope, err := s.decode(payload)
	if err != nil {
		s.record(webhookdomain.KindUnknown, "malformed", start)
		return webhookdomain.Result{
			Disposition: webhookdomain.DispositionPermanent,
			Kind:        webhookdomain.KindUnknown,
			Reason:      "payload decode failed",
		}, err
	}

	log := s.log.With(
		zap.String("gateway_event_id", envelope.EventID),
		zap.String("event_kind", envelope.Kind.String()),
		zap.String("event_type", envelope.RawType),
	)

	if envelope.Kind == webhookdomain.KindUnknown {
		// Accepted and ignored; acknowledging stops the gateway from
		// retrying a kind we will never act on.
		log.Info("ignoring unhandled event type")
		targetID := envelope.EventID
		if err := s.auditSvc.AuditLog(ctx, "", nil, "webhook.unhandled", "webhook_event", &targetID, map[string]any{
			"event_type": envelope.RawType,
		}); err != nil {
			log.Warn("failed to write unhandled-event audit log", zap.Error(err))
		}
		s.record(envelope.Kind, "ignored", start)
		return s.ok(envelope, "unhandled event type"), nil
	}

	claimed, err := s.repo.InsertEvent(ctx, s.db, &webhookdomain.WebhookEvent{
		ID:             s.genID.Generate(),
		GatewayEventID: envelope.EventID,
		EventKind:      envelope.Kind.String(),
		Payload:        datatypes.JSON(envelope.Payload),
		ReceivedAt:     time.Now().UTC(),
	})
	if err != nil {
		s.record(envelope.Kind, "error", start)
		return s.retryable(envelope, "event store write failed"), err
	}
	if !claimed {
		stored, err := s.repo.FindEvent(ctx, s.db, envelope.EventID)
		if err != nil {
			s.record(envelope.Kind, "error", start)
			return s.retryable(envelope, "event store read failed"), err
		}
		if stored != nil && stored.ProcessedAt != nil {
			log.Info("skipping already processed event")
			s.record(envelope.Kind, "duplicate", start)
			return s.ok(envelope, "already processed"), nil
		}
		// Row exists but was never finished; this delivery resumes it.
		log.Info("resuming partially processed event")
	}

	if err := s.route(ctx, envelope); err != nil {
		// Leaving processed_at unset makes the gateway's redelivery retry
		// the remaining work.
		log.Warn("event handler failed", zap.Error(err))
		s.record(envelope.Kind, "failed", start)
		if permanent(err) {
			return webhookdomain.Result{
				Disposition: webhookdomain.DispositionPermanent,
				Kind:        envelope.Kind,
				EventID:     envelope.EventID,
				Reason:      "handler rejected payload",
			}, err
		}
		if errors.Is(err, webhookdomain.ErrTransferPending) {
			return s.retryable(envelope, "transfer pending"), err
		}
		return s.retryable(envelope, "handler failed"), err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, envelope.EventID, time.Now().UTC()); err != nil {
		s.record(envelope.Kind, "error", start)
		return s.retryable(envelope, "failed to mark event processed"), err
	}

	log.Info("processed webhook event", zap.Duration("elapsed", time.Since(start)))
	s.record(envelope.Kind, "processed", start)
	return s.ok(envelope, ""), nil
}

func (s *Service) route(ctx context.Context, envelope *webhookdomain.Envelope) error {
	switch envelope.Kind {
	case webhookdomain.KindCheckoutCompleted:
		return s.purchaseSvc.Settle(ctx, envelope.Purchase)
	case webhookdomain.KindSubscriptionCreated,
		webhookdomain.KindSubscriptionUpdated,
		webhookdomain.KindSubscriptionDeleted:
		return s.subscriptionSvc.Apply(ctx, envelope.Subscription)
	case webhookdomain.KindInvoicePaid, webhookdomain.KindInvoiceFailed:
		return s.invoiceSvc.Record(ctx, envelope.Invoice)
	case webhookdomain.KindAccountUpdated:
		return s.accountSvc.ApplyStatus(ctx, envelope.Account)
	case webhookdomain.KindPayoutPaid, webhookdomain.KindPayoutFailed:
		return s.payoutSvc.Record(ctx, envelope.Payout)
	case webhookdomain.KindUnknown:
		return nil
	}
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, purchasedomain.ErrInvalidEvent) ||
		errors.Is(err, subscriptiondomain.ErrInvalidEvent) ||
		errors.Is(err, invoicedomain.ErrInvalidEvent) ||
		errors.Is(err, payoutdomain.ErrInvalidEvent)
}

func (s *Service) ok(envelope *webhookdomain.Envelope, reason string) webhookdomain.Result {
	return webhookdomain.Result{
		Disposition: webhookdomain.DispositionOK,
		Kind:        envelope.Kind,
		EventID:     envelope.EventID,
		Reason:      reason,
	}
}

func (s *Service) retryable(envelope *webhookdomain.Envelope, reason string) webhookdomain.Result {
	return webhookdomain.Result{
		Disposition: webhookdomain.DispositionRetryable,
		Kind:        envelope.Kind,
		EventID:     envelope.EventID,
		Reason:      reason,
	}
}

func (s *Service) record(kind webhookdomain.EventKind, outcome string, start time.Time) {
	s.metrics.RecordWebhookEvent(kind.String(), outcome, time.Since(start))
}
