package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	gatewaydomain "github.com/skillhut/skillhut/internal/gateway/domain"
	identitydomain "github.com/skillhut/skillhut/internal/identity/domain"
	subscriptiondomain "github.com/skillhut/skillhut/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	AuditSvc    auditdomain.Service
	IdentitySvc identitydomain.Service
	Gateway     gatewaydomain.Client
	Repo        subscriptiondomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	auditSvc    auditdomain.Service
	identitySvc identitydomain.Service
	gateway     gatewaydomain.Client
	repo        subscriptiondomain.Repository
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("subscription.service"),
		genID:       p.GenID,
		auditSvc:    p.AuditSvc,
		identitySvc: p.IdentitySvc,
		gateway:     p.Gateway,
		repo:        p.Repo,
	}
}

func (s *Service) Apply(ctx context.Context, event *subscriptiondomain.LifecycleEvent) error {
	if event == nil || strings.TrimSpace(event.SubscriptionRef) == "" {
		return subscriptiondomain.ErrInvalidEvent
	}

	if event.Status == "" {
		s.hydrateFromGateway(ctx, event)
	}
	if event.Action == subscriptiondomain.ActionDeleted {
		event.Status = subscriptiondomain.SubscriptionStatusCanceled
	}

	existing, err := s.repo.FindByRef(ctx, s.db, event.SubscriptionRef)
	if err != nil {
		return err
	}

	userID := s.resolveUser(ctx, event.CustomerRef, existing)

	now := time.Now().UTC()
	sub := &subscriptiondomain.Subscription{
		ID:                     s.genID.Generate(),
		UserID:                 userID,
		GatewayCustomerRef:     strings.TrimSpace(event.CustomerRef),
		GatewaySubscriptionRef: strings.TrimSpace(event.SubscriptionRef),
		ProductRef:             event.ProductRef,
		PriceRef:               event.PriceRef,
		Status:                 event.Status,
		CurrentPeriodStart:     event.CurrentPeriodStart,
		CurrentPeriodEnd:       event.CurrentPeriodEnd,
		CancelAtPeriodEnd:      event.CancelAtPeriodEnd,
		CanceledAt:             event.CanceledAt,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if existing != nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		if sub.GatewayCustomerRef == "" {
			sub.GatewayCustomerRef = existing.GatewayCustomerRef
		}
	}

	applied, err := s.repo.Upsert(ctx, s.db, sub)
	if err != nil {
		return err
	}
	if !applied {
		// The guard declined a stale period; mirroring the event's status
		// onto the user would regress the newer stored state.
		s.log.Info("ignoring stale subscription event",
			zap.String("gateway_subscription_ref", sub.GatewaySubscriptionRef),
			zap.String("gateway_event_id", event.EventID),
		)
		return nil
	}

	if userID != nil {
		if err := s.identitySvc.SetSubscriptionStatus(ctx, *userID, memberStatus(sub.Status)); err != nil {
			return err
		}
	}

	targetID := sub.GatewaySubscriptionRef
	metadata := map[string]any{
		"status":               string(sub.Status),
		"gateway_customer_ref": sub.GatewayCustomerRef,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"gateway_event_id":     event.EventID,
	}
	if userID != nil {
		metadata["user_id"] = userID.String()
	}
	if sub.CurrentPeriodEnd != nil {
		metadata["current_period_end"] = sub.CurrentPeriodEnd.UTC().Format(time.RFC3339)
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, "subscription."+string(event.Action), "subscription", &targetID, metadata); err != nil {
		s.log.Warn("failed to write subscription audit log", zap.Error(err))
	}
	return nil
}

// hydrateFromGateway fills fields a sparse payload omitted. Failures are not
// fatal; the handler applies whatever the event carried.
func (s *Service) hydrateFromGateway(ctx context.Context, event *subscriptiondomain.LifecycleEvent) {
	remote, err := s.gateway.RetrieveSubscription(ctx, event.SubscriptionRef)
	if err != nil || remote == nil {
		if err != nil {
			s.log.Warn("failed to retrieve subscription from gateway",
				zap.String("gateway_subscription_ref", event.SubscriptionRef),
				zap.Error(err),
			)
		}
		return
	}
	event.Status = subscriptiondomain.SubscriptionStatus(remote.Status)
	if event.CustomerRef == "" {
		event.CustomerRef = remote.CustomerRef
	}
	if event.ProductRef == "" {
		event.ProductRef = remote.ProductRef
	}
	if event.PriceRef == "" {
		event.PriceRef = remote.PriceRef
	}
	if event.CurrentPeriodStart == nil && !remote.CurrentPeriodStart.IsZero() {
		start := remote.CurrentPeriodStart
		event.CurrentPeriodStart = &start
	}
	if event.CurrentPeriodEnd == nil && !remote.CurrentPeriodEnd.IsZero() {
		end := remote.CurrentPeriodEnd
		event.CurrentPeriodEnd = &end
	}
	event.CancelAtPeriodEnd = event.CancelAtPeriodEnd || remote.CancelAtPeriodEnd
	if event.CanceledAt == nil {
		event.CanceledAt = remote.CanceledAt
	}
}

// resolveUser maps the gateway customer to an internal user. A customer can
// exist at the gateway before being provisioned internally, so a miss is not
// an error.
func (s *Service) resolveUser(ctx context.Context, customerRef string, existing *subscriptiondomain.Subscription) *snowflake.ID {
	if existing != nil && existing.UserID != nil {
		return existing.UserID
	}
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return nil
	}

	user, err := s.identitySvc.FindUserByCustomerRef(ctx, customerRef)
	if err != nil {
		s.log.Warn("identity lookup by customer ref failed", zap.Error(err))
		return nil
	}
	if user != nil {
		return &user.ID
	}

	customer, err := s.gateway.RetrieveCustomer(ctx, customerRef)
	if err != nil || customer == nil || customer.Email == "" {
		if err != nil {
			s.log.Warn("failed to retrieve customer from gateway",
				zap.String("gateway_customer_ref", customerRef),
				zap.Error(err),
			)
		}
		return nil
	}

	user, err = s.identitySvc.FindUserByEmail(ctx, customer.Email)
	if err != nil || user == nil {
		if err != nil {
			s.log.Warn("identity lookup by email failed", zap.Error(err))
		}
		return nil
	}
	if err := s.identitySvc.LinkGatewayCustomer(ctx, user.ID, customerRef); err != nil {
		s.log.Warn("failed to link gateway customer", zap.Error(err))
	}
	return &user.ID
}

func memberStatus(status subscriptiondomain.SubscriptionStatus) string {
	switch status {
	case subscriptiondomain.SubscriptionStatusActive, subscriptiondomain.SubscriptionStatusTrialing:
		return identitydomain.SubscriptionStatusActive
	case subscriptiondomain.SubscriptionStatusPastDue, subscriptiondomain.SubscriptionStatusUnpaid:
		return identitydomain.SubscriptionStatusPastDue
	case subscriptiondomain.SubscriptionStatusCanceled:
		return identitydomain.SubscriptionStatusCanceled
	default:
		return identitydomain.SubscriptionStatusNone
	}
}
