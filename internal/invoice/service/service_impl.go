package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	identitydomain "github.com/skillhut/skillhut/internal/identity/domain"
	invoicedomain "github.com/skillhut/skillhut/internal/invoice/domain"
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
	Repo        invoicedomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	auditSvc    auditdomain.Service
	identitySvc identitydomain.Service
	repo        invoicedomain.Repository
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		auditSvc:    p.AuditSvc,
		identitySvc: p.IdentitySvc,
		repo:        p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, event *invoicedomain.BillingEvent) error {
	if event == nil || strings.TrimSpace(event.InvoiceRef) == "" {
		return invoicedomain.ErrInvalidEvent
	}

	var userID *snowflake.ID
	if ref := strings.TrimSpace(event.CustomerRef); ref != "" {
		user, err := s.identitySvc.FindUserByCustomerRef(ctx, ref)
		if err != nil {
			return err
		}
		if user != nil {
			userID = &user.ID
		}
	}

	var subRef *string
	if ref := strings.TrimSpace(event.SubscriptionRef); ref != "" {
		subRef = &ref
	}

	invoice := &invoicedomain.Invoice{
		ID:                s.genID.Generate(),
		UserID:            userID,
		GatewayInvoiceRef: strings.TrimSpace(event.InvoiceRef),
		SubscriptionRef:   subRef,
		AmountDue:         event.AmountDue,
		AmountPaid:        event.AmountPaid,
		Currency:          strings.ToUpper(event.Currency),
		Status:            event.Status,
		PeriodStart:       event.PeriodStart,
		PeriodEnd:         event.PeriodEnd,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, invoice); err != nil {
		return err
	}

	targetID := invoice.GatewayInvoiceRef
	metadata := map[string]any{
		"status":           string(invoice.Status),
		"amount_due":       invoice.AmountDue,
		"amount_paid":      invoice.AmountPaid,
		"currency":         invoice.Currency,
		"gateway_event_id": event.EventID,
	}
	if userID != nil {
		metadata["user_id"] = userID.String()
	}
	if subRef != nil {
		metadata["subscription_ref"] = *subRef
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, "invoice."+string(invoice.Status), "invoice", &targetID, metadata); err != nil {
		s.log.Warn("failed to write invoice audit log", zap.Error(err))
	}
	return nil
}
