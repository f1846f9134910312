package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/skillhut/skillhut/internal/account/domain"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	payoutdomain "github.com/skillhut/skillhut/internal/payout/domain"
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
	AccountRepo accountdomain.Repository
	Repo        payoutdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	auditSvc    auditdomain.Service
	accountRepo accountdomain.Repository
	repo        payoutdomain.Repository
}

func NewService(p Params) payoutdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payout.service"),
		genID:       p.GenID,
		auditSvc:    p.AuditSvc,
		accountRepo: p.AccountRepo,
		repo:        p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, event *payoutdomain.StatusEvent) error {
	if event == nil || strings.TrimSpace(event.PayoutRef) == "" {
		return payoutdomain.ErrInvalidEvent
	}

	var userID *snowflake.ID
	accountRef := strings.TrimSpace(event.AccountRef)
	if accountRef != "" {
		account, err := s.accountRepo.FindByAccountRef(ctx, s.db, accountRef)
		if err != nil {
			return err
		}
		if account != nil {
			userID = &account.UserID
		}
	}

	payout := &payoutdomain.Payout{
		ID:               s.genID.Generate(),
		UserID:           userID,
		GatewayPayoutRef: strings.TrimSpace(event.PayoutRef),
		AccountRef:       accountRef,
		Amount:           event.Amount,
		Currency:         strings.ToUpper(event.Currency),
		Status:           event.Status,
		ArrivalDate:      event.ArrivalDate,
		Description:      event.Description,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, payout); err != nil {
		return err
	}

	targetID := payout.GatewayPayoutRef
	metadata := map[string]any{
		"status":           string(payout.Status),
		"amount":           payout.Amount,
		"currency":         payout.Currency,
		"account_ref":      accountRef,
		"gateway_event_id": event.EventID,
	}
	if userID != nil {
		metadata["user_id"] = userID.String()
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, "payout."+string(payout.Status), "payout", &targetID, metadata); err != nil {
		s.log.Warn("failed to write payout audit log", zap.Error(err))
	}
	return nil
}
