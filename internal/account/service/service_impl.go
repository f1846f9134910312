package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/skillhut/skillhut/internal/account/domain"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	AuditSvc auditdomain.Service
	Repo     accountdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	auditSvc auditdomain.Service
	repo     accountdomain.Repository
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("account.service"),
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
	}
}

func (s *Service) ApplyStatus(ctx context.Context, event *accountdomain.StatusEvent) error {
	if event == nil || strings.TrimSpace(event.AccountRef) == "" {
		return nil
	}

	existing, err := s.repo.FindByAccountRef(ctx, s.db, event.AccountRef)
	if err != nil {
		return err
	}

	userID := event.UserID
	if existing != nil {
		userID = existing.UserID
	}
	if userID == 0 {
		// The account was never onboarded on our side; nothing to attach
		// the capability flags to.
		s.log.Warn("connected account update without a known user",
			zap.String("gateway_account_ref", event.AccountRef),
		)
		return nil
	}

	status := accountdomain.AccountStatusPending
	if event.ChargesEnabled && event.PayoutsEnabled && event.DetailsSubmitted {
		status = accountdomain.AccountStatusActive
	}

	fields, err := json.Marshal(event.RequirementsFields)
	if err != nil {
		fields = []byte("[]")
	}

	now := time.Now().UTC()
	account := &accountdomain.ConnectedAccount{
		ID:                 s.genID.Generate(),
		UserID:             userID,
		GatewayAccountRef:  strings.TrimSpace(event.AccountRef),
		Status:             status,
		ChargesEnabled:     event.ChargesEnabled,
		PayoutsEnabled:     event.PayoutsEnabled,
		DetailsSubmitted:   event.DetailsSubmitted,
		RequirementsDueBy:  event.RequirementsDueBy,
		RequirementsFields: datatypes.JSON(fields),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if existing != nil {
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, s.db, account); err != nil {
		return err
	}

	targetID := account.GatewayAccountRef
	metadata := map[string]any{
		"user_id":           userID.String(),
		"status":            string(status),
		"charges_enabled":   event.ChargesEnabled,
		"payouts_enabled":   event.PayoutsEnabled,
		"details_submitted": event.DetailsSubmitted,
		"gateway_event_id":  event.EventID,
	}
	if len(event.RequirementsFields) > 0 {
		metadata["requirements_fields"] = event.RequirementsFields
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, "connected_account.updated", "connected_account", &targetID, metadata); err != nil {
		s.log.Warn("failed to write account audit log", zap.Error(err))
	}
	return nil
}
