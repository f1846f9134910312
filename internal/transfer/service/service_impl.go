package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	"github.com/skillhut/skillhut/internal/config"
	gatewaydomain "github.com/skillhut/skillhut/internal/gateway/domain"
	transferdomain "github.com/skillhut/skillhut/internal/transfer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Gateway   gatewaydomain.Client
	AuditSvc  auditdomain.Service
	Repo      transferdomain.Repository
	PayoutCfg *config.PayoutConfigHolder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	gateway   gatewaydomain.Client
	auditSvc  auditdomain.Service
	repo      transferdomain.Repository
	payoutCfg *config.PayoutConfigHolder
}

func NewService(p Params) transferdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("transfer.service"),
		genID:     p.GenID,
		gateway:   p.Gateway,
		auditSvc:  p.AuditSvc,
		repo:      p.Repo,
		payoutCfg: p.PayoutCfg,
	}
}

func (s *Service) PayoutSale(ctx context.Context, req transferdomain.Request) (*transferdomain.Record, error) {
	if req.GrossAmount <= 0 {
		return nil, transferdomain.ErrInvalidAmount
	}
	if req.FeePercent < 0 || req.FeePercent > 100 {
		return nil, transferdomain.ErrInvalidPercent
	}
	destination := strings.TrimSpace(req.DestinationRef)
	if destination == "" {
		return nil, gatewaydomain.ErrTransferRejected
	}

	fee, payee := transferdomain.Split(req.GrossAmount, req.FeePercent)

	minAmount := int64(0)
	if s.payoutCfg != nil {
		minAmount = s.payoutCfg.Get().MinTransferAmount
	}
	if payee < minAmount {
		s.log.Info("skipping transfer below minimum",
			zap.String("purchase_id", req.PurchaseID.String()),
			zap.Int64("payee_amount", payee),
			zap.Int64("min_amount", minAmount),
		)
		s.writeAuditLog(ctx, "transfer.skipped", req, fee, payee, map[string]any{
			"reason":     "below_minimum",
			"min_amount": minAmount,
		})
		return nil, nil
	}

	created, err := s.gateway.CreateTransfer(ctx, gatewaydomain.TransferRequest{
		Amount:         payee,
		Currency:       req.Currency,
		DestinationRef: destination,
		IdempotencyKey: "transfer:" + strings.TrimSpace(req.EventID),
		Description:    fmt.Sprintf("sale %s", req.PurchaseID.String()),
		Metadata: map[string]string{
			"purchase_id": req.PurchaseID.String(),
			"product_id":  req.ProductID.String(),
			"educator_id": req.EducatorID.String(),
		},
	})
	if err != nil {
		s.log.Warn("gateway rejected transfer",
			zap.String("purchase_id", req.PurchaseID.String()),
			zap.String("product_id", req.ProductID.String()),
			zap.String("educator_id", req.EducatorID.String()),
			zap.Int64("payee_amount", payee),
			zap.Error(err),
		)
		s.writeAuditLog(ctx, "transfer.rejected", req, fee, payee, map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	record := &transferdomain.Record{
		ID:                 s.genID.Generate(),
		PurchaseID:         req.PurchaseID,
		GatewayTransferRef: created.Ref,
		DestinationRef:     destination,
		GrossAmount:        req.GrossAmount,
		FeeAmount:          fee,
		PayeeAmount:        payee,
		Currency:           strings.ToUpper(strings.TrimSpace(req.Currency)),
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := s.repo.InsertRecord(ctx, s.db, record); err != nil {
		// The transfer went out; the trace row is best-effort and the
		// gateway idempotency key protects replays.
		s.log.Warn("failed to record transfer", zap.String("purchase_id", req.PurchaseID.String()), zap.Error(err))
	}

	s.writeAuditLog(ctx, "transfer.created", req, fee, payee, map[string]any{
		"gateway_transfer_ref": created.Ref,
	})
	return record, nil
}

func (s *Service) writeAuditLog(ctx context.Context, action string, req transferdomain.Request, fee int64, payee int64, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"purchase_id":     req.PurchaseID.String(),
		"product_id":      req.ProductID.String(),
		"educator_id":     req.EducatorID.String(),
		"destination_ref": req.DestinationRef,
		"gross_amount":    req.GrossAmount,
		"fee_percent":     req.FeePercent,
		"fee_amount":      fee,
		"payee_amount":    payee,
		"currency":        strings.ToUpper(strings.TrimSpace(req.Currency)),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := req.PurchaseID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "transfer", &targetID, metadata); err != nil {
		s.log.Warn("failed to write transfer audit log", zap.String("action", action), zap.Error(err))
	}
}
