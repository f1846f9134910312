package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/skillhut/skillhut/internal/account/domain"
	auditdomain "github.com/skillhut/skillhut/internal/audit/domain"
	"github.com/skillhut/skillhut/internal/config"
	productdomain "github.com/skillhut/skillhut/internal/product/domain"
	purchasedomain "github.com/skillhut/skillhut/internal/purchase/domain"
	transferdomain "github.com/skillhut/skillhut/internal/transfer/domain"
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
	TransferSvc transferdomain.Service
	Repo        purchasedomain.Repository
	ProductRepo productdomain.Repository
	AccountRepo accountdomain.Repository
	PayoutCfg   *config.PayoutConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	auditSvc    auditdomain.Service
	transferSvc transferdomain.Service
	repo        purchasedomain.Repository
	productRepo productdomain.Repository
	accountRepo accountdomain.Repository
	payoutCfg   *config.PayoutConfigHolder
}

func NewService(p Params) purchasedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("purchase.service"),
		genID:       p.GenID,
		auditSvc:    p.AuditSvc,
		transferSvc: p.TransferSvc,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		accountRepo: p.AccountRepo,
		payoutCfg:   p.PayoutCfg,
	}
}

// Settle runs the settlement steps in order; each one is individually safe
// to repeat, so a redelivered event resumes wherever the last attempt
// stopped.
func (s *Service) Settle(ctx context.Context, event *purchasedomain.SettlementEvent) error {
	if event == nil || event.PurchaseID == 0 {
		return purchasedomain.ErrInvalidEvent
	}

	purchase, err := s.repo.FindByID(ctx, s.db, event.PurchaseID)
	if err != nil {
		return err
	}
	if purchase == nil {
		return purchasedomain.ErrPurchaseNotFound
	}

	flipped, err := s.repo.CompleteFromPending(ctx, s.db, event.PurchaseID, event.PaymentRef, event.SessionRef, event.OccurredAt.UTC())
	if err != nil {
		return err
	}
	if flipped {
		s.writePurchaseAudit(ctx, event, purchase)
	}

	product, err := s.productRepo.FindByID(ctx, s.db, purchase.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		s.log.Warn("settled purchase references missing product",
			zap.String("purchase_id", event.PurchaseID.String()),
			zap.String("product_id", purchase.ProductID.String()),
		)
		return nil
	}

	account, err := s.accountRepo.FindByUserID(ctx, s.db, product.EducatorID)
	if err != nil {
		return err
	}
	if !account.PayoutCapable() {
		// Recoverable business state: the educator has not finished
		// onboarding, so their share waits for reconciliation.
		s.log.Info("skipping transfer for non payout-capable educator",
			zap.String("purchase_id", event.PurchaseID.String()),
			zap.String("educator_id", product.EducatorID.String()),
		)
		targetID := event.PurchaseID.String()
		if err := s.auditSvc.AuditLog(ctx, "", nil, "purchase.transfer_skipped", "purchase", &targetID, map[string]any{
			"reason":      "educator_not_payout_capable",
			"product_id":  product.ID.String(),
			"educator_id": product.EducatorID.String(),
		}); err != nil {
			s.log.Warn("failed to write transfer-skipped audit log", zap.Error(err))
		}
		return nil
	}

	gross := event.AmountTotal
	if gross <= 0 {
		gross = purchase.Amount
	}
	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if currency == "" {
		currency = strings.ToUpper(purchase.Currency)
	}

	if _, err := s.transferSvc.PayoutSale(ctx, transferdomain.Request{
		EventID:        event.EventID,
		PurchaseID:     event.PurchaseID,
		ProductID:      product.ID,
		EducatorID:     product.EducatorID,
		DestinationRef: account.GatewayAccountRef,
		GrossAmount:    gross,
		FeePercent:     s.feePercent(product),
		Currency:       currency,
	}); err != nil {
		// The buyer-facing completion above stands; surfacing the error
		// keeps the event unprocessed so redelivery retries the payout.
		return fmt.Errorf("%w: %v", purchasedomain.ErrTransferPending, err)
	}
	return nil
}

func (s *Service) feePercent(product *productdomain.Product) int64 {
	if product.FeePercent != nil && *product.FeePercent >= 0 && *product.FeePercent <= 100 {
		return *product.FeePercent
	}
	if s.payoutCfg != nil {
		return s.payoutCfg.Get().DefaultFeePercent
	}
	return config.DefaultPayoutConfig().DefaultFeePercent
}

func (s *Service) writePurchaseAudit(ctx context.Context, event *purchasedomain.SettlementEvent, purchase *purchasedomain.Purchase) {
	targetID := event.PurchaseID.String()
	metadata := map[string]any{
		"product_id":          purchase.ProductID.String(),
		"buyer_id":            purchase.BuyerID.String(),
		"gateway_payment_ref": event.PaymentRef,
		"gateway_session_ref": event.SessionRef,
		"gateway_event_id":    event.EventID,
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, "purchase.completed", "purchase", &targetID, metadata); err != nil {
		s.log.Warn("failed to write purchase audit log", zap.Error(err))
	}
}
