package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountrepo "github.com/skillhut/skillhut/internal/account/repository"
	accountservice "github.com/skillhut/skillhut/internal/account/service"
	auditrepo "github.com/skillhut/skillhut/internal/audit/repository"
	auditservice "github.com/skillhut/skillhut/internal/audit/service"
	"github.com/skillhut/skillhut/internal/config"
	gatewaydomain "github.com/skillhut/skillhut/internal/gateway/domain"
	identityrepo "github.com/skillhut/skillhut/internal/identity/repository"
	identityservice "github.com/skillhut/skillhut/internal/identity/service"
	invoicerepo "github.com/skillhut/skillhut/internal/invoice/repository"
	invoiceservice "github.com/skillhut/skillhut/internal/invoice/service"
	payoutrepo "github.com/skillhut/skillhut/internal/payout/repository"
	payoutservice "github.com/skillhut/skillhut/internal/payout/service"
	productrepo "github.com/skillhut/skillhut/internal/product/repository"
	purchaserepo "github.com/skillhut/skillhut/internal/purchase/repository"
	purchaseservice "github.com/skillhut/skillhut/internal/purchase/service"
	subscriptionrepo "github.com/skillhut/skillhut/internal/subscription/repository"
	subscriptionservice "github.com/skillhut/skillhut/internal/subscription/service"
	transferrepo "github.com/skillhut/skillhut/internal/transfer/repository"
	transferservice "github.com/skillhut/skillhut/internal/transfer/service"
	webhookdomain "github.com/skillhut/skillhut/internal/webhook/domain"
	webhookrepo "github.com/skillhut/skillhut/internal/webhook/repository"
	webhookservice "github.com/skillhut/skillhut/internal/webhook/service"
	webhookstripe "github.com/skillhut/skillhut/internal/webhook/stripe"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const signingSecret = "whsec_test"

type fakeGateway struct {
	transfers     []gatewaydomain.TransferRequest
	failTransfers bool
	customers     map[string]gatewaydomain.Customer
}

func (f *fakeGateway) RetrieveSubscription(ctx context.Context, ref string) (*gatewaydomain.Subscription, error) {
	return nil, gatewaydomain.ErrRequestFailed
}

func (f *fakeGateway) RetrieveCustomer(ctx context.Context, ref string) (*gatewaydomain.Customer, error) {
	if customer, ok := f.customers[ref]; ok {
		return &customer, nil
	}
	return nil, gatewaydomain.ErrRequestFailed
}

func (f *fakeGateway) CreateTransfer(ctx context.Context, req gatewaydomain.TransferRequest) (*gatewaydomain.Transfer, error) {
	if f.failTransfers {
		return nil, fmt.Errorf("%w: insufficient platform balance", gatewaydomain.ErrTransferRejected)
	}
	f.transfers = append(f.transfers, req)
	return &gatewaydomain.Transfer{
		Ref:            fmt.Sprintf("tr_%d", len(f.transfers)),
		DestinationRef: req.DestinationRef,
		Amount:         req.Amount,
		Currency:       req.Currency,
	}, nil
}

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	gateway *fakeGateway
	svc     webhookdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	gateway := &fakeGateway{customers: map[string]gatewaydomain.Customer{}}
	payoutCfg := config.NewStaticPayoutConfigHolder(config.PayoutConfig{
		DefaultFeePercent: 15,
		MinTransferAmount: 100,
	})

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
	identitySvc := identityservice.NewService(identityservice.Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: identityrepo.Provide(),
	})
	transferSvc := transferservice.NewService(transferservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Gateway:   gateway,
		AuditSvc:  auditSvc,
		Repo:      transferrepo.Provide(),
		PayoutCfg: payoutCfg,
	})
	purchaseSvc := purchaseservice.NewService(purchaseservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		AuditSvc:    auditSvc,
		TransferSvc: transferSvc,
		Repo:        purchaserepo.Provide(),
		ProductRepo: productrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
		PayoutCfg:   payoutCfg,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		AuditSvc:    auditSvc,
		IdentitySvc: identitySvc,
		Gateway:     gateway,
		Repo:        subscriptionrepo.Provide(),
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		AuditSvc:    auditSvc,
		IdentitySvc: identitySvc,
		Repo:        invoicerepo.Provide(),
	})
	accountSvc := accountservice.NewService(accountservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		AuditSvc: auditSvc,
		Repo:     accountrepo.Provide(),
	})
	payoutSvc := payoutservice.NewService(payoutservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		AuditSvc:    auditSvc,
		AccountRepo: accountrepo.Provide(),
		Repo:        payoutrepo.Provide(),
	})

	svc := webhookservice.NewService(webhookservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Verifier:        webhookstripe.NewVerifier(signingSecret, 5*time.Minute),
		Decode:          webhookstripe.Decode,
		Repo:            webhookrepo.Provide(),
		AuditSvc:        auditSvc,
		PurchaseSvc:     purchaseSvc,
		SubscriptionSvc: subscriptionSvc,
		InvoiceSvc:      invoiceSvc,
		AccountSvc:      accountSvc,
		PayoutSvc:       payoutSvc,
	})

	return &fixture{db: db, node: node, gateway: gateway, svc: svc}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			gateway_customer_ref TEXT,
			subscription_status TEXT NOT NULL DEFAULT 'none',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			educator_id BIGINT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			price_amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			fee_percent SMALLINT,
			sales_count BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE purchases (
			id BIGINT PRIMARY KEY,
			product_id BIGINT NOT NULL,
			buyer_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			gateway_payment_ref TEXT,
			gateway_session_ref TEXT,
			completed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT,
			gateway_customer_ref TEXT NOT NULL DEFAULT '',
			gateway_subscription_ref TEXT NOT NULL UNIQUE,
			product_ref TEXT NOT NULL DEFAULT '',
			price_ref TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_period_start DATETIME,
			current_period_end DATETIME,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			canceled_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			user_id BIGINT,
			gateway_invoice_ref TEXT NOT NULL UNIQUE,
			subscription_ref TEXT,
			amount_due BIGINT NOT NULL DEFAULT 0,
			amount_paid BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			status TEXT NOT NULL,
			period_start DATETIME,
			period_end DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE connected_accounts (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			gateway_account_ref TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'pending',
			charges_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			payouts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			details_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			requirements_due_by DATETIME,
			requirements_fields TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payouts (
			id BIGINT PRIMARY KEY,
			user_id BIGINT,
			gateway_payout_ref TEXT NOT NULL UNIQUE,
			account_ref TEXT NOT NULL DEFAULT '',
			amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			status TEXT NOT NULL,
			arrival_date DATETIME,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transfers (
			id BIGINT PRIMARY KEY,
			purchase_id BIGINT NOT NULL UNIQUE,
			gateway_transfer_ref TEXT NOT NULL DEFAULT '',
			destination_ref TEXT NOT NULL,
			gross_amount BIGINT NOT NULL,
			fee_amount BIGINT NOT NULL,
			payee_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE webhook_events (
			id BIGINT PRIMARY KEY,
			gateway_event_id TEXT NOT NULL UNIQUE,
			event_kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at DATETIME NOT NULL,
			processed_at DATETIME
		)`,
		`CREATE TABLE audit_logs (
			id BIGINT PRIMARY KEY,
			actor_type TEXT NOT NULL DEFAULT 'system',
			actor_id TEXT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			ip_address TEXT,
			user_agent TEXT,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func (f *fixture) seedUser(t *testing.T, email string, customerRef string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := time.Now().UTC()
	var ref any
	if customerRef != "" {
		ref = customerRef
	}
	if err := f.db.Exec(
		`INSERT INTO users (id, email, name, gateway_customer_ref, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, "Test User", ref, now, now,
	).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (f *fixture) seedProduct(t *testing.T, educatorID snowflake.ID, price int64, feePercent *int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := time.Now().UTC()
	if err := f.db.Exec(
		`INSERT INTO products (id, educator_id, title, price_amount, currency, fee_percent, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, educatorID, "Intro Course", price, "USD", feePercent, now, now,
	).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func (f *fixture) seedPurchase(t *testing.T, productID, buyerID snowflake.ID, amount int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := time.Now().UTC()
	if err := f.db.Exec(
		`INSERT INTO purchases (id, product_id, buyer_id, status, amount, currency, created_at, updated_at) VALUES (?, ?, ?, 'pending', ?, 'USD', ?, ?)`,
		id, productID, buyerID, amount, now, now,
	).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	return id
}

func (f *fixture) seedAccount(t *testing.T, userID snowflake.ID, accountRef string, capable bool) {
	t.Helper()
	now := time.Now().UTC()
	if err := f.db.Exec(
		`INSERT INTO connected_accounts (id, user_id, gateway_account_ref, status, charges_enabled, payouts_enabled, details_submitted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.node.Generate(), userID, accountRef, map[bool]string{true: "active", false: "pending"}[capable], capable, capable, capable, now, now,
	).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func signedHeader(payload []byte) string {
	timestamp := time.Now().Unix()
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(signingSecret))
	_, _ = mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutPayload(eventID string, purchaseID, productID, buyerID snowflake.ID, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"%s","type":"checkout.session.completed","created":%d,"data":{"object":{"id":"cs_1","payment_intent":"pi_1","amount_total":%d,"currency":"usd","metadata":{"purchase_id":"%s","product_id":"%s","buyer_id":"%s"}}}}`,
		eventID, time.Now().Unix(), amount, purchaseID, productID, buyerID,
	))
}

func assertCount(t *testing.T, db *gorm.DB, query string, want int64) {
	t.Helper()
	var got int64
	if err := db.Raw(query).Scan(&got).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %d rows from %q, got %d", want, query, got)
	}
}

func TestProcessCheckoutSettlesAndPaysOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	educatorID := f.seedUser(t, "educator@example.com", "")
	buyerID := f.seedUser(t, "buyer@example.com", "")
	productID := f.seedProduct(t, educatorID, 3900, nil)
	purchaseID := f.seedPurchase(t, productID, buyerID, 3900)
	f.seedAccount(t, educatorID, "acct_1", true)

	payload := checkoutPayload("evt_abc", purchaseID, productID, buyerID, 3900)

	result, err := f.svc.Process(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v (%s)", result.Disposition, result.Reason)
	}

	var status string
	if err := f.db.Raw(`SELECT status FROM purchases WHERE id = ?`, purchaseID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != "completed" {
		t.Fatalf("expected purchase completed, got %s", status)
	}

	var salesCount int64
	if err := f.db.Raw(`SELECT sales_count FROM products WHERE id = ?`, productID).Scan(&salesCount).Error; err != nil {
		t.Fatalf("scan sales_count: %v", err)
	}
	if salesCount != 1 {
		t.Fatalf("expected sales_count 1, got %d", salesCount)
	}

	if len(f.gateway.transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(f.gateway.transfers))
	}
	transfer := f.gateway.transfers[0]
	if transfer.Amount != 3315 {
		t.Fatalf("expected payee amount 3315, got %d", transfer.Amount)
	}
	if transfer.DestinationRef != "acct_1" {
		t.Fatalf("expected destination acct_1, got %s", transfer.DestinationRef)
	}
	if transfer.IdempotencyKey != "transfer:evt_abc" {
		t.Fatalf("unexpected idempotency key %q", transfer.IdempotencyKey)
	}

	var feeAmount, payeeAmount int64
	row := f.db.Raw(`SELECT fee_amount, payee_amount FROM transfers WHERE purchase_id = ?`, purchaseID).Row()
	if err := row.Scan(&feeAmount, &payeeAmount); err != nil {
		t.Fatalf("scan transfer: %v", err)
	}
	if feeAmount != 585 || payeeAmount != 3315 {
		t.Fatalf("expected split 585/3315, got %d/%d", feeAmount, payeeAmount)
	}

	var processedAt sql.NullTime
	if err := f.db.Raw(`SELECT processed_at FROM webhook_events WHERE gateway_event_id = 'evt_abc'`).Scan(&processedAt).Error; err != nil {
		t.Fatalf("scan processed_at: %v", err)
	}
	if !processedAt.Valid {
		t.Fatalf("expected processed_at to be set")
	}

	// Replaying the same event acknowledges without repeating side effects.
	result, err = f.svc.Process(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("replay process: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition on replay, got %v", result.Disposition)
	}
	if len(f.gateway.transfers) != 1 {
		t.Fatalf("expected transfer count unchanged on replay, got %d", len(f.gateway.transfers))
	}
	if err := f.db.Raw(`SELECT sales_count FROM products WHERE id = ?`, productID).Scan(&salesCount).Error; err != nil {
		t.Fatalf("scan sales_count: %v", err)
	}
	if salesCount != 1 {
		t.Fatalf("expected sales_count still 1 after replay, got %d", salesCount)
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'purchase.completed'`, 1)
}

func TestProcessRejectsTamperedPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	payload := []byte(`{"id":"evt_bad","type":"checkout.session.completed","data":{"object":{}}}`)
	header := signedHeader(payload)
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = 'x'

	result, err := f.svc.Process(ctx, tampered, header)
	if err == nil {
		t.Fatalf("expected verification error")
	}
	if result.Disposition != webhookdomain.DispositionPermanent {
		t.Fatalf("expected permanent disposition, got %v", result.Disposition)
	}

	// Nothing may touch the store before the signature checks out.
	assertCount(t, f.db, `SELECT COUNT(1) FROM webhook_events`, 0)
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs`, 0)
}

func TestProcessAcceptsUnknownKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	payload := []byte(`{"id":"evt_mystery","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)

	result, err := f.svc.Process(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	assertCount(t, f.db, `SELECT COUNT(1) FROM webhook_events`, 0)
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'webhook.unhandled'`, 1)
}

func TestProcessResumesAfterTransferFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	educatorID := f.seedUser(t, "educator@example.com", "")
	buyerID := f.seedUser(t, "buyer@example.com", "")
	productID := f.seedProduct(t, educatorID, 3900, nil)
	purchaseID := f.seedPurchase(t, productID, buyerID, 3900)
	f.seedAccount(t, educatorID, "acct_1", true)

	payload := checkoutPayload("evt_retry", purchaseID, productID, buyerID, 3900)

	f.gateway.failTransfers = true
	result, err := f.svc.Process(ctx, payload, signedHeader(payload))
	if err == nil {
		t.Fatalf("expected transfer failure to surface")
	}
	if result.Disposition != webhookdomain.DispositionRetryable {
		t.Fatalf("expected retryable disposition, got %v", result.Disposition)
	}

	// The buyer-facing completion stands even though the payout failed.
	var status string
	if err := f.db.Raw(`SELECT status FROM purchases WHERE id = ?`, purchaseID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != "completed" {
		t.Fatalf("expected purchase completed, got %s", status)
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM transfers`, 0)

	var processedAt sql.NullTime
	if err := f.db.Raw(`SELECT processed_at FROM webhook_events WHERE gateway_event_id = 'evt_retry'`).Scan(&processedAt).Error; err != nil {
		t.Fatalf("scan processed_at: %v", err)
	}
	if processedAt.Valid {
		t.Fatalf("expected processed_at unset after failed transfer")
	}

	// Redelivery completes the payout without re-running step one.
	f.gateway.failTransfers = false
	result, err = f.svc.Process(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("redelivery process: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition on redelivery, got %v", result.Disposition)
	}
	if len(f.gateway.transfers) != 1 {
		t.Fatalf("expected 1 transfer after redelivery, got %d", len(f.gateway.transfers))
	}

	var salesCount int64
	if err := f.db.Raw(`SELECT sales_count FROM products WHERE id = ?`, productID).Scan(&salesCount).Error; err != nil {
		t.Fatalf("scan sales_count: %v", err)
	}
	if salesCount != 1 {
		t.Fatalf("expected sales_count 1 after redelivery, got %d", salesCount)
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'purchase.completed'`, 1)

	if err := f.db.Raw(`SELECT processed_at FROM webhook_events WHERE gateway_event_id = 'evt_retry'`).Scan(&processedAt).Error; err != nil {
		t.Fatalf("scan processed_at: %v", err)
	}
	if !processedAt.Valid {
		t.Fatalf("expected processed_at set after redelivery")
	}
}

func TestProcessSkipsEducatorWithoutPayoutAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	educatorID := f.seedUser(t, "educator@example.com", "")
	buyerID := f.seedUser(t, "buyer@example.com", "")
	productID := f.seedProduct(t, educatorID, 3900, nil)
	purchaseID := f.seedPurchase(t, productID, buyerID, 3900)
	f.seedAccount(t, educatorID, "acct_1", false)

	payload := checkoutPayload("evt_skip", purchaseID, productID, buyerID, 3900)

	result, err := f.svc.Process(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	var status string
	if err := f.db.Raw(`SELECT status FROM purchases WHERE id = ?`, purchaseID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != "completed" {
		t.Fatalf("expected purchase completed, got %s", status)
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM transfers`, 0)
	if len(f.gateway.transfers) != 0 {
		t.Fatalf("expected no gateway transfers, got %d", len(f.gateway.transfers))
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'purchase.transfer_skipped'`, 1)
}

func TestProcessSubscriptionCanceledWithoutLocalRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedUser(t, "member@example.com", "cus_77")

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_subdel","type":"customer.subscription.deleted","created":%d,"data":{"object":{"id":"sub_1","customer":"cus_77","status":"canceled","canceled_at":%d}}}`,
		time.Now().Unix(), time.Now().Unix(),
	))

	result, err := f.svc.Process(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	// The cancel arrived before any create was seen; the handler upserts.
	var status string
	if err := f.db.Raw(`SELECT status FROM subscriptions WHERE gateway_subscription_ref = 'sub_1'`).Scan(&status).Error; err != nil {
		t.Fatalf("scan subscription status: %v", err)
	}
	if status != "canceled" {
		t.Fatalf("expected canceled subscription, got %s", status)
	}

	var memberStatus string
	if err := f.db.Raw(`SELECT subscription_status FROM users WHERE id = ?`, userID).Scan(&memberStatus).Error; err != nil {
		t.Fatalf("scan user status: %v", err)
	}
	if memberStatus != "canceled" {
		t.Fatalf("expected user status canceled, got %s", memberStatus)
	}
}

func TestProcessInvoiceAndPayoutRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedUser(t, "member@example.com", "cus_55")
	f.seedAccount(t, userID, "acct_55", true)

	invoicePayload := []byte(fmt.Sprintf(
		`{"id":"evt_inv","type":"invoice.payment_failed","created":%d,"data":{"object":{"id":"in_1","customer":"cus_55","subscription":"sub_9","amount_due":1500,"amount_paid":0,"currency":"usd"}}}`,
		time.Now().Unix(),
	))
	result, err := f.svc.Process(ctx, invoicePayload, signedHeader(invoicePayload))
	if err != nil {
		t.Fatalf("process invoice: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	var invoiceUserID int64
	if err := f.db.Raw(`SELECT user_id FROM invoices WHERE gateway_invoice_ref = 'in_1'`).Scan(&invoiceUserID).Error; err != nil {
		t.Fatalf("scan invoice user: %v", err)
	}
	if invoiceUserID != int64(userID) {
		t.Fatalf("expected invoice resolved to user %d, got %d", int64(userID), invoiceUserID)
	}

	payoutPayload := []byte(fmt.Sprintf(
		`{"id":"evt_po","type":"payout.paid","account":"acct_55","created":%d,"data":{"object":{"id":"po_1","amount":9000,"currency":"usd","description":"weekly payout"}}}`,
		time.Now().Unix(),
	))
	result, err = f.svc.Process(ctx, payoutPayload, signedHeader(payoutPayload))
	if err != nil {
		t.Fatalf("process payout: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	var payoutUserID int64
	if err := f.db.Raw(`SELECT user_id FROM payouts WHERE gateway_payout_ref = 'po_1'`).Scan(&payoutUserID).Error; err != nil {
		t.Fatalf("scan payout user: %v", err)
	}
	if payoutUserID != int64(userID) {
		t.Fatalf("expected payout resolved to user %d, got %d", int64(userID), payoutUserID)
	}

	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'invoice.failed'`, 1)
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'payout.paid'`, 1)
}

func subscriptionPayload(eventID, subscriptionRef, customerRef, status string, periodEnd time.Time) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"%s","type":"customer.subscription.updated","created":%d,"data":{"object":{"id":"%s","customer":"%s","status":"%s","current_period_end":%d}}}`,
		eventID, time.Now().Unix(), subscriptionRef, customerRef, status, periodEnd.Unix(),
	))
}

func TestProcessStaleSubscriptionKeepsMemberStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedUser(t, "member@example.com", "cus_88")

	renewedEnd := time.Now().UTC().Add(30 * 24 * time.Hour)
	current := subscriptionPayload("evt_sub_now", "sub_5", "cus_88", "active", renewedEnd)
	result, err := f.svc.Process(ctx, current, signedHeader(current))
	if err != nil {
		t.Fatalf("process current: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	// A redelivered event from the expired billing period must not touch
	// the row or the user's membership flag.
	stale := subscriptionPayload("evt_sub_old", "sub_5", "cus_88", "past_due", renewedEnd.Add(-60*24*time.Hour))
	result, err = f.svc.Process(ctx, stale, signedHeader(stale))
	if err != nil {
		t.Fatalf("process stale: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition for stale event, got %v", result.Disposition)
	}

	var subStatus string
	if err := f.db.Raw(`SELECT status FROM subscriptions WHERE gateway_subscription_ref = 'sub_5'`).Scan(&subStatus).Error; err != nil {
		t.Fatalf("scan subscription status: %v", err)
	}
	if subStatus != "active" {
		t.Fatalf("expected subscription to stay active, got %s", subStatus)
	}

	var memberStatus string
	if err := f.db.Raw(`SELECT subscription_status FROM users WHERE id = ?`, userID).Scan(&memberStatus).Error; err != nil {
		t.Fatalf("scan user status: %v", err)
	}
	if memberStatus != "active" {
		t.Fatalf("expected user status to stay active, got %s", memberStatus)
	}

	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'subscription.updated'`, 1)
}

func accountPayload(eventID, accountRef string, userID snowflake.ID, chargesEnabled, payoutsEnabled, detailsSubmitted bool, currentlyDue string) []byte {
	metadata := "{}"
	if userID != 0 {
		metadata = fmt.Sprintf(`{"user_id":"%s"}`, userID)
	}
	return []byte(fmt.Sprintf(
		`{"id":"%s","type":"account.updated","created":%d,"data":{"object":{"id":"%s","charges_enabled":%t,"payouts_enabled":%t,"details_submitted":%t,"requirements":{"currently_due":[%s]},"metadata":%s}}}`,
		eventID, time.Now().Unix(), accountRef, chargesEnabled, payoutsEnabled, detailsSubmitted, currentlyDue, metadata,
	))
}

func TestProcessAccountUpdatedTracksCapability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedUser(t, "educator@example.com", "")

	onboarded := accountPayload("evt_acct_1", "acct_9", userID, true, true, true, "")
	result, err := f.svc.Process(ctx, onboarded, signedHeader(onboarded))
	if err != nil {
		t.Fatalf("process onboarded: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	var status string
	var storedUserID int64
	row := f.db.Raw(`SELECT status, user_id FROM connected_accounts WHERE gateway_account_ref = 'acct_9'`).Row()
	if err := row.Scan(&status, &storedUserID); err != nil {
		t.Fatalf("scan account: %v", err)
	}
	if status != "active" {
		t.Fatalf("expected active account, got %s", status)
	}
	if storedUserID != int64(userID) {
		t.Fatalf("expected account owner %d, got %d", int64(userID), storedUserID)
	}

	// The gateway pulls payouts pending new requirements; the same row
	// flips back to pending and records what is due.
	restricted := accountPayload("evt_acct_2", "acct_9", 0, true, false, true, `"external_account"`)
	result, err = f.svc.Process(ctx, restricted, signedHeader(restricted))
	if err != nil {
		t.Fatalf("process restricted: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}

	var fields string
	row = f.db.Raw(`SELECT status, requirements_fields FROM connected_accounts WHERE gateway_account_ref = 'acct_9'`).Row()
	if err := row.Scan(&status, &fields); err != nil {
		t.Fatalf("scan restricted account: %v", err)
	}
	if status != "pending" {
		t.Fatalf("expected pending account after restriction, got %s", status)
	}
	if fields != `["external_account"]` {
		t.Fatalf("unexpected requirements fields %q", fields)
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM connected_accounts`, 1)
	assertCount(t, f.db, `SELECT COUNT(1) FROM audit_logs WHERE action = 'connected_account.updated'`, 2)

	// An account we never onboarded has no user to attach flags to.
	unknown := accountPayload("evt_acct_3", "acct_ghost", 0, true, true, true, "")
	result, err = f.svc.Process(ctx, unknown, signedHeader(unknown))
	if err != nil {
		t.Fatalf("process unknown: %v", err)
	}
	if result.Disposition != webhookdomain.DispositionOK {
		t.Fatalf("expected ok disposition, got %v", result.Disposition)
	}
	assertCount(t, f.db, `SELECT COUNT(1) FROM connected_accounts`, 1)
}
