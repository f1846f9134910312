package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skillhut/skillhut/internal/webhook/domain"
)

func buildSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)
	now := time.Now().UTC()

	verifier := NewVerifierAt(secret, 5*time.Minute, func() time.Time { return now })

	header := buildSignatureHeader(secret, payload, now.Unix())
	if err := verifier.Verify(payload, header); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	if err := verifier.Verify(payload, buildSignatureHeader("wrong", payload, now.Unix())); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = 'x'
	if err := verifier.Verify(tampered, header); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error for tampered body, got %v", err)
	}

	if err := verifier.Verify(payload, ""); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error for missing header, got %v", err)
	}

	if err := verifier.Verify(payload, "t=,v1="); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error for malformed header, got %v", err)
	}
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123"}`)
	now := time.Now().UTC()

	verifier := NewVerifierAt(secret, 5*time.Minute, func() time.Time { return now })

	old := now.Add(-10 * time.Minute).Unix()
	if err := verifier.Verify(payload, buildSignatureHeader(secret, payload, old)); !errors.Is(err, domain.ErrStaleTimestamp) {
		t.Fatalf("expected stale timestamp error, got %v", err)
	}

	future := now.Add(10 * time.Minute).Unix()
	if err := verifier.Verify(payload, buildSignatureHeader(secret, payload, future)); !errors.Is(err, domain.ErrStaleTimestamp) {
		t.Fatalf("expected stale timestamp error for future timestamp, got %v", err)
	}

	// Within tolerance on either side is fine.
	recent := now.Add(-time.Minute).Unix()
	if err := verifier.Verify(payload, buildSignatureHeader(secret, payload, recent)); err != nil {
		t.Fatalf("expected signature within tolerance to verify, got %v", err)
	}
}
