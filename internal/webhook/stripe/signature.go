package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skillhut/skillhut/internal/webhook/domain"
)

// Verifier checks the Stripe-Signature header against the raw request body.
// The scheme is HMAC-SHA256 over "<timestamp>.<body>" with the endpoint's
// signing secret; the timestamp bounds replay of a captured delivery.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    strings.TrimSpace(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// NewVerifierAt pins the clock; used in tests.
func NewVerifierAt(secret string, tolerance time.Duration, now func() time.Time) *Verifier {
	v := NewVerifier(secret, tolerance)
	v.now = now
	return v
}

func (v *Verifier) Verify(payload []byte, header string) error {
	if v.secret == "" {
		return domain.ErrInvalidSignature
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return domain.ErrInvalidSignature
	}

	if v.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return domain.ErrInvalidSignature
		}
		drift := v.now().UTC().Sub(time.Unix(ts, 0))
		if drift > v.tolerance || drift < -v.tolerance {
			return domain.ErrStaleTimestamp
		}
	}
	return nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("malformed signature header")
	}
	return timestamp, signatures, nil
}
