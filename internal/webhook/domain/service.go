package domain

import "context"

// Verifier authenticates a raw delivery against its signature header.
type Verifier interface {
	Verify(payload []byte, header string) error
}

// DecodeFunc turns a verified raw body into an Envelope.
type DecodeFunc func(payload []byte) (*Envelope, error)

type Service interface {
	// Process verifies, decodes, gates, and routes one raw delivery. The
	// returned Result carries the response the transport should send; err is
	// non-nil only alongside a non-OK disposition.
	Process(ctx context.Context, payload []byte, signatureHeader string) (Result, error)
}
