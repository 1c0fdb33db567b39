// Package services – VerificationService
//
// This file implements the guardian verification flow: a one-time six-digit
// code is issued to a messaging identity and, on correct confirmation within
// the code's TTL window, the identity is promoted to verified. Only verified
// identities can later be saved as guardian links.
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageSender defines the messaging-gateway contract required by services
// that deliver outbound notifications.
type MessageSender interface {
	// Send delivers text to the given chat identity.
	Send(ctx context.Context, chatID, text string) error
}

// VerificationService issues and confirms one-time verification codes.
type VerificationService struct {
	// Store persists tokens and verified markers.
	Store *Store
	// Sender delivers the code to the chat being verified.
	Sender MessageSender

	// GenerateCode overrides code generation in tests; nil means a uniformly
	// random zero-padded six-digit code.
	GenerateCode func() (string, error)
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(store *Store, sender MessageSender) *VerificationService {
	return &VerificationService{Store: store, Sender: sender}
}

// randomCode draws a uniform six-digit code from crypto/rand, zero-padded so
// codes like "004217" survive string comparison intact.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("verification: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Start issues a new code for chatID and sends it through the messaging
// gateway. The code is persisted before the send attempt: if the send times
// out but was actually delivered, the code must remain confirmable rather
// than be rolled back. For the same reason a failed send reports ErrSendFailed
// without deleting the stored token.
func (s *VerificationService) Start(ctx context.Context, chatID string) error {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer span.End()

	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return ErrMissingChatID
	}

	gen := s.GenerateCode
	if gen == nil {
		gen = randomCode
	}
	code, err := gen()
	if err != nil {
		return err
	}

	if err := s.Store.SaveVerificationCode(ctx, chatID, code); err != nil {
		return err
	}

	text := fmt.Sprintf("Verification code: %s (enter it within 5 minutes)", code)
	if err := s.Sender.Send(ctx, chatID, text); err != nil {
		return fmt.Errorf("verification: send code: %w (%w)", err, ErrSendFailed)
	}
	return nil
}

// Confirm checks the submitted code against the stored token. Input is
// trimmed and compared as strings. On match the identity is marked verified
// and the token is deleted; the marker write happens first so that a failure
// between the two leaves the token confirmable on retry. A missing, expired,
// or mismatched token yields ErrInvalidCode with the stored token untouched.
func (s *VerificationService) Confirm(ctx context.Context, chatID, code string) error {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer span.End()

	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return ErrMissingChatID
	}

	stored, err := s.Store.VerificationCode(ctx, chatID)
	if err != nil {
		return err
	}
	if stored == "" || stored != strings.TrimSpace(code) {
		return ErrInvalidCode
	}

	if err := s.Store.MarkVerified(ctx, chatID); err != nil {
		return err
	}
	if err := s.Store.DeleteVerificationCode(ctx, chatID); err != nil {
		// The token expires on its own TTL; a confirmed identity with a
		// stale token is harmless.
		return nil
	}
	return nil
}
