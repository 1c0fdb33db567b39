package scheduler

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pillwise/go-reminder-backend/internal/config"
)

// ErrInvalidSignature is returned when a webhook callback cannot be
// authenticated against either signing key.
var ErrInvalidSignature = errors.New("scheduler: invalid signature")

// Receiver authenticates webhook callbacks from the trigger service. The
// signature header carries a JWT signed with one of a rotating key pair;
// both the current and the next key are accepted so a rotation in flight
// never drops firings.
type Receiver struct {
	CurrentSigningKey string
	NextSigningKey    string
}

// NewReceiver constructs a Receiver from configuration.
func NewReceiver(cfg config.SchedulerConfig) *Receiver {
	return &Receiver{
		CurrentSigningKey: cfg.CurrentSigningKey,
		NextSigningKey:    cfg.NextSigningKey,
	}
}

// Verify checks signature against the raw request body. It returns nil when
// the JWT validates under either key and its body-hash claim matches the
// SHA-256 of body; otherwise ErrInvalidSignature.
func (r *Receiver) Verify(body []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return ErrInvalidSignature
	}
	for _, key := range []string{r.CurrentSigningKey, r.NextSigningKey} {
		if key == "" {
			continue
		}
		if err := verifyWithKey(key, body, signature); err == nil {
			return nil
		}
	}
	return ErrInvalidSignature
}

// verifyWithKey validates the JWT under a single key and compares the "body"
// claim against the hash of the received payload.
func verifyWithKey(key string, body []byte, signature string) error {
	tok, err := jwt.Parse(signature, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return ErrInvalidSignature
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidSignature
	}
	claimed, _ := claims["body"].(string)
	if claimed == "" {
		return ErrInvalidSignature
	}

	sum := sha256.Sum256(body)
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	// Tolerate padded encodings of the same digest.
	claimed = strings.TrimRight(claimed, "=")
	if subtle.ConstantTimeCompare([]byte(claimed), []byte(want)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
