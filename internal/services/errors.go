// Package services defines the business logic for schedule registration,
// guardian verification and linkage, and notification dispatch.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrMissingPatient is returned when no patient chat identity can be
	// resolved, neither from the request nor from the configured default.
	ErrMissingPatient = errors.New("patient chat id missing")

	// ErrMissingChatID is returned when an operation that targets a specific
	// messaging identity is called without one.
	ErrMissingChatID = errors.New("chat id missing")

	// ErrNotVerified is returned when a guardian link save is attempted for
	// a chat identity that has not completed code verification.
	ErrNotVerified = errors.New("guardian not verified")

	// ErrInvalidCode is returned when a verification code is absent, expired,
	// or does not match the issued one.
	ErrInvalidCode = errors.New("verification code invalid or expired")

	// ErrSendFailed is returned when the messaging gateway reports that an
	// outbound message could not be delivered.
	ErrSendFailed = errors.New("message delivery failed")
)
