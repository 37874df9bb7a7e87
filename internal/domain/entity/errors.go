package entity

import "errors"

// Workflow error taxonomy. Guard failures are surfaced before any
// mutation; delivery and composition failures never alter document state.
var (
	ErrNotFound            = errors.New("document not found")
	ErrLinkExpired         = errors.New("link expired")
	ErrAlreadySigned       = errors.New("document already signed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotSigned           = errors.New("document not signed")
	ErrNoOtpIssued         = errors.New("no otp issued")
	ErrOtpExpired          = errors.New("otp expired")
	ErrOtpAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrOtpInvalid          = errors.New("invalid otp code")
	ErrDelivery            = errors.New("message delivery failed")
)
