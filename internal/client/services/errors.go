package services

import (
	"errors"

	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

// Client-side validation failures. They are raised before any network call
// and their text is shown to the user as is.
var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrSignatureRequired  = errors.New("a wallet signature is required to prove address ownership")
	ErrInvalidAddress     = wallet.ErrInvalidAddress
	ErrInvalidSignature   = wallet.ErrInvalidSignature
	ErrInvalidEmail       = errors.New("invalid email address")
)

// ErrSessionReset is returned by a login or restoration whose result was
// discarded because the session was torn down while it was in flight.
var ErrSessionReset = errors.New("session was reset while the request was in flight")
