package core

import "errors"

var (
	// Authentication errors.
	ErrInvalidSignature = errors.New("invalid signature")
	ErrIdentityMismatch = errors.New("recovered signer does not match claimed address")
	ErrChallengeInvalid = errors.New("challenge is invalid or expired")
	ErrInvalidAddress   = errors.New("invalid ethereum address")
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidToken     = errors.New("invalid token")

	// Token gate errors.
	ErrOracleUnavailable    = errors.New("balance oracle unavailable")
	ErrUnsupportedTokenKind = errors.New("unsupported token kind")
	ErrAccessDenied         = errors.New("access denied")

	// Session and room errors.
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrTooManyAuthFailures  = errors.New("too many authentication failures")
	ErrSessionClosed        = errors.New("session is closed")
	ErrNotInRoom            = errors.New("not a member of the room")
	ErrRoomNotFound         = errors.New("room not found")

	// Infrastructure errors.
	ErrStoreOperationFailed = errors.New("store operation failed")
)
