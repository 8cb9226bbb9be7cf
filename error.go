package ipsp

import "github.com/pkg/errors"

// Error classes. Callers classify with errors.Cause(err) == ErrX.
var (
	// ErrMalformedInput is returned for advertising data that does not fit its
	// declared bounds.
	ErrMalformedInput = errors.New("malformed input")

	// ErrLocked is returned when the whitelist is locked by another process.
	ErrLocked = errors.New("whitelist locked")

	// ErrAlreadyPresent is used internally by whitelist add; add itself is
	// idempotent and never surfaces it.
	ErrAlreadyPresent = errors.New("already present")

	// ErrProtocol is the cause of management commands that completed with a
	// failure status.
	ErrProtocol = errors.New("protocol error")

	// ErrConfig is the cause of every startup configuration error.
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidAddr is returned for strings that are not canonical addresses.
	ErrInvalidAddr = errors.New("invalid address")
)
