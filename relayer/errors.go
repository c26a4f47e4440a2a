package relayer

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the relayer.
const Codespace = "sov-celestia-relayer"

var (
	// ErrLockTimeout is returned when the nonce lock could not be acquired in time.
	ErrLockTimeout = errorsmod.Register(Codespace, 2, "timed out waiting for the nonce lock")
	// ErrLockPoisoned is returned once a submission panicked while holding the nonce lock.
	ErrLockPoisoned  = errorsmod.Register(Codespace, 3, "nonce lock is poisoned")
	ErrInvalidConfig = errorsmod.Register(Codespace, 4, "invalid relayer config")
)

// LockError is a failure to use the nonce lock. It is recoverable: a timed out call may be
// retried and a poisoned manager is usable again after Reset.
type LockError struct {
	Kind  error
	Cause any
}

// Error implements error.
func (e *LockError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

// Unwrap returns the kind of the failure, so errors.Is matches ErrLockTimeout and ErrLockPoisoned.
func (e *LockError) Unwrap() error {
	return e.Kind
}
