package sovcelestia

import (
	errorsmod "cosmossdk.io/errors"
)

// sov-celestia client sentinel errors
var (
	ErrInvalidClientStateParams     = errorsmod.Register(ModuleName, 2, "invalid client state parameters")
	ErrInvalidHeaderOrder           = errorsmod.Register(ModuleName, 3, "DA headers are not in strictly increasing height order")
	ErrHeaderVerification           = errorsmod.Register(ModuleName, 4, "DA header verification failed")
	ErrProofVerification            = errorsmod.Register(ModuleName, 5, "aggregated proof verification failed")
	ErrCodeCommitmentMismatch       = errorsmod.Register(ModuleName, 6, "code commitment mismatch")
	ErrNonContiguousProof           = errorsmod.Register(ModuleName, 7, "aggregated proof does not continue from a stored state root")
	ErrValidityConditionUnsatisfied = errorsmod.Register(ModuleName, 8, "validity condition is not satisfied by the verified DA headers")
	ErrClientFrozen                 = errorsmod.Register(ModuleName, 9, "client is frozen")
	ErrUpgradeNotPermitted          = errorsmod.Register(ModuleName, 10, "upgrade not permitted")
	ErrInvalidUpgradeProof          = errorsmod.Register(ModuleName, 11, "invalid upgrade proof")
	ErrProofMismatch                = errorsmod.Register(ModuleName, 12, "commitment proof does not match the stored root")
	ErrRootNotFound                 = errorsmod.Register(ModuleName, 13, "no state root stored at height")
	ErrMalformedProof               = errorsmod.Register(ModuleName, 14, "malformed commitment proof")
	ErrDecode                       = errorsmod.Register(ModuleName, 15, "failed to decode wire message")
	ErrInvalidVerifyingKey          = errorsmod.Register(ModuleName, 16, "invalid verifying key")
	ErrProcessedTimeNotFound        = errorsmod.Register(ModuleName, 17, "processed time not found")
	ErrProcessedHeightNotFound      = errorsmod.Register(ModuleName, 18, "processed height not found")
	ErrDelayPeriodNotPassed         = errorsmod.Register(ModuleName, 19, "packet-specified delay period has not been reached")
	ErrTrustingPeriodExpired        = errorsmod.Register(ModuleName, 20, "time since latest trusted state has passed the trusting period")
)
