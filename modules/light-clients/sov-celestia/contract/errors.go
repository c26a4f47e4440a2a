package contract

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the contract adapter errors.
const ModuleName = "sov-celestia-contract"

var (
	ErrInvalidMessage  = errorsmod.Register(ModuleName, 2, "invalid contract message")
	ErrNoMisbehaviour  = errorsmod.Register(ModuleName, 3, "client message is not misbehaviour")
	ErrUnableToMarshal = errorsmod.Register(ModuleName, 4, "unable to marshal contract result")
)
