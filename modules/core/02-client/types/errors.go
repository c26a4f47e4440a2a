package types

import (
	errorsmod "cosmossdk.io/errors"
)

// SubModuleName defines the IBC client name
const SubModuleName string = "client"

// IBC client sentinel errors
var (
	ErrClientExists           = errorsmod.Register(SubModuleName, 2, "light client already exists")
	ErrInvalidClient          = errorsmod.Register(SubModuleName, 3, "light client is invalid")
	ErrClientNotFound         = errorsmod.Register(SubModuleName, 4, "light client not found")
	ErrInvalidClientType      = errorsmod.Register(SubModuleName, 5, "invalid client type")
	ErrConsensusStateNotFound = errorsmod.Register(SubModuleName, 6, "consensus state not found")
	ErrInvalidConsensus       = errorsmod.Register(SubModuleName, 7, "invalid consensus state")
	ErrInvalidHeader          = errorsmod.Register(SubModuleName, 8, "invalid client header")
	ErrInvalidMisbehaviour    = errorsmod.Register(SubModuleName, 9, "invalid light client misbehaviour")
	ErrInvalidSubstitute      = errorsmod.Register(SubModuleName, 10, "invalid client state substitute")
	ErrInvalidHeightEncoding  = errorsmod.Register(SubModuleName, 11, "invalid height encoding")
	ErrClientNotActive        = errorsmod.Register(SubModuleName, 12, "client state is not active")
)
