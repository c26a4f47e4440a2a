package contract

import (
	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

// TendermintClientType is the client type of the tendermint variants. A host may carry
// tendermint states next to sov-celestia ones, but this contract only serves sov-celestia.
const TendermintClientType = "07-tendermint"

// AnyClientState is a client state of one of the client types known to hosts. Exactly one
// variant is set.
type AnyClientState struct {
	SovCelestia []byte `json:"sov_celestia,omitempty"`
	Tendermint  []byte `json:"tendermint,omitempty"`
}

// NewSovCelestiaClientState wraps a sov-celestia client state.
func NewSovCelestiaClientState(clientState *sovcelestia.ClientState) AnyClientState {
	return AnyClientState{SovCelestia: sovcelestia.MarshalClientState(clientState)}
}

// ClientType returns the client type of the variant that is set.
func (a AnyClientState) ClientType() (string, error) {
	return variantType(a.SovCelestia, a.Tendermint)
}

// Unpack decodes the sov-celestia variant.
func (a AnyClientState) Unpack() (*sovcelestia.ClientState, error) {
	if err := requireSovCelestia(a.ClientType()); err != nil {
		return nil, err
	}
	return sovcelestia.UnmarshalClientState(a.SovCelestia)
}

// AnyConsensusState is a consensus state of one of the client types known to hosts.
// Exactly one variant is set.
type AnyConsensusState struct {
	SovCelestia []byte `json:"sov_celestia,omitempty"`
	Tendermint  []byte `json:"tendermint,omitempty"`
}

// NewSovCelestiaConsensusState wraps a sov-celestia consensus state.
func NewSovCelestiaConsensusState(consensusState *sovcelestia.ConsensusState) AnyConsensusState {
	return AnyConsensusState{SovCelestia: sovcelestia.MarshalConsensusState(consensusState)}
}

// ClientType returns the client type of the variant that is set.
func (a AnyConsensusState) ClientType() (string, error) {
	return variantType(a.SovCelestia, a.Tendermint)
}

// Unpack decodes the sov-celestia variant.
func (a AnyConsensusState) Unpack() (*sovcelestia.ConsensusState, error) {
	if err := requireSovCelestia(a.ClientType()); err != nil {
		return nil, err
	}
	return sovcelestia.UnmarshalConsensusState(a.SovCelestia)
}

func variantType(sovCelestia, tendermint []byte) (string, error) {
	switch {
	case sovCelestia != nil && tendermint != nil:
		return "", errorsmod.Wrap(ErrInvalidMessage, "more than one state variant is set")
	case sovCelestia != nil:
		return sovcelestia.ModuleName, nil
	case tendermint != nil:
		return TendermintClientType, nil
	default:
		return "", errorsmod.Wrap(ErrInvalidMessage, "no state variant is set")
	}
}

func requireSovCelestia(clientType string, err error) error {
	if err != nil {
		return err
	}
	if clientType != sovcelestia.ModuleName {
		return errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "expected: %s, got: %s", sovcelestia.ModuleName, clientType)
	}
	return nil
}
