package sovcelestia

import (
	"bytes"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/store/cachekv"
	storetypes "cosmossdk.io/store/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
)

// CheckSubstituteAndUpdateState will try to update the client with the state of the
// substitute.
//
// The following must always be true:
//   - The subject and substitute client states match in all parameters (except frozen height, latest height, trusting period, chain-id and genesis root)
//   - The substitute is ahead of the subject
//
// A frozen subject is unfrozen by resetting the FrozenHeight to the zero Height.
func (cs *ClientState) CheckSubstituteAndUpdateState(
	subjectClientStore, substituteClientStore storetypes.KVStore, substituteClient *ClientState,
) error {
	if !IsMatchingClientState(*cs, *substituteClient) {
		return errorsmod.Wrap(clienttypes.ErrInvalidSubstitute, "subject client state does not match substitute client state")
	}

	if !substituteClient.LatestHeight.GT(cs.LatestHeight) {
		return errorsmod.Wrapf(
			clienttypes.ErrInvalidSubstitute, "substitute client height %s must be greater than subject client height %s",
			substituteClient.LatestHeight, cs.LatestHeight,
		)
	}

	if cs.IsFrozen() {
		// unfreeze the client
		cs.FrozenHeight = clienttypes.ZeroHeight()
	}

	// copy consensus states and processed time from substitute to subject
	// starting from initial height and ending on the latest height (inclusive)
	height := substituteClient.LatestHeight

	consensusState, found := GetConsensusState(substituteClientStore, height)
	if !found {
		return errorsmod.Wrap(clienttypes.ErrConsensusStateNotFound, "unable to retrieve latest consensus state for substitute client")
	}

	processedTime, found := GetProcessedTime(substituteClientStore, height)
	if !found {
		return errorsmod.Wrap(ErrProcessedTimeNotFound, "unable to retrieve processed time for substitute client latest height")
	}

	processedHeight, found := GetProcessedHeight(substituteClientStore, height)
	if !found {
		return errorsmod.Wrap(ErrProcessedHeightNotFound, "unable to retrieve processed height for substitute client latest height")
	}

	cs.LatestHeight = substituteClient.LatestHeight
	cs.ChainID = substituteClient.ChainID

	// set new trusting period based on the substitute client state
	cs.TrustingPeriod = substituteClient.TrustingPeriod

	cache := cachekv.NewStore(subjectClientStore)

	setConsensusState(cache, consensusState, height)
	setConsensusMetadataWithValues(cache, height, processedHeight, processedTime)
	setClientState(cache, cs)

	cache.Write()

	return nil
}

// IsMatchingClientState returns true if all the client state parameters match
// except for frozen height, latest height, trusting period, chain-id and genesis root.
func IsMatchingClientState(subject, substitute ClientState) bool {
	// zero out parameters which do not need to match
	subject.LatestHeight = clienttypes.ZeroHeight()
	subject.FrozenHeight = clienttypes.ZeroHeight()
	subject.TrustingPeriod = 0
	substitute.LatestHeight = clienttypes.ZeroHeight()
	substitute.FrozenHeight = clienttypes.ZeroHeight()
	substitute.TrustingPeriod = 0
	subject.ChainID = ""
	substitute.ChainID = ""
	subject.GenesisStateRoot = nil
	substitute.GenesisStateRoot = nil

	return bytes.Equal(MarshalClientState(&subject), MarshalClientState(&substitute))
}
