package sovcelestia

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/store/cachekv"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// VerifyClientMessage checks if the clientMessage is of type Header or Misbehaviour and verifies the message
func (cs *ClientState) VerifyClientMessage(
	ctx sdk.Context, clientStore storetypes.KVStore, verifier ProofVerifier,
	clientMsg exported.ClientMessage,
) error {
	if cs.IsFrozen() {
		return errorsmod.Wrapf(ErrClientFrozen, "client frozen at height %s", cs.FrozenHeight)
	}

	switch msg := clientMsg.(type) {
	case *Header:
		return cs.verifyHeader(ctx, clientStore, verifier, msg)
	case *Misbehaviour:
		return cs.verifyMisbehaviour(ctx, clientStore, verifier, msg)
	default:
		return errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "expected type of %T or %T, got %T", &Header{}, &Misbehaviour{}, msg)
	}
}

// verifyHeader returns an error if:
// - the header is malformed
// - the DA headers do not chain from the validator set trusted at header.TrustedHeight
// - the aggregated proof is not admissible against the stored consensus states
//
// A header whose final slot does not advance the client still verifies. It is only
// useful as misbehaviour evidence and UpdateState rejects it.
func (cs *ClientState) verifyHeader(
	ctx sdk.Context, clientStore storetypes.KVStore, verifier ProofVerifier,
	header *Header,
) error {
	if err := header.ValidateBasic(); err != nil {
		return err
	}

	// the trusted validator set must be the one committed at a stored height
	trustedConsState, found := GetConsensusState(clientStore, header.TrustedHeight)
	if !found {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "could not get trusted consensus state from clientStore for header at TrustedHeight: %s",
			header.TrustedHeight,
		)
	}

	trusted, err := newTrustedDAHeader(trustedConsState, header.TrustedHeight, header.TrustedValidators)
	if err != nil {
		return err
	}

	if _, err := cs.verifyDAHeaders(trusted, header.DaHeaders, ctx.BlockTime()); err != nil {
		return errorsmod.Wrapf(err, "failed to verify DA headers of header ending at %s", header.GetHeight())
	}

	return cs.verifyAggregatedProof(ctx, NewConsensusStateStore(clientStore), verifier, header.DaHeaders, header.AggregatedProof)
}

// UpdateState stores the state root proven by the header at its final slot and advances
// the latest height. All writes are buffered and committed together. UpdateState must only
// be called after VerifyClientMessage and CheckForMisbehaviour.
func (cs *ClientState) UpdateState(ctx sdk.Context, clientStore storetypes.KVStore, clientMsg exported.ClientMessage) ([]exported.Height, error) {
	header, ok := clientMsg.(*Header)
	if !ok {
		return nil, errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "expected type %T, got %T", &Header{}, clientMsg)
	}

	height := header.GetHeight()
	if !height.GT(cs.LatestHeight) {
		return nil, errorsmod.Wrapf(
			ErrNonContiguousProof, "final slot %s does not advance latest height %s", height, cs.LatestHeight,
		)
	}

	// each update continues from the latest verified root
	if initial := header.AggregatedProof.PublicData.InitialHeight(); !initial.EQ(cs.LatestHeight) {
		return nil, errorsmod.Wrapf(
			ErrNonContiguousProof, "initial slot %s does not continue from latest height %s", initial, cs.LatestHeight,
		)
	}

	finalDAHeader := header.FinalDAHeader()
	consensusState := NewConsensusState(
		finalDAHeader.GetTime(),
		commitmenttypes.NewMerkleRoot(header.AggregatedProof.PublicData.FinalStateRoot),
		finalDAHeader.Hash(),
		finalDAHeader.SignedHeader.NextValidatorsHash,
	)
	if err := consensusState.ValidateBasic(); err != nil {
		return nil, errorsmod.Wrap(err, fmt.Sprintf("header ending at %s does not produce a valid consensus state", height))
	}

	cache := cachekv.NewStore(clientStore)

	cs.pruneOldestConsensusState(ctx, cache)

	cs.LatestHeight = height
	setClientState(cache, cs)
	setConsensusState(cache, consensusState, height)
	setConsensusMetadata(ctx, cache, height)

	cache.Write()

	return []exported.Height{height}, nil
}

// pruneOldestConsensusState will retrieve the earliest consensus state for this clientID and check if it is expired. If it is,
// that consensus state will be pruned from store along with all associated metadata. This will prevent the client store from
// becoming bloated with expired consensus states that can no longer be used for updates and packet verification.
// The consensus state at the latest height is never pruned.
func (cs ClientState) pruneOldestConsensusState(ctx sdk.Context, clientStore storetypes.KVStore) {
	var pruneHeight exported.Height

	IterateConsensusStateAscending(clientStore, func(height exported.Height) bool {
		consState, found := GetConsensusState(clientStore, height)
		// this error should never occur
		if !found {
			panic(errorsmod.Wrapf(clienttypes.ErrConsensusStateNotFound, "failed to retrieve consensus state at height: %s", height))
		}

		if cs.IsExpired(consState.Timestamp, ctx.BlockTime()) && !height.EQ(cs.LatestHeight) {
			pruneHeight = height
		}

		return true
	})

	if pruneHeight != nil {
		deleteConsensusState(clientStore, pruneHeight)
		deleteConsensusMetadata(clientStore, pruneHeight)
	}
}
