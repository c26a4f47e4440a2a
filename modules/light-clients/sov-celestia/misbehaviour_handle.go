package sovcelestia

import (
	"bytes"
	"sort"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// CheckForMisbehaviour detects a header contradicting the stored consensus states and
// verifies whether a submitted Misbehaviour makes contradictory claims. The message must
// have passed VerifyClientMessage.
func (cs *ClientState) CheckForMisbehaviour(
	ctx sdk.Context, clientStore storetypes.KVStore, clientMsg exported.ClientMessage,
) (bool, error) {
	if cs.IsFrozen() {
		return false, errorsmod.Wrapf(ErrClientFrozen, "client frozen at height %s", cs.FrozenHeight)
	}

	consensusStates := NewConsensusStateStore(clientStore)
	switch msg := clientMsg.(type) {
	case *Header:
		return contradictsStore(consensusStates, msg), nil
	case *Misbehaviour:
		return isMisbehaviour(consensusStates, msg.Header1, msg.Header2), nil
	default:
		return false, errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "expected type of %T or %T, got %T", &Header{}, &Misbehaviour{}, msg)
	}
}

// isMisbehaviour reports whether two verified headers contradict each other or the store.
// Headers whose slot ranges merely abut are ordinary sequential updates.
func isMisbehaviour(consensusStates ConsensusStateStore, header1, header2 *Header) bool {
	if contradictsStore(consensusStates, header1) || contradictsStore(consensusStates, header2) {
		return true
	}

	pd1, pd2 := header1.AggregatedProof.PublicData, header2.AggregatedProof.PublicData

	// same final slot, different state
	if pd1.FinalSlotNumber == pd2.FinalSlotNumber {
		return !bytes.Equal(pd1.FinalStateRoot, pd2.FinalStateRoot)
	}

	if !rangesOverlap(pd1, pd2) {
		return false
	}

	// the overlapping proofs were derived from forks of the DA chain
	return conflictingDAHeaders(header1.DaHeaders, header2.DaHeaders)
}

// rangesOverlap reports whether the slot ranges (initial, final] of both proofs share a slot.
func rangesOverlap(pd1, pd2 AggregatedProofPublicData) bool {
	return pd1.InitialSlotNumber < pd2.FinalSlotNumber && pd2.InitialSlotNumber < pd1.FinalSlotNumber
}

// contradictsStore reports whether the header disagrees with the stored consensus states:
// a consensus state at its final slot holds a different root or DA header, or the time of
// its final DA header does not lie strictly between the neighbouring consensus states.
func contradictsStore(consensusStates ConsensusStateStore, header *Header) bool {
	height := header.GetHeight()
	finalDAHeader := header.FinalDAHeader()

	if existing, found := consensusStates.Get(height); found {
		if !bytes.Equal(existing.Root.GetHash(), header.AggregatedProof.PublicData.FinalStateRoot) {
			return true
		}
		return !bytes.Equal(existing.DaHeaderHash, finalDAHeader.Hash())
	}

	// consensus state timestamps are monotonic in the height
	timestamp := finalDAHeader.GetTime()
	if prev, found := consensusStates.Previous(height); found && !prev.Timestamp.Before(timestamp) {
		return true
	}
	if next, found := consensusStates.Next(height); found && !next.Timestamp.After(timestamp) {
		return true
	}
	return false
}

// conflictingDAHeaders reports whether two verified batches cannot belong to one DA chain.
func conflictingDAHeaders(headers1, headers2 []DAHeader) bool {
	return forksFrom(headers1, headers2) || forksFrom(headers2, headers1)
}

// forksFrom compares every header with the header of others at the same height or, when
// there is none, the nearest one below it. Headers at the same height must be equal and
// block time must increase with the height.
func forksFrom(headers, others []DAHeader) bool {
	for _, h := range headers {
		// others are verified, so their heights are strictly increasing
		idx := sort.Search(len(others), func(i int) bool {
			return others[i].SignedHeader.Height > h.SignedHeader.Height
		})
		if idx == 0 {
			continue
		}

		below := others[idx-1]
		if below.SignedHeader.Height == h.SignedHeader.Height {
			if !bytes.Equal(below.Hash(), h.Hash()) {
				return true
			}
			continue
		}
		if !below.SignedHeader.Time.Before(h.SignedHeader.Time) {
			return true
		}
	}
	return false
}

// verifyMisbehaviour determines whether or not two conflicting headers could both have been
// accepted by the client. Each header must chain from a trusted stored height and continue
// from a stored state root. Neither header needs to advance the client.
func (cs *ClientState) verifyMisbehaviour(
	ctx sdk.Context, clientStore storetypes.KVStore, verifier ProofVerifier,
	misbehaviour *Misbehaviour,
) error {
	if err := misbehaviour.ValidateBasic(); err != nil {
		return err
	}

	if err := cs.verifyHeader(ctx, clientStore, verifier, misbehaviour.Header1); err != nil {
		return errorsmod.Wrap(err, "verifying Header1 in Misbehaviour failed")
	}
	if err := cs.verifyHeader(ctx, clientStore, verifier, misbehaviour.Header2); err != nil {
		return errorsmod.Wrap(err, "verifying Header2 in Misbehaviour failed")
	}

	return nil
}

// UpdateStateOnMisbehaviour freezes the client at the lowest conflicting height. The
// frozen height is never overwritten by a later misbehaviour.
func (cs *ClientState) UpdateStateOnMisbehaviour(ctx sdk.Context, clientStore storetypes.KVStore, clientMsg exported.ClientMessage) error {
	if cs.IsFrozen() {
		return errorsmod.Wrapf(ErrClientFrozen, "client frozen at height %s", cs.FrozenHeight)
	}

	var frozenHeight clienttypes.Height
	switch msg := clientMsg.(type) {
	case *Header:
		frozenHeight = msg.GetHeight()
	case *Misbehaviour:
		frozenHeight = clienttypes.MinHeight(msg.Header1.GetHeight(), msg.Header2.GetHeight())
	default:
		return errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "expected type of %T or %T, got %T", &Header{}, &Misbehaviour{}, msg)
	}

	cs.FrozenHeight = frozenHeight
	setClientState(clientStore, cs)

	return nil
}
