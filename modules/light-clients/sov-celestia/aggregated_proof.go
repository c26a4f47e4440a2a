package sovcelestia

import (
	"bytes"
	"context"
	"crypto/sha256"

	"github.com/cometbft/cometbft/crypto/tmhash"

	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
)

// rootSize is the size of a rollup state root.
const rootSize = 32

// AggregatedProofPublicData are the public inputs of an aggregated proof. The proof attests
// that the program identified by CodeCommitment moved the rollup from InitialStateRoot at
// InitialSlotNumber to FinalStateRoot at FinalSlotNumber.
type AggregatedProofPublicData struct {
	InitialSlotNumber uint64
	FinalSlotNumber   uint64
	InitialStateRoot  []byte
	FinalStateRoot    []byte
	CodeCommitment    []byte
	// ValidityCondition is the encoded ChainValidityCondition of the covered slot range.
	ValidityCondition []byte
}

// InitialHeight returns the client height of the initial slot.
func (pd AggregatedProofPublicData) InitialHeight() clienttypes.Height {
	return clienttypes.NewSlotHeight(pd.InitialSlotNumber)
}

// FinalHeight returns the client height of the final slot.
func (pd AggregatedProofPublicData) FinalHeight() clienttypes.Height {
	return clienttypes.NewSlotHeight(pd.FinalSlotNumber)
}

// ValidateBasic checks the public data is well formed.
func (pd AggregatedProofPublicData) ValidateBasic() error {
	if pd.InitialSlotNumber >= pd.FinalSlotNumber {
		return errorsmod.Wrapf(ErrProofVerification, "initial slot %d must be lower than final slot %d", pd.InitialSlotNumber, pd.FinalSlotNumber)
	}
	if len(pd.InitialStateRoot) != rootSize {
		return errorsmod.Wrapf(ErrProofVerification, "initial state root must be %d bytes, got %d", rootSize, len(pd.InitialStateRoot))
	}
	if len(pd.FinalStateRoot) != rootSize {
		return errorsmod.Wrapf(ErrProofVerification, "final state root must be %d bytes, got %d", rootSize, len(pd.FinalStateRoot))
	}
	if len(pd.CodeCommitment) == 0 {
		return errorsmod.Wrap(ErrProofVerification, "code commitment cannot be empty")
	}
	return nil
}

// Digest returns the SHA-256 of the canonical encoding of the public data. It is the single
// public input of the aggregated proof circuit.
func (pd AggregatedProofPublicData) Digest() []byte {
	digest := sha256.Sum256(MarshalAggregatedProofPublicData(pd))
	return digest[:]
}

// AggregatedProof is a zk proof over a span of rollup slots together with its public data.
type AggregatedProof struct {
	PublicData      AggregatedProofPublicData
	SerializedProof []byte
}

// ValidateBasic checks the proof carries well formed public data and proof bytes.
func (p AggregatedProof) ValidateBasic() error {
	if err := p.PublicData.ValidateBasic(); err != nil {
		return err
	}
	if len(p.SerializedProof) == 0 {
		return errorsmod.Wrap(ErrProofVerification, "serialized proof cannot be empty")
	}
	return nil
}

// ChainValidityCondition is the validity condition of a Celestia rollup: the proven slot
// range starts right after the DA block PrevHash and ends with the DA block BlockHash.
type ChainValidityCondition struct {
	PrevHash  []byte
	BlockHash []byte
}

// NewChainValidityCondition returns a new ChainValidityCondition.
func NewChainValidityCondition(prevHash, blockHash []byte) ChainValidityCondition {
	return ChainValidityCondition{
		PrevHash:  prevHash,
		BlockHash: blockHash,
	}
}

// Bytes returns the fixed size encoding of the condition: both hashes concatenated.
func (vc ChainValidityCondition) Bytes() []byte {
	bz := make([]byte, 0, 2*tmhash.Size)
	bz = append(bz, vc.PrevHash...)
	return append(bz, vc.BlockHash...)
}

// ParseChainValidityCondition decodes a condition produced by Bytes.
func ParseChainValidityCondition(bz []byte) (ChainValidityCondition, error) {
	if len(bz) != 2*tmhash.Size {
		return ChainValidityCondition{}, errorsmod.Wrapf(ErrValidityConditionUnsatisfied, "validity condition must be %d bytes, got %d", 2*tmhash.Size, len(bz))
	}
	return NewChainValidityCondition(bz[:tmhash.Size], bz[tmhash.Size:]), nil
}

// verifyAggregatedProof is the admission gate of a new rollup state root. The checks run in
// a fixed order so that the cheapest ones reject first and the zk verification runs last.
// The DA headers must already have been verified.
func (cs *ClientState) verifyAggregatedProof(
	ctx context.Context,
	consensusStates ConsensusStateStore,
	verifier ProofVerifier,
	daHeaders []DAHeader,
	proof AggregatedProof,
) error {
	publicData := proof.PublicData
	if err := publicData.ValidateBasic(); err != nil {
		return err
	}

	if !bytes.Equal(publicData.CodeCommitment, cs.CodeCommitment) {
		return errorsmod.Wrapf(ErrCodeCommitmentMismatch, "expected %X, got %X", cs.CodeCommitment, publicData.CodeCommitment)
	}

	initial, found := consensusStates.Get(publicData.InitialHeight())
	if !found {
		return errorsmod.Wrapf(ErrNonContiguousProof, "no consensus state stored at initial slot %d", publicData.InitialSlotNumber)
	}
	if !bytes.Equal(initial.Root.GetHash(), publicData.InitialStateRoot) {
		return errorsmod.Wrapf(
			ErrNonContiguousProof, "initial state root %X does not match root %X stored at slot %d",
			publicData.InitialStateRoot, initial.Root.GetHash(), publicData.InitialSlotNumber,
		)
	}

	if err := checkValidityCondition(publicData, initial, daHeaders); err != nil {
		return err
	}

	if err := verifier.Verify(ctx, cs.CodeCommitment, publicData, proof.SerializedProof); err != nil {
		if errorsmod.IsOf(err, ErrProofVerification) {
			return err
		}
		return errorsmod.Wrap(ErrProofVerification, err.Error())
	}
	return nil
}

// checkValidityCondition binds the proven slot range to the verified DA headers. The headers
// must cover (initial, final] and end exactly at the final slot.
func checkValidityCondition(publicData AggregatedProofPublicData, initial *ConsensusState, daHeaders []DAHeader) error {
	condition, err := ParseChainValidityCondition(publicData.ValidityCondition)
	if err != nil {
		return err
	}

	if len(daHeaders) == 0 {
		return errorsmod.Wrap(ErrValidityConditionUnsatisfied, "no verified DA headers")
	}

	first, last := daHeaders[0], daHeaders[len(daHeaders)-1]
	if first.GetHeight().RevisionHeight <= publicData.InitialSlotNumber {
		return errorsmod.Wrapf(
			ErrValidityConditionUnsatisfied, "first DA header at slot %d is not after initial slot %d",
			first.GetHeight().RevisionHeight, publicData.InitialSlotNumber,
		)
	}
	if last.GetHeight().RevisionHeight != publicData.FinalSlotNumber {
		return errorsmod.Wrapf(
			ErrValidityConditionUnsatisfied, "last DA header at slot %d does not match final slot %d",
			last.GetHeight().RevisionHeight, publicData.FinalSlotNumber,
		)
	}

	if !bytes.Equal(condition.PrevHash, initial.DaHeaderHash) {
		return errorsmod.Wrapf(
			ErrValidityConditionUnsatisfied, "previous DA hash %X does not match hash %X stored at slot %d",
			condition.PrevHash, initial.DaHeaderHash, publicData.InitialSlotNumber,
		)
	}
	if !bytes.Equal(condition.BlockHash, last.Hash()) {
		return errorsmod.Wrapf(
			ErrValidityConditionUnsatisfied, "DA block hash %X does not match verified header hash %X at slot %d",
			condition.BlockHash, last.Hash(), publicData.FinalSlotNumber,
		)
	}
	return nil
}
