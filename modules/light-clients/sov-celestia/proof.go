package sovcelestia

import (
	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// VerificationResult is the outcome of a successful commitment proof verification.
type VerificationResult int

const (
	// Verified means the key is committed with the expected value.
	Verified VerificationResult = iota + 1
	// VerifiedAbsent means the key is not committed.
	VerifiedAbsent
)

// String implements fmt.Stringer.
func (r VerificationResult) String() string {
	switch r {
	case Verified:
		return "Verified"
	case VerifiedAbsent:
		return "VerifiedAbsent"
	default:
		return "Unknown"
	}
}

// VerifyCommitment verifies a JMT proof for key against the state root stored at height.
// A nil value expects the key to be absent. The key is placed under commitmentPrefix before
// verification. It returns Verified for an existence proof of the expected value and
// VerifiedAbsent for a non-existence proof of an absent key.
func (cs ClientState) VerifyCommitment(
	clientStore storetypes.KVStore, commitmentPrefix exported.Prefix,
	height exported.Height, key []byte, value *[]byte, proof []byte,
) (VerificationResult, error) {
	path, err := commitmenttypes.ApplyPrefix(commitmentPrefix, commitmenttypes.NewMerklePath(key))
	if err != nil {
		return 0, errorsmod.Wrap(ErrProofMismatch, err.Error())
	}
	return cs.verifyCommitment(clientStore, height, path, value, proof)
}

// verifyCommitment verifies a proof for an already prefixed path.
func (cs ClientState) verifyCommitment(
	clientStore storetypes.KVStore, height exported.Height,
	path commitmenttypes.MerklePath, value *[]byte, proof []byte,
) (VerificationResult, error) {
	if cs.LatestHeight.LT(height) {
		return 0, errorsmod.Wrapf(
			ErrRootNotFound,
			"client state height < proof height (%s < %s), please ensure the client has been updated", cs.LatestHeight, height,
		)
	}

	consensusState, found := GetConsensusState(clientStore, height)
	if !found {
		return 0, consensusStateNotFound(height)
	}

	merkleProof, err := decodeMerkleProof(proof)
	if err != nil {
		return 0, err
	}

	specs := commitmenttypes.GetJMTSpecs()
	if merkleProof.IsExistence() {
		if value == nil {
			return 0, errorsmod.Wrapf(ErrProofMismatch, "expected %s to be absent but got an existence proof", path.KeyPath[0])
		}
		if err := merkleProof.VerifyMembership(specs, consensusState.GetRoot(), path, *value); err != nil {
			return 0, errorsmod.Wrap(ErrProofMismatch, err.Error())
		}
		return Verified, nil
	}

	if value != nil {
		return 0, errorsmod.Wrapf(ErrProofMismatch, "expected a value at %s but got a non-existence proof", path.KeyPath[0])
	}
	if err := merkleProof.VerifyNonMembership(specs, consensusState.GetRoot(), path); err != nil {
		return 0, errorsmod.Wrap(ErrProofMismatch, err.Error())
	}
	return VerifiedAbsent, nil
}

// decodeMerkleProof decodes the proof bytes and checks it has the shape of a JMT proof.
func decodeMerkleProof(proof []byte) (commitmenttypes.MerkleProof, error) {
	var merkleProof commitmenttypes.MerkleProof
	if err := merkleProof.Unmarshal(proof); err != nil {
		return commitmenttypes.MerkleProof{}, errorsmod.Wrapf(ErrMalformedProof, "failed to unmarshal proof into ICS 23 commitment merkle proof: %v", err)
	}
	if merkleProof.Empty() {
		return commitmenttypes.MerkleProof{}, errorsmod.Wrap(ErrMalformedProof, "proof cannot be empty")
	}
	if len(merkleProof.Proofs) != len(commitmenttypes.GetJMTSpecs()) {
		return commitmenttypes.MerkleProof{}, errorsmod.Wrapf(
			ErrMalformedProof, "expected %d commitment proofs, got %d", len(commitmenttypes.GetJMTSpecs()), len(merkleProof.Proofs),
		)
	}
	return merkleProof, nil
}

// verifyMembership is a generic proof verification method which verifies a proof of the existence of a value at a given CommitmentPath at the specified height.
// The path is placed under the commitment prefix of the rollup before verification.
// If a zero proof height is passed in, it will fail to retrieve the associated consensus state.
func (cs ClientState) verifyMembership(
	ctx sdk.Context,
	clientStore storetypes.KVStore,
	commitmentPrefix exported.Prefix,
	height exported.Height,
	delayTimePeriod uint64,
	delayBlockPeriod uint64,
	proof []byte,
	path exported.Path,
	value []byte,
) error {
	merklePath, err := prefixedPath(commitmentPrefix, path)
	if err != nil {
		return err
	}

	if err := verifyDelayPeriodPassed(ctx, clientStore, height, delayTimePeriod, delayBlockPeriod); err != nil {
		return err
	}

	_, err = cs.verifyCommitment(clientStore, height, merklePath, &value, proof)
	return err
}

// verifyNonMembership is a generic proof verification method which verifies the absence of a given CommitmentPath at a specified height.
// The path is placed under the commitment prefix of the rollup before verification.
// If a zero proof height is passed in, it will fail to retrieve the associated consensus state.
func (cs ClientState) verifyNonMembership(
	ctx sdk.Context,
	clientStore storetypes.KVStore,
	commitmentPrefix exported.Prefix,
	height exported.Height,
	delayTimePeriod uint64,
	delayBlockPeriod uint64,
	proof []byte,
	path exported.Path,
) error {
	merklePath, err := prefixedPath(commitmentPrefix, path)
	if err != nil {
		return err
	}

	if err := verifyDelayPeriodPassed(ctx, clientStore, height, delayTimePeriod, delayBlockPeriod); err != nil {
		return err
	}

	_, err = cs.verifyCommitment(clientStore, height, merklePath, nil, proof)
	return err
}

func prefixedPath(commitmentPrefix exported.Prefix, path exported.Path) (commitmenttypes.MerklePath, error) {
	merklePath, ok := path.(commitmenttypes.MerklePath)
	if !ok {
		return commitmenttypes.MerklePath{}, errorsmod.Wrapf(commitmenttypes.ErrInvalidPath, "expected %T, got %T", commitmenttypes.MerklePath{}, path)
	}
	return commitmenttypes.ApplyPrefix(commitmentPrefix, merklePath)
}

// verifyDelayPeriodPassed will ensure that at least delayTimePeriod amount of time and delayBlockPeriod number of blocks have passed
// since consensus state was submitted before allowing verification to continue.
func verifyDelayPeriodPassed(ctx sdk.Context, store storetypes.KVStore, proofHeight exported.Height, delayTimePeriod, delayBlockPeriod uint64) error {
	if delayTimePeriod != 0 {
		// check that executing chain's timestamp has passed consensusState's processed time + delay time period
		processedTime, ok := GetProcessedTime(store, proofHeight)
		if !ok {
			return errorsmod.Wrapf(ErrProcessedTimeNotFound, "processed time not found for height: %s", proofHeight)
		}

		currentTimestamp := uint64(ctx.BlockTime().UnixNano())
		validTime := processedTime + delayTimePeriod

		// NOTE: delay time period is inclusive, so if currentTimestamp is validTime, then we return no error
		if currentTimestamp < validTime {
			return errorsmod.Wrapf(ErrDelayPeriodNotPassed, "cannot verify packet until time: %d, current time: %d",
				validTime, currentTimestamp)
		}
	}

	if delayBlockPeriod != 0 {
		// check that executing chain's height has passed consensusState's processed height + delay block period
		processedHeight, ok := GetProcessedHeight(store, proofHeight)
		if !ok {
			return errorsmod.Wrapf(ErrProcessedHeightNotFound, "processed height not found for height: %s", proofHeight)
		}

		currentHeight := clienttypes.GetSelfHeight(ctx)
		validHeight := clienttypes.NewHeight(processedHeight.GetRevisionNumber(), processedHeight.GetRevisionHeight()+delayBlockPeriod)

		// NOTE: delay block period is inclusive, so if currentHeight is validHeight, then we return no error
		if currentHeight.LT(validHeight) {
			return errorsmod.Wrapf(ErrDelayPeriodNotPassed, "cannot verify packet until height: %s, current height: %s",
				validHeight, currentHeight)
		}
	}

	return nil
}
