package sovcelestia

import (
	"bytes"
	"time"

	cmttypes "github.com/cometbft/cometbft/types"

	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
)

// trustedDAHeader is the DA header the verifier currently trusts. Validators is the set
// expected to back the next candidate.
type trustedDAHeader struct {
	Height     uint64
	Time       time.Time
	Hash       []byte
	Validators *cmttypes.ValidatorSet
}

// newTrustedDAHeader builds the starting point of a header batch from a stored consensus
// state. The relayer supplied validator set must be the one committed as the next
// validator set of the stored slot.
func newTrustedDAHeader(
	consState *ConsensusState, height clienttypes.Height, trustedVals *cmttypes.ValidatorSet,
) (trustedDAHeader, error) {
	if trustedVals == nil {
		return trustedDAHeader{}, errorsmod.Wrap(ErrHeaderVerification, "trusted validator set cannot be nil")
	}
	if !bytes.Equal(trustedVals.Hash(), consState.NextValidatorsHash) {
		return trustedDAHeader{}, errorsmod.Wrapf(
			ErrHeaderVerification,
			"trusted validators %X does not hash to latest trusted validators. Expected: %X, got: %X",
			trustedVals, consState.NextValidatorsHash, trustedVals.Hash(),
		)
	}

	return trustedDAHeader{
		Height:     height.RevisionHeight,
		Time:       consState.Timestamp,
		Hash:       consState.DaHeaderHash,
		Validators: trustedVals,
	}, nil
}

// verifyDAHeaders verifies a batch of DA headers starting from trusted. Each verified header
// becomes the trusted header of the next one. It returns the last verified header.
func (cs *ClientState) verifyDAHeaders(trusted trustedDAHeader, headers []DAHeader, now time.Time) (trustedDAHeader, error) {
	if len(headers) == 0 {
		return trustedDAHeader{}, errorsmod.Wrap(ErrHeaderVerification, "no DA headers to verify")
	}

	for i, header := range headers {
		if header.SignedHeader == nil || header.SignedHeader.Header == nil {
			return trustedDAHeader{}, errorsmod.Wrapf(ErrHeaderVerification, "DA header %d is empty", i)
		}
		if i > 0 && header.SignedHeader.Height <= headers[i-1].SignedHeader.Height {
			return trustedDAHeader{}, errorsmod.Wrapf(
				ErrInvalidHeaderOrder, "DA header %d at height %d does not follow height %d",
				i, header.SignedHeader.Height, headers[i-1].SignedHeader.Height,
			)
		}
	}

	for _, header := range headers {
		if err := cs.verifyDAHeader(trusted, header, now); err != nil {
			return trustedDAHeader{}, err
		}

		trusted = trustedDAHeader{
			Height:     uint64(header.SignedHeader.Height),
			Time:       header.SignedHeader.Time,
			Hash:       header.Hash(),
			Validators: header.ValidatorSet,
		}
	}

	return trusted, nil
}

// verifyDAHeader verifies one candidate against the trusted header. It ensures that:
//
//	a) the trusted header is still within the trusting period
//	b) the candidate is a well formed header of the DA chain signed by its validator set
//	c) the candidate is higher than the trusted header and its time lies in
//	   [trusted time, trusted time + trusting period + max clock drift]
//	d) the trust level of the trusted validator set signed the candidate
//	e) more than 2/3 of the candidate validator set signed the candidate, when the candidate
//	   validator set differs from the trusted one
func (cs *ClientState) verifyDAHeader(trusted trustedDAHeader, candidate DAHeader, now time.Time) error {
	if !trusted.Time.Add(cs.TrustingPeriod).After(now) {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "trusted header at height %d expired at %s (now: %s)",
			trusted.Height, trusted.Time.Add(cs.TrustingPeriod), now,
		)
	}

	if err := candidate.ValidateBasic(cs.DaChainID); err != nil {
		return errorsmod.Wrap(ErrHeaderVerification, err.Error())
	}

	signedHeader := candidate.SignedHeader
	if !bytes.Equal(candidate.ValidatorSet.Hash(), signedHeader.ValidatorsHash) {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "validator set hash %X does not match header validators hash %X",
			candidate.ValidatorSet.Hash(), signedHeader.ValidatorsHash,
		)
	}

	if uint64(signedHeader.Height) <= trusted.Height {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "header height %d must be greater than trusted height %d",
			signedHeader.Height, trusted.Height,
		)
	}

	if signedHeader.Time.Before(trusted.Time) {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "header time %s is before trusted header time %s",
			signedHeader.Time, trusted.Time,
		)
	}
	if deadline := trusted.Time.Add(cs.TrustingPeriod + cs.MaxClockDrift); signedHeader.Time.After(deadline) {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "header time %s is after the trusting window ending at %s",
			signedHeader.Time, deadline,
		)
	}
	if maxTime := now.Add(cs.MaxClockDrift); signedHeader.Time.After(maxTime) {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "header time %s is from the future (now: %s, max clock drift: %s)",
			signedHeader.Time, now, cs.MaxClockDrift,
		)
	}

	if err := verifyTrustLevel(cs.DaChainID, trusted.Validators, signedHeader.Commit, cs.TrustLevel); err != nil {
		return err
	}

	// the trusted set backs the candidate, its tally is the whole check
	if bytes.Equal(signedHeader.ValidatorsHash, trusted.Validators.Hash()) {
		return nil
	}

	// NOTE: this should always be the last check because the candidate validator set can
	// be made very large by a malicious relayer.
	if err := candidate.ValidatorSet.VerifyCommitLight(
		cs.DaChainID, signedHeader.Commit.BlockID, signedHeader.Height, signedHeader.Commit,
	); err != nil {
		return errorsmod.Wrapf(ErrHeaderVerification, "header is not signed by its validator set: %v", err)
	}

	return nil
}

// verifyTrustLevel checks that validators holding at least trustLevel of the voting power of
// vals signed commit. Signers that are not part of vals are ignored and a validator is
// counted once even if it appears more than once in the commit.
func verifyTrustLevel(chainID string, vals *cmttypes.ValidatorSet, commit *cmttypes.Commit, trustLevel Fraction) error {
	var (
		tallied int64
		seen    = make(map[int32]struct{}, len(commit.Signatures))
		total   = vals.TotalVotingPower()
	)

	for idx, commitSig := range commit.Signatures {
		// only votes for the block count
		if commitSig.BlockIDFlag != cmttypes.BlockIDFlagCommit {
			continue
		}

		valIdx, val := vals.GetByAddress(commitSig.ValidatorAddress)
		if val == nil {
			continue
		}
		if _, ok := seen[valIdx]; ok {
			continue
		}

		voteSignBytes := commit.VoteSignBytes(chainID, int32(idx))
		if !val.PubKey.VerifySignature(voteSignBytes, commitSig.Signature) {
			return errorsmod.Wrapf(ErrHeaderVerification, "wrong signature (#%d): %X", idx, commitSig.Signature)
		}

		seen[valIdx] = struct{}{}
		tallied += val.VotingPower
	}

	if !trustLevel.Reached(tallied, total) {
		return errorsmod.Wrapf(
			ErrHeaderVerification, "insufficient voting power of the trusted validator set: got %d, needed %s of %d",
			tallied, trustLevel, total,
		)
	}
	return nil
}
