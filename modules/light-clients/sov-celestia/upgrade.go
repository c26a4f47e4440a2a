package sovcelestia

import (
	"fmt"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"cosmossdk.io/store/cachekv"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// VerifyUpgradeAndUpdateState checks if the upgraded client has been committed by the current client
// It will zero out all client-specific fields and verify all data in client state that must
// be the same across all valid sov-celestia clients for the new chain.
// Note, if there is a decrease in the UnbondingPeriod, then the TrustingPeriod, despite being a client-specific field
// is scaled down by the same ratio.
// VerifyUpgrade will return an error if:
//   - the client has no upgrade path
//   - the height of upgraded client is not greater than that of current client
//   - either proof does not prove the committed upgraded client or consensus state
//     against the root stored at the latest height
//
// A successful upgrade also unfreezes the client.
func (cs ClientState) VerifyUpgradeAndUpdateState(
	ctx sdk.Context, clientStore storetypes.KVStore, commitmentPrefix exported.Prefix,
	upgradedClient *ClientState, upgradedConsState *ConsensusState,
	upgradeClientProof, upgradeConsStateProof []byte,
) error {
	if len(cs.UpgradePath) == 0 {
		return errorsmod.Wrap(ErrUpgradeNotPermitted, "cannot upgrade client, no upgrade path set")
	}
	if upgradedClient == nil || upgradedConsState == nil {
		return errorsmod.Wrap(ErrUpgradeNotPermitted, "upgraded client and consensus state cannot be nil")
	}

	// last height of current counterparty chain must be client's latest height
	lastHeight := cs.LatestHeight
	if !upgradedClient.LatestHeight.GT(lastHeight) {
		return errorsmod.Wrapf(
			ErrUpgradeNotPermitted, "upgraded client height %s must be greater than current client height %s",
			upgradedClient.LatestHeight, lastHeight,
		)
	}

	var merkleProofClient, merkleProofConsState commitmenttypes.MerkleProof
	if err := merkleProofClient.Unmarshal(upgradeClientProof); err != nil {
		return errorsmod.Wrapf(ErrInvalidUpgradeProof, "could not unmarshal client merkle proof: %v", err)
	}
	if err := merkleProofConsState.Unmarshal(upgradeConsStateProof); err != nil {
		return errorsmod.Wrapf(ErrInvalidUpgradeProof, "could not unmarshal consensus state merkle proof: %v", err)
	}

	// Must prove against latest consensus state to ensure we are verifying against latest upgrade plan
	// This verifies that upgrade is intended for the provided revision, since committed client must exist
	// at this consensus state
	consState, found := GetConsensusState(clientStore, lastHeight)
	if !found {
		return errorsmod.Wrapf(ErrRootNotFound, "could not retrieve consensus state for lastHeight %s", lastHeight)
	}

	upgradeClientPath, err := constructUpgradeMerklePath(commitmentPrefix, cs.UpgradePath, lastHeight, KeyUpgradedClient)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidUpgradeProof, err.Error())
	}
	bz := MarshalClientState(upgradedClient.ZeroCustomFields())
	if err := merkleProofClient.VerifyMembership(commitmenttypes.GetJMTSpecs(), consState.GetRoot(), upgradeClientPath, bz); err != nil {
		return errorsmod.Wrapf(ErrInvalidUpgradeProof, "client state proof failed. Path: %s: %v", upgradeClientPath.KeyPath[0], err)
	}

	upgradeConsStatePath, err := constructUpgradeMerklePath(commitmentPrefix, cs.UpgradePath, lastHeight, KeyUpgradedConsState)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidUpgradeProof, err.Error())
	}
	bz = MarshalConsensusState(upgradedConsState)
	if err := merkleProofConsState.VerifyMembership(commitmenttypes.GetJMTSpecs(), consState.GetRoot(), upgradeConsStatePath, bz); err != nil {
		return errorsmod.Wrapf(ErrInvalidUpgradeProof, "consensus state proof failed. Path: %s: %v", upgradeConsStatePath.KeyPath[0], err)
	}

	trustingPeriod := cs.TrustingPeriod
	if upgradedClient.UnbondingPeriod < cs.UnbondingPeriod {
		trustingPeriod = calculateNewTrustingPeriod(trustingPeriod, cs.UnbondingPeriod, upgradedClient.UnbondingPeriod)
	}

	// Construct new client state and consensus state
	// Relayer chosen client parameters are ignored.
	// All chain-chosen parameters come from committed client, all client-chosen parameters
	// come from current client.
	newClientState := NewClientState(
		upgradedClient.ChainID, upgradedClient.DaChainID, cs.TrustLevel, trustingPeriod, upgradedClient.UnbondingPeriod,
		cs.MaxClockDrift, upgradedClient.LatestHeight, upgradedClient.CodeCommitment, upgradedClient.GenesisStateRoot,
		upgradedClient.UpgradePath,
	)

	if err := newClientState.Validate(); err != nil {
		return errorsmod.Wrap(err, "updated client state failed basic validation")
	}
	if err := upgradedConsState.ValidateBasic(); err != nil {
		return errorsmod.Wrap(err, "upgraded consensus state failed basic validation")
	}

	// The upgraded consensus state carries the rollup state root committed by governance at the
	// upgrade height, so unlike a chain upgrade it can serve proofs right away.
	cache := cachekv.NewStore(clientStore)

	setClientState(cache, newClientState)
	setConsensusState(cache, upgradedConsState, newClientState.LatestHeight)
	setConsensusMetadata(ctx, cache, newClientState.LatestHeight)

	cache.Write()

	return nil
}

// constructUpgradeMerklePath returns the path of a committed upgrade value. The rollup stores
// the whole upgrade path under a single JMT key:
// <prefix><upgradePath joined by '/'>/<last height>/<suffix>
func constructUpgradeMerklePath(
	commitmentPrefix exported.Prefix, upgradePath []string, lastHeight exported.Height, suffix string,
) (commitmenttypes.MerklePath, error) {
	key := fmt.Sprintf("%s/%d/%s", strings.Join(upgradePath, "/"), lastHeight.GetRevisionHeight(), suffix)
	return commitmenttypes.ApplyPrefix(commitmentPrefix, commitmenttypes.NewMerklePath([]byte(key)))
}

// UpgradeClientKey returns the rollup state key under which the upgraded client is committed.
func UpgradeClientKey(commitmentPrefix exported.Prefix, upgradePath []string, lastHeight exported.Height) ([]byte, error) {
	path, err := constructUpgradeMerklePath(commitmentPrefix, upgradePath, lastHeight, KeyUpgradedClient)
	if err != nil {
		return nil, err
	}
	return path.KeyPath[0], nil
}

// UpgradeConsStateKey returns the rollup state key under which the upgraded consensus state is committed.
func UpgradeConsStateKey(commitmentPrefix exported.Prefix, upgradePath []string, lastHeight exported.Height) ([]byte, error) {
	path, err := constructUpgradeMerklePath(commitmentPrefix, upgradePath, lastHeight, KeyUpgradedConsState)
	if err != nil {
		return nil, err
	}
	return path.KeyPath[0], nil
}

// calculateNewTrustingPeriod converts the provided durations to decimal representation to avoid floating-point precision issues
// and calculates the new trusting period, decreasing it by the ratio between the original and new unbonding period.
func calculateNewTrustingPeriod(trustingPeriod, originalUnbonding, newUnbonding time.Duration) time.Duration {
	origUnbondingDec := sdkmath.LegacyNewDec(originalUnbonding.Nanoseconds())
	newUnbondingDec := sdkmath.LegacyNewDec(newUnbonding.Nanoseconds())
	trustingPeriodDec := sdkmath.LegacyNewDec(trustingPeriod.Nanoseconds())

	// compute new trusting period: trustingPeriod * newUnbonding / originalUnbonding
	newTrustingPeriodDec := trustingPeriodDec.Mul(newUnbondingDec).Quo(origUnbondingDec)
	return time.Duration(newTrustingPeriodDec.TruncateInt64())
}
