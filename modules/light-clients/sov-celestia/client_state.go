package sovcelestia

import (
	"bytes"
	"strings"
	"time"

	cmttypes "github.com/cometbft/cometbft/types"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// ClientState tracks a Sovereign SDK rollup whose blocks are published on Celestia.
type ClientState struct {
	// ChainID is the chain id of the rollup.
	ChainID string
	// DaChainID is the chain id of the Celestia network the rollup publishes to.
	DaChainID string
	// TrustLevel is the share of the trusted DA validator set that must sign a new DA header.
	TrustLevel Fraction
	// TrustingPeriod is how long a DA validator set stays trusted after its header.
	TrustingPeriod time.Duration
	// UnbondingPeriod of the DA chain.
	UnbondingPeriod time.Duration
	// MaxClockDrift tolerated between the DA chain and the host.
	MaxClockDrift time.Duration
	// LatestHeight is the highest slot with a verified state root.
	LatestHeight clienttypes.Height
	// FrozenHeight is zero unless misbehaviour was detected.
	FrozenHeight clienttypes.Height
	// CodeCommitment identifies the program every accepted aggregated proof must come from.
	CodeCommitment []byte
	// GenesisStateRoot is the rollup state root the client was created with.
	GenesisStateRoot []byte
	// UpgradePath is where the rollup commits an upgraded client. An empty path disables upgrades.
	UpgradePath []string
}

// NewClientState creates a new ClientState instance
func NewClientState(
	chainID, daChainID string, trustLevel Fraction,
	trustingPeriod, ubdPeriod, maxClockDrift time.Duration,
	latestHeight clienttypes.Height, codeCommitment, genesisStateRoot []byte,
	upgradePath []string,
) *ClientState {
	return &ClientState{
		ChainID:          chainID,
		DaChainID:        daChainID,
		TrustLevel:       trustLevel,
		TrustingPeriod:   trustingPeriod,
		UnbondingPeriod:  ubdPeriod,
		MaxClockDrift:    maxClockDrift,
		LatestHeight:     latestHeight,
		FrozenHeight:     clienttypes.ZeroHeight(),
		CodeCommitment:   codeCommitment,
		GenesisStateRoot: genesisStateRoot,
		UpgradePath:      upgradePath,
	}
}

// GetChainID returns the rollup chain-id
func (cs ClientState) GetChainID() string {
	return cs.ChainID
}

// ClientType is sov-celestia.
func (ClientState) ClientType() string {
	return ModuleName
}

// IsFrozen reports whether misbehaviour froze the client.
func (cs ClientState) IsFrozen() bool {
	return !cs.FrozenHeight.IsZero()
}

// getTimestampAtHeight returns the timestamp in nanoseconds of the consensus state at the given height.
func (ClientState) getTimestampAtHeight(
	clientStore storetypes.KVStore,
	height exported.Height,
) (uint64, error) {
	consState, found := GetConsensusState(clientStore, height)
	if !found {
		return 0, errorsmod.Wrapf(clienttypes.ErrConsensusStateNotFound, "height (%s)", height)
	}
	return consState.GetTimestamp(), nil
}

// status returns the status of the sov-celestia client.
// The client may be:
// - Active: FrozenHeight is zero and client is not expired
// - Frozen: Frozen Height is not zero
// - Expired: the latest consensus state timestamp + trusting period <= current time
//
// A frozen client will become expired, so the Frozen status
// has higher precedence.
func (cs ClientState) status(ctx sdk.Context, clientStore storetypes.KVStore) exported.Status {
	if cs.IsFrozen() {
		return exported.Frozen
	}

	// if the client state does not have an associated consensus state for its latest height
	// then it must be expired
	consState, found := GetConsensusState(clientStore, cs.LatestHeight)
	if !found {
		return exported.Expired
	}

	if cs.IsExpired(consState.Timestamp, ctx.BlockTime()) {
		return exported.Expired
	}

	return exported.Active
}

// IsExpired returns whether or not the client has passed the trusting period since the last
// update (in which case no headers are considered valid).
func (cs ClientState) IsExpired(latestTimestamp, now time.Time) bool {
	expirationTime := latestTimestamp.Add(cs.TrustingPeriod)
	return !expirationTime.After(now)
}

// Validate performs a basic validation of the client state fields.
func (cs ClientState) Validate() error {
	if strings.TrimSpace(cs.ChainID) == "" {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "chain id cannot be empty string")
	}
	if strings.TrimSpace(cs.DaChainID) == "" {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "DA chain id cannot be empty string")
	}
	if len(cs.DaChainID) > cmttypes.MaxChainIDLen {
		return errorsmod.Wrapf(ErrInvalidClientStateParams, "DA chain id is too long; got: %d, max: %d", len(cs.DaChainID), cmttypes.MaxChainIDLen)
	}

	if err := cs.TrustLevel.Validate(); err != nil {
		return errorsmod.Wrap(ErrInvalidClientStateParams, err.Error())
	}
	if cs.TrustingPeriod <= 0 {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "trusting period must be greater than zero")
	}
	if cs.UnbondingPeriod <= 0 {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "unbonding period must be greater than zero")
	}
	if cs.MaxClockDrift <= 0 {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "max clock drift must be greater than zero")
	}
	if cs.TrustingPeriod >= cs.UnbondingPeriod {
		return errorsmod.Wrapf(
			ErrInvalidClientStateParams,
			"trusting period (%s) should be < unbonding period (%s)", cs.TrustingPeriod, cs.UnbondingPeriod,
		)
	}

	// slot heights never change revision
	if cs.LatestHeight.RevisionNumber != 0 {
		return errorsmod.Wrapf(ErrInvalidClientStateParams, "latest height revision number must be 0, got %d", cs.LatestHeight.RevisionNumber)
	}
	if cs.LatestHeight.RevisionHeight == 0 {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "latest height cannot be zero")
	}

	if len(cs.CodeCommitment) == 0 {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "code commitment cannot be empty")
	}
	if len(cs.GenesisStateRoot) != rootSize {
		return errorsmod.Wrapf(ErrInvalidClientStateParams, "genesis state root must be %d bytes, got %d", rootSize, len(cs.GenesisStateRoot))
	}

	// UpgradePath may be empty, but if it isn't, each key must be non-empty
	for i, k := range cs.UpgradePath {
		if strings.TrimSpace(k) == "" {
			return errorsmod.Wrapf(ErrInvalidClientStateParams, "key in upgrade path at index %d cannot be empty", i)
		}
	}

	return nil
}

// ZeroCustomFields returns a ClientState that is a copy of the current ClientState
// with all client customizable fields zeroed out. All chain specific fields must
// remain unchanged. This client state will be used to verify chain upgrades when a
// chain breaks a light client verification parameter such as chainID.
func (cs ClientState) ZeroCustomFields() *ClientState {
	return &ClientState{
		ChainID:          cs.ChainID,
		DaChainID:        cs.DaChainID,
		UnbondingPeriod:  cs.UnbondingPeriod,
		LatestHeight:     cs.LatestHeight,
		CodeCommitment:   cs.CodeCommitment,
		GenesisStateRoot: cs.GenesisStateRoot,
		UpgradePath:      cs.UpgradePath,
	}
}

// initialize validates the client and the initial consensus state and stores both,
// together with the consensus metadata, in the provided client store.
func (cs ClientState) initialize(ctx sdk.Context, clientStore storetypes.KVStore, consensusState *ConsensusState) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	if cs.IsFrozen() {
		return errorsmod.Wrap(ErrInvalidClientStateParams, "initial client state cannot be frozen")
	}
	if consensusState == nil {
		return errorsmod.Wrap(clienttypes.ErrInvalidConsensus, "initial consensus state cannot be nil")
	}
	if err := consensusState.ValidateBasic(); err != nil {
		return err
	}
	if !bytes.Equal(consensusState.Root.GetHash(), cs.GenesisStateRoot) {
		return errorsmod.Wrapf(
			ErrInvalidClientStateParams, "initial consensus state root %X does not match genesis state root %X",
			consensusState.Root.GetHash(), cs.GenesisStateRoot,
		)
	}

	setClientState(clientStore, &cs)
	setConsensusState(clientStore, consensusState, cs.LatestHeight)
	setConsensusMetadata(ctx, clientStore, cs.LatestHeight)

	return nil
}
