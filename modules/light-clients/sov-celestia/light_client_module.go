package sovcelestia

import (
	"fmt"
	"sync"

	metrics "github.com/armon/go-metrics"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	host "github.com/sovereign-ibc/sov-celestia-lc/modules/core/24-host"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// LightClientModule implements the light client entry points for sov-celestia clients.
// State transitions of one client are serialized; queries run concurrently with each
// other and never observe a partially applied transition.
type LightClientModule struct {
	storeProvider    clienttypes.StoreProvider
	verifier         ProofVerifier
	commitmentPrefix commitmenttypes.MerklePrefix
	logger           log.Logger
	locks            *clientLocks
}

// NewLightClientModule creates and returns a new sov-celestia LightClientModule. The
// commitment prefix is the namespace of the IBC store inside the rollup state.
func NewLightClientModule(
	storeProvider clienttypes.StoreProvider, verifier ProofVerifier,
	commitmentPrefix commitmenttypes.MerklePrefix, logger log.Logger,
) LightClientModule {
	if commitmentPrefix.Empty() {
		panic(fmt.Errorf("commitment prefix of the %s light client cannot be empty", ModuleName))
	}

	return LightClientModule{
		storeProvider:    storeProvider,
		verifier:         verifier,
		commitmentPrefix: commitmentPrefix,
		logger:           logger.With("module", fmt.Sprintf("x/%s/%s", exported.ModuleName, ModuleName)),
		locks:            newClientLocks(),
	}
}

// CommitmentPrefix returns the prefix under which the rollup commits IBC paths.
func (l LightClientModule) CommitmentPrefix() commitmenttypes.MerklePrefix {
	return l.commitmentPrefix
}

// Initialize unmarshals the provided client and consensus states and performs basic validation. It calls into the
// clientState.initialize method.
func (l LightClientModule) Initialize(ctx sdk.Context, clientID string, clientStateBz, consensusStateBz []byte) error {
	if err := host.ClientIdentifierValidator(clientID); err != nil {
		return err
	}

	clientState, err := UnmarshalClientState(clientStateBz)
	if err != nil {
		return errorsmod.Wrap(err, "failed to unmarshal client state bytes into client state")
	}

	consensusState, err := UnmarshalConsensusState(consensusStateBz)
	if err != nil {
		return errorsmod.Wrap(err, "failed to unmarshal consensus state bytes into consensus state")
	}

	unlock := l.locks.lock(clientID)
	defer unlock()

	clientStore := l.storeProvider.ClientStore(ctx, clientID)
	if _, found := getClientState(clientStore); found {
		return errorsmod.Wrapf(clienttypes.ErrClientExists, "cannot create client with ID %s", clientID)
	}

	if err := clientState.initialize(ctx, clientStore, consensusState); err != nil {
		return err
	}

	l.logger.Info("client created", "client-id", clientID, "height", clientState.LatestHeight.String())
	emitCreateClientEvent(ctx, clientID, clientState)

	return nil
}

// VerifyClientMessage obtains the client state associated with the client identifier and calls into the clientState.VerifyClientMessage method.
func (l LightClientModule) VerifyClientMessage(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) error {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	return clientState.VerifyClientMessage(ctx, clientStore, l.verifier, clientMsg)
}

// CheckForMisbehaviour obtains the client state associated with the client identifier and calls into the clientState.CheckForMisbehaviour method.
func (l LightClientModule) CheckForMisbehaviour(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) (bool, error) {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return false, err
	}

	return clientState.CheckForMisbehaviour(ctx, clientStore, clientMsg)
}

// UpdateStateOnMisbehaviour obtains the client state associated with the client identifier and calls into the clientState.UpdateStateOnMisbehaviour method.
func (l LightClientModule) UpdateStateOnMisbehaviour(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) error {
	unlock := l.locks.lock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	return l.freeze(ctx, clientID, clientStore, clientState, clientMsg)
}

// VerifyAndCheckForMisbehaviour verifies the client message and reports whether it proves
// misbehaviour. Both steps observe the same client state.
func (l LightClientModule) VerifyAndCheckForMisbehaviour(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) (bool, error) {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return false, err
	}

	if err := clientState.VerifyClientMessage(ctx, clientStore, l.verifier, clientMsg); err != nil {
		return false, err
	}
	return clientState.CheckForMisbehaviour(ctx, clientStore, clientMsg)
}

// SubmitMisbehaviour verifies the client message and freezes the client when it proves
// misbehaviour, all under the client's write lock. The client is left untouched and false
// is returned when no misbehaviour is found.
func (l LightClientModule) SubmitMisbehaviour(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) (bool, error) {
	unlock := l.locks.lock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return false, err
	}

	if err := clientState.VerifyClientMessage(ctx, clientStore, l.verifier, clientMsg); err != nil {
		return false, err
	}

	foundMisbehaviour, err := clientState.CheckForMisbehaviour(ctx, clientStore, clientMsg)
	if err != nil || !foundMisbehaviour {
		return false, err
	}

	if err := l.freeze(ctx, clientID, clientStore, clientState, clientMsg); err != nil {
		return false, err
	}
	return true, nil
}

// freeze must be called with the client's write lock held.
func (l LightClientModule) freeze(
	ctx sdk.Context, clientID string, clientStore storetypes.KVStore, clientState *ClientState,
	clientMsg exported.ClientMessage,
) error {
	if err := clientState.UpdateStateOnMisbehaviour(ctx, clientStore, clientMsg); err != nil {
		return err
	}

	l.logger.Info("client frozen due to misbehaviour", "client-id", clientID, "height", clientState.FrozenHeight.String())
	emitSubmitMisbehaviourEvent(ctx, clientID, clientState)
	emitMisbehaviourTelemetry(clientID, clientMsg)

	return nil
}

// UpdateState obtains the client state associated with the client identifier and calls into the clientState.UpdateState method.
func (l LightClientModule) UpdateState(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) ([]exported.Height, error) {
	unlock := l.locks.lock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	heights, err := clientState.UpdateState(ctx, clientStore, clientMsg)
	if err != nil {
		return nil, err
	}

	l.logger.Info("client state updated", "client-id", clientID, "height", clientState.LatestHeight.String())
	emitUpdateClientEvent(ctx, clientID, heights)
	emitUpdateTelemetry(clientID)

	return heights, nil
}

// UpdateClient verifies the client message and, depending on its content, freezes the client
// or stores the new consensus state. The whole transition runs under the client's write
// lock. It returns the heights of the stored consensus states, which is empty when the
// client was frozen.
func (l LightClientModule) UpdateClient(ctx sdk.Context, clientID string, clientMsg exported.ClientMessage) ([]exported.Height, error) {
	unlock := l.locks.lock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if clientState.IsFrozen() {
		return nil, errorsmod.Wrapf(ErrClientFrozen, "cannot update client (%s) frozen at height %s", clientID, clientState.FrozenHeight)
	}
	if status := clientState.status(ctx, clientStore); status != exported.Active {
		return nil, errorsmod.Wrapf(clienttypes.ErrClientNotActive, "cannot update client (%s) with status %s", clientID, status)
	}

	if err := clientState.VerifyClientMessage(ctx, clientStore, l.verifier, clientMsg); err != nil {
		return nil, err
	}

	foundMisbehaviour, err := clientState.CheckForMisbehaviour(ctx, clientStore, clientMsg)
	if err != nil {
		return nil, err
	}
	if foundMisbehaviour {
		return nil, l.freeze(ctx, clientID, clientStore, clientState, clientMsg)
	}

	heights, err := clientState.UpdateState(ctx, clientStore, clientMsg)
	if err != nil {
		return nil, err
	}

	l.logger.Info("client state updated", "client-id", clientID, "heights", heights)
	emitUpdateClientEvent(ctx, clientID, heights)
	emitUpdateTelemetry(clientID)

	return heights, nil
}

// VerifyMembership obtains the client state associated with the client identifier and calls into the clientState.verifyMembership method.
func (l LightClientModule) VerifyMembership(
	ctx sdk.Context,
	clientID string,
	height exported.Height,
	delayTimePeriod uint64,
	delayBlockPeriod uint64,
	proof []byte,
	path exported.Path,
	value []byte,
) error {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	return clientState.verifyMembership(ctx, clientStore, l.commitmentPrefix, height, delayTimePeriod, delayBlockPeriod, proof, path, value)
}

// VerifyNonMembership obtains the client state associated with the client identifier and calls into the clientState.verifyNonMembership method.
func (l LightClientModule) VerifyNonMembership(
	ctx sdk.Context,
	clientID string,
	height exported.Height,
	delayTimePeriod uint64,
	delayBlockPeriod uint64,
	proof []byte,
	path exported.Path,
) error {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	return clientState.verifyNonMembership(ctx, clientStore, l.commitmentPrefix, height, delayTimePeriod, delayBlockPeriod, proof, path)
}

// VerifyCommitment verifies a proof for key at height and reports whether it proves the
// expected value or the absence of the key. A nil value expects absence.
func (l LightClientModule) VerifyCommitment(
	ctx sdk.Context, clientID string, height exported.Height, key []byte, value *[]byte, proof []byte,
) (VerificationResult, error) {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return 0, err
	}

	return clientState.VerifyCommitment(clientStore, l.commitmentPrefix, height, key, value, proof)
}

// Status returns the status of the sov-celestia client.
// The client may be:
// - Active: FrozenHeight is zero and client is not expired
// - Frozen: Frozen Height is not zero
// - Expired: the latest consensus state timestamp + trusting period <= current time
// - Unknown: the client state associated with the provided client identifier is not found
//
// A frozen client will become expired, so the Frozen status
// has higher precedence.
func (l LightClientModule) Status(ctx sdk.Context, clientID string) exported.Status {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore := l.storeProvider.ClientStore(ctx, clientID)
	clientState, found := getClientState(clientStore)
	if !found {
		return exported.Unknown
	}

	return clientState.status(ctx, clientStore)
}

// LatestHeight returns the latest height for the client state for the given client identifier.
// If no client is present for the provided client identifier a zero value height is returned.
func (l LightClientModule) LatestHeight(ctx sdk.Context, clientID string) exported.Height {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore := l.storeProvider.ClientStore(ctx, clientID)
	clientState, found := getClientState(clientStore)
	if !found {
		return clienttypes.ZeroHeight()
	}

	return clientState.LatestHeight
}

// TimestampAtHeight obtains the client state associated with the client identifier and calls into the clientState.getTimestampAtHeight method.
func (l LightClientModule) TimestampAtHeight(ctx sdk.Context, clientID string, height exported.Height) (uint64, error) {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return 0, err
	}

	return clientState.getTimestampAtHeight(clientStore, height)
}

// ExportMetadata returns the consensus metadata of the client for genesis export.
func (l LightClientModule) ExportMetadata(ctx sdk.Context, clientID string) []exported.GenesisMetadata {
	unlock := l.locks.rlock(clientID)
	defer unlock()

	return ExportMetadata(l.storeProvider.ClientStore(ctx, clientID))
}

// RecoverClient asserts that the substitute client is a sov-celestia client. It obtains the client state associated with the
// subject client and calls into the subjectClientState.CheckSubstituteAndUpdateState method.
func (l LightClientModule) RecoverClient(ctx sdk.Context, clientID, substituteClientID string) error {
	substituteClientType, _, err := clienttypes.ParseClientIdentifier(substituteClientID)
	if err != nil {
		return err
	}

	if substituteClientType != ModuleName {
		return errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "expected: %s, got: %s", ModuleName, substituteClientType)
	}
	if clientID == substituteClientID {
		return errorsmod.Wrap(clienttypes.ErrInvalidSubstitute, "subject and substitute client cannot be the same client")
	}

	unlock := l.locks.lockPair(clientID, substituteClientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	substituteClientStore, substituteClient, err := l.loadClient(ctx, substituteClientID)
	if err != nil {
		return err
	}

	if status := clientState.status(ctx, clientStore); status == exported.Active {
		return errorsmod.Wrapf(clienttypes.ErrInvalidSubstitute, "cannot recover %s subject client", exported.Active)
	}
	if status := substituteClient.status(ctx, substituteClientStore); status != exported.Active {
		return errorsmod.Wrapf(clienttypes.ErrClientNotActive, "substitute client is not %s, status is %s", exported.Active, status)
	}

	if err := clientState.CheckSubstituteAndUpdateState(clientStore, substituteClientStore, substituteClient); err != nil {
		return err
	}

	l.logger.Info("client recovered", "client-id", clientID, "substitute-client-id", substituteClientID)
	emitRecoverClientEvent(ctx, clientID, substituteClientID)

	return nil
}

// VerifyUpgradeAndUpdateState obtains the client state associated with the client identifier and calls into the clientState.VerifyUpgradeAndUpdateState method.
// The new client and consensus states will be unmarshaled before the client is locked.
func (l LightClientModule) VerifyUpgradeAndUpdateState(
	ctx sdk.Context,
	clientID string,
	newClient []byte,
	newConsState []byte,
	upgradeClientProof,
	upgradeConsensusStateProof []byte,
) error {
	newClientState, err := UnmarshalClientState(newClient)
	if err != nil {
		return errorsmod.Wrap(err, "failed to unmarshal upgraded client state")
	}

	newConsensusState, err := UnmarshalConsensusState(newConsState)
	if err != nil {
		return errorsmod.Wrap(err, "failed to unmarshal upgraded consensus state")
	}

	unlock := l.locks.lock(clientID)
	defer unlock()

	clientStore, clientState, err := l.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	if err := clientState.VerifyUpgradeAndUpdateState(
		ctx, clientStore, l.commitmentPrefix, newClientState, newConsensusState, upgradeClientProof, upgradeConsensusStateProof,
	); err != nil {
		return err
	}

	l.logger.Info("client state upgraded", "client-id", clientID, "height", newClientState.LatestHeight.String())
	emitUpgradeClientEvent(ctx, clientID, newClientState.LatestHeight)

	defer metrics.IncrCounterWithLabels(
		[]string{"ibc", "client", "upgrade"},
		1,
		[]metrics.Label{
			{Name: clienttypes.LabelClientType, Value: ModuleName},
			{Name: clienttypes.LabelClientID, Value: clientID},
		},
	)

	return nil
}

// loadClient returns the client store and the decoded client state of clientID.
func (l LightClientModule) loadClient(ctx sdk.Context, clientID string) (storetypes.KVStore, *ClientState, error) {
	clientStore := l.storeProvider.ClientStore(ctx, clientID)
	clientState, found := getClientState(clientStore)
	if !found {
		return nil, nil, errorsmod.Wrap(clienttypes.ErrClientNotFound, clientID)
	}
	return clientStore, clientState, nil
}

func emitUpdateTelemetry(clientID string) {
	metrics.IncrCounterWithLabels(
		[]string{"ibc", "client", "update"},
		1,
		[]metrics.Label{
			{Name: clienttypes.LabelClientType, Value: ModuleName},
			{Name: clienttypes.LabelClientID, Value: clientID},
			{Name: clienttypes.LabelUpdateType, Value: "msg"},
		},
	)
}

func emitMisbehaviourTelemetry(clientID string, clientMsg exported.ClientMessage) {
	metrics.IncrCounterWithLabels(
		[]string{"ibc", "client", "misbehaviour"},
		1,
		[]metrics.Label{
			{Name: clienttypes.LabelClientType, Value: ModuleName},
			{Name: clienttypes.LabelClientID, Value: clientID},
			{Name: clienttypes.LabelMsgType, Value: fmt.Sprintf("%T", clientMsg)},
		},
	)
}

// clientLocks hands out one read/write lock per client identifier.
type clientLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newClientLocks() *clientLocks {
	return &clientLocks{
		locks: make(map[string]*sync.RWMutex),
	}
}

func (c *clientLocks) get(clientID string) *sync.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, found := c.locks[clientID]
	if !found {
		lock = &sync.RWMutex{}
		c.locks[clientID] = lock
	}
	return lock
}

// lock takes the write lock of clientID and returns its release function.
func (c *clientLocks) lock(clientID string) func() {
	lock := c.get(clientID)
	lock.Lock()
	return lock.Unlock
}

// rlock takes the read lock of clientID and returns its release function.
func (c *clientLocks) rlock(clientID string) func() {
	lock := c.get(clientID)
	lock.RLock()
	return lock.RUnlock
}

// lockPair takes the write locks of two distinct clients in a fixed order.
func (c *clientLocks) lockPair(clientID, otherClientID string) func() {
	first, second := clientID, otherClientID
	if second < first {
		first, second = second, first
	}

	unlockFirst := c.lock(first)
	unlockSecond := c.lock(second)
	return func() {
		unlockSecond()
		unlockFirst()
	}
}
