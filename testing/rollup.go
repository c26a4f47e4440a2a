package ibctesting

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"

	"github.com/cosmos/cosmos-sdk/testutil"
	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	host "github.com/sovereign-ibc/sov-celestia-lc/modules/core/24-host"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

const (
	// RollupChainID is the chain id of the test rollup.
	RollupChainID = "sov-rollup-1"
	// DefaultClientID is the identifier of the first sov-celestia client.
	DefaultClientID = "sov-celestia-0"

	TrustingPeriod  time.Duration = time.Hour * 24 * 7 * 2
	UnbondingPeriod time.Duration = time.Hour * 24 * 7 * 3
	MaxClockDrift   time.Duration = time.Second * 10

	// DAHeaderStep is the slot distance between two DA headers of a default update.
	DAHeaderStep = 10
)

var (
	// UpgradePath is the default upgrade path of test clients.
	UpgradePath = []string{"upgrade", "upgradedIBCState"}

	// CounterpartyClientStatePath is the path of the client state the rollup keeps of its counterparty.
	CounterpartyClientStatePath = host.FullClientStatePath("07-tendermint-0")
	// PacketCommitmentPath is the path of the first packet sent on the transfer channel.
	PacketCommitmentPath = string(host.PacketCommitmentKey("transfer", "channel-0", 1))
	// PacketReceiptPath is the receipt path of the first packet on the transfer channel. The
	// default state never contains it.
	PacketReceiptPath = string(host.PacketReceiptKey("transfer", "channel-0", 1))
)

// Rollup is an in-memory Sovereign SDK rollup publishing to a DAChain. It commits one state
// tree per slot and proves transitions between slots with its Prover.
type Rollup struct {
	T       testing.TB
	ChainID string

	DA       *DAChain
	Prover   *Prover
	Verifier *sovcelestia.Groth16Verifier

	states map[uint64]*StateTree
}

// NewRollup creates a rollup on a fresh 4 validator DA chain. The prover is shared between
// rollups and its verifying key is registered with the rollup's verifier.
func NewRollup(t testing.TB) *Rollup {
	t.Helper()

	prover, err := DefaultProver()
	require.NoError(t, err)

	return NewRollupWithProver(t, prover)
}

// NewRollupWithProver creates a rollup proving its transitions with prover.
func NewRollupWithProver(t testing.TB, prover *Prover) *Rollup {
	t.Helper()

	verifier := sovcelestia.NewGroth16Verifier()
	_, err := verifier.RegisterVerifyingKey(prover.VerifyingKey())
	require.NoError(t, err)

	return &Rollup{
		T:        t,
		ChainID:  RollupChainID,
		DA:       NewDAChain(t, 4),
		Prover:   prover,
		Verifier: verifier,
		states:   make(map[uint64]*StateTree),
	}
}

// IBCKey returns the rollup state key of an IBC path.
func IBCKey(path string) []byte {
	prefix := sovcelestia.DefaultCommitmentPrefix().Bytes()
	key := make([]byte, 0, len(prefix)+len(path))
	key = append(key, prefix...)
	return append(key, path...)
}

// CommitState commits entries as the state of slot. The keys are IBC paths and are stored
// under the IBC commitment prefix.
func (r *Rollup) CommitState(slot uint64, entries map[string][]byte) *StateTree {
	prefixed := make(map[string][]byte, len(entries))
	for path, value := range entries {
		prefixed[string(IBCKey(path))] = value
	}

	return r.CommitRawState(slot, prefixed)
}

// CommitRawState commits entries keyed by full rollup state keys as the state of slot.
func (r *Rollup) CommitRawState(slot uint64, entries map[string][]byte) *StateTree {
	tree, err := NewStateTree(entries)
	require.NoError(r.T, err)

	r.states[slot] = tree
	return tree
}

// State returns the state tree of slot, committing a default state if none was committed.
func (r *Rollup) State(slot uint64) *StateTree {
	if tree, found := r.states[slot]; found {
		return tree
	}

	return r.CommitState(slot, map[string][]byte{
		CounterpartyClientStatePath: []byte(fmt.Sprintf("client state at %d", slot)),
		PacketCommitmentPath:        []byte(fmt.Sprintf("packet commitment at %d", slot)),
	})
}

// Root returns the state root of slot.
func (r *Rollup) Root(slot uint64) []byte {
	return r.State(slot).Root()
}

// ClientState returns a client of the rollup whose latest height is slot.
func (r *Rollup) ClientState(slot uint64) *sovcelestia.ClientState {
	return sovcelestia.NewClientState(
		r.ChainID, r.DA.ChainID, sovcelestia.DefaultTrustLevel,
		TrustingPeriod, UnbondingPeriod, MaxClockDrift,
		clienttypes.NewSlotHeight(slot), r.Prover.CodeCommitment(), r.Root(slot),
		UpgradePath,
	)
}

// ConsensusState returns the consensus state the client stores for slot.
func (r *Rollup) ConsensusState(slot uint64) *sovcelestia.ConsensusState {
	daHeader := r.DA.Header(slot)
	return sovcelestia.NewConsensusState(
		daHeader.GetTime(),
		commitmenttypes.NewMerkleRoot(r.Root(slot)),
		daHeader.Hash(),
		daHeader.SignedHeader.NextValidatorsHash,
	)
}

// PublicData returns the public data of the transition from initial to final, bound to the
// DA headers ending the range.
func (r *Rollup) PublicData(initial, final uint64, lastDAHeader sovcelestia.DAHeader) sovcelestia.AggregatedProofPublicData {
	condition := sovcelestia.NewChainValidityCondition(r.DA.Header(initial).Hash(), lastDAHeader.Hash())
	return sovcelestia.AggregatedProofPublicData{
		InitialSlotNumber: initial,
		FinalSlotNumber:   final,
		InitialStateRoot:  r.Root(initial),
		FinalStateRoot:    r.Root(final),
		CodeCommitment:    r.Prover.CodeCommitment(),
		ValidityCondition: condition.Bytes(),
	}
}

// CreateHeader returns an update proving the transition from initial to final. The DA
// headers are verified starting from the validators trusted at trusted.
func (r *Rollup) CreateHeader(trusted, initial, final uint64) *sovcelestia.Header {
	daHeaders := r.DA.Headers(initial, final, DAHeaderStep)
	return r.CreateHeaderWithPublicData(trusted, daHeaders, r.PublicData(initial, final, daHeaders[len(daHeaders)-1]))
}

// CreateHeaderWithPublicData returns an update carrying daHeaders and a valid proof of
// publicData, whatever publicData claims.
func (r *Rollup) CreateHeaderWithPublicData(
	trusted uint64, daHeaders []sovcelestia.DAHeader, publicData sovcelestia.AggregatedProofPublicData,
) *sovcelestia.Header {
	proof, err := r.Prover.Prove(publicData)
	require.NoError(r.T, err)

	return &sovcelestia.Header{
		DaHeaders:         daHeaders,
		TrustedHeight:     clienttypes.NewSlotHeight(trusted),
		TrustedValidators: r.DA.Vals,
		AggregatedProof: sovcelestia.AggregatedProof{
			PublicData:      publicData,
			SerializedProof: proof,
		},
	}
}

// NewLightClientModule returns a sov-celestia module over storeKey verifying proofs of the
// rollup's prover.
func (r *Rollup) NewLightClientModule(storeKey storetypes.StoreKey) sovcelestia.LightClientModule {
	return sovcelestia.NewLightClientModule(
		clienttypes.NewStoreProvider(storeKey), r.Verifier, sovcelestia.DefaultCommitmentPrefix(), log.NewNopLogger(),
	)
}

// CreateClient initializes clientID at slot through the module.
func (r *Rollup) CreateClient(ctx sdk.Context, module sovcelestia.LightClientModule, clientID string, slot uint64) {
	clientStateBz := sovcelestia.MarshalClientState(r.ClientState(slot))
	consensusStateBz := sovcelestia.MarshalConsensusState(r.ConsensusState(slot))
	require.NoError(r.T, module.Initialize(ctx, clientID, clientStateBz, consensusStateBz))
}

// ProofBytes returns the encoded proof of an IBC path in the state of slot.
func (r *Rollup) ProofBytes(slot uint64, path string) []byte {
	proof, err := r.State(slot).MerkleProofBytes(IBCKey(path))
	require.NoError(r.T, err)
	return proof
}

// NewTestContext returns a context over a fresh in-memory store with the given block time,
// and the key of that store.
func NewTestContext(blockTime time.Time) (sdk.Context, storetypes.StoreKey) {
	key := storetypes.NewKVStoreKey(exported.ModuleName)
	ctx := testutil.DefaultContext(key, storetypes.NewTransientStoreKey("transient_test"))
	return ctx.WithBlockTime(blockTime).WithBlockHeight(1000), key
}
