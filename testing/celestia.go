package ibctesting

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	cmtprotoversion "github.com/cometbft/cometbft/proto/tendermint/version"
	cmttypes "github.com/cometbft/cometbft/types"
	cmtversion "github.com/cometbft/cometbft/version"

	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

const (
	// DAChainID is the chain id of the test Celestia network.
	DAChainID = "mocha-4"
	// DABlockTime is the time between two test Celestia blocks.
	DABlockTime = 6 * time.Second
)

// DAGenesisTime is the time of slot 0 of the test Celestia network.
var DAGenesisTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DAChain is an in-memory Celestia network. It signs one header per slot with its
// validator set. Headers are deterministic, so the header of a slot is the same every
// time it is requested.
type DAChain struct {
	T       testing.TB
	ChainID string

	Vals    *cmttypes.ValidatorSet
	Signers map[string]cmttypes.PrivValidator

	headers map[int64]sovcelestia.DAHeader
}

// NewDAChain creates a DA network with numVals validators of equal voting power.
func NewDAChain(t testing.TB, numVals int) *DAChain {
	t.Helper()

	vals, signers := GenerateValidators(t, numVals, 10)
	return &DAChain{
		T:       t,
		ChainID: DAChainID,
		Vals:    vals,
		Signers: signers,
		headers: make(map[int64]sovcelestia.DAHeader),
	}
}

// GenerateValidators returns a validator set of numVals validators with the given voting
// power each, and their signers indexed by address.
func GenerateValidators(t testing.TB, numVals int, power int64) (*cmttypes.ValidatorSet, map[string]cmttypes.PrivValidator) {
	t.Helper()

	validators := make([]*cmttypes.Validator, 0, numVals)
	signers := make(map[string]cmttypes.PrivValidator, numVals)
	for i := 0; i < numVals; i++ {
		privVal := cmttypes.NewMockPV()
		pubKey, err := privVal.GetPubKey()
		require.NoError(t, err)

		validators = append(validators, cmttypes.NewValidator(pubKey, power))
		signers[pubKey.Address().String()] = privVal
	}

	return cmttypes.NewValidatorSet(validators), signers
}

// SlotTime returns the block time of slot.
func SlotTime(slot uint64) time.Time {
	return DAGenesisTime.Add(time.Duration(slot) * DABlockTime)
}

// Header returns the header of slot signed by every validator of the chain.
func (c *DAChain) Header(slot uint64) sovcelestia.DAHeader {
	height := int64(slot)
	if header, found := c.headers[height]; found {
		return header
	}

	header := c.CreateDAHeader(height, SlotTime(slot), c.Vals, c.Vals, c.Signers)
	c.headers[height] = header
	return header
}

// Headers returns the headers of the slots (from, to], or the header of to alone when
// step is 0.
func (c *DAChain) Headers(from, to, step uint64) []sovcelestia.DAHeader {
	if step == 0 {
		return []sovcelestia.DAHeader{c.Header(to)}
	}

	var headers []sovcelestia.DAHeader
	for slot := from + step; slot < to; slot += step {
		headers = append(headers, c.Header(slot))
	}
	return append(headers, c.Header(to))
}

// CreateDAHeader creates a Celestia header at height signed by the validators of valSet
// that have a signer in signers. Validators without a signer are recorded as absent.
func (c *DAChain) CreateDAHeader(
	height int64, timestamp time.Time, valSet, nextValSet *cmttypes.ValidatorSet,
	signers map[string]cmttypes.PrivValidator,
) sovcelestia.DAHeader {
	require.NotNil(c.T, valSet)

	header := cmttypes.Header{
		Version:            cmtprotoversion.Consensus{Block: cmtversion.BlockProtocol, App: 1},
		ChainID:            c.ChainID,
		Height:             height,
		Time:               timestamp,
		LastBlockID:        MakeBlockID(tmhash.Sum([]byte("last_block")), 10_000, tmhash.Sum([]byte("last_part_set"))),
		LastCommitHash:     tmhash.Sum([]byte("last_commit_hash")),
		DataHash:           tmhash.Sum([]byte("data_hash")),
		ValidatorsHash:     valSet.Hash(),
		NextValidatorsHash: nextValSet.Hash(),
		ConsensusHash:      tmhash.Sum([]byte("consensus_hash")),
		AppHash:            tmhash.Sum([]byte("app_hash")),
		LastResultsHash:    tmhash.Sum([]byte("last_results_hash")),
		EvidenceHash:       tmhash.Sum([]byte("evidence_hash")),
		ProposerAddress:    valSet.Proposer.Address,
	}

	blockID := MakeBlockID(header.Hash(), 3, tmhash.Sum([]byte("part_set")))
	commit := c.signCommit(blockID, height, timestamp, valSet, signers)

	return sovcelestia.DAHeader{
		SignedHeader: &cmttypes.SignedHeader{
			Header: &header,
			Commit: commit,
		},
		ValidatorSet: valSet,
	}
}

func (c *DAChain) signCommit(
	blockID cmttypes.BlockID, height int64, timestamp time.Time,
	valSet *cmttypes.ValidatorSet, signers map[string]cmttypes.PrivValidator,
) *cmttypes.Commit {
	const round = 1

	signatures := make([]cmttypes.CommitSig, len(valSet.Validators))
	for i, val := range valSet.Validators {
		privVal, found := signers[val.Address.String()]
		if !found {
			signatures[i] = cmttypes.NewCommitSigAbsent()
			continue
		}

		vote := &cmttypes.Vote{
			Type:             cmtproto.PrecommitType,
			Height:           height,
			Round:            round,
			BlockID:          blockID,
			Timestamp:        timestamp,
			ValidatorAddress: val.Address,
			ValidatorIndex:   int32(i),
		}
		pbVote := vote.ToProto()
		require.NoError(c.T, privVal.SignVote(c.ChainID, pbVote))

		signatures[i] = cmttypes.CommitSig{
			BlockIDFlag:      cmttypes.BlockIDFlagCommit,
			ValidatorAddress: val.Address,
			Timestamp:        timestamp,
			Signature:        pbVote.Signature,
		}
	}

	return &cmttypes.Commit{
		Height:     height,
		Round:      round,
		BlockID:    blockID,
		Signatures: signatures,
	}
}

// SignersOf returns the signers of the given validators.
func (c *DAChain) SignersOf(vals ...*cmttypes.Validator) map[string]cmttypes.PrivValidator {
	signers := make(map[string]cmttypes.PrivValidator, len(vals))
	for _, val := range vals {
		signers[val.Address.String()] = c.Signers[val.Address.String()]
	}
	return signers
}

// SortedValidators returns the validators of the chain ordered by address.
func (c *DAChain) SortedValidators() []*cmttypes.Validator {
	vals := make([]*cmttypes.Validator, len(c.Vals.Validators))
	copy(vals, c.Vals.Validators)
	sort.Slice(vals, func(i, j int) bool {
		return vals[i].Address.String() < vals[j].Address.String()
	})
	return vals
}

// MakeBlockID copied unimported test functions from cmttypes to use them here
func MakeBlockID(hash []byte, partSetSize uint32, partSetHash []byte) cmttypes.BlockID {
	return cmttypes.BlockID{
		Hash: hash,
		PartSetHeader: cmttypes.PartSetHeader{
			Total: partSetSize,
			Hash:  partSetHash,
		},
	}
}
