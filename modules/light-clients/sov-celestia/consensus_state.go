package sovcelestia

import (
	"time"

	"github.com/cometbft/cometbft/crypto/tmhash"
	cmttypes "github.com/cometbft/cometbft/types"

	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// ConsensusState is the verified view of the rollup at one DA slot.
type ConsensusState struct {
	// Root is the rollup state root at the slot.
	Root commitmenttypes.MerkleRoot
	// DaHeaderHash is the hash of the Celestia header of the slot.
	DaHeaderHash []byte
	// Timestamp is the time of the Celestia header of the slot.
	Timestamp time.Time
	// NextValidatorsHash commits to the Celestia validator set trusted for the following header.
	NextValidatorsHash []byte
}

// NewConsensusState creates a new ConsensusState instance.
func NewConsensusState(
	timestamp time.Time, root commitmenttypes.MerkleRoot, daHeaderHash, nextValsHash []byte,
) *ConsensusState {
	return &ConsensusState{
		Timestamp:          timestamp,
		Root:               root,
		DaHeaderHash:       daHeaderHash,
		NextValidatorsHash: nextValsHash,
	}
}

// ClientType returns the sov-celestia client type.
func (ConsensusState) ClientType() string {
	return ModuleName
}

// GetRoot returns the rollup state root of the slot.
func (cs ConsensusState) GetRoot() exported.Root {
	return cs.Root
}

// GetTimestamp returns block time in nanoseconds of the header that created consensus state
func (cs ConsensusState) GetTimestamp() uint64 {
	return uint64(cs.Timestamp.UnixNano())
}

// ValidateBasic defines a basic validation for the sov-celestia consensus state.
func (cs ConsensusState) ValidateBasic() error {
	if cs.Root.Empty() {
		return errorsmod.Wrap(clienttypes.ErrInvalidConsensus, "root cannot be empty")
	}
	if len(cs.Root.GetHash()) != rootSize {
		return errorsmod.Wrapf(clienttypes.ErrInvalidConsensus, "root must be %d bytes, got %d", rootSize, len(cs.Root.GetHash()))
	}
	if len(cs.DaHeaderHash) != tmhash.Size {
		return errorsmod.Wrapf(clienttypes.ErrInvalidConsensus, "DA header hash must be %d bytes, got %d", tmhash.Size, len(cs.DaHeaderHash))
	}
	if err := cmttypes.ValidateHash(cs.NextValidatorsHash); err != nil {
		return errorsmod.Wrapf(clienttypes.ErrInvalidConsensus, "next validators hash is invalid: %v", err)
	}
	if len(cs.NextValidatorsHash) == 0 {
		return errorsmod.Wrap(clienttypes.ErrInvalidConsensus, "next validators hash cannot be empty")
	}
	if cs.Timestamp.Unix() <= 0 {
		return errorsmod.Wrap(clienttypes.ErrInvalidConsensus, "timestamp must be a positive Unix time")
	}
	return nil
}
