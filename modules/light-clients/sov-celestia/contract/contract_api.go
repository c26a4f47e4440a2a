package contract

import (
	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// InstantiateMessage is the message that is sent to the contract's instantiate entry point.
type InstantiateMessage struct {
	ClientState    AnyClientState    `json:"client_state"`
	ConsensusState AnyConsensusState `json:"consensus_state"`
}

// ClientMessage carries an encoded sov-celestia header or misbehaviour.
type ClientMessage struct {
	Data []byte `json:"data"`
}

// QueryMsg is used to encode messages that are sent to the contract's query entry point.
// The json omitempty tag is mandatory since it omits any empty (default initialized) fields from the encoded JSON,
// exactly one field must be set.
type QueryMsg struct {
	Status               *StatusMsg               `json:"status,omitempty"`
	LatestHeight         *LatestHeightMsg         `json:"latest_height,omitempty"`
	ExportMetadata       *ExportMetadataMsg       `json:"export_metadata,omitempty"`
	TimestampAtHeight    *TimestampAtHeightMsg    `json:"timestamp_at_height,omitempty"`
	VerifyClientMessage  *VerifyClientMessageMsg  `json:"verify_client_message,omitempty"`
	VerifyMembership     *VerifyMembershipMsg     `json:"verify_membership,omitempty"`
	VerifyNonMembership  *VerifyNonMembershipMsg  `json:"verify_non_membership,omitempty"`
	CheckForMisbehaviour *CheckForMisbehaviourMsg `json:"check_for_misbehaviour,omitempty"`
}

// StatusMsg is a QueryMsg sent to the contract to query the status of the client.
type StatusMsg struct{}

// LatestHeightMsg is a QueryMsg sent to the contract to query the latest height of the client.
type LatestHeightMsg struct{}

// ExportMetadataMsg is a QueryMsg sent to the contract to query the exported metadata of the client.
type ExportMetadataMsg struct{}

// TimestampAtHeightMsg is a QueryMsg sent to the contract to query the timestamp at a given height.
type TimestampAtHeightMsg struct {
	Height clienttypes.Height `json:"height"`
}

// VerifyClientMessageMsg is a QueryMsg sent to the contract to verify a client message.
type VerifyClientMessageMsg struct {
	ClientMessage ClientMessage `json:"client_message"`
}

// VerifyMembershipMsg is a QueryMsg sent to the contract to verify a membership proof.
type VerifyMembershipMsg struct {
	Height           clienttypes.Height         `json:"height"`
	DelayTimePeriod  uint64                     `json:"delay_time_period"`
	DelayBlockPeriod uint64                     `json:"delay_block_period"`
	Proof            []byte                     `json:"proof"`
	Path             commitmenttypes.MerklePath `json:"path"`
	Value            []byte                     `json:"value"`
}

// VerifyNonMembershipMsg is a QueryMsg sent to the contract to verify a non-membership proof.
type VerifyNonMembershipMsg struct {
	Height           clienttypes.Height         `json:"height"`
	DelayTimePeriod  uint64                     `json:"delay_time_period"`
	DelayBlockPeriod uint64                     `json:"delay_block_period"`
	Proof            []byte                     `json:"proof"`
	Path             commitmenttypes.MerklePath `json:"path"`
}

// CheckForMisbehaviourMsg is a QueryMsg sent to the contract to check for misbehaviour.
type CheckForMisbehaviourMsg struct {
	ClientMessage ClientMessage `json:"client_message"`
}

// SudoMsg is used to encode messages that are sent to the contract's sudo entry point.
// Exactly one field must be set.
type SudoMsg struct {
	UpdateState                 *UpdateStateMsg                 `json:"update_state,omitempty"`
	UpdateStateOnMisbehaviour   *UpdateStateOnMisbehaviourMsg   `json:"update_state_on_misbehaviour,omitempty"`
	VerifyUpgradeAndUpdateState *VerifyUpgradeAndUpdateStateMsg `json:"verify_upgrade_and_update_state,omitempty"`
}

// UpdateStateMsg is a SudoMsg sent to the contract to verify a client message and update the client state.
type UpdateStateMsg struct {
	ClientMessage ClientMessage `json:"client_message"`
}

// UpdateStateOnMisbehaviourMsg is a SudoMsg sent to the contract to freeze the client on verified misbehaviour.
type UpdateStateOnMisbehaviourMsg struct {
	ClientMessage ClientMessage `json:"client_message"`
}

// VerifyUpgradeAndUpdateStateMsg is a SudoMsg sent to the contract to verify an upgrade and update its state.
type VerifyUpgradeAndUpdateStateMsg struct {
	UpgradeClientState         AnyClientState    `json:"upgrade_client_state"`
	UpgradeConsensusState      AnyConsensusState `json:"upgrade_consensus_state"`
	ProofUpgradeClient         []byte            `json:"proof_upgrade_client"`
	ProofUpgradeConsensusState []byte            `json:"proof_upgrade_consensus_state"`
}

// ContractResult defines the expected interface a Result returned by a contract call is expected to implement.
type ContractResult interface {
	Validate() bool
	Error() string
}

// contractResult is the default implementation of the ContractResult interface and the default return type of any contract call
// that does not require a custom return type.
type contractResult struct {
	IsValid  bool   `json:"is_valid,omitempty"`
	ErrorMsg string `json:"error_msg,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

func (r contractResult) Validate() bool {
	return r.IsValid
}

func (r contractResult) Error() string {
	return r.ErrorMsg
}

// StatusResult is the return type of the status query.
type StatusResult struct {
	contractResult
	Status exported.Status `json:"status"`
}

// LatestHeightResult is the return type of the latest_height query.
type LatestHeightResult struct {
	contractResult
	Height clienttypes.Height `json:"height"`
}

// ExportMetadataResult is the return type of the export_metadata query.
type ExportMetadataResult struct {
	contractResult
	GenesisMetadata []clienttypes.GenesisMetadata `json:"genesis_metadata,omitempty"`
}

// TimestampAtHeightResult is the return type of the timestamp_at_height query.
type TimestampAtHeightResult struct {
	contractResult
	Timestamp uint64 `json:"timestamp"`
}

// CheckForMisbehaviourResult is the return type of the check_for_misbehaviour query.
type CheckForMisbehaviourResult struct {
	contractResult
	FoundMisbehaviour bool `json:"found_misbehaviour"`
}

// UpdateStateResult is the return type of the update_state sudo call. It returns the heights of the stored
// consensus states, which is empty when the update froze the client.
type UpdateStateResult struct {
	contractResult
	Heights []clienttypes.Height `json:"heights"`
}
