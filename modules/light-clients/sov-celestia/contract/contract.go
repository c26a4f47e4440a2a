package contract

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

// Contract exposes one sov-celestia client to a contract runtime. The runtime calls the
// JSON entry points Instantiate, Sudo and Query; Go hosts may call the typed methods
// directly. Every entry point returns an encoded result, carrying the error message when
// the call failed.
type Contract struct {
	module   sovcelestia.LightClientModule
	clientID string
	logger   log.Logger
}

// NewContract returns the contract of clientID served by module.
func NewContract(module sovcelestia.LightClientModule, clientID string, logger log.Logger) Contract {
	return Contract{
		module:   module,
		clientID: clientID,
		logger:   logger.With("module", "sov-celestia-contract", "client-id", clientID),
	}
}

// ClientID returns the identifier of the client served by the contract.
func (c Contract) ClientID() string {
	return c.clientID
}

// Instantiate creates the client from an InstantiateMessage.
func (c Contract) Instantiate(ctx sdk.Context, msg []byte) ([]byte, error) {
	var payload InstantiateMessage
	if err := json.Unmarshal(msg, &payload); err != nil {
		return c.failure("instantiate", errorsmod.Wrapf(ErrInvalidMessage, "failed to decode instantiate message: %v", err))
	}

	if err := c.InstantiateClient(ctx, payload.ClientState, payload.ConsensusState); err != nil {
		return c.failure("instantiate", err)
	}
	return c.success(contractResult{IsValid: true})
}

// Sudo executes a state changing SudoMsg.
func (c Contract) Sudo(ctx sdk.Context, msg []byte) ([]byte, error) {
	var payload SudoMsg
	if err := decodeMessage(msg, &payload, func() int {
		return countSet(payload.UpdateState != nil, payload.UpdateStateOnMisbehaviour != nil, payload.VerifyUpgradeAndUpdateState != nil)
	}); err != nil {
		return c.failure("sudo", err)
	}

	switch {
	case payload.UpdateState != nil:
		clientMsg, err := decodeClientMessage(payload.UpdateState.ClientMessage)
		if err != nil {
			return c.failure("update_state", err)
		}
		heights, err := c.UpdateState(ctx, clientMsg)
		if err != nil {
			return c.failure("update_state", err)
		}
		return c.success(UpdateStateResult{contractResult: contractResult{IsValid: true}, Heights: heights})

	case payload.UpdateStateOnMisbehaviour != nil:
		clientMsg, err := decodeClientMessage(payload.UpdateStateOnMisbehaviour.ClientMessage)
		if err != nil {
			return c.failure("update_state_on_misbehaviour", err)
		}
		if err := c.UpdateStateOnMisbehaviour(ctx, clientMsg); err != nil {
			return c.failure("update_state_on_misbehaviour", err)
		}
		return c.success(contractResult{IsValid: true})

	default:
		upgrade := payload.VerifyUpgradeAndUpdateState
		if err := c.VerifyUpgradeAndUpdateState(
			ctx, upgrade.UpgradeClientState, upgrade.UpgradeConsensusState,
			upgrade.ProofUpgradeClient, upgrade.ProofUpgradeConsensusState,
		); err != nil {
			return c.failure("verify_upgrade_and_update_state", err)
		}
		return c.success(contractResult{IsValid: true})
	}
}

// Query answers a read only QueryMsg.
func (c Contract) Query(ctx sdk.Context, msg []byte) ([]byte, error) {
	var payload QueryMsg
	if err := decodeMessage(msg, &payload, func() int {
		return countSet(
			payload.Status != nil, payload.LatestHeight != nil, payload.ExportMetadata != nil,
			payload.TimestampAtHeight != nil, payload.VerifyClientMessage != nil, payload.VerifyMembership != nil,
			payload.VerifyNonMembership != nil, payload.CheckForMisbehaviour != nil,
		)
	}); err != nil {
		return c.failure("query", err)
	}

	switch {
	case payload.Status != nil:
		return c.success(StatusResult{contractResult: contractResult{IsValid: true}, Status: c.Status(ctx)})

	case payload.LatestHeight != nil:
		return c.success(LatestHeightResult{contractResult: contractResult{IsValid: true}, Height: c.LatestHeight(ctx)})

	case payload.ExportMetadata != nil:
		return c.success(ExportMetadataResult{contractResult: contractResult{IsValid: true}, GenesisMetadata: c.ExportMetadata(ctx)})

	case payload.TimestampAtHeight != nil:
		timestamp, err := c.module.TimestampAtHeight(ctx, c.clientID, payload.TimestampAtHeight.Height)
		if err != nil {
			return c.failure("timestamp_at_height", err)
		}
		return c.success(TimestampAtHeightResult{contractResult: contractResult{IsValid: true}, Timestamp: timestamp})

	case payload.VerifyClientMessage != nil:
		clientMsg, err := decodeClientMessage(payload.VerifyClientMessage.ClientMessage)
		if err != nil {
			return c.failure("verify_client_message", err)
		}
		if err := c.module.VerifyClientMessage(ctx, c.clientID, clientMsg); err != nil {
			return c.failure("verify_client_message", err)
		}
		return c.success(contractResult{IsValid: true})

	case payload.VerifyMembership != nil:
		m := payload.VerifyMembership
		if err := c.VerifyMembership(ctx, m.Height, m.DelayTimePeriod, m.DelayBlockPeriod, m.Proof, m.Path, m.Value); err != nil {
			return c.failure("verify_membership", err)
		}
		return c.success(contractResult{IsValid: true})

	case payload.VerifyNonMembership != nil:
		m := payload.VerifyNonMembership
		if err := c.VerifyNonMembership(ctx, m.Height, m.DelayTimePeriod, m.DelayBlockPeriod, m.Proof, m.Path); err != nil {
			return c.failure("verify_non_membership", err)
		}
		return c.success(contractResult{IsValid: true})

	default:
		clientMsg, err := decodeClientMessage(payload.CheckForMisbehaviour.ClientMessage)
		if err != nil {
			return c.failure("check_for_misbehaviour", err)
		}
		found, err := c.CheckForMisbehaviour(ctx, clientMsg)
		if err != nil {
			return c.failure("check_for_misbehaviour", err)
		}
		return c.success(CheckForMisbehaviourResult{contractResult: contractResult{IsValid: true}, FoundMisbehaviour: found})
	}
}

// InstantiateClient creates the client from its initial client and consensus states. Only
// sov-celestia variants are accepted.
func (c Contract) InstantiateClient(ctx sdk.Context, clientState AnyClientState, consensusState AnyConsensusState) error {
	cs, err := clientState.Unpack()
	if err != nil {
		return err
	}
	consState, err := consensusState.Unpack()
	if err != nil {
		return err
	}

	return c.module.Initialize(ctx, c.clientID, sovcelestia.MarshalClientState(cs), sovcelestia.MarshalConsensusState(consState))
}

// UpdateState verifies clientMsg and applies it: the client is frozen when the message
// proves misbehaviour, otherwise the new consensus state is stored.
func (c Contract) UpdateState(ctx sdk.Context, clientMsg exported.ClientMessage) ([]clienttypes.Height, error) {
	heights, err := c.module.UpdateClient(ctx, c.clientID, clientMsg)
	if err != nil {
		return nil, err
	}

	updated := make([]clienttypes.Height, 0, len(heights))
	for _, height := range heights {
		updated = append(updated, toHeight(height))
	}
	return updated, nil
}

// UpdateStateOnMisbehaviour freezes the client when clientMsg is verified misbehaviour.
func (c Contract) UpdateStateOnMisbehaviour(ctx sdk.Context, clientMsg exported.ClientMessage) error {
	found, err := c.module.SubmitMisbehaviour(ctx, c.clientID, clientMsg)
	if err != nil {
		return err
	}
	if !found {
		return errorsmod.Wrapf(ErrNoMisbehaviour, "client %s", c.clientID)
	}
	return nil
}

// CheckForMisbehaviour verifies clientMsg and reports whether it proves misbehaviour.
func (c Contract) CheckForMisbehaviour(ctx sdk.Context, clientMsg exported.ClientMessage) (bool, error) {
	return c.module.VerifyAndCheckForMisbehaviour(ctx, c.clientID, clientMsg)
}

// VerifyUpgradeAndUpdateState upgrades the client to the proven upgraded states.
func (c Contract) VerifyUpgradeAndUpdateState(
	ctx sdk.Context, upgradedClient AnyClientState, upgradedConsState AnyConsensusState,
	proofUpgradeClient, proofUpgradeConsState []byte,
) error {
	cs, err := upgradedClient.Unpack()
	if err != nil {
		return err
	}
	consState, err := upgradedConsState.Unpack()
	if err != nil {
		return err
	}

	return c.module.VerifyUpgradeAndUpdateState(
		ctx, c.clientID, sovcelestia.MarshalClientState(cs), sovcelestia.MarshalConsensusState(consState),
		proofUpgradeClient, proofUpgradeConsState,
	)
}

// VerifyMembership verifies that value is committed at path in the rollup state at height.
func (c Contract) VerifyMembership(
	ctx sdk.Context, height clienttypes.Height, delayTimePeriod, delayBlockPeriod uint64,
	proof []byte, path exported.Path, value []byte,
) error {
	return c.module.VerifyMembership(ctx, c.clientID, height, delayTimePeriod, delayBlockPeriod, proof, path, value)
}

// VerifyNonMembership verifies that nothing is committed at path in the rollup state at height.
func (c Contract) VerifyNonMembership(
	ctx sdk.Context, height clienttypes.Height, delayTimePeriod, delayBlockPeriod uint64,
	proof []byte, path exported.Path,
) error {
	return c.module.VerifyNonMembership(ctx, c.clientID, height, delayTimePeriod, delayBlockPeriod, proof, path)
}

// Status returns the status of the client.
func (c Contract) Status(ctx sdk.Context) exported.Status {
	return c.module.Status(ctx, c.clientID)
}

// LatestHeight returns the latest height of the client, zero when it does not exist.
func (c Contract) LatestHeight(ctx sdk.Context) clienttypes.Height {
	return toHeight(c.module.LatestHeight(ctx, c.clientID))
}

// ExportMetadata returns the consensus metadata of the client.
func (c Contract) ExportMetadata(ctx sdk.Context) []clienttypes.GenesisMetadata {
	exportedMetadata := c.module.ExportMetadata(ctx, c.clientID)
	metadata := make([]clienttypes.GenesisMetadata, 0, len(exportedMetadata))
	for _, m := range exportedMetadata {
		metadata = append(metadata, clienttypes.NewGenesisMetadata(m.GetKey(), m.GetValue()))
	}
	return metadata
}

func (c Contract) success(result any) ([]byte, error) {
	bz, err := json.Marshal(result)
	if err != nil {
		return nil, errorsmod.Wrap(ErrUnableToMarshal, err.Error())
	}
	return bz, nil
}

// failure encodes err as the result of a failed call. The error is returned as well so Go
// hosts can match it.
func (c Contract) failure(entryPoint string, err error) ([]byte, error) {
	c.logger.Debug("contract call failed", "entry-point", entryPoint, "error", err)

	bz, marshalErr := json.Marshal(contractResult{ErrorMsg: err.Error()})
	if marshalErr != nil {
		return nil, errorsmod.Wrap(ErrUnableToMarshal, marshalErr.Error())
	}
	return bz, err
}

// decodeMessage decodes msg into payload. The set callback counts the variants set after
// decoding and exactly one is allowed.
func decodeMessage(msg []byte, payload any, set func() int) error {
	if err := json.Unmarshal(msg, payload); err != nil {
		return errorsmod.Wrapf(ErrInvalidMessage, "failed to decode message: %v", err)
	}
	if n := set(); n != 1 {
		return errorsmod.Wrapf(ErrInvalidMessage, "expected exactly one message variant, got %d", n)
	}
	return nil
}

func decodeClientMessage(msg ClientMessage) (exported.ClientMessage, error) {
	clientMsg, err := sovcelestia.UnmarshalClientMessage(msg.Data)
	if err != nil {
		return nil, errorsmod.Wrapf(err, "failed to decode %s client message", sovcelestia.ModuleName)
	}
	return clientMsg, nil
}

func countSet(variants ...bool) int {
	n := 0
	for _, set := range variants {
		if set {
			n++
		}
	}
	return n
}

func toHeight(height exported.Height) clienttypes.Height {
	return clienttypes.NewHeight(height.GetRevisionNumber(), height.GetRevisionHeight())
}
