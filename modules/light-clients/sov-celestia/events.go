package sovcelestia

import (
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// emitCreateClientEvent emits a create client event
func emitCreateClientEvent(ctx sdk.Context, clientID string, clientState *ClientState) {
	ctx.EventManager().EmitEvents(sdk.Events{
		sdk.NewEvent(
			clienttypes.EventTypeCreateClient,
			sdk.NewAttribute(clienttypes.AttributeKeyClientID, clientID),
			sdk.NewAttribute(clienttypes.AttributeKeyClientType, ModuleName),
			sdk.NewAttribute(clienttypes.AttributeKeyConsensusHeight, clientState.LatestHeight.String()),
		),
		sdk.NewEvent(
			sdk.EventTypeMessage,
			sdk.NewAttribute(sdk.AttributeKeyModule, clienttypes.AttributeValueCategory),
		),
	})
}

// emitUpdateClientEvent emits an update client event
func emitUpdateClientEvent(ctx sdk.Context, clientID string, consensusHeights []exported.Height) {
	heights := make([]string, len(consensusHeights))
	for i, height := range consensusHeights {
		heights[i] = height.String()
	}

	var consensusHeight string
	if len(heights) != 0 {
		consensusHeight = heights[0]
	}

	ctx.EventManager().EmitEvents(sdk.Events{
		sdk.NewEvent(
			clienttypes.EventTypeUpdateClient,
			sdk.NewAttribute(clienttypes.AttributeKeyClientID, clientID),
			sdk.NewAttribute(clienttypes.AttributeKeyClientType, ModuleName),
			sdk.NewAttribute(clienttypes.AttributeKeyConsensusHeight, consensusHeight),
			sdk.NewAttribute(clienttypes.AttributeKeyConsensusHeights, strings.Join(heights, ",")),
		),
		sdk.NewEvent(
			sdk.EventTypeMessage,
			sdk.NewAttribute(sdk.AttributeKeyModule, clienttypes.AttributeValueCategory),
		),
	})
}

// emitSubmitMisbehaviourEvent emits a client misbehaviour event
func emitSubmitMisbehaviourEvent(ctx sdk.Context, clientID string, clientState *ClientState) {
	ctx.EventManager().EmitEvents(sdk.Events{
		sdk.NewEvent(
			clienttypes.EventTypeSubmitMisbehaviour,
			sdk.NewAttribute(clienttypes.AttributeKeyClientID, clientID),
			sdk.NewAttribute(clienttypes.AttributeKeyClientType, ModuleName),
			sdk.NewAttribute(clienttypes.AttributeKeyFrozenHeight, clientState.FrozenHeight.String()),
		),
		sdk.NewEvent(
			sdk.EventTypeMessage,
			sdk.NewAttribute(sdk.AttributeKeyModule, clienttypes.AttributeValueCategory),
		),
	})
}

// emitUpgradeClientEvent emits an upgrade client event
func emitUpgradeClientEvent(ctx sdk.Context, clientID string, latestHeight exported.Height) {
	ctx.EventManager().EmitEvents(sdk.Events{
		sdk.NewEvent(
			clienttypes.EventTypeUpgradeClient,
			sdk.NewAttribute(clienttypes.AttributeKeyClientID, clientID),
			sdk.NewAttribute(clienttypes.AttributeKeyClientType, ModuleName),
			sdk.NewAttribute(clienttypes.AttributeKeyConsensusHeight, latestHeight.String()),
		),
		sdk.NewEvent(
			sdk.EventTypeMessage,
			sdk.NewAttribute(sdk.AttributeKeyModule, clienttypes.AttributeValueCategory),
		),
	})
}

// emitRecoverClientEvent emits a recover client event
func emitRecoverClientEvent(ctx sdk.Context, clientID, substituteClientID string) {
	ctx.EventManager().EmitEvents(sdk.Events{
		sdk.NewEvent(
			clienttypes.EventTypeRecoverClient,
			sdk.NewAttribute(clienttypes.AttributeKeySubjectClientID, clientID),
			sdk.NewAttribute(clienttypes.AttributeKeySubstituteClientID, substituteClientID),
			sdk.NewAttribute(clienttypes.AttributeKeyClientType, ModuleName),
		),
		sdk.NewEvent(
			sdk.EventTypeMessage,
			sdk.NewAttribute(sdk.AttributeKeyModule, clienttypes.AttributeValueCategory),
		),
	})
}
