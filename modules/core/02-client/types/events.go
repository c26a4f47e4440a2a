package types

import (
	"fmt"

	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// IBC client events
const (
	AttributeKeyClientID           = "client_id"
	AttributeKeySubjectClientID    = "subject_client_id"
	AttributeKeySubstituteClientID = "substitute_client_id"
	AttributeKeyClientType         = "client_type"
	AttributeKeyConsensusHeight    = "consensus_height"
	AttributeKeyConsensusHeights   = "consensus_heights"
	AttributeKeyFrozenHeight       = "frozen_height"
)

// IBC client events vars
var (
	EventTypeCreateClient       = "create_client"
	EventTypeUpdateClient       = "update_client"
	EventTypeUpgradeClient      = "upgrade_client"
	EventTypeSubmitMisbehaviour = "client_misbehaviour"
	EventTypeRecoverClient      = "recover_client"

	AttributeValueCategory = fmt.Sprintf("%s_%s", exported.ModuleName, SubModuleName)
)
