package types

import (
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"

	host "github.com/sovereign-ibc/sov-celestia-lc/modules/core/24-host"
)

const (
	// LabelClientType is the metric label for the client type.
	LabelClientType = "client_type"
	// LabelClientID is the metric label for the client identifier.
	LabelClientID = "client_id"
	// LabelUpdateType is the metric label for the kind of update.
	LabelUpdateType = "update_type"
	// LabelMsgType is the metric label for the message that triggered a transition.
	LabelMsgType = "msg_type"
)

// ParseClientIdentifier parses the client type and sequence from the client identifier.
func ParseClientIdentifier(clientID string) (string, uint64, error) {
	idx := strings.LastIndex(clientID, "-")
	if idx <= 0 || idx == len(clientID)-1 {
		return "", 0, errorsmod.Wrapf(host.ErrInvalidID, "invalid client identifier %s", clientID)
	}

	clientType := clientID[:idx]
	sequenceStr := clientID[idx+1:]
	if len(sequenceStr) > 20 {
		return "", 0, errorsmod.Wrapf(host.ErrInvalidID, "client identifier %s has a sequence longer than 20 digits", clientID)
	}

	sequence, err := strconv.ParseUint(sequenceStr, 10, 64)
	if err != nil {
		return "", 0, errorsmod.Wrap(host.ErrInvalidID, err.Error())
	}

	return clientType, sequence, nil
}
