package sovcelestia

import (
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

const (
	// ModuleName is the name of the sov-celestia light client.
	ModuleName = exported.SovCelestia

	// KeyUpgradedClient is the last path segment of the committed upgraded client state.
	KeyUpgradedClient = "upgradedClient"
	// KeyUpgradedConsState is the last path segment of the committed upgraded consensus state.
	KeyUpgradedConsState = "upgradedConsState"

	// commitmentPrefix is the namespace of the IBC module inside the rollup state.
	commitmentPrefix = "sov_ibc/Ibc/"
)

// DefaultCommitmentPrefix returns the prefix under which the rollup commits every IBC path.
// It is built once by the host and handed to NewLightClientModule.
func DefaultCommitmentPrefix() commitmenttypes.MerklePrefix {
	return commitmenttypes.NewMerklePrefix([]byte(commitmentPrefix))
}
