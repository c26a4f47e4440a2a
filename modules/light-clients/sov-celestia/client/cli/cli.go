package cli

import (
	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"

	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

// GetCmd returns the offline inspection commands of the sov-celestia light client.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        sovcelestia.ModuleName,
		Short:                      "sov-celestia light client subcommands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		GetCmdCodeCommitment(),
		GetCmdDecodeMessage(),
		GetCmdDecodeClientState(),
		GetCmdParseHeight(),
	)

	return cmd
}
