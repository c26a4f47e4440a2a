package cli

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	errorsmod "cosmossdk.io/errors"

	"github.com/cosmos/cosmos-sdk/version"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

const (
	flagEncoding = "encoding"

	encodingHex    = "hex"
	encodingBase64 = "base64"
)

// GetCmdCodeCommitment defines the command to compute the code commitment of a verifying key.
func GetCmdCodeCommitment() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code-commitment [verifying-key-file]",
		Short: "Compute the code commitment of a serialized Groth16 verifying key",
		Long: `Compute the code commitment of a serialized BN254 Groth16 verifying key. The key is
parsed first, so a file that is not a verifying key with a single public input is rejected.`,
		Example: fmt.Sprintf("%s %s code-commitment ./aggregator.vk", version.AppName, sovcelestia.ModuleName),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verifyingKey, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			codeCommitment, err := sovcelestia.NewGroth16Verifier().RegisterVerifyingKey(verifyingKey)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(codeCommitment))
			return err
		},
	}

	return cmd
}

// GetCmdDecodeMessage defines the command to decode an encoded client message.
func GetCmdDecodeMessage() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decode-message [message]",
		Short:   "Decode a sov-celestia client message and print a summary as JSON",
		Example: fmt.Sprintf("%s %s decode-message 0a8f04... --encoding hex", version.AppName, sovcelestia.ModuleName),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := decodeArg(cmd, args[0])
			if err != nil {
				return err
			}

			clientMsg, err := sovcelestia.UnmarshalClientMessage(bz)
			if err != nil {
				return err
			}

			var summary any
			switch msg := clientMsg.(type) {
			case *sovcelestia.Header:
				summary = newHeaderSummary(msg)
			case *sovcelestia.Misbehaviour:
				summary = misbehaviourSummary{
					Type:     "misbehaviour",
					ClientID: msg.ClientId,
					Header1:  newHeaderSummary(msg.Header1),
					Header2:  newHeaderSummary(msg.Header2),
				}
			}

			return printJSON(cmd, summary)
		},
	}

	cmd.Flags().String(flagEncoding, encodingHex, "encoding of the message argument (hex|base64)")

	return cmd
}

// GetCmdDecodeClientState defines the command to decode an encoded client state.
func GetCmdDecodeClientState() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decode-client-state [client-state]",
		Short:   "Decode a sov-celestia client state and print it as JSON",
		Example: fmt.Sprintf("%s %s decode-client-state 0a0c736f76... --encoding hex", version.AppName, sovcelestia.ModuleName),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := decodeArg(cmd, args[0])
			if err != nil {
				return err
			}

			clientState, err := sovcelestia.UnmarshalClientState(bz)
			if err != nil {
				return err
			}
			if err := clientState.Validate(); err != nil {
				return err
			}

			return printJSON(cmd, clientStateSummary{
				ChainID:          clientState.ChainID,
				DaChainID:        clientState.DaChainID,
				TrustLevel:       clientState.TrustLevel.String(),
				TrustingPeriod:   clientState.TrustingPeriod.String(),
				UnbondingPeriod:  clientState.UnbondingPeriod.String(),
				MaxClockDrift:    clientState.MaxClockDrift.String(),
				LatestHeight:     clientState.LatestHeight,
				FrozenHeight:     clientState.FrozenHeight,
				CodeCommitment:   hex.EncodeToString(clientState.CodeCommitment),
				GenesisStateRoot: hex.EncodeToString(clientState.GenesisStateRoot),
				UpgradePath:      clientState.UpgradePath,
			})
		},
	}

	cmd.Flags().String(flagEncoding, encodingHex, "encoding of the client state argument (hex|base64)")

	return cmd
}

// GetCmdParseHeight defines the command to parse a height string.
func GetCmdParseHeight() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parse-height [height]",
		Short:   "Parse a {revision}-{height} string into a sov-celestia client height",
		Long:    "Parse a {revision}-{height} string. sov-celestia heights are DA slots and always use revision 0.",
		Example: fmt.Sprintf("%s %s parse-height 0-150", version.AppName, sovcelestia.ModuleName),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := clienttypes.ParseHeight(args[0])
			if err != nil {
				return err
			}
			if height.RevisionNumber != 0 {
				return errorsmod.Wrapf(clienttypes.ErrInvalidHeightEncoding, "%s heights must use revision 0, got %d", sovcelestia.ModuleName, height.RevisionNumber)
			}

			return printJSON(cmd, height)
		},
	}

	return cmd
}

type headerSummary struct {
	Type              string             `json:"type"`
	TrustedHeight     clienttypes.Height `json:"trusted_height"`
	InitialSlot       uint64             `json:"initial_slot"`
	FinalSlot         uint64             `json:"final_slot"`
	InitialStateRoot  string             `json:"initial_state_root"`
	FinalStateRoot    string             `json:"final_state_root"`
	CodeCommitment    string             `json:"code_commitment"`
	DAHeaderHeights   []int64            `json:"da_header_heights"`
	FinalDAHeaderHash string             `json:"final_da_header_hash"`
}

func newHeaderSummary(header *sovcelestia.Header) headerSummary {
	publicData := header.AggregatedProof.PublicData

	heights := make([]int64, 0, len(header.DaHeaders))
	for _, daHeader := range header.DaHeaders {
		heights = append(heights, daHeader.SignedHeader.Height)
	}

	return headerSummary{
		Type:              "header",
		TrustedHeight:     header.TrustedHeight,
		InitialSlot:       publicData.InitialSlotNumber,
		FinalSlot:         publicData.FinalSlotNumber,
		InitialStateRoot:  hex.EncodeToString(publicData.InitialStateRoot),
		FinalStateRoot:    hex.EncodeToString(publicData.FinalStateRoot),
		CodeCommitment:    hex.EncodeToString(publicData.CodeCommitment),
		DAHeaderHeights:   heights,
		FinalDAHeaderHash: strings.ToUpper(hex.EncodeToString(header.FinalDAHeader().Hash())),
	}
}

type misbehaviourSummary struct {
	Type     string        `json:"type"`
	ClientID string        `json:"client_id"`
	Header1  headerSummary `json:"header_1"`
	Header2  headerSummary `json:"header_2"`
}

type clientStateSummary struct {
	ChainID          string             `json:"chain_id"`
	DaChainID        string             `json:"da_chain_id"`
	TrustLevel       string             `json:"trust_level"`
	TrustingPeriod   string             `json:"trusting_period"`
	UnbondingPeriod  string             `json:"unbonding_period"`
	MaxClockDrift    string             `json:"max_clock_drift"`
	LatestHeight     clienttypes.Height `json:"latest_height"`
	FrozenHeight     clienttypes.Height `json:"frozen_height"`
	CodeCommitment   string             `json:"code_commitment"`
	GenesisStateRoot string             `json:"genesis_state_root"`
	UpgradePath      []string           `json:"upgrade_path"`
}

// decodeArg decodes a command argument in the encoding selected by the encoding flag.
func decodeArg(cmd *cobra.Command, arg string) ([]byte, error) {
	encoding, err := cmd.Flags().GetString(flagEncoding)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case encodingHex:
		return hex.DecodeString(strings.TrimPrefix(arg, "0x"))
	case encodingBase64:
		return base64.StdEncoding.DecodeString(arg)
	default:
		return nil, fmt.Errorf("unsupported encoding %q, expected %s or %s", encoding, encodingHex, encodingBase64)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return err
}
