package sovcelestia

import (
	"time"

	cmttypes "github.com/cometbft/cometbft/types"

	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

var _ exported.ClientMessage = (*Header)(nil)

// DAHeader is a signed Celestia header together with the validator set that signed it.
type DAHeader struct {
	SignedHeader *cmttypes.SignedHeader
	ValidatorSet *cmttypes.ValidatorSet
}

// GetHeight returns the slot of the header as a client height.
func (h DAHeader) GetHeight() clienttypes.Height {
	return clienttypes.NewSlotHeight(uint64(h.SignedHeader.Height))
}

// GetTime returns the time of the header.
func (h DAHeader) GetTime() time.Time {
	return h.SignedHeader.Time
}

// Hash returns the Celestia block hash of the header.
func (h DAHeader) Hash() []byte {
	return h.SignedHeader.Hash()
}

// ValidateBasic checks that the header is signed for the given DA chain and that the
// validator set is the one committed in the header.
func (h DAHeader) ValidateBasic(daChainID string) error {
	if h.SignedHeader == nil || h.SignedHeader.Header == nil || h.SignedHeader.Commit == nil {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, "signed header cannot be nil")
	}
	if h.ValidatorSet == nil {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, "validator set cannot be nil")
	}
	if h.SignedHeader.Height <= 0 {
		return errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "header height must be positive, got %d", h.SignedHeader.Height)
	}
	if err := h.SignedHeader.ValidateBasic(daChainID); err != nil {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, err.Error())
	}
	if err := h.ValidatorSet.ValidateBasic(); err != nil {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, err.Error())
	}
	return nil
}

// Header is a client update: a batch of Celestia headers ordered by height and one
// aggregated proof of the rollup state transition they cover.
type Header struct {
	DaHeaders []DAHeader
	// TrustedHeight is a stored height whose next validator set is TrustedValidators.
	TrustedHeight     clienttypes.Height
	TrustedValidators *cmttypes.ValidatorSet
	AggregatedProof   AggregatedProof
}

// ClientType defines that the Header is a sov-celestia client header.
func (Header) ClientType() string {
	return ModuleName
}

// GetHeight returns the height the client advances to: the final slot of the proof.
func (h Header) GetHeight() clienttypes.Height {
	return h.AggregatedProof.PublicData.FinalHeight()
}

// GetTime returns the time of the last DA header of the batch.
func (h Header) GetTime() time.Time {
	return h.FinalDAHeader().GetTime()
}

// FinalDAHeader returns the last DA header of the batch.
func (h Header) FinalDAHeader() DAHeader {
	return h.DaHeaders[len(h.DaHeaders)-1]
}

// ValidateBasic performs stateless checks on the header. The DA headers themselves are
// checked against the client's DA chain id during verification.
func (h Header) ValidateBasic() error {
	if len(h.DaHeaders) == 0 {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, "header must contain at least one DA header")
	}
	for i, daHeader := range h.DaHeaders {
		if daHeader.SignedHeader == nil || daHeader.SignedHeader.Header == nil || daHeader.SignedHeader.Commit == nil {
			return errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "DA header %d has no signed header", i)
		}
		if daHeader.ValidatorSet == nil {
			return errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "DA header %d has no validator set", i)
		}
	}

	if h.TrustedHeight.RevisionNumber != 0 {
		return errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "trusted height revision must be 0, got %d", h.TrustedHeight.RevisionNumber)
	}
	if h.TrustedHeight.IsZero() {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, "trusted height cannot be zero")
	}
	if h.TrustedValidators == nil {
		return errorsmod.Wrap(clienttypes.ErrInvalidHeader, "trusted validator set cannot be nil")
	}
	if err := h.TrustedValidators.ValidateBasic(); err != nil {
		return errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "trusted validator set is invalid: %v", err)
	}

	return h.AggregatedProof.ValidateBasic()
}
