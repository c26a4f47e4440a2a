package sovcelestia_test

import (
	"strings"
	"time"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	ibctesting "github.com/sovereign-ibc/sov-celestia-lc/testing"
)

func (s *SovCelestiaTestSuite) TestValidate() {
	var clientState *sovcelestia.ClientState

	testCases := []struct {
		name     string
		malleate func()
		expPass  bool
	}{
		{"valid client", func() {}, true},
		{"valid client without upgrade path", func() { clientState.UpgradePath = nil }, true},
		{"valid client with a trust level of one", func() { clientState.TrustLevel = sovcelestia.NewFraction(1, 1) }, true},
		{"empty chain id", func() { clientState.ChainID = "" }, false},
		{"blank chain id", func() { clientState.ChainID = "  " }, false},
		{"empty DA chain id", func() { clientState.DaChainID = "" }, false},
		{"DA chain id too long", func() { clientState.DaChainID = strings.Repeat("c", 51) }, false},
		{"trust level of one third", func() { clientState.TrustLevel = sovcelestia.NewFraction(1, 3) }, false},
		{"trust level above one", func() { clientState.TrustLevel = sovcelestia.NewFraction(4, 3) }, false},
		{"trust level with zero denominator", func() { clientState.TrustLevel = sovcelestia.NewFraction(1, 0) }, false},
		{"zero trusting period", func() { clientState.TrustingPeriod = 0 }, false},
		{"negative unbonding period", func() { clientState.UnbondingPeriod = -time.Second }, false},
		{"zero max clock drift", func() { clientState.MaxClockDrift = 0 }, false},
		{"trusting period equals unbonding period", func() { clientState.TrustingPeriod = clientState.UnbondingPeriod }, false},
		{"non zero revision number", func() { clientState.LatestHeight = clienttypes.NewHeight(1, genesisSlot) }, false},
		{"zero latest height", func() { clientState.LatestHeight = clienttypes.ZeroHeight() }, false},
		{"empty code commitment", func() { clientState.CodeCommitment = nil }, false},
		{"short genesis state root", func() { clientState.GenesisStateRoot = []byte("root") }, false},
		{"blank upgrade path key", func() { clientState.UpgradePath = []string{"upgrade", " "} }, false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			clientState = s.rollup.ClientState(genesisSlot)

			tc.malleate()

			err := clientState.Validate()

			if tc.expPass {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, sovcelestia.ErrInvalidClientStateParams)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestZeroCustomFields() {
	clientState := s.rollup.ClientState(genesisSlot)
	clientState.FrozenHeight = genesisHeight

	zeroed := clientState.ZeroCustomFields()
	s.Require().Equal(clientState.ChainID, zeroed.ChainID)
	s.Require().Equal(clientState.DaChainID, zeroed.DaChainID)
	s.Require().Equal(clientState.UnbondingPeriod, zeroed.UnbondingPeriod)
	s.Require().Equal(clientState.LatestHeight, zeroed.LatestHeight)
	s.Require().Equal(clientState.CodeCommitment, zeroed.CodeCommitment)
	s.Require().Equal(clientState.GenesisStateRoot, zeroed.GenesisStateRoot)
	s.Require().Equal(clientState.UpgradePath, zeroed.UpgradePath)

	s.Require().Equal(sovcelestia.Fraction{}, zeroed.TrustLevel)
	s.Require().Zero(zeroed.TrustingPeriod)
	s.Require().Zero(zeroed.MaxClockDrift)
	s.Require().True(zeroed.FrozenHeight.IsZero())

	// relayer chosen parameters do not change the committed encoding
	other := s.rollup.ClientState(genesisSlot)
	other.TrustLevel = sovcelestia.NewFraction(1, 2)
	other.TrustingPeriod = time.Hour
	other.MaxClockDrift = time.Minute
	s.Require().Equal(
		sovcelestia.MarshalClientState(clientState.ZeroCustomFields()),
		sovcelestia.MarshalClientState(other.ZeroCustomFields()),
	)
}

func (s *SovCelestiaTestSuite) TestClientStateStatus() {
	s.createClient()
	clientState := s.clientState(clientID)

	s.Require().Equal(sovcelestia.ModuleName, clientState.ClientType())
	s.Require().Equal(ibctesting.RollupChainID, clientState.GetChainID())
	s.Require().False(clientState.IsFrozen())

	s.Require().False(clientState.IsExpired(ibctesting.SlotTime(genesisSlot), s.now))
	s.Require().True(clientState.IsExpired(ibctesting.SlotTime(genesisSlot), ibctesting.SlotTime(genesisSlot).Add(ibctesting.TrustingPeriod)))

	clientState.FrozenHeight = genesisHeight
	s.Require().True(clientState.IsFrozen())
	s.Require().Equal(exported.Frozen, clientState.Status(s.ctx, s.clientStore(clientID)))
}

func (s *SovCelestiaTestSuite) TestClientStateInitialize() {
	clientState := s.rollup.ClientState(genesisSlot)

	err := clientState.Initialize(s.ctx, s.clientStore(clientID), nil)
	s.Require().ErrorIs(err, clienttypes.ErrInvalidConsensus)
	_, found := sovcelestia.GetClientState(s.clientStore(clientID))
	s.Require().False(found)

	s.Require().NoError(clientState.Initialize(s.ctx, s.clientStore(clientID), s.rollup.ConsensusState(genesisSlot)))
	_, found = sovcelestia.GetClientState(s.clientStore(clientID))
	s.Require().True(found)
}
