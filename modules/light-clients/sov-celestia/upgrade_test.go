package sovcelestia_test

import (
	"time"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	ibctesting "github.com/sovereign-ibc/sov-celestia-lc/testing"
)

const (
	upgradedChainID = "sov-rollup-2"
	upgradeSlot     = 150
	upgradedSlot    = 200
)

// commitUpgrade commits upgradedClient and upgradedConsState as the state of the upgrade slot
// and advances the default client to it. It returns the proofs of both values.
func (s *SovCelestiaTestSuite) commitUpgrade(
	upgradedClient *sovcelestia.ClientState, upgradedConsState *sovcelestia.ConsensusState,
) (clientProof, consStateProof []byte) {
	prefix := sovcelestia.DefaultCommitmentPrefix()
	lastHeight := clienttypes.NewSlotHeight(upgradeSlot)

	clientKey, err := sovcelestia.UpgradeClientKey(prefix, upgradePath, lastHeight)
	s.Require().NoError(err)
	consStateKey, err := sovcelestia.UpgradeConsStateKey(prefix, upgradePath, lastHeight)
	s.Require().NoError(err)

	tree := s.rollup.CommitRawState(upgradeSlot, map[string][]byte{
		string(clientKey):    sovcelestia.MarshalClientState(upgradedClient.ZeroCustomFields()),
		string(consStateKey): sovcelestia.MarshalConsensusState(upgradedConsState),
	})

	s.updateClient(genesisSlot, upgradeSlot)

	clientProof, err = tree.MerkleProofBytes(clientKey)
	s.Require().NoError(err)
	consStateProof, err = tree.MerkleProofBytes(consStateKey)
	s.Require().NoError(err)

	return clientProof, consStateProof
}

// upgradedClientState returns the client the rollup upgrades to at the upgraded slot.
func (s *SovCelestiaTestSuite) upgradedClientState() *sovcelestia.ClientState {
	clientState := s.rollup.ClientState(upgradedSlot)
	clientState.ChainID = upgradedChainID
	clientState.UnbondingPeriod = ibctesting.UnbondingPeriod / 2
	// relayer chosen parameters are ignored by the upgrade
	clientState.TrustLevel = sovcelestia.NewFraction(1, 2)
	clientState.MaxClockDrift = time.Hour
	return clientState
}

func (s *SovCelestiaTestSuite) TestVerifyUpgradeAndUpdateState() {
	var (
		upgradedClient    *sovcelestia.ClientState
		upgradedConsState *sovcelestia.ConsensusState
		clientProof       []byte
		consStateProof    []byte
	)

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success",
			func() {},
			nil,
		},
		{
			"success: frozen client is unfrozen",
			func() {
				clientState := s.clientState(clientID)
				clientState.FrozenHeight = clienttypes.NewSlotHeight(120)
				sovcelestia.SetClientState(s.clientStore(clientID), clientState)
			},
			nil,
		},
		{
			"failure: client has no upgrade path",
			func() {
				clientState := s.clientState(clientID)
				clientState.UpgradePath = nil
				sovcelestia.SetClientState(s.clientStore(clientID), clientState)
			},
			sovcelestia.ErrUpgradeNotPermitted,
		},
		{
			"failure: upgraded height is not greater than the latest height",
			func() {
				upgradedClient.LatestHeight = clienttypes.NewSlotHeight(upgradeSlot)
			},
			sovcelestia.ErrUpgradeNotPermitted,
		},
		{
			"failure: malformed client proof",
			func() {
				clientProof = []byte("garbage")
			},
			sovcelestia.ErrInvalidUpgradeProof,
		},
		{
			"failure: client proof does not prove the upgraded client",
			func() {
				upgradedClient.CodeCommitment = []byte("another program")
			},
			sovcelestia.ErrInvalidUpgradeProof,
		},
		{
			"failure: consensus state proof does not prove the upgraded consensus state",
			func() {
				upgradedConsState.Timestamp = upgradedConsState.Timestamp.Add(time.Second)
			},
			sovcelestia.ErrInvalidUpgradeProof,
		},
		{
			"failure: proofs are swapped",
			func() {
				clientProof, consStateProof = consStateProof, clientProof
			},
			sovcelestia.ErrInvalidUpgradeProof,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.createClient()

			upgradedClient = s.upgradedClientState()
			upgradedConsState = s.rollup.ConsensusState(upgradedSlot)
			clientProof, consStateProof = s.commitUpgrade(upgradedClient, upgradedConsState)

			tc.malleate()

			err := s.module.VerifyUpgradeAndUpdateState(
				s.ctx, clientID,
				sovcelestia.MarshalClientState(upgradedClient), sovcelestia.MarshalConsensusState(upgradedConsState),
				clientProof, consStateProof,
			)

			if tc.expErr == nil {
				s.Require().NoError(err)

				clientState := s.clientState(clientID)
				s.Require().Equal(upgradedChainID, clientState.ChainID)
				s.Require().Equal(clienttypes.NewSlotHeight(upgradedSlot), clientState.LatestHeight)
				s.Require().True(clientState.FrozenHeight.IsZero())
				s.Require().Equal(ibctesting.UnbondingPeriod/2, clientState.UnbondingPeriod)
				// client chosen parameters are kept, the trusting period is scaled to the new unbonding period
				s.Require().Equal(sovcelestia.DefaultTrustLevel, clientState.TrustLevel)
				s.Require().Equal(ibctesting.MaxClockDrift, clientState.MaxClockDrift)
				s.Require().Equal(ibctesting.TrustingPeriod/2, clientState.TrustingPeriod)

				consensusState, found := sovcelestia.GetConsensusState(s.clientStore(clientID), clientState.LatestHeight)
				s.Require().True(found)
				s.Require().Equal(upgradedConsState, consensusState)

				s.Require().Equal(exported.Active, s.module.Status(s.ctx, clientID))
			} else {
				s.Require().ErrorIs(err, tc.expErr)

				clientState := s.clientState(clientID)
				s.Require().Equal(ibctesting.RollupChainID, clientState.ChainID)
				s.Require().Equal(clienttypes.NewSlotHeight(upgradeSlot), clientState.LatestHeight)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestCalculateNewTrustingPeriod() {
	s.Require().Equal(time.Hour, sovcelestia.CalculateNewTrustingPeriod(2*time.Hour, 4*time.Hour, 2*time.Hour))
	s.Require().Equal(2*time.Hour, sovcelestia.CalculateNewTrustingPeriod(2*time.Hour, 4*time.Hour, 4*time.Hour))
	s.Require().Equal(time.Duration(0), sovcelestia.CalculateNewTrustingPeriod(0, 4*time.Hour, 2*time.Hour))
	// 10s * 2 / 3 truncates to whole nanoseconds
	s.Require().Equal(time.Duration(6666666666), sovcelestia.CalculateNewTrustingPeriod(10*time.Second, 3*time.Second, 2*time.Second))
}
