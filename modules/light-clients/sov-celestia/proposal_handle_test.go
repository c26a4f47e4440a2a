package sovcelestia_test

import (
	"time"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	ibctesting "github.com/sovereign-ibc/sov-celestia-lc/testing"
)

const (
	substituteID   = "sov-celestia-1"
	substituteSlot = 180
)

// initializeClient creates clientID from clientState and the consensus state of its latest slot.
func (s *SovCelestiaTestSuite) initializeClient(clientID string, clientState *sovcelestia.ClientState) {
	consensusState := s.rollup.ConsensusState(clientState.LatestHeight.RevisionHeight)
	err := s.module.Initialize(s.ctx, clientID, sovcelestia.MarshalClientState(clientState), sovcelestia.MarshalConsensusState(consensusState))
	s.Require().NoError(err)
}

func (s *SovCelestiaTestSuite) TestRecoverClient() {
	var (
		subjectClientID    string
		substituteClientID string
		subjectClient      *sovcelestia.ClientState
		substituteClient   *sovcelestia.ClientState
	)

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success: expired subject",
			func() {},
			nil,
		},
		{
			"success: frozen subject is unfrozen",
			func() {
				subjectClient.TrustingPeriod = ibctesting.TrustingPeriod
				s.initializeClient(clientID, subjectClient)

				clientState := s.clientState(clientID)
				clientState.FrozenHeight = clienttypes.NewSlotHeight(genesisSlot)
				sovcelestia.SetClientState(s.clientStore(clientID), clientState)
			},
			nil,
		},
		{
			"failure: subject is active",
			func() {
				subjectClient.TrustingPeriod = ibctesting.TrustingPeriod
			},
			clienttypes.ErrInvalidSubstitute,
		},
		{
			"failure: substitute is frozen",
			func() {
				s.initializeClient(substituteID, substituteClient)

				clientState := s.clientState(substituteID)
				clientState.FrozenHeight = clienttypes.NewSlotHeight(substituteSlot)
				sovcelestia.SetClientState(s.clientStore(substituteID), clientState)
			},
			clienttypes.ErrClientNotActive,
		},
		{
			"failure: substitute parameters do not match",
			func() {
				substituteClient.UnbondingPeriod = ibctesting.UnbondingPeriod + time.Hour
			},
			clienttypes.ErrInvalidSubstitute,
		},
		{
			"failure: substitute is not ahead of the subject",
			func() {
				substituteClient = s.rollup.ClientState(genesisSlot - 10)
			},
			clienttypes.ErrInvalidSubstitute,
		},
		{
			"failure: subject and substitute are the same client",
			func() {
				substituteClientID = subjectClientID
			},
			clienttypes.ErrInvalidSubstitute,
		},
		{
			"failure: substitute is of another client type",
			func() {
				substituteClientID = "07-tendermint-0"
			},
			clienttypes.ErrInvalidClientType,
		},
		{
			"failure: substitute not found",
			func() {
				substituteClientID = "sov-celestia-5"
			},
			clienttypes.ErrClientNotFound,
		},
		{
			"failure: subject not found",
			func() {
				subjectClientID = "sov-celestia-5"
			},
			clienttypes.ErrClientNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()

			subjectClientID = clientID
			substituteClientID = substituteID

			// the subject expires one minute after its only consensus state
			subjectClient = s.rollup.ClientState(genesisSlot)
			subjectClient.TrustingPeriod = time.Minute
			substituteClient = s.rollup.ClientState(substituteSlot)

			tc.malleate()

			// clients already created by malleate are kept as they are
			if _, found := sovcelestia.GetClientState(s.clientStore(clientID)); !found {
				s.initializeClient(clientID, subjectClient)
			}
			if _, found := sovcelestia.GetClientState(s.clientStore(substituteID)); !found {
				s.initializeClient(substituteID, substituteClient)
			}

			err := s.module.RecoverClient(s.ctx, subjectClientID, substituteClientID)

			if tc.expErr == nil {
				s.Require().NoError(err)

				clientState := s.clientState(subjectClientID)
				s.Require().Equal(clienttypes.NewSlotHeight(substituteSlot), clientState.LatestHeight)
				s.Require().True(clientState.FrozenHeight.IsZero())
				s.Require().Equal(substituteClient.TrustingPeriod, clientState.TrustingPeriod)
				s.Require().Equal(exported.Active, s.module.Status(s.ctx, subjectClientID))

				subjectStore := s.clientStore(subjectClientID)
				substituteStore := s.clientStore(substituteClientID)

				consensusState, found := sovcelestia.GetConsensusState(subjectStore, clientState.LatestHeight)
				s.Require().True(found)
				s.Require().Equal(s.rollup.ConsensusState(substituteSlot), consensusState)

				expTime, found := sovcelestia.GetProcessedTime(substituteStore, clientState.LatestHeight)
				s.Require().True(found)
				processedTime, found := sovcelestia.GetProcessedTime(subjectStore, clientState.LatestHeight)
				s.Require().True(found)
				s.Require().Equal(expTime, processedTime)

				expHeight, found := sovcelestia.GetProcessedHeight(substituteStore, clientState.LatestHeight)
				s.Require().True(found)
				processedHeight, found := sovcelestia.GetProcessedHeight(subjectStore, clientState.LatestHeight)
				s.Require().True(found)
				s.Require().Equal(expHeight, processedHeight)

				// the subject keeps its earlier consensus state
				_, found = sovcelestia.GetConsensusState(subjectStore, genesisHeight)
				s.Require().True(found)
			} else {
				s.Require().ErrorIs(err, tc.expErr)

				if clientState, found := sovcelestia.GetClientState(s.clientStore(clientID)); found {
					s.Require().Equal(genesisHeight, clientState.LatestHeight)
				}
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestIsMatchingClientState() {
	subject := s.rollup.ClientState(genesisSlot)
	substitute := s.rollup.ClientState(substituteSlot)

	// chain id, heights, trusting period and genesis root may differ
	substitute.ChainID = upgradedChainID
	substitute.TrustingPeriod = time.Hour
	substitute.FrozenHeight = clienttypes.NewSlotHeight(substituteSlot)
	s.Require().True(sovcelestia.IsMatchingClientState(*subject, *substitute))

	substitute.DaChainID = "celestia"
	s.Require().False(sovcelestia.IsMatchingClientState(*subject, *substitute))

	substitute = s.rollup.ClientState(substituteSlot)
	substitute.CodeCommitment = []byte("another program")
	s.Require().False(sovcelestia.IsMatchingClientState(*subject, *substitute))

	substitute = s.rollup.ClientState(substituteSlot)
	substitute.TrustLevel = sovcelestia.NewFraction(1, 2)
	s.Require().False(sovcelestia.IsMatchingClientState(*subject, *substitute))
}
