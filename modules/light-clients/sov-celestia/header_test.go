package sovcelestia_test

import (
	"time"

	"github.com/cometbft/cometbft/crypto/tmhash"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	ibctesting "github.com/sovereign-ibc/sov-celestia-lc/testing"
)

func (s *SovCelestiaTestSuite) TestHeaderValidateBasic() {
	var header *sovcelestia.Header

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{"valid header", func() {}, nil},
		{"no DA headers", func() { header.DaHeaders = nil }, clienttypes.ErrInvalidHeader},
		{"DA header without signed header", func() { header.DaHeaders[0].SignedHeader = nil }, clienttypes.ErrInvalidHeader},
		{"DA header without commit", func() { header.DaHeaders[0].SignedHeader.Commit = nil }, clienttypes.ErrInvalidHeader},
		{"DA header without validator set", func() { header.DaHeaders[1].ValidatorSet = nil }, clienttypes.ErrInvalidHeader},
		{"trusted height with a revision", func() { header.TrustedHeight = clienttypes.NewHeight(1, genesisSlot) }, clienttypes.ErrInvalidHeader},
		{"zero trusted height", func() { header.TrustedHeight = clienttypes.ZeroHeight() }, clienttypes.ErrInvalidHeader},
		{"no trusted validators", func() { header.TrustedValidators = nil }, clienttypes.ErrInvalidHeader},
		{"empty serialized proof", func() { header.AggregatedProof.SerializedProof = nil }, sovcelestia.ErrProofVerification},
		{"empty code commitment", func() { header.AggregatedProof.PublicData.CodeCommitment = nil }, sovcelestia.ErrProofVerification},
		{"short initial state root", func() { header.AggregatedProof.PublicData.InitialStateRoot = []byte("root") }, sovcelestia.ErrProofVerification},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			header = s.rollup.CreateHeader(genesisSlot, genesisSlot, 150)
			// the DA header cache is shared, so work on copies of the signed headers
			for i, daHeader := range header.DaHeaders {
				signedHeader := *daHeader.SignedHeader
				header.DaHeaders[i].SignedHeader = &signedHeader
			}

			tc.malleate()

			err := header.ValidateBasic()

			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(sovcelestia.ModuleName, header.ClientType())
				s.Require().Equal(clienttypes.NewSlotHeight(150), header.GetHeight())
				s.Require().Equal(ibctesting.SlotTime(150), header.GetTime())
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestMisbehaviourValidateBasic() {
	var misbehaviour *sovcelestia.Misbehaviour

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{"valid misbehaviour", func() {}, nil},
		{"headers ending at the same slot", func() { misbehaviour.Header2 = s.rollup.CreateHeader(genesisSlot, genesisSlot, 150) }, nil},
		{"nil header 1", func() { misbehaviour.Header1 = nil }, clienttypes.ErrInvalidMisbehaviour},
		{"nil header 2", func() { misbehaviour.Header2 = nil }, clienttypes.ErrInvalidMisbehaviour},
		{"invalid header 1", func() { misbehaviour.Header1.TrustedValidators = nil }, clienttypes.ErrInvalidMisbehaviour},
		{"invalid header 2", func() { misbehaviour.Header2.DaHeaders = nil }, clienttypes.ErrInvalidMisbehaviour},
		{
			"header 1 below header 2",
			func() { misbehaviour.Header1, misbehaviour.Header2 = misbehaviour.Header2, misbehaviour.Header1 },
			clienttypes.ErrInvalidMisbehaviour,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			misbehaviour = sovcelestia.NewMisbehaviour(
				clientID, s.rollup.CreateHeader(genesisSlot, genesisSlot, 150), s.rollup.CreateHeader(genesisSlot, genesisSlot, 140),
			)

			tc.malleate()

			err := misbehaviour.ValidateBasic()

			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(sovcelestia.ModuleName, misbehaviour.ClientType())
				s.Require().Equal(ibctesting.SlotTime(150), misbehaviour.GetTime())
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestConsensusStateValidateBasic() {
	var consensusState *sovcelestia.ConsensusState

	testCases := []struct {
		name     string
		malleate func()
		expPass  bool
	}{
		{"valid consensus state", func() {}, true},
		{"empty root", func() { consensusState.Root = commitmenttypes.MerkleRoot{} }, false},
		{"short root", func() { consensusState.Root = commitmenttypes.NewMerkleRoot([]byte("root")) }, false},
		{"short DA header hash", func() { consensusState.DaHeaderHash = []byte("hash") }, false},
		{"no next validators hash", func() { consensusState.NextValidatorsHash = nil }, false},
		{"invalid next validators hash", func() { consensusState.NextValidatorsHash = []byte("hash") }, false},
		{"zero timestamp", func() { consensusState.Timestamp = time.Time{} }, false},
		{"timestamp at the unix epoch", func() { consensusState.Timestamp = time.Unix(0, 0).UTC() }, false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			consensusState = sovcelestia.NewConsensusState(
				ibctesting.SlotTime(genesisSlot), commitmenttypes.NewMerkleRoot(s.rollup.Root(genesisSlot)),
				tmhash.Sum([]byte("da header")), s.rollup.DA.Vals.Hash(),
			)

			tc.malleate()

			err := consensusState.ValidateBasic()

			if tc.expPass {
				s.Require().NoError(err)
				s.Require().Equal(sovcelestia.ModuleName, consensusState.ClientType())
				s.Require().Equal(uint64(ibctesting.SlotTime(genesisSlot).UnixNano()), consensusState.GetTimestamp())
			} else {
				s.Require().ErrorIs(err, clienttypes.ErrInvalidConsensus)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestFraction() {
	s.Require().NoError(sovcelestia.DefaultTrustLevel.Validate())
	s.Require().NoError(sovcelestia.NewFraction(1, 1).Validate())
	s.Require().NoError(sovcelestia.NewFraction(34, 100).Validate())
	s.Require().Error(sovcelestia.NewFraction(1, 3).Validate())
	s.Require().Error(sovcelestia.NewFraction(33, 99).Validate())
	s.Require().Error(sovcelestia.NewFraction(2, 1).Validate())
	s.Require().Error(sovcelestia.NewFraction(0, 0).Validate())

	s.Require().Equal("2/3", sovcelestia.DefaultTrustLevel.String())
	s.Require().Equal(sovcelestia.DefaultTrustLevel, sovcelestia.NewFractionFromTm(sovcelestia.DefaultTrustLevel.ToTendermint()))

	twoThirds := sovcelestia.DefaultTrustLevel
	s.Require().True(twoThirds.Reached(2, 3))
	s.Require().True(twoThirds.Reached(20, 30))
	s.Require().False(twoThirds.Reached(19, 30))
	s.Require().False(twoThirds.Reached(0, 0))
	// no precision is lost close to the int64 limit
	s.Require().False(twoThirds.Reached(6148914691236517204, 9223372036854775807))
	s.Require().True(twoThirds.Reached(6148914691236517205, 9223372036854775807))
}
