package sovcelestia_test

import (
	"context"

	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

func (s *SovCelestiaTestSuite) TestRegisterVerifyingKey() {
	verifier := sovcelestia.NewGroth16Verifier()
	s.Require().False(verifier.HasProgram(s.rollup.Prover.CodeCommitment()))

	codeCommitment, err := verifier.RegisterVerifyingKey(s.rollup.Prover.VerifyingKey())
	s.Require().NoError(err)
	s.Require().Equal(s.rollup.Prover.CodeCommitment(), codeCommitment)
	s.Require().Equal(sovcelestia.CodeCommitment(s.rollup.Prover.VerifyingKey()), codeCommitment)
	s.Require().True(verifier.HasProgram(codeCommitment))

	// registering the same key twice is harmless
	_, err = verifier.RegisterVerifyingKey(s.rollup.Prover.VerifyingKey())
	s.Require().NoError(err)

	_, err = verifier.RegisterVerifyingKey([]byte("not a verifying key"))
	s.Require().ErrorIs(err, sovcelestia.ErrInvalidVerifyingKey)

	_, err = verifier.RegisterVerifyingKey(nil)
	s.Require().ErrorIs(err, sovcelestia.ErrInvalidVerifyingKey)
}

func (s *SovCelestiaTestSuite) TestGroth16Verify() {
	var (
		ctx            context.Context
		codeCommitment []byte
		publicData     sovcelestia.AggregatedProofPublicData
		proof          []byte
	)

	testCases := []struct {
		name     string
		malleate func()
		expPass  bool
	}{
		{
			"success",
			func() {},
			true,
		},
		{
			"unknown code commitment",
			func() {
				codeCommitment = sovcelestia.CodeCommitment([]byte("other program"))
			},
			false,
		},
		{
			"public data differs from the proven one",
			func() {
				publicData.FinalSlotNumber++
			},
			false,
		},
		{
			"malformed proof",
			func() {
				proof = []byte("proof")
			},
			false,
		},
		{
			"context canceled",
			func() {
				cancelCtx, cancel := context.WithCancel(ctx)
				cancel()
				ctx = cancelCtx
			},
			false,
		},
	}

	header := s.rollup.CreateHeader(genesisSlot, genesisSlot, 150)

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			ctx = context.Background()
			codeCommitment = s.rollup.Prover.CodeCommitment()
			publicData = header.AggregatedProof.PublicData
			proof = header.AggregatedProof.SerializedProof

			tc.malleate()

			err := s.rollup.Verifier.Verify(ctx, codeCommitment, publicData, proof)

			if tc.expPass {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, sovcelestia.ErrProofVerification)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestPublicInput() {
	publicData := s.rollup.CreateHeader(genesisSlot, genesisSlot, 150).AggregatedProof.PublicData

	witness, err := sovcelestia.PublicWitness(publicData)
	s.Require().NoError(err)
	s.Require().NotNil(witness)

	other := publicData
	other.InitialSlotNumber++
	s.Require().NotEqual(sovcelestia.PublicInput(publicData), sovcelestia.PublicInput(other))
	s.Require().Equal(sovcelestia.PublicInput(publicData), sovcelestia.PublicInput(publicData))
}
