package sovcelestia_test

import (
	cmttypes "github.com/cometbft/cometbft/types"

	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	ibctesting "github.com/sovereign-ibc/sov-celestia-lc/testing"
)

func (s *SovCelestiaTestSuite) TestVerifyTrustLevel() {
	da := ibctesting.NewDAChain(s.T(), 3)
	vals := da.Vals.Validators

	var (
		commit     *cmttypes.Commit
		trustLevel sovcelestia.Fraction
	)

	signedBy := func(signers ...*cmttypes.Validator) *cmttypes.Commit {
		header := da.CreateDAHeader(10, ibctesting.SlotTime(10), da.Vals, da.Vals, da.SignersOf(signers...))
		return header.SignedHeader.Commit
	}

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success: every validator signed",
			func() {},
			nil,
		},
		{
			"success: exactly two thirds signed",
			func() {
				commit = signedBy(vals[0], vals[1])
			},
			nil,
		},
		{
			"success: one third signed with a trust level of one third",
			func() {
				commit = signedBy(vals[2])
				trustLevel = sovcelestia.NewFraction(1, 3)
			},
			nil,
		},
		{
			"failure: one third signed",
			func() {
				commit = signedBy(vals[0])
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: two thirds signed with a trust level of one",
			func() {
				commit = signedBy(vals[0], vals[1])
				trustLevel = sovcelestia.NewFraction(1, 1)
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: no validator signed",
			func() {
				commit = signedBy()
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: a repeated signature is counted once",
			func() {
				commit = signedBy(vals[0])
				for i, sig := range commit.Signatures {
					if sig.BlockIDFlag == cmttypes.BlockIDFlagCommit {
						commit.Signatures[(i+1)%len(commit.Signatures)] = sig
						break
					}
				}
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: invalid signature",
			func() {
				signature := make([]byte, len(commit.Signatures[0].Signature))
				copy(signature, commit.Signatures[0].Signature)
				signature[0] ^= 0xff
				commit.Signatures[0].Signature = signature
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: signatures of validators outside the trusted set are ignored",
			func() {
				other := ibctesting.NewDAChain(s.T(), 3)
				header := other.CreateDAHeader(10, ibctesting.SlotTime(10), other.Vals, other.Vals, other.Signers)
				commit = header.SignedHeader.Commit
			},
			sovcelestia.ErrHeaderVerification,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			commit = signedBy(vals...)
			trustLevel = sovcelestia.DefaultTrustLevel

			tc.malleate()

			err := sovcelestia.VerifyTrustLevel(da.ChainID, da.Vals, commit, trustLevel)

			if tc.expErr == nil {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestVerifyDAHeadersValidatorSetChange() {
	var (
		candidateVals *cmttypes.ValidatorSet
		signers       map[string]cmttypes.PrivValidator
	)

	// newcomer joins the DA validator set with more voting power than all trusted validators together
	newcomerVals, newcomerSigners := ibctesting.GenerateValidators(s.T(), 1, 100)
	newcomer := newcomerVals.Validators[0]

	withNewcomer := func(signing ...*cmttypes.Validator) map[string]cmttypes.PrivValidator {
		signers := s.rollup.DA.SignersOf(signing...)
		signers[newcomer.Address.String()] = newcomerSigners[newcomer.Address.String()]
		return signers
	}

	testCases := []struct {
		name     string
		malleate func(trusted []*cmttypes.Validator)
		expErr   error
	}{
		{
			"success: trusted and candidate validators signed",
			func(trusted []*cmttypes.Validator) {
				signers = withNewcomer(trusted[0], trusted[1], trusted[2])
			},
			nil,
		},
		{
			"failure: candidate validators signed without the trust level of the trusted validators",
			func(trusted []*cmttypes.Validator) {
				signers = withNewcomer(trusted[0], trusted[1])
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: trusted validators signed without two thirds of the candidate validators",
			func(trusted []*cmttypes.Validator) {
				signers = s.rollup.DA.SignersOf(trusted[0], trusted[1], trusted[2])
			},
			sovcelestia.ErrHeaderVerification,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.createClient()

			trusted := s.rollup.DA.SortedValidators()
			validators := []*cmttypes.Validator{newcomer.Copy()}
			for _, val := range trusted {
				validators = append(validators, val.Copy())
			}
			candidateVals = cmttypes.NewValidatorSet(validators)

			tc.malleate(trusted)

			daHeader := s.rollup.DA.CreateDAHeader(110, ibctesting.SlotTime(110), candidateVals, candidateVals, signers)

			clientState := s.clientState(clientID)
			err := clientState.VerifyDAHeaders(
				s.clientStore(clientID), genesisHeight, s.rollup.DA.Vals, []sovcelestia.DAHeader{daHeader}, s.now,
			)

			if tc.expErr == nil {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestVerifyDAHeadersChain() {
	s.createClient()
	clientState := s.clientState(clientID)
	da := s.rollup.DA

	newcomerVals, newcomerSigners := ibctesting.GenerateValidators(s.T(), 1, 100)
	signers := da.SignersOf(da.Vals.Validators...)
	for address, signer := range newcomerSigners {
		signers[address] = signer
	}

	validators := []*cmttypes.Validator{newcomerVals.Validators[0].Copy()}
	for _, val := range da.Vals.Validators {
		validators = append(validators, val.Copy())
	}
	joined := cmttypes.NewValidatorSet(validators)

	// the newcomer joins at slot 110 and is the only validator left at slot 120
	joinHeader := da.CreateDAHeader(110, ibctesting.SlotTime(110), joined, newcomerVals, signers)
	soloHeader := da.CreateDAHeader(120, ibctesting.SlotTime(120), newcomerVals, newcomerVals, newcomerSigners)

	// the validators trusted at the genesis slot did not sign slot 120
	err := clientState.VerifyDAHeaders(s.clientStore(clientID), genesisHeight, da.Vals, []sovcelestia.DAHeader{soloHeader}, s.now)
	s.Require().ErrorIs(err, sovcelestia.ErrHeaderVerification)

	// each verified header is trusted for the next one
	err = clientState.VerifyDAHeaders(s.clientStore(clientID), genesisHeight, da.Vals, []sovcelestia.DAHeader{joinHeader, soloHeader}, s.now)
	s.Require().NoError(err)
}

func (s *SovCelestiaTestSuite) TestVerifyDAHeadersTrustLevelThreshold() {
	var (
		trustLevel sovcelestia.Fraction
		signers    map[string]cmttypes.PrivValidator
	)

	testCases := []struct {
		name     string
		malleate func(vals []*cmttypes.Validator)
		expErr   error
	}{
		{
			"success: exactly half signed with a trust level of one half",
			func(vals []*cmttypes.Validator) {
				trustLevel = sovcelestia.NewFraction(1, 2)
				signers = s.rollup.DA.SignersOf(vals[0], vals[1])
			},
			nil,
		},
		{
			"success: three quarters signed with the default trust level",
			func(vals []*cmttypes.Validator) {
				signers = s.rollup.DA.SignersOf(vals[0], vals[1], vals[2])
			},
			nil,
		},
		{
			"failure: a quarter signed with a trust level of one half",
			func(vals []*cmttypes.Validator) {
				trustLevel = sovcelestia.NewFraction(1, 2)
				signers = s.rollup.DA.SignersOf(vals[0])
			},
			sovcelestia.ErrHeaderVerification,
		},
		{
			"failure: half signed with the default trust level",
			func(vals []*cmttypes.Validator) {
				signers = s.rollup.DA.SignersOf(vals[0], vals[1])
			},
			sovcelestia.ErrHeaderVerification,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.createClient()

			trustLevel = sovcelestia.DefaultTrustLevel
			tc.malleate(s.rollup.DA.SortedValidators())

			da := s.rollup.DA
			daHeader := da.CreateDAHeader(110, ibctesting.SlotTime(110), da.Vals, da.Vals, signers)

			clientState := s.clientState(clientID)
			clientState.TrustLevel = trustLevel
			err := clientState.VerifyDAHeaders(
				s.clientStore(clientID), genesisHeight, da.Vals, []sovcelestia.DAHeader{daHeader}, s.now,
			)

			if tc.expErr == nil {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}
