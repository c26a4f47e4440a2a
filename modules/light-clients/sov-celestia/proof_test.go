package sovcelestia_test

import (
	"time"

	ics23 "github.com/cosmos/ics23/go"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	ibctesting "github.com/sovereign-ibc/sov-celestia-lc/testing"
)

var (
	clientStatePath      = ibctesting.CounterpartyClientStatePath
	packetCommitmentPath = ibctesting.PacketCommitmentPath
	packetReceiptPath    = ibctesting.PacketReceiptPath
)

func (s *SovCelestiaTestSuite) TestVerifyCommitment() {
	var (
		height exported.Height
		key    []byte
		value  *[]byte
		proof  []byte
	)

	committed := func(slot uint64, path string) *[]byte {
		v := s.rollup.State(slot).MerkleProof(ibctesting.IBCKey(path)).Proofs[0].GetExist().Value
		return &v
	}

	testCases := []struct {
		name      string
		malleate  func()
		expResult sovcelestia.VerificationResult
		expErr    error
	}{
		{
			"success: existence",
			func() {},
			sovcelestia.Verified,
			nil,
		},
		{
			"success: absence",
			func() {
				key = []byte(packetReceiptPath)
				value = nil
				proof = s.rollup.ProofBytes(150, packetReceiptPath)
			},
			sovcelestia.VerifiedAbsent,
			nil,
		},
		{
			"success: proof at an older stored height",
			func() {
				height = genesisHeight
				value = committed(100, packetCommitmentPath)
				proof = s.rollup.ProofBytes(100, packetCommitmentPath)
			},
			sovcelestia.Verified,
			nil,
		},
		{
			"failure: wrong value",
			func() {
				wrong := []byte("wrong value")
				value = &wrong
			},
			0,
			sovcelestia.ErrProofMismatch,
		},
		{
			"failure: existence proof when absence is expected",
			func() {
				value = nil
			},
			0,
			sovcelestia.ErrProofMismatch,
		},
		{
			"failure: absence proof when a value is expected",
			func() {
				key = []byte(packetReceiptPath)
				proof = s.rollup.ProofBytes(150, packetReceiptPath)
			},
			0,
			sovcelestia.ErrProofMismatch,
		},
		{
			"failure: proof against another root",
			func() {
				proof = s.rollup.ProofBytes(100, packetCommitmentPath)
			},
			0,
			sovcelestia.ErrProofMismatch,
		},
		{
			"failure: proof of another key",
			func() {
				key = []byte(clientStatePath)
			},
			0,
			sovcelestia.ErrProofMismatch,
		},
		{
			"failure: height above latest height",
			func() {
				height = clienttypes.NewSlotHeight(151)
			},
			0,
			sovcelestia.ErrRootNotFound,
		},
		{
			"failure: no root stored at height",
			func() {
				height = clienttypes.NewSlotHeight(120)
			},
			0,
			sovcelestia.ErrRootNotFound,
		},
		{
			"failure: garbage proof",
			func() {
				proof = []byte("garbage")
			},
			0,
			sovcelestia.ErrMalformedProof,
		},
		{
			"failure: empty proof",
			func() {
				proof = nil
			},
			0,
			sovcelestia.ErrMalformedProof,
		},
		{
			"failure: proof with two commitment proofs",
			func() {
				merkleProof := s.rollup.State(150).MerkleProof(ibctesting.IBCKey(packetCommitmentPath))
				merkleProof.Proofs = append(merkleProof.Proofs, merkleProof.Proofs[0])

				var err error
				proof, err = merkleProof.Marshal()
				s.Require().NoError(err)
			},
			0,
			sovcelestia.ErrMalformedProof,
		},
		{
			"failure: proof with an empty commitment proof",
			func() {
				merkleProof := commitmenttypes.MerkleProof{Proofs: []*ics23.CommitmentProof{{}}}

				var err error
				proof, err = merkleProof.Marshal()
				s.Require().NoError(err)
			},
			0,
			sovcelestia.ErrMalformedProof,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.createClient()
			s.updateClient(100, 150)

			height = clienttypes.NewSlotHeight(150)
			key = []byte(packetCommitmentPath)
			value = committed(150, packetCommitmentPath)
			proof = s.rollup.ProofBytes(150, packetCommitmentPath)

			tc.malleate()

			result, err := s.module.VerifyCommitment(s.ctx, clientID, height, key, value, proof)

			if tc.expErr == nil {
				s.Require().NoError(err)
				s.Require().Equal(tc.expResult, result)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestVerifyMembership() {
	var (
		height           exported.Height
		delayTimePeriod  uint64
		delayBlockPeriod uint64
		path             exported.Path
		value            []byte
		proof            []byte
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
			"success: delay period passed",
			func() {
				delayTimePeriod = uint64(time.Minute.Nanoseconds())
				delayBlockPeriod = 5
				s.ctx = s.ctx.WithBlockTime(s.now.Add(time.Minute)).WithBlockHeight(s.ctx.BlockHeight() + 5)
			},
			nil,
		},
		{
			"failure: delay time period not passed",
			func() {
				delayTimePeriod = uint64(time.Minute.Nanoseconds())
				s.ctx = s.ctx.WithBlockTime(s.now.Add(time.Second))
			},
			sovcelestia.ErrDelayPeriodNotPassed,
		},
		{
			"failure: delay block period not passed",
			func() {
				delayBlockPeriod = 5
				s.ctx = s.ctx.WithBlockHeight(s.ctx.BlockHeight() + 4)
			},
			sovcelestia.ErrDelayPeriodNotPassed,
		},
		{
			"failure: wrong value",
			func() {
				value = []byte("wrong value")
			},
			sovcelestia.ErrProofMismatch,
		},
		{
			"failure: path is not a merkle path",
			func() {
				path = invalidPath{}
			},
			commitmenttypes.ErrInvalidPath,
		},
		{
			"failure: empty merkle path",
			func() {
				path = commitmenttypes.MerklePath{}
			},
			commitmenttypes.ErrInvalidPath,
		},
		{
			"failure: frozen client without a root at the proof height",
			func() {
				clientState := s.clientState(clientID)
				clientState.FrozenHeight = clienttypes.NewSlotHeight(150)
				sovcelestia.SetClientState(s.clientStore(clientID), clientState)
				height = clienttypes.NewSlotHeight(140)
			},
			sovcelestia.ErrRootNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.createClient()
			s.updateClient(100, 150)

			height = clienttypes.NewSlotHeight(150)
			delayTimePeriod, delayBlockPeriod = 0, 0
			path = commitmenttypes.NewMerklePath([]byte(packetCommitmentPath))
			value = s.rollup.State(150).MerkleProof(ibctesting.IBCKey(packetCommitmentPath)).Proofs[0].GetExist().Value
			proof = s.rollup.ProofBytes(150, packetCommitmentPath)

			tc.malleate()

			err := s.module.VerifyMembership(s.ctx, clientID, height, delayTimePeriod, delayBlockPeriod, proof, path, value)

			if tc.expErr == nil {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (s *SovCelestiaTestSuite) TestVerifyNonMembership() {
	var (
		path  exported.Path
		proof []byte
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
			"success: frozen client",
			func() {
				clientState := s.clientState(clientID)
				clientState.FrozenHeight = clienttypes.NewSlotHeight(150)
				sovcelestia.SetClientState(s.clientStore(clientID), clientState)
			},
			nil,
		},
		{
			"failure: key is committed",
			func() {
				path = commitmenttypes.NewMerklePath([]byte(packetCommitmentPath))
				proof = s.rollup.ProofBytes(150, packetCommitmentPath)
			},
			sovcelestia.ErrProofMismatch,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.createClient()
			s.updateClient(100, 150)

			path = commitmenttypes.NewMerklePath([]byte(packetReceiptPath))
			proof = s.rollup.ProofBytes(150, packetReceiptPath)

			tc.malleate()

			err := s.module.VerifyNonMembership(s.ctx, clientID, clienttypes.NewSlotHeight(150), 0, 0, proof, path)

			if tc.expErr == nil {
				s.Require().NoError(err)
			} else {
				s.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

// invalidPath is a path of another commitment scheme.
type invalidPath struct{}

func (invalidPath) Empty() bool { return false }
