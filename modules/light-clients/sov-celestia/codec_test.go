package sovcelestia_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

func (s *SovCelestiaTestSuite) TestClientStateCodec() {
	clientState := s.rollup.ClientState(genesisSlot)
	clientState.FrozenHeight = clienttypes.NewSlotHeight(120)

	decoded, err := sovcelestia.UnmarshalClientState(sovcelestia.MarshalClientState(clientState))
	s.Require().NoError(err)
	s.Require().Equal(clientState, decoded)

	// unknown fields are skipped
	bz := protowire.AppendTag(sovcelestia.MarshalClientState(clientState), 99, protowire.VarintType)
	bz = protowire.AppendVarint(bz, 7)
	decoded, err = sovcelestia.UnmarshalClientState(bz)
	s.Require().NoError(err)
	s.Require().Equal(clientState, decoded)

	// a known field with the wrong wire type is rejected
	bz = protowire.AppendTag(nil, 1, protowire.VarintType)
	bz = protowire.AppendVarint(bz, 7)
	_, err = sovcelestia.UnmarshalClientState(bz)
	s.Require().ErrorIs(err, sovcelestia.ErrDecode)

	_, err = sovcelestia.UnmarshalClientState([]byte{0xff})
	s.Require().ErrorIs(err, sovcelestia.ErrDecode)
}

func (s *SovCelestiaTestSuite) TestConsensusStateCodec() {
	consensusState := s.rollup.ConsensusState(genesisSlot)

	decoded, err := sovcelestia.UnmarshalConsensusState(sovcelestia.MarshalConsensusState(consensusState))
	s.Require().NoError(err)
	s.Require().Equal(consensusState, decoded)
	s.Require().Equal(consensusState.GetTimestamp(), decoded.GetTimestamp())

	_, err = sovcelestia.UnmarshalConsensusState([]byte{0x0a, 0x05, 0x01})
	s.Require().ErrorIs(err, sovcelestia.ErrDecode)
}

func (s *SovCelestiaTestSuite) TestHeaderCodec() {
	header := s.rollup.CreateHeader(genesisSlot, genesisSlot, 150)

	bz, err := sovcelestia.MarshalHeader(header)
	s.Require().NoError(err)

	decoded, err := sovcelestia.UnmarshalHeader(bz)
	s.Require().NoError(err)
	s.Require().Equal(header.TrustedHeight, decoded.TrustedHeight)
	s.Require().Equal(header.TrustedValidators.Hash(), decoded.TrustedValidators.Hash())
	s.Require().Equal(header.AggregatedProof, decoded.AggregatedProof)
	s.Require().Len(decoded.DaHeaders, len(header.DaHeaders))
	for i, daHeader := range header.DaHeaders {
		s.Require().Equal(daHeader.Hash(), decoded.DaHeaders[i].Hash())
		s.Require().Equal(daHeader.ValidatorSet.Hash(), decoded.DaHeaders[i].ValidatorSet.Hash())
		s.Require().Equal(daHeader.SignedHeader.Commit.Hash(), decoded.DaHeaders[i].SignedHeader.Commit.Hash())
	}

	// a decoded header verifies like the original
	s.createClient()
	s.Require().NoError(s.module.VerifyClientMessage(s.ctx, clientID, decoded))

	header.TrustedValidators = nil
	_, err = sovcelestia.MarshalHeader(header)
	s.Require().ErrorIs(err, clienttypes.ErrInvalidHeader)
}

func (s *SovCelestiaTestSuite) TestClientMessageCodec() {
	header := s.rollup.CreateHeader(genesisSlot, genesisSlot, 150)
	misbehaviour := sovcelestia.NewMisbehaviour(clientID, header, s.rollup.CreateHeader(genesisSlot, genesisSlot, 140))

	testCases := []struct {
		name      string
		clientMsg exported.ClientMessage
	}{
		{"header", header},
		{"misbehaviour", misbehaviour},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			bz, err := sovcelestia.MarshalClientMessage(tc.clientMsg)
			s.Require().NoError(err)

			decoded, err := sovcelestia.UnmarshalClientMessage(bz)
			s.Require().NoError(err)
			s.Require().IsType(tc.clientMsg, decoded)
			s.Require().NoError(decoded.ValidateBasic())
		})
	}

	decoded, err := sovcelestia.UnmarshalClientMessage(mustMarshalClientMessage(s, misbehaviour))
	s.Require().NoError(err)
	s.Require().Equal(clientID, decoded.(*sovcelestia.Misbehaviour).ClientId)

	_, err = sovcelestia.MarshalClientMessage(&unknownClientMessage{})
	s.Require().ErrorIs(err, clienttypes.ErrInvalidClientType)

	// an envelope carries exactly one variant
	_, err = sovcelestia.UnmarshalClientMessage(nil)
	s.Require().ErrorIs(err, sovcelestia.ErrDecode)

	headerBz := mustMarshalClientMessage(s, header)
	_, err = sovcelestia.UnmarshalClientMessage(append(headerBz, mustMarshalClientMessage(s, misbehaviour)...))
	s.Require().ErrorIs(err, sovcelestia.ErrDecode)

	_, err = sovcelestia.UnmarshalClientMessage(headerBz[:len(headerBz)-1])
	s.Require().ErrorIs(err, sovcelestia.ErrDecode)
}

func (s *SovCelestiaTestSuite) TestAggregatedProofCodec() {
	proof := s.rollup.CreateHeader(genesisSlot, genesisSlot, 150).AggregatedProof

	decoded, err := sovcelestia.UnmarshalAggregatedProof(sovcelestia.MarshalAggregatedProof(proof))
	s.Require().NoError(err)
	s.Require().Equal(proof, decoded)

	publicData, err := sovcelestia.UnmarshalAggregatedProofPublicData(sovcelestia.MarshalAggregatedProofPublicData(proof.PublicData))
	s.Require().NoError(err)
	s.Require().Equal(proof.PublicData.Digest(), publicData.Digest())
}

func mustMarshalClientMessage(s *SovCelestiaTestSuite, clientMsg exported.ClientMessage) []byte {
	bz, err := sovcelestia.MarshalClientMessage(clientMsg)
	s.Require().NoError(err)
	return bz
}

// protoField is a field declared in the wire schema.
type protoField struct {
	typ string
}

var (
	protoMessageRe = regexp.MustCompile(`^message (\w+) \{`)
	protoFieldRe   = regexp.MustCompile(`^\s+(?:repeated\s+)?([\w.]+)\s+\w+\s*=\s*(\d+);`)
)

// loadProtoSchema reads the field numbers and types of every message of the wire schema.
func loadProtoSchema(s *SovCelestiaTestSuite) map[string]map[protowire.Number]protoField {
	bz, err := os.ReadFile(filepath.Join("..", "..", "..", "proto", "sovereign", "lightclients", "sovcelestia", "v1", "sovcelestia.proto"))
	s.Require().NoError(err)

	schema := make(map[string]map[protowire.Number]protoField)
	var current string
	for _, line := range strings.Split(string(bz), "\n") {
		if match := protoMessageRe.FindStringSubmatch(line); match != nil {
			current = match[1]
			schema[current] = make(map[protowire.Number]protoField)
			continue
		}
		if line == "}" {
			current = ""
			continue
		}

		match := protoFieldRe.FindStringSubmatch(line)
		if current == "" || match == nil {
			continue
		}
		num, err := strconv.ParseUint(match[2], 10, 32)
		s.Require().NoError(err)
		schema[current][protowire.Number(num)] = protoField{typ: match[1]}
	}
	return schema
}

// requireSchema checks that every field of bz is declared by msgName with a matching wire
// type, descending into the messages the schema defines.
func requireSchema(s *SovCelestiaTestSuite, schema map[string]map[protowire.Number]protoField, msgName string, bz []byte) {
	fields, ok := schema[msgName]
	s.Require().True(ok, "message %s is not declared", msgName)

	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		s.Require().GreaterOrEqual(n, 0)
		bz = bz[n:]

		field, ok := fields[num]
		s.Require().True(ok, "%s has no field %d", msgName, num)

		if field.typ == "uint64" {
			s.Require().Equal(protowire.VarintType, typ, "%s.%d", msgName, num)
			_, n = protowire.ConsumeVarint(bz)
			s.Require().GreaterOrEqual(n, 0)
			bz = bz[n:]
			continue
		}

		s.Require().Equal(protowire.BytesType, typ, "%s.%d", msgName, num)
		value, n := protowire.ConsumeBytes(bz)
		s.Require().GreaterOrEqual(n, 0)
		bz = bz[n:]

		if _, local := schema[field.typ]; local {
			requireSchema(s, schema, field.typ, value)
		}
	}
}

func (s *SovCelestiaTestSuite) TestCodecMatchesProtoSchema() {
	schema := loadProtoSchema(s)
	s.Require().Len(schema["ClientState"], 11)
	s.Require().Len(schema["ClientMessage"], 2)

	clientState := s.rollup.ClientState(genesisSlot)
	clientState.FrozenHeight = clienttypes.NewSlotHeight(120)
	clientState.UpgradePath = []string{"upgrade", "upgradedIBCState"}
	requireSchema(s, schema, "ClientState", sovcelestia.MarshalClientState(clientState))
	requireSchema(s, schema, "ConsensusState", sovcelestia.MarshalConsensusState(s.rollup.ConsensusState(genesisSlot)))

	header := s.rollup.CreateHeader(genesisSlot, genesisSlot, 150)
	misbehaviour := sovcelestia.NewMisbehaviour(clientID, header, s.rollup.CreateHeader(genesisSlot, genesisSlot, 140))

	headerBz, err := sovcelestia.MarshalHeader(header)
	s.Require().NoError(err)
	requireSchema(s, schema, "Header", headerBz)

	misbehaviourBz, err := sovcelestia.MarshalMisbehaviour(misbehaviour)
	s.Require().NoError(err)
	requireSchema(s, schema, "Misbehaviour", misbehaviourBz)

	requireSchema(s, schema, "ClientMessage", mustMarshalClientMessage(s, header))
	requireSchema(s, schema, "ClientMessage", mustMarshalClientMessage(s, misbehaviour))
}
