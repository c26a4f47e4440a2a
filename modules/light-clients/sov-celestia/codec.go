package sovcelestia

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	cmttypes "github.com/cometbft/cometbft/types"

	errorsmod "cosmossdk.io/errors"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

// The messages below are encoded as declared in
// proto/sovereign/lightclients/sovcelestia/v1/sovcelestia.proto.

// Field numbers of the ClientMessage envelope.
const (
	clientMessageHeaderField       protowire.Number = 1
	clientMessageMisbehaviourField protowire.Number = 2
)

var deterministic = proto.MarshalOptions{Deterministic: true}

// MarshalClientState encodes a client state in protobuf wire format.
func MarshalClientState(cs *ClientState) []byte {
	var bz []byte
	bz = appendString(bz, 1, cs.ChainID)
	bz = appendString(bz, 2, cs.DaChainID)
	bz = appendMessage(bz, 3, marshalFraction(cs.TrustLevel))
	bz = appendMessage(bz, 4, marshalDuration(cs.TrustingPeriod))
	bz = appendMessage(bz, 5, marshalDuration(cs.UnbondingPeriod))
	bz = appendMessage(bz, 6, marshalDuration(cs.MaxClockDrift))
	bz = appendMessage(bz, 7, marshalHeight(cs.LatestHeight))
	bz = appendMessage(bz, 8, marshalHeight(cs.FrozenHeight))
	bz = appendBytes(bz, 9, cs.CodeCommitment)
	bz = appendBytes(bz, 10, cs.GenesisStateRoot)
	for _, key := range cs.UpgradePath {
		bz = appendString(bz, 11, key)
	}
	return bz
}

// UnmarshalClientState decodes a client state produced by MarshalClientState.
func UnmarshalClientState(bz []byte) (*ClientState, error) {
	cs := &ClientState{}
	err := consumeFields(bz, "ClientState", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			cs.ChainID, err = stringField(typ, value)
		case 2:
			cs.DaChainID, err = stringField(typ, value)
		case 3:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.TrustLevel, err = unmarshalFraction(msg)
			}
		case 4:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.TrustingPeriod, err = unmarshalDuration(msg)
			}
		case 5:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.UnbondingPeriod, err = unmarshalDuration(msg)
			}
		case 6:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.MaxClockDrift, err = unmarshalDuration(msg)
			}
		case 7:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.LatestHeight, err = unmarshalHeight(msg)
			}
		case 8:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.FrozenHeight, err = unmarshalHeight(msg)
			}
		case 9:
			cs.CodeCommitment, err = bytesField(typ, value)
		case 10:
			cs.GenesisStateRoot, err = bytesField(typ, value)
		case 11:
			var key string
			if key, err = stringField(typ, value); err == nil {
				cs.UpgradePath = append(cs.UpgradePath, key)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// MarshalConsensusState encodes a consensus state in protobuf wire format.
func MarshalConsensusState(cs *ConsensusState) []byte {
	var bz []byte
	bz = appendBytes(bz, 1, cs.Root.GetHash())
	bz = appendBytes(bz, 2, cs.DaHeaderHash)
	bz = appendMessage(bz, 3, marshalTime(cs.Timestamp))
	bz = appendBytes(bz, 4, cs.NextValidatorsHash)
	return bz
}

// UnmarshalConsensusState decodes a consensus state produced by MarshalConsensusState.
func UnmarshalConsensusState(bz []byte) (*ConsensusState, error) {
	cs := &ConsensusState{}
	err := consumeFields(bz, "ConsensusState", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			var root []byte
			if root, err = bytesField(typ, value); err == nil {
				cs.Root = commitmenttypes.NewMerkleRoot(root)
			}
		case 2:
			cs.DaHeaderHash, err = bytesField(typ, value)
		case 3:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				cs.Timestamp, err = unmarshalTime(msg)
			}
		case 4:
			cs.NextValidatorsHash, err = bytesField(typ, value)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// MarshalAggregatedProofPublicData encodes the public data of an aggregated proof. Every
// field is always written, in field order, so the encoding is canonical and can be
// hashed into the public input of the proof.
func MarshalAggregatedProofPublicData(pd AggregatedProofPublicData) []byte {
	var bz []byte
	bz = appendVarint(bz, 1, pd.InitialSlotNumber)
	bz = appendVarint(bz, 2, pd.FinalSlotNumber)
	bz = appendBytes(bz, 3, pd.InitialStateRoot)
	bz = appendBytes(bz, 4, pd.FinalStateRoot)
	bz = appendBytes(bz, 5, pd.CodeCommitment)
	bz = appendBytes(bz, 6, pd.ValidityCondition)
	return bz
}

// UnmarshalAggregatedProofPublicData decodes public data produced by MarshalAggregatedProofPublicData.
func UnmarshalAggregatedProofPublicData(bz []byte) (AggregatedProofPublicData, error) {
	var pd AggregatedProofPublicData
	err := consumeFields(bz, "AggregatedProofPublicData", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			pd.InitialSlotNumber, err = varintField(typ, value)
		case 2:
			pd.FinalSlotNumber, err = varintField(typ, value)
		case 3:
			pd.InitialStateRoot, err = bytesField(typ, value)
		case 4:
			pd.FinalStateRoot, err = bytesField(typ, value)
		case 5:
			pd.CodeCommitment, err = bytesField(typ, value)
		case 6:
			pd.ValidityCondition, err = bytesField(typ, value)
		}
		return err
	})
	return pd, err
}

// MarshalAggregatedProof encodes an aggregated proof together with its public data.
func MarshalAggregatedProof(p AggregatedProof) []byte {
	var bz []byte
	bz = appendMessage(bz, 1, MarshalAggregatedProofPublicData(p.PublicData))
	bz = appendBytes(bz, 2, p.SerializedProof)
	return bz
}

// UnmarshalAggregatedProof decodes an aggregated proof produced by MarshalAggregatedProof.
func UnmarshalAggregatedProof(bz []byte) (AggregatedProof, error) {
	var p AggregatedProof
	err := consumeFields(bz, "AggregatedProof", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				p.PublicData, err = UnmarshalAggregatedProofPublicData(msg)
			}
		case 2:
			p.SerializedProof, err = bytesField(typ, value)
		}
		return err
	})
	return p, err
}

// MarshalDAHeader encodes a DA header. The signed header and the validator set are
// embedded in their cometbft protobuf encoding.
func MarshalDAHeader(h DAHeader) ([]byte, error) {
	if h.SignedHeader == nil {
		return nil, errorsmod.Wrap(clienttypes.ErrInvalidHeader, "signed header cannot be nil")
	}
	signedHeader, err := h.SignedHeader.ToProto().Marshal()
	if err != nil {
		return nil, errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "failed to marshal signed header: %v", err)
	}
	valSet, err := marshalValidatorSet(h.ValidatorSet)
	if err != nil {
		return nil, err
	}

	var bz []byte
	bz = appendBytes(bz, 1, signedHeader)
	bz = appendBytes(bz, 2, valSet)
	return bz, nil
}

// UnmarshalDAHeader decodes a DA header produced by MarshalDAHeader.
func UnmarshalDAHeader(bz []byte) (DAHeader, error) {
	var h DAHeader
	err := consumeFields(bz, "DAHeader", func(num protowire.Number, typ protowire.Type, value []byte) error {
		msg, err := bytesField(typ, value)
		if err != nil {
			return err
		}
		switch num {
		case 1:
			var pb cmtproto.SignedHeader
			if err := pb.Unmarshal(msg); err != nil {
				return errorsmod.Wrapf(ErrDecode, "signed header: %v", err)
			}
			signedHeader, err := cmttypes.SignedHeaderFromProto(&pb)
			if err != nil {
				return errorsmod.Wrapf(ErrDecode, "signed header: %v", err)
			}
			h.SignedHeader = signedHeader
		case 2:
			h.ValidatorSet, err = unmarshalValidatorSet(msg)
		}
		return err
	})
	return h, err
}

// MarshalHeader encodes a client update header.
func MarshalHeader(h *Header) ([]byte, error) {
	var bz []byte
	for _, daHeader := range h.DaHeaders {
		daBz, err := MarshalDAHeader(daHeader)
		if err != nil {
			return nil, err
		}
		bz = appendMessage(bz, 1, daBz)
	}
	bz = appendMessage(bz, 2, marshalHeight(h.TrustedHeight))

	trustedVals, err := marshalValidatorSet(h.TrustedValidators)
	if err != nil {
		return nil, err
	}
	bz = appendBytes(bz, 3, trustedVals)
	bz = appendMessage(bz, 4, MarshalAggregatedProof(h.AggregatedProof))
	return bz, nil
}

// UnmarshalHeader decodes a header produced by MarshalHeader.
func UnmarshalHeader(bz []byte) (*Header, error) {
	h := &Header{}
	err := consumeFields(bz, "Header", func(num protowire.Number, typ protowire.Type, value []byte) error {
		msg, err := bytesField(typ, value)
		if err != nil {
			return err
		}
		switch num {
		case 1:
			daHeader, err := UnmarshalDAHeader(msg)
			if err != nil {
				return err
			}
			h.DaHeaders = append(h.DaHeaders, daHeader)
		case 2:
			h.TrustedHeight, err = unmarshalHeight(msg)
		case 3:
			h.TrustedValidators, err = unmarshalValidatorSet(msg)
		case 4:
			h.AggregatedProof, err = UnmarshalAggregatedProof(msg)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// MarshalMisbehaviour encodes a misbehaviour.
func MarshalMisbehaviour(m *Misbehaviour) ([]byte, error) {
	if m.Header1 == nil || m.Header2 == nil {
		return nil, errorsmod.Wrap(clienttypes.ErrInvalidMisbehaviour, "misbehaviour headers cannot be nil")
	}
	header1, err := MarshalHeader(m.Header1)
	if err != nil {
		return nil, err
	}
	header2, err := MarshalHeader(m.Header2)
	if err != nil {
		return nil, err
	}

	var bz []byte
	bz = appendString(bz, 1, m.ClientId)
	bz = appendMessage(bz, 2, header1)
	bz = appendMessage(bz, 3, header2)
	return bz, nil
}

// UnmarshalMisbehaviour decodes a misbehaviour produced by MarshalMisbehaviour.
func UnmarshalMisbehaviour(bz []byte) (*Misbehaviour, error) {
	m := &Misbehaviour{}
	err := consumeFields(bz, "Misbehaviour", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			m.ClientId, err = stringField(typ, value)
		case 2:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				m.Header1, err = UnmarshalHeader(msg)
			}
		case 3:
			var msg []byte
			if msg, err = bytesField(typ, value); err == nil {
				m.Header2, err = UnmarshalHeader(msg)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalClientMessage wraps a Header or a Misbehaviour in the ClientMessage envelope.
func MarshalClientMessage(clientMsg exported.ClientMessage) ([]byte, error) {
	switch msg := clientMsg.(type) {
	case *Header:
		bz, err := MarshalHeader(msg)
		if err != nil {
			return nil, err
		}
		return appendMessage(nil, clientMessageHeaderField, bz), nil
	case *Misbehaviour:
		bz, err := MarshalMisbehaviour(msg)
		if err != nil {
			return nil, err
		}
		return appendMessage(nil, clientMessageMisbehaviourField, bz), nil
	default:
		return nil, errorsmod.Wrapf(clienttypes.ErrInvalidClientType, "unsupported client message %T", clientMsg)
	}
}

// UnmarshalClientMessage decodes the ClientMessage envelope. Exactly one variant must be set.
func UnmarshalClientMessage(bz []byte) (exported.ClientMessage, error) {
	var clientMsg exported.ClientMessage
	err := consumeFields(bz, "ClientMessage", func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num != clientMessageHeaderField && num != clientMessageMisbehaviourField {
			return nil
		}
		if clientMsg != nil {
			return errorsmod.Wrap(ErrDecode, "client message carries more than one variant")
		}

		msg, err := bytesField(typ, value)
		if err != nil {
			return err
		}
		if num == clientMessageHeaderField {
			clientMsg, err = UnmarshalHeader(msg)
		} else {
			clientMsg, err = UnmarshalMisbehaviour(msg)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if clientMsg == nil {
		return nil, errorsmod.Wrap(ErrDecode, "client message is empty")
	}
	return clientMsg, nil
}

func marshalValidatorSet(vals *cmttypes.ValidatorSet) ([]byte, error) {
	if vals == nil {
		return nil, errorsmod.Wrap(clienttypes.ErrInvalidHeader, "validator set cannot be nil")
	}
	pb, err := vals.ToProto()
	if err != nil {
		return nil, errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "failed to convert validator set: %v", err)
	}
	bz, err := pb.Marshal()
	if err != nil {
		return nil, errorsmod.Wrapf(clienttypes.ErrInvalidHeader, "failed to marshal validator set: %v", err)
	}
	return bz, nil
}

func unmarshalValidatorSet(bz []byte) (*cmttypes.ValidatorSet, error) {
	var pb cmtproto.ValidatorSet
	if err := pb.Unmarshal(bz); err != nil {
		return nil, errorsmod.Wrapf(ErrDecode, "validator set: %v", err)
	}
	vals, err := cmttypes.ValidatorSetFromProto(&pb)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrDecode, "validator set: %v", err)
	}
	return vals, nil
}

func marshalHeight(height clienttypes.Height) []byte {
	var bz []byte
	bz = appendVarint(bz, 1, height.RevisionNumber)
	bz = appendVarint(bz, 2, height.RevisionHeight)
	return bz
}

func unmarshalHeight(bz []byte) (clienttypes.Height, error) {
	var height clienttypes.Height
	err := consumeFields(bz, "Height", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			height.RevisionNumber, err = varintField(typ, value)
		case 2:
			height.RevisionHeight, err = varintField(typ, value)
		}
		return err
	})
	return height, err
}

func marshalFraction(f Fraction) []byte {
	var bz []byte
	bz = appendVarint(bz, 1, f.Numerator)
	bz = appendVarint(bz, 2, f.Denominator)
	return bz
}

func unmarshalFraction(bz []byte) (Fraction, error) {
	var f Fraction
	err := consumeFields(bz, "Fraction", func(num protowire.Number, typ protowire.Type, value []byte) error {
		var err error
		switch num {
		case 1:
			f.Numerator, err = varintField(typ, value)
		case 2:
			f.Denominator, err = varintField(typ, value)
		}
		return err
	})
	return f, err
}

func marshalTime(t time.Time) []byte {
	bz, err := deterministic.Marshal(timestamppb.New(t))
	if err != nil {
		// a Timestamp only holds scalar fields
		panic(err)
	}
	return bz
}

func unmarshalTime(bz []byte) (time.Time, error) {
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(bz, &ts); err != nil {
		return time.Time{}, errorsmod.Wrapf(ErrDecode, "timestamp: %v", err)
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, errorsmod.Wrapf(ErrDecode, "timestamp: %v", err)
	}
	return ts.AsTime(), nil
}

func marshalDuration(d time.Duration) []byte {
	bz, err := deterministic.Marshal(durationpb.New(d))
	if err != nil {
		// a Duration only holds scalar fields
		panic(err)
	}
	return bz
}

func unmarshalDuration(bz []byte) (time.Duration, error) {
	var d durationpb.Duration
	if err := proto.Unmarshal(bz, &d); err != nil {
		return 0, errorsmod.Wrapf(ErrDecode, "duration: %v", err)
	}
	if err := d.CheckValid(); err != nil {
		return 0, errorsmod.Wrapf(ErrDecode, "duration: %v", err)
	}
	return d.AsDuration(), nil
}

func appendVarint(bz []byte, num protowire.Number, v uint64) []byte {
	bz = protowire.AppendTag(bz, num, protowire.VarintType)
	return protowire.AppendVarint(bz, v)
}

func appendBytes(bz []byte, num protowire.Number, v []byte) []byte {
	bz = protowire.AppendTag(bz, num, protowire.BytesType)
	return protowire.AppendBytes(bz, v)
}

func appendString(bz []byte, num protowire.Number, v string) []byte {
	bz = protowire.AppendTag(bz, num, protowire.BytesType)
	return protowire.AppendString(bz, v)
}

func appendMessage(bz []byte, num protowire.Number, msg []byte) []byte {
	return appendBytes(bz, num, msg)
}

// consumeFields walks the fields of an encoded message and hands each raw field value to
// handle. Unknown fields are handed over too and are expected to be ignored.
func consumeFields(bz []byte, msgName string, handle func(num protowire.Number, typ protowire.Type, value []byte) error) error {
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return errorsmod.Wrapf(ErrDecode, "%s: invalid field tag: %v", msgName, protowire.ParseError(n))
		}
		bz = bz[n:]

		m := protowire.ConsumeFieldValue(num, typ, bz)
		if m < 0 {
			return errorsmod.Wrapf(ErrDecode, "%s: invalid value of field %d: %v", msgName, num, protowire.ParseError(m))
		}
		if err := handle(num, typ, bz[:m]); err != nil {
			return errorsmod.Wrapf(err, "%s", msgName)
		}
		bz = bz[m:]
	}
	return nil
}

func varintField(typ protowire.Type, value []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, errorsmod.Wrapf(ErrDecode, "expected varint field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(value)
	if n < 0 {
		return 0, errorsmod.Wrapf(ErrDecode, "invalid varint: %v", protowire.ParseError(n))
	}
	return v, nil
}

func bytesField(typ protowire.Type, value []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, errorsmod.Wrapf(ErrDecode, "expected length delimited field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(value)
	if n < 0 {
		return nil, errorsmod.Wrapf(ErrDecode, "invalid length delimited value: %v", protowire.ParseError(n))
	}
	return append([]byte(nil), v...), nil
}

func stringField(typ protowire.Type, value []byte) (string, error) {
	bz, err := bytesField(typ, value)
	if err != nil {
		return "", err
	}
	return string(bz), nil
}
