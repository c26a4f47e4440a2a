package types

import (
	"bytes"
	"fmt"

	ics23 "github.com/cosmos/ics23/go"
	"google.golang.org/protobuf/encoding/protowire"

	errorsmod "cosmossdk.io/errors"

	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

var (
	_ exported.Root   = (*MerkleRoot)(nil)
	_ exported.Prefix = (*MerklePrefix)(nil)
	_ exported.Path   = (*MerklePath)(nil)
)

// MerkleRoot defines a merkle root hash.
type MerkleRoot struct {
	Hash []byte `json:"hash"`
}

// NewMerkleRoot constructs a new MerkleRoot
func NewMerkleRoot(hash []byte) MerkleRoot {
	return MerkleRoot{
		Hash: hash,
	}
}

// GetHash implements RootI interface
func (mr MerkleRoot) GetHash() []byte {
	return mr.Hash
}

// Empty returns true if the root is empty
func (mr MerkleRoot) Empty() bool {
	return len(mr.GetHash()) == 0
}

// MerklePrefix is the namespace under which all IBC paths are committed on the rollup side.
type MerklePrefix struct {
	KeyPrefix []byte `json:"key_prefix"`
}

// NewMerklePrefix constructs new MerklePrefix instance
func NewMerklePrefix(keyPrefix []byte) MerklePrefix {
	return MerklePrefix{
		KeyPrefix: keyPrefix,
	}
}

// Bytes returns the key prefix bytes
func (mp MerklePrefix) Bytes() []byte {
	return mp.KeyPrefix
}

// Empty returns true if the prefix is empty
func (mp MerklePrefix) Empty() bool {
	return len(mp.Bytes()) == 0
}

// MerklePath is the path used to verify commitment proofs, which can be an
// arbitrary structured object (defined by a commitment type).
// The keys are ordered from root-to-leaf.
type MerklePath struct {
	KeyPath [][]byte `json:"key_path"`
}

// NewMerklePath creates a new MerklePath instance
// The keys must be passed in from root-to-leaf order
func NewMerklePath(keyPath ...[]byte) MerklePath {
	return MerklePath{
		KeyPath: keyPath,
	}
}

// GetKey will return a byte representation of the key
func (mp MerklePath) GetKey(i uint64) ([]byte, error) {
	if i >= uint64(len(mp.KeyPath)) {
		return nil, fmt.Errorf("index out of range. %d (index) >= %d (len)", i, len(mp.KeyPath))
	}
	return mp.KeyPath[i], nil
}

// Empty returns true if the path is empty
func (mp MerklePath) Empty() bool {
	return len(mp.KeyPath) == 0
}

// ValidateAsPath validates the MerklePath as a fully constructed path.
// Every element must be non-empty.
func (mp MerklePath) ValidateAsPath() error {
	if mp.Empty() {
		return fmt.Errorf("path cannot have length 0")
	}

	for i, key := range mp.KeyPath {
		if len(key) == 0 {
			return fmt.Errorf("key at index %d cannot be empty", i)
		}
	}
	return nil
}

// ApplyPrefix constructs a new commitment path from the arguments. It prepends the prefix
// bytes to the outermost key of the path. The rollup state is a single flat JMT, so the
// committed key of an IBC path is the prefix immediately followed by the path bytes.
func ApplyPrefix(prefix exported.Prefix, path MerklePath) (MerklePath, error) {
	if prefix == nil || prefix.Empty() {
		return MerklePath{}, errorsmod.Wrap(ErrInvalidPrefix, "prefix can't be empty")
	}
	if path.Empty() {
		return MerklePath{}, errorsmod.Wrap(ErrInvalidPath, "path can't be empty")
	}

	keyPath := make([][]byte, len(path.KeyPath))
	copy(keyPath, path.KeyPath)

	outermost := make([]byte, 0, len(prefix.Bytes())+len(keyPath[0]))
	outermost = append(outermost, prefix.Bytes()...)
	outermost = append(outermost, keyPath[0]...)
	keyPath[0] = outermost

	return NewMerklePath(keyPath...), nil
}

// MerkleProof is a wrapper type over a chain of CommitmentProofs.
// It demonstrates membership or non-membership for an element or set of elements,
// verifiable in conjunction with a known commitment root. Proofs should be
// succinct.
// MerkleProofs are ordered from leaf-to-root
type MerkleProof struct {
	Proofs []*ics23.CommitmentProof `json:"proofs"`
}

// Marshal encodes the proof list as a protobuf message with one repeated bytes field.
func (proof MerkleProof) Marshal() ([]byte, error) {
	var bz []byte
	for i, p := range proof.Proofs {
		if p == nil {
			return nil, errorsmod.Wrapf(ErrInvalidMerkleProof, "commitment proof at index %d is nil", i)
		}
		pbz, err := p.Marshal()
		if err != nil {
			return nil, errorsmod.Wrapf(ErrInvalidMerkleProof, "failed to marshal commitment proof %d: %v", i, err)
		}
		bz = protowire.AppendTag(bz, 1, protowire.BytesType)
		bz = protowire.AppendBytes(bz, pbz)
	}
	return bz, nil
}

// Unmarshal decodes a MerkleProof from its protobuf encoding.
func (proof *MerkleProof) Unmarshal(bz []byte) error {
	proof.Proofs = nil
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return errorsmod.Wrap(ErrInvalidProof, protowire.ParseError(n).Error())
		}
		bz = bz[n:]

		if num != 1 || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, bz)
			if n < 0 {
				return errorsmod.Wrap(ErrInvalidProof, protowire.ParseError(n).Error())
			}
			bz = bz[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(bz)
		if n < 0 {
			return errorsmod.Wrap(ErrInvalidProof, protowire.ParseError(n).Error())
		}
		bz = bz[n:]

		var commitmentProof ics23.CommitmentProof
		if err := commitmentProof.Unmarshal(v); err != nil {
			return errorsmod.Wrapf(ErrInvalidProof, "failed to unmarshal commitment proof: %v", err)
		}
		proof.Proofs = append(proof.Proofs, &commitmentProof)
	}
	return nil
}

// VerifyMembership verifies the membership of a merkle proof against the given root, path, and value.
// Note that the path is expected as []string{<store key of module>, <key corresponding to requested value>}.
func (proof MerkleProof) VerifyMembership(specs []*ics23.ProofSpec, root exported.Root, path exported.Path, value []byte) error {
	mpath, err := proof.validateVerificationArgs(specs, root, path)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		return errorsmod.Wrap(ErrInvalidProof, "empty value in membership proof")
	}

	// Since every proof in chain is a membership proof we can use verifyChainedMembershipProof from index 0
	// to validate entire proof
	return verifyChainedMembershipProof(root.GetHash(), specs, proof.Proofs, mpath, value, 0)
}

// VerifyNonMembership verifies the absence of a merkle proof against the given root and path.
// VerifyNonMembership verifies a chained proof where the absence of a given path is proven
// at the lowest subtree and then each subtree's inclusion is proved up to the final root.
func (proof MerkleProof) VerifyNonMembership(specs []*ics23.ProofSpec, root exported.Root, path exported.Path) error {
	mpath, err := proof.validateVerificationArgs(specs, root, path)
	if err != nil {
		return err
	}

	switch proof.Proofs[0].Proof.(type) {
	case *ics23.CommitmentProof_Nonexist:
		// VerifyNonMembership will verify the absence of key in lowest subtree, and then chain inclusion proofs
		// of all subroots up to final root
		subroot, err := proof.Proofs[0].Calculate()
		if err != nil {
			return errorsmod.Wrapf(ErrInvalidProof, "could not calculate root for proof index 0, merkle tree is likely empty. %v", err)
		}
		key, err := mpath.GetKey(uint64(len(mpath.KeyPath) - 1))
		if err != nil {
			return errorsmod.Wrapf(ErrInvalidProof, "could not retrieve key bytes for key: %s", mpath.KeyPath[len(mpath.KeyPath)-1])
		}
		if ok := ics23.VerifyNonMembership(specs[0], subroot, proof.Proofs[0], key); !ok {
			return errorsmod.Wrapf(ErrInvalidProof, "could not verify absence of key %s. Please ensure that the path is correct.", string(key))
		}

		// Verify chained membership proof starting from index 1 with value = subroot
		if err := verifyChainedMembershipProof(root.GetHash(), specs, proof.Proofs, mpath, subroot, 1); err != nil {
			return err
		}
	case *ics23.CommitmentProof_Exist:
		return errorsmod.Wrapf(ErrInvalidProof,
			"got ExistenceProof in VerifyNonMembership. If this is unexpected, please ensure that proof was queried with the correct key.")
	default:
		return errorsmod.Wrapf(ErrInvalidProof,
			"expected proof type: %T, got: %T", &ics23.CommitmentProof_Nonexist{}, proof.Proofs[0].Proof)
	}
	return nil
}

// IsExistence reports whether the lowest proof of the chain proves presence of a key.
func (proof MerkleProof) IsExistence() bool {
	if len(proof.Proofs) == 0 || proof.Proofs[0] == nil {
		return false
	}
	_, ok := proof.Proofs[0].Proof.(*ics23.CommitmentProof_Exist)
	return ok
}

// ExistenceValue returns the value committed by the lowest existence proof, if any.
func (proof MerkleProof) ExistenceValue() ([]byte, bool) {
	if !proof.IsExistence() {
		return nil, false
	}
	return proof.Proofs[0].GetExist().Value, true
}

// ValidateBasic checks if the proof is empty.
func (proof MerkleProof) ValidateBasic() error {
	if proof.Empty() {
		return ErrInvalidProof
	}
	return nil
}

// Empty returns true if the root is empty
func (proof MerkleProof) Empty() bool {
	if len(proof.Proofs) == 0 {
		return true
	}
	for _, p := range proof.Proofs {
		if p == nil || p.Proof == nil {
			return true
		}
	}
	return false
}

// verifyChainedMembershipProof takes a list of proofs and specs and verifies each proof sequentially ensuring that the value is committed to
// by first proof and each subsequent subroot is committed to by the next subroot and checking that the final calculated root is equal to the given roothash.
// The proofs and specs are passed in from lowest subtree to the highest subtree, but the keys are passed in from highest subtree to lowest.
// The index specifies what index to start chaining the membership proofs, this is useful since the lowest proof may not be a membership proof, thus we
// will want to start the membership proof chaining from index 1 with value being the lowest subroot
func verifyChainedMembershipProof(root []byte, specs []*ics23.ProofSpec, proofs []*ics23.CommitmentProof, keys MerklePath, value []byte, index int) error {
	var (
		subroot []byte
		err     error
	)
	// Initialize subroot to value since the proofs list may be empty.
	// This may happen if this call is verifying intermediate proofs after the lowest proof has been executed.
	// In this case, there may be no intermediate proofs to verify and we just check that lowest proof root equals final root
	subroot = value
	for i := index; i < len(proofs); i++ {
		switch proofs[i].Proof.(type) {
		case *ics23.CommitmentProof_Exist:
			subroot, err = proofs[i].Calculate()
			if err != nil {
				return errorsmod.Wrapf(ErrInvalidProof, "could not calculate proof root at index %d, merkle tree may be empty. %v", i, err)
			}

			// Since keys are passed in from highest to lowest, we must grab their indices in reverse order
			// from the proofs and specs which are lowest to highest
			key, err := keys.GetKey(uint64(len(keys.KeyPath) - 1 - i))
			if err != nil {
				return errorsmod.Wrapf(ErrInvalidProof, "could not retrieve key bytes for key %s: %v", keys.KeyPath[len(keys.KeyPath)-1-i], err)
			}

			// verify membership of the proof at this index with appropriate key and value
			if ok := ics23.VerifyMembership(specs[i], subroot, proofs[i], key, value); !ok {
				return errorsmod.Wrapf(ErrInvalidProof,
					"chained membership proof failed to verify membership of value: %X in subroot %X at index %d. Please ensure the path and value are both correct.",
					value, subroot, i)
			}
			// Set value to subroot so that we verify next proof in chain commits to this subroot
			value = subroot
		case *ics23.CommitmentProof_Nonexist:
			return errorsmod.Wrapf(ErrInvalidProof,
				"chained membership proof contains nonexistence proof at index %d. If this is unexpected, please ensure that proof was queried from a height that contained the value in store and was queried with the correct key.",
				i)
		default:
			return errorsmod.Wrapf(ErrInvalidProof,
				"expected proof type: %T, got: %T", &ics23.CommitmentProof_Exist{}, proofs[i].Proof)
		}
	}
	// Check that chained proof root equals passed-in root
	if !bytes.Equal(root, subroot) {
		return errorsmod.Wrapf(ErrInvalidProof,
			"proof did not commit to expected root: %X, got: %X. Please ensure proof was submitted with correct proofHeight and to the correct chain.",
			root, subroot)
	}
	return nil
}

// validateVerificationArgs verifies the proof arguments are valid.
// The merkle path and merkle proof contain a list of keys and their proofs
// which correspond to individual trees. The length of these keys and their proofs
// must equal the length of the given specs. All arguments must be non-empty.
func (proof MerkleProof) validateVerificationArgs(specs []*ics23.ProofSpec, root exported.Root, path exported.Path) (MerklePath, error) {
	if proof.Empty() {
		return MerklePath{}, errorsmod.Wrap(ErrInvalidMerkleProof, "proof cannot be empty")
	}

	if root == nil || root.Empty() {
		return MerklePath{}, errorsmod.Wrap(ErrInvalidMerkleProof, "root cannot be empty")
	}

	mpath, ok := path.(MerklePath)
	if !ok {
		return MerklePath{}, errorsmod.Wrapf(ErrInvalidPath, "expected %T, got %T", MerklePath{}, path)
	}
	if err := mpath.ValidateAsPath(); err != nil {
		return MerklePath{}, errorsmod.Wrap(ErrInvalidPath, err.Error())
	}

	if len(specs) != len(proof.Proofs) {
		return MerklePath{}, errorsmod.Wrapf(ErrInvalidMerkleProof,
			"length of specs: %d not equal to length of proof: %d",
			len(specs), len(proof.Proofs))
	}

	if len(mpath.KeyPath) != len(specs) {
		return MerklePath{}, errorsmod.Wrapf(ErrInvalidProof, "path length %d not same as proof %d",
			len(mpath.KeyPath), len(specs))
	}

	for i, spec := range specs {
		if spec == nil {
			return MerklePath{}, errorsmod.Wrapf(ErrInvalidProof, "spec at position %d is nil", i)
		}
	}
	return mpath, nil
}
