package ibctesting

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"

	ics23 "github.com/cosmos/ics23/go"

	commitmenttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/23-commitment/types"
)

// StateTree is an in-memory binary tree hashed with the rollup JMT rules. Leaves are
// ordered by the SHA-256 of their key and every internal node has two children, so
// the proofs it produces are accepted by commitmenttypes.JMTSpec.
type StateTree struct {
	leaves []stateLeaf
	paths  [][]*ics23.InnerOp
	root   []byte
}

type stateLeaf struct {
	key     []byte
	value   []byte
	keyHash []byte
	hash    []byte
}

// NewStateTree commits the given key/value pairs. At least one entry is required.
func NewStateTree(entries map[string][]byte) (*StateTree, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("state tree requires at least one entry")
	}

	leafSpec := commitmenttypes.JMTSpec.LeafSpec
	tree := &StateTree{}
	for k, v := range entries {
		hash, err := leafSpec.Apply([]byte(k), v)
		if err != nil {
			return nil, err
		}
		keyHash := sha256.Sum256([]byte(k))
		tree.leaves = append(tree.leaves, stateLeaf{
			key:     []byte(k),
			value:   v,
			keyHash: keyHash[:],
			hash:    hash,
		})
	}

	sort.Slice(tree.leaves, func(i, j int) bool {
		return bytes.Compare(tree.leaves[i].keyHash, tree.leaves[j].keyHash) < 0
	})

	tree.paths = make([][]*ics23.InnerOp, len(tree.leaves))
	tree.root = tree.build(0, len(tree.leaves))
	return tree, nil
}

// Root returns the state root.
func (t *StateTree) Root() []byte {
	return t.root
}

func (t *StateTree) build(lo, hi int) []byte {
	if hi-lo == 1 {
		return t.leaves[lo].hash
	}

	mid := (lo + hi) / 2
	left := t.build(lo, mid)
	right := t.build(mid, hi)

	for i := lo; i < mid; i++ {
		t.paths[i] = append(t.paths[i], &ics23.InnerOp{
			Hash:   ics23.HashOp_SHA256,
			Prefix: commitmenttypes.JMTInnerPrefix(),
			Suffix: right,
		})
	}
	for i := mid; i < hi; i++ {
		t.paths[i] = append(t.paths[i], &ics23.InnerOp{
			Hash:   ics23.HashOp_SHA256,
			Prefix: append(commitmenttypes.JMTInnerPrefix(), left...),
		})
	}

	h := sha256.New()
	h.Write(commitmenttypes.JMTInnerPrefix())
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func (t *StateTree) existence(i int) *ics23.ExistenceProof {
	leaf := t.leaves[i]
	return &ics23.ExistenceProof{
		Key:   leaf.key,
		Value: leaf.value,
		Leaf:  commitmenttypes.JMTSpec.LeafSpec,
		Path:  t.paths[i],
	}
}

// CommitmentProof returns an existence proof if the key is committed and a
// non-existence proof built from its hashed-key neighbours otherwise.
func (t *StateTree) CommitmentProof(key []byte) *ics23.CommitmentProof {
	keyHash := sha256.Sum256(key)
	idx := sort.Search(len(t.leaves), func(i int) bool {
		return bytes.Compare(t.leaves[i].keyHash, keyHash[:]) >= 0
	})

	if idx < len(t.leaves) && bytes.Equal(t.leaves[idx].keyHash, keyHash[:]) {
		return &ics23.CommitmentProof{
			Proof: &ics23.CommitmentProof_Exist{Exist: t.existence(idx)},
		}
	}

	nonExist := &ics23.NonExistenceProof{Key: key}
	if idx > 0 {
		nonExist.Left = t.existence(idx - 1)
	}
	if idx < len(t.leaves) {
		nonExist.Right = t.existence(idx)
	}
	return &ics23.CommitmentProof{
		Proof: &ics23.CommitmentProof_Nonexist{Nonexist: nonExist},
	}
}

// MerkleProof wraps the commitment proof of key in a single-link MerkleProof.
func (t *StateTree) MerkleProof(key []byte) commitmenttypes.MerkleProof {
	return commitmenttypes.MerkleProof{
		Proofs: []*ics23.CommitmentProof{t.CommitmentProof(key)},
	}
}

// MerkleProofBytes returns the encoded MerkleProof of key.
func (t *StateTree) MerkleProofBytes(key []byte) ([]byte, error) {
	return t.MerkleProof(key).Marshal()
}
