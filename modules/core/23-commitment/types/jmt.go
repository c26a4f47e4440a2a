package types

import (
	ics23 "github.com/cosmos/ics23/go"
)

const (
	// jmtLeafDomainSeparator prefixes every leaf hash of the rollup state tree.
	jmtLeafDomainSeparator = "JMT::LeafNode"
	// jmtInternalDomainSeparator prefixes every internal node hash. The misspelling
	// is part of the on-chain hashing format and must not be corrected.
	jmtInternalDomainSeparator = "JMT::IntrnalNode"
	// jmtPlaceholderHash stands in for an empty subtree.
	jmtPlaceholderHash = "SPARSE_MERKLE_PLACEHOLDER_HASH__"

	jmtMaxDepth = 64
)

// JMTSpec is the ics23 proof format of the Jellyfish Merkle Tree that
// commits the rollup state. Keys and values are hashed with SHA-256 before they
// reach the leaf, and key ordering follows the hashed key.
var JMTSpec = &ics23.ProofSpec{
	LeafSpec: &ics23.LeafOp{
		Hash:         ics23.HashOp_SHA256,
		PrehashKey:   ics23.HashOp_SHA256,
		PrehashValue: ics23.HashOp_SHA256,
		Length:       ics23.LengthOp_NO_PREFIX,
		Prefix:       []byte(jmtLeafDomainSeparator),
	},
	InnerSpec: &ics23.InnerSpec{
		ChildOrder:      []int32{0, 1},
		ChildSize:       32,
		MinPrefixLength: int32(len(jmtInternalDomainSeparator)),
		MaxPrefixLength: int32(len(jmtInternalDomainSeparator)),
		EmptyChild:      []byte(jmtPlaceholderHash),
		Hash:            ics23.HashOp_SHA256,
	},
	MaxDepth:                   jmtMaxDepth,
	PrehashKeyBeforeComparison: true,
}

// GetJMTSpecs returns the proof specs used to verify rollup state proofs. The rollup
// keeps all of its state in a single tree so a proof chain has exactly one link.
func GetJMTSpecs() []*ics23.ProofSpec {
	return []*ics23.ProofSpec{JMTSpec}
}

// JMTInnerPrefix returns the bytes hashed in front of the two children of an
// internal node.
func JMTInnerPrefix() []byte {
	return []byte(jmtInternalDomainSeparator)
}
