package ibctesting

import (
	"bytes"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

// aggregatedProofCircuit stands in for the rollup's aggregation program. The prover shows
// knowledge of the digest of the public data it commits to.
type aggregatedProofCircuit struct {
	Digest frontend.Variable `gnark:",public"`
	Secret frontend.Variable
}

// Define implements frontend.Circuit.
func (c *aggregatedProofCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(api.Mul(c.Secret, 1), c.Digest)
	return nil
}

// Prover produces BN254 Groth16 aggregated proofs accepted by sovcelestia.Groth16Verifier.
// Every Prover runs its own setup, so two provers have different code commitments.
type Prover struct {
	ccs          constraint.ConstraintSystem
	provingKey   groth16.ProvingKey
	verifyingKey []byte
}

var (
	defaultProver     *Prover
	defaultProverErr  error
	defaultProverOnce sync.Once
)

// DefaultProver returns a prover shared by all tests of the process.
func DefaultProver() (*Prover, error) {
	defaultProverOnce.Do(func() {
		defaultProver, defaultProverErr = NewProver()
	})
	return defaultProver, defaultProverErr
}

// NewProver compiles the test circuit and runs a fresh Groth16 setup.
func NewProver() (*Prover, error) {
	var circuit aggregatedProofCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, err
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, err
	}

	return &Prover{
		ccs:          ccs,
		provingKey:   pk,
		verifyingKey: buf.Bytes(),
	}, nil
}

// VerifyingKey returns the serialized verifying key of the prover.
func (p *Prover) VerifyingKey() []byte {
	return p.verifyingKey
}

// CodeCommitment returns the code commitment identifying the prover's program.
func (p *Prover) CodeCommitment() []byte {
	return sovcelestia.CodeCommitment(p.verifyingKey)
}

// Prove returns the serialized proof of publicData.
func (p *Prover) Prove(publicData sovcelestia.AggregatedProofPublicData) ([]byte, error) {
	digest := sovcelestia.PublicInput(publicData)
	assignment := &aggregatedProofCircuit{
		Digest: digest,
		Secret: digest,
	}

	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	proof, err := groth16.Prove(p.ccs, p.provingKey, fullWitness)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
