package sovcelestia

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"

	errorsmod "cosmossdk.io/errors"
)

// ProofVerifier verifies aggregated proofs. The light client calls it only after every
// cheaper admission check passed.
type ProofVerifier interface {
	// Verify checks that proof attests to publicData under the program identified by
	// codeCommitment. It must return promptly once ctx is done.
	Verify(ctx context.Context, codeCommitment []byte, publicData AggregatedProofPublicData, proof []byte) error
}

var _ ProofVerifier = (*Groth16Verifier)(nil)

// Groth16Verifier verifies BN254 Groth16 proofs produced by gnark. Each proving program is
// identified by its code commitment, the SHA-256 of its serialized verifying key.
type Groth16Verifier struct {
	mu   sync.RWMutex
	keys map[string]groth16.VerifyingKey
}

// NewGroth16Verifier returns a verifier with no registered programs.
func NewGroth16Verifier() *Groth16Verifier {
	return &Groth16Verifier{
		keys: make(map[string]groth16.VerifyingKey),
	}
}

// CodeCommitment returns the code commitment of a serialized verifying key.
func CodeCommitment(verifyingKey []byte) []byte {
	commitment := sha256.Sum256(verifyingKey)
	return commitment[:]
}

// RegisterVerifyingKey parses a serialized BN254 verifying key and makes it available under
// its code commitment, which is returned.
func (v *Groth16Verifier) RegisterVerifyingKey(verifyingKey []byte) ([]byte, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(verifyingKey)); err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidVerifyingKey, "failed to read verifying key: %v", err)
	}
	if vk.NbPublicWitness() != 1 {
		return nil, errorsmod.Wrapf(ErrInvalidVerifyingKey, "expected a single public input, got %d", vk.NbPublicWitness())
	}

	commitment := CodeCommitment(verifyingKey)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[hex.EncodeToString(commitment)] = vk

	return commitment, nil
}

// HasProgram reports whether a verifying key is registered under codeCommitment.
func (v *Groth16Verifier) HasProgram(codeCommitment []byte) bool {
	_, found := v.verifyingKey(codeCommitment)
	return found
}

func (v *Groth16Verifier) verifyingKey(codeCommitment []byte) (groth16.VerifyingKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	vk, found := v.keys[hex.EncodeToString(codeCommitment)]
	return vk, found
}

// Verify implements ProofVerifier.
func (v *Groth16Verifier) Verify(ctx context.Context, codeCommitment []byte, publicData AggregatedProofPublicData, proof []byte) error {
	if err := ctx.Err(); err != nil {
		return errorsmod.Wrapf(ErrProofVerification, "verification aborted: %v", err)
	}

	vk, found := v.verifyingKey(codeCommitment)
	if !found {
		return errorsmod.Wrapf(ErrProofVerification, "no verifying key registered for code commitment %X", codeCommitment)
	}

	groth16Proof := groth16.NewProof(ecc.BN254)
	if _, err := groth16Proof.ReadFrom(bytes.NewReader(proof)); err != nil {
		return errorsmod.Wrapf(ErrProofVerification, "failed to read proof: %v", err)
	}

	publicWitness, err := PublicWitness(publicData)
	if err != nil {
		return errorsmod.Wrap(ErrProofVerification, err.Error())
	}

	result := make(chan error, 1)
	go func() {
		result <- groth16.Verify(groth16Proof, vk, publicWitness)
	}()

	select {
	case <-ctx.Done():
		return errorsmod.Wrapf(ErrProofVerification, "verification aborted: %v", ctx.Err())
	case err := <-result:
		if err != nil {
			return errorsmod.Wrapf(ErrProofVerification, "invalid proof: %v", err)
		}
		return nil
	}
}

// PublicWitness returns the public witness of an aggregated proof: the digest of the
// public data as a single BN254 scalar field element.
func PublicWitness(publicData AggregatedProofPublicData) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	values := make(chan any, 1)
	values <- PublicInput(publicData)
	close(values)

	if err := w.Fill(1, 0, values); err != nil {
		return nil, errorsmod.Wrapf(ErrProofVerification, "failed to fill witness: %v", err)
	}
	return w, nil
}

// PublicInput returns the digest of the public data reduced into the BN254 scalar field.
func PublicInput(publicData AggregatedProofPublicData) *big.Int {
	input := new(big.Int).SetBytes(publicData.Digest())
	return input.Mod(input, ecc.BN254.ScalarField())
}
