package relayer

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	metrics "github.com/armon/go-metrics"

	"cosmossdk.io/log"

	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia/contract"
)

// Signer signs the digest of a transaction for the relayer account.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
}

// Broadcaster submits a signed transaction to the host chain and returns its hash.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx []byte) (string, error)
}

// Tx is a signed call of the sov-celestia contract on the host chain.
type Tx struct {
	ChainID   string          `json:"chain_id"`
	Signer    string          `json:"signer"`
	Nonce     uint64          `json:"nonce"`
	ClientID  string          `json:"client_id"`
	Msg       json.RawMessage `json:"msg"`
	Signature []byte          `json:"signature,omitempty"`
}

// SignBytes returns the digest signed by the relayer: the SHA-256 of the unsigned transaction.
func (tx Tx) SignBytes() ([]byte, error) {
	tx.Signature = nil
	bz, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(bz)
	return digest[:], nil
}

// Submitter submits sov-celestia client messages from one relayer account. Submissions of
// the account are ordered by its NonceManager.
type Submitter struct {
	cfg         Config
	nonces      *NonceManager
	signer      Signer
	broadcaster Broadcaster
	logger      log.Logger
}

// NewSubmitter returns a Submitter for the account and client of cfg.
func NewSubmitter(cfg Config, source NonceSource, signer Signer, broadcaster Broadcaster, logger log.Logger) (*Submitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Submitter{
		cfg:         cfg,
		nonces:      NewNonceManager(source, cfg.SignerAddress, cfg.LockTimeout),
		signer:      signer,
		broadcaster: broadcaster,
		logger:      logger.With("module", "sov-celestia-relayer", "client-id", cfg.ClientID),
	}, nil
}

// Nonces returns the nonce manager of the relayer account.
func (s *Submitter) Nonces() *NonceManager {
	return s.nonces
}

// SubmitUpdate submits a header or misbehaviour as an update_state call and returns the
// transaction hash.
func (s *Submitter) SubmitUpdate(ctx context.Context, clientMsg exported.ClientMessage) (string, error) {
	bz, err := sovcelestia.MarshalClientMessage(clientMsg)
	if err != nil {
		return "", err
	}

	return s.submit(ctx, "update_state", contract.SudoMsg{
		UpdateState: &contract.UpdateStateMsg{ClientMessage: contract.ClientMessage{Data: bz}},
	})
}

// SubmitMisbehaviour submits misbehaviour as an update_state_on_misbehaviour call and
// returns the transaction hash.
func (s *Submitter) SubmitMisbehaviour(ctx context.Context, misbehaviour *sovcelestia.Misbehaviour) (string, error) {
	bz, err := sovcelestia.MarshalClientMessage(misbehaviour)
	if err != nil {
		return "", err
	}

	return s.submit(ctx, "update_state_on_misbehaviour", contract.SudoMsg{
		UpdateStateOnMisbehaviour: &contract.UpdateStateOnMisbehaviourMsg{ClientMessage: contract.ClientMessage{Data: bz}},
	})
}

func (s *Submitter) submit(ctx context.Context, kind string, msg contract.SudoMsg) (string, error) {
	msgBz, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	var txHash string
	err = s.nonces.WithNonce(ctx, func(nonce uint64) error {
		tx := Tx{
			ChainID:  s.cfg.ChainID,
			Signer:   s.cfg.SignerAddress,
			Nonce:    nonce,
			ClientID: s.cfg.ClientID,
			Msg:      msgBz,
		}

		digest, err := tx.SignBytes()
		if err != nil {
			return err
		}
		if tx.Signature, err = s.signer.Sign(digest); err != nil {
			return fmt.Errorf("failed to sign %s transaction: %w", kind, err)
		}

		txBz, err := json.Marshal(tx)
		if err != nil {
			return err
		}

		submitCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
		defer cancel()

		txHash, err = s.broadcaster.Broadcast(submitCtx, txBz)
		if err != nil {
			return fmt.Errorf("failed to broadcast %s transaction with nonce %d: %w", kind, nonce, err)
		}

		s.logger.Info("submitted client message", "kind", kind, "nonce", nonce, "tx-hash", txHash)
		return nil
	})
	if err != nil {
		s.logger.Error("client message submission failed", "kind", kind, "error", err)
		metrics.IncrCounterWithLabels([]string{"sov_celestia", "relayer", "submit", "failure"}, 1, []metrics.Label{{Name: "kind", Value: kind}})
		return "", err
	}

	metrics.IncrCounterWithLabels([]string{"sov_celestia", "relayer", "submit", "success"}, 1, []metrics.Label{{Name: "kind", Value: kind}})
	return txHash, nil
}
