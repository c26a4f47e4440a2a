package relayer

import (
	"fmt"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/spf13/viper"

	host "github.com/sovereign-ibc/sov-celestia-lc/modules/core/24-host"
)

// EnvPrefix is the prefix of environment variables overriding the relayer configuration,
// e.g. SOVRLY_CLIENT_ID.
const EnvPrefix = "SOVRLY"

const (
	keyChainID       = "chain_id"
	keyClientID      = "client_id"
	keySignerAddress = "signer_address"
	keyLockTimeout   = "lock_timeout"
	keySubmitTimeout = "submit_timeout"
)

// Config is the configuration of a relayer submitting sov-celestia client messages to a host chain.
type Config struct {
	// ChainID is the chain id of the host chain the messages are submitted to.
	ChainID string `mapstructure:"chain_id"`
	// ClientID is the sov-celestia client on the host chain.
	ClientID string `mapstructure:"client_id"`
	// SignerAddress is the account whose nonce orders submissions.
	SignerAddress string `mapstructure:"signer_address"`
	// LockTimeout bounds the wait for the nonce lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	// SubmitTimeout bounds a single sign and broadcast round.
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
}

// DefaultConfig returns the configuration used for keys that are not set.
func DefaultConfig() Config {
	return Config{
		LockTimeout:   30 * time.Second,
		SubmitTimeout: time.Minute,
	}
}

// LoadConfig reads the configuration file at path, when path is not empty, and applies
// SOVRLY_ environment overrides on top of it.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(keyLockTimeout, defaults.LockTimeout)
	v.SetDefault(keySubmitTimeout, defaults.SubmitTimeout)
	// unset keys must be known to viper for environment overrides to apply
	v.SetDefault(keyChainID, "")
	v.SetDefault(keyClientID, "")
	v.SetDefault(keySignerAddress, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read relayer config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode relayer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every required field is set.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.ChainID) == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "chain_id cannot be empty")
	}
	if err := host.ClientIdentifierValidator(cfg.ClientID); err != nil {
		return errorsmod.Wrapf(ErrInvalidConfig, "invalid client_id: %v", err)
	}
	if strings.TrimSpace(cfg.SignerAddress) == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "signer_address cannot be empty")
	}
	if cfg.LockTimeout <= 0 {
		return errorsmod.Wrapf(ErrInvalidConfig, "lock_timeout must be positive, got %s", cfg.LockTimeout)
	}
	if cfg.SubmitTimeout <= 0 {
		return errorsmod.Wrapf(ErrInvalidConfig, "submit_timeout must be positive, got %s", cfg.SubmitTimeout)
	}
	return nil
}
