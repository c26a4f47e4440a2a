package types

import (
	"errors"

	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
)

var _ exported.GenesisMetadata = GenesisMetadata{}

// GenesisMetadata is a key/value pair of client-specific metadata exported from the client store.
type GenesisMetadata struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// NewGenesisMetadata is a constructor for GenesisMetadata
func NewGenesisMetadata(key, val []byte) GenesisMetadata {
	return GenesisMetadata{
		Key:   key,
		Value: val,
	}
}

// GetKey returns the key of metadata. Implements exported.GenesisMetadata interface.
func (gm GenesisMetadata) GetKey() []byte {
	return gm.Key
}

// GetValue returns the value of metadata. Implements exported.GenesisMetadata interface.
func (gm GenesisMetadata) GetValue() []byte {
	return gm.Value
}

// Validate ensures key and value of metadata are not empty
func (gm GenesisMetadata) Validate() error {
	if len(gm.Key) == 0 {
		return errors.New("genesis metadata key cannot be empty")
	}
	if len(gm.Value) == 0 {
		return errors.New("genesis metadata value cannot be empty")
	}
	return nil
}
