package types

import (
	"fmt"

	"cosmossdk.io/store/prefix"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"

	host "github.com/sovereign-ibc/sov-celestia-lc/modules/core/24-host"
)

// StoreProvider returns isolated client stores. The light client module never sees the
// parent store directly.
type StoreProvider interface {
	// ClientStore returns isolated prefix store for each client so they can read/write in separate namespaces.
	ClientStore(ctx sdk.Context, clientID string) storetypes.KVStore
}

var _ StoreProvider = (*storeProvider)(nil)

// storeProvider implements the StoreProvider interface and encapsulates the IBC core store key.
type storeProvider struct {
	storeKey storetypes.StoreKey
}

// NewStoreProvider creates and returns a new StoreProvider.
func NewStoreProvider(storeKey storetypes.StoreKey) StoreProvider {
	return storeProvider{
		storeKey: storeKey,
	}
}

// ClientStore returns isolated prefix store for each client so they can read/write in separate namespaces.
func (s storeProvider) ClientStore(ctx sdk.Context, clientID string) storetypes.KVStore {
	clientPrefix := []byte(fmt.Sprintf("%s/%s/", host.KeyClientStorePrefix, clientID))
	return prefix.NewStore(ctx.KVStore(s.storeKey), clientPrefix)
}
