package clmm

import (
	"context"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
)

func TestConfigCacheFreshness(t *testing.T) {
	mock := clock.NewMock()
	cache := NewConfigCache(mock, time.Minute)
	address := solana.NewWallet().PublicKey()

	cfg, fresh := cache.Get(address)
	assert.Nil(t, cfg)
	assert.False(t, fresh)

	cache.Put(address, &curve.AmmConfig{Index: 7, TradeFeeRate: 3_000})

	cfg, fresh = cache.Get(address)
	require.NotNil(t, cfg)
	assert.True(t, fresh)
	assert.Equal(t, uint16(7), cfg.Index)

	// Past the TTL the entry is still served, just no longer fresh.
	mock.Add(2 * time.Minute)
	cfg, fresh = cache.Get(address)
	require.NotNil(t, cfg)
	assert.False(t, fresh)
	assert.Equal(t, uint16(7), cfg.Index)
}

func TestConfigCacheCopiesEntries(t *testing.T) {
	cache := NewConfigCache(clock.NewMock(), time.Minute)
	address := solana.NewWallet().PublicKey()

	original := &curve.AmmConfig{TradeFeeRate: 3_000}
	cache.Put(address, original)
	original.TradeFeeRate = 9_999

	cfg, _ := cache.Get(address)
	require.NotNil(t, cfg)
	assert.Equal(t, uint32(3_000), cfg.TradeFeeRate, "cache must not alias the caller's struct")
}

func TestMemoryConfigStore(t *testing.T) {
	store := NewMemoryConfigStore()
	ctx := context.Background()
	address := solana.NewWallet().PublicKey()

	cfg, err := store.GetConfig(ctx, address)
	require.NoError(t, err)
	assert.Nil(t, cfg, "absent entries are (nil, nil)")

	require.NoError(t, store.PutConfig(ctx, address, &curve.AmmConfig{Index: 3, FundFeeRate: 40_000}))

	cfg, err = store.GetConfig(ctx, address)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, uint16(3), cfg.Index)
	assert.Equal(t, uint32(40_000), cfg.FundFeeRate)
}

func TestAmmConfigServedFromFreshCache(t *testing.T) {
	mock := clock.NewMock()
	cache := NewConfigCache(mock, time.Minute)
	address := solana.NewWallet().PublicKey()
	cache.Put(address, &curve.AmmConfig{Index: 42})

	// rpc client is nil: any chain read would panic, so a hit proves the
	// resolver stopped at the cache tier.
	m := NewClmm(nil, WithConfigCache(cache))
	cfg, err := m.AmmConfig(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), cfg.Index)
}
