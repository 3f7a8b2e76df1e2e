package clmm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	solanago "github.com/Topo-Labs/coinfair-solana-backend/solana"
)

// ConfigStore is the secondary tier of the AMM config resolver. Absent
// entries return (nil, nil). Put failures never abort the caller's operation.
type ConfigStore interface {
	GetConfig(ctx context.Context, address solana.PublicKey) (*curve.AmmConfig, error)
	PutConfig(ctx context.Context, address solana.PublicKey, cfg *curve.AmmConfig) error
}

// MemoryConfigStore is a process-local ConfigStore.
type MemoryConfigStore struct {
	mu      sync.RWMutex
	configs map[solana.PublicKey]curve.AmmConfig
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{configs: make(map[solana.PublicKey]curve.AmmConfig)}
}

func (s *MemoryConfigStore) GetConfig(_ context.Context, address solana.PublicKey) (*curve.AmmConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[address]
	if !ok {
		return nil, nil
	}
	out := cfg
	return &out, nil
}

func (s *MemoryConfigStore) PutConfig(_ context.Context, address solana.PublicKey, cfg *curve.AmmConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[address] = *cfg
	return nil
}

type cacheEntry struct {
	config    curve.AmmConfig
	fetchedAt time.Time
}

// ConfigCache holds AMM configs keyed by address with a freshness window.
// The clock is injected so tests can advance time explicitly.
type ConfigCache struct {
	mu      sync.Mutex
	clk     clock.Clock
	ttl     time.Duration
	entries map[solana.PublicKey]cacheEntry
}

func NewConfigCache(clk clock.Clock, ttl time.Duration) *ConfigCache {
	return &ConfigCache{
		clk:     clk,
		ttl:     ttl,
		entries: make(map[solana.PublicKey]cacheEntry),
	}
}

// Get returns the cached config and whether it is still within the freshness
// window. Stale entries are returned too: the resolver uses them as the last
// tier.
func (c *ConfigCache) Get(address solana.PublicKey) (*curve.AmmConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[address]
	if !ok {
		return nil, false
	}
	cfg := entry.config
	return &cfg, c.clk.Now().Sub(entry.fetchedAt) < c.ttl
}

func (c *ConfigCache) Put(address solana.PublicKey, cfg *curve.AmmConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[address] = cacheEntry{config: *cfg, fetchedAt: c.clk.Now()}
}

// AmmConfig resolves a config with the three-tier precedence: fresh cache,
// then chain, then secondary store, then a stale cache entry. Each tier's
// failure falls through to the next; successful chain reads are written back
// to cache and store best-effort.
func (m *Clmm) AmmConfig(ctx context.Context, address solana.PublicKey) (*curve.AmmConfig, error) {
	if cfg, fresh := m.cache.Get(address); fresh {
		return cfg, nil
	}

	cfg, chainErr := m.fetchAmmConfig(ctx, address)
	if chainErr == nil {
		m.cache.Put(address, cfg)
		if m.store != nil {
			if err := m.store.PutConfig(ctx, address, cfg); err != nil {
				m.logger.Warn("persist amm config",
					zap.Stringer("config", address),
					zap.Error(err))
			}
		}
		return cfg, nil
	}
	m.logger.Warn("read amm config from chain",
		zap.Stringer("config", address),
		zap.Error(chainErr))

	if m.store != nil {
		stored, err := m.store.GetConfig(ctx, address)
		if err != nil {
			m.logger.Warn("read amm config from store",
				zap.Stringer("config", address),
				zap.Error(err))
		} else if stored != nil {
			m.cache.Put(address, stored)
			return stored, nil
		}
	}

	if cfg, _ := m.cache.Get(address); cfg != nil {
		m.logger.Warn("serving stale amm config", zap.Stringer("config", address))
		return cfg, nil
	}
	return nil, chainErr
}

func (m *Clmm) fetchAmmConfig(ctx context.Context, address solana.PublicKey) (*curve.AmmConfig, error) {
	out, err := solanago.GetAccountInfo(ctx, m.rpcClient, address)
	if err != nil {
		return nil, fmt.Errorf("%w: amm config %s: %v", curve.ErrChainRead, address, err)
	}
	return curve.DecodeAmmConfig(out.GetBinary())
}
