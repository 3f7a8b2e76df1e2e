// Package clmm orchestrates quote, position and referral flows against the
// concentrated-liquidity program: it loads chain state, runs the curve math
// and assembles the final instructions.
package clmm

import (
	"context"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
)

const defaultConfigTTL = 5 * time.Minute

type Clmm struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client
	variant   curve.ProgramVariant
	logger    *zap.Logger
	payer     *solana.Wallet

	cache *ConfigCache
	store ConfigStore

	// readReferral fetches one referral record, (nil, nil) when absent.
	// Defaults to the chain read; tests swap in a fixture.
	readReferral func(ctx context.Context, owner solana.PublicKey) (*curve.ReferralAccount, error)
}

func NewClmm(
	rpcClient *rpc.Client,
	opts ...Option,
) *Clmm {
	o := &Clmm{
		rpcClient: rpcClient,
		variant:   curve.VariantClassic,
		logger:    zap.NewNop(),
		cache:     NewConfigCache(clock.New(), defaultConfigTTL),
	}
	for _, fn := range opts {
		fn(o)
	}
	o.readReferral = o.readReferralRecord
	return o
}

type Option func(*Clmm)

// WithWsClient enables submit-and-confirm flows; without it only instruction
// building is available.
func WithWsClient(wsClient *ws.Client) Option {
	return func(o *Clmm) {
		o.wsClient = wsClient
	}
}

// WithVariant selects the program deployment to target.
func WithVariant(variant curve.ProgramVariant) Option {
	return func(o *Clmm) {
		o.variant = variant
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Clmm) {
		o.logger = logger
	}
}

// WithPayer sets the default fee payer and signer for submit flows.
func WithPayer(payer *solana.Wallet) Option {
	return func(o *Clmm) {
		o.payer = payer
	}
}

// WithConfigStore attaches a secondary store consulted when the chain read of
// an AMM config fails. Writes to it are best-effort.
func WithConfigStore(store ConfigStore) Option {
	return func(o *Clmm) {
		o.store = store
	}
}

// WithConfigCache replaces the config cache, letting tests inject a mock
// clock or a custom TTL.
func WithConfigCache(cache *ConfigCache) Option {
	return func(o *Clmm) {
		o.cache = cache
	}
}

// Variant returns the program deployment this service targets.
func (m *Clmm) Variant() curve.ProgramVariant {
	return m.variant
}
