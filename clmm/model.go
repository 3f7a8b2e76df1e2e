package clmm

import (
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	"github.com/Topo-Labs/coinfair-solana-backend/solana/token2022"
	"github.com/Topo-Labs/coinfair-solana-backend/u128"
)

func u128Big(v bin.Uint128) *big.Int { return u128.Big(v) }

// Pool is the snapshot of everything a quote or position operation needs:
// pool account, fee config, mint facts and live reserves. Fetched once per
// request and never mutated.
type Pool struct {
	Address solana.PublicKey
	State   *curve.PoolState
	Config  *curve.AmmConfig

	// Transfer-fee configs of the two mints; nil when a mint charges none.
	TransferFee0 *token2022.TransferFeeConfig
	TransferFee1 *token2022.TransferFeeConfig

	// Vault balances net of accrued protocol and fund fees.
	Reserve0 *big.Int
	Reserve1 *big.Int

	// Current epoch, needed to pick the active transfer-fee schedule.
	Epoch uint64
}

// FeeRates returns the pool's effective fee cascade.
func (p *Pool) FeeRates() curve.FeeRates {
	return p.Config.FeeRates(p.State.EnableCreatorFee != 0)
}

// SwapQuote is the engine's answer to a quote request. Ephemeral; never
// persisted.
type SwapQuote struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey

	// AmountIn is the gross input leaving the user's wallet; AmountOut the
	// net output arriving in it, both inclusive of transfer fees.
	AmountIn  *big.Int
	AmountOut *big.Int

	// Threshold bounds the counter-amount: minimum output for exact-in,
	// maximum input for exact-out.
	Threshold *big.Int

	Fees           curve.FeeBreakdown
	TransferFeeIn  *big.Int
	TransferFeeOut *big.Int

	PriceImpactPct decimal.Decimal
	Route          string
}

// PositionSnapshot is a read-only view of an open position. Owner is the
// current holder of the position NFT; the zero key when the NFT has no
// holder.
type PositionSnapshot struct {
	Pool    solana.PublicKey
	NftMint solana.PublicKey
	Owner   solana.PublicKey

	TickLower int32
	TickUpper int32
	Liquidity *big.Int

	TokenFeesOwed0 uint64
	TokenFeesOwed1 uint64

	PriceLower decimal.Decimal
	PriceUpper decimal.Decimal
}

// PositionPlan is the computed outcome of a position operation before it is
// turned into instructions: the liquidity delta and the slippage- and
// transfer-fee-adjusted token bounds.
type PositionPlan struct {
	TickLower int32
	TickUpper int32
	Liquidity *big.Int

	// Unadjusted curve amounts.
	Amount0 *big.Int
	Amount1 *big.Int

	// Slippage-widened (open/increase) or narrowed (decrease) bounds, after
	// transfer-fee adjustment. Maxima for deposits, minima for withdrawals.
	Amount0Bound *big.Int
	Amount1Bound *big.Int
}
