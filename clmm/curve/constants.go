package curve

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// ProgramVariant selects which deployed concentrated-liquidity program the
// assembled instructions target. The two deployments share state layouts but
// expose different entry points with different account lists.
type ProgramVariant uint8

const (
	// VariantClassic targets the original deployment (SPL-Token pools only).
	VariantClassic ProgramVariant = iota
	// VariantToken22 targets the Token-2022 aware deployment whose entry points
	// carry the extra mint, memo and token-2022 program accounts.
	VariantToken22
)

// Program IDs per variant.
var (
	ClassicProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	Token22ProgramID = solana.MustPublicKeyFromBase58("devi51mZmdwUJGU9hjN27vEz64Gps7uUefqxg27EAtH")

	MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

// ProgramID returns the on-chain program address for the variant.
func (v ProgramVariant) ProgramID() solana.PublicKey {
	if v == VariantToken22 {
		return Token22ProgramID
	}
	return ClassicProgramID
}

// Account key names used to derive anchor account discriminators.
var (
	AccountKeyPool        = "PoolState"
	AccountKeyAmmConfig   = "AmmConfig"
	AccountKeyPosition    = "PersonalPositionState"
	AccountKeyObservation = "ObservationState"
	AccountKeyReferral    = "ReferralAccount"
)

// Valid tick range of the program. Ticks outside fail with ErrPriceOutOfRange.
const (
	MinTick int32 = -443636
	MaxTick int32 = 443636

	// TickArraySize is the number of initialized ticks per tick-array account.
	TickArraySize int32 = 60
)

// Q64.64 fixed-point bounds, matching the program's own limits.
var (
	// MinSqrtPriceX64 is GetSqrtPriceAtTick(MinTick).
	MinSqrtPriceX64 = big.NewInt(4295048016)
	// MaxSqrtPriceX64 is GetSqrtPriceAtTick(MaxTick).
	MaxSqrtPriceX64, _ = new(big.Int).SetString("79226673521066979257578248091", 10)

	// Q64 is 2^64, the scale of a Q64.64 value.
	Q64 = new(big.Int).Lsh(big.NewInt(1), 64)
	// Q128 is 2^128.
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)

	// MaxU64 bounds every token amount the program moves.
	MaxU64 = new(big.Int).SetUint64(^uint64(0))
)

// Fee rates are expressed against FeeRateDenominator (parts per million).
// Creator, protocol and fund rates are shares carved out of the trade fee.
var (
	FeeRateDenominator = big.NewInt(1_000_000)

	// MaxTradeFeeRate caps the trade fee a config may carry (10%).
	MaxTradeFeeRate uint32 = 100_000
)

// Transfer-fee basis point scale of the token-2022 extension.
const MaxFeeBasisPoints uint16 = 10_000
