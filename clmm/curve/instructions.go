package curve

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/Topo-Labs/coinfair-solana-backend/u128"
)

// Method names per entry point and variant. The Token-2022 deployment exposes
// the same operations under v2 names with extended account lists.
var methodNames = map[ProgramVariant]struct {
	openPosition      string
	increaseLiquidity string
	decreaseLiquidity string
	swapBaseInput     string
	swapBaseOutput    string
}{
	VariantClassic: {
		openPosition:      "open_position",
		increaseLiquidity: "increase_liquidity",
		decreaseLiquidity: "decrease_liquidity",
		swapBaseInput:     "swap_base_input",
		swapBaseOutput:    "swap_base_output",
	},
	VariantToken22: {
		openPosition:      "open_position_v2",
		increaseLiquidity: "increase_liquidity_v2",
		decreaseLiquidity: "decrease_liquidity_v2",
		swapBaseInput:     "swap_base_input_v2",
		swapBaseOutput:    "swap_base_output_v2",
	},
}

// MethodDiscriminator returns the 8-byte sighash prefixed to an instruction's
// data, sha256("global:<name>")[..8].
func MethodDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("global:" + name))
	out := make([]byte, 8)
	copy(out, hash[:8])
	return out
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeU128(buf *bytes.Buffer, v bin.Uint128) {
	writeU64(buf, v.Lo)
	writeU64(buf, v.Hi)
}

func u128FromBig(v *big.Int) (bin.Uint128, error) {
	out, err := u128.FromBig(v)
	if err != nil {
		return bin.Uint128{}, fmt.Errorf("%w: value %s does not fit u128", ErrAmountOverflow, v)
	}
	return out, nil
}

func u64FromBig(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(MaxU64) > 0 {
		return 0, fmt.Errorf("%w: value %s does not fit u64", ErrAmountOverflow, v)
	}
	return v.Uint64(), nil
}

func requireKeys(keys ...solana.PublicKey) error {
	for _, key := range keys {
		if key.IsZero() {
			return fmt.Errorf("%w: required account missing", ErrInstructionBuild)
		}
	}
	return nil
}

// ReferralSlots is the fixed-arity referral tail of a swap's account list:
// the payer's referral record and the two reward token accounts. Absent
// levels carry the program ID as a sentinel; the arity never changes.
type ReferralSlots struct {
	Record       solana.PublicKey
	UpperReward  solana.PublicKey
	Upper2Reward solana.PublicKey
}

// SentinelReferralSlots fills every slot with the variant's program ID.
func SentinelReferralSlots(variant ProgramVariant) ReferralSlots {
	sentinel := variant.ProgramID()
	return ReferralSlots{Record: sentinel, UpperReward: sentinel, Upper2Reward: sentinel}
}

func (r ReferralSlots) metas(variant ProgramVariant) solana.AccountMetaSlice {
	sentinel := variant.ProgramID()
	slot := func(key solana.PublicKey) *solana.AccountMeta {
		if key.IsZero() {
			key = sentinel
		}
		// Sentinel slots stay read-only; live reward accounts are written to.
		return solana.NewAccountMeta(key, !key.Equals(sentinel), false)
	}
	return solana.AccountMetaSlice{slot(r.Record), slot(r.UpperReward), slot(r.Upper2Reward)}
}

// SwapAccounts names every account a swap entry point touches.
type SwapAccounts struct {
	Payer              solana.PublicKey
	AmmConfig          solana.PublicKey
	Pool               solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	Observation        solana.PublicKey
	InputMint          solana.PublicKey
	OutputMint         solana.PublicKey
	Referral           ReferralSlots
	TickArrays         []solana.PublicKey
}

// swapMetas is the single source of truth for swap account order; both swap
// entry points and both variants go through it.
func swapMetas(variant ProgramVariant, accounts SwapAccounts) (solana.AccountMetaSlice, error) {
	if err := requireKeys(
		accounts.Payer, accounts.AmmConfig, accounts.Pool,
		accounts.InputTokenAccount, accounts.OutputTokenAccount,
		accounts.InputVault, accounts.OutputVault, accounts.Observation,
	); err != nil {
		return nil, err
	}
	if len(accounts.TickArrays) == 0 {
		return nil, fmt.Errorf("%w: swap requires at least one tick array", ErrInstructionBuild)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Payer, false, true),
		solana.NewAccountMeta(accounts.AmmConfig, false, false),
		solana.NewAccountMeta(accounts.Pool, true, false),
		solana.NewAccountMeta(accounts.InputTokenAccount, true, false),
		solana.NewAccountMeta(accounts.OutputTokenAccount, true, false),
		solana.NewAccountMeta(accounts.InputVault, true, false),
		solana.NewAccountMeta(accounts.OutputVault, true, false),
		solana.NewAccountMeta(accounts.Observation, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	if variant == VariantToken22 {
		if err := requireKeys(accounts.InputMint, accounts.OutputMint); err != nil {
			return nil, err
		}
		metas = append(metas,
			solana.NewAccountMeta(solana.Token2022ProgramID, false, false),
			solana.NewAccountMeta(MemoProgramID, false, false),
			solana.NewAccountMeta(accounts.InputMint, false, false),
			solana.NewAccountMeta(accounts.OutputMint, false, false),
		)
	}
	metas = append(metas, accounts.Referral.metas(variant)...)
	for _, tickArray := range accounts.TickArrays {
		metas = append(metas, solana.NewAccountMeta(tickArray, true, false))
	}
	return metas, nil
}

// NewSwapBaseInputInstruction builds the exact-in swap instruction.
func NewSwapBaseInputInstruction(
	variant ProgramVariant,
	amountIn *big.Int,
	minimumAmountOut *big.Int,
	sqrtPriceLimitX64 *big.Int,
	accounts SwapAccounts,
) (solana.Instruction, error) {
	metas, err := swapMetas(variant, accounts)
	if err != nil {
		return nil, err
	}

	in, err := u64FromBig(amountIn)
	if err != nil {
		return nil, err
	}
	minOut, err := u64FromBig(minimumAmountOut)
	if err != nil {
		return nil, err
	}
	limit, err := u128FromBig(sqrtPriceLimitX64)
	if err != nil {
		return nil, err
	}

	data := new(bytes.Buffer)
	data.Write(MethodDiscriminator(methodNames[variant].swapBaseInput))
	writeU64(data, in)
	writeU64(data, minOut)
	writeU128(data, limit)

	return solana.NewInstruction(variant.ProgramID(), metas, data.Bytes()), nil
}

// NewSwapBaseOutputInstruction builds the exact-out swap instruction.
func NewSwapBaseOutputInstruction(
	variant ProgramVariant,
	maximumAmountIn *big.Int,
	amountOut *big.Int,
	sqrtPriceLimitX64 *big.Int,
	accounts SwapAccounts,
) (solana.Instruction, error) {
	metas, err := swapMetas(variant, accounts)
	if err != nil {
		return nil, err
	}

	maxIn, err := u64FromBig(maximumAmountIn)
	if err != nil {
		return nil, err
	}
	out, err := u64FromBig(amountOut)
	if err != nil {
		return nil, err
	}
	limit, err := u128FromBig(sqrtPriceLimitX64)
	if err != nil {
		return nil, err
	}

	data := new(bytes.Buffer)
	data.Write(MethodDiscriminator(methodNames[variant].swapBaseOutput))
	writeU64(data, maxIn)
	writeU64(data, out)
	writeU128(data, limit)

	return solana.NewInstruction(variant.ProgramID(), metas, data.Bytes()), nil
}

// PositionAccounts names every account the position entry points touch.
type PositionAccounts struct {
	Payer              solana.PublicKey
	PositionNftOwner   solana.PublicKey
	PositionNftMint    solana.PublicKey
	PositionNftAccount solana.PublicKey
	Pool               solana.PublicKey
	PersonalPosition   solana.PublicKey
	TickArrayLower     solana.PublicKey
	TickArrayUpper     solana.PublicKey
	TokenAccount0      solana.PublicKey
	TokenAccount1      solana.PublicKey
	TokenVault0        solana.PublicKey
	TokenVault1        solana.PublicKey
	Mint0              solana.PublicKey
	Mint1              solana.PublicKey
}

func (a PositionAccounts) liquidityMetas(variant ProgramVariant, ownerSigns bool) (solana.AccountMetaSlice, error) {
	if err := requireKeys(
		a.PositionNftOwner, a.PositionNftAccount, a.Pool, a.PersonalPosition,
		a.TickArrayLower, a.TickArrayUpper,
		a.TokenAccount0, a.TokenAccount1, a.TokenVault0, a.TokenVault1,
	); err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.PositionNftOwner, false, ownerSigns),
		solana.NewAccountMeta(a.PositionNftAccount, false, false),
		solana.NewAccountMeta(a.Pool, true, false),
		solana.NewAccountMeta(a.PersonalPosition, true, false),
		solana.NewAccountMeta(a.TickArrayLower, true, false),
		solana.NewAccountMeta(a.TickArrayUpper, true, false),
		solana.NewAccountMeta(a.TokenAccount0, true, false),
		solana.NewAccountMeta(a.TokenAccount1, true, false),
		solana.NewAccountMeta(a.TokenVault0, true, false),
		solana.NewAccountMeta(a.TokenVault1, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	if variant == VariantToken22 {
		if err := requireKeys(a.Mint0, a.Mint1); err != nil {
			return nil, err
		}
		metas = append(metas,
			solana.NewAccountMeta(solana.Token2022ProgramID, false, false),
			solana.NewAccountMeta(a.Mint0, false, false),
			solana.NewAccountMeta(a.Mint1, false, false),
		)
	}
	return metas, nil
}

// OpenPositionArgs are the numeric arguments of the open entry point.
type OpenPositionArgs struct {
	TickLowerIndex           int32
	TickUpperIndex           int32
	TickArrayLowerStartIndex int32
	TickArrayUpperStartIndex int32
	Liquidity                *big.Int
	Amount0Max               *big.Int
	Amount1Max               *big.Int
}

// NewOpenPositionInstruction builds the open-position instruction, minting the
// position NFT and seeding the range with liquidity.
func NewOpenPositionInstruction(variant ProgramVariant, args OpenPositionArgs, accounts PositionAccounts) (solana.Instruction, error) {
	if err := requireKeys(
		accounts.Payer, accounts.PositionNftOwner, accounts.PositionNftMint,
		accounts.PositionNftAccount, accounts.Pool, accounts.PersonalPosition,
		accounts.TickArrayLower, accounts.TickArrayUpper,
		accounts.TokenAccount0, accounts.TokenAccount1,
		accounts.TokenVault0, accounts.TokenVault1,
	); err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Payer, true, true),
		solana.NewAccountMeta(accounts.PositionNftOwner, false, false),
		solana.NewAccountMeta(accounts.PositionNftMint, true, true),
		solana.NewAccountMeta(accounts.PositionNftAccount, true, false),
		solana.NewAccountMeta(accounts.Pool, true, false),
		solana.NewAccountMeta(accounts.PersonalPosition, true, false),
		solana.NewAccountMeta(accounts.TickArrayLower, true, false),
		solana.NewAccountMeta(accounts.TickArrayUpper, true, false),
		solana.NewAccountMeta(accounts.TokenAccount0, true, false),
		solana.NewAccountMeta(accounts.TokenAccount1, true, false),
		solana.NewAccountMeta(accounts.TokenVault0, true, false),
		solana.NewAccountMeta(accounts.TokenVault1, true, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
	}
	if variant == VariantToken22 {
		if err := requireKeys(accounts.Mint0, accounts.Mint1); err != nil {
			return nil, err
		}
		metas = append(metas,
			solana.NewAccountMeta(solana.Token2022ProgramID, false, false),
			solana.NewAccountMeta(accounts.Mint0, false, false),
			solana.NewAccountMeta(accounts.Mint1, false, false),
		)
	}

	liquidity, err := u128FromBig(args.Liquidity)
	if err != nil {
		return nil, err
	}
	amount0Max, err := u64FromBig(args.Amount0Max)
	if err != nil {
		return nil, err
	}
	amount1Max, err := u64FromBig(args.Amount1Max)
	if err != nil {
		return nil, err
	}

	data := new(bytes.Buffer)
	data.Write(MethodDiscriminator(methodNames[variant].openPosition))
	writeI32(data, args.TickLowerIndex)
	writeI32(data, args.TickUpperIndex)
	writeI32(data, args.TickArrayLowerStartIndex)
	writeI32(data, args.TickArrayUpperStartIndex)
	writeU128(data, liquidity)
	writeU64(data, amount0Max)
	writeU64(data, amount1Max)

	return solana.NewInstruction(variant.ProgramID(), metas, data.Bytes()), nil
}

// NewIncreaseLiquidityInstruction builds the increase-liquidity instruction.
func NewIncreaseLiquidityInstruction(
	variant ProgramVariant,
	liquidity, amount0Max, amount1Max *big.Int,
	accounts PositionAccounts,
) (solana.Instruction, error) {
	metas, err := accounts.liquidityMetas(variant, true)
	if err != nil {
		return nil, err
	}

	liq, err := u128FromBig(liquidity)
	if err != nil {
		return nil, err
	}
	max0, err := u64FromBig(amount0Max)
	if err != nil {
		return nil, err
	}
	max1, err := u64FromBig(amount1Max)
	if err != nil {
		return nil, err
	}

	data := new(bytes.Buffer)
	data.Write(MethodDiscriminator(methodNames[variant].increaseLiquidity))
	writeU128(data, liq)
	writeU64(data, max0)
	writeU64(data, max1)

	return solana.NewInstruction(variant.ProgramID(), metas, data.Bytes()), nil
}

// NewDecreaseLiquidityInstruction builds the decrease-liquidity instruction.
// The minimum amounts bound slippage from below: the program rejects the
// transaction if it cannot pay out at least these.
func NewDecreaseLiquidityInstruction(
	variant ProgramVariant,
	liquidity, amount0Min, amount1Min *big.Int,
	accounts PositionAccounts,
) (solana.Instruction, error) {
	metas, err := accounts.liquidityMetas(variant, true)
	if err != nil {
		return nil, err
	}

	liq, err := u128FromBig(liquidity)
	if err != nil {
		return nil, err
	}
	min0, err := u64FromBig(amount0Min)
	if err != nil {
		return nil, err
	}
	min1, err := u64FromBig(amount1Min)
	if err != nil {
		return nil, err
	}

	data := new(bytes.Buffer)
	data.Write(MethodDiscriminator(methodNames[variant].decreaseLiquidity))
	writeU128(data, liq)
	writeU64(data, min0)
	writeU64(data, min1)

	return solana.NewInstruction(variant.ProgramID(), metas, data.Bytes()), nil
}
