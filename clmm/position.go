package clmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	solanago "github.com/Topo-Labs/coinfair-solana-backend/solana"
)

// OpenPositionRequest opens (or, for increase, tops up) a position over a
// human price range with a single-sided deposit. Amount is the deposit in the
// chosen token, gross of transfer fees.
type OpenPositionRequest struct {
	Pool           solana.PublicKey
	PriceLower     decimal.Decimal
	PriceUpper     decimal.Decimal
	Amount         *big.Int
	AmountIsToken0 bool
	SlippagePct    decimal.Decimal
}

// DecreaseLiquidityRequest removes liquidity from an existing position over
// the same price range it was opened with.
type DecreaseLiquidityRequest struct {
	Pool        solana.PublicKey
	PriceLower  decimal.Decimal
	PriceUpper  decimal.Decimal
	Liquidity   *big.Int
	SlippagePct decimal.Decimal
}

func validateSlippage(slippagePct decimal.Decimal) error {
	if slippagePct.Sign() < 0 || slippagePct.Cmp(decimal.NewFromInt(100)) > 0 {
		return fmt.Errorf("%w: slippage must be within [0, 100]%%", curve.ErrInvalidRequest)
	}
	return nil
}

func (req *OpenPositionRequest) validate() error {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit amount must be positive", curve.ErrInvalidRequest)
	}
	return validateSlippage(req.SlippagePct)
}

func (req *DecreaseLiquidityRequest) validate() error {
	if req.Liquidity == nil || req.Liquidity.Sign() <= 0 {
		return fmt.Errorf("%w: liquidity must be positive", curve.ErrInvalidRequest)
	}
	return validateSlippage(req.SlippagePct)
}

// planDeposit runs the deposit math: liquidity bought by the single-sided
// amount at the spacing-adjusted range, both token amounts owed for it, and
// the slippage- and transfer-fee-widened maxima.
func (m *Clmm) planDeposit(pool *Pool, rng *curve.TickRange, req *OpenPositionRequest) (*PositionPlan, error) {
	sqrtCurrent := u128Big(pool.State.SqrtPriceX64)

	var liquidity *big.Int
	if req.AmountIsToken0 {
		netAmount, _ := curve.TransferFeeExcludedAmount(pool.TransferFee0, req.Amount, pool.Epoch)
		liquidity = curve.LiquidityFromSingleAmount0(sqrtCurrent, rng.SqrtPriceLower, rng.SqrtPriceUpper, netAmount)
	} else {
		netAmount, _ := curve.TransferFeeExcludedAmount(pool.TransferFee1, req.Amount, pool.Epoch)
		liquidity = curve.LiquidityFromSingleAmount1(sqrtCurrent, rng.SqrtPriceLower, rng.SqrtPriceUpper, netAmount)
	}
	if liquidity.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deposit buys no liquidity in this range", curve.ErrInvalidRequest)
	}

	amount0, amount1, err := curve.AmountsFromLiquidity(sqrtCurrent, rng.SqrtPriceLower, rng.SqrtPriceUpper, liquidity, true)
	if err != nil {
		return nil, err
	}

	max0 := curve.MaxAmountWithSlippage(amount0, req.SlippagePct)
	max1 := curve.MaxAmountWithSlippage(amount1, req.SlippagePct)
	max0, _ = curve.TransferFeeIncludedAmount(pool.TransferFee0, max0, pool.Epoch)
	max1, _ = curve.TransferFeeIncludedAmount(pool.TransferFee1, max1, pool.Epoch)

	return &PositionPlan{
		TickLower:    rng.TickLower,
		TickUpper:    rng.TickUpper,
		Liquidity:    liquidity,
		Amount0:      amount0,
		Amount1:      amount1,
		Amount0Bound: max0,
		Amount1Bound: max1,
	}, nil
}

// BuildOpenPosition assembles the open-position instructions for a fresh NFT
// mint. A position by the same owner on the same pool and tick range must not
// already exist.
func (m *Clmm) BuildOpenPosition(ctx context.Context, owner, nftMint solana.PublicKey, req *OpenPositionRequest) ([]solana.Instruction, *PositionPlan, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, nil, err
	}
	rng, err := curve.PriceRangeToTicks(req.PriceLower, req.PriceUpper,
		pool.State.MintDecimals0, pool.State.MintDecimals1, int32(pool.State.TickSpacing))
	if err != nil {
		return nil, nil, err
	}

	existing, err := m.findPosition(ctx, owner, req.Pool, rng.TickLower, rng.TickUpper)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: position [%d, %d] on pool %s",
			curve.ErrPositionAlreadyExists, rng.TickLower, rng.TickUpper, req.Pool)
	}

	plan, err := m.planDeposit(pool, rng, req)
	if err != nil {
		return nil, nil, err
	}

	accounts, prep, err := m.positionAccounts(ctx, owner, nftMint, pool, rng, plan, true)
	if err != nil {
		return nil, nil, err
	}
	accounts.Payer = owner
	accounts.PositionNftMint = nftMint

	args := curve.OpenPositionArgs{
		TickLowerIndex:           rng.TickLower,
		TickUpperIndex:           rng.TickUpper,
		TickArrayLowerStartIndex: curve.TickArrayStartIndex(rng.TickLower, int32(pool.State.TickSpacing)),
		TickArrayUpperStartIndex: curve.TickArrayStartIndex(rng.TickUpper, int32(pool.State.TickSpacing)),
		Liquidity:                plan.Liquidity,
		Amount0Max:               plan.Amount0Bound,
		Amount1Max:               plan.Amount1Bound,
	}
	openIx, err := curve.NewOpenPositionInstruction(m.variant, args, *accounts)
	if err != nil {
		return nil, nil, err
	}

	instructions := append(prep, openIx)
	instructions = append(instructions, m.unwrapAfter(pool, accounts)...)

	m.logger.Debug("open position planned",
		zap.Stringer("pool", req.Pool),
		zap.Int32("tick_lower", rng.TickLower),
		zap.Int32("tick_upper", rng.TickUpper),
		zap.String("liquidity", plan.Liquidity.String()))
	return solanago.MergeInstructions(instructions), plan, nil
}

// OpenPosition generates a fresh position NFT, builds, signs and submits the
// open. Returns the signature, the NFT mint identifying the position, and the
// executed plan.
func (m *Clmm) OpenPosition(ctx context.Context, payer *solana.Wallet, req *OpenPositionRequest) (string, solana.PublicKey, *PositionPlan, error) {
	wallet, err := m.signingWallet(payer)
	if err != nil {
		return "", solana.PublicKey{}, nil, err
	}
	nft := solana.NewWallet()

	instructions, plan, err := m.BuildOpenPosition(ctx, wallet.PublicKey(), nft.PublicKey(), req)
	if err != nil {
		return "", solana.PublicKey{}, nil, err
	}
	sig, err := m.submit(ctx, instructions, wallet, nft)
	if err != nil {
		return "", solana.PublicKey{}, nil, err
	}
	return sig, nft.PublicKey(), plan, nil
}

// BuildIncreaseLiquidity tops up an existing position resolved by (owner,
// pool, tick range); the position must exist.
func (m *Clmm) BuildIncreaseLiquidity(ctx context.Context, owner solana.PublicKey, req *OpenPositionRequest) ([]solana.Instruction, *PositionPlan, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, nil, err
	}
	rng, err := curve.PriceRangeToTicks(req.PriceLower, req.PriceUpper,
		pool.State.MintDecimals0, pool.State.MintDecimals1, int32(pool.State.TickSpacing))
	if err != nil {
		return nil, nil, err
	}

	position, err := m.resolveExistingPosition(ctx, owner, req.Pool, rng)
	if err != nil {
		return nil, nil, err
	}

	plan, err := m.planDeposit(pool, rng, req)
	if err != nil {
		return nil, nil, err
	}

	accounts, prep, err := m.positionAccounts(ctx, owner, position.NftMint, pool, rng, plan, true)
	if err != nil {
		return nil, nil, err
	}

	increaseIx, err := curve.NewIncreaseLiquidityInstruction(m.variant, plan.Liquidity, plan.Amount0Bound, plan.Amount1Bound, *accounts)
	if err != nil {
		return nil, nil, err
	}

	instructions := append(prep, increaseIx)
	instructions = append(instructions, m.unwrapAfter(pool, accounts)...)
	return solanago.MergeInstructions(instructions), plan, nil
}

// IncreaseLiquidity builds, signs and submits an increase on an existing
// position.
func (m *Clmm) IncreaseLiquidity(ctx context.Context, payer *solana.Wallet, req *OpenPositionRequest) (string, *PositionPlan, error) {
	wallet, err := m.signingWallet(payer)
	if err != nil {
		return "", nil, err
	}
	instructions, plan, err := m.BuildIncreaseLiquidity(ctx, wallet.PublicKey(), req)
	if err != nil {
		return "", nil, err
	}
	sig, err := m.submit(ctx, instructions, wallet)
	if err != nil {
		return "", nil, err
	}
	return sig, plan, nil
}

// BuildDecreaseLiquidity removes liquidity from an existing position. The
// returned bounds are minima: slippage-narrowed and reduced by the transfer
// fee, the least the owner accepts to receive.
func (m *Clmm) BuildDecreaseLiquidity(ctx context.Context, owner solana.PublicKey, req *DecreaseLiquidityRequest) ([]solana.Instruction, *PositionPlan, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, nil, err
	}
	rng, err := curve.PriceRangeToTicks(req.PriceLower, req.PriceUpper,
		pool.State.MintDecimals0, pool.State.MintDecimals1, int32(pool.State.TickSpacing))
	if err != nil {
		return nil, nil, err
	}

	position, err := m.resolveExistingPosition(ctx, owner, req.Pool, rng)
	if err != nil {
		return nil, nil, err
	}
	if req.Liquidity.Cmp(u128Big(position.Liquidity)) > 0 {
		return nil, nil, fmt.Errorf("%w: position holds less liquidity than requested", curve.ErrInvalidRequest)
	}

	sqrtCurrent := u128Big(pool.State.SqrtPriceX64)
	amount0, amount1, err := curve.AmountsFromLiquidity(sqrtCurrent, rng.SqrtPriceLower, rng.SqrtPriceUpper, req.Liquidity, false)
	if err != nil {
		return nil, nil, err
	}

	min0 := curve.MinAmountWithSlippage(amount0, req.SlippagePct)
	min1 := curve.MinAmountWithSlippage(amount1, req.SlippagePct)
	min0, _ = curve.TransferFeeExcludedAmount(pool.TransferFee0, min0, pool.Epoch)
	min1, _ = curve.TransferFeeExcludedAmount(pool.TransferFee1, min1, pool.Epoch)

	plan := &PositionPlan{
		TickLower:    rng.TickLower,
		TickUpper:    rng.TickUpper,
		Liquidity:    new(big.Int).Set(req.Liquidity),
		Amount0:      amount0,
		Amount1:      amount1,
		Amount0Bound: min0,
		Amount1Bound: min1,
	}

	accounts, prep, err := m.positionAccounts(ctx, owner, position.NftMint, pool, rng, plan, false)
	if err != nil {
		return nil, nil, err
	}

	decreaseIx, err := curve.NewDecreaseLiquidityInstruction(m.variant, plan.Liquidity, plan.Amount0Bound, plan.Amount1Bound, *accounts)
	if err != nil {
		return nil, nil, err
	}

	instructions := append(prep, decreaseIx)
	instructions = append(instructions, m.unwrapAfter(pool, accounts)...)
	return solanago.MergeInstructions(instructions), plan, nil
}

// DecreaseLiquidity builds, signs and submits a decrease on an existing
// position.
func (m *Clmm) DecreaseLiquidity(ctx context.Context, payer *solana.Wallet, req *DecreaseLiquidityRequest) (string, *PositionPlan, error) {
	wallet, err := m.signingWallet(payer)
	if err != nil {
		return "", nil, err
	}
	instructions, plan, err := m.BuildDecreaseLiquidity(ctx, wallet.PublicKey(), req)
	if err != nil {
		return "", nil, err
	}
	sig, err := m.submit(ctx, instructions, wallet)
	if err != nil {
		return "", nil, err
	}
	return sig, plan, nil
}

func (m *Clmm) resolveExistingPosition(ctx context.Context, owner, pool solana.PublicKey, rng *curve.TickRange) (*curve.PositionState, error) {
	position, err := m.findPosition(ctx, owner, pool, rng.TickLower, rng.TickUpper)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, fmt.Errorf("%w: no position [%d, %d] on pool %s",
			curve.ErrPositionNotFound, rng.TickLower, rng.TickUpper, pool)
	}
	return position, nil
}

// positionAccounts resolves the account list shared by the three position
// entry points, preparing the owner's token accounts and, for deposits of
// native SOL, the wrap instructions.
func (m *Clmm) positionAccounts(
	ctx context.Context,
	owner, nftMint solana.PublicKey,
	pool *Pool,
	rng *curve.TickRange,
	plan *PositionPlan,
	deposit bool,
) (*curve.PositionAccounts, []solana.Instruction, error) {
	spacing := int32(pool.State.TickSpacing)

	personalPosition, err := curve.DerivePositionAddress(m.variant, nftMint)
	if err != nil {
		return nil, nil, err
	}
	nftAccount, err := curve.DerivePositionNftAccount(owner, nftMint)
	if err != nil {
		return nil, nil, err
	}
	tickArrayLower, err := curve.DeriveTickArrayAddress(m.variant, pool.Address, curve.TickArrayStartIndex(rng.TickLower, spacing))
	if err != nil {
		return nil, nil, err
	}
	tickArrayUpper, err := curve.DeriveTickArrayAddress(m.variant, pool.Address, curve.TickArrayStartIndex(rng.TickUpper, spacing))
	if err != nil {
		return nil, nil, err
	}

	var prep []solana.Instruction
	tokenAccount0, err := solanago.PrepareTokenATA(ctx, m.rpcClient, owner, pool.State.TokenMint0, owner, &prep)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: token0 account: %v", curve.ErrChainRead, err)
	}
	tokenAccount1, err := solanago.PrepareTokenATA(ctx, m.rpcClient, owner, pool.State.TokenMint1, owner, &prep)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: token1 account: %v", curve.ErrChainRead, err)
	}

	if deposit {
		if pool.State.TokenMint0.Equals(solana.WrappedSol) {
			prep = append(prep, solanago.WrapSOLInstructions(owner, tokenAccount0, plan.Amount0Bound.Uint64())...)
		}
		if pool.State.TokenMint1.Equals(solana.WrappedSol) {
			prep = append(prep, solanago.WrapSOLInstructions(owner, tokenAccount1, plan.Amount1Bound.Uint64())...)
		}
	}

	return &curve.PositionAccounts{
		PositionNftOwner:   owner,
		PositionNftAccount: nftAccount,
		Pool:               pool.Address,
		PersonalPosition:   personalPosition,
		TickArrayLower:     tickArrayLower,
		TickArrayUpper:     tickArrayUpper,
		TokenAccount0:      tokenAccount0,
		TokenAccount1:      tokenAccount1,
		TokenVault0:        pool.State.TokenVault0,
		TokenVault1:        pool.State.TokenVault1,
		Mint0:              pool.State.TokenMint0,
		Mint1:              pool.State.TokenMint1,
	}, prep, nil
}

// unwrapAfter closes the owner's WSOL account after a position operation so
// leftover wrapped SOL returns to the wallet.
func (m *Clmm) unwrapAfter(pool *Pool, accounts *curve.PositionAccounts) []solana.Instruction {
	var out []solana.Instruction
	if pool.State.TokenMint0.Equals(solana.WrappedSol) {
		out = append(out, solanago.UnwrapSOLInstruction(accounts.TokenAccount0, accounts.PositionNftOwner))
	}
	if pool.State.TokenMint1.Equals(solana.WrappedSol) {
		out = append(out, solanago.UnwrapSOLInstruction(accounts.TokenAccount1, accounts.PositionNftOwner))
	}
	return out
}
