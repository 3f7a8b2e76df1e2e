package clmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	solanago "github.com/Topo-Labs/coinfair-solana-backend/solana"
)

// tickArraysPerSwap is how many tick-array accounts ride along with a swap:
// the one holding the current tick plus the next two in trade direction.
const tickArraysPerSwap = 3

// BuildSwapExactIn quotes and assembles a fixed-input swap for payer,
// including token account preparation, WSOL handling and the referral
// prelude. The returned instructions are unsigned; the caller signs or
// submits them.
func (m *Clmm) BuildSwapExactIn(ctx context.Context, payer solana.PublicKey, req *SwapQuoteRequest) ([]solana.Instruction, *SwapQuote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, nil, err
	}
	quote, err := m.quoteExactIn(pool, req)
	if err != nil {
		return nil, nil, err
	}

	instructions, err := m.assembleSwap(ctx, payer, pool, quote, true)
	if err != nil {
		return nil, nil, err
	}
	return instructions, quote, nil
}

// BuildSwapExactOut is the fixed-output counterpart of BuildSwapExactIn.
func (m *Clmm) BuildSwapExactOut(ctx context.Context, payer solana.PublicKey, req *SwapQuoteRequest) ([]solana.Instruction, *SwapQuote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, nil, err
	}
	quote, err := m.quoteExactOut(pool, req)
	if err != nil {
		return nil, nil, err
	}

	instructions, err := m.assembleSwap(ctx, payer, pool, quote, false)
	if err != nil {
		return nil, nil, err
	}
	return instructions, quote, nil
}

func (m *Clmm) assembleSwap(ctx context.Context, payer solana.PublicKey, pool *Pool, quote *SwapQuote, exactIn bool) ([]solana.Instruction, error) {
	sides, err := orientSwap(pool, quote.InputMint)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction

	inputTokenAccount, err := solanago.PrepareTokenATA(ctx, m.rpcClient, payer, quote.InputMint, payer, &instructions)
	if err != nil {
		return nil, fmt.Errorf("%w: input token account: %v", curve.ErrChainRead, err)
	}
	outputTokenAccount, err := solanago.PrepareTokenATA(ctx, m.rpcClient, payer, quote.OutputMint, payer, &instructions)
	if err != nil {
		return nil, fmt.Errorf("%w: output token account: %v", curve.ErrChainRead, err)
	}

	// Spend of native SOL rides in as wrapped SOL, funded up to the most the
	// swap may take.
	if quote.InputMint.Equals(solana.WrappedSol) {
		lamports := quote.AmountIn
		if !exactIn {
			lamports = quote.Threshold
		}
		instructions = append(instructions, solanago.WrapSOLInstructions(payer, inputTokenAccount, lamports.Uint64())...)
	}

	// Referral reward accounts are a best-effort side effect; a failed
	// resolution degrades to the sentinel slots instead of aborting.
	referral, err := m.ResolveReferralChain(ctx, payer, quote.InputMint)
	if err != nil {
		m.logger.Warn("referral resolution failed, swapping without chain",
			zap.Stringer("payer", payer),
			zap.Error(err))
		referral = &ReferralChain{}
	}
	instructions = append(instructions, referral.PrepInstructions...)

	tickArrays, err := m.swapTickArrays(pool, sides.zeroForOne)
	if err != nil {
		return nil, err
	}

	inputVault, outputVault := pool.State.TokenVault0, pool.State.TokenVault1
	if !sides.zeroForOne {
		inputVault, outputVault = outputVault, inputVault
	}

	accounts := curve.SwapAccounts{
		Payer:              payer,
		AmmConfig:          pool.State.AmmConfig,
		Pool:               pool.Address,
		InputTokenAccount:  inputTokenAccount,
		OutputTokenAccount: outputTokenAccount,
		InputVault:         inputVault,
		OutputVault:        outputVault,
		Observation:        pool.State.ObservationKey,
		InputMint:          quote.InputMint,
		OutputMint:         quote.OutputMint,
		Referral:           referral.Slots(m.variant),
		TickArrays:         tickArrays,
	}

	limit := sqrtPriceLimit(sides.zeroForOne)
	var swapIx solana.Instruction
	if exactIn {
		swapIx, err = curve.NewSwapBaseInputInstruction(m.variant, quote.AmountIn, quote.Threshold, limit, accounts)
	} else {
		swapIx, err = curve.NewSwapBaseOutputInstruction(m.variant, quote.Threshold, quote.AmountOut, limit, accounts)
	}
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, swapIx)

	if quote.OutputMint.Equals(solana.WrappedSol) || quote.InputMint.Equals(solana.WrappedSol) {
		wsolAccount := outputTokenAccount
		if quote.InputMint.Equals(solana.WrappedSol) {
			wsolAccount = inputTokenAccount
		}
		instructions = append(instructions, solanago.UnwrapSOLInstruction(wsolAccount, payer))
	}

	return solanago.MergeInstructions(instructions), nil
}

// SwapExactIn builds, signs and submits a fixed-input swap, returning the
// confirmed signature and the quote it executed against.
func (m *Clmm) SwapExactIn(ctx context.Context, payer *solana.Wallet, req *SwapQuoteRequest) (string, *SwapQuote, error) {
	wallet, err := m.signingWallet(payer)
	if err != nil {
		return "", nil, err
	}
	instructions, quote, err := m.BuildSwapExactIn(ctx, wallet.PublicKey(), req)
	if err != nil {
		return "", nil, err
	}
	sig, err := m.submit(ctx, instructions, wallet)
	if err != nil {
		return "", nil, err
	}
	return sig, quote, nil
}

// SwapExactOut builds, signs and submits a fixed-output swap.
func (m *Clmm) SwapExactOut(ctx context.Context, payer *solana.Wallet, req *SwapQuoteRequest) (string, *SwapQuote, error) {
	wallet, err := m.signingWallet(payer)
	if err != nil {
		return "", nil, err
	}
	instructions, quote, err := m.BuildSwapExactOut(ctx, wallet.PublicKey(), req)
	if err != nil {
		return "", nil, err
	}
	sig, err := m.submit(ctx, instructions, wallet)
	if err != nil {
		return "", nil, err
	}
	return sig, quote, nil
}

func (m *Clmm) signingWallet(payer *solana.Wallet) (*solana.Wallet, error) {
	if payer != nil {
		return payer, nil
	}
	if m.payer != nil {
		return m.payer, nil
	}
	return nil, fmt.Errorf("%w: no signing wallet configured", curve.ErrInvalidRequest)
}

func (m *Clmm) submit(ctx context.Context, instructions []solana.Instruction, signers ...*solana.Wallet) (string, error) {
	if m.wsClient == nil && !solanago.IsSimulate {
		return "", fmt.Errorf("%w: no ws client configured for confirmation", curve.ErrSubmission)
	}
	sig, err := solanago.SendTransaction(ctx,
		m.rpcClient,
		m.wsClient,
		instructions,
		signers[0].PublicKey(),
		func(key solana.PublicKey) *solana.PrivateKey {
			for _, signer := range signers {
				if key.Equals(signer.PublicKey()) {
					return &signer.PrivateKey
				}
			}
			return nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", curve.ErrSubmission, err)
	}
	return sig.String(), nil
}

func (m *Clmm) swapTickArrays(pool *Pool, zeroForOne bool) ([]solana.PublicKey, error) {
	spacing := int32(pool.State.TickSpacing)
	span := curve.TickArraySize * spacing
	step := span
	if zeroForOne {
		step = -span
	}

	start := curve.TickArrayStartIndex(pool.State.TickCurrent, spacing)
	arrays := make([]solana.PublicKey, 0, tickArraysPerSwap)
	for i := int32(0); i < tickArraysPerSwap; i++ {
		address, err := curve.DeriveTickArrayAddress(m.variant, pool.Address, start+i*step)
		if err != nil {
			return nil, fmt.Errorf("%w: tick array: %v", curve.ErrInstructionBuild, err)
		}
		arrays = append(arrays, address)
	}
	return arrays, nil
}

// sqrtPriceLimit is the price bound handed to the program: the representable
// extreme in trade direction, i.e. no explicit limit beyond the pool's range.
func sqrtPriceLimit(zeroForOne bool) *big.Int {
	if zeroForOne {
		return new(big.Int).Add(curve.MinSqrtPriceX64, big.NewInt(1))
	}
	return new(big.Int).Sub(curve.MaxSqrtPriceX64, big.NewInt(1))
}
