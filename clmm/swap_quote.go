package clmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	"github.com/Topo-Labs/coinfair-solana-backend/solana/token2022"
)

// fallbackPriceImpactPct is reported when the live price-impact estimate
// cannot be computed. Maximally pessimistic so a failed estimate never makes
// a trade look safer than it is; the quote itself is unaffected.
var fallbackPriceImpactPct = decimal.NewFromInt(100)

// The trade fee is charged on the input token.
const feeOnInput = true

// SwapQuoteRequest asks for a quote on one pool. Amount is the input amount
// for exact-in and the desired output amount for exact-out, both gross of
// transfer fees (what actually moves through the user's wallet).
type SwapQuoteRequest struct {
	Pool        solana.PublicKey
	InputMint   solana.PublicKey
	Amount      *big.Int
	SlippagePct decimal.Decimal
}

func validateQuoteRequest(req *SwapQuoteRequest) error {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", curve.ErrInvalidRequest)
	}
	if req.SlippagePct.Sign() < 0 || req.SlippagePct.Cmp(decimal.NewFromInt(100)) > 0 {
		return fmt.Errorf("%w: slippage must be within [0, 100]%%", curve.ErrInvalidRequest)
	}
	return nil
}

// swapSides orients a request against the pool: which side goes in, which
// reserves and transfer-fee configs apply.
type swapSides struct {
	zeroForOne bool
	inputMint  solana.PublicKey
	outputMint solana.PublicKey
	reserveIn  *big.Int
	reserveOut *big.Int
	feeCfgIn   *token2022.TransferFeeConfig
	feeCfgOut  *token2022.TransferFeeConfig
}

func orientSwap(pool *Pool, inputMint solana.PublicKey) (*swapSides, error) {
	switch {
	case inputMint.Equals(pool.State.TokenMint0):
		return &swapSides{
			zeroForOne: true,
			inputMint:  pool.State.TokenMint0,
			outputMint: pool.State.TokenMint1,
			reserveIn:  pool.Reserve0,
			reserveOut: pool.Reserve1,
			feeCfgIn:   pool.TransferFee0,
			feeCfgOut:  pool.TransferFee1,
		}, nil
	case inputMint.Equals(pool.State.TokenMint1):
		return &swapSides{
			zeroForOne: false,
			inputMint:  pool.State.TokenMint1,
			outputMint: pool.State.TokenMint0,
			reserveIn:  pool.Reserve1,
			reserveOut: pool.Reserve0,
			feeCfgIn:   pool.TransferFee1,
			feeCfgOut:  pool.TransferFee0,
		}, nil
	default:
		return nil, fmt.Errorf("%w: mint %s is not traded by this pool", curve.ErrInvalidRequest, inputMint)
	}
}

// SwapQuoteExactIn quotes a fixed-input swap: the input transfer fee is
// deducted before the curve, the output transfer fee after it, and the
// slippage floor bounds the final output.
func (m *Clmm) SwapQuoteExactIn(ctx context.Context, req *SwapQuoteRequest) (*SwapQuote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	return m.quoteExactIn(pool, req)
}

func (m *Clmm) quoteExactIn(pool *Pool, req *SwapQuoteRequest) (*SwapQuote, error) {
	sides, err := orientSwap(pool, req.InputMint)
	if err != nil {
		return nil, err
	}

	netIn, transferFeeIn := curve.TransferFeeExcludedAmount(sides.feeCfgIn, req.Amount, pool.Epoch)

	result, err := curve.SwapExactIn(netIn, sides.reserveIn, sides.reserveOut, pool.FeeRates(), feeOnInput)
	if err != nil {
		return nil, err
	}

	amountOut, transferFeeOut := curve.TransferFeeExcludedAmount(sides.feeCfgOut, result.AmountOut, pool.Epoch)

	quote := &SwapQuote{
		InputMint:      sides.inputMint,
		OutputMint:     sides.outputMint,
		AmountIn:       new(big.Int).Set(req.Amount),
		AmountOut:      amountOut,
		Threshold:      curve.MinAmountWithSlippage(amountOut, req.SlippagePct),
		Fees:           result.Fees,
		TransferFeeIn:  transferFeeIn,
		TransferFeeOut: transferFeeOut,
		PriceImpactPct: m.priceImpact(result.AmountOut, sides.reserveOut),
		Route:          routeDescription(pool.Address, sides),
	}

	m.logger.Debug("exact-in quote",
		zap.Stringer("pool", pool.Address),
		zap.String("amount_in", quote.AmountIn.String()),
		zap.String("amount_out", quote.AmountOut.String()),
		zap.String("minimum_out", quote.Threshold.String()))
	return quote, nil
}

// SwapQuoteExactOut quotes a fixed-output swap: the output transfer fee is
// grossed up before the curve solves for the input, then the input transfer
// fee is recomputed against the curve-determined input (a second pass, since
// the fee depends on the amount it is charged against). The slippage ceiling
// bounds the final input.
func (m *Clmm) SwapQuoteExactOut(ctx context.Context, req *SwapQuoteRequest) (*SwapQuote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, err
	}
	pool, err := m.GetPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	return m.quoteExactOut(pool, req)
}

func (m *Clmm) quoteExactOut(pool *Pool, req *SwapQuoteRequest) (*SwapQuote, error) {
	sides, err := orientSwap(pool, req.InputMint)
	if err != nil {
		return nil, err
	}

	preFeeOut, transferFeeOut := curve.TransferFeeIncludedAmount(sides.feeCfgOut, req.Amount, pool.Epoch)

	result, err := curve.SwapExactOut(preFeeOut, sides.reserveIn, sides.reserveOut, pool.FeeRates(), feeOnInput)
	if err != nil {
		return nil, err
	}

	grossIn, transferFeeIn := curve.TransferFeeIncludedAmount(sides.feeCfgIn, result.AmountIn, pool.Epoch)
	if grossIn.Cmp(curve.MaxU64) > 0 {
		return nil, fmt.Errorf("%w: required input exceeds u64", curve.ErrAmountOverflow)
	}

	quote := &SwapQuote{
		InputMint:      sides.inputMint,
		OutputMint:     sides.outputMint,
		AmountIn:       grossIn,
		AmountOut:      new(big.Int).Set(req.Amount),
		Threshold:      curve.MaxAmountWithSlippage(grossIn, req.SlippagePct),
		Fees:           result.Fees,
		TransferFeeIn:  transferFeeIn,
		TransferFeeOut: transferFeeOut,
		PriceImpactPct: m.priceImpact(preFeeOut, sides.reserveOut),
		Route:          routeDescription(pool.Address, sides),
	}

	m.logger.Debug("exact-out quote",
		zap.Stringer("pool", pool.Address),
		zap.String("amount_in", quote.AmountIn.String()),
		zap.String("amount_out", quote.AmountOut.String()),
		zap.String("maximum_in", quote.Threshold.String()))
	return quote, nil
}

// priceImpact never fails: the estimate is advisory, so a failed computation
// degrades to the pessimistic fallback instead of blocking the quote.
func (m *Clmm) priceImpact(amountOut, reserveOut *big.Int) decimal.Decimal {
	impact, err := curve.PriceImpactPct(amountOut, reserveOut)
	if err != nil {
		m.logger.Warn("price impact estimate failed", zap.Error(err))
		return fallbackPriceImpactPct
	}
	return impact
}

func routeDescription(pool solana.PublicKey, sides *swapSides) string {
	return fmt.Sprintf("%s -> %s via %s", sides.inputMint, sides.outputMint, pool)
}
