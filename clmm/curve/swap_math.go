package curve

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FeeRates carries the four-tier fee configuration of a pool, all expressed
// against FeeRateDenominator. TradeFeeRate applies to the traded amount;
// creator, protocol and fund rates are shares carved out of the trade fee.
type FeeRates struct {
	TradeFeeRate    uint32
	CreatorFeeRate  uint32
	ProtocolFeeRate uint32
	FundFeeRate     uint32
}

// FeeBreakdown itemizes the fee cascade of one swap. TradeFee is the gross
// fee; the three shares sum to at most TradeFee, the remainder accrues to LPs.
type FeeBreakdown struct {
	TradeFee    *big.Int
	CreatorFee  *big.Int
	ProtocolFee *big.Int
	FundFee     *big.Int
}

// SwapResult is the curve's answer for one swap: the gross input consumed, the
// output produced, and the itemized fee.
type SwapResult struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Fees      FeeBreakdown
}

func rateBig(rate uint32) *big.Int { return big.NewInt(int64(rate)) }

// validateFeeRates rejects fee configurations the program itself could never
// carry: the trade fee is capped at MaxTradeFeeRate, and the three shares
// carved out of it cannot exceed the whole.
func validateFeeRates(rates FeeRates) error {
	if rates.TradeFeeRate > MaxTradeFeeRate {
		return fmt.Errorf("%w: trade fee rate %d exceeds maximum %d",
			ErrInvalidRequest, rates.TradeFeeRate, MaxTradeFeeRate)
	}
	shares := uint64(rates.CreatorFeeRate) + uint64(rates.ProtocolFeeRate) + uint64(rates.FundFeeRate)
	if shares > FeeRateDenominator.Uint64() {
		return fmt.Errorf("%w: fee shares sum %d exceeds denominator", ErrInvalidRequest, shares)
	}
	return nil
}

// splitTradeFee carves the creator/protocol/fund shares out of a gross trade
// fee, flooring each share so the cascade never exceeds the gross fee.
func splitTradeFee(tradeFee *big.Int, rates FeeRates) FeeBreakdown {
	return FeeBreakdown{
		TradeFee:    tradeFee,
		CreatorFee:  mulDiv(tradeFee, rateBig(rates.CreatorFeeRate), FeeRateDenominator, false),
		ProtocolFee: mulDiv(tradeFee, rateBig(rates.ProtocolFeeRate), FeeRateDenominator, false),
		FundFee:     mulDiv(tradeFee, rateBig(rates.FundFeeRate), FeeRateDenominator, false),
	}
}

// ceilFee computes the gross trade fee on an amount, rounding up so the user
// is never charged less than the program will take.
func ceilFee(amount *big.Int, rate uint32) *big.Int {
	return mulDiv(amount, rateBig(rate), FeeRateDenominator, true)
}

// SwapExactIn evaluates the constant-product curve for a fixed input. When
// feeOnInput is true the trade fee is deducted before the curve, otherwise it
// is taken from the curve output.
func SwapExactIn(amountIn, reserveIn, reserveOut *big.Int, rates FeeRates, feeOnInput bool) (*SwapResult, error) {
	if err := validateFeeRates(rates); err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: input amount is zero", ErrEmptyTrade)
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool has no liquidity", ErrEmptyTrade)
	}

	var (
		fees      FeeBreakdown
		amountOut *big.Int
	)
	if feeOnInput {
		tradeFee := ceilFee(amountIn, rates.TradeFeeRate)
		fees = splitTradeFee(tradeFee, rates)

		netIn := new(big.Int).Sub(amountIn, tradeFee)
		if netIn.Sign() <= 0 {
			return nil, fmt.Errorf("%w: input consumed entirely by fees", ErrEmptyTrade)
		}
		amountOut = mulDiv(reserveOut, netIn, new(big.Int).Add(reserveIn, netIn), false)
	} else {
		grossOut := mulDiv(reserveOut, amountIn, new(big.Int).Add(reserveIn, amountIn), false)
		tradeFee := ceilFee(grossOut, rates.TradeFeeRate)
		fees = splitTradeFee(tradeFee, rates)
		amountOut = new(big.Int).Sub(grossOut, tradeFee)
	}

	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: computed output is zero", ErrEmptyTrade)
	}
	return &SwapResult{AmountIn: new(big.Int).Set(amountIn), AmountOut: amountOut, Fees: fees}, nil
}

// SwapExactOut solves the curve for the input required to deliver a fixed
// output, rounding every step against the user.
func SwapExactOut(amountOut, reserveIn, reserveOut *big.Int, rates FeeRates, feeOnInput bool) (*SwapResult, error) {
	if err := validateFeeRates(rates); err != nil {
		return nil, err
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: output amount is zero", ErrEmptyTrade)
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool has no liquidity", ErrEmptyTrade)
	}

	feeDenomMinusRate := new(big.Int).Sub(FeeRateDenominator, rateBig(rates.TradeFeeRate))

	var (
		fees     FeeBreakdown
		amountIn *big.Int
	)
	if feeOnInput {
		if amountOut.Cmp(reserveOut) >= 0 {
			return nil, fmt.Errorf("%w: requested output %s exceeds pool reserve", ErrAmountOverflow, amountOut)
		}
		netIn := mulDiv(reserveIn, amountOut, new(big.Int).Sub(reserveOut, amountOut), true)
		amountIn = mulDiv(netIn, FeeRateDenominator, feeDenomMinusRate, true)
		fees = splitTradeFee(new(big.Int).Sub(amountIn, netIn), rates)
	} else {
		grossOut := mulDiv(amountOut, FeeRateDenominator, feeDenomMinusRate, true)
		if grossOut.Cmp(reserveOut) >= 0 {
			return nil, fmt.Errorf("%w: requested output %s exceeds pool reserve", ErrAmountOverflow, amountOut)
		}
		amountIn = mulDiv(reserveIn, grossOut, new(big.Int).Sub(reserveOut, grossOut), true)
		fees = splitTradeFee(new(big.Int).Sub(grossOut, amountOut), rates)
	}

	if amountIn.Cmp(MaxU64) > 0 {
		return nil, fmt.Errorf("%w: required input exceeds u64", ErrAmountOverflow)
	}
	return &SwapResult{AmountIn: amountIn, AmountOut: new(big.Int).Set(amountOut), Fees: fees}, nil
}

var pctDenominator = decimal.NewFromInt(100)

// MinAmountWithSlippage floors amount·(1−slippage%), the least output an
// exact-in swap may accept.
func MinAmountWithSlippage(amount *big.Int, slippagePct decimal.Decimal) *big.Int {
	factor := pctDenominator.Sub(slippagePct)
	out := decimal.NewFromBigInt(amount, 0).Mul(factor).Div(pctDenominator)
	return out.Floor().BigInt()
}

// MaxAmountWithSlippage ceils amount·(1+slippage%), the most input an
// exact-out swap may spend.
func MaxAmountWithSlippage(amount *big.Int, slippagePct decimal.Decimal) *big.Int {
	factor := pctDenominator.Add(slippagePct)
	out := decimal.NewFromBigInt(amount, 0).Mul(factor).Div(pctDenominator)
	return out.Ceil().BigInt()
}

// PriceImpactPct estimates a trade's price impact as the traded amount's share
// of the opposing reserve, in percent. This is advisory only; callers fall
// back to a constant rather than failing the quote.
func PriceImpactPct(amountOut, reserveOut *big.Int) (decimal.Decimal, error) {
	if reserveOut == nil || reserveOut.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: opposing reserve is empty", ErrEmptyTrade)
	}
	return decimal.NewFromBigInt(amountOut, 0).
		Div(decimal.NewFromBigInt(reserveOut, 0)).
		Mul(pctDenominator), nil
}
