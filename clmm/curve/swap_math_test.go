package curve

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var swapRates = FeeRates{
	TradeFeeRate:    3_000, // 30 bps
	CreatorFeeRate:  250_000,
	ProtocolFeeRate: 120_000,
	FundFeeRate:     40_000,
}

func TestSwapExactInBasic(t *testing.T) {
	reserveIn := big.NewInt(50_000_000_000)
	reserveOut := big.NewInt(50_000_000_000)
	amountIn := big.NewInt(1_000_000_000)

	result, err := SwapExactIn(amountIn, reserveIn, reserveOut, swapRates, true)
	require.NoError(t, err)

	assert.Equal(t, 0, result.AmountIn.Cmp(amountIn))
	assert.Equal(t, -1, result.AmountOut.Cmp(amountIn), "output must be strictly less than input on a balanced pool with fees")
	assert.True(t, result.AmountOut.Sign() > 0)

	minOut := MinAmountWithSlippage(result.AmountOut, decimal.RequireFromString("0.5"))
	assert.Equal(t, -1, minOut.Cmp(result.AmountOut), "minimum out must be strictly below the quoted output")
}

func TestSwapExactInFeeCascade(t *testing.T) {
	result, err := SwapExactIn(big.NewInt(1_000_000_000), big.NewInt(50_000_000_000), big.NewInt(50_000_000_000), swapRates, true)
	require.NoError(t, err)

	fees := result.Fees
	// trade fee = ceil(1e9 * 3000 / 1e6)
	assert.Equal(t, int64(3_000_000), fees.TradeFee.Int64())
	assert.Equal(t, int64(750_000), fees.CreatorFee.Int64())
	assert.Equal(t, int64(360_000), fees.ProtocolFee.Int64())
	assert.Equal(t, int64(120_000), fees.FundFee.Int64())

	shares := new(big.Int).Add(fees.CreatorFee, fees.ProtocolFee)
	shares.Add(shares, fees.FundFee)
	assert.True(t, shares.Cmp(fees.TradeFee) <= 0, "fee shares exceed the gross trade fee")
}

func TestSwapExactInFeeMonotonic(t *testing.T) {
	reserveIn := big.NewInt(50_000_000_000)
	reserveOut := big.NewInt(50_000_000_000)
	amountIn := big.NewInt(1_000_000_000)

	var prev *big.Int
	for _, rate := range []uint32{0, 1_000, 3_000, 10_000, 50_000} {
		rates := swapRates
		rates.TradeFeeRate = rate
		result, err := SwapExactIn(amountIn, reserveIn, reserveOut, rates, true)
		require.NoError(t, err)
		if prev != nil {
			assert.Equal(t, -1, result.AmountOut.Cmp(prev), "output must strictly decrease as the trade fee rises")
		}
		prev = result.AmountOut
	}
}

func TestSwapExactInDegenerate(t *testing.T) {
	_, err := SwapExactIn(big.NewInt(0), big.NewInt(1000), big.NewInt(1000), swapRates, true)
	assert.True(t, errors.Is(err, ErrEmptyTrade))

	_, err = SwapExactIn(big.NewInt(100), big.NewInt(0), big.NewInt(1000), swapRates, true)
	assert.True(t, errors.Is(err, ErrEmptyTrade))

	// The ceiled fee at the maximum rate consumes a one-lamport input whole.
	rates := swapRates
	rates.TradeFeeRate = MaxTradeFeeRate
	_, err = SwapExactIn(big.NewInt(1), big.NewInt(1000), big.NewInt(1000), rates, true)
	assert.True(t, errors.Is(err, ErrEmptyTrade))
}

func TestSwapRejectsExcessiveFeeRates(t *testing.T) {
	// A 100% trade fee would zero the exact-out denominator; it must fail
	// fast instead of dividing by zero.
	rates := swapRates
	rates.TradeFeeRate = 1_000_000
	_, err := SwapExactOut(big.NewInt(100), big.NewInt(1_000_000), big.NewInt(1_000_000), rates, true)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = SwapExactIn(big.NewInt(100), big.NewInt(1_000_000), big.NewInt(1_000_000), rates, true)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	rates.TradeFeeRate = MaxTradeFeeRate + 1
	_, err = SwapExactOut(big.NewInt(100), big.NewInt(1_000_000), big.NewInt(1_000_000), rates, true)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	shares := swapRates
	shares.CreatorFeeRate = 600_000
	shares.ProtocolFeeRate = 500_000
	_, err = SwapExactIn(big.NewInt(100), big.NewInt(1_000_000), big.NewInt(1_000_000), shares, true)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestSwapExactOutQuoteIsSufficient(t *testing.T) {
	reserveIn := big.NewInt(50_000_000_000)
	reserveOut := big.NewInt(50_000_000_000)
	want := big.NewInt(900_000_000)

	out, err := SwapExactOut(want, reserveIn, reserveOut, swapRates, true)
	require.NoError(t, err)
	assert.Equal(t, 1, out.AmountIn.Cmp(want), "input must exceed output on a balanced pool with fees")

	// Spending the quoted input must deliver at least the requested output.
	in, err := SwapExactIn(out.AmountIn, reserveIn, reserveOut, swapRates, true)
	require.NoError(t, err)
	assert.True(t, in.AmountOut.Cmp(want) >= 0,
		"quoted input %s delivers %s, wanted %s", out.AmountIn, in.AmountOut, want)
}

func TestSwapExactOutExceedsReserve(t *testing.T) {
	_, err := SwapExactOut(big.NewInt(1000), big.NewInt(1000), big.NewInt(1000), swapRates, true)
	assert.True(t, errors.Is(err, ErrAmountOverflow))
}

func TestSlippageBounds(t *testing.T) {
	amount := big.NewInt(1_000_000)
	for _, s := range []string{"0", "0.5", "1", "50", "100"} {
		slippage := decimal.RequireFromString(s)

		minOut := MinAmountWithSlippage(amount, slippage)
		assert.True(t, minOut.Cmp(amount) <= 0, "slippage %s%%: minimum above amount", s)
		assert.True(t, minOut.Sign() >= 0)

		maxIn := MaxAmountWithSlippage(amount, slippage)
		assert.True(t, maxIn.Cmp(amount) >= 0, "slippage %s%%: maximum below amount", s)
	}
}

func TestPriceImpactPct(t *testing.T) {
	impact, err := PriceImpactPct(big.NewInt(1_000_000_000), big.NewInt(50_000_000_000))
	require.NoError(t, err)
	assert.True(t, impact.Equal(decimal.RequireFromString("2")), "1e9 of 50e9 is 2%%, got %s", impact)

	_, err = PriceImpactPct(big.NewInt(1), big.NewInt(0))
	assert.True(t, errors.Is(err, ErrEmptyTrade))
}
