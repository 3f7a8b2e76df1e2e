package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqrtAt(t *testing.T, tick int32) *big.Int {
	t.Helper()
	sqrtPrice, err := GetSqrtPriceAtTick(tick)
	require.NoError(t, err)
	return sqrtPrice
}

func TestLiquidityFromAmountZero(t *testing.T) {
	sqrtA := sqrtAt(t, -600)
	sqrtB := sqrtAt(t, 600)

	assert.Equal(t, 0, LiquidityFromAmount0(sqrtA, sqrtB, big.NewInt(0)).Sign())
	assert.Equal(t, 0, LiquidityFromAmount1(sqrtA, sqrtB, big.NewInt(0)).Sign())
}

func TestLiquidityFromAmountMonotonic(t *testing.T) {
	sqrtA := sqrtAt(t, -600)
	sqrtB := sqrtAt(t, 600)

	var prev0, prev1 *big.Int
	for _, amount := range []int64{1000, 10_000, 1_000_000, 50_000_000} {
		liq0 := LiquidityFromAmount0(sqrtA, sqrtB, big.NewInt(amount))
		liq1 := LiquidityFromAmount1(sqrtA, sqrtB, big.NewInt(amount))
		if prev0 != nil {
			assert.Equal(t, 1, liq0.Cmp(prev0), "liquidity from amount0 must grow with the amount")
			assert.Equal(t, 1, liq1.Cmp(prev1), "liquidity from amount1 must grow with the amount")
		}
		prev0, prev1 = liq0, liq1
	}
}

// The floor/ceil pair around the liquidity round trip must bracket the
// original amount: rounding never favors the user.
func TestLiquidityAmountRoundTripConservative(t *testing.T) {
	sqrtA := sqrtAt(t, -600)
	sqrtB := sqrtAt(t, 600)

	for _, amount := range []int64{1_000, 123_457, 10_000_000, 987_654_321} {
		a := big.NewInt(amount)

		liq0 := LiquidityFromAmount0(sqrtA, sqrtB, a)
		floor0, err := Amount0FromLiquidity(sqrtA, sqrtB, liq0, false)
		require.NoError(t, err)
		ceil0, err := Amount0FromLiquidity(sqrtA, sqrtB, liq0, true)
		require.NoError(t, err)
		assert.True(t, floor0.Cmp(a) <= 0, "floor(%s) > %s", floor0, a)
		assert.True(t, ceil0.Cmp(a) >= 0, "ceil(%s) < %s", ceil0, a)

		liq1 := LiquidityFromAmount1(sqrtA, sqrtB, a)
		floor1, err := Amount1FromLiquidity(sqrtA, sqrtB, liq1, false)
		require.NoError(t, err)
		ceil1, err := Amount1FromLiquidity(sqrtA, sqrtB, liq1, true)
		require.NoError(t, err)
		assert.True(t, floor1.Cmp(a) <= 0, "floor(%s) > %s", floor1, a)
		assert.True(t, ceil1.Cmp(a) >= 0, "ceil(%s) < %s", ceil1, a)
	}
}

func TestLiquidityFromAmountsPicksBindingSide(t *testing.T) {
	sqrtA := sqrtAt(t, -600)
	sqrtB := sqrtAt(t, 600)
	amount0 := big.NewInt(10_000_000)
	amount1 := big.NewInt(10_000_000)

	below := sqrtAt(t, -700)
	assert.Equal(t, 0,
		LiquidityFromAmounts(below, sqrtA, sqrtB, amount0, amount1).
			Cmp(LiquidityFromAmount0(sqrtA, sqrtB, amount0)),
		"below the range only token0 provides liquidity")

	above := sqrtAt(t, 700)
	assert.Equal(t, 0,
		LiquidityFromAmounts(above, sqrtA, sqrtB, amount0, amount1).
			Cmp(LiquidityFromAmount1(sqrtA, sqrtB, amount1)),
		"above the range only token1 provides liquidity")

	inside := sqrtAt(t, 0)
	liq := LiquidityFromAmounts(inside, sqrtA, sqrtB, amount0, amount1)
	liq0 := LiquidityFromAmount0(inside, sqrtB, amount0)
	liq1 := LiquidityFromAmount1(sqrtA, inside, amount1)
	assert.True(t, liq.Cmp(liq0) <= 0 && liq.Cmp(liq1) <= 0, "inside the range the smaller side binds")
}

func TestAmountsFromLiquidityCases(t *testing.T) {
	sqrtA := sqrtAt(t, -600)
	sqrtB := sqrtAt(t, 600)
	liquidity := big.NewInt(1_000_000_000)

	amount0, amount1, err := AmountsFromLiquidity(sqrtAt(t, -700), sqrtA, sqrtB, liquidity, true)
	require.NoError(t, err)
	assert.True(t, amount0.Sign() > 0 && amount1.Sign() == 0, "below range: token0 only")

	amount0, amount1, err = AmountsFromLiquidity(sqrtAt(t, 700), sqrtA, sqrtB, liquidity, true)
	require.NoError(t, err)
	assert.True(t, amount0.Sign() == 0 && amount1.Sign() > 0, "above range: token1 only")

	amount0, amount1, err = AmountsFromLiquidity(sqrtAt(t, 0), sqrtA, sqrtB, liquidity, true)
	require.NoError(t, err)
	assert.True(t, amount0.Sign() > 0 && amount1.Sign() > 0, "inside range: both tokens")
}

func TestLiquidityFromSingleAmountClamps(t *testing.T) {
	sqrtA := sqrtAt(t, -600)
	sqrtB := sqrtAt(t, 600)
	current := sqrtAt(t, 0)
	amount := big.NewInt(10_000_000)

	// In range, the token0 side only covers [current, upper].
	assert.Equal(t, 0,
		LiquidityFromSingleAmount0(current, sqrtA, sqrtB, amount).
			Cmp(LiquidityFromAmount0(current, sqrtB, amount)))

	// Entirely above the range token0 buys nothing.
	assert.Equal(t, 0, LiquidityFromSingleAmount0(sqrtAt(t, 700), sqrtA, sqrtB, amount).Sign())

	// Entirely below the range token1 buys nothing.
	assert.Equal(t, 0, LiquidityFromSingleAmount1(sqrtAt(t, -700), sqrtA, sqrtB, amount).Sign())
}
