package curve

import (
	"fmt"
	"math/big"
)

var bigOne = big.NewInt(1)

// mulDiv computes x*y/denominator on arbitrary-precision integers with an
// explicit rounding direction. The product is never truncated before the
// division, so fourth-power terms cannot overflow an intermediate.
func mulDiv(x, y, denominator *big.Int, roundUp bool) *big.Int {
	num := new(big.Int).Mul(x, y)
	if roundUp {
		num.Add(num, new(big.Int).Sub(denominator, bigOne))
	}
	return num.Div(num, denominator)
}

func divRoundUp(x, y *big.Int) *big.Int {
	out := new(big.Int).Add(x, new(big.Int).Sub(y, bigOne))
	return out.Div(out, y)
}

// LiquidityFromAmount0 computes the liquidity a deposit of amount0 provides
// over [sqrtA, sqrtB]: L = Δ0 · √Pa·√Pb / (√Pb − √Pa), floored so the quoted
// liquidity never exceeds what the program will credit.
func LiquidityFromAmount0(sqrtAX64, sqrtBX64, amount0 *big.Int) *big.Int {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}
	intermediate := mulDiv(sqrtAX64, sqrtBX64, Q64, false)
	return mulDiv(amount0, intermediate, new(big.Int).Sub(sqrtBX64, sqrtAX64), false)
}

// LiquidityFromAmount1 computes the liquidity a deposit of amount1 provides
// over [sqrtA, sqrtB]: L = Δ1 · 2^64 / (√Pb − √Pa), floored.
func LiquidityFromAmount1(sqrtAX64, sqrtBX64, amount1 *big.Int) *big.Int {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}
	return mulDiv(amount1, Q64, new(big.Int).Sub(sqrtBX64, sqrtAX64), false)
}

// LiquidityFromAmounts picks the binding side for a two-sided deposit: below
// the range only token0 matters, above it only token1, inside it the smaller
// of the two one-sided liquidities binds.
func LiquidityFromAmounts(sqrtCurrentX64, sqrtAX64, sqrtBX64, amount0, amount1 *big.Int) *big.Int {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}

	switch {
	case sqrtCurrentX64.Cmp(sqrtAX64) <= 0:
		return LiquidityFromAmount0(sqrtAX64, sqrtBX64, amount0)
	case sqrtCurrentX64.Cmp(sqrtBX64) < 0:
		liquidity0 := LiquidityFromAmount0(sqrtCurrentX64, sqrtBX64, amount0)
		liquidity1 := LiquidityFromAmount1(sqrtAX64, sqrtCurrentX64, amount1)
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0
		}
		return liquidity1
	default:
		return LiquidityFromAmount1(sqrtAX64, sqrtBX64, amount1)
	}
}

// Amount0FromLiquidity computes Δ0 = L·2^64·(√Pb − √Pa) / (√Pb·√Pa).
// roundUp=true for amounts the user must supply, false for amounts owed to the
// user; either way the rounding favors the protocol.
func Amount0FromLiquidity(sqrtAX64, sqrtBX64, liquidity *big.Int, roundUp bool) (*big.Int, error) {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}
	numerator1 := new(big.Int).Lsh(liquidity, 64)
	numerator2 := new(big.Int).Sub(sqrtBX64, sqrtAX64)

	var amount *big.Int
	if roundUp {
		amount = divRoundUp(mulDiv(numerator1, numerator2, sqrtBX64, true), sqrtAX64)
	} else {
		amount = new(big.Int).Div(mulDiv(numerator1, numerator2, sqrtBX64, false), sqrtAX64)
	}
	if amount.Cmp(MaxU64) > 0 {
		return nil, fmt.Errorf("%w: token0 delta exceeds u64", ErrAmountOverflow)
	}
	return amount, nil
}

// Amount1FromLiquidity computes Δ1 = L·(√Pb − √Pa) / 2^64.
func Amount1FromLiquidity(sqrtAX64, sqrtBX64, liquidity *big.Int, roundUp bool) (*big.Int, error) {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}
	amount := mulDiv(liquidity, new(big.Int).Sub(sqrtBX64, sqrtAX64), Q64, roundUp)
	if amount.Cmp(MaxU64) > 0 {
		return nil, fmt.Errorf("%w: token1 delta exceeds u64", ErrAmountOverflow)
	}
	return amount, nil
}

// AmountsFromLiquidity derives both token deltas for a liquidity change,
// honoring the position of the current price relative to the range.
func AmountsFromLiquidity(sqrtCurrentX64, sqrtAX64, sqrtBX64, liquidity *big.Int, roundUp bool) (*big.Int, *big.Int, error) {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}

	switch {
	case sqrtCurrentX64.Cmp(sqrtAX64) <= 0:
		amount0, err := Amount0FromLiquidity(sqrtAX64, sqrtBX64, liquidity, roundUp)
		if err != nil {
			return nil, nil, err
		}
		return amount0, big.NewInt(0), nil
	case sqrtCurrentX64.Cmp(sqrtBX64) < 0:
		amount0, err := Amount0FromLiquidity(sqrtCurrentX64, sqrtBX64, liquidity, roundUp)
		if err != nil {
			return nil, nil, err
		}
		amount1, err := Amount1FromLiquidity(sqrtAX64, sqrtCurrentX64, liquidity, roundUp)
		if err != nil {
			return nil, nil, err
		}
		return amount0, amount1, nil
	default:
		amount1, err := Amount1FromLiquidity(sqrtAX64, sqrtBX64, liquidity, roundUp)
		if err != nil {
			return nil, nil, err
		}
		return big.NewInt(0), amount1, nil
	}
}

// LiquidityFromSingleAmount0 computes the liquidity bought by a single-sided
// token0 deposit given the current price, clamping the effective lower bound
// to the current price when it sits inside the range.
func LiquidityFromSingleAmount0(sqrtCurrentX64, sqrtAX64, sqrtBX64, amount0 *big.Int) *big.Int {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}
	lower := sqrtAX64
	if sqrtCurrentX64.Cmp(sqrtAX64) > 0 {
		lower = sqrtCurrentX64
	}
	if lower.Cmp(sqrtBX64) >= 0 {
		return big.NewInt(0)
	}
	return LiquidityFromAmount0(lower, sqrtBX64, amount0)
}

// LiquidityFromSingleAmount1 is the token1 counterpart, clamping the effective
// upper bound to the current price.
func LiquidityFromSingleAmount1(sqrtCurrentX64, sqrtAX64, sqrtBX64, amount1 *big.Int) *big.Int {
	if sqrtAX64.Cmp(sqrtBX64) > 0 {
		sqrtAX64, sqrtBX64 = sqrtBX64, sqrtAX64
	}
	upper := sqrtBX64
	if sqrtCurrentX64.Cmp(sqrtBX64) < 0 {
		upper = sqrtCurrentX64
	}
	if sqrtAX64.Cmp(upper) >= 0 {
		return big.NewInt(0)
	}
	return LiquidityFromAmount1(sqrtAX64, upper, amount1)
}
