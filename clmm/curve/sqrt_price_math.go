package curve

import (
	"fmt"
	"math/big"
)

// GetNextSqrtPriceFromInput returns the √price after consuming amountIn
// against liquidity, rounding so the pool never quotes a better price than it
// can honor. zeroForOne means token0 goes in and the price moves down.
func GetNextSqrtPriceFromInput(sqrtPriceX64, liquidity, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPriceX64.Sign() <= 0 || liquidity.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price and liquidity must be positive", ErrInvalidRequest)
	}
	if amountIn.Sign() == 0 {
		return new(big.Int).Set(sqrtPriceX64), nil
	}

	if zeroForOne {
		// sqrtP' = L*sqrtP / (L + amountIn*sqrtP/2^64), rounded up
		numerator := new(big.Int).Lsh(liquidity, 64)
		product := new(big.Int).Mul(amountIn, sqrtPriceX64)
		denominator := new(big.Int).Add(numerator, product)
		return mulDiv(numerator, sqrtPriceX64, denominator, true), nil
	}

	// sqrtP' = sqrtP + amountIn*2^64/L, rounded down
	quotient := new(big.Int).Lsh(amountIn, 64)
	quotient.Quo(quotient, liquidity)
	return new(big.Int).Add(sqrtPriceX64, quotient), nil
}

// GetNextSqrtPriceFromOutput returns the √price after paying out amountOut,
// again rounded against the trader. Errors when the pool cannot cover the
// output at this liquidity.
func GetNextSqrtPriceFromOutput(sqrtPriceX64, liquidity, amountOut *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPriceX64.Sign() <= 0 || liquidity.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price and liquidity must be positive", ErrInvalidRequest)
	}
	if amountOut.Sign() == 0 {
		return new(big.Int).Set(sqrtPriceX64), nil
	}

	if zeroForOne {
		// token1 leaves the pool, price moves down: sqrtP' = sqrtP - amountOut*2^64/L, rounded up
		quotient := divRoundUp(new(big.Int).Lsh(amountOut, 64), liquidity)
		next := new(big.Int).Sub(sqrtPriceX64, quotient)
		if next.Sign() <= 0 {
			return nil, fmt.Errorf("%w: output exceeds available token1", ErrAmountOverflow)
		}
		return next, nil
	}

	// token0 leaves the pool, price moves up: sqrtP' = L*sqrtP / (L - amountOut*sqrtP/2^64), rounded up
	numerator := new(big.Int).Lsh(liquidity, 64)
	product := new(big.Int).Mul(amountOut, sqrtPriceX64)
	denominator := new(big.Int).Sub(numerator, product)
	if denominator.Sign() <= 0 {
		return nil, fmt.Errorf("%w: output exceeds available token0", ErrAmountOverflow)
	}
	return mulDiv(numerator, sqrtPriceX64, denominator, true), nil
}
