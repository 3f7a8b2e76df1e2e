package curve

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// tickRatios[i] is sqrt(1.0001^-(2^i)) scaled by 2^128. Multiplying the
// selected entries and shifting right 64 bits yields the Q64.64 square-root
// price for any tick in the valid range.
var tickRatios = [19]*big.Int{
	hexBig("fffcb933bd6fad37aa2d162d1a594001"),
	hexBig("fff97272373d413259a46990580e213a"),
	hexBig("fff2e50f5f656932ef12357cf3c7fdcc"),
	hexBig("ffe5caca7e10e4e61c3624eaa0941cd0"),
	hexBig("ffcb9843d60f6159c9db58835c926644"),
	hexBig("ff973b41fa98c081472e6896dfb254c0"),
	hexBig("ff2ea16466c96a3843ec78b326b52861"),
	hexBig("fe5dee046a99a2a811c461f1969c3053"),
	hexBig("fcbe86c7900a88aedcffc83b479aa3a4"),
	hexBig("f987a7253ac413176f2b074cf7815e54"),
	hexBig("f3392b0822b70005940c7a398e4b70f3"),
	hexBig("e7159475a2c29b7443b29c7fa6e889d9"),
	hexBig("d097f3bdfd2022b8845ad8f792aa5825"),
	hexBig("a9f746462d870fdf8a65dc1f90e061e5"),
	hexBig("70d869a156d2a1b890bb3df62baf32f7"),
	hexBig("31be135f97d08fd981231505542fcfa6"),
	hexBig("09aa508b5b7a84e1c677de54f3e99bc9"),
	hexBig("005d6af8dedb81196699c329225ee604"),
	hexBig("00002216e584f5fa1ea926041bedfe98"),
}

var (
	oneX128    = new(big.Int).Lsh(big.NewInt(1), 128)
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func hexBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bad tick ratio constant: " + s)
	}
	return n
}

// mulShift multiplies two Q128.128 values and shifts the product back down.
func mulShift(a, b *big.Int) *big.Int {
	return new(big.Int).Rsh(new(big.Int).Mul(a, b), 128)
}

// GetSqrtPriceAtTick returns sqrt(1.0001^tick) as a Q64.64 value.
func GetSqrtPriceAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: tick %d outside [%d, %d]", ErrPriceOutOfRange, tick, MinTick, MaxTick)
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(big.Int).Set(oneX128)
	for i := 0; i < len(tickRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio = mulShift(ratio, tickRatios[i])
		}
	}

	// The table encodes negative exponents; positive ticks take the reciprocal.
	if tick > 0 {
		ratio = new(big.Int).Div(maxUint256, ratio)
	}

	return ratio.Rsh(ratio, 64), nil
}

// GetTickAtSqrtPrice returns the largest tick whose √price does not exceed the
// given Q64.64 √price.
func GetTickAtSqrtPrice(sqrtPriceX64 *big.Int) (int32, error) {
	if sqrtPriceX64.Cmp(MinSqrtPriceX64) < 0 || sqrtPriceX64.Cmp(MaxSqrtPriceX64) > 0 {
		return 0, fmt.Errorf("%w: sqrt price %s outside valid range", ErrPriceOutOfRange, sqrtPriceX64)
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		// Bias the midpoint up so the loop converges on the floor tick.
		mid := lo + (hi-lo+1)/2
		sqrtPrice, err := GetSqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if sqrtPrice.Cmp(sqrtPriceX64) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// GetSqrtPriceFromPrice converts a human decimal price (token1 per token0) into
// a Q64.64 √price, scaling by the mint decimal difference first.
func GetSqrtPriceFromPrice(price decimal.Decimal, decimals0, decimals1 uint8) (*big.Int, error) {
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
	}

	scaled := price.Mul(decimal.New(1, int32(decimals1)-int32(decimals0)))

	sqrt := new(big.Float).SetPrec(200).Sqrt(scaled.BigFloat().SetPrec(200))
	sqrt.Mul(sqrt, new(big.Float).SetPrec(200).SetInt(Q64))

	sqrtPriceX64, _ := sqrt.Int(nil)
	if sqrtPriceX64.Cmp(MinSqrtPriceX64) < 0 || sqrtPriceX64.Cmp(MaxSqrtPriceX64) > 0 {
		return nil, fmt.Errorf("%w: price %s maps outside the representable tick range", ErrPriceOutOfRange, price)
	}
	return sqrtPriceX64, nil
}

// GetPriceFromSqrtPrice is the inverse of GetSqrtPriceFromPrice.
func GetPriceFromSqrtPrice(sqrtPriceX64 *big.Int, decimals0, decimals1 uint8) decimal.Decimal {
	price := decimal.NewFromBigInt(new(big.Int).Mul(sqrtPriceX64, sqrtPriceX64), 0).
		Div(decimal.NewFromBigInt(Q128, 0))
	return price.Mul(decimal.New(1, int32(decimals0)-int32(decimals1)))
}

// RoundTickToSpacing floors a tick to the nearest initializable multiple of the
// pool's tick spacing.
func RoundTickToSpacing(tick int32, spacing int32) int32 {
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}

// TickArrayStartIndex returns the start index of the tick-array account that
// holds the given tick.
func TickArrayStartIndex(tick int32, spacing int32) int32 {
	span := TickArraySize * spacing
	return RoundTickToSpacing(tick, span)
}

// TickRange is a spacing-adjusted tick range together with the √prices
// re-derived from the adjusted ticks. All liquidity math must consume these
// adjusted √prices, never the ones computed from the raw request prices.
type TickRange struct {
	TickLower      int32
	TickUpper      int32
	SqrtPriceLower *big.Int
	SqrtPriceUpper *big.Int
}

// PriceRangeToTicks converts a human price range into its on-chain tick
// representation, flooring both bounds to the pool's tick spacing.
func PriceRangeToTicks(priceLower, priceUpper decimal.Decimal, decimals0, decimals1 uint8, spacing int32) (*TickRange, error) {
	if spacing <= 0 {
		return nil, fmt.Errorf("%w: tick spacing must be positive", ErrInvalidRequest)
	}
	if priceLower.Cmp(priceUpper) >= 0 {
		return nil, fmt.Errorf("%w: lower price must be strictly below upper price", ErrInvalidRequest)
	}

	tickLower, err := priceToTick(priceLower, decimals0, decimals1)
	if err != nil {
		return nil, err
	}
	tickUpper, err := priceToTick(priceUpper, decimals0, decimals1)
	if err != nil {
		return nil, err
	}

	tickLower = RoundTickToSpacing(tickLower, spacing)
	tickUpper = RoundTickToSpacing(tickUpper, spacing)
	if tickLower == tickUpper {
		tickUpper += spacing
	}

	sqrtLower, err := GetSqrtPriceAtTick(tickLower)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := GetSqrtPriceAtTick(tickUpper)
	if err != nil {
		return nil, err
	}

	return &TickRange{
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		SqrtPriceLower: sqrtLower,
		SqrtPriceUpper: sqrtUpper,
	}, nil
}

func priceToTick(price decimal.Decimal, decimals0, decimals1 uint8) (int32, error) {
	sqrtPriceX64, err := GetSqrtPriceFromPrice(price, decimals0, decimals1)
	if err != nil {
		return 0, err
	}
	return GetTickAtSqrtPrice(sqrtPriceX64)
}
