package curve

import (
	"math/big"

	"github.com/Topo-Labs/coinfair-solana-backend/solana/token2022"
)

// TransferFeeExcludedAmount is the forward form: given an amount about to be
// transferred, it returns what arrives after the mint's transfer fee, plus the
// fee itself. A nil config means the mint charges no fee.
func TransferFeeExcludedAmount(cfg *token2022.TransferFeeConfig, amount *big.Int, currentEpoch uint64) (*big.Int, *big.Int) {
	if cfg == nil {
		return new(big.Int).Set(amount), big.NewInt(0)
	}
	fee := token2022.CalculateFee(token2022.GetEpochFee(cfg, currentEpoch), amount)
	return new(big.Int).Sub(amount, fee), fee
}

// TransferFeeIncludedAmount is the inverse form: given the amount that must
// arrive after the fee, it returns the pre-fee amount to transfer, plus the
// fee. Rounds up so the recipient is never shorted.
func TransferFeeIncludedAmount(cfg *token2022.TransferFeeConfig, postFeeAmount *big.Int, currentEpoch uint64) (*big.Int, *big.Int) {
	if postFeeAmount.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	if cfg == nil {
		return new(big.Int).Set(postFeeAmount), big.NewInt(0)
	}

	epochFee := token2022.GetEpochFee(cfg, currentEpoch)

	var fee *big.Int
	if epochFee.BasisPoints == MaxFeeBasisPoints {
		fee = new(big.Int).SetUint64(epochFee.MaximumFee)
	} else {
		fee = token2022.CalculateFee(epochFee, preFeeAmount(epochFee, postFeeAmount))
	}
	return new(big.Int).Add(postFeeAmount, fee), fee
}

// preFeeAmount inverts the token program's fee formula, saturating at the
// per-transfer maximum fee exactly as the program does.
func preFeeAmount(tf token2022.TransferFee, postFeeAmount *big.Int) *big.Int {
	if tf.BasisPoints == 0 {
		return new(big.Int).Set(postFeeAmount)
	}

	maximumFee := new(big.Int).SetUint64(tf.MaximumFee)
	if tf.BasisPoints == MaxFeeBasisPoints {
		return new(big.Int).Add(postFeeAmount, maximumFee)
	}

	oneInBps := big.NewInt(int64(MaxFeeBasisPoints))
	numerator := new(big.Int).Mul(postFeeAmount, oneInBps)
	denominator := new(big.Int).Sub(oneInBps, big.NewInt(int64(tf.BasisPoints)))

	raw := divRoundUp(numerator, denominator)

	if new(big.Int).Sub(raw, postFeeAmount).Cmp(maximumFee) >= 0 {
		return new(big.Int).Add(postFeeAmount, maximumFee)
	}
	return raw
}
