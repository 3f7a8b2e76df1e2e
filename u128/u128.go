// Package u128 converts between big.Int values and the little-endian 128-bit
// integers used in on-chain account and instruction encodings.
package u128

import (
	"errors"
	"fmt"
	"math/big"

	binary "github.com/gagliardetto/binary"
)

type Uint128 binary.Uint128

func (u *Uint128) Scan(s fmt.ScanState, ch rune) error {
	i := new(big.Int)
	if err := i.Scan(s, ch); err != nil {
		return err
	} else if i.Sign() < 0 {
		return errors.New("value cannot be negative")
	} else if i.BitLen() > 128 {
		return errors.New("value overflows Uint128")
	}
	u.Lo = i.Uint64()
	u.Hi = i.Rsh(i, 64).Uint64()
	return nil
}

// FromBig converts a non-negative big.Int into a little-endian Uint128.
func FromBig(v *big.Int) (binary.Uint128, error) {
	if v == nil || v.Sign() < 0 {
		return binary.Uint128{}, errors.New("value cannot be negative")
	}
	if v.BitLen() > 128 {
		return binary.Uint128{}, errors.New("value overflows Uint128")
	}
	u := binary.NewUint128LittleEndian()
	u.Lo = new(big.Int).And(v, maxU64).Uint64()
	u.Hi = new(big.Int).Rsh(v, 64).Uint64()
	return *u, nil
}

// Big converts a Uint128 back into a big.Int.
func Big(u binary.Uint128) *big.Int {
	out := new(big.Int).SetUint64(u.Hi)
	out.Lsh(out, 64)
	return out.Or(out, new(big.Int).SetUint64(u.Lo))
}

// GenUint128FromString parses a decimal string, panicking on malformed input.
// Meant for constants and test fixtures.
func GenUint128FromString(num string) binary.Uint128 {
	u128 := binary.NewUint128LittleEndian()
	if _, err := fmt.Sscan(num, (*Uint128)(u128)); err != nil {
		panic(err)
	}
	return *u128
}

var maxU64 = new(big.Int).SetUint64(^uint64(0))
