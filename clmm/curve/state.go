package curve

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AccountDiscriminator returns the 8-byte anchor discriminator prefixed to
// every program account of the named type.
func AccountDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("account:" + name))
	out := make([]byte, 8)
	copy(out, hash[:8])
	return out
}

// PoolState is the on-chain pool account. It is an immutable snapshot from the
// engine's point of view; only the program mutates it.
type PoolState struct {
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	// 0 = SPL Token, 1 = Token-2022, per mint.
	MintProgramFlag0 uint8
	MintProgramFlag1 uint8
	TickSpacing      uint16
	Liquidity        bin.Uint128
	SqrtPriceX64     bin.Uint128
	TickCurrent      int32
	FeeGrowth0X64    bin.Uint128
	FeeGrowth1X64    bin.Uint128
	ProtocolFees0    uint64
	ProtocolFees1    uint64
	FundFees0        uint64
	FundFees1        uint64
	// EnableCreatorFee gates the creator tier of the fee cascade per pool.
	EnableCreatorFee uint8
	Status           uint8
	Padding          [30]uint64
}

// TokenProgram0 returns the owning token program of mint0.
func (p *PoolState) TokenProgram0() solana.PublicKey {
	if p.MintProgramFlag0 == 1 {
		return solana.Token2022ProgramID
	}
	return solana.TokenProgramID
}

// TokenProgram1 returns the owning token program of mint1.
func (p *PoolState) TokenProgram1() solana.PublicKey {
	if p.MintProgramFlag1 == 1 {
		return solana.Token2022ProgramID
	}
	return solana.TokenProgramID
}

// AmmConfig is the fee/spacing configuration shared by pools. Read-only and
// cacheable; see the clmm package resolver.
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	CreatorFeeRate  uint32
	FundOwner       solana.PublicKey
	Padding         [3]uint64
}

// FeeRates assembles the curve's fee cascade from the config, dropping the
// creator tier when the pool does not enable it.
func (c *AmmConfig) FeeRates(enableCreatorFee bool) FeeRates {
	rates := FeeRates{
		TradeFeeRate:    c.TradeFeeRate,
		ProtocolFeeRate: c.ProtocolFeeRate,
		FundFeeRate:     c.FundFeeRate,
	}
	if enableCreatorFee {
		rates.CreatorFeeRate = c.CreatorFeeRate
	}
	return rates
}

// PositionState is the on-chain personal position account, keyed by its NFT
// mint. Created by open, mutated by increase/decrease.
type PositionState struct {
	Bump                    uint8
	NftMint                 solana.PublicKey
	PoolID                  solana.PublicKey
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               bin.Uint128
	FeeGrowthInside0LastX64 bin.Uint128
	FeeGrowthInside1LastX64 bin.Uint128
	TokenFeesOwed0          uint64
	TokenFeesOwed1          uint64
	Padding                 [8]uint64
}

// ReferralAccount is a payer's referral record. Upper is zeroed when the
// account has no referrer; chain depth is capped at two hops by the resolver.
type ReferralAccount struct {
	Bump  uint8
	Owner solana.PublicKey
	Upper solana.PublicKey
}

// HasUpper reports whether the record points at a referrer.
func (r *ReferralAccount) HasUpper() bool {
	return !r.Upper.IsZero()
}

func decodeAccount(name string, data []byte, out interface{}) error {
	disc := AccountDiscriminator(name)
	if len(data) < 8 || !bytes.Equal(data[:8], disc) {
		return fmt.Errorf("%w: account data is not a %s", ErrChainRead, name)
	}
	if err := bin.NewBinDecoder(data[8:]).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrChainRead, name, err)
	}
	return nil
}

// DecodePoolState decodes a pool account, verifying its discriminator.
func DecodePoolState(data []byte) (*PoolState, error) {
	pool := &PoolState{}
	if err := decodeAccount(AccountKeyPool, data, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// DecodeAmmConfig decodes a config account, verifying its discriminator.
func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	cfg := &AmmConfig{}
	if err := decodeAccount(AccountKeyAmmConfig, data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodePositionState decodes a position account, verifying its discriminator.
func DecodePositionState(data []byte) (*PositionState, error) {
	position := &PositionState{}
	if err := decodeAccount(AccountKeyPosition, data, position); err != nil {
		return nil, err
	}
	return position, nil
}

// DecodeReferralAccount decodes a referral record, verifying its discriminator.
func DecodeReferralAccount(data []byte) (*ReferralAccount, error) {
	referral := &ReferralAccount{}
	if err := decodeAccount(AccountKeyReferral, data, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// EncodeAccount serializes a program account with its discriminator. The
// engine itself never writes accounts; this supports fixtures and the
// best-effort config store.
func EncodeAccount(name string, account interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(AccountDiscriminator(name))
	if err := bin.NewBinEncoder(buf).Encode(account); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
