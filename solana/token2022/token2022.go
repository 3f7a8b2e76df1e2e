// Package token2022 reads the transfer-fee extension of token-2022 mints and
// reproduces the token program's fee arithmetic.
package token2022

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MaxFeeBasisPoints is the basis-point ceiling of the transfer fee extension.
const MaxFeeBasisPoints = 10_000

// TransferFee is one epoch's fee schedule.
type TransferFee struct {
	Epoch       uint64
	MaximumFee  uint64
	BasisPoints uint16
}

// TransferFeeConfig is the decoded transfer-fee extension of a mint. Two
// schedules coexist so fee changes take effect on an epoch boundary.
type TransferFeeConfig struct {
	TransferFeeConfigAuthority *solana.PublicKey
	WithdrawWithheldAuthority  *solana.PublicKey
	WithheldAmount             uint64
	OlderTransferFee           TransferFee
	NewerTransferFee           TransferFee
}

// transferFeeConfigMagic precedes the extension payload in the mint's TLV
// data.
var transferFeeConfigMagic = []byte{0xad, 0x65, 0x2b, 0x54, 0x0e, 0x4d, 0x0d, 0x27}

func parseCOptionPubkey(data []byte) (*solana.PublicKey, int, error) {
	if len(data) < 1 {
		return nil, 0, errors.New("data too short for COption tag")
	}

	switch data[0] {
	case 0: // None
		return nil, 1, nil
	case 1: // Some(pubkey)
		if len(data) < 33 {
			return nil, 0, errors.New("data too short for Pubkey")
		}
		key := solana.PublicKeyFromBytes(data[1:33])
		return &key, 33, nil
	default:
		return nil, 0, errors.New("invalid COption tag")
	}
}

func parseTransferFee(data []byte) (TransferFee, error) {
	if len(data) < 18 {
		return TransferFee{}, errors.New("data too short for TransferFee")
	}
	return TransferFee{
		Epoch:       binary.LittleEndian.Uint64(data[:8]),
		MaximumFee:  binary.LittleEndian.Uint64(data[8:16]),
		BasisPoints: binary.LittleEndian.Uint16(data[16:18]),
	}, nil
}

// GetTransferFeeConfig fetches a mint and decodes its transfer-fee extension.
// A nil config (with nil error) means the mint carries no such extension,
// which callers treat as a zero fee.
func GetTransferFeeConfig(ctx context.Context, rpcClient *rpc.Client, mint solana.PublicKey) (*TransferFeeConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	out, err := rpcClient.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{Commitment: rpc.CommitmentFinalized})
	if err != nil {
		return nil, err
	}
	return DecodeTransferFeeConfig(out.GetBinary())
}

// DecodeTransferFeeConfig scans raw mint data for the transfer-fee extension.
func DecodeTransferFeeConfig(data []byte) (*TransferFeeConfig, error) {
	idx := bytes.Index(data, transferFeeConfigMagic)
	if idx < 0 {
		return nil, nil
	}
	buf := data[idx+8:]

	cfg := &TransferFeeConfig{}

	auth, n, err := parseCOptionPubkey(buf)
	if err != nil {
		return nil, err
	}
	cfg.TransferFeeConfigAuthority = auth
	buf = buf[n:]

	withdrawAuth, n, err := parseCOptionPubkey(buf)
	if err != nil {
		return nil, err
	}
	cfg.WithdrawWithheldAuthority = withdrawAuth
	buf = buf[n:]

	if len(buf) < 8 {
		return nil, errors.New("data too short for WithheldAmount")
	}
	cfg.WithheldAmount = binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]

	if cfg.OlderTransferFee, err = parseTransferFee(buf); err != nil {
		return nil, err
	}
	buf = buf[18:]

	if cfg.NewerTransferFee, err = parseTransferFee(buf); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetEpochFee picks the schedule in force at the given epoch.
func GetEpochFee(cfg *TransferFeeConfig, currentEpoch uint64) TransferFee {
	if cfg == nil {
		return TransferFee{}
	}
	if currentEpoch >= cfg.NewerTransferFee.Epoch {
		return cfg.NewerTransferFee
	}
	return cfg.OlderTransferFee
}

// CalculateFee mirrors the token program: fee is the basis-point share of the
// amount rounded up, capped at MaximumFee.
func CalculateFee(tf TransferFee, amount *big.Int) *big.Int {
	if tf.BasisPoints == 0 || amount.Sign() == 0 {
		return big.NewInt(0)
	}

	fee := new(big.Int).Mul(amount, big.NewInt(int64(tf.BasisPoints)))
	fee.Add(fee, big.NewInt(MaxFeeBasisPoints-1))
	fee.Div(fee, big.NewInt(MaxFeeBasisPoints))

	maximumFee := new(big.Int).SetUint64(tf.MaximumFee)
	if fee.Cmp(maximumFee) > 0 {
		return maximumFee
	}
	return fee
}
