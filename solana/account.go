package solana

import (
	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// Account is a decoded SPL token account.
type Account struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey

	// Raw token balance
	Amount uint64

	Delegate        *solana.PublicKey
	DelegatedAmount uint64

	IsInitialized bool
	IsFrozen      bool

	// Set for WSOL accounts; RentExemptReserve is the balance floor that
	// must remain until the account is closed.
	IsNative          bool
	RentExemptReserve *uint64

	CloseAuthority *solana.PublicKey
}

// tokenAccountLayout matches the on-chain SPL token account encoding,
// COption fields expanded to tag + value.
type tokenAccountLayout struct {
	Mint                 solana.PublicKey
	Owner                solana.PublicKey
	Amount               uint64
	DelegateOption       uint32
	Delegate             *solana.PublicKey
	State                uint8
	IsNativeOption       uint32
	IsNative             *uint64
	DelegatedAmount      uint64
	CloseAuthorityOption uint32
	CloseAuthority       *solana.PublicKey
}

type AccountLayout struct {
}

func (l *AccountLayout) Decode(data []byte) (*Account, error) {
	raw := &tokenAccountLayout{}
	if err := binary.NewBinDecoder(data).Decode(raw); err != nil {
		return nil, err
	}

	account := &Account{
		Mint:            raw.Mint,
		Owner:           raw.Owner,
		Amount:          raw.Amount,
		DelegatedAmount: raw.DelegatedAmount,
		IsInitialized:   AccountState(raw.State) != AccountStateUninitialized,
		IsFrozen:        AccountState(raw.State) == AccountStateFrozen,
		IsNative:        raw.IsNativeOption > 0,
	}
	if raw.DelegateOption > 0 {
		account.Delegate = raw.Delegate
	}
	if raw.IsNativeOption > 0 {
		account.RentExemptReserve = raw.IsNative
	}
	if raw.CloseAuthorityOption > 0 {
		account.CloseAuthority = raw.CloseAuthority
	}
	return account, nil
}
