package solana

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Token is a decoded mint plus the program that owns it, which is how the
// classic token program and token-2022 mints are told apart.
type Token struct {
	token.Mint
	// Owning program of the mint account
	Owner solana.PublicKey
}

// IsToken2022 reports whether the mint lives under the token-2022 program.
func (t *Token) IsToken2022() bool {
	return t.Owner.Equals(solana.Token2022ProgramID)
}

// TokenLayout provides methods for decoding mint data
type TokenLayout struct {
}

func (l *TokenLayout) Decode(data []byte) (*Token, error) {
	mint := token.Mint{}

	if err := mint.Decode(data); err != nil {
		return nil, err
	}
	return &Token{Mint: mint}, nil
}
