package clmm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	solanago "github.com/Topo-Labs/coinfair-solana-backend/solana"
)

// TokenDecimals fetches the decimals of each mint in one batched read. Every
// requested mint must exist on chain.
func (m *Clmm) TokenDecimals(ctx context.Context, mints ...solana.PublicKey) (map[solana.PublicKey]uint8, error) {
	tokens, err := solanago.GetMultipleToken(ctx, m.rpcClient, mints...)
	if err != nil {
		return nil, fmt.Errorf("%w: mints: %v", curve.ErrChainRead, err)
	}
	decimals := make(map[solana.PublicKey]uint8, len(mints))
	for i, tok := range tokens {
		if tok == nil {
			return nil, fmt.Errorf("%w: mint %s not found", curve.ErrChainRead, mints[i])
		}
		decimals[mints[i]] = tok.Decimals
	}
	return decimals, nil
}

// TokenBalances returns the wallet's token balances keyed by mint, merging
// accounts under both the classic token program and token-2022.
func (m *Clmm) TokenBalances(ctx context.Context, wallet solana.PublicKey) (map[string]uint64, error) {
	balances := make(map[string]uint64)
	for _, program := range []solana.PublicKey{solana.TokenProgramID, solana.Token2022ProgramID} {
		part, err := solanago.GetTokenBalances(ctx, m.rpcClient, wallet, program)
		if err != nil {
			return nil, fmt.Errorf("%w: balances %s: %v", curve.ErrChainRead, wallet, err)
		}
		for mint, amount := range part {
			balances[mint] += amount
		}
	}
	return balances, nil
}
