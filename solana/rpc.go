package solana

import (
	"context"
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/tidwall/gjson"
)

func GetAccountInfo(ctx context.Context, rpcClient *rpc.Client, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return rpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: rpc.CommitmentFinalized})
}

func GetMultipleAccountInfo(ctx context.Context, rpcClient *rpc.Client, accounts []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	return rpcClient.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{Commitment: rpc.CommitmentFinalized, Encoding: solana.EncodingBase64})
}

func GetLatestBlockhash(ctx context.Context, rpcClient *rpc.Client) (solana.Hash, error) {
	recent, err := rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return recent.Value.Blockhash, nil
}

func GetCurrentEpoch(ctx context.Context, rpcClient *rpc.Client) (uint64, error) {
	epochInfo, err := rpcClient.GetEpochInfo(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, err
	}
	return epochInfo.Epoch, nil
}

func accountDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("account:" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out[:]
}

// GenProgramAccountFilter builds a getProgramAccounts filter matching the
// anchor discriminator of the named account type, optionally narrowed to a
// pubkey field at the given byte offset.
func GenProgramAccountFilter(accountName string, owner solana.PublicKey, offset uint64) *rpc.GetProgramAccountsOpts {
	opt := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentFinalized,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  accountDiscriminator(accountName),
				},
			},
		},
	}
	if owner.IsZero() {
		return opt
	}

	opt.Filters = append(opt.Filters, rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: offset,
			Bytes:  owner[:],
		},
	})
	return opt
}

// GetMultipleToken fetches and decodes several mints at once. Entries for
// accounts that do not exist are nil.
func GetMultipleToken(ctx context.Context, rpcClient *rpc.Client, mints ...solana.PublicKey) ([]*Token, error) {
	outs, err := GetMultipleAccountInfo(ctx, rpcClient, mints)
	if err != nil {
		return nil, err
	}
	list := make([]*Token, len(outs.Value))
	for i, out := range outs.Value {
		if out == nil {
			continue
		}

		token, err := new(TokenLayout).Decode(out.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		token.Owner = out.Owner

		list[i] = token
	}
	return list, nil
}

// GetTokenHolder returns the wallet holding the given mint's supply. Used to
// resolve the owner of a position NFT: supply 1, so the largest token account
// is the holder. Returns the zero key when no account holds it.
func GetTokenHolder(ctx context.Context, rpcClient *rpc.Client, mint solana.PublicKey) (solana.PublicKey, error) {
	largest, err := rpcClient.GetTokenLargestAccounts(ctx, mint, rpc.CommitmentFinalized)
	if err != nil {
		return solana.PublicKey{}, err
	}
	for _, acct := range largest.Value {
		if acct.Amount == "0" {
			continue
		}
		out, err := rpcClient.GetAccountInfoWithOpts(ctx, acct.Address, &rpc.GetAccountInfoOpts{
			Commitment: rpc.CommitmentFinalized,
			Encoding:   solana.EncodingJSONParsed,
		})
		if err != nil {
			return solana.PublicKey{}, err
		}
		return parsedAccountOwner(out.Value.Data.GetRawJSON())
	}
	return solana.PublicKey{}, nil
}

func parsedAccountOwner(raw []byte) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(gjson.GetBytes(raw, "parsed.info.owner").String())
}

// GetTokenBalances scans a wallet's token accounts under the given token
// program and returns the raw balance per mint.
func GetTokenBalances(ctx context.Context, rpcClient *rpc.Client, wallet solana.PublicKey, tokenProgram solana.PublicKey) (map[string]uint64, error) {
	resp, err := rpcClient.GetTokenAccountsByOwner(
		ctx,
		wallet,
		&rpc.GetTokenAccountsConfig{ProgramId: &tokenProgram},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]uint64)
	for _, v := range resp.Value {
		mint, amount := parsedTokenBalance(v.Account.Data.GetRawJSON())
		if amount == 0 || mint == "" {
			continue
		}
		balances[mint] = amount
	}
	return balances, nil
}

func parsedTokenBalance(raw []byte) (string, uint64) {
	return gjson.GetBytes(raw, "parsed.info.mint").String(),
		gjson.GetBytes(raw, "parsed.info.tokenAmount.amount").Uint()
}
