package clmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	solanago "github.com/Topo-Labs/coinfair-solana-backend/solana"
	"github.com/Topo-Labs/coinfair-solana-backend/solana/token2022"
)

// positionPoolOffset is the byte offset of PoolID inside a position account:
// 8-byte discriminator, bump, NFT mint.
const positionPoolOffset = 8 + 1 + 32

// GetPool loads the full pool snapshot one operation works against: pool
// account, resolved config, vault reserves net of accrued fees, transfer-fee
// configs and the current epoch.
func (m *Clmm) GetPool(ctx context.Context, address solana.PublicKey) (*Pool, error) {
	out, err := solanago.GetAccountInfo(ctx, m.rpcClient, address)
	if err != nil {
		return nil, fmt.Errorf("%w: pool %s: %v", curve.ErrChainRead, address, err)
	}
	state, err := curve.DecodePoolState(out.GetBinary())
	if err != nil {
		return nil, err
	}

	cfg, err := m.AmmConfig(ctx, state.AmmConfig)
	if err != nil {
		return nil, err
	}

	accounts, err := solanago.GetMultipleAccountInfo(ctx, m.rpcClient, []solana.PublicKey{
		state.TokenVault0, state.TokenVault1, state.TokenMint0, state.TokenMint1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: pool %s vaults: %v", curve.ErrChainRead, address, err)
	}
	for i, acct := range accounts.Value {
		if acct == nil {
			return nil, fmt.Errorf("%w: pool %s account %d missing", curve.ErrChainRead, address, i)
		}
	}

	vault0, err := new(solanago.AccountLayout).Decode(accounts.Value[0].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("%w: vault0: %v", curve.ErrChainRead, err)
	}
	vault1, err := new(solanago.AccountLayout).Decode(accounts.Value[1].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("%w: vault1: %v", curve.ErrChainRead, err)
	}

	pool := &Pool{
		Address:  address,
		State:    state,
		Config:   cfg,
		Reserve0: netReserve(vault0.Amount, state.ProtocolFees0, state.FundFees0),
		Reserve1: netReserve(vault1.Amount, state.ProtocolFees1, state.FundFees1),
	}

	if state.MintProgramFlag0 == 1 {
		if pool.TransferFee0, err = token2022.DecodeTransferFeeConfig(accounts.Value[2].Data.GetBinary()); err != nil {
			return nil, fmt.Errorf("%w: mint0 transfer fee: %v", curve.ErrChainRead, err)
		}
	}
	if state.MintProgramFlag1 == 1 {
		if pool.TransferFee1, err = token2022.DecodeTransferFeeConfig(accounts.Value[3].Data.GetBinary()); err != nil {
			return nil, fmt.Errorf("%w: mint1 transfer fee: %v", curve.ErrChainRead, err)
		}
	}

	if pool.TransferFee0 != nil || pool.TransferFee1 != nil {
		if pool.Epoch, err = solanago.GetCurrentEpoch(ctx, m.rpcClient); err != nil {
			return nil, fmt.Errorf("%w: epoch: %v", curve.ErrChainRead, err)
		}
	}
	return pool, nil
}

func netReserve(vaultAmount, protocolFees, fundFees uint64) *big.Int {
	reserve := new(big.Int).SetUint64(vaultAmount)
	reserve.Sub(reserve, new(big.Int).SetUint64(protocolFees))
	reserve.Sub(reserve, new(big.Int).SetUint64(fundFees))
	if reserve.Sign() < 0 {
		return big.NewInt(0)
	}
	return reserve
}

// findPosition scans the pool's position accounts for one owned by owner with
// the exact tick range. Returns (nil, nil) when none exists; ownership is
// established by the owner holding the position NFT.
func (m *Clmm) findPosition(ctx context.Context, owner, pool solana.PublicKey, tickLower, tickUpper int32) (*curve.PositionState, error) {
	opts := solanago.GenProgramAccountFilter(curve.AccountKeyPosition, pool, positionPoolOffset)
	accounts, err := m.rpcClient.GetProgramAccountsWithOpts(ctx, m.variant.ProgramID(), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: position scan: %v", curve.ErrChainRead, err)
	}

	var (
		candidates  []*curve.PositionState
		nftAccounts []solana.PublicKey
	)
	for _, acct := range accounts {
		position, err := curve.DecodePositionState(acct.Account.Data.GetBinary())
		if err != nil {
			continue
		}
		if position.TickLowerIndex != tickLower || position.TickUpperIndex != tickUpper {
			continue
		}
		nftAccount, err := curve.DerivePositionNftAccount(owner, position.NftMint)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, position)
		nftAccounts = append(nftAccounts, nftAccount)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	holders, err := solanago.GetMultipleAccountInfo(ctx, m.rpcClient, nftAccounts)
	if err != nil {
		return nil, fmt.Errorf("%w: position nft accounts: %v", curve.ErrChainRead, err)
	}
	for i, holder := range holders.Value {
		if holder == nil {
			continue
		}
		tokenAccount, err := new(solanago.AccountLayout).Decode(holder.Data.GetBinary())
		if err != nil {
			continue
		}
		if tokenAccount.Amount > 0 {
			return candidates[i], nil
		}
	}
	return nil, nil
}

// GetPositionSnapshot is the read-only position query: tick range, liquidity,
// unclaimed fees and the range's derived prices.
func (m *Clmm) GetPositionSnapshot(ctx context.Context, nftMint solana.PublicKey) (*PositionSnapshot, error) {
	positionAddress, err := curve.DerivePositionAddress(m.variant, nftMint)
	if err != nil {
		return nil, err
	}
	out, err := solanago.GetAccountInfo(ctx, m.rpcClient, positionAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: position %s: %v", curve.ErrChainRead, positionAddress, err)
	}
	position, err := curve.DecodePositionState(out.GetBinary())
	if err != nil {
		return nil, err
	}

	poolOut, err := solanago.GetAccountInfo(ctx, m.rpcClient, position.PoolID)
	if err != nil {
		return nil, fmt.Errorf("%w: pool %s: %v", curve.ErrChainRead, position.PoolID, err)
	}
	poolState, err := curve.DecodePoolState(poolOut.GetBinary())
	if err != nil {
		return nil, err
	}

	// The position NFT has supply 1; its largest holder is the owner.
	owner, err := solanago.GetTokenHolder(ctx, m.rpcClient, position.NftMint)
	if err != nil {
		return nil, fmt.Errorf("%w: position nft holder: %v", curve.ErrChainRead, err)
	}

	sqrtLower, err := curve.GetSqrtPriceAtTick(position.TickLowerIndex)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := curve.GetSqrtPriceAtTick(position.TickUpperIndex)
	if err != nil {
		return nil, err
	}

	return &PositionSnapshot{
		Pool:           position.PoolID,
		NftMint:        position.NftMint,
		Owner:          owner,
		TickLower:      position.TickLowerIndex,
		TickUpper:      position.TickUpperIndex,
		Liquidity:      u128Big(position.Liquidity),
		TokenFeesOwed0: position.TokenFeesOwed0,
		TokenFeesOwed1: position.TokenFeesOwed1,
		PriceLower:     curve.GetPriceFromSqrtPrice(sqrtLower, poolState.MintDecimals0, poolState.MintDecimals1),
		PriceUpper:     curve.GetPriceFromSqrtPrice(sqrtUpper, poolState.MintDecimals0, poolState.MintDecimals1),
	}, nil
}
