package curve

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// PDA seed prefixes, part of the program ABI.
var (
	seedAmmConfig   = []byte("amm_config")
	seedPool        = []byte("pool")
	seedPoolVault   = []byte("pool_vault")
	seedPosition    = []byte("position")
	seedTickArray   = []byte("tick_array")
	seedObservation = []byte("observation")
	seedOperation   = []byte("operation")
	seedReferral    = []byte("referral")
)

func findAddress(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return pda, nil
}

// DeriveAmmConfigAddress derives the config account for a config index.
func DeriveAmmConfigAddress(variant ProgramVariant, index uint16) (solana.PublicKey, error) {
	indexBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(indexBytes, index)
	return findAddress(variant.ProgramID(), seedAmmConfig, indexBytes)
}

// DerivePoolAddress derives the pool for a config and a mint pair. Mint order
// is canonical: the smaller key is mint0.
func DerivePoolAddress(variant ProgramVariant, config, mint0, mint1 solana.PublicKey) (solana.PublicKey, error) {
	if bytes.Compare(mint0.Bytes(), mint1.Bytes()) > 0 {
		mint0, mint1 = mint1, mint0
	}
	return findAddress(variant.ProgramID(), seedPool, config.Bytes(), mint0.Bytes(), mint1.Bytes())
}

// DerivePoolVaultAddress derives the reserve vault of one mint in a pool.
func DerivePoolVaultAddress(variant ProgramVariant, pool, mint solana.PublicKey) (solana.PublicKey, error) {
	return findAddress(variant.ProgramID(), seedPoolVault, pool.Bytes(), mint.Bytes())
}

// DerivePositionAddress derives the position account owned by a position NFT.
func DerivePositionAddress(variant ProgramVariant, positionNftMint solana.PublicKey) (solana.PublicKey, error) {
	return findAddress(variant.ProgramID(), seedPosition, positionNftMint.Bytes())
}

// DeriveTickArrayAddress derives the tick-array account holding a start index.
func DeriveTickArrayAddress(variant ProgramVariant, pool solana.PublicKey, startIndex int32) (solana.PublicKey, error) {
	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, uint32(startIndex))
	return findAddress(variant.ProgramID(), seedTickArray, pool.Bytes(), indexBytes)
}

// DeriveObservationAddress derives the pool's price observation account.
func DeriveObservationAddress(variant ProgramVariant, pool solana.PublicKey) (solana.PublicKey, error) {
	return findAddress(variant.ProgramID(), seedObservation, pool.Bytes())
}

// DeriveOperationAddress derives the program's operation authority account.
func DeriveOperationAddress(variant ProgramVariant) (solana.PublicKey, error) {
	return findAddress(variant.ProgramID(), seedOperation)
}

// DeriveReferralAddress derives the referral record of a trading account. The
// record holds the owner's upper referrer, forming the upward chain.
func DeriveReferralAddress(variant ProgramVariant, owner solana.PublicKey) (solana.PublicKey, error) {
	return findAddress(variant.ProgramID(), seedReferral, owner.Bytes())
}

// DeriveRewardTokenAccount derives the deterministic reward account of one
// referral level: the referrer's associated token account for the reward mint.
func DeriveRewardTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return ata, err
}

// DerivePositionNftAccount derives the token account holding a position NFT:
// the owner's associated token account for the NFT mint.
func DerivePositionNftAccount(owner, nftMint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, nftMint)
	return ata, err
}
