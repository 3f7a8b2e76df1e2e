package curve

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePoolAddressCanonicalOrder(t *testing.T) {
	config := solana.NewWallet().PublicKey()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	pool1, err := DerivePoolAddress(VariantClassic, config, mintA, mintB)
	require.NoError(t, err)
	pool2, err := DerivePoolAddress(VariantClassic, config, mintB, mintA)
	require.NoError(t, err)
	assert.Equal(t, pool1, pool2, "mint order must not change the pool address")
}

func TestDeriveAddressesAreVariantScoped(t *testing.T) {
	pool := solana.NewWallet().PublicKey()

	classic, err := DeriveObservationAddress(VariantClassic, pool)
	require.NoError(t, err)
	token22, err := DeriveObservationAddress(VariantToken22, pool)
	require.NoError(t, err)
	assert.NotEqual(t, classic, token22, "each deployment has its own PDA space")
}

func TestDeriveTickArrayAddressDeterministic(t *testing.T) {
	pool := solana.NewWallet().PublicKey()

	a, err := DeriveTickArrayAddress(VariantClassic, pool, -3600)
	require.NoError(t, err)
	b, err := DeriveTickArrayAddress(VariantClassic, pool, -3600)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := DeriveTickArrayAddress(VariantClassic, pool, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDeriveAmmConfigAddressByIndex(t *testing.T) {
	cfg0, err := DeriveAmmConfigAddress(VariantClassic, 0)
	require.NoError(t, err)
	cfg1, err := DeriveAmmConfigAddress(VariantClassic, 1)
	require.NoError(t, err)
	assert.NotEqual(t, cfg0, cfg1)
}

func TestDeriveRewardTokenAccount(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	got, err := DeriveRewardTokenAccount(owner, mint)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDerivePositionChain(t *testing.T) {
	nftMint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	position, err := DerivePositionAddress(VariantClassic, nftMint)
	require.NoError(t, err)
	assert.False(t, position.IsZero())

	nftAccount, err := DerivePositionNftAccount(owner, nftMint)
	require.NoError(t, err)
	assert.False(t, nftAccount.IsZero())
	assert.NotEqual(t, position, nftAccount)
}
