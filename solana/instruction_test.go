package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIdempotentATAInstruction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ata, ix, err := CreateIdempotentATAInstruction(payer, owner, mint)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, ata)

	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	metas := ix.Accounts()
	require.Len(t, metas, 6)
	assert.Equal(t, payer, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[0].IsWritable)
	assert.Equal(t, ata, metas[1].PublicKey)
	assert.True(t, metas[1].IsWritable)
	assert.False(t, metas[1].IsSigner)
	assert.Equal(t, owner, metas[2].PublicKey)
	assert.Equal(t, mint, metas[3].PublicKey)
	assert.Equal(t, solana.SystemProgramID, metas[4].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[5].PublicKey)
}

func TestWrapUnwrapSOLInstructions(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	wsol := solana.NewWallet().PublicKey()

	wrap := WrapSOLInstructions(owner, wsol, 1_000_000)
	require.Len(t, wrap, 2)
	assert.Equal(t, solana.SystemProgramID, wrap[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, wrap[1].ProgramID())

	unwrap := UnwrapSOLInstruction(wsol, owner)
	assert.Equal(t, solana.TokenProgramID, unwrap.ProgramID())
}

func TestMergeInstructionsDedupesATACreates(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	otherMint := solana.NewWallet().PublicKey()

	createA := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build()
	createADup := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build()
	createB := associatedtokenaccount.NewCreateInstruction(payer, owner, otherMint).Build()

	merged := MergeInstructions([]solana.Instruction{createA, createADup, createB})
	assert.Len(t, merged, 2)
	assert.Same(t, solana.Instruction(createA), merged[0])
	assert.Same(t, solana.Instruction(createB), merged[1])
}

func TestMergeInstructionsSumsTransfers(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	wsol := solana.NewWallet().PublicKey()

	first := WrapSOLInstructions(owner, wsol, 300)
	second := WrapSOLInstructions(owner, wsol, 700)

	merged := MergeInstructions(append(first, second...))
	// One transfer with the summed lamports, one sync-native.
	require.Len(t, merged, 2)

	transfer, ok := merged[0].(*system.Instruction)
	require.True(t, ok)
	impl, ok := transfer.Impl.(system.Transfer)
	require.True(t, ok)
	assert.Equal(t, uint64(1_000), *impl.Lamports)
}

func TestMergeInstructionsDedupesCloses(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	wsol := solana.NewWallet().PublicKey()

	close1 := UnwrapSOLInstruction(wsol, owner)
	close2 := UnwrapSOLInstruction(wsol, owner)

	merged := MergeInstructions([]solana.Instruction{close1, close2})
	assert.Len(t, merged, 1)
}

func TestMergeInstructionsKeepsUnknownOrder(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	wsol := solana.NewWallet().PublicKey()
	opaque := solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		solana.AccountMetaSlice{solana.NewAccountMeta(owner, false, true)},
		[]byte{1, 2, 3},
	)

	wrap := WrapSOLInstructions(owner, wsol, 100)
	input := []solana.Instruction{wrap[0], opaque, wrap[1], opaque}

	merged := MergeInstructions(input)
	require.Len(t, merged, 4, "opaque instructions pass through untouched")
	assert.Same(t, solana.Instruction(opaque), merged[1])
	assert.Same(t, solana.Instruction(opaque), merged[3])
}
