package solana

import (
	"context"

	bin "encoding/binary"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// PrepareTokenATA resolves the owner's associated token account for mint and,
// when it does not exist yet, appends a create instruction.
func PrepareTokenATA(
	ctx context.Context,
	rpcClient *rpc.Client,
	owner solana.PublicKey,
	tokenMint solana.PublicKey,
	payer solana.PublicKey,
	instructions *[]solana.Instruction,
) (solana.PublicKey, error) {
	tokenATA, _, err := solana.FindAssociatedTokenAddress(owner, tokenMint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	exists, err := GetAccountInfo(ctx, rpcClient, tokenATA)
	if err != nil && err != rpc.ErrNotFound {
		return solana.PublicKey{}, err
	}

	if exists == nil {
		ix := associatedtokenaccount.NewCreateInstruction(
			payer, owner, tokenMint,
		).Build()
		*instructions = append(*instructions, ix)
	}
	return tokenATA, nil
}

// CreateIdempotentATAInstruction builds a CreateIdempotent associated token
// account instruction. Unlike PrepareTokenATA it never queries the chain:
// the instruction is a no-op on-chain when the account already exists, which
// lets callers emit it unconditionally.
func CreateIdempotentATAInstruction(
	payer solana.PublicKey,
	owner solana.PublicKey,
	tokenMint solana.PublicKey,
) (solana.PublicKey, solana.Instruction, error) {
	tokenATA, _, err := solana.FindAssociatedTokenAddress(owner, tokenMint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(tokenATA, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(tokenMint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	// discriminator 1 = CreateIdempotent
	ix := solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, []byte{1})
	return tokenATA, ix, nil
}

// WrapSOLInstructions funds a WSOL token account with lamports and syncs its
// balance so it can be spent as an SPL token.
func WrapSOLInstructions(owner solana.PublicKey, wsolAccount solana.PublicKey, lamports uint64) []solana.Instruction {
	wrapSOLIx := system.NewTransferInstruction(
		lamports,
		owner,
		wsolAccount,
	).Build()

	syncNativeIx := token.NewSyncNativeInstruction(
		wsolAccount,
	).Build()

	return []solana.Instruction{wrapSOLIx, syncNativeIx}
}

// UnwrapSOLInstruction closes a WSOL token account, returning its lamports to
// the owner.
func UnwrapSOLInstruction(wsolAccount solana.PublicKey, owner solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(
		wsolAccount,
		owner,
		owner,
		[]solana.PublicKey{},
	).Build()
}

var (
	ataInstructionTypeID          = binary.NoTypeIDDefaultID
	transferInstructionTypeID     = binary.TypeIDFromUint32(system.Instruction_Transfer, bin.LittleEndian)
	syncNativeInstructionTypeID   = binary.TypeIDFromUint8(token.Instruction_SyncNative)
	closeAccountInstructionTypeID = binary.TypeIDFromUint8(token.Instruction_CloseAccount)
)

// MergeInstructions deduplicates the bookkeeping instructions that flows like
// open-position or swap tend to emit twice when both legs target the same
// wallet: ATA creates, SOL wraps, sync-natives and account closes. Duplicate
// wrap transfers are merged by summing their lamports; everything else keeps
// its first occurrence and original order.
func MergeInstructions(oldInstructions []solana.Instruction) []solana.Instruction {
	var (
		ataCreates   []*associatedtokenaccount.Create
		transfers    []*system.Transfer
		closes       []*token.CloseAccount
		syncs        []*token.SyncNative
		instructions []solana.Instruction
	)

	keep := func(ix solana.Instruction) {
		instructions = append(instructions, ix)
	}

	for _, v := range oldInstructions {
		switch inst := v.(type) {
		case *associatedtokenaccount.Instruction:
			if inst.TypeID != ataInstructionTypeID {
				keep(v)
				break
			}
			create, ok := inst.Impl.(associatedtokenaccount.Create)
			if !ok {
				keep(v)
				break
			}
			dup := false
			for _, seen := range ataCreates {
				if create.Mint == seen.Mint && create.Payer == seen.Payer && create.Wallet == seen.Wallet {
					dup = true
					break
				}
			}
			if !dup {
				ataCreates = append(ataCreates, &create)
				keep(v)
			}
		case *system.Instruction:
			if inst.TypeID != transferInstructionTypeID {
				keep(v)
				break
			}
			transfer, ok := inst.Impl.(system.Transfer)
			if !ok {
				keep(v)
				break
			}
			dup := false
			for _, seen := range transfers {
				if transfer.GetFundingAccount().PublicKey == seen.GetFundingAccount().PublicKey &&
					transfer.GetRecipientAccount().PublicKey == seen.GetRecipientAccount().PublicKey {
					*seen.Lamports += *transfer.Lamports
					dup = true
					break
				}
			}
			if !dup {
				transfers = append(transfers, &transfer)
				keep(v)
			}
		case *token.Instruction:
			switch inst.TypeID {
			case syncNativeInstructionTypeID:
				sync, ok := inst.Impl.(token.SyncNative)
				if !ok {
					keep(v)
					break
				}
				dup := false
				for _, seen := range syncs {
					if sync.GetTokenAccount().PublicKey == seen.GetTokenAccount().PublicKey {
						dup = true
						break
					}
				}
				if !dup {
					syncs = append(syncs, &sync)
					keep(v)
				}
			case closeAccountInstructionTypeID:
				closeAccount, ok := inst.Impl.(token.CloseAccount)
				if !ok {
					keep(v)
					break
				}
				dup := false
				for _, seen := range closes {
					if closeAccount.GetAccount().PublicKey == seen.GetAccount().PublicKey &&
						closeAccount.GetDestinationAccount().PublicKey == seen.GetDestinationAccount().PublicKey &&
						closeAccount.GetOwnerAccount().PublicKey == seen.GetOwnerAccount().PublicKey {
						dup = true
						break
					}
				}
				if !dup {
					closes = append(closes, &closeAccount)
					keep(v)
				}
			default:
				keep(v)
			}
		default:
			keep(v)
		}
	}

	return instructions
}
