package clmm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
	solanago "github.com/Topo-Labs/coinfair-solana-backend/solana"
)

// ReferralLevel is one resolved hop of the chain: the referrer and their
// reward token account for the reward mint.
type ReferralLevel struct {
	Owner         solana.PublicKey
	RewardAccount solana.PublicKey
}

// ReferralChain is the resolved upward chain of a payer, at most two hops
// deep. PrepInstructions create the reward accounts idempotently and are
// emitted ahead of the main instruction.
type ReferralChain struct {
	// Record is the payer's referral record address; the zero key when the
	// payer has none on chain.
	Record           solana.PublicKey
	Levels           []ReferralLevel
	PrepInstructions []solana.Instruction
}

// Slots maps the chain onto the fixed-arity referral tail of a swap's account
// list, filling absent levels with the program-ID sentinel.
func (c *ReferralChain) Slots(variant curve.ProgramVariant) curve.ReferralSlots {
	slots := curve.SentinelReferralSlots(variant)
	if c == nil {
		return slots
	}
	if !c.Record.IsZero() {
		slots.Record = c.Record
	}
	if len(c.Levels) > 0 {
		slots.UpperReward = c.Levels[0].RewardAccount
	}
	if len(c.Levels) > 1 {
		slots.Upper2Reward = c.Levels[1].RewardAccount
	}
	return slots
}

// ResolveReferralChain walks the payer's referral record upward, at most two
// hops. A missing record at any level truncates the chain; it is never an
// error. For each resolved referrer the reward account creation is emitted as
// an idempotent instruction, paid by payer, so it cannot fail when the account
// already exists.
func (m *Clmm) ResolveReferralChain(ctx context.Context, payer solana.PublicKey, rewardMint solana.PublicKey) (*ReferralChain, error) {
	chain := &ReferralChain{}

	record, err := m.readReferral(ctx, payer)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return chain, nil
	}

	recordAddress, err := curve.DeriveReferralAddress(m.variant, payer)
	if err != nil {
		return nil, err
	}
	chain.Record = recordAddress

	upper := record.Upper
	for hop := 0; hop < 2 && !upper.IsZero(); hop++ {
		rewardAccount, ix, err := solanago.CreateIdempotentATAInstruction(payer, upper, rewardMint)
		if err != nil {
			return nil, fmt.Errorf("%w: referral reward account: %v", curve.ErrInstructionBuild, err)
		}
		chain.Levels = append(chain.Levels, ReferralLevel{Owner: upper, RewardAccount: rewardAccount})
		chain.PrepInstructions = append(chain.PrepInstructions, ix)

		if hop == 1 {
			break
		}
		upperRecord, err := m.readReferral(ctx, upper)
		if err != nil {
			return nil, err
		}
		if upperRecord == nil {
			break
		}
		upper = upperRecord.Upper
	}

	m.logger.Debug("resolved referral chain",
		zap.Stringer("payer", payer),
		zap.Int("levels", len(chain.Levels)))
	return chain, nil
}

// readReferralRecord fetches and decodes a referral record, returning
// (nil, nil) when the account does not exist.
func (m *Clmm) readReferralRecord(ctx context.Context, owner solana.PublicKey) (*curve.ReferralAccount, error) {
	address, err := curve.DeriveReferralAddress(m.variant, owner)
	if err != nil {
		return nil, err
	}
	out, err := solanago.GetAccountInfo(ctx, m.rpcClient, address)
	if err == rpc.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: referral record %s: %v", curve.ErrChainRead, address, err)
	}
	return curve.DecodeReferralAccount(out.GetBinary())
}
