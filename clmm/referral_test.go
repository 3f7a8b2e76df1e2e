package clmm

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Topo-Labs/coinfair-solana-backend/clmm/curve"
)

// referralClmm wires the service to an in-memory referral graph
// (owner -> upper; the zero key means a record without a referrer) and
// records every lookup it performs.
func referralClmm(records map[solana.PublicKey]solana.PublicKey, reads *[]solana.PublicKey) *Clmm {
	m := NewClmm(nil)
	m.readReferral = func(_ context.Context, owner solana.PublicKey) (*curve.ReferralAccount, error) {
		*reads = append(*reads, owner)
		upper, ok := records[owner]
		if !ok {
			return nil, nil
		}
		return &curve.ReferralAccount{Owner: owner, Upper: upper}, nil
	}
	return m
}

func TestResolveReferralChainNoRecord(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	var reads []solana.PublicKey
	m := referralClmm(nil, &reads)

	chain, err := m.ResolveReferralChain(context.Background(), payer, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.True(t, chain.Record.IsZero())
	assert.Empty(t, chain.Levels)
	assert.Empty(t, chain.PrepInstructions)
	assert.Equal(t, []solana.PublicKey{payer}, reads)
}

func TestResolveReferralChainRecordWithoutUpper(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	var reads []solana.PublicKey
	m := referralClmm(map[solana.PublicKey]solana.PublicKey{payer: {}}, &reads)

	chain, err := m.ResolveReferralChain(context.Background(), payer, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	wantRecord, err := curve.DeriveReferralAddress(m.Variant(), payer)
	require.NoError(t, err)
	assert.Equal(t, wantRecord, chain.Record)
	assert.Empty(t, chain.Levels)
}

func TestResolveReferralChainOneHop(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	upper := solana.NewWallet().PublicKey()
	rewardMint := solana.NewWallet().PublicKey()

	var reads []solana.PublicKey
	m := referralClmm(map[solana.PublicKey]solana.PublicKey{payer: upper}, &reads)

	chain, err := m.ResolveReferralChain(context.Background(), payer, rewardMint)
	require.NoError(t, err)
	require.Len(t, chain.Levels, 1)
	assert.Equal(t, upper, chain.Levels[0].Owner)

	wantReward, err := curve.DeriveRewardTokenAccount(upper, rewardMint)
	require.NoError(t, err)
	assert.Equal(t, wantReward, chain.Levels[0].RewardAccount)
	assert.Len(t, chain.PrepInstructions, 1)

	// The walk reads the payer's record, then the upper's, and stops.
	assert.Equal(t, []solana.PublicKey{payer, upper}, reads)
}

func TestResolveReferralChainStopsAtTwoHops(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	upper := solana.NewWallet().PublicKey()
	upper2 := solana.NewWallet().PublicKey()
	upper3 := solana.NewWallet().PublicKey()

	var reads []solana.PublicKey
	m := referralClmm(map[solana.PublicKey]solana.PublicKey{
		payer:  upper,
		upper:  upper2,
		upper2: upper3, // must never be followed
	}, &reads)

	chain, err := m.ResolveReferralChain(context.Background(), payer, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Len(t, chain.Levels, 2)
	assert.Equal(t, upper, chain.Levels[0].Owner)
	assert.Equal(t, upper2, chain.Levels[1].Owner)
	assert.Len(t, chain.PrepInstructions, 2)

	// The second hop is terminal: upper2's own record is never read.
	assert.Equal(t, []solana.PublicKey{payer, upper}, reads)
}

func TestResolveReferralChainPropagatesReadError(t *testing.T) {
	m := NewClmm(nil)
	m.readReferral = func(context.Context, solana.PublicKey) (*curve.ReferralAccount, error) {
		return nil, curve.ErrChainRead
	}

	_, err := m.ResolveReferralChain(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	assert.True(t, errors.Is(err, curve.ErrChainRead))
}

func TestReferralSlotsEmptyChain(t *testing.T) {
	sentinel := curve.VariantClassic.ProgramID()

	var chain *ReferralChain
	slots := chain.Slots(curve.VariantClassic)
	assert.Equal(t, sentinel, slots.Record)
	assert.Equal(t, sentinel, slots.UpperReward)
	assert.Equal(t, sentinel, slots.Upper2Reward)

	slots = (&ReferralChain{}).Slots(curve.VariantClassic)
	assert.Equal(t, sentinel, slots.Record)
	assert.Equal(t, sentinel, slots.UpperReward)
	assert.Equal(t, sentinel, slots.Upper2Reward)
}

func TestReferralSlotsPartialChain(t *testing.T) {
	record := solana.NewWallet().PublicKey()
	reward1 := solana.NewWallet().PublicKey()

	chain := &ReferralChain{
		Record: record,
		Levels: []ReferralLevel{{Owner: solana.NewWallet().PublicKey(), RewardAccount: reward1}},
	}

	slots := chain.Slots(curve.VariantClassic)
	assert.Equal(t, record, slots.Record)
	assert.Equal(t, reward1, slots.UpperReward)
	assert.Equal(t, curve.VariantClassic.ProgramID(), slots.Upper2Reward, "missing second hop falls back to the sentinel")
}

func TestReferralSlotsFullChain(t *testing.T) {
	record := solana.NewWallet().PublicKey()
	reward1 := solana.NewWallet().PublicKey()
	reward2 := solana.NewWallet().PublicKey()

	chain := &ReferralChain{
		Record: record,
		Levels: []ReferralLevel{
			{Owner: solana.NewWallet().PublicKey(), RewardAccount: reward1},
			{Owner: solana.NewWallet().PublicKey(), RewardAccount: reward2},
		},
	}

	slots := chain.Slots(curve.VariantToken22)
	assert.Equal(t, record, slots.Record)
	assert.Equal(t, reward1, slots.UpperReward)
	assert.Equal(t, reward2, slots.Upper2Reward)
}
