// Package solana wraps the RPC plumbing shared by the CLMM services:
// account fetches, token account decoding, associated token account
// bookkeeping and transaction submission.
package solana

// IsSimulate routes SendTransaction through simulateTransaction instead of
// broadcasting. Used by integration tests against mainnet state.
var IsSimulate bool
