package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedAccountOwner(t *testing.T) {
	raw := []byte(`{
		"program": "spl-token",
		"parsed": {
			"type": "account",
			"info": {
				"mint": "So11111111111111111111111111111111111111112",
				"owner": "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
				"tokenAmount": {"amount": "1", "decimals": 0}
			}
		}
	}`)

	owner, err := parsedAccountOwner(raw)
	require.NoError(t, err)
	assert.Equal(t, solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"), owner)
}

func TestParsedAccountOwnerMalformed(t *testing.T) {
	_, err := parsedAccountOwner([]byte(`{"parsed":{"info":{}}}`))
	assert.Error(t, err)
}

func TestParsedTokenBalance(t *testing.T) {
	raw := []byte(`{
		"parsed": {
			"info": {
				"mint": "So11111111111111111111111111111111111111112",
				"tokenAmount": {"amount": "2500000000", "decimals": 9}
			}
		}
	}`)

	mint, amount := parsedTokenBalance(raw)
	assert.Equal(t, "So11111111111111111111111111111111111111112", mint)
	assert.Equal(t, uint64(2_500_000_000), amount)
}

func TestParsedTokenBalanceEmptyAccount(t *testing.T) {
	mint, amount := parsedTokenBalance([]byte(`{"parsed":{"info":{"mint":"","tokenAmount":{"amount":"0"}}}}`))
	assert.Empty(t, mint)
	assert.Zero(t, amount)
}
