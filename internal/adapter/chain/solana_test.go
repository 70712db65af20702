package chain

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, airdropLamports uint64, callTimeout time.Duration) *SolanaGateway {
	t.Helper()
	feePayer := solana.NewWallet()
	gateway, err := NewSolanaGateway("http://localhost:8899", feePayer.PrivateKey.String(), airdropLamports, callTimeout, zerolog.Nop())
	require.NoError(t, err)
	return gateway
}

func TestNewSolanaGateway_RejectsBadFeePayerKey(t *testing.T) {
	_, err := NewSolanaGateway("http://localhost:8899", "not-a-base58-key", 0, 0, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fee payer private key")
}

func TestNewSolanaGateway_ConfiguresAirdropAmount(t *testing.T) {
	gateway := newTestGateway(t, 250_000, 0)
	assert.EqualValues(t, 250_000, gateway.airdropLamports)

	// Zero falls back to one SOL so gas grants are never empty.
	gateway = newTestGateway(t, 0, 0)
	assert.EqualValues(t, solana.LAMPORTS_PER_SOL, gateway.airdropLamports)
}

func TestWithTimeout_BoundsCallsWhenConfigured(t *testing.T) {
	gateway := newTestGateway(t, 0, 5*time.Second)

	ctx, cancel := gateway.withTimeout(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestWithTimeout_PassesThroughWhenDisabled(t *testing.T) {
	gateway := newTestGateway(t, 0, 0)

	ctx, cancel := gateway.withTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestNewWallet_RetainsCustodialKey(t *testing.T) {
	gateway := newTestGateway(t, 0, 0)

	wallet, err := gateway.NewWallet(context.Background())
	require.NoError(t, err)

	gateway.mu.Lock()
	key, ok := gateway.keys[wallet.Address]
	gateway.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, wallet.PrivateKey, key.String())
}
