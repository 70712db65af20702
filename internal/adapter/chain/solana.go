package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// mintAccountSize is the serialized size of an SPL token mint account.
const mintAccountSize = 82

// SolanaGateway mirrors ledger state onto SPL token mints. One mint per
// offering, zero decimals, with the fee payer as mint authority. Wallets are
// custodial: the gateway keeps the private keys it hands out so it can sign
// transfers on the holder's behalf.
//
// Token accounts are assumed to exist; associated token addresses are
// derived, never created here.
type SolanaGateway struct {
	client          *rpc.Client
	feePayer        solana.PrivateKey
	airdropLamports uint64
	callTimeout     time.Duration
	log             zerolog.Logger

	mu   sync.Mutex
	keys map[string]solana.PrivateKey
}

// NewSolanaGateway connects to the given RPC endpoint. feePayerKey is the
// base58-encoded private key that pays fees and holds mint authority.
// airdropLamports is the gas grant per FundGas call; callTimeout bounds
// every RPC round trip (0 disables the bound).
func NewSolanaGateway(rpcURL, feePayerKey string, airdropLamports uint64, callTimeout time.Duration, log zerolog.Logger) (*SolanaGateway, error) {
	feePayer, err := solana.PrivateKeyFromBase58(feePayerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid fee payer private key: %w", err)
	}
	if airdropLamports == 0 {
		airdropLamports = solana.LAMPORTS_PER_SOL
	}
	return &SolanaGateway{
		client:          rpc.New(rpcURL),
		feePayer:        feePayer,
		airdropLamports: airdropLamports,
		callTimeout:     callTimeout,
		log:             log,
		keys:            map[string]solana.PrivateKey{feePayer.PublicKey().String(): feePayer},
	}, nil
}

// withTimeout caps a gateway call at the configured bound. Settlement has
// already committed by the time these run, so a slow chain only delays the
// annotation, never the ledger.
func (g *SolanaGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.callTimeout)
}

func (g *SolanaGateway) Enabled() bool { return true }

// NewWallet generates a custodial keypair and retains the private key so
// later transfers can be signed server side.
func (g *SolanaGateway) NewWallet(ctx context.Context) (domain.Wallet, error) {
	wallet := solana.NewWallet()

	g.mu.Lock()
	g.keys[wallet.PublicKey().String()] = wallet.PrivateKey
	g.mu.Unlock()

	return domain.Wallet{
		Address:    wallet.PublicKey().String(),
		PrivateKey: wallet.PrivateKey.String(),
	}, nil
}

// Deploy creates and initializes a fresh SPL mint for the offering. The
// total supply is not minted up front; tokens are minted as investments
// settle.
func (g *SolanaGateway) Deploy(ctx context.Context, offeringID uuid.UUID, totalTokens int64, metadata map[string]string) (string, string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	mint := solana.NewWallet()

	rentResp, err := g.client.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, rpc.CommitmentFinalized)
	if err != nil {
		return "", "", fmt.Errorf("failed to get rent exemption: %w", err)
	}

	createMint := system.NewCreateAccountInstruction(
		rentResp,
		mintAccountSize,
		token.ProgramID,
		g.feePayer.PublicKey(),
		mint.PublicKey(),
	).Build()

	initMint := token.NewInitializeMintInstruction(
		0, // whole tokens only
		g.feePayer.PublicKey(),
		g.feePayer.PublicKey(),
		mint.PublicKey(),
		solana.SysVarRentPubkey,
	).Build()

	sig, err := g.send(ctx, []solana.Instruction{createMint, initMint}, mint.PrivateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to deploy mint: %w", err)
	}

	g.log.Info().
		Str("offering_id", offeringID.String()).
		Str("mint", mint.PublicKey().String()).
		Int64("supply", totalTokens).
		Msg("token mint deployed")
	return sig, mint.PublicKey().String(), nil
}

// Mint issues tokens to the wallet's associated token account.
func (g *SolanaGateway) Mint(ctx context.Context, contractRef, toWallet string, amount int64) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	mint, err := solana.PublicKeyFromBase58(contractRef)
	if err != nil {
		return "", fmt.Errorf("invalid mint address: %w", err)
	}
	owner, err := solana.PublicKeyFromBase58(toWallet)
	if err != nil {
		return "", fmt.Errorf("invalid wallet address: %w", err)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive token account: %w", err)
	}

	instruction := token.NewMintToInstruction(
		uint64(amount),
		mint,
		ata,
		g.feePayer.PublicKey(),
		[]solana.PublicKey{},
	).Build()

	return g.send(ctx, []solana.Instruction{instruction})
}

// Transfer moves tokens between two custodial wallets. Fails when the
// sending wallet's key was provisioned by another process and is unknown
// here.
func (g *SolanaGateway) Transfer(ctx context.Context, contractRef, fromWallet, toWallet string, amount int64) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	mint, err := solana.PublicKeyFromBase58(contractRef)
	if err != nil {
		return "", fmt.Errorf("invalid mint address: %w", err)
	}
	from, err := solana.PublicKeyFromBase58(fromWallet)
	if err != nil {
		return "", fmt.Errorf("invalid sender wallet: %w", err)
	}
	to, err := solana.PublicKeyFromBase58(toWallet)
	if err != nil {
		return "", fmt.Errorf("invalid recipient wallet: %w", err)
	}

	g.mu.Lock()
	fromKey, ok := g.keys[fromWallet]
	g.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no custodial key for wallet %s", fromWallet)
	}

	fromATA, _, err := solana.FindAssociatedTokenAddress(from, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive sender token account: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	instruction := token.NewTransferInstruction(
		uint64(amount),
		fromATA,
		toATA,
		from,
		[]solana.PublicKey{},
	).Build()

	return g.send(ctx, []solana.Instruction{instruction}, fromKey)
}

// Burn destroys tokens held by the fee payer's treasury account.
func (g *SolanaGateway) Burn(ctx context.Context, contractRef string, amount int64) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	mint, err := solana.PublicKeyFromBase58(contractRef)
	if err != nil {
		return "", fmt.Errorf("invalid mint address: %w", err)
	}
	treasuryATA, _, err := solana.FindAssociatedTokenAddress(g.feePayer.PublicKey(), mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive treasury token account: %w", err)
	}

	instruction := token.NewBurnInstruction(
		uint64(amount),
		treasuryATA,
		mint,
		g.feePayer.PublicKey(),
		[]solana.PublicKey{},
	).Build()

	return g.send(ctx, []solana.Instruction{instruction})
}

// FundGas airdrops the configured lamport amount to the wallet. Only works
// against devnet or a local validator, which is where this platform runs.
func (g *SolanaGateway) FundGas(ctx context.Context, wallet string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	pubkey, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return "", fmt.Errorf("invalid wallet address: %w", err)
	}
	sig, err := g.client.RequestAirdrop(ctx, pubkey, g.airdropLamports, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("airdrop failed: %w", err)
	}
	return sig.String(), nil
}

// send assembles, signs and submits one transaction. The fee payer always
// signs; extraSigners cover mint creation and custodial transfers.
func (g *SolanaGateway) send(ctx context.Context, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (string, error) {
	resp, err := g.client.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		resp.Value.Blockhash,
		solana.TransactionPayer(g.feePayer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	signers := map[string]solana.PrivateKey{
		g.feePayer.PublicKey().String(): g.feePayer,
	}
	for _, key := range extraSigners {
		signers[key.PublicKey().String()] = key
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if signer, ok := signers[key.String()]; ok {
			return &signer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := g.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig.String(), nil
}
