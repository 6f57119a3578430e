// Package txbuilder assembles signed swap transactions for snipe and
// MEV execution paths.
package txbuilder

import (
	"context"
	"encoding/binary"
	"fmt"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/solana"
)

// Per-strategy trade sizes in lamports.
const (
	amountArbitrage   = 1_000_000
	amountFrontRun    = 2_000_000
	amountSandwich    = 1_500_000
	amountBackRun     = 800_000
	amountLiquidation = 5_000_000
)

// pumpswapProgramID is the AMM program the buy instruction targets.
const pumpswapProgramID = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"

// Builder constructs signed transactions against a wallet and the RPC
// blockhash source.
type Builder struct {
	wallet *solana.Keypair
	rpc    solana.RPC
}

// New creates a transaction builder.
func New(wallet *solana.Keypair, rpc solana.RPC) *Builder {
	return &Builder{wallet: wallet, rpc: rpc}
}

// Wallet returns the signing keypair's public address.
func (b *Builder) Wallet() string {
	return b.wallet.PublicKey()
}

// BuildBuy builds and signs a buy of the given token through its pool.
// maxSlippage is a percentage and bounds the acceptable output shortfall.
func (b *Builder) BuildBuy(ctx context.Context, token, pool string, amountLamports uint64, maxSlippage float64) (*solana.Transaction, error) {
	if amountLamports == 0 {
		return nil, fmt.Errorf("buy amount must be positive")
	}

	blockhash, err := b.rpc.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	ix, err := buyInstruction(b.wallet.PublicKey(), token, pool, amountLamports, maxSlippage)
	if err != nil {
		return nil, err
	}

	tx := solana.NewTransaction(b.wallet.PublicKey(), blockhash, ix)
	if err := tx.Sign(b.wallet); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// BuildForSignal builds the trade transaction for a detected signal,
// sizing the position by strategy.
func (b *Builder) BuildForSignal(ctx context.Context, sig domain.Signal) (*solana.Transaction, error) {
	amount, err := StrategyAmount(sig.Opportunity.Strategy)
	if err != nil {
		return nil, err
	}
	return b.BuildBuy(ctx, sig.Opportunity.TokenAddress, sig.Opportunity.PoolAddress, amount, sig.Plan.MaxSlippage)
}

// BuildTip builds and signs a lamport transfer to a tip account, reusing
// the blockhash of the transaction it accompanies.
func (b *Builder) BuildTip(tipAccount string, lamports uint64, recentBlockhash string) (*solana.Transaction, error) {
	if err := solana.ValidateAddress(tipAccount); err != nil {
		return nil, fmt.Errorf("tip account: %w", err)
	}

	ix := solana.NewTransferInstruction(b.wallet.PublicKey(), tipAccount, lamports)
	tx := solana.NewTransaction(b.wallet.PublicKey(), recentBlockhash, ix)
	if err := tx.Sign(b.wallet); err != nil {
		return nil, fmt.Errorf("sign tip: %w", err)
	}
	return tx, nil
}

// StrategyAmount returns the fixed lamport trade size for a strategy.
func StrategyAmount(s domain.Strategy) (uint64, error) {
	switch s {
	case domain.StrategyArbitrage:
		return amountArbitrage, nil
	case domain.StrategyFrontRun:
		return amountFrontRun, nil
	case domain.StrategySandwich:
		return amountSandwich, nil
	case domain.StrategyBackRun:
		return amountBackRun, nil
	case domain.StrategyLiquidation:
		return amountLiquidation, nil
	}
	return 0, fmt.Errorf("no trade size for strategy %q", s)
}

// buyInstruction encodes a pool buy: discriminator byte, lamports in,
// then minimum acceptable output derived from the slippage bound.
func buyInstruction(buyer, token, pool string, lamports uint64, maxSlippage float64) (solana.Instruction, error) {
	if token == "" || pool == "" {
		return solana.Instruction{}, fmt.Errorf("token and pool addresses are required")
	}

	minOut := uint64(float64(lamports) * (1 - maxSlippage/100))

	data := make([]byte, 17)
	data[0] = 1 // buy
	binary.LittleEndian.PutUint64(data[1:9], lamports)
	binary.LittleEndian.PutUint64(data[9:17], minOut)

	return solana.Instruction{
		ProgramID: pumpswapProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: buyer, IsSigner: true, IsWritable: true},
			{PubKey: pool, IsWritable: true},
			{PubKey: token, IsWritable: true},
		},
		Data: data,
	}, nil
}
