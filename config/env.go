package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

const (
	EnvMainnetBeta = "mainnet-beta"
	EnvMainnet     = "mainnet"
	EnvTestnet     = "testnet"
	EnvDevnet      = "devnet"
	EnvLocalnet    = "localnet"
)

var solanaRPCURLs = map[string]string{
	EnvMainnetBeta: MainnetSolanaRPC,
	EnvMainnet:     MainnetSolanaRPC,
	EnvTestnet:     TestnetSolanaRPC,
	EnvDevnet:      DevnetSolanaRPC,
	EnvLocalnet:    LocalnetSolanaRPC,
}

var (
	ErrInvalidEnvironment = errors.New("invalid environment")
)

type NetworkConfig struct {
	Moniker        string
	RPCURL         string
	ProgramID      solana.PublicKey
	TreasuryWallet solana.PublicKey
}

// NetworkConfigForEnv resolves the cluster settings for env. SOLANA_RPC_URL,
// RAFFLE_PROGRAM_ID and RAFFLE_TREASURY_WALLET override the defaults.
func NetworkConfigForEnv(env string) (*NetworkConfig, error) {
	rpcURL, ok := solanaRPCURLs[env]
	if !ok {
		return nil, fmt.Errorf("%w %q, must be one of: %s, %s, %s, %s", ErrInvalidEnvironment, env, EnvMainnetBeta, EnvTestnet, EnvDevnet, EnvLocalnet)
	}
	if override := os.Getenv("SOLANA_RPC_URL"); override != "" {
		rpcURL = override
	}

	moniker := env
	if env == EnvMainnet {
		moniker = EnvMainnetBeta
	}

	programID, err := publicKeyFromEnv("RAFFLE_PROGRAM_ID", RaffleProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse raffle program ID: %w", err)
	}
	treasury, err := publicKeyFromEnv("RAFFLE_TREASURY_WALLET", TreasuryWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to parse treasury wallet: %w", err)
	}

	return &NetworkConfig{
		Moniker:        moniker,
		RPCURL:         rpcURL,
		ProgramID:      programID,
		TreasuryWallet: treasury,
	}, nil
}

func publicKeyFromEnv(name, fallback string) (solana.PublicKey, error) {
	value := os.Getenv(name)
	if value == "" {
		value = fallback
	}
	return solana.PublicKeyFromBase58(value)
}
