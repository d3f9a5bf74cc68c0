package config

const (
	// RaffleProgramID is the address the raffle program is deployed at on every cluster.
	RaffleProgramID = "3qJm618bPvosqjFZqMjrUYgVXNKGDPBmTVRMqHar92DK"

	// TreasuryWallet is the commission wallet the program checks buy_tickets against.
	TreasuryWallet = "Am9xhPPVCfDZFDabcGgmQ8GTMdsbqEt1qVXbyhTxybAp"

	// Public RPC endpoints.
	MainnetSolanaRPC  = "https://api.mainnet-beta.solana.com"
	TestnetSolanaRPC  = "https://api.testnet.solana.com"
	DevnetSolanaRPC   = "https://api.devnet.solana.com"
	LocalnetSolanaRPC = "http://127.0.0.1:8899"
)
