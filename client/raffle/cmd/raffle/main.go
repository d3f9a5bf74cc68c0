package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/nftraffle/raffle/client/raffle/internal/cli"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Environment overrides such as SOLANA_RPC_URL may live in a local .env file.
	_ = godotenv.Load()

	os.Exit(int(cli.Run(cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})))
}
