package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/lmittmann/tint"
	"github.com/nftraffle/raffle/config"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
)

var (
	collectionID = solana.MustPublicKeyFromBase58("GYq1mi8dh18nRAHbtdDuWiVRu4oAuSNzxoy3qStqX4RA")
	nftMint      = solana.MustPublicKeyFromBase58("FLuGogNV1UPns65SCz8ZLBnPx1P9EtcjVphvbyg2t6ix")
)

func main() {
	network, err := config.NetworkConfigForEnv(config.EnvLocalnet)
	if err != nil {
		log.Fatalf("error while resolving network: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error while locating home directory: %v", err)
	}
	signer, err := solana.PrivateKeyFromSolanaKeygenFile(filepath.Join(home, ".config", "solana", "id.json"))
	if err != nil {
		log.Fatalf("error while loading keypair: %v", err)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
	client := raffle.New(logger, rpc.New(network.RPCURL), &signer, network.ProgramID,
		raffle.WithTreasuryWallet(network.TreasuryWallet),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	globalAuthority, _, err := raffle.DeriveGlobalAuthorityPDA(client.ProgramID())
	if err != nil {
		log.Fatalf("error while deriving global authority: %v", err)
	}
	fmt.Printf("GlobalAuthority: %s\n", globalAuthority)

	sig, _, err := client.Initialize(ctx)
	switch {
	case errors.Is(err, raffle.ErrRegistryAlreadyExists):
		fmt.Println("Already initialized")
	case err != nil:
		log.Fatalf("error while initializing: %v", err)
	default:
		fmt.Printf("Initialized: %s\n", sig)
	}

	sig, _, err = client.AddCollection(ctx, raffle.AddCollectionConfig{CollectionID: collectionID})
	if err != nil {
		log.Fatalf("error while adding collection: %v", err)
	}
	fmt.Printf("Added collection %s: %s\n", collectionID, sig)

	address, sig, _, err := client.CreateRaffle(ctx, raffle.CreateRaffleConfig{
		NftMint:             nftMint,
		TicketPriceLamports: 10_000_000,
		EndTimestamp:        time.Now().Add(24 * time.Hour).Unix(),
		MaxEntrants:         100,
	})
	if err != nil {
		log.Fatalf("error while creating raffle: %v", err)
	}
	fmt.Printf("Created raffle %s: %s\n", address, sig)

	sig, _, err = client.BuyTickets(ctx, raffle.BuyTicketsConfig{NftMint: nftMint, Amount: 5})
	if err != nil {
		log.Fatalf("error while buying tickets: %v", err)
	}
	fmt.Printf("Bought tickets: %s\n", sig)

	pool, err := client.GetRaffleByMint(ctx, nftMint)
	if err != nil {
		log.Fatalf("error while loading raffle: %v", err)
	}
	fmt.Printf("%+v\n", pool)
}
