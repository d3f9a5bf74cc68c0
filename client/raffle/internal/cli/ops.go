package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the global authority and the collection registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run("init", true, func(ctx context.Context, s *session) error {
				sig, res, err := s.client.Initialize(ctx)
				if err != nil {
					return err
				}
				registry, err := raffle.DeriveCollectionRegistryAddress(s.client.Signer().PublicKey(), s.client.ProgramID())
				if err != nil {
					return err
				}
				printSubmission(s, sig, res)
				fmt.Fprintf(s.out, "Collection registry: %s\n", registry)
				return nil
			})
		},
	}
}

func newAddCollectionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-collection <collection>",
		Short: "Register an NFT collection identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parsePublicKey("collection", args[0])
			if err != nil {
				return err
			}
			return opts.run("add-collection", true, func(ctx context.Context, s *session) error {
				sig, res, err := s.client.AddCollection(ctx, raffle.AddCollectionConfig{CollectionID: collection})
				if err != nil {
					return err
				}
				printSubmission(s, sig, res)
				return nil
			})
		},
	}
}

func newCreateRaffleCmd(opts *rootOptions) *cobra.Command {
	var (
		priceSOL    string
		end         string
		duration    time.Duration
		maxEntrants uint64
	)
	cmd := &cobra.Command{
		Use:   "create-raffle <nft-mint>",
		Short: "Escrow an NFT and open a raffle for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("nft mint", args[0])
			if err != nil {
				return err
			}
			price, err := parseSOL(priceSOL)
			if err != nil {
				return fmt.Errorf("invalid --price-sol: %w", err)
			}
			return opts.run("create-raffle", true, func(ctx context.Context, s *session) error {
				endTimestamp, err := resolveEndTimestamp(s.clock, end, duration)
				if err != nil {
					return err
				}
				address, sig, res, err := s.client.CreateRaffle(ctx, raffle.CreateRaffleConfig{
					NftMint:             mint,
					TicketPriceLamports: price,
					EndTimestamp:        endTimestamp,
					MaxEntrants:         maxEntrants,
				})
				if err != nil {
					return err
				}
				printSubmission(s, sig, res)
				fmt.Fprintf(s.out, "Raffle: %s\n", address)
				fmt.Fprintf(s.out, "Ends: %s\n", time.Unix(endTimestamp, 0).UTC().Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&priceSOL, "price-sol", "", "Ticket price in SOL")
	cmd.Flags().StringVar(&end, "end", "", "End time as RFC3339 or unix seconds")
	cmd.Flags().DurationVar(&duration, "duration", 0, "End time relative to now (e.g. 72h)")
	cmd.Flags().Uint64Var(&maxEntrants, "max-entrants", 0, "Maximum number of tickets")
	cmd.MarkFlagsMutuallyExclusive("end", "duration")
	cmd.MarkFlagsOneRequired("end", "duration")
	_ = cmd.MarkFlagRequired("price-sol")
	_ = cmd.MarkFlagRequired("max-entrants")
	return cmd
}

func newBuyTicketsCmd(opts *rootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "buy-tickets <nft-mint>",
		Short: "Buy tickets in the raffle for an NFT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("nft mint", args[0])
			if err != nil {
				return err
			}
			return opts.run("buy-tickets", true, func(ctx context.Context, s *session) error {
				sig, res, err := s.client.BuyTickets(ctx, raffle.BuyTicketsConfig{NftMint: mint, Amount: amount})
				if err != nil {
					return err
				}
				printSubmission(s, sig, res)
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 1, "Number of tickets to buy")
	return cmd
}

func newRevealWinnerCmd(opts *rootOptions) *cobra.Command {
	return newMintOperationCmd(opts, "reveal-winner", "Draw the winner of an ended raffle",
		func(ctx context.Context, c *raffle.Client, mint solana.PublicKey) (solana.Signature, *solanarpc.GetTransactionResult, error) {
			return c.RevealWinner(ctx, raffle.RevealWinnerConfig{NftMint: mint})
		})
}

func newClaimRewardCmd(opts *rootOptions) *cobra.Command {
	return newMintOperationCmd(opts, "claim-reward", "Transfer the escrowed NFT to the raffle winner",
		func(ctx context.Context, c *raffle.Client, mint solana.PublicKey) (solana.Signature, *solanarpc.GetTransactionResult, error) {
			return c.ClaimReward(ctx, raffle.ClaimRewardConfig{NftMint: mint})
		})
}

func newWithdrawNftCmd(opts *rootOptions) *cobra.Command {
	return newMintOperationCmd(opts, "withdraw-nft", "Return the escrowed NFT to the raffle creator",
		func(ctx context.Context, c *raffle.Client, mint solana.PublicKey) (solana.Signature, *solanarpc.GetTransactionResult, error) {
			return c.WithdrawNft(ctx, raffle.WithdrawNftConfig{NftMint: mint})
		})
}

type mintOperation func(context.Context, *raffle.Client, solana.PublicKey) (solana.Signature, *solanarpc.GetTransactionResult, error)

func newMintOperationCmd(opts *rootOptions, name, short string, op mintOperation) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <nft-mint>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("nft mint", args[0])
			if err != nil {
				return err
			}
			return opts.run(name, true, func(ctx context.Context, s *session) error {
				sig, res, err := op(ctx, s.client, mint)
				if err != nil {
					return err
				}
				printSubmission(s, sig, res)
				return nil
			})
		},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "raffle %s (commit %s, built %s)\n", opts.build.Version, opts.build.Commit, opts.build.Date)
		},
	}
}

func parsePublicKey(what, s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return pk, nil
}

func printSubmission(s *session, sig solana.Signature, res *solanarpc.GetTransactionResult) {
	fmt.Fprintf(s.out, "Signature: %s\n", sig)
	if res != nil {
		s.log.Debug("Transaction confirmed", "signature", sig, "slot", res.Slot)
		if res.Meta != nil {
			for _, line := range res.Meta.LogMessages {
				s.log.Debug("program log", "line", line)
			}
		}
	}
}
