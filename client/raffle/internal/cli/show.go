package cli

import (
	"context"
	"fmt"

	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
	"github.com/spf13/cobra"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Read program state",
	}
	cmd.AddCommand(
		newShowGlobalCmd(opts),
		newShowCollectionsCmd(opts),
		newShowRaffleCmd(opts),
		newShowRaffleAtCmd(opts),
	)
	return cmd
}

func newShowGlobalCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "global",
		Short: "Show the global authority record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run("show-global", false, func(ctx context.Context, s *session) error {
				programID := s.client.ProgramID()
				address, _, err := raffle.DeriveGlobalAuthorityPDA(programID)
				if err != nil {
					return err
				}
				global, err := s.client.GetGlobalConfig(ctx)
				if err != nil {
					return err
				}
				registry, err := raffle.DeriveCollectionRegistryAddress(global.SuperAdmin, programID)
				if err != nil {
					return err
				}
				return renderGlobal(s.out, s.output, globalView{
					Address:    address.String(),
					SuperAdmin: global.SuperAdmin.String(),
					Registry:   registry.String(),
				})
			})
		},
	}
}

func newShowCollectionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List the registered NFT collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run("show-collections", false, func(ctx context.Context, s *session) error {
				global, err := s.client.GetGlobalConfig(ctx)
				if err != nil {
					return err
				}
				address, err := raffle.DeriveCollectionRegistryAddress(global.SuperAdmin, s.client.ProgramID())
				if err != nil {
					return err
				}
				registry, err := s.client.GetCollectionRegistry(ctx)
				if err != nil {
					return err
				}
				view := collectionsView{
					Address:     address.String(),
					Count:       registry.Count,
					Collections: make([]string, 0, len(registry.Collections)),
				}
				for _, c := range registry.Collections {
					view.Collections = append(view.Collections, c.String())
				}
				return renderCollections(s.out, s.output, view)
			})
		},
	}
}

func newShowRaffleCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "raffle <nft-mint>",
		Short: "Show the raffle currently selected for an NFT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("nft mint", args[0])
			if err != nil {
				return err
			}
			return opts.run("show-raffle", false, func(ctx context.Context, s *session) error {
				now := s.clock.Now()
				if all {
					candidates, err := s.client.FindRaffleCandidates(ctx, mint)
					if err != nil {
						return err
					}
					views := make([]raffleView, 0, len(candidates))
					for _, c := range candidates {
						views = append(views, newRaffleView(c.Address, c.Raffle, now))
					}
					return renderRaffleList(s.out, s.output, views)
				}

				address, record, err := s.client.ResolveRaffle(ctx, mint)
				if err != nil {
					return err
				}
				return renderRaffle(s.out, s.output, newRaffleView(address, record, now))
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every raffle record for the NFT instead of the selected one")
	return cmd
}

func newShowRaffleAtCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "raffle-at <address>",
		Short: "Show the raffle record stored at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parsePublicKey("raffle address", args[0])
			if err != nil {
				return err
			}
			return opts.run("show-raffle-at", false, func(ctx context.Context, s *session) error {
				record, err := s.client.GetRaffle(ctx, address)
				if err != nil {
					return fmt.Errorf("raffle %s: %w", address, err)
				}
				return renderRaffle(s.out, s.output, newRaffleView(address, record, s.clock.Now()))
			})
		},
	}
}
