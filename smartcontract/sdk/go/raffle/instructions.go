package raffle

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Plan is a fully resolved operation: every instruction in submission order
// (auxiliary account creation first, the program instruction last) and the
// account map the program instruction was built from.
type Plan struct {
	Instructions []solana.Instruction
	Accounts     map[string]solana.PublicKey

	// Raffle and RaffleSeed are set by operations that target a raffle.
	Raffle     solana.PublicKey
	RaffleSeed string
	// Registry is set by operations that touch the collection registry.
	Registry solana.PublicKey
	// Destinations are the associated token accounts resolved for the item mints.
	Destinations []solana.PublicKey
}

type InitializeArgs struct {
	Bump uint8
}

type CreateRaffleArgs struct {
	GlobalBump     uint8
	TicketPriceSol uint64
	EndTimestamp   int64
	MaxEntrants    uint64
}

type BuyTicketsArgs struct {
	GlobalBump uint8
	Amount     uint64
}

// CustodyArgs is shared by claimReward and withdrawNft.
type CustodyArgs struct {
	GlobalBump uint8
}

type AddCollectionConfig struct {
	CollectionID solana.PublicKey
}

func (c AddCollectionConfig) Validate() error {
	if c.CollectionID.IsZero() {
		return errors.New("collection ID is required")
	}
	return nil
}

type CreateRaffleConfig struct {
	NftMint             solana.PublicKey
	TicketPriceLamports uint64
	EndTimestamp        int64
	MaxEntrants         uint64
}

func (c CreateRaffleConfig) Validate() error {
	if c.NftMint.IsZero() {
		return errors.New("NFT mint is required")
	}
	return nil
}

type BuyTicketsConfig struct {
	NftMint solana.PublicKey
	Amount  uint64
}

func (c BuyTicketsConfig) Validate() error {
	if c.NftMint.IsZero() {
		return errors.New("NFT mint is required")
	}
	return nil
}

type RevealWinnerConfig struct {
	NftMint solana.PublicKey
}

type ClaimRewardConfig struct {
	NftMint solana.PublicKey
}

type WithdrawNftConfig struct {
	NftMint solana.PublicKey
}

// ResolveAssociatedAccounts derives owner's associated token account for each
// mint and emits a creation instruction, paid by payer, for every one that
// holds no account. When payer and owner differ the payer's own associated
// account is ensured the same way. Destinations follow mint order.
func (c *Client) ResolveAssociatedAccounts(
	ctx context.Context,
	payer solana.PublicKey,
	owner solana.PublicKey,
	mints []solana.PublicKey,
) ([]solana.Instruction, []solana.PublicKey, error) {
	instructions := make([]solana.Instruction, 0)
	destinations := make([]solana.PublicKey, 0, len(mints))

	for _, mint := range mints {
		ix, destination, err := c.ensureAssociatedAccount(ctx, payer, owner, mint)
		if err != nil {
			return nil, nil, err
		}
		if ix != nil {
			instructions = append(instructions, ix)
		}
		destinations = append(destinations, destination)

		if !payer.Equals(owner) {
			ix, _, err := c.ensureAssociatedAccount(ctx, payer, payer, mint)
			if err != nil {
				return nil, nil, err
			}
			if ix != nil {
				instructions = append(instructions, ix)
			}
		}
	}
	return instructions, destinations, nil
}

func (c *Client) ensureAssociatedAccount(
	ctx context.Context,
	payer solana.PublicKey,
	owner solana.PublicKey,
	mint solana.PublicKey,
) (solana.Instruction, solana.PublicKey, error) {
	address, err := DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	exists, err := c.accountExists(ctx, address)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to check associated token account %s: %w", address, err)
	}
	if exists {
		return nil, address, nil
	}
	ix, err := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).ValidateAndBuild()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to build associated token account instruction: %w", err)
	}
	c.log.Debug("associated token account will be created", "address", address, "owner", owner, "mint", mint)
	return ix, address, nil
}

// ProbeRaffleAddress walks raffle seed lengths from RaffleSeedMaxLength down to
// RaffleSeedMinLength and returns the first derived address holding no
// account. Every length is tried; ErrRaffleAddressExhausted is returned when
// all of them are taken.
func (c *Client) ProbeRaffleAddress(ctx context.Context, creator, mint solana.PublicKey) (solana.PublicKey, string, error) {
	for length := RaffleSeedMaxLength; length >= RaffleSeedMinLength; length-- {
		address, seed, err := DeriveRaffleAddress(creator, mint, length, c.ProgramID())
		if err != nil {
			return solana.PublicKey{}, "", err
		}
		exists, err := c.accountExists(ctx, address)
		if err != nil {
			return solana.PublicKey{}, "", fmt.Errorf("failed to probe raffle address %s: %w", address, err)
		}
		if !exists {
			c.log.Debug("raffle address is free", "address", address, "seed", seed, "length", length)
			return address, seed, nil
		}
		c.log.Debug("raffle address is taken", "address", address, "seed", seed, "length", length)
	}
	return solana.PublicKey{}, "", fmt.Errorf("%w: creator %s mint %s", ErrRaffleAddressExhausted, creator, mint)
}

func (c *Client) createWithSeedInstruction(
	ctx context.Context,
	base solana.PublicKey,
	seed string,
	address solana.PublicKey,
	space uint64,
) (solana.Instruction, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, space, ConfirmationCommitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get rent: %w", err)
	}
	return system.NewCreateAccountWithSeedInstructionBuilder().
		SetBase(base).
		SetSeed(seed).
		SetLamports(lamports).
		SetSpace(space).
		SetOwner(c.ProgramID()).
		SetFundingAccount(base).
		SetCreatedAccount(address).
		Build(), nil
}

func (c *Client) programInstruction(name string, accounts map[string]solana.PublicKey, args any) (solana.Instruction, error) {
	ix, err := c.idl.BuildInstruction(c.ProgramID(), name, accounts, args)
	if err != nil {
		return nil, fmt.Errorf("failed to build instruction: %w", err)
	}
	return ix, nil
}

// PrepareInitialize resolves the initialize operation for the signer as
// administrator. It fails with ErrRegistryAlreadyExists when the registry
// address is already funded.
func (c *Client) PrepareInitialize(ctx context.Context) (*Plan, error) {
	admin, err := c.signerPublicKey()
	if err != nil {
		return nil, err
	}
	globalAuthority, bump, err := DeriveGlobalAuthorityPDA(c.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}
	registry, err := DeriveCollectionRegistryAddress(admin, c.ProgramID())
	if err != nil {
		return nil, err
	}

	exists, err := c.accountExists(ctx, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection registry: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrRegistryAlreadyExists, registry)
	}

	createIx, err := c.createWithSeedInstruction(ctx, admin, CollectionPoolSeed, registry, CollectionPoolSize)
	if err != nil {
		return nil, err
	}

	accounts := map[string]solana.PublicKey{
		"admin":           admin,
		"globalAuthority": globalAuthority,
		"collection":      registry,
		"systemProgram":   SystemProgramID,
		"rent":            RentSysvarID,
	}
	ix, err := c.programInstruction(InitializeInstructionName, accounts, InitializeArgs{Bump: bump})
	if err != nil {
		return nil, err
	}

	return &Plan{
		Instructions: []solana.Instruction{createIx, ix},
		Accounts:     accounts,
		Registry:     registry,
	}, nil
}

// PrepareAddCollection resolves the registry from the administrator recorded
// in the GlobalPool. Admin capability is checked by the program.
func (c *Client) PrepareAddCollection(ctx context.Context, config AddCollectionConfig) (*Plan, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	admin, err := c.signerPublicKey()
	if err != nil {
		return nil, err
	}
	registry, err := c.collectionRegistryAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection registry: %w", err)
	}

	accounts := map[string]solana.PublicKey{
		"admin":        admin,
		"collection":   registry,
		"collectionId": config.CollectionID,
	}
	ix, err := c.programInstruction(AddCollectionInstructionName, accounts, nil)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Instructions: []solana.Instruction{ix},
		Accounts:     accounts,
		Registry:     registry,
	}, nil
}

// PrepareCreateRaffle probes a free raffle address for the signer and mint,
// then plans its creation, the custody account and the program call.
func (c *Client) PrepareCreateRaffle(ctx context.Context, config CreateRaffleConfig) (*Plan, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	creator, err := c.signerPublicKey()
	if err != nil {
		return nil, err
	}
	globalAuthority, bump, err := DeriveGlobalAuthorityPDA(c.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}
	registry, err := c.collectionRegistryAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection registry: %w", err)
	}

	ownerItemAccount, err := DeriveAssociatedTokenAddress(creator, config.NftMint)
	if err != nil {
		return nil, err
	}
	exists, err := c.accountExists(ctx, ownerItemAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to check item token account: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrItemAccountNotFound, ownerItemAccount)
	}

	ataIxs, destinations, err := c.ResolveAssociatedAccounts(ctx, creator, globalAuthority, []solana.PublicKey{config.NftMint})
	if err != nil {
		return nil, err
	}

	raffle, seed, err := c.ProbeRaffleAddress(ctx, creator, config.NftMint)
	if err != nil {
		return nil, err
	}
	createIx, err := c.createWithSeedInstruction(ctx, creator, seed, raffle, RafflePoolSize)
	if err != nil {
		return nil, err
	}

	metadata, err := DeriveMetadataAddress(config.NftMint)
	if err != nil {
		return nil, err
	}

	accounts := map[string]solana.PublicKey{
		"admin":                creator,
		"globalAuthority":      globalAuthority,
		"raffle":               raffle,
		"collection":           registry,
		"ownerTempNftAccount":  ownerItemAccount,
		"destNftTokenAccount":  destinations[0],
		"nftMintAddress":       config.NftMint,
		"mintMetadata":         metadata,
		"tokenProgram":         TokenProgramID,
		"tokenMetadataProgram": TokenMetadataProgramID,
	}
	ix, err := c.programInstruction(CreateRaffleInstructionName, accounts, CreateRaffleArgs{
		GlobalBump:     bump,
		TicketPriceSol: config.TicketPriceLamports,
		EndTimestamp:   config.EndTimestamp,
		MaxEntrants:    config.MaxEntrants,
	})
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, len(ataIxs)+2)
	instructions = append(instructions, createIx)
	instructions = append(instructions, ataIxs...)
	instructions = append(instructions, ix)

	return &Plan{
		Instructions: instructions,
		Accounts:     accounts,
		Raffle:       raffle,
		RaffleSeed:   seed,
		Registry:     registry,
		Destinations: destinations,
	}, nil
}

// PrepareBuyTickets resolves the raffle for the mint and pays its creator.
func (c *Client) PrepareBuyTickets(ctx context.Context, config BuyTicketsConfig) (*Plan, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	buyer, err := c.signerPublicKey()
	if err != nil {
		return nil, err
	}
	globalAuthority, bump, err := DeriveGlobalAuthorityPDA(c.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}
	raffleAddress, raffle, err := c.ResolveRaffle(ctx, config.NftMint)
	if err != nil {
		return nil, err
	}

	accounts := map[string]solana.PublicKey{
		"buyer":           buyer,
		"raffle":          raffleAddress,
		"globalAuthority": globalAuthority,
		"creator":         raffle.Creator,
		"treasuryWallet":  c.treasury,
		"systemProgram":   SystemProgramID,
	}
	ix, err := c.programInstruction(BuyTicketsInstructionName, accounts, BuyTicketsArgs{
		GlobalBump: bump,
		Amount:     config.Amount,
	})
	if err != nil {
		return nil, err
	}

	return &Plan{
		Instructions: []solana.Instruction{ix},
		Accounts:     accounts,
		Raffle:       raffleAddress,
	}, nil
}

func (c *Client) PrepareRevealWinner(ctx context.Context, config RevealWinnerConfig) (*Plan, error) {
	caller, err := c.signerPublicKey()
	if err != nil {
		return nil, err
	}
	raffleAddress, _, err := c.ResolveRaffle(ctx, config.NftMint)
	if err != nil {
		return nil, err
	}

	accounts := map[string]solana.PublicKey{
		"buyer":  caller,
		"raffle": raffleAddress,
	}
	ix, err := c.programInstruction(RevealWinnerInstructionName, accounts, nil)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Instructions: []solana.Instruction{ix},
		Accounts:     accounts,
		Raffle:       raffleAddress,
	}, nil
}

func (c *Client) PrepareClaimReward(ctx context.Context, config ClaimRewardConfig) (*Plan, error) {
	return c.prepareCustodyRelease(ctx, ClaimRewardInstructionName, config.NftMint)
}

func (c *Client) PrepareWithdrawNft(ctx context.Context, config WithdrawNftConfig) (*Plan, error) {
	return c.prepareCustodyRelease(ctx, WithdrawNftInstructionName, config.NftMint)
}

// prepareCustodyRelease plans a transfer of the item out of custody to the
// signer, creating the signer's associated account if it is missing.
func (c *Client) prepareCustodyRelease(ctx context.Context, name string, mint solana.PublicKey) (*Plan, error) {
	claimer, err := c.signerPublicKey()
	if err != nil {
		return nil, err
	}
	globalAuthority, bump, err := DeriveGlobalAuthorityPDA(c.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}
	raffleAddress, _, err := c.ResolveRaffle(ctx, mint)
	if err != nil {
		return nil, err
	}
	source, err := DeriveAssociatedTokenAddress(globalAuthority, mint)
	if err != nil {
		return nil, err
	}
	ataIxs, destinations, err := c.ResolveAssociatedAccounts(ctx, claimer, claimer, []solana.PublicKey{mint})
	if err != nil {
		return nil, err
	}

	accounts := map[string]solana.PublicKey{
		"claimer":                claimer,
		"globalAuthority":        globalAuthority,
		"raffle":                 raffleAddress,
		"claimerNftTokenAccount": destinations[0],
		"srcNftTokenAccount":     source,
		"nftMintAddress":         mint,
		"tokenProgram":           TokenProgramID,
	}
	ix, err := c.programInstruction(name, accounts, CustodyArgs{GlobalBump: bump})
	if err != nil {
		return nil, err
	}

	return &Plan{
		Instructions: append(ataIxs, ix),
		Accounts:     accounts,
		Raffle:       raffleAddress,
		Destinations: destinations,
	}, nil
}
