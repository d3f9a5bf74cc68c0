package raffle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// Client is the explicit context every raffle operation runs against. It is
// built once by New and never mutated afterwards.
type Client struct {
	log           *slog.Logger
	rpc           RPCClient
	executor      *executor
	idl           *IDL
	treasury      solana.PublicKey
	skipPreflight bool
}

type Option func(*Client)

// WithTreasuryWallet overrides the wallet that receives ticket commissions.
func WithTreasuryWallet(wallet solana.PublicKey) Option {
	return func(c *Client) {
		c.treasury = wallet
	}
}

// WithSkipPreflight submits transactions without simulating them first.
func WithSkipPreflight(skip bool) Option {
	return func(c *Client) {
		c.skipPreflight = skip
	}
}

func WithIDL(idl *IDL) Option {
	return func(c *Client) {
		c.idl = idl
	}
}

func WithExecutorOptions(opts ...ExecutorOption) Option {
	return func(c *Client) {
		for _, opt := range opts {
			opt(c.executor)
		}
	}
}

func New(log *slog.Logger, rpc RPCClient, signer *solana.PrivateKey, programID solana.PublicKey, opts ...Option) *Client {
	c := &Client{
		log:      log,
		rpc:      rpc,
		executor: NewExecutor(log, rpc, signer, programID),
		idl:      DefaultIDL(),
		treasury: DefaultTreasuryWallet,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ProgramID() solana.PublicKey {
	if c.executor == nil {
		return solana.PublicKey{}
	}
	return c.executor.programID
}

func (c *Client) Signer() *solana.PrivateKey {
	if c.executor == nil {
		return nil
	}
	return c.executor.signer
}

func (c *Client) IDL() *IDL {
	return c.idl
}

func (c *Client) TreasuryWallet() solana.PublicKey {
	return c.treasury
}

func (c *Client) signerPublicKey() (solana.PublicKey, error) {
	signer := c.Signer()
	if signer == nil {
		return solana.PublicKey{}, ErrNoPrivateKey
	}
	return signer.PublicKey(), nil
}

// fetchAccountData returns the raw bytes at address, or ErrAccountNotFound
// when nothing is stored there.
func (c *Client) fetchAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	account, err := c.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account data: %w", err)
	}
	if account == nil || account.Value == nil {
		return nil, ErrAccountNotFound
	}
	return account.Value.Data.GetBinary(), nil
}

func (c *Client) accountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	_, err := c.fetchAccountData(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetGlobalConfig fetches the GlobalPool account.
func (c *Client) GetGlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	pda, _, err := DeriveGlobalAuthorityPDA(c.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("failed to derive PDA: %w", err)
	}

	data, err := c.fetchAccountData(ctx, pda)
	if err != nil {
		return nil, err
	}

	config, err := DeserializeGlobalConfig(data)
	if err != nil {
		c.log.Debug("global config does not match layout", "address", pda, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAccountNotFound, err)
	}
	return config, nil
}

// GetRaffle fetches the raffle stored at address. A missing account and bytes
// that fail the RafflePool layout check both yield ErrAccountNotFound.
func (c *Client) GetRaffle(ctx context.Context, address solana.PublicKey) (*Raffle, error) {
	data, err := c.fetchAccountData(ctx, address)
	if err != nil {
		return nil, err
	}

	raffle, err := DeserializeRaffle(data)
	if err != nil {
		c.log.Debug("raffle does not match layout", "address", address, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAccountNotFound, err)
	}
	return raffle, nil
}

// GetCollectionRegistry resolves the registry through the administrator
// recorded in the GlobalPool and fetches it.
func (c *Client) GetCollectionRegistry(ctx context.Context) (*CollectionRegistry, error) {
	address, err := c.collectionRegistryAddress(ctx)
	if err != nil {
		return nil, err
	}

	data, err := c.fetchAccountData(ctx, address)
	if err != nil {
		return nil, err
	}

	registry, err := DeserializeCollectionRegistry(data)
	if err != nil {
		c.log.Debug("collection registry does not match layout", "address", address, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAccountNotFound, err)
	}
	return registry, nil
}

func (c *Client) collectionRegistryAddress(ctx context.Context) (solana.PublicKey, error) {
	config, err := c.GetGlobalConfig(ctx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return DeriveCollectionRegistryAddress(config.SuperAdmin, c.ProgramID())
}

// RaffleCandidate is a raffle account whose item mint matched a search.
type RaffleCandidate struct {
	Address solana.PublicKey
	Raffle  *Raffle
}

// FindRaffleCandidates lists every raffle account holding the given item mint.
// The result is never nil; no match yields an empty slice.
func (c *Client) FindRaffleCandidates(ctx context.Context, mint solana.PublicKey) ([]RaffleCandidate, error) {
	opts := &solanarpc.GetProgramAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: ConfirmationCommitment,
		Filters: []solanarpc.RPCFilter{
			{
				DataSize: RafflePoolSize,
			},
			{
				Memcmp: &solanarpc.RPCFilterMemcmp{
					Offset: RaffleNftMintOffset,
					Bytes:  solana.Base58(mint[:]),
				},
			},
		},
	}

	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.ProgramID(), opts)
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return []RaffleCandidate{}, nil
		}
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}

	candidates := make([]RaffleCandidate, 0, len(accounts))
	for _, acct := range accounts {
		if acct == nil || acct.Account == nil {
			continue
		}
		raffle, err := DeserializeRaffle(acct.Account.Data.GetBinary())
		if err != nil {
			c.log.Warn("failed to deserialize raffle account", "pubkey", acct.Pubkey, "error", err)
			continue
		}
		candidates = append(candidates, RaffleCandidate{Address: acct.Pubkey, Raffle: raffle})
	}
	return candidates, nil
}

// ResolveRaffle picks, among the raffles holding mint, the one with the
// greatest end timestamp. Ties keep the first candidate returned by the node.
func (c *Client) ResolveRaffle(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, *Raffle, error) {
	candidates, err := c.FindRaffleCandidates(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	selected, ok := SelectLatestRaffle(candidates)
	if !ok {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: mint %s", ErrRaffleNotFound, mint)
	}
	c.log.Debug("resolved raffle", "mint", mint, "raffle", selected.Address, "candidates", len(candidates), "endTimestamp", selected.Raffle.EndTimestamp)
	return selected.Address, selected.Raffle, nil
}

// GetRaffleByMint returns the raffle the resolver selects for mint.
func (c *Client) GetRaffleByMint(ctx context.Context, mint solana.PublicKey) (*Raffle, error) {
	_, raffle, err := c.ResolveRaffle(ctx, mint)
	if err != nil {
		return nil, err
	}
	return raffle, nil
}

// SelectLatestRaffle returns the candidate with the numerically greatest end
// timestamp, first seen on ties.
func SelectLatestRaffle(candidates []RaffleCandidate) (RaffleCandidate, bool) {
	var selected RaffleCandidate
	found := false
	for _, candidate := range candidates {
		if candidate.Raffle == nil {
			continue
		}
		if !found || candidate.Raffle.EndTimestamp > selected.Raffle.EndTimestamp {
			selected = candidate
			found = true
		}
	}
	return selected, found
}

func (c *Client) execute(ctx context.Context, plan *Plan) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	sig, res, err := c.executor.ExecuteTransactions(ctx, plan.Instructions, &ExecuteTransactionOptions{
		SkipPreflight: c.skipPreflight,
	})
	if err != nil {
		return sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	return sig, res, nil
}

// Initialize creates the collection registry account and the GlobalPool with
// the signer as administrator.
func (c *Client) Initialize(ctx context.Context) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareInitialize(ctx)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	return c.execute(ctx, plan)
}

// AddCollection appends a verified collection creator to the registry.
func (c *Client) AddCollection(ctx context.Context, config AddCollectionConfig) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareAddCollection(ctx, config)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	return c.execute(ctx, plan)
}

// CreateRaffle moves the item into custody and opens a raffle for it. The
// address of the new raffle account is returned alongside the signature.
func (c *Client) CreateRaffle(ctx context.Context, config CreateRaffleConfig) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareCreateRaffle(ctx, config)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, err
	}
	sig, res, err := c.execute(ctx, plan)
	return plan.Raffle, sig, res, err
}

func (c *Client) BuyTickets(ctx context.Context, config BuyTicketsConfig) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareBuyTickets(ctx, config)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	return c.execute(ctx, plan)
}

func (c *Client) RevealWinner(ctx context.Context, config RevealWinnerConfig) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareRevealWinner(ctx, config)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	return c.execute(ctx, plan)
}

func (c *Client) ClaimReward(ctx context.Context, config ClaimRewardConfig) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareClaimReward(ctx, config)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	return c.execute(ctx, plan)
}

func (c *Client) WithdrawNft(ctx context.Context, config WithdrawNftConfig) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	plan, err := c.PrepareWithdrawNft(ctx, config)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	return c.execute(ctx, plan)
}
