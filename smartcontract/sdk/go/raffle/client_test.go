package raffle_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
	"github.com/stretchr/testify/require"
)

func serializeRaffle(t *testing.T, r *raffle.Raffle) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, r.Serialize(buf))
	return buf.Bytes()
}

func keyedRaffle(t *testing.T, address solana.PublicKey, r *raffle.Raffle) *solanarpc.KeyedAccount {
	t.Helper()
	return &solanarpc.KeyedAccount{
		Pubkey: address,
		Account: &solanarpc.Account{
			Data: solanarpc.DataBytesOrJSONFromBytes(serializeRaffle(t, r)),
		},
	}
}

func TestSDK_Raffle_Client_GetRaffle_HappyPath(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	programID := solana.NewWallet().PublicKey()
	address := solana.NewWallet().PublicKey()

	expected := &raffle.Raffle{
		Creator:             solana.NewWallet().PublicKey(),
		NftMint:             solana.NewWallet().PublicKey(),
		MaxEntrants:         100,
		EndTimestamp:        1_800_000_000,
		TicketPriceLamports: 10_000_000,
		Entrants:            []solana.PublicKey{},
	}

	mockRPC := &mockRPCClient{
		GetAccountInfoFunc: func(_ context.Context, got solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
			require.Equal(t, address, got)
			return &solanarpc.GetAccountInfoResult{
				Value: &solanarpc.Account{
					Data: solanarpc.DataBytesOrJSONFromBytes(serializeRaffle(t, expected)),
				},
			}, nil
		},
	}

	client := raffle.New(log, mockRPC, &signer, programID)
	got, err := client.GetRaffle(t.Context(), address)
	require.NoError(t, err)
	require.Equal(t, expected, got)
}

func TestSDK_Raffle_Client_GetRaffle_NotFound(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	programID := solana.NewWallet().PublicKey()

	tests := []struct {
		name string
		info func(context.Context, solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	}{
		{
			name: "rpc not found",
			info: func(context.Context, solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
				return nil, solanarpc.ErrNotFound
			},
		},
		{
			name: "nil value",
			info: func(context.Context, solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
				return &solanarpc.GetAccountInfoResult{Value: nil}, nil
			},
		},
		{
			name: "wrong layout",
			info: func(context.Context, solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
				return &solanarpc.GetAccountInfoResult{
					Value: &solanarpc.Account{
						Data: solanarpc.DataBytesOrJSONFromBytes(make([]byte, raffle.GlobalPoolSize)),
					},
				}, nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := raffle.New(log, &mockRPCClient{GetAccountInfoFunc: tt.info}, &signer, programID)
			got, err := client.GetRaffle(t.Context(), solana.NewWallet().PublicKey())
			require.ErrorIs(t, err, raffle.ErrAccountNotFound)
			require.Nil(t, got)
		})
	}
}

func TestSDK_Raffle_Client_GetRaffle_RPCErrorPropagates(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	rpcErr := errors.New("connection reset")
	client := raffle.New(log, &mockRPCClient{
		GetAccountInfoFunc: func(context.Context, solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
			return nil, rpcErr
		},
	}, &signer, solana.NewWallet().PublicKey())

	_, err := client.GetRaffle(t.Context(), solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, rpcErr)
	require.NotErrorIs(t, err, raffle.ErrAccountNotFound)
}

func TestSDK_Raffle_Client_GetCollectionRegistry_ResolvesThroughAdmin(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	programID := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	collection := solana.NewWallet().PublicKey()

	ledger := newFakeLedger(programID)
	globalPDA, _, err := raffle.DeriveGlobalAuthorityPDA(programID)
	require.NoError(t, err)
	registryAddr, err := raffle.DeriveCollectionRegistryAddress(admin, programID)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	require.NoError(t, (&raffle.GlobalConfig{SuperAdmin: admin}).Serialize(buf))
	ledger.put(globalPDA, programID, buf.Bytes())

	client := raffle.New(log, ledger, &signer, programID)

	_, err = client.GetCollectionRegistry(t.Context())
	require.ErrorIs(t, err, raffle.ErrAccountNotFound)

	buf.Reset()
	require.NoError(t, (&raffle.CollectionRegistry{Count: 1, Collections: []solana.PublicKey{collection}}).Serialize(buf))
	ledger.put(registryAddr, programID, buf.Bytes())

	registry, err := client.GetCollectionRegistry(t.Context())
	require.NoError(t, err)
	require.Equal(t, []solana.PublicKey{collection}, registry.Collections)

	config, err := client.GetGlobalConfig(t.Context())
	require.NoError(t, err)
	require.Equal(t, admin, config.SuperAdmin)
}

func TestSDK_Raffle_Client_FindRaffleCandidates_FiltersAndEmpty(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	programID := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	var gotOpts *solanarpc.GetProgramAccountsOpts
	mockRPC := &mockRPCClient{
		GetProgramAccountsWithOptsFunc: func(_ context.Context, pk solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
			require.Equal(t, programID, pk)
			gotOpts = opts
			return solanarpc.GetProgramAccountsResult{}, nil
		},
	}

	client := raffle.New(log, mockRPC, &signer, programID)
	candidates, err := client.FindRaffleCandidates(t.Context(), mint)
	require.NoError(t, err)
	require.NotNil(t, candidates)
	require.Empty(t, candidates)

	require.Len(t, gotOpts.Filters, 2)
	require.Equal(t, uint64(raffle.RafflePoolSize), gotOpts.Filters[0].DataSize)
	require.Equal(t, uint64(raffle.RaffleNftMintOffset), gotOpts.Filters[1].Memcmp.Offset)
	require.Equal(t, mint[:], []byte(gotOpts.Filters[1].Memcmp.Bytes))
}

func TestSDK_Raffle_Client_FindRaffleCandidates_SkipsUndecodable(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	programID := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	good := solana.NewWallet().PublicKey()

	mockRPC := &mockRPCClient{
		GetProgramAccountsWithOptsFunc: func(context.Context, solana.PublicKey, *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
			return solanarpc.GetProgramAccountsResult{
				{
					Pubkey: solana.NewWallet().PublicKey(),
					Account: &solanarpc.Account{
						Data: solanarpc.DataBytesOrJSONFromBytes(make([]byte, raffle.RafflePoolSize)),
					},
				},
				keyedRaffle(t, good, &raffle.Raffle{NftMint: mint, EndTimestamp: 5}),
			}, nil
		},
	}

	client := raffle.New(log, mockRPC, &signer, programID)
	candidates, err := client.FindRaffleCandidates(t.Context(), mint)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, good, candidates[0].Address)
}

func TestSDK_Raffle_Client_ResolveRaffle_LatestEndTimestampWins(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	programID := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	older := solana.NewWallet().PublicKey()
	newer := solana.NewWallet().PublicKey()

	for _, order := range [][]solana.PublicKey{{older, newer}, {newer, older}} {
		ends := map[solana.PublicKey]int64{older: 1_700_000_000, newer: 1_800_000_000}
		mockRPC := &mockRPCClient{
			GetProgramAccountsWithOptsFunc: func(context.Context, solana.PublicKey, *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				out := solanarpc.GetProgramAccountsResult{}
				for _, addr := range order {
					out = append(out, keyedRaffle(t, addr, &raffle.Raffle{NftMint: mint, EndTimestamp: ends[addr]}))
				}
				return out, nil
			},
		}

		client := raffle.New(log, mockRPC, &signer, programID)
		address, r, err := client.ResolveRaffle(t.Context(), mint)
		require.NoError(t, err)
		require.Equal(t, newer, address)
		require.Equal(t, int64(1_800_000_000), r.EndTimestamp)
	}
}

func TestSDK_Raffle_Client_ResolveRaffle_NotFound(t *testing.T) {
	t.Parallel()

	signer := solana.NewWallet().PrivateKey
	mockRPC := &mockRPCClient{
		GetProgramAccountsWithOptsFunc: func(context.Context, solana.PublicKey, *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
			return solanarpc.GetProgramAccountsResult{}, nil
		},
	}

	client := raffle.New(log, mockRPC, &signer, solana.NewWallet().PublicKey())
	got, err := client.GetRaffleByMint(t.Context(), solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, raffle.ErrRaffleNotFound)
	require.Nil(t, got)
}

func TestSDK_Raffle_Client_SelectLatestRaffle_TiesKeepFirst(t *testing.T) {
	t.Parallel()

	first := solana.NewWallet().PublicKey()
	second := solana.NewWallet().PublicKey()

	selected, ok := raffle.SelectLatestRaffle([]raffle.RaffleCandidate{
		{Address: first, Raffle: &raffle.Raffle{EndTimestamp: 10}},
		{Address: second, Raffle: &raffle.Raffle{EndTimestamp: 10}},
	})
	require.True(t, ok)
	require.Equal(t, first, selected.Address)

	_, ok = raffle.SelectLatestRaffle(nil)
	require.False(t, ok)
}
