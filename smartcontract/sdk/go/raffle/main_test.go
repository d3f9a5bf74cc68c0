package raffle_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/lmittmann/tint"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
)

var (
	log *slog.Logger
)

// TestMain sets up the test environment with a global logger.
func TestMain(m *testing.M) {
	flag.Parse()
	verbose := false
	if vFlag := flag.Lookup("test.v"); vFlag != nil && vFlag.Value.String() == "true" {
		verbose = true
	}
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	log = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.RFC3339,
		AddSource:  true,
	}))

	os.Exit(m.Run())
}

type mockRPCClient struct {
	raffle.RPCClient

	GetLatestBlockhashFunc                func(context.Context, solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	SendTransactionWithOptsFunc           func(context.Context, *solana.Transaction, solanarpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatusesFunc              func(context.Context, bool, ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
	GetTransactionFunc                    func(context.Context, solana.Signature, *solanarpc.GetTransactionOpts) (*solanarpc.GetTransactionResult, error)
	GetAccountInfoFunc                    func(context.Context, solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	GetMinimumBalanceForRentExemptionFunc func(context.Context, uint64, solanarpc.CommitmentType) (uint64, error)
	GetProgramAccountsWithOptsFunc        func(context.Context, solana.PublicKey, *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error)
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, ct solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	return m.GetLatestBlockhashFunc(ctx, ct)
}

func (m *mockRPCClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	return m.SendTransactionWithOptsFunc(ctx, tx, opts)
}

func (m *mockRPCClient) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	return m.GetSignatureStatusesFunc(ctx, search, sigs...)
}

func (m *mockRPCClient) GetTransaction(ctx context.Context, sig solana.Signature, opts *solanarpc.GetTransactionOpts) (*solanarpc.GetTransactionResult, error) {
	return m.GetTransactionFunc(ctx, sig, opts)
}

func (m *mockRPCClient) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	return m.GetAccountInfoFunc(ctx, account)
}

func (m *mockRPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64, ct solanarpc.CommitmentType) (uint64, error) {
	return m.GetMinimumBalanceForRentExemptionFunc(ctx, size, ct)
}

func (m *mockRPCClient) GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
	return m.GetProgramAccountsWithOptsFunc(ctx, publicKey, opts)
}

// fakeLedger is an in-memory cluster that applies system, associated token and
// raffle program instructions. Transactions are atomic: a failing instruction
// leaves no trace.
type fakeLedger struct {
	mu sync.Mutex

	programID solana.PublicKey
	idl       *raffle.IDL
	now       int64

	accounts map[solana.PublicKey]*fakeAccount
	order    []solana.PublicKey
	txs      map[solana.Signature]struct{}

	// sent counts transactions accepted by SendTransactionWithOpts.
	sent int
}

type fakeAccount struct {
	owner solana.PublicKey
	data  []byte
}

const fakeTokenAccountSize = 165

var fakeBlockhash = solana.MustHashFromBase58("5NzX7jrPWeTkGsDnVnszdEa7T3Yyr3nSgyc78z3CwjWQ")

func newFakeLedger(programID solana.PublicKey) *fakeLedger {
	return &fakeLedger{
		programID: programID,
		idl:       raffle.DefaultIDL(),
		now:       1_700_000_000,
		accounts:  make(map[solana.PublicKey]*fakeAccount),
		txs:       make(map[solana.Signature]struct{}),
	}
}

func (l *fakeLedger) put(address, owner solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(address, owner, data)
}

func (l *fakeLedger) putLocked(address, owner solana.PublicKey, data []byte) {
	if _, ok := l.accounts[address]; !ok {
		l.order = append(l.order, address)
	}
	l.accounts[address] = &fakeAccount{owner: owner, data: append([]byte{}, data...)}
}

func (l *fakeLedger) putTokenAccount(owner, mint solana.PublicKey) solana.PublicKey {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		panic(err)
	}
	l.put(address, solana.TokenProgramID, make([]byte, fakeTokenAccountSize))
	return address
}

func (l *fakeLedger) putRaffle(address solana.PublicKey, r *raffle.Raffle) {
	buf := new(bytes.Buffer)
	if err := r.Serialize(buf); err != nil {
		panic(err)
	}
	l.put(address, l.programID, buf.Bytes())
}

func (l *fakeLedger) exists(address solana.PublicKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[address]
	return ok
}

func (l *fakeLedger) transactionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

func (l *fakeLedger) GetLatestBlockhash(context.Context, solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	return &solanarpc.GetLatestBlockhashResult{
		Value: &solanarpc.LatestBlockhashResult{Blockhash: fakeBlockhash},
	}, nil
}

func (l *fakeLedger) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ solanarpc.TransactionOpts) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("transaction is not signed")
	}

	snapshot := make(map[solana.PublicKey]*fakeAccount, len(l.accounts))
	for k, v := range l.accounts {
		snapshot[k] = &fakeAccount{owner: v.owner, data: append([]byte{}, v.data...)}
	}
	order := append([]solana.PublicKey{}, l.order...)

	for i, ci := range tx.Message.Instructions {
		programID := tx.Message.AccountKeys[ci.ProgramIDIndex]
		accounts := make([]solana.PublicKey, len(ci.Accounts))
		for j, idx := range ci.Accounts {
			accounts[j] = tx.Message.AccountKeys[idx]
		}
		if err := l.applyLocked(programID, accounts, ci.Data); err != nil {
			l.accounts = snapshot
			l.order = order
			return solana.Signature{}, fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	sig := tx.Signatures[0]
	l.txs[sig] = struct{}{}
	l.sent++
	return sig, nil
}

func (l *fakeLedger) applyLocked(programID solana.PublicKey, accounts []solana.PublicKey, data []byte) error {
	switch {
	case programID.Equals(solana.SystemProgramID):
		return l.applySystemLocked(accounts, data)
	case programID.Equals(solana.SPLAssociatedTokenAccountProgramID):
		return l.applyAssociatedTokenLocked(accounts)
	case programID.Equals(l.programID):
		return l.applyRaffleLocked(accounts, data)
	}
	return fmt.Errorf("unsupported program %s", programID)
}

// applySystemLocked handles create_account_with_seed. The fixed-size tail of
// the instruction data is lamports, space and owner.
func (l *fakeLedger) applySystemLocked(accounts []solana.PublicKey, data []byte) error {
	if len(data) < 4+48 || binary.LittleEndian.Uint32(data[:4]) != 3 {
		return errors.New("unsupported system instruction")
	}
	tail := data[len(data)-48:]
	space := binary.LittleEndian.Uint64(tail[8:16])
	owner := solana.PublicKeyFromBytes(tail[16:48])
	created := accounts[1]
	if _, ok := l.accounts[created]; ok {
		return fmt.Errorf("create account: account %s already in use", created)
	}
	l.putLocked(created, owner, make([]byte, space))
	return nil
}

func (l *fakeLedger) applyAssociatedTokenLocked(accounts []solana.PublicKey) error {
	if len(accounts) < 4 {
		return errors.New("associated token account: not enough accounts")
	}
	address, wallet, mint := accounts[1], accounts[2], accounts[3]
	expected, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return err
	}
	if !expected.Equals(address) {
		return fmt.Errorf("associated token account: got %s, want %s", address, expected)
	}
	if _, ok := l.accounts[address]; ok {
		return fmt.Errorf("associated token account %s already exists", address)
	}
	l.putLocked(address, solana.TokenProgramID, make([]byte, fakeTokenAccountSize))
	return nil
}

func (l *fakeLedger) applyRaffleLocked(accounts []solana.PublicKey, data []byte) error {
	if len(data) < 8 {
		return errors.New("instruction data too short")
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	args := data[8:]

	var name string
	for _, ix := range l.idl.Instructions {
		if raffle.InstructionDiscriminator(ix.Name) == disc {
			name = ix.Name
			break
		}
	}
	if name == "" {
		return fmt.Errorf("unknown discriminator %x", disc)
	}
	ix, err := l.idl.Instruction(name)
	if err != nil {
		return err
	}
	if len(accounts) != len(ix.Accounts) {
		return fmt.Errorf("%s: got %d accounts, want %d", name, len(accounts), len(ix.Accounts))
	}
	roles := make(map[string]solana.PublicKey, len(accounts))
	for i, acct := range ix.Accounts {
		roles[acct.Name] = accounts[i]
	}

	switch name {
	case raffle.InitializeInstructionName:
		return l.initializeLocked(roles)
	case raffle.AddCollectionInstructionName:
		return l.addCollectionLocked(roles)
	case raffle.CreateRaffleInstructionName:
		return l.createRaffleLocked(roles, args)
	case raffle.BuyTicketsInstructionName:
		return l.buyTicketsLocked(roles, args)
	}
	return fmt.Errorf("%s is not supported by the fake ledger", name)
}

func (l *fakeLedger) initializeLocked(roles map[string]solana.PublicKey) error {
	collection, ok := l.accounts[roles["collection"]]
	if !ok || len(collection.data) != raffle.CollectionPoolSize {
		return errors.New("initialize: collection account not allocated")
	}
	buf := new(bytes.Buffer)
	if err := (&raffle.GlobalConfig{SuperAdmin: roles["admin"]}).Serialize(buf); err != nil {
		return err
	}
	l.putLocked(roles["globalAuthority"], l.programID, buf.Bytes())

	buf.Reset()
	if err := (&raffle.CollectionRegistry{}).Serialize(buf); err != nil {
		return err
	}
	collection.data = buf.Bytes()
	return nil
}

func (l *fakeLedger) addCollectionLocked(roles map[string]solana.PublicKey) error {
	global, err := l.globalConfigLocked()
	if err != nil {
		return err
	}
	if !global.SuperAdmin.Equals(roles["admin"]) {
		return errors.New("custom program error: 0x1770")
	}
	acct, ok := l.accounts[roles["collection"]]
	if !ok {
		return errors.New("addCollection: collection account missing")
	}
	registry, err := raffle.DeserializeCollectionRegistry(acct.data)
	if err != nil {
		return err
	}
	registry.Collections = append(registry.Collections, roles["collectionId"])
	registry.Count++
	buf := new(bytes.Buffer)
	if err := registry.Serialize(buf); err != nil {
		return err
	}
	acct.data = buf.Bytes()
	return nil
}

func (l *fakeLedger) createRaffleLocked(roles map[string]solana.PublicKey, args []byte) error {
	if len(args) != 1+8+8+8 {
		return fmt.Errorf("createRaffle: unexpected args length %d", len(args))
	}
	acct, ok := l.accounts[roles["raffle"]]
	if !ok || len(acct.data) != raffle.RafflePoolSize {
		return errors.New("createRaffle: raffle account not allocated")
	}
	if _, ok := l.accounts[roles["destNftTokenAccount"]]; !ok {
		return errors.New("createRaffle: custody token account missing")
	}
	if _, ok := l.accounts[roles["ownerTempNftAccount"]]; !ok {
		return errors.New("createRaffle: owner token account missing")
	}
	r := &raffle.Raffle{
		Creator:             roles["admin"],
		NftMint:             roles["nftMintAddress"],
		StartTimestamp:      l.now,
		TicketPriceLamports: binary.LittleEndian.Uint64(args[1:9]),
		EndTimestamp:        int64(binary.LittleEndian.Uint64(args[9:17])),
		MaxEntrants:         binary.LittleEndian.Uint64(args[17:25]),
	}
	buf := new(bytes.Buffer)
	if err := r.Serialize(buf); err != nil {
		return err
	}
	acct.data = buf.Bytes()
	return nil
}

func (l *fakeLedger) buyTicketsLocked(roles map[string]solana.PublicKey, args []byte) error {
	if len(args) != 1+8 {
		return fmt.Errorf("buyTickets: unexpected args length %d", len(args))
	}
	amount := binary.LittleEndian.Uint64(args[1:9])
	acct, ok := l.accounts[roles["raffle"]]
	if !ok {
		return errors.New("buyTickets: raffle missing")
	}
	r, err := raffle.DeserializeRaffle(acct.data)
	if err != nil {
		return err
	}
	if !r.Creator.Equals(roles["creator"]) {
		return errors.New("buyTickets: creator mismatch")
	}
	if r.Count+amount > r.MaxEntrants {
		return errors.New("custom program error: 0x1771")
	}
	repeat := false
	for _, e := range r.Entrants {
		if e.Equals(roles["buyer"]) {
			repeat = true
			break
		}
	}
	if !repeat {
		r.NoRepeat++
	}
	for i := uint64(0); i < amount; i++ {
		r.Entrants = append(r.Entrants, roles["buyer"])
	}
	r.Count += amount
	buf := new(bytes.Buffer)
	if err := r.Serialize(buf); err != nil {
		return err
	}
	acct.data = buf.Bytes()
	return nil
}

func (l *fakeLedger) globalConfigLocked() (*raffle.GlobalConfig, error) {
	pda, _, err := raffle.DeriveGlobalAuthorityPDA(l.programID)
	if err != nil {
		return nil, err
	}
	acct, ok := l.accounts[pda]
	if !ok {
		return nil, errors.New("global pool missing")
	}
	return raffle.DeserializeGlobalConfig(acct.data)
}

func (l *fakeLedger) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := &solanarpc.GetSignatureStatusesResult{}
	for _, sig := range sigs {
		if _, ok := l.txs[sig]; ok {
			out.Value = append(out.Value, &solanarpc.SignatureStatusesResult{
				ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed,
			})
			continue
		}
		out.Value = append(out.Value, nil)
	}
	return out, nil
}

func (l *fakeLedger) GetTransaction(_ context.Context, sig solana.Signature, _ *solanarpc.GetTransactionOpts) (*solanarpc.GetTransactionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.txs[sig]; !ok {
		return nil, solanarpc.ErrNotFound
	}
	return &solanarpc.GetTransactionResult{Meta: &solanarpc.TransactionMeta{}}, nil
}

func (l *fakeLedger) GetAccountInfo(_ context.Context, address solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[address]
	if !ok {
		return nil, solanarpc.ErrNotFound
	}
	return &solanarpc.GetAccountInfoResult{
		Value: &solanarpc.Account{
			Owner: acct.owner,
			Data:  solanarpc.DataBytesOrJSONFromBytes(append([]byte{}, acct.data...)),
		},
	}, nil
}

func (l *fakeLedger) GetMinimumBalanceForRentExemption(_ context.Context, size uint64, _ solanarpc.CommitmentType) (uint64, error) {
	return (size + 128) * 6960, nil
}

func (l *fakeLedger) GetProgramAccountsWithOpts(_ context.Context, programID solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := solanarpc.GetProgramAccountsResult{}
	for _, address := range l.order {
		acct := l.accounts[address]
		if !acct.owner.Equals(programID) || !matchesFilters(acct.data, opts) {
			continue
		}
		out = append(out, &solanarpc.KeyedAccount{
			Pubkey: address,
			Account: &solanarpc.Account{
				Owner: acct.owner,
				Data:  solanarpc.DataBytesOrJSONFromBytes(append([]byte{}, acct.data...)),
			},
		})
	}
	return out, nil
}

func matchesFilters(data []byte, opts *solanarpc.GetProgramAccountsOpts) bool {
	if opts == nil {
		return true
	}
	for _, f := range opts.Filters {
		if f.DataSize != 0 && uint64(len(data)) != f.DataSize {
			return false
		}
		if f.Memcmp != nil {
			want := []byte(f.Memcmp.Bytes)
			end := int(f.Memcmp.Offset) + len(want)
			if end > len(data) || !bytes.Equal(data[f.Memcmp.Offset:end], want) {
				return false
			}
		}
	}
	return true
}
