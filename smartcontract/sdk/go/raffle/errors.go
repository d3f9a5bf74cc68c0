package raffle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrAccountNotFound is returned when an address holds no account, or holds
	// bytes that do not match the expected record layout.
	ErrAccountNotFound = errors.New("account not found")

	// ErrRaffleNotFound is returned when no raffle matches an item mint.
	ErrRaffleNotFound = errors.New("raffle not found")

	// ErrRaffleAddressExhausted is returned when every probed raffle seed length already holds an account.
	ErrRaffleAddressExhausted = errors.New("no free raffle address for creator and mint")

	// ErrItemAccountNotFound is returned when the creator holds no token account for the raffled mint.
	ErrItemAccountNotFound = errors.New("item token account not found")

	// ErrRegistryAlreadyExists is returned by initialize when the collection registry is already funded.
	ErrRegistryAlreadyExists = errors.New("collection registry already exists")

	// ErrTransactionFailed is returned when a transaction was confirmed with an execution error.
	ErrTransactionFailed = errors.New("transaction failed")
)

// TransactionFailedError carries the execution error reported in the
// transaction metadata of a confirmed but failed transaction.
type TransactionFailedError struct {
	Signature solana.Signature
	Err       any
	Logs      []string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

func (e *TransactionFailedError) Unwrap() error {
	return ErrTransactionFailed
}

// ProgramError is a custom error raised by the raffle program.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("program error %d", e.Code)
	}
	return fmt.Sprintf("program error %d (%s): %s", e.Code, e.Name, e.Msg)
}

// DecodeProgramError looks for a custom program error code in a submission
// failure and resolves it against the IDL error table. The error itself is
// left untouched.
func (i *IDL) DecodeProgramError(err error) (*ProgramError, bool) {
	if err == nil {
		return nil, false
	}

	var code uint32
	var found bool

	var txErr *TransactionFailedError
	var rpcErr *jsonrpc.RPCError
	switch {
	case errors.As(err, &txErr):
		code, found = customErrorCode(txErr.Err)
	case errors.As(err, &rpcErr):
		if data, ok := rpcErr.Data.(map[string]any); ok {
			code, found = customErrorCode(data["err"])
		}
	}
	if !found || code < anchorCustomErrorBase {
		return nil, false
	}

	perr := &ProgramError{Code: code}
	if idlErr, ok := i.Error(code); ok {
		perr.Name = idlErr.Name
		perr.Msg = idlErr.Msg
	}
	return perr, true
}

// customErrorCode extracts N from {"InstructionError": [idx, {"Custom": N}]}.
func customErrorCode(v any) (uint32, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	ie, ok := m["InstructionError"].([]any)
	if !ok || len(ie) != 2 {
		return 0, false
	}
	custom, ok := ie[1].(map[string]any)
	if !ok {
		return 0, false
	}
	switch c := custom["Custom"].(type) {
	case json.Number:
		n, err := c.Int64()
		if err != nil || n < 0 {
			return 0, false
		}
		return uint32(n), true
	case float64:
		if c < 0 {
			return 0, false
		}
		return uint32(c), true
	case int:
		return uint32(c), c >= 0
	case uint32:
		return c, true
	case uint64:
		return uint32(c), true
	}
	return 0, false
}
