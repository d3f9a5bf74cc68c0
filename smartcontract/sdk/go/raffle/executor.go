package raffle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrNoPrivateKey is returned when a transaction signing operation is attempted without a configured private key.
	ErrNoPrivateKey = errors.New("no private key configured")

	// ErrNoProgramID is returned when a transaction signing operation is attempted without a configured program ID.
	ErrNoProgramID = errors.New("no program ID configured")

	errSignatureNotVisible = errors.New("signature not visible yet")
	errNotConfirmed        = errors.New("transaction not confirmed yet")
)

// ConfirmationCommitment is the level every submitted transaction is awaited at.
const ConfirmationCommitment = solanarpc.CommitmentConfirmed

type executor struct {
	log                   *slog.Logger
	rpc                   RPCClient
	signer                *solana.PrivateKey
	programID             solana.PublicKey
	waitForVisibleTimeout time.Duration
	visiblePollInterval   time.Duration
	confirmPollInterval   time.Duration
}

type ExecutorOption func(*executor)

func WithWaitForVisibleTimeout(timeout time.Duration) ExecutorOption {
	return func(e *executor) {
		e.waitForVisibleTimeout = timeout
	}
}

func WithPollIntervals(visible, confirm time.Duration) ExecutorOption {
	return func(e *executor) {
		e.visiblePollInterval = visible
		e.confirmPollInterval = confirm
	}
}

func NewExecutor(log *slog.Logger, rpc RPCClient, signer *solana.PrivateKey, programID solana.PublicKey, opts ...ExecutorOption) *executor {
	e := &executor{
		log:                   log,
		rpc:                   rpc,
		signer:                signer,
		programID:             programID,
		waitForVisibleTimeout: 15 * time.Second,
		visiblePollInterval:   250 * time.Millisecond,
		confirmPollInterval:   1 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ExecuteTransactionOptions struct {
	SkipPreflight bool
}

func (e *executor) ExecuteTransaction(ctx context.Context, instruction solana.Instruction, opts *ExecuteTransactionOptions) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	return e.ExecuteTransactions(ctx, []solana.Instruction{instruction}, opts)
}

// ExecuteTransactions signs the instructions as one transaction paid by the
// signer, submits it once and blocks until it is confirmed. Submission errors
// are returned wrapped, never retried.
func (e *executor) ExecuteTransactions(ctx context.Context, instructions []solana.Instruction, opts *ExecuteTransactionOptions) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	if opts == nil {
		opts = &ExecuteTransactionOptions{}
	}

	if e.signer == nil {
		return solana.Signature{}, nil, ErrNoPrivateKey
	}
	if e.programID.IsZero() {
		return solana.Signature{}, nil, ErrNoProgramID
	}

	// Get latest blockhash
	blockhashResult, err := e.rpc.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	// Build transaction
	tx, err := solana.NewTransaction(
		instructions,
		blockhashResult.Value.Blockhash,
		solana.TransactionPayer(e.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if tx == nil {
		return solana.Signature{}, nil, errors.New("transaction build failed: nil result")
	}

	// Sign transaction
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(e.signer.PublicKey()) {
			return e.signer
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to sign transaction (likely missing signer): %w", err)
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, nil, errors.New("signed transaction appears malformed")
	}

	// Send transaction
	sig, err := e.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: ConfirmationCommitment,
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	e.log.Debug("--> Transaction sent", "sig", sig, "instructions", len(instructions))

	// Wait for the signature to be visible
	err = e.waitForSignatureVisible(ctx, sig, e.waitForVisibleTimeout)
	if err != nil {
		if opts.SkipPreflight {
			return solana.Signature{}, nil, fmt.Errorf("transaction dropped or rejected before cluster saw it. make sure you have sufficient funds for the transaction: %w", err)
		}
		return solana.Signature{}, nil, fmt.Errorf("transaction dropped or rejected before cluster saw it: %w", err)
	}

	// Wait for the transaction to be confirmed
	res, err := e.waitForTransactionConfirmed(ctx, sig)
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if res.Meta.Err != nil {
		return sig, res, &TransactionFailedError{
			Signature: sig,
			Err:       res.Meta.Err,
			Logs:      res.Meta.LogMessages,
		}
	}

	return sig, res, nil
}

func (e *executor) waitForSignatureVisible(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		resp, err := e.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if len(resp.Value) > 0 && resp.Value[0] != nil {
			return struct{}{}, nil
		}
		return struct{}{}, errSignatureNotVisible
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(e.visiblePollInterval)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if errors.Is(err, errSignatureNotVisible) {
		return errors.New("signature not found after wait")
	}
	return err
}

func (e *executor) waitForTransactionConfirmed(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error) {
	e.log.Debug("--> Waiting for transaction to be confirmed", "sig", sig)
	start := time.Now()
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		statusResp, err := e.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if len(statusResp.Value) == 0 {
			return struct{}{}, backoff.Permanent(errors.New("transaction not found"))
		}
		status := statusResp.Value[0]
		if status != nil && (status.ConfirmationStatus == solanarpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == solanarpc.ConfirmationStatusFinalized) {
			return struct{}{}, nil
		}
		e.log.Debug("--> Still waiting for transaction to be confirmed", "sig", sig, "elapsed", time.Since(start))
		return struct{}{}, errNotConfirmed
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(e.confirmPollInterval)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		return nil, err
	}
	e.log.Debug("--> Transaction confirmed", "sig", sig, "duration", time.Since(start))

	tx, err := e.rpc.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: ConfirmationCommitment,
	})
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Meta == nil {
		return nil, errors.New("transaction not found or missing metadata after confirmation")
	}
	return tx, nil
}
