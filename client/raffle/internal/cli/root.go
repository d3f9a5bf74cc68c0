package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/nftraffle/raffle/client/raffle/internal/metrics"
	"github.com/nftraffle/raffle/config"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	build BuildInfo
	clock clockwork.Clock
	out   io.Writer

	env             string
	rpcURL          string
	programID       string
	treasury        string
	keypairPath     string
	verbose         bool
	skipPreflight   bool
	metricsTextfile string
	output          string
}

func Run(build BuildInfo) ExitCode {
	opts := &rootOptions{
		build: build,
		clock: clockwork.NewRealClock(),
		out:   os.Stdout,
	}
	rootCmd := newRootCmd(opts)

	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "raffle",
		Short:         "Command-line client for the NFT raffle program.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(opts.out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.env, "env", "e", config.EnvDevnet, "The network environment (mainnet-beta, testnet, devnet, localnet)")
	flags.StringVar(&opts.rpcURL, "rpc-url", "", "Override the RPC endpoint of the environment")
	flags.StringVar(&opts.programID, "program-id", "", "Override the raffle program ID of the environment")
	flags.StringVar(&opts.treasury, "treasury-wallet", "", "Override the treasury wallet of the environment")
	flags.StringVarP(&opts.keypairPath, "keypair", "k", defaultKeypairPath(), "Path to the signer keypair (solana-keygen JSON)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "set debug logging level")
	flags.BoolVar(&opts.skipPreflight, "skip-preflight", false, "Submit transactions without preflight simulation")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write run metrics in prometheus text format to this file")
	flags.StringVarP(&opts.output, "output", "o", outputTable, "Output format for show commands (table, json, yaml)")

	rootCmd.AddCommand(
		newInitCmd(opts),
		newAddCollectionCmd(opts),
		newCreateRaffleCmd(opts),
		newBuyTicketsCmd(opts),
		newRevealWinnerCmd(opts),
		newClaimRewardCmd(opts),
		newWithdrawNftCmd(opts),
		newShowCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// session is everything a command needs, resolved once from the flags.
type session struct {
	log     *slog.Logger
	network *config.NetworkConfig
	client  *raffle.Client
	clock   clockwork.Clock
	out     io.Writer
	output  string
}

func (o *rootOptions) newSession(requireSigner bool) (*session, error) {
	log := newLogger(o.verbose)

	network, err := config.NetworkConfigForEnv(o.env)
	if err != nil {
		return nil, err
	}
	if o.rpcURL != "" {
		network.RPCURL = o.rpcURL
	}
	if o.programID != "" {
		network.ProgramID, err = solana.PublicKeyFromBase58(o.programID)
		if err != nil {
			return nil, fmt.Errorf("invalid program ID: %w", err)
		}
	}
	if o.treasury != "" {
		network.TreasuryWallet, err = solana.PublicKeyFromBase58(o.treasury)
		if err != nil {
			return nil, fmt.Errorf("invalid treasury wallet: %w", err)
		}
	}

	var signer *solana.PrivateKey
	if requireSigner {
		if o.keypairPath == "" {
			return nil, errors.New("keypair path is required")
		}
		keypair, err := solana.PrivateKeyFromSolanaKeygenFile(o.keypairPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load keypair: %w", err)
		}
		signer = &keypair
	}

	log.Debug("Resolved network", "env", network.Moniker, "rpc", network.RPCURL, "programID", network.ProgramID)

	client := raffle.New(log, solanarpc.New(network.RPCURL), signer, network.ProgramID,
		raffle.WithTreasuryWallet(network.TreasuryWallet),
		raffle.WithSkipPreflight(o.skipPreflight),
	)

	return &session{
		log:     log,
		network: network,
		client:  client,
		clock:   o.clock,
		out:     o.out,
		output:  o.output,
	}, nil
}

// run builds a session, executes fn under a signal-aware context and records
// the outcome in the run metrics.
func (o *rootOptions) run(operation string, requireSigner bool, fn func(context.Context, *session) error) error {
	s, err := o.newSession(requireSigner)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := o.clock.Now()
	err = fn(ctx, s)
	metrics.ObserveOperation(operation, outcome(err), o.clock.Since(start))

	if o.metricsTextfile != "" {
		metrics.BuildInfo.WithLabelValues(o.build.Version, o.build.Commit, o.build.Date).Set(1)
		if werr := metrics.WriteTextfile(o.metricsTextfile); werr != nil {
			s.log.Warn("Failed to write metrics textfile", "path", o.metricsTextfile, "error", werr)
		}
	}

	if err != nil {
		var txErr *raffle.TransactionFailedError
		if errors.As(err, &txErr) {
			for _, line := range txErr.Logs {
				s.log.Debug("program log", "line", line)
			}
		}
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, raffle.ErrAccountNotFound), errors.Is(err, raffle.ErrRaffleNotFound):
		return metrics.OutcomeNotFound
	}
	if _, ok := raffle.DefaultIDL().DecodeProgramError(err); ok {
		return metrics.OutcomeProgramError
	}
	return metrics.OutcomeError
}

// reportError prints err, followed by the decoded program error when the
// failure carries one.
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if perr, ok := raffle.DefaultIDL().DecodeProgramError(err); ok {
		fmt.Fprintf(w, "Cause: %v\n", perr)
	}
}
