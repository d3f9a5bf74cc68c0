package cli

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
	"github.com/shopspring/decimal"
)

var errEndTimeRequired = errors.New("one of --end or --duration is required")

// resolveEndTimestamp turns --end (RFC3339 or unix seconds) or --duration
// (relative to the clock) into unix seconds.
func resolveEndTimestamp(clock clockwork.Clock, end string, duration time.Duration) (int64, error) {
	switch {
	case end != "" && duration != 0:
		return 0, errors.New("--end and --duration are mutually exclusive")
	case duration < 0:
		return 0, fmt.Errorf("invalid --duration %s: must be positive", duration)
	case duration > 0:
		return clock.Now().Add(duration).Unix(), nil
	case end == "":
		return 0, errEndTimeRequired
	}

	if secs, err := strconv.ParseInt(end, 10, 64); err == nil {
		return secs, nil
	}
	t, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return 0, fmt.Errorf("invalid --end %q: expected RFC3339 or unix seconds", end)
	}
	return t.Unix(), nil
}

var lamportsPerSOL = decimal.New(1, raffle.LamportsDecimals)

// parseSOL converts a SOL amount to lamports. Amounts finer than one lamport
// are rejected rather than rounded.
func parseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid SOL amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid SOL amount %q: must not be negative", s)
	}
	lamports := d.Mul(lamportsPerSOL)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("invalid SOL amount %q: more than %d decimal places", s, raffle.LamportsDecimals)
	}
	n := lamports.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("invalid SOL amount %q: out of range", s)
	}
	return n.Uint64(), nil
}

func formatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -raffle.LamportsDecimals).String()
}
