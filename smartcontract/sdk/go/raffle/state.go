package raffle

import (
	"fmt"
	"io"
	"math/bits"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ClaimState is the raffle "claimed" field as written by the program.
type ClaimState uint64

const (
	ClaimStateNone           ClaimState = 0
	ClaimStateClaimed        ClaimState = 1
	ClaimStateWinnerRevealed ClaimState = 2
	ClaimStateWithdrawn      ClaimState = 3
)

func (s ClaimState) String() string {
	switch s {
	case ClaimStateNone:
		return "none"
	case ClaimStateClaimed:
		return "claimed"
	case ClaimStateWinnerRevealed:
		return "winner-revealed"
	case ClaimStateWithdrawn:
		return "withdrawn"
	default:
		return fmt.Sprintf("unknown(%d)", uint64(s))
	}
}

type RaffleStatus string

const (
	RaffleStatusActive         RaffleStatus = "active"
	RaffleStatusEnded          RaffleStatus = "ended"
	RaffleStatusWinnerRevealed RaffleStatus = "winner-revealed"
	RaffleStatusClaimed        RaffleStatus = "claimed"
	RaffleStatusWithdrawn      RaffleStatus = "withdrawn"
)

// GlobalConfig is the GlobalPool singleton.
type GlobalConfig struct {
	SuperAdmin solana.PublicKey // 32 bytes
}

func (g *GlobalConfig) Serialize(w io.Writer) error {
	enc := bin.NewBorshEncoder(w)
	disc := AccountDiscriminator(GlobalPoolAccountName)
	if err := enc.Encode(disc); err != nil {
		return err
	}
	return enc.Encode(g.SuperAdmin)
}

func (g *GlobalConfig) Deserialize(data []byte) error {
	if err := checkAccountHeader(data, GlobalPoolAccountName, GlobalPoolSize); err != nil {
		return err
	}
	dec := bin.NewBorshDecoder(data[anchorDiscriminatorLength:])
	return dec.Decode(&g.SuperAdmin)
}

// CollectionRegistry is the CollectionPool record. Only the first Count
// collections are kept; the rest of the on-chain array is zero padding.
type CollectionRegistry struct {
	Count       uint64             // 8 bytes LE
	Collections []solana.PublicKey // MaxCollections * 32 bytes on-chain
}

func (c *CollectionRegistry) Serialize(w io.Writer) error {
	if len(c.Collections) > MaxCollections {
		return fmt.Errorf("collections count %d exceeds max %d", len(c.Collections), MaxCollections)
	}
	enc := bin.NewBorshEncoder(w)
	disc := AccountDiscriminator(CollectionPoolAccountName)
	if err := enc.Encode(disc); err != nil {
		return err
	}
	if err := enc.Encode(c.Count); err != nil {
		return err
	}
	var collections [MaxCollections]solana.PublicKey
	copy(collections[:], c.Collections)
	return enc.Encode(collections)
}

func (c *CollectionRegistry) Deserialize(data []byte) error {
	if err := checkAccountHeader(data, CollectionPoolAccountName, CollectionPoolSize); err != nil {
		return err
	}
	dec := bin.NewBorshDecoder(data[anchorDiscriminatorLength:])
	if err := dec.Decode(&c.Count); err != nil {
		return err
	}
	if c.Count > MaxCollections {
		return fmt.Errorf("collections count %d exceeds max %d", c.Count, MaxCollections)
	}
	var collections [MaxCollections]solana.PublicKey
	if err := dec.Decode(&collections); err != nil {
		return err
	}
	c.Collections = append([]solana.PublicKey{}, collections[:c.Count]...)
	return nil
}

func (c *CollectionRegistry) Contains(collection solana.PublicKey) bool {
	for _, pk := range c.Collections {
		if pk.Equals(collection) {
			return true
		}
	}
	return false
}

// Raffle is the RafflePool record. Entrants holds one entry per ticket, so a
// buyer appears once for every ticket bought.
type Raffle struct {
	Creator             solana.PublicKey   // 32 bytes
	NftMint             solana.PublicKey   // 32 bytes
	Count               uint64             // 8 bytes LE
	NoRepeat            uint64             // 8 bytes LE
	MaxEntrants         uint64             // 8 bytes LE
	StartTimestamp      int64              // 8 bytes LE
	EndTimestamp        int64              // 8 bytes LE
	TicketPriceLamports uint64             // 8 bytes LE
	Claimed             ClaimState         // 8 bytes LE
	WinnerIndex         uint64             // 8 bytes LE
	Winner              solana.PublicKey   // 32 bytes
	Entrants            []solana.PublicKey // MaxEntrants * 32 bytes on-chain
}

func (r *Raffle) Serialize(w io.Writer) error {
	if len(r.Entrants) > MaxEntrants {
		return fmt.Errorf("entrants count %d exceeds max %d", len(r.Entrants), MaxEntrants)
	}
	enc := bin.NewBorshEncoder(w)
	disc := AccountDiscriminator(RafflePoolAccountName)
	var entrants [MaxEntrants]solana.PublicKey
	copy(entrants[:], r.Entrants)
	for _, v := range []any{
		disc,
		r.Creator,
		r.NftMint,
		r.Count,
		r.NoRepeat,
		r.MaxEntrants,
		r.StartTimestamp,
		r.EndTimestamp,
		r.TicketPriceLamports,
		uint64(r.Claimed),
		r.WinnerIndex,
		r.Winner,
		entrants,
	} {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Raffle) Deserialize(data []byte) error {
	if err := checkAccountHeader(data, RafflePoolAccountName, RafflePoolSize); err != nil {
		return err
	}
	dec := bin.NewBorshDecoder(data[anchorDiscriminatorLength:])
	if err := dec.Decode(&r.Creator); err != nil {
		return err
	}
	if err := dec.Decode(&r.NftMint); err != nil {
		return err
	}
	if err := dec.Decode(&r.Count); err != nil {
		return err
	}
	if r.Count > MaxEntrants {
		return fmt.Errorf("entrants count %d exceeds max %d", r.Count, MaxEntrants)
	}
	if err := dec.Decode(&r.NoRepeat); err != nil {
		return err
	}
	if err := dec.Decode(&r.MaxEntrants); err != nil {
		return err
	}
	if err := dec.Decode(&r.StartTimestamp); err != nil {
		return err
	}
	if err := dec.Decode(&r.EndTimestamp); err != nil {
		return err
	}
	if err := dec.Decode(&r.TicketPriceLamports); err != nil {
		return err
	}
	var claimed uint64
	if err := dec.Decode(&claimed); err != nil {
		return err
	}
	r.Claimed = ClaimState(claimed)
	if err := dec.Decode(&r.WinnerIndex); err != nil {
		return err
	}
	if err := dec.Decode(&r.Winner); err != nil {
		return err
	}
	var entrants [MaxEntrants]solana.PublicKey
	if err := dec.Decode(&entrants); err != nil {
		return err
	}
	r.Entrants = append([]solana.PublicKey{}, entrants[:r.Count]...)
	return nil
}

func (r *Raffle) TicketsRemaining() uint64 {
	if r.Count >= r.MaxEntrants {
		return 0
	}
	return r.MaxEntrants - r.Count
}

// UniqueEntrants is the number of distinct buyers, tracked by the program as no_repeat.
func (r *Raffle) UniqueEntrants() uint64 {
	return r.NoRepeat
}

func (r *Raffle) HasWinner() bool {
	return r.Claimed == ClaimStateWinnerRevealed || r.Claimed == ClaimStateClaimed
}

func (r *Raffle) Status(now time.Time) RaffleStatus {
	switch r.Claimed {
	case ClaimStateWithdrawn:
		return RaffleStatusWithdrawn
	case ClaimStateClaimed:
		return RaffleStatusClaimed
	case ClaimStateWinnerRevealed:
		return RaffleStatusWinnerRevealed
	}
	if now.Unix() > r.EndTimestamp {
		return RaffleStatusEnded
	}
	return RaffleStatusActive
}

// TicketCost is what a purchase moves, split the way the program splits it.
type TicketCost struct {
	TotalLamports   uint64
	CreatorLamports uint64
	FeeLamports     uint64
}

func ComputeTicketCost(priceLamports, amount uint64) (TicketCost, error) {
	hi, total := bits.Mul64(priceLamports, amount)
	if hi != 0 {
		return TicketCost{}, fmt.Errorf("ticket cost overflows: %d x %d", amount, priceLamports)
	}
	return TicketCost{
		TotalLamports:   total,
		CreatorLamports: percentOf(total, 100-CommissionFeePercent),
		FeeLamports:     percentOf(total, CommissionFeePercent),
	}, nil
}

func percentOf(v, pct uint64) uint64 {
	hi, lo := bits.Mul64(v, pct)
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

func checkAccountHeader(data []byte, accountName string, size int) error {
	if len(data) != size {
		return fmt.Errorf("unexpected %s account size: got %d, want %d", accountName, len(data), size)
	}
	want := AccountDiscriminator(accountName)
	var got [anchorDiscriminatorLength]byte
	copy(got[:], data[:anchorDiscriminatorLength])
	if got != want {
		return fmt.Errorf("unexpected %s discriminator: got %x, want %x", accountName, got, want)
	}
	return nil
}
