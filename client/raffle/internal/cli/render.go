package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/nftraffle/raffle/smartcontract/sdk/go/raffle"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type globalView struct {
	Address    string `json:"address" yaml:"address"`
	SuperAdmin string `json:"super_admin" yaml:"super_admin"`
	Registry   string `json:"collection_registry" yaml:"collection_registry"`
}

type collectionsView struct {
	Address     string   `json:"address" yaml:"address"`
	Count       uint64   `json:"count" yaml:"count"`
	Collections []string `json:"collections" yaml:"collections"`
}

type raffleView struct {
	Address          string `json:"address" yaml:"address"`
	Creator          string `json:"creator" yaml:"creator"`
	NftMint          string `json:"nft_mint" yaml:"nft_mint"`
	Status           string `json:"status" yaml:"status"`
	TicketPriceSOL   string `json:"ticket_price_sol" yaml:"ticket_price_sol"`
	TicketsSold      uint64 `json:"tickets_sold" yaml:"tickets_sold"`
	MaxEntrants      uint64 `json:"max_entrants" yaml:"max_entrants"`
	TicketsRemaining uint64 `json:"tickets_remaining" yaml:"tickets_remaining"`
	UniqueEntrants   uint64 `json:"unique_entrants" yaml:"unique_entrants"`
	Start            string `json:"start" yaml:"start"`
	End              string `json:"end" yaml:"end"`
	EndsIn           string `json:"ends_in" yaml:"ends_in"`
	Winner           string `json:"winner,omitempty" yaml:"winner,omitempty"`
}

func newRaffleView(address solana.PublicKey, r *raffle.Raffle, now time.Time) raffleView {
	end := time.Unix(r.EndTimestamp, 0).UTC()
	v := raffleView{
		Address:          address.String(),
		Creator:          r.Creator.String(),
		NftMint:          r.NftMint.String(),
		Status:           string(r.Status(now)),
		TicketPriceSOL:   formatSOL(r.TicketPriceLamports),
		TicketsSold:      r.Count,
		MaxEntrants:      r.MaxEntrants,
		TicketsRemaining: r.TicketsRemaining(),
		UniqueEntrants:   r.UniqueEntrants(),
		Start:            time.Unix(r.StartTimestamp, 0).UTC().Format(time.RFC3339),
		End:              end.Format(time.RFC3339),
		EndsIn:           humanize.RelTime(end, now, "ago", "from now"),
	}
	if r.HasWinner() {
		v.Winner = r.Winner.String()
	}
	return v
}

// render writes v as JSON or YAML, or as the table that fill builds.
func render(w io.Writer, format string, v any, fill func(*tablewriter.Table)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case outputTable, "":
		tw := newTable(w)
		fill(tw)
		tw.Render()
		return nil
	default:
		return fmt.Errorf("unsupported output format %q, must be one of %s, %s, %s", format, outputTable, outputJSON, outputYAML)
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetRowLine(false)
	return table
}

func renderGlobal(w io.Writer, format string, v globalView) error {
	return render(w, format, v, func(t *tablewriter.Table) {
		t.SetHeader([]string{"field", "value"})
		t.Append([]string{"address", v.Address})
		t.Append([]string{"super_admin", v.SuperAdmin})
		t.Append([]string{"collection_registry", v.Registry})
	})
}

func renderCollections(w io.Writer, format string, v collectionsView) error {
	return render(w, format, v, func(t *tablewriter.Table) {
		t.SetHeader([]string{"#", "collection"})
		for i, c := range v.Collections {
			t.Append([]string{strconv.Itoa(i), c})
		}
	})
}

func renderRaffle(w io.Writer, format string, v raffleView) error {
	return render(w, format, v, func(t *tablewriter.Table) {
		t.SetHeader([]string{"field", "value"})
		t.Append([]string{"address", v.Address})
		t.Append([]string{"creator", v.Creator})
		t.Append([]string{"nft_mint", v.NftMint})
		t.Append([]string{"status", v.Status})
		t.Append([]string{"ticket_price_sol", v.TicketPriceSOL})
		t.Append([]string{"tickets_sold", fmt.Sprintf("%d / %d", v.TicketsSold, v.MaxEntrants)})
		t.Append([]string{"tickets_remaining", strconv.FormatUint(v.TicketsRemaining, 10)})
		t.Append([]string{"unique_entrants", strconv.FormatUint(v.UniqueEntrants, 10)})
		t.Append([]string{"start", v.Start})
		t.Append([]string{"end", fmt.Sprintf("%s (%s)", v.End, v.EndsIn)})
		if v.Winner != "" {
			t.Append([]string{"winner", v.Winner})
		}
	})
}

func renderRaffleList(w io.Writer, format string, views []raffleView) error {
	return render(w, format, views, func(t *tablewriter.Table) {
		t.SetHeader([]string{"address", "status", "sold", "max", "price_sol", "end"})
		for _, v := range views {
			t.Append([]string{
				v.Address,
				v.Status,
				strconv.FormatUint(v.TicketsSold, 10),
				strconv.FormatUint(v.MaxEntrants, 10),
				v.TicketPriceSOL,
				v.End,
			})
		}
	})
}
