// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/woco-foundation/swarmctl/internal/db"
	"github.com/woco-foundation/swarmctl/internal/dilution"
	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatTable FormatType = "table"
)

// ParseFormat accepts "json" or "table".
func ParseFormat(s string) (FormatType, error) {
	switch FormatType(s) {
	case FormatJSON, FormatTable:
		return FormatType(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use json or table)", s)
	}
}

type Formatter struct {
	format FormatType
}

func NewFormatter(format FormatType) *Formatter {
	return &Formatter{format: format}
}

func (f *Formatter) Format(data any) (string, error) {
	switch f.format {
	case FormatJSON:
		return f.formatJSON(data)
	case FormatTable:
		return f.formatTable(data)
	default:
		return "", fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatJSON(data any) (string, error) {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(output), nil
}

func (f *Formatter) formatTable(data any) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	switch v := data.(type) {
	case *dilution.Preview:
		writePreview(w, v)
	case postage.DilutionQuote:
		writeQuote(w, v)
	case *postage.DilutionQuote:
		writeQuote(w, *v)
	case postage.PurchaseQuote:
		writePurchase(w, v)
	case *dilution.CommitResult:
		writeCommit(w, v)
	case *dilution.PurchaseResult:
		writePurchase(w, v.Quote)
		_, _ = fmt.Fprintf(w, "Batch ID:\t%s\n", v.Tx.BatchID)
		_, _ = fmt.Fprintf(w, "Tx Hash:\t%s\n", v.Tx.TxHash)
	case []rpc.Stamp:
		writeStamps(w, v)
	case *rpc.Wallet:
		writeWallet(w, v)
	case *rpc.Health:
		_, _ = fmt.Fprintf(w, "Status:\t%s\n", v.Status)
		_, _ = fmt.Fprintf(w, "Version:\t%s\n", v.Version)
		_, _ = fmt.Fprintf(w, "API Version:\t%s\n", v.APIVersion)
	case *rpc.FeedUpdate:
		_, _ = fmt.Fprintf(w, "Reference:\t%s\n", v.Reference)
		_, _ = fmt.Fprintf(w, "Index:\t%s\n", v.Index)
		_, _ = fmt.Fprintf(w, "Next Index:\t%s\n", v.NextIndex)
	case []db.QuoteRecord:
		writeHistory(w, v)
	default:
		_, _ = fmt.Fprintf(w, "Type:\t%T\n", v)
		_, _ = fmt.Fprintf(w, "Value:\t%v\n", v)
	}

	_ = w.Flush()
	return buf.String(), nil
}

func writePreview(w *tabwriter.Writer, p *dilution.Preview) {
	if p.Stamp != nil && p.Stamp.Label != "" {
		_, _ = fmt.Fprintf(w, "Label:\t%s\n", p.Stamp.Label)
	}
	if p.Price.Available() {
		_, _ = fmt.Fprintf(w, "Price:\t%s per chunk per block\n", p.Price.PricePerChunkPerBlock)
		_, _ = fmt.Fprintf(w, "Current Lifetime:\t%s\n", postage.FormatTTL(p.CurrentLifetimeSeconds))
	}
	writeQuote(w, p.Quote)
}

func writeQuote(w *tabwriter.Writer, q postage.DilutionQuote) {
	if q.BatchID != "" {
		_, _ = fmt.Fprintf(w, "Batch ID:\t%s\n", q.BatchID)
	}
	_, _ = fmt.Fprintf(w, "Depth:\t%d -> %d\n", q.CurrentDepth, q.NewDepth)
	_, _ = fmt.Fprintf(w, "Capacity:\t%s -> %s\n", Capacity(q.CurrentDepth), Capacity(q.NewDepth))
	_, _ = fmt.Fprintf(w, "Mode:\t%s\n", q.Mode)
	if q.PriceUnavailable {
		_, _ = fmt.Fprintf(w, "Status:\tprice unavailable, quote is provisional\n")
		return
	}
	_, _ = fmt.Fprintf(w, "Top-up:\t%s xBZZ\n", q.TopUpAmountDisplay)
	_, _ = fmt.Fprintf(w, "Top-up Per Chunk:\t%s\n", q.TopUpPerChunk)
	_, _ = fmt.Fprintf(w, "Resulting Lifetime:\t%s\n", q.ResultingLifetime)
}

func writePurchase(w *tabwriter.Writer, q postage.PurchaseQuote) {
	_, _ = fmt.Fprintf(w, "Depth:\t%d\n", q.Depth)
	_, _ = fmt.Fprintf(w, "Capacity:\t%s\n", Capacity(q.Depth))
	_, _ = fmt.Fprintf(w, "Lifetime:\t%s\n", postage.FormatTTL(q.TTLSeconds))
	if q.PriceUnavailable {
		_, _ = fmt.Fprintf(w, "Status:\tprice unavailable, quote is provisional\n")
		return
	}
	_, _ = fmt.Fprintf(w, "Amount Per Chunk:\t%s\n", q.AmountPerChunk)
	_, _ = fmt.Fprintf(w, "Cost:\t%s xBZZ\n", q.TotalDisplay)
}

func writeCommit(w *tabwriter.Writer, r *dilution.CommitResult) {
	if r.TopUp != nil {
		_, _ = fmt.Fprintf(w, "Top-up Tx:\t%s\n", r.TopUp.TxHash)
	}
	if r.Dilute != nil {
		_, _ = fmt.Fprintf(w, "Dilute Tx:\t%s\n", r.Dilute.TxHash)
	}
}

func writeStamps(w *tabwriter.Writer, stamps []rpc.Stamp) {
	_, _ = fmt.Fprintf(w, "BATCH ID\tLABEL\tDEPTH\tCAPACITY\tTTL\tUSABLE\tIMMUTABLE\n")
	for _, s := range stamps {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%t\t%t\n",
			s.BatchID, s.Label, s.Depth, Capacity(s.Depth), postage.FormatTTL(s.BatchTTL), s.Usable, s.ImmutableFlag)
	}
}

func writeWallet(w *tabwriter.Writer, wallet *rpc.Wallet) {
	_, _ = fmt.Fprintf(w, "Address:\t%s\n", wallet.WalletAddress)
	_, _ = fmt.Fprintf(w, "Chain ID:\t%d\n", wallet.ChainID)
	_, _ = fmt.Fprintf(w, "BZZ Balance:\t%s\n", postage.FormatBalance(wallet.BZZBalance.Int()))
	_, _ = fmt.Fprintf(w, "Native Balance:\t%s\n", wallet.NativeTokenBalance)
	if wallet.ChequebookContractAddress != "" {
		_, _ = fmt.Fprintf(w, "Chequebook:\t%s\n", wallet.ChequebookContractAddress)
	}
}

func writeHistory(w *tabwriter.Writer, records []db.QuoteRecord) {
	_, _ = fmt.Fprintf(w, "ID\tTIME\tKIND\tBATCH\tDEPTH\tMODE\tAMOUNT\tLIFETIME\tSTATUS\n")
	for _, r := range records {
		status := "quoted"
		switch {
		case r.Committed:
			status = "committed " + r.TxHash
		case r.PriceUnavailable:
			status = "provisional"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d -> %d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Kind, short(r.BatchID),
			r.CurrentDepth, r.NewDepth, r.Mode, r.TopUpAmount, postage.FormatTTL(r.ResultingLifetimeSeconds), status)
	}
}

// Capacity renders the effective volume of a depth, falling back to the
// theoretical capacity outside the known table.
func Capacity(depth uint8) string {
	if mb, ok := postage.EffectiveVolumeMB(depth); ok {
		return humanize.Bytes(uint64(mb * 1e6))
	}
	return humanize.IBytes(postage.TheoreticalCapacityBytes(depth).Uint64())
}

func short(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + ".." + id[len(id)-4:]
}
