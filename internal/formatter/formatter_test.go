// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package formatter

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woco-foundation/swarmctl/internal/db"
	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

func sampleQuote(t *testing.T) postage.DilutionQuote {
	t.Helper()
	batch := postage.StorageBatch{ID: "b1", Depth: 17, AmountPerChunk: big.NewInt(10_000_000)}
	q, err := postage.Quote(batch, 18, postage.Explicit(31_536_000), postage.PriceQuote{PricePerChunkPerBlock: big.NewInt(1000)}, 5)
	require.NoError(t, err)
	return q
}

func TestFormatQuoteTable(t *testing.T) {
	out, err := NewFormatter(FormatTable).Format(sampleQuote(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Batch ID:")
	assert.Contains(t, out, "17 -> 18")
	assert.Contains(t, out, "0.16520839 xBZZ")
	assert.Contains(t, out, "365d 0h 0m")
	assert.Contains(t, out, "42 kB -> 6.2 MB")
}

func TestFormatProvisionalQuote(t *testing.T) {
	q, err := postage.Quote(postage.StorageBatch{Depth: 20}, 21, postage.Preserve(), postage.PriceQuote{}, 5)
	require.NoError(t, err)

	out, err := NewFormatter(FormatTable).Format(&q)
	require.NoError(t, err)
	assert.Contains(t, out, "provisional")
	assert.NotContains(t, out, "xBZZ")
}

func TestFormatQuoteJSON(t *testing.T) {
	out, err := NewFormatter(FormatJSON).Format(sampleQuote(t))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "0.16520839", decoded["topUpAmountDisplay"])
	assert.Equal(t, false, decoded["priceUnavailable"])
}

func TestFormatStamps(t *testing.T) {
	stamps := []rpc.Stamp{
		{BatchID: "aaaa", Label: "site", Depth: 20, BatchTTL: 86400, Usable: true},
		{BatchID: "bbbb", Depth: 22, BatchTTL: 3600},
	}
	out, err := NewFormatter(FormatTable).Format(stamps)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "BATCH ID"))
	assert.Contains(t, lines[1], "639 MB")
	assert.Contains(t, lines[1], "1d 0h 0m")
	assert.Contains(t, lines[2], "0d 1h 0m")
}

func TestFormatWallet(t *testing.T) {
	w := &rpc.Wallet{BZZBalance: rpc.NewAmount(big.NewInt(25_000_000_000_000_000)), ChainID: 100, WalletAddress: "0xabc"}
	out, err := NewFormatter(FormatTable).Format(w)
	require.NoError(t, err)
	assert.Contains(t, out, "2.5000 xBZZ")
	assert.Contains(t, out, "100")
}

func TestFormatHistory(t *testing.T) {
	records := []db.QuoteRecord{
		{ID: 2, Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), Kind: db.KindDilution, BatchID: strings.Repeat("ab", 32),
			CurrentDepth: 20, NewDepth: 21, Mode: "preserve", TopUpAmount: "10", ResultingLifetimeSeconds: 86400, Committed: true, TxHash: "0x1"},
		{ID: 1, Kind: db.KindDilution, BatchID: "cd", Mode: "none", PriceUnavailable: true},
	}
	out, err := NewFormatter(FormatTable).Format(records)
	require.NoError(t, err)
	assert.Contains(t, out, "2025-03-01 12:00:00")
	assert.Contains(t, out, "ababab..abab")
	assert.Contains(t, out, "committed 0x1")
	assert.Contains(t, out, "provisional")
}

func TestFormatUnknownType(t *testing.T) {
	out, err := NewFormatter(FormatTable).Format(42)
	require.NoError(t, err)
	assert.Contains(t, out, "int")

	_, err = NewFormatter("yaml").Format(42)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, "2.4 GB", Capacity(21))
	assert.Equal(t, "128 TB", Capacity(35))
	assert.Equal(t, "64 MiB", Capacity(14))
}
