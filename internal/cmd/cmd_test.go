// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBatchID = strings.Repeat("c3", 32)

// fakeNode is a Bee API with one batch at depth 17 holding 1000 days of
// balance at price 1000. A price of "0" means the node has none.
type fakeNode struct {
	mu          sync.Mutex
	price       string
	diluteFails bool
	writes      []string
	*httptest.Server
}

func newFakeNode(t *testing.T, price string) *fakeNode {
	t.Helper()
	n := &fakeNode{price: price}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok","version":"2.2.0","apiVersion":"7.2.0"}`)
	})
	mux.HandleFunc("GET /chainstate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"chainTip":100,"block":100,"totalAmount":"10000000","currentPrice":"`+n.price+`"}`)
	})
	stamp := `{"batchID":"` + testBatchID + `","usable":true,"label":"site","depth":17,"amount":"17290000000",
		"bucketDepth":16,"blockNumber":50,"immutableFlag":true,"exists":true,"batchTTL":86400000}`
	mux.HandleFunc("GET /stamps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"stamps":[`+stamp+`]}`)
	})
	mux.HandleFunc("GET /stamps/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != testBatchID {
			writeJSON(w, http.StatusNotFound, `{"code":404,"message":"issuer does not exist"}`)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	})
	mux.HandleFunc("PATCH /stamps/topup/{id}/{amount}", func(w http.ResponseWriter, r *http.Request) {
		n.record("topup " + r.PathValue("amount"))
		writeJSON(w, http.StatusAccepted, `{"batchID":"`+testBatchID+`","txHash":"0x01"}`)
	})
	mux.HandleFunc("PATCH /stamps/dilute/{id}/{depth}", func(w http.ResponseWriter, r *http.Request) {
		n.record("dilute " + r.PathValue("depth"))
		if n.diluteFails {
			writeJSON(w, http.StatusInternalServerError, `{"code":500,"message":"boom"}`)
			return
		}
		writeJSON(w, http.StatusAccepted, `{"batchID":"`+testBatchID+`","txHash":"0x02"}`)
	})
	mux.HandleFunc("GET /wallet", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"bzzBalance":"25000000000000000","nativeTokenBalance":"1","chainID":100,"walletAddress":"0xabc"}`)
	})
	n.Server = httptest.NewServer(mux)
	t.Cleanup(n.Close)
	return n
}

func (n *fakeNode) record(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.writes = append(n.writes, s)
}

func (n *fakeNode) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.writes...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func resetFlags() {
	configFlag, nodeFlag, nodeURLFlag, formatFlag = "", "local", "", "table"
	logJSONFlag, verboseFlag = false, false
	lifetimeFlag, sizeFlag = "preserve", 0
	yesFlag, waitFlag = false, false
	buyDepthFlag, buyTTLFlag, buyLabelFlag, buyImmutableFlag, buyDryRunFlag = 20, "30d", "", true, false
	historyBatchFlag, historyKindFlag, historyModeFlag, historyCommittedFlag, historyLimitFlag = "", "", "", false, 10
	usableOnlyFlag, listenFlag = false, ""
}

// run executes the command tree against node with an isolated config and
// history database.
func run(t *testing.T, node *fakeNode, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	dir := t.TempDir()
	t.Setenv("SWARMCTL_DB", filepath.Join(dir, "history.db"))
	t.Setenv("SWARMCTL_OTLP_ENDPOINT", "")

	full := []string{"--config", filepath.Join(dir, "missing.toml")}
	if node != nil {
		full = append(full, "--node-url", node.URL)
	}
	full = append(full, args...)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(full)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, nil, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestQuoteJSON(t *testing.T) {
	node := newFakeNode(t, "1000")

	out, _, err := run(t, node, "", "quote", testBatchID, "18", "-o", "json")
	require.NoError(t, err)

	var got struct {
		CurrentLifetimeSeconds int64 `json:"currentLifetimeSeconds"`
		Quote                  struct {
			NewDepth                 uint8           `json:"newDepth"`
			TopUpPerChunk            json.RawMessage `json:"topUpPerChunk"`
			ResultingLifetimeSeconds int64           `json:"resultingLifetimeSeconds"`
			PriceUnavailable         bool            `json:"priceUnavailable"`
		} `json:"quote"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(1000*86400), got.CurrentLifetimeSeconds)
	assert.Equal(t, uint8(18), got.Quote.NewDepth)
	assert.Equal(t, "17280000000", string(got.Quote.TopUpPerChunk))
	assert.Equal(t, int64(1000*86400), got.Quote.ResultingLifetimeSeconds)
	assert.False(t, got.Quote.PriceUnavailable)
	assert.Empty(t, node.seen(), "quote must not write")
}

func TestQuoteRejectsBadArgs(t *testing.T) {
	node := newFakeNode(t, "1000")

	_, _, err := run(t, node, "", "quote", "short", "18")
	assert.Error(t, err)

	_, _, err = run(t, node, "", "quote", testBatchID)
	assert.Error(t, err)

	_, _, err = run(t, node, "", "quote", testBatchID, "16")
	assert.Error(t, err)

	_, _, err = run(t, node, "", "quote", testBatchID, "18", "--lifetime", "soon")
	assert.Error(t, err)

	for _, size := range []string{"NaN", "-5", "+Inf", "1e12"} {
		_, _, err = run(t, node, "", "quote", testBatchID, "--size="+size)
		assert.Error(t, err, "size %s", size)
	}
	_, _, err = run(t, node, "", "buy", "--size", "NaN", "--dry-run")
	assert.Error(t, err)
}

func TestQuoteWithoutPriceIsProvisional(t *testing.T) {
	node := newFakeNode(t, "0")

	out, stderr, err := run(t, node, "", "quote", testBatchID, "18")
	require.NoError(t, err)
	assert.Contains(t, stderr, "provisional")
	assert.NotEmpty(t, out)
}

func TestDiluteRefusesWithoutPrice(t *testing.T) {
	node := newFakeNode(t, "0")

	_, _, err := run(t, node, "", "dilute", testBatchID, "18", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to commit")
	assert.Empty(t, node.seen())
}

func TestDiluteCommits(t *testing.T) {
	node := newFakeNode(t, "1000")

	_, _, err := run(t, node, "", "dilute", testBatchID, "18", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"topup 17280000000", "dilute 18"}, node.seen())
}

func TestDiluteReportsPaidTopUpOnFailure(t *testing.T) {
	node := newFakeNode(t, "1000")
	node.diluteFails = true

	out, _, err := run(t, node, "", "dilute", testBatchID, "18", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, out, "0x01", "top-up tx hash must be shown")
	assert.Equal(t, []string{"topup 17280000000", "dilute 18"}, node.seen())
}

func TestDiluteWithoutTopUp(t *testing.T) {
	node := newFakeNode(t, "1000")

	_, _, err := run(t, node, "", "dilute", testBatchID, "18", "--lifetime", "none", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"dilute 18"}, node.seen())
}

func TestDiluteAborts(t *testing.T) {
	node := newFakeNode(t, "1000")

	out, _, err := run(t, node, "n\n", "dilute", testBatchID, "18")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Empty(t, node.seen())
}

func TestBuyDryRun(t *testing.T) {
	node := newFakeNode(t, "1000")

	out, _, err := run(t, node, "", "buy", "--depth", "20", "--ttl", "1w", "--dry-run", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"amountPerChunk": 120960000`)
	assert.Empty(t, node.seen())

	_, _, err = run(t, node, "", "buy", "--ttl", "preserve", "--dry-run")
	assert.Error(t, err)
}

func TestReadCommands(t *testing.T) {
	node := newFakeNode(t, "1000")

	out, _, err := run(t, node, "", "batches")
	require.NoError(t, err)
	assert.Contains(t, out, "site")

	out, _, err = run(t, node, "", "wallet", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "0xabc")

	out, _, err = run(t, node, "", "node")
	require.NoError(t, err)
	assert.Contains(t, out, "is compatible")

	out, _, err = run(t, node, "", "ttl", testBatchID)
	require.NoError(t, err)
	assert.Contains(t, out, "1000d 0h 0m")
}

func TestHistoryEmpty(t *testing.T) {
	out, _, err := run(t, nil, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching quotes found.")
}

func TestFeedTopic(t *testing.T) {
	out, _, err := run(t, nil, "", "feed", "topic", "a")
	require.NoError(t, err)
	assert.Equal(t, "3ac225168df54212a25c1c01fd35bebfea408fdac2e31ddd6f80a4bbf9a5f1cb\n", out)

	_, _, err = run(t, nil, "", "feed", "topic", "")
	assert.Error(t, err)
}

func TestInvalidNodeURL(t *testing.T) {
	_, _, err := run(t, nil, "", "--node-url", "ftp://nope", "batches")
	assert.Error(t, err)
}
