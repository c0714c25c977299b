// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package dilution

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woco-foundation/swarmctl/internal/db"
	"github.com/woco-foundation/swarmctl/internal/errors"
	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

var batchID = strings.Repeat("ab", 32)

type fakeNode struct {
	stamp       *rpc.Stamp
	chainState  *rpc.ChainState
	chainErr    error
	usableAfter int
	stampCalls  int
	calls       []string
	topUpErr    error
	diluteErr   error
}

func (f *fakeNode) ChainState(ctx context.Context) (*rpc.ChainState, error) {
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return f.chainState, nil
}

func (f *fakeNode) Stamp(ctx context.Context, id string) (*rpc.Stamp, error) {
	f.stampCalls++
	if f.stamp == nil || id != f.stamp.BatchID {
		return nil, errors.WrapBatchNotFound(id)
	}
	s := *f.stamp
	s.Usable = f.stampCalls > f.usableAfter
	return &s, nil
}

func (f *fakeNode) TopUp(ctx context.Context, id string, amount *big.Int) (*rpc.TxResponse, error) {
	f.calls = append(f.calls, "topup "+amount.String())
	if f.topUpErr != nil {
		return nil, f.topUpErr
	}
	return &rpc.TxResponse{BatchID: id, TxHash: "0xtopup"}, nil
}

func (f *fakeNode) Dilute(ctx context.Context, id string, depth uint8) (*rpc.TxResponse, error) {
	f.calls = append(f.calls, fmt.Sprintf("dilute %d", depth))
	if f.diluteErr != nil {
		return nil, f.diluteErr
	}
	return &rpc.TxResponse{BatchID: id, TxHash: "0xdilute"}, nil
}

func (f *fakeNode) BuyStamp(ctx context.Context, amount *big.Int, depth uint8, label string, immutable bool) (*rpc.TxResponse, error) {
	f.calls = append(f.calls, fmt.Sprintf("buy %s %d %s %t", amount, depth, label, immutable))
	return &rpc.TxResponse{BatchID: batchID, TxHash: "0xbuy"}, nil
}

type memHistory struct {
	records   []db.QuoteRecord
	committed map[int64]string
}

func (m *memHistory) SaveQuote(ctx context.Context, rec db.QuoteRecord) (int64, error) {
	m.records = append(m.records, rec)
	return int64(len(m.records)), nil
}

func (m *memHistory) MarkCommitted(ctx context.Context, id int64, txHash string) error {
	if m.committed == nil {
		m.committed = map[int64]string{}
	}
	m.committed[id] = txHash
	return nil
}

// newNode returns a depth-20 batch with 1000 days of balance left per chunk
// at price 1000 and five-second blocks.
func newNode() *fakeNode {
	return &fakeNode{
		stamp: &rpc.Stamp{
			BatchID: batchID,
			Depth:   20,
			Amount:  rpc.NewAmount(big.NewInt(17280000000 + 500)),
			Exists:  true,
		},
		chainState: &rpc.ChainState{
			CurrentPrice: rpc.NewAmount(big.NewInt(1000)),
			TotalAmount:  rpc.NewAmount(big.NewInt(500)),
		},
	}
}

func TestPreviewAndCommitPreserve(t *testing.T) {
	node := newNode()
	history := &memHistory{}
	svc := NewService(node, history, 5)
	ctx := context.Background()

	p, err := svc.Preview(ctx, batchID, 21, postage.Preserve())
	require.NoError(t, err)
	assert.Equal(t, int64(1000*86400), p.CurrentLifetimeSeconds)
	assert.Equal(t, "17280000000", p.Batch.AmountPerChunk.String())
	assert.False(t, p.Quote.PriceUnavailable)
	assert.Equal(t, int64(1000*86400), p.Quote.ResultingLifetimeSeconds)
	// Preserving the lifetime at double the chunks costs one more balance per chunk.
	assert.Equal(t, "17280000000", p.Quote.TopUpPerChunk.String())
	require.Len(t, history.records, 1)
	assert.Equal(t, db.KindDilution, history.records[0].Kind)

	res, err := svc.Commit(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"topup 17280000000", "dilute 21"}, node.calls)
	assert.Equal(t, "0xtopup", res.TopUp.TxHash)
	assert.Equal(t, "0xdilute", res.Dilute.TxHash)
	assert.Equal(t, "0xdilute", history.committed[p.RecordID])
}

func TestCommitNoTopUpOnlyDilutes(t *testing.T) {
	node := newNode()
	svc := NewService(node, nil, 5)

	p, err := svc.Preview(context.Background(), batchID, 21, postage.NoTopUp())
	require.NoError(t, err)
	assert.Equal(t, int64(500*86400), p.Quote.ResultingLifetimeSeconds)

	res, err := svc.Commit(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, res.TopUp)
	assert.Equal(t, []string{"dilute 21"}, node.calls)
}

func TestPreviewDegradesWithoutPrice(t *testing.T) {
	node := newNode()
	node.chainErr = errors.WrapNodeConnectionFailed(fmt.Errorf("connection refused"))
	history := &memHistory{}
	svc := NewService(node, history, 5)

	p, err := svc.Preview(context.Background(), batchID, 22, postage.Explicit(86400*30))
	require.NoError(t, err)
	assert.True(t, p.Quote.PriceUnavailable)
	assert.Equal(t, 0, p.Quote.TopUpAmount.Sign())
	require.Len(t, history.records, 1)
	assert.True(t, history.records[0].PriceUnavailable)

	_, err = svc.Commit(context.Background(), p)
	assert.ErrorIs(t, err, errors.ErrPriceUnavailable)
	assert.Empty(t, node.calls, "nothing may be paid on a provisional quote")
}

func TestPreviewZeroPriceIsProvisional(t *testing.T) {
	node := newNode()
	node.chainState.CurrentPrice = rpc.NewAmount(big.NewInt(0))
	svc := NewService(node, nil, 5)

	p, err := svc.Preview(context.Background(), batchID, 21, postage.Preserve())
	require.NoError(t, err)
	assert.True(t, p.Quote.PriceUnavailable)
}

func TestPreviewErrors(t *testing.T) {
	svc := NewService(newNode(), nil, 5)
	ctx := context.Background()

	_, err := svc.Preview(ctx, strings.Repeat("cd", 32), 21, postage.Preserve())
	assert.ErrorIs(t, err, errors.ErrBatchNotFound)

	_, err = svc.Preview(ctx, batchID, 19, postage.Preserve())
	assert.ErrorIs(t, err, errors.ErrInvalidDepth)

	_, err = svc.Preview(ctx, batchID, 21, postage.Explicit(0))
	assert.ErrorIs(t, err, errors.ErrInvalidDuration)
}

func TestCommitRefusesEmptyWork(t *testing.T) {
	node := newNode()
	svc := NewService(node, nil, 5)

	p, err := svc.Preview(context.Background(), batchID, 20, postage.NoTopUp())
	require.NoError(t, err)
	_, err = svc.Commit(context.Background(), p)
	assert.ErrorIs(t, err, errors.ErrQuoteNotCommittable)

	_, err = svc.Commit(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrQuoteNotCommittable)
	assert.Empty(t, node.calls)
}

func TestCommitStopsWhenTopUpFails(t *testing.T) {
	node := newNode()
	node.topUpErr = &rpc.ResponseError{Status: 402, Message: "insufficient funds"}
	svc := NewService(node, nil, 5)

	p, err := svc.Preview(context.Background(), batchID, 21, postage.Preserve())
	require.NoError(t, err)
	_, err = svc.Commit(context.Background(), p)
	assert.ErrorIs(t, err, errors.ErrNodeRequestFailed)
	assert.Equal(t, []string{"topup 17280000000"}, node.calls, "no dilution after a failed top-up")
}

func TestCommitRecordsTopUpWhenDiluteFails(t *testing.T) {
	node := newNode()
	node.diluteErr = &rpc.ResponseError{Status: 500, Message: "boom"}
	history := &memHistory{}
	svc := NewService(node, history, 5)

	p, err := svc.Preview(context.Background(), batchID, 21, postage.Preserve())
	require.NoError(t, err)
	res, err := svc.Commit(context.Background(), p)
	assert.ErrorIs(t, err, errors.ErrNodeRequestFailed)
	require.NotNil(t, res)
	require.NotNil(t, res.TopUp)
	assert.Equal(t, "0xtopup", res.TopUp.TxHash)
	assert.Nil(t, res.Dilute)
	assert.Equal(t, []string{"topup 17280000000", "dilute 21"}, node.calls)
	assert.Equal(t, "0xtopup", history.committed[p.RecordID])
}

func TestWaitUsable(t *testing.T) {
	node := newNode()
	node.usableAfter = 3
	svc := NewService(node, nil, 5)

	var ticks []int
	stamp, err := svc.WaitUsable(context.Background(), batchID, time.Millisecond, 10, func(n int) { ticks = append(ticks, n) })
	require.NoError(t, err)
	assert.True(t, stamp.Usable)
	assert.Equal(t, []int{1, 2, 3}, ticks)
}

func TestWaitUsableGivesUp(t *testing.T) {
	node := newNode()
	node.usableAfter = 100
	svc := NewService(node, nil, 5)

	_, err := svc.WaitUsable(context.Background(), batchID, time.Millisecond, 4, nil)
	assert.ErrorIs(t, err, errors.ErrBatchNotUsable)
	assert.Equal(t, 4, node.stampCalls)
}

func TestWaitUsableHonoursContext(t *testing.T) {
	node := newNode()
	node.usableAfter = 100
	svc := NewService(node, nil, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.WaitUsable(ctx, batchID, time.Hour, 50, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPurchase(t *testing.T) {
	node := newNode()
	history := &memHistory{}
	svc := NewService(node, history, 5)

	res, err := svc.Purchase(context.Background(), 20, 7*86400, "site", true)
	require.NoError(t, err)
	assert.Equal(t, "120960000", res.Quote.AmountPerChunk.String())
	assert.Equal(t, []string{"buy 120960000 20 site true"}, node.calls)
	require.Len(t, history.records, 1)
	assert.Equal(t, db.KindPurchase, history.records[0].Kind)
	assert.Equal(t, "0xbuy", history.committed[1])
}

func TestPurchaseRefusesWithoutPrice(t *testing.T) {
	node := newNode()
	node.chainErr = fmt.Errorf("down")
	svc := NewService(node, nil, 5)

	q, err := svc.QuotePurchase(context.Background(), 20, 86400)
	require.NoError(t, err)
	assert.True(t, q.PriceUnavailable)

	_, err = svc.Purchase(context.Background(), 20, 86400, "", false)
	assert.ErrorIs(t, err, errors.ErrPriceUnavailable)
	assert.Empty(t, node.calls)
}
