// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package dilution

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/woco-foundation/swarmctl/internal/db"
	"github.com/woco-foundation/swarmctl/internal/errors"
	"github.com/woco-foundation/swarmctl/internal/logger"
	"github.com/woco-foundation/swarmctl/internal/postage"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollAttempts = 50
)

// NodeAPI is the part of the node client the service drives.
type NodeAPI interface {
	ChainState(ctx context.Context) (*rpc.ChainState, error)
	Stamp(ctx context.Context, batchID string) (*rpc.Stamp, error)
	TopUp(ctx context.Context, batchID string, amountPerChunk *big.Int) (*rpc.TxResponse, error)
	Dilute(ctx context.Context, batchID string, newDepth uint8) (*rpc.TxResponse, error)
	BuyStamp(ctx context.Context, amountPerChunk *big.Int, depth uint8, label string, immutable bool) (*rpc.TxResponse, error)
}

// History records quotes. *db.Store satisfies it.
type History interface {
	SaveQuote(ctx context.Context, rec db.QuoteRecord) (int64, error)
	MarkCommitted(ctx context.Context, id int64, txHash string) error
}

type Service struct {
	node      NodeAPI
	history   History
	blockTime int64
}

// NewService builds a service. history may be nil.
func NewService(node NodeAPI, history History, blockTimeSeconds int64) *Service {
	if blockTimeSeconds <= 0 {
		blockTimeSeconds = postage.DefaultBlockTimeSeconds
	}
	return &Service{node: node, history: history, blockTime: blockTimeSeconds}
}

// Preview is a quote for one batch together with the state it was computed from.
type Preview struct {
	Stamp                  *rpc.Stamp            `json:"stamp"`
	Batch                  postage.StorageBatch  `json:"-"`
	Price                  postage.PriceQuote    `json:"-"`
	CurrentLifetimeSeconds int64                 `json:"currentLifetimeSeconds"`
	Quote                  postage.DilutionQuote `json:"quote"`
	RecordID               int64                 `json:"recordID,omitempty"`
}

// CommitResult holds the transactions a commit sent. TopUp is nil when no
// payment was needed.
type CommitResult struct {
	TopUp  *rpc.TxResponse `json:"topUp,omitempty"`
	Dilute *rpc.TxResponse `json:"dilute,omitempty"`
}

// Preview quotes raising batchID to newDepth. A chain state failure does not
// fail the preview; the quote comes back flagged PriceUnavailable.
func (s *Service) Preview(ctx context.Context, batchID string, newDepth uint8, mode postage.LifetimeMode) (*Preview, error) {
	stamp, err := s.node.Stamp(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var price postage.PriceQuote
	cs, err := s.node.ChainState(ctx)
	if err != nil {
		logger.Logger.Warn("Price unavailable, quote is provisional", "batch", batchID, "error", err)
		cs = nil
	} else {
		price = cs.Price()
		if !price.Available() {
			logger.Logger.Warn("Node reported no usable price, quote is provisional", "batch", batchID, "price", cs.CurrentPrice.String())
		}
	}

	batch := stamp.StorageBatch(cs)
	quote, err := postage.Quote(batch, newDepth, mode, price, s.blockTime)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Stamp:                  stamp,
		Batch:                  batch,
		Price:                  price,
		CurrentLifetimeSeconds: batch.RemainingLifetime(price, s.blockTime),
		Quote:                  quote,
	}
	p.RecordID = s.record(ctx, db.QuoteRecord{
		Kind:                     db.KindDilution,
		BatchID:                  quote.BatchID,
		CurrentDepth:             quote.CurrentDepth,
		NewDepth:                 quote.NewDepth,
		Mode:                     quote.Mode,
		TopUpAmount:              quote.TopUpAmount.String(),
		TopUpPerChunk:            quote.TopUpPerChunk.String(),
		ResultingLifetimeSeconds: quote.ResultingLifetimeSeconds,
		PriceUnavailable:         quote.PriceUnavailable,
	})
	logger.Logger.Debug("Dilution quote", "batch", quote.BatchID, "from", quote.CurrentDepth, "to", quote.NewDepth,
		"mode", quote.Mode, "top_up", quote.TopUpAmount.String(), "lifetime", quote.ResultingLifetimeSeconds)
	return p, nil
}

// Commit sends the top-up (when one is due) and then the dilution. It
// refuses quotes that were priced without a price or leave no lifetime.
// When the dilution fails after a top-up was paid, the partial result is
// returned with the error and the top-up is recorded in history.
func (s *Service) Commit(ctx context.Context, p *Preview) (*CommitResult, error) {
	if p == nil {
		return nil, errors.WrapQuoteNotCommittable("no quote")
	}
	q := p.Quote
	if err := q.Committable(); err != nil {
		return nil, err
	}
	if q.NewDepth == q.CurrentDepth && q.TopUpPerChunk.Sign() == 0 {
		return nil, errors.WrapQuoteNotCommittable("nothing to do")
	}

	result := &CommitResult{}
	if q.TopUpPerChunk.Sign() > 0 {
		tx, err := s.node.TopUp(ctx, q.BatchID, q.TopUpPerChunk)
		if err != nil {
			return nil, fmt.Errorf("top up %s: %w", q.BatchID, err)
		}
		logger.Logger.Info("Batch topped up", "batch", q.BatchID, "per_chunk", q.TopUpPerChunk.String(), "tx", tx.TxHash)
		result.TopUp = tx
	}

	if q.NewDepth > q.CurrentDepth {
		tx, err := s.node.Dilute(ctx, q.BatchID, q.NewDepth)
		if err != nil {
			if result.TopUp != nil {
				logger.Logger.Error("Dilution failed after top-up", "batch", q.BatchID, "top_up_tx", result.TopUp.TxHash, "error", err)
				s.markCommitted(ctx, p.RecordID, result.TopUp.TxHash)
			}
			return result, fmt.Errorf("dilute %s to depth %d: %w", q.BatchID, q.NewDepth, err)
		}
		logger.Logger.Info("Batch diluted", "batch", q.BatchID, "depth", q.NewDepth, "tx", tx.TxHash)
		result.Dilute = tx
	}

	s.markCommitted(ctx, p.RecordID, result.lastTx())
	return result, nil
}

func (r *CommitResult) lastTx() string {
	switch {
	case r.Dilute != nil:
		return r.Dilute.TxHash
	case r.TopUp != nil:
		return r.TopUp.TxHash
	default:
		return ""
	}
}

// WaitUsable polls batchID until the node reports it usable. tick, if set,
// is called after every unsuccessful attempt with the attempt number.
func (s *Service) WaitUsable(ctx context.Context, batchID string, interval time.Duration, attempts int, tick func(attempt int)) (*rpc.Stamp, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		stamp, err := s.node.Stamp(ctx, batchID)
		switch {
		case err == nil && stamp.Usable:
			return stamp, nil
		case err != nil && !errors.Is(err, errors.ErrBatchNotFound):
			logger.Logger.Debug("Usability poll failed", "batch", batchID, "attempt", attempt, "error", err)
		}
		if tick != nil {
			tick(attempt)
		}
		timer.Reset(interval)
	}
	return nil, errors.WrapBatchNotUsable(batchID, attempts)
}

// PurchaseResult is a bought batch and what it cost.
type PurchaseResult struct {
	Quote postage.PurchaseQuote `json:"quote"`
	Tx    *rpc.TxResponse       `json:"tx"`
}

// QuotePurchase prices a new batch. Without a price the quote is flagged.
func (s *Service) QuotePurchase(ctx context.Context, depth uint8, ttlSeconds int64) (postage.PurchaseQuote, error) {
	var price postage.PriceQuote
	if cs, err := s.node.ChainState(ctx); err != nil {
		logger.Logger.Warn("Price unavailable, purchase quote is provisional", "error", err)
	} else {
		price = cs.Price()
	}
	return postage.PurchaseCost(price, depth, ttlSeconds, s.blockTime)
}

// Purchase prices and buys a new batch. It refuses to buy without a price.
func (s *Service) Purchase(ctx context.Context, depth uint8, ttlSeconds int64, label string, immutable bool) (*PurchaseResult, error) {
	quote, err := s.QuotePurchase(ctx, depth, ttlSeconds)
	if err != nil {
		return nil, err
	}
	if quote.PriceUnavailable {
		return nil, errors.WrapPriceUnavailable(fmt.Errorf("cannot buy depth %d without a price", depth))
	}

	id := s.record(ctx, db.QuoteRecord{
		Kind:                     db.KindPurchase,
		NewDepth:                 depth,
		Mode:                     strconv.FormatInt(ttlSeconds, 10) + "s",
		TopUpAmount:              quote.TotalAmount.String(),
		TopUpPerChunk:            quote.AmountPerChunk.String(),
		ResultingLifetimeSeconds: ttlSeconds,
	})

	tx, err := s.node.BuyStamp(ctx, quote.AmountPerChunk, depth, label, immutable)
	if err != nil {
		return nil, fmt.Errorf("buy batch: %w", err)
	}
	logger.Logger.Info("Batch purchased", "batch", tx.BatchID, "depth", depth, "per_chunk", quote.AmountPerChunk.String(), "tx", tx.TxHash)
	s.markCommitted(ctx, id, tx.TxHash)
	return &PurchaseResult{Quote: quote, Tx: tx}, nil
}

func (s *Service) record(ctx context.Context, rec db.QuoteRecord) int64 {
	if s.history == nil {
		return 0
	}
	id, err := s.history.SaveQuote(ctx, rec)
	if err != nil {
		logger.Logger.Warn("Failed to record quote", "kind", rec.Kind, "batch", rec.BatchID, "error", err)
		return 0
	}
	return id
}

func (s *Service) markCommitted(ctx context.Context, id int64, txHash string) {
	if s.history == nil || id == 0 {
		return
	}
	if err := s.history.MarkCommitted(ctx, id, txHash); err != nil {
		logger.Logger.Warn("Failed to mark quote committed", "id", id, "error", err)
	}
}
