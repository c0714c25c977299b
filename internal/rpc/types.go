// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"math/big"

	"github.com/woco-foundation/swarmctl/internal/postage"
)

// Health is the node's /health response.
type Health struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}

// ChainState is the node's view of the postage contract.
type ChainState struct {
	ChainTip     uint64 `json:"chainTip"`
	Block        uint64 `json:"block"`
	TotalAmount  Amount `json:"totalAmount"`
	CurrentPrice Amount `json:"currentPrice"`
}

// Price returns the chain state's price as a quote.
func (cs *ChainState) Price() postage.PriceQuote {
	if cs == nil || !cs.CurrentPrice.IsSet() {
		return postage.PriceQuote{}
	}
	return postage.PriceQuote{PricePerChunkPerBlock: cs.CurrentPrice.Int()}
}

// Stamp is one postage batch as the node reports it.
type Stamp struct {
	BatchID       string `json:"batchID"`
	Utilization   uint32 `json:"utilization"`
	Usable        bool   `json:"usable"`
	Label         string `json:"label"`
	Depth         uint8  `json:"depth"`
	Amount        Amount `json:"amount"`
	BucketDepth   uint8  `json:"bucketDepth"`
	BlockNumber   uint64 `json:"blockNumber"`
	ImmutableFlag bool   `json:"immutableFlag"`
	Exists        bool   `json:"exists"`
	BatchTTL      int64  `json:"batchTTL"`
}

// StorageBatch converts the stamp into calculator input. Amount is the
// batch's normalised value, so the per-chunk balance left is that value less
// the cumulative payout in cs.
func (s Stamp) StorageBatch(cs *ChainState) postage.StorageBatch {
	remaining := s.Amount.Int()
	if cs != nil {
		remaining.Sub(remaining, cs.TotalAmount.Int())
	}
	if remaining.Sign() < 0 {
		remaining = new(big.Int)
	}
	return postage.StorageBatch{
		ID:             s.BatchID,
		Depth:          s.Depth,
		AmountPerChunk: remaining,
	}
}

type stampsResponse struct {
	Stamps []Stamp `json:"stamps"`
}

// Wallet is the node's wallet balance.
type Wallet struct {
	BZZBalance                Amount `json:"bzzBalance"`
	NativeTokenBalance        Amount `json:"nativeTokenBalance"`
	ChainID                   int64  `json:"chainID"`
	ChequebookContractAddress string `json:"chequebookContractAddress"`
	WalletAddress             string `json:"walletAddress"`
}

// TxResponse is returned by every postage write.
type TxResponse struct {
	BatchID string `json:"batchID"`
	TxHash  string `json:"txHash"`
}

// FeedUpdate is the latest update of a feed.
type FeedUpdate struct {
	Reference string `json:"reference"`
	Index     string `json:"index,omitempty"`
	NextIndex string `json:"nextIndex,omitempty"`
}
