// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import (
	"fmt"
	"math/big"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

// PurchaseQuote is the cost of buying a new batch.
type PurchaseQuote struct {
	Depth            uint8    `json:"depth"`
	TTLSeconds       int64    `json:"ttlSeconds"`
	AmountPerChunk   *big.Int `json:"amountPerChunk"`
	TotalAmount      *big.Int `json:"totalAmount"`
	TotalDisplay     string   `json:"totalDisplay"`
	PriceUnavailable bool     `json:"priceUnavailable"`
}

// PurchaseCost prices a batch of depth funded for ttlSeconds.
func PurchaseCost(price PriceQuote, depth uint8, ttlSeconds, blockTime int64) (PurchaseQuote, error) {
	if depth < MinDepth || depth > MaxDepth {
		return PurchaseQuote{}, fmt.Errorf("%w: %d outside %d..%d", errors.ErrInvalidDepth, depth, MinDepth, MaxDepth)
	}
	if ttlSeconds <= 0 {
		return PurchaseQuote{}, errors.WrapInvalidDuration(ttlSeconds)
	}
	if blockTime <= 0 {
		blockTime = DefaultBlockTimeSeconds
	}

	q := PurchaseQuote{
		Depth:          depth,
		TTLSeconds:     ttlSeconds,
		AmountPerChunk: new(big.Int),
		TotalAmount:    new(big.Int),
	}
	if !price.Available() {
		q.PriceUnavailable = true
	} else {
		q.AmountPerChunk = RequiredAmountPerChunk(price.PricePerChunkPerBlock, ttlSeconds, blockTime)
		q.TotalAmount = new(big.Int).Mul(q.AmountPerChunk, ChunkCount(depth))
	}
	q.TotalDisplay = FormatDisplayUnits(q.TotalAmount)
	return q, nil
}
