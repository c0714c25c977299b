// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import (
	"fmt"
	"math/big"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

// StorageBatch is the part of a postage batch the calculator needs.
type StorageBatch struct {
	ID    string
	Depth uint8
	// AmountPerChunk is the balance left on each chunk.
	AmountPerChunk *big.Int
}

// RemainingLifetime is the batch's lifetime at its current depth.
func (b StorageBatch) RemainingLifetime(price PriceQuote, blockTime int64) int64 {
	return RemainingLifetime(b.AmountPerChunk, price.PricePerChunkPerBlock, blockTime)
}

// PriceQuote is the network price at the time of a calculation.
type PriceQuote struct {
	PricePerChunkPerBlock *big.Int
}

// Available reports whether the quote holds a usable price.
func (p PriceQuote) Available() bool {
	return positive(p.PricePerChunkPerBlock)
}

// DilutionQuote is the cost and outcome of increasing a batch's depth.
type DilutionQuote struct {
	BatchID                  string   `json:"batchID,omitempty"`
	CurrentDepth             uint8    `json:"currentDepth"`
	NewDepth                 uint8    `json:"newDepth"`
	Mode                     string   `json:"mode"`
	RequiredAmountPerChunk   *big.Int `json:"requiredAmountPerChunk"`
	TopUpAmount              *big.Int `json:"topUpAmount"`
	TopUpPerChunk            *big.Int `json:"topUpPerChunk"`
	TopUpAmountDisplay       string   `json:"topUpAmountDisplay"`
	ResultingLifetimeSeconds int64    `json:"resultingLifetimeSeconds"`
	ResultingLifetime        string   `json:"resultingLifetime"`
	PriceUnavailable         bool     `json:"priceUnavailable"`
}

// Committable returns nil when the quote may drive a top-up or dilution.
// A quote computed without a price, or one that leaves the batch with no
// lifetime, must never reach a payment step.
func (q DilutionQuote) Committable() error {
	if q.PriceUnavailable {
		return errors.WrapPriceUnavailable(fmt.Errorf("quote for %s is provisional", q.label()))
	}
	if q.ResultingLifetimeSeconds <= 0 {
		return errors.WrapQuoteNotCommittable("resulting lifetime is zero")
	}
	return nil
}

func (q DilutionQuote) label() string {
	if q.BatchID == "" {
		return "batch"
	}
	return q.BatchID
}

// Quote prices moving batch to newDepth under mode. It never fails on a
// missing price: the result then has PriceUnavailable set and zero amounts.
//
// In preserve and explicit modes ResultingLifetimeSeconds is the desired
// lifetime, except that it is never below one day (the minimum the required
// amount is clamped to) and, when no top-up is due, never below what the
// existing balance lasts at newDepth.
func Quote(batch StorageBatch, newDepth uint8, mode LifetimeMode, price PriceQuote, blockTime int64) (DilutionQuote, error) {
	if newDepth < batch.Depth {
		return DilutionQuote{}, errors.WrapInvalidDepth(batch.Depth, newDepth)
	}
	if err := mode.Validate(); err != nil {
		return DilutionQuote{}, err
	}
	if blockTime <= 0 {
		blockTime = DefaultBlockTimeSeconds
	}

	q := DilutionQuote{
		BatchID:                batch.ID,
		CurrentDepth:           batch.Depth,
		NewDepth:               newDepth,
		Mode:                   mode.String(),
		RequiredAmountPerChunk: new(big.Int),
		TopUpAmount:            new(big.Int),
		TopUpPerChunk:          new(big.Int),
	}
	if !price.Available() {
		q.PriceUnavailable = true
		return q.finish(), nil
	}

	p := price.PricePerChunkPerBlock
	existing := orZero(batch.AmountPerChunk)
	diluted := dilutedLifetime(existing, p, blockTime, batch.Depth, newDepth)

	var desired int64
	switch mode.Kind {
	case ModeNone:
		q.ResultingLifetimeSeconds = diluted
		return q.finish(), nil
	case ModePreserve:
		desired = RemainingLifetime(existing, p, blockTime)
	default:
		desired = mode.Seconds
	}

	required := RequiredAmountPerChunk(p, desired, blockTime)
	topUp, err := TopUpAmount(batch.Depth, newDepth, existing, required)
	if err != nil {
		return DilutionQuote{}, err
	}

	resulting := max(desired, BlocksPerDay(blockTime)*blockTime)
	if topUp.Sign() == 0 {
		resulting = max(resulting, diluted)
	}

	q.RequiredAmountPerChunk = required
	q.TopUpAmount = topUp
	q.TopUpPerChunk = TopUpPerChunk(topUp, batch.Depth)
	q.ResultingLifetimeSeconds = resulting
	return q.finish(), nil
}

func (q DilutionQuote) finish() DilutionQuote {
	q.TopUpAmountDisplay = FormatDisplayUnits(q.TopUpAmount)
	q.ResultingLifetime = FormatTTL(q.ResultingLifetimeSeconds)
	return q
}
