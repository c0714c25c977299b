// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import (
	"math"
	"math/big"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

const (
	// DefaultBlockTimeSeconds is the block time of the chain carrying the
	// postage contract.
	DefaultBlockTimeSeconds int64 = 5

	SecondsPerDay int64 = 86400
)

var maxSeconds = big.NewInt(math.MaxInt64)

// BlocksPerDay is the number of whole blocks produced in a day.
func BlocksPerDay(blockTime int64) int64 {
	if blockTime <= 0 {
		return 0
	}
	return SecondsPerDay / blockTime
}

// RemainingLifetime is how long amountPerChunk lasts at price, rounded down.
// An unknown or non-positive price yields 0, which callers treat as unknown.
func RemainingLifetime(amountPerChunk, price *big.Int, blockTime int64) int64 {
	if !positive(price) || !positive(amountPerChunk) || blockTime <= 0 {
		return 0
	}
	n := new(big.Int).Mul(amountPerChunk, big.NewInt(blockTime))
	return clampSeconds(n.Quo(n, price))
}

// RequiredAmountPerChunk is the per-chunk balance that keeps a chunk funded
// for desiredSeconds, rounded up and never below one day of rent.
func RequiredAmountPerChunk(price *big.Int, desiredSeconds, blockTime int64) *big.Int {
	if !positive(price) || blockTime <= 0 {
		return new(big.Int)
	}
	if desiredSeconds < 0 {
		desiredSeconds = 0
	}
	raw := new(big.Int).Mul(price, big.NewInt(desiredSeconds))
	raw = ceilDiv(raw, big.NewInt(blockTime))

	floor := minimumAmountPerChunk(price, blockTime)
	if raw.Cmp(floor) < 0 {
		return floor
	}
	return raw
}

// TopUpAmount is the total payment that lifts a batch moved from currentDepth
// to newDepth up to requiredPerChunk. It is zero when the existing balance
// already covers it.
func TopUpAmount(currentDepth, newDepth uint8, existingPerChunk, requiredPerChunk *big.Int) (*big.Int, error) {
	if newDepth < currentDepth {
		return nil, errors.WrapInvalidDepth(currentDepth, newDepth)
	}
	required := new(big.Int).Mul(orZero(requiredPerChunk), ChunkCount(newDepth))
	existing := new(big.Int).Mul(orZero(existingPerChunk), ChunkCount(currentDepth))

	diff := required.Sub(required, existing)
	if diff.Sign() < 0 {
		return new(big.Int), nil
	}
	return diff, nil
}

// TopUpPerChunk converts a total top-up into the per-chunk amount the node
// expects at depth, rounded up so the total is always covered.
func TopUpPerChunk(total *big.Int, depth uint8) *big.Int {
	if !positive(total) {
		return new(big.Int)
	}
	return ceilDiv(total, ChunkCount(depth))
}

// dilutedLifetime is the lifetime left once the existing balance is spread
// over 2^(newDepth-currentDepth) times as many chunks.
func dilutedLifetime(existingPerChunk, price *big.Int, blockTime int64, currentDepth, newDepth uint8) int64 {
	if !positive(price) || !positive(existingPerChunk) || blockTime <= 0 {
		return 0
	}
	n := new(big.Int).Mul(existingPerChunk, big.NewInt(blockTime))
	d := new(big.Int).Lsh(price, uint(newDepth-currentDepth))
	return clampSeconds(n.Quo(n, d))
}

func minimumAmountPerChunk(price *big.Int, blockTime int64) *big.Int {
	return new(big.Int).Mul(price, big.NewInt(BlocksPerDay(blockTime)))
}

func ceilDiv(n, d *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(n, d, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func clampSeconds(n *big.Int) int64 {
	if n.Cmp(maxSeconds) > 0 {
		return math.MaxInt64
	}
	return n.Int64()
}

func positive(n *big.Int) bool {
	return n != nil && n.Sign() > 0
}

func orZero(n *big.Int) *big.Int {
	if n == nil || n.Sign() < 0 {
		return new(big.Int)
	}
	return n
}
