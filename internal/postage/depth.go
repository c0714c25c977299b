// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import "math/big"

const (
	// MinDepth and MaxDepth bound the depths the node accepts for a batch.
	MinDepth uint8 = 17
	MaxDepth uint8 = 35

	// ChunkSize is the payload size of a single chunk in bytes.
	ChunkSize = 4096
)

// effectiveVolumeMB maps depth to usable megabytes with medium erasure
// coding and no encryption. Utilisation of a batch is never perfect, so these
// are well below the theoretical 2^depth * ChunkSize.
var effectiveVolumeMB = map[uint8]float64{
	17: 0.04156,
	18: 6.19,
	19: 104.18,
	20: 639.27,
	21: 2410,
	22: 7180,
	23: 18540,
	24: 43750,
	25: 98090,
	26: 211950,
	27: 443160,
	28: 923780,
	29: 1900000,
	30: 3880000,
	31: 7860000,
	32: 15870000,
	33: 31940000,
	34: 64190000,
	35: 128000000,
}

// ChunkCount returns 2^depth.
func ChunkCount(depth uint8) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(depth))
}

// EffectiveVolumeMB returns the usable capacity for depth and whether the
// depth is in the table.
func EffectiveVolumeMB(depth uint8) (float64, bool) {
	v, ok := effectiveVolumeMB[depth]
	return v, ok
}

// TheoreticalCapacityBytes is 2^depth full chunks.
func TheoreticalCapacityBytes(depth uint8) *big.Int {
	return new(big.Int).Mul(ChunkCount(depth), big.NewInt(ChunkSize))
}

// DepthForSize returns the smallest depth whose effective volume holds
// sizeMB, starting the search at from. ok is false when no depth up to
// MaxDepth fits or sizeMB is not a number.
func DepthForSize(sizeMB float64, from uint8) (depth uint8, ok bool) {
	if from < MinDepth {
		from = MinDepth
	}
	for d := from; d <= MaxDepth; d++ {
		if sizeMB <= effectiveVolumeMB[d] {
			return d, true
		}
	}
	return MaxDepth, false
}
