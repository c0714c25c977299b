// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import (
	"math/big"
	"testing"
)

// BenchmarkQuote measures one dilution quote per lifetime mode and depth step.
func BenchmarkQuote(b *testing.B) {
	price := PriceQuote{PricePerChunkPerBlock: big.NewInt(24000)}
	tests := []struct {
		name     string
		from, to uint8
		mode     LifetimeMode
	}{
		{"Preserve/OneStep", 20, 21, Preserve()},
		{"Preserve/MaxDepth", 17, MaxDepth, Preserve()},
		{"None", 20, 24, NoTopUp()},
		{"Explicit/1y", 22, 26, Explicit(365 * 86400)},
	}

	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			batch := StorageBatch{ID: "bench", Depth: tt.from, AmountPerChunk: big.NewInt(4_147_200_000_000)}

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Quote(batch, tt.to, tt.mode, price, DefaultBlockTimeSeconds); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPurchaseCost(b *testing.B) {
	price := PriceQuote{PricePerChunkPerBlock: big.NewInt(24000)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := PurchaseCost(price, 24, 30*86400, DefaultBlockTimeSeconds); err != nil {
			b.Fatal(err)
		}
	}
}
