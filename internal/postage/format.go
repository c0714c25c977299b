// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import (
	"fmt"
	"math/big"
)

// DisplayDecimals is the number of decimals between base units and the
// display token.
const DisplayDecimals = 16

var displayScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(DisplayDecimals), nil)

// FormatTTL renders seconds as "{days}d {hours}h {minutes}m".
func FormatTTL(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / SecondsPerDay
	hours := (seconds % SecondsPerDay) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// FormatDisplayUnits converts base units to display tokens with 8 decimals.
func FormatDisplayUnits(amount *big.Int) string {
	return toDisplay(amount, 8)
}

// FormatBalance renders a wallet balance the way the node dashboard does.
func FormatBalance(amount *big.Int) string {
	return toDisplay(amount, 4) + " xBZZ"
}

func toDisplay(amount *big.Int, prec int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return new(big.Rat).SetFrac(amount, displayScale).FloatString(prec)
}
