// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package postage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

type ModeKind string

const (
	// ModeExplicit buys a fixed lifetime after the depth change.
	ModeExplicit ModeKind = "explicit"
	// ModePreserve keeps the lifetime the batch has before the depth change.
	ModePreserve ModeKind = "preserve"
	// ModeNone pays nothing and reports the diluted lifetime.
	ModeNone ModeKind = "none"
)

// LifetimeMode selects the lifetime a dilution quote aims for.
type LifetimeMode struct {
	Kind    ModeKind
	Seconds int64
}

func Explicit(seconds int64) LifetimeMode {
	return LifetimeMode{Kind: ModeExplicit, Seconds: seconds}
}

func Preserve() LifetimeMode {
	return LifetimeMode{Kind: ModePreserve}
}

func NoTopUp() LifetimeMode {
	return LifetimeMode{Kind: ModeNone}
}

func (m LifetimeMode) String() string {
	if m.Kind == ModeExplicit {
		return strconv.FormatInt(m.Seconds, 10) + "s"
	}
	return string(m.Kind)
}

// Validate rejects explicit lifetimes that are not positive and unknown kinds.
func (m LifetimeMode) Validate() error {
	switch m.Kind {
	case ModeNone, ModePreserve:
		return nil
	case ModeExplicit:
		if m.Seconds <= 0 {
			return errors.WrapInvalidDuration(m.Seconds)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown lifetime mode %q", errors.ErrInvalidDuration, m.Kind)
	}
}

var unitSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': SecondsPerDay,
	'w': 7 * SecondsPerDay,
	'y': 365 * SecondsPerDay,
}

// ParseLifetimeMode reads "none", "preserve" (or "match"), a bare number of
// seconds, or a count with one of the suffixes s, m, h, d, w, y.
func ParseLifetimeMode(s string) (LifetimeMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "none":
		return NoTopUp(), nil
	case "preserve", "match":
		return Preserve(), nil
	case "":
		return LifetimeMode{}, fmt.Errorf("%w: empty lifetime", errors.ErrInvalidDuration)
	}

	mult := int64(1)
	if unit, ok := unitSeconds[s[len(s)-1]]; ok {
		mult = unit
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return LifetimeMode{}, fmt.Errorf("%w: %q is not a lifetime", errors.ErrInvalidDuration, s)
	}
	if n <= 0 {
		return LifetimeMode{}, errors.WrapInvalidDuration(n)
	}
	if n > (1<<63-1)/mult {
		return LifetimeMode{}, fmt.Errorf("%w: lifetime overflows", errors.ErrInvalidDuration)
	}
	return Explicit(n * mult), nil
}
