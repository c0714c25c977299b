// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

// Package feed derives feed identifiers the same way uploads create them,
// so an existing feed can be looked up by its name.
package feed

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

// Topic returns the 64-character hex topic for a feed name, without 0x.
func Topic(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.WrapInvalidFeed("feed name is empty")
	}
	h := ethcrypto.Keccak256Hash([]byte(name))
	return strings.TrimPrefix(h.Hex(), "0x"), nil
}

// Owner validates an Ethereum address and returns it as lower-case hex
// without 0x, the form the node's feed endpoint expects.
func Owner(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", errors.WrapInvalidFeed("owner " + address + " is not an address")
	}
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")), nil
}

// IsTopic reports whether s is already a 32-byte hex topic.
func IsTopic(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
