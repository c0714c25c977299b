// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

// BatchIDLength is the hex length of a postage batch ID.
const BatchIDLength = 64

func isValidURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("URL must include scheme (http:// or https://)")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// ValidateNodeURL checks that urlStr can serve as a node API base URL.
func ValidateNodeURL(urlStr string) error {
	if err := isValidURL(urlStr); err != nil {
		return errors.WrapInvalidNodeURL(err)
	}
	return nil
}

func ValidateNodeConfig(config NodeConfig) error {
	if config.Name == "" {
		return fmt.Errorf("node name is required")
	}

	if err := ValidateNodeURL(config.APIURL); err != nil {
		return fmt.Errorf("invalid APIURL: %w", err)
	}

	if config.BlockTimeSeconds <= 0 {
		return fmt.Errorf("block time must be positive, got %d", config.BlockTimeSeconds)
	}

	return nil
}

// ValidateBatchID checks for a 32-byte hex batch ID.
func ValidateBatchID(id string) error {
	if len(id) != BatchIDLength {
		return fmt.Errorf("invalid batch ID format (expected %d hex characters, got %d)", BatchIDLength, len(id))
	}
	if _, err := hex.DecodeString(id); err != nil {
		return fmt.Errorf("invalid batch ID format: %w", err)
	}
	return nil
}
