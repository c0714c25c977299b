// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is
var (
	ErrPriceUnavailable     = errors.New("storage price unavailable")
	ErrInvalidDepth         = errors.New("invalid batch depth")
	ErrInvalidDuration      = errors.New("invalid lifetime duration")
	ErrBatchNotFound        = errors.New("postage batch not found")
	ErrBatchNotUsable       = errors.New("postage batch not usable")
	ErrNodeConnectionFailed = errors.New("node connection failed")
	ErrNodeRequestFailed    = errors.New("node request failed")
	ErrInvalidNodeURL       = errors.New("invalid node URL")
	ErrInvalidNode          = errors.New("invalid node")
	ErrUnsupportedNode      = errors.New("unsupported node version")
	ErrUnmarshalFailed      = errors.New("failed to unmarshal response")
	ErrQuoteNotCommittable  = errors.New("quote cannot be committed")
	ErrInvalidFeed          = errors.New("invalid feed parameters")
)

// Is and As forward to the standard library so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// Wrap functions for consistent error wrapping
func WrapPriceUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
}

func WrapInvalidDepth(current, requested uint8) error {
	return fmt.Errorf("%w: new depth %d is below current depth %d", ErrInvalidDepth, requested, current)
}

func WrapInvalidDuration(seconds int64) error {
	return fmt.Errorf("%w: %d seconds, must be positive", ErrInvalidDuration, seconds)
}

func WrapBatchNotFound(batchID string) error {
	return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
}

func WrapBatchNotUsable(batchID string, attempts int) error {
	return fmt.Errorf("%w: %s after %d checks", ErrBatchNotUsable, batchID, attempts)
}

func WrapNodeConnectionFailed(err error) error {
	return fmt.Errorf("%w: %v", ErrNodeConnectionFailed, err)
}

func WrapInvalidNodeURL(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidNodeURL, err)
}

func WrapInvalidNode(node string) error {
	return fmt.Errorf("%w: %s. Must be one of: local, dappnode", ErrInvalidNode, node)
}

func WrapUnsupportedNode(have, want string) error {
	return fmt.Errorf("%w: node API %s, need %s", ErrUnsupportedNode, have, want)
}

func WrapUnmarshalFailed(err error, output string) error {
	return fmt.Errorf("%w: %v, output: %s", ErrUnmarshalFailed, err, output)
}

func WrapQuoteNotCommittable(reason string) error {
	return fmt.Errorf("%w: %s", ErrQuoteNotCommittable, reason)
}

func WrapInvalidFeed(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidFeed, msg)
}
