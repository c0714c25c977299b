// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"

	"github.com/hashicorp/go-version"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

// MinimumAPIVersion is the oldest node API with the dilute and top-up
// endpoints in their current form.
const MinimumAPIVersion = "4.0.0"

var apiConstraint = version.MustConstraints(version.NewConstraint(">= " + MinimumAPIVersion))

// CheckCompatibility rejects nodes whose API predates MinimumAPIVersion.
func CheckCompatibility(h *Health) error {
	if h == nil || h.APIVersion == "" {
		return errors.WrapUnsupportedNode("unknown", ">= "+MinimumAPIVersion)
	}
	have, err := version.NewVersion(h.APIVersion)
	if err != nil {
		return errors.WrapUnsupportedNode(h.APIVersion, ">= "+MinimumAPIVersion)
	}
	if !apiConstraint.Check(have.Core()) {
		return errors.WrapUnsupportedNode(h.APIVersion, ">= "+MinimumAPIVersion)
	}
	return nil
}

// CheckNode fetches the node's health and checks its API version.
func (c *Client) CheckNode(ctx context.Context) (*Health, error) {
	h, err := c.Health(ctx)
	if err != nil {
		return nil, err
	}
	return h, CheckCompatibility(h)
}
