// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

// Node names a well-known Bee node endpoint.
type Node string

const (
	Local    Node = "local"
	DAppNode Node = "dappnode"
)

const (
	LocalAPIURL    = "http://localhost:1633"
	DAppNodeAPIURL = "http://bee.swarm.public.dappnode:1633"
)

// NodeConfig describes a node the client can talk to.
type NodeConfig struct {
	Name             string
	APIURL           string
	BlockTimeSeconds int64
}

var (
	LocalConfig = NodeConfig{
		Name:             string(Local),
		APIURL:           LocalAPIURL,
		BlockTimeSeconds: 5,
	}
	DAppNodeConfig = NodeConfig{
		Name:             string(DAppNode),
		APIURL:           DAppNodeAPIURL,
		BlockTimeSeconds: 5,
	}
)

// ConfigFor returns the preset for node and whether node is known.
func ConfigFor(node Node) (NodeConfig, bool) {
	switch node {
	case Local:
		return LocalConfig, true
	case DAppNode:
		return DAppNodeConfig, true
	default:
		return NodeConfig{}, false
	}
}
