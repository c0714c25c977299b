// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/woco-foundation/swarmctl/internal/logger"
	"github.com/woco-foundation/swarmctl/internal/postage"
)

// PriceSource fetches the current price. *rpc.Client satisfies it.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (postage.PriceQuote, error)
}

// Calculator is the JSON-RPC service. Every method that needs a price takes
// an optional Price argument and fetches from the node when it is empty.
type Calculator struct {
	prices    PriceSource
	blockTime int64
	quotes    *prometheus.CounterVec
}

// QuoteArgs describes a batch and the depth it should move to.
type QuoteArgs struct {
	BatchID        string `json:"batchID"`
	CurrentDepth   uint8  `json:"currentDepth"`
	NewDepth       uint8  `json:"newDepth"`
	AmountPerChunk string `json:"amountPerChunk"`
	Mode           string `json:"mode"`
	Price          string `json:"price,omitempty"`
}

// QuoteReply carries amounts as decimal strings.
type QuoteReply struct {
	BatchID                  string `json:"batchID,omitempty"`
	CurrentDepth             uint8  `json:"currentDepth"`
	NewDepth                 uint8  `json:"newDepth"`
	Mode                     string `json:"mode"`
	RequiredAmountPerChunk   string `json:"requiredAmountPerChunk"`
	TopUpAmount              string `json:"topUpAmount"`
	TopUpPerChunk            string `json:"topUpPerChunk"`
	TopUpAmountDisplay       string `json:"topUpAmountDisplay"`
	ResultingLifetimeSeconds int64  `json:"resultingLifetimeSeconds"`
	ResultingLifetime        string `json:"resultingLifetime"`
	PriceUnavailable         bool   `json:"priceUnavailable"`
}

type BuyCostArgs struct {
	Depth uint8  `json:"depth"`
	TTL   string `json:"ttl"`
	Price string `json:"price,omitempty"`
}

type BuyCostReply struct {
	Depth            uint8  `json:"depth"`
	TTLSeconds       int64  `json:"ttlSeconds"`
	AmountPerChunk   string `json:"amountPerChunk"`
	TotalAmount      string `json:"totalAmount"`
	TotalDisplay     string `json:"totalDisplay"`
	PriceUnavailable bool   `json:"priceUnavailable"`
}

type LifetimeArgs struct {
	AmountPerChunk string `json:"amountPerChunk"`
	Price          string `json:"price,omitempty"`
}

type LifetimeReply struct {
	Seconds          int64  `json:"seconds"`
	Formatted        string `json:"formatted"`
	PriceUnavailable bool   `json:"priceUnavailable"`
}

type PriceArgs struct{}

type PriceReply struct {
	PricePerChunkPerBlock string `json:"pricePerChunkPerBlock"`
	Available             bool   `json:"available"`
}

func (c *Calculator) Quote(r *http.Request, args *QuoteArgs, reply *QuoteReply) error {
	mode, err := postage.ParseLifetimeMode(args.Mode)
	if err != nil {
		return err
	}
	amount, err := parseAmount("amountPerChunk", args.AmountPerChunk)
	if err != nil {
		return err
	}
	price, err := c.price(r.Context(), args.Price)
	if err != nil {
		return err
	}

	batch := postage.StorageBatch{ID: args.BatchID, Depth: args.CurrentDepth, AmountPerChunk: amount}
	q, err := postage.Quote(batch, args.NewDepth, mode, price, c.blockTime)
	if err != nil {
		return err
	}
	c.quotes.WithLabelValues(string(mode.Kind), pricedLabel(q.PriceUnavailable)).Inc()

	*reply = QuoteReply{
		BatchID:                  q.BatchID,
		CurrentDepth:             q.CurrentDepth,
		NewDepth:                 q.NewDepth,
		Mode:                     q.Mode,
		RequiredAmountPerChunk:   q.RequiredAmountPerChunk.String(),
		TopUpAmount:              q.TopUpAmount.String(),
		TopUpPerChunk:            q.TopUpPerChunk.String(),
		TopUpAmountDisplay:       q.TopUpAmountDisplay,
		ResultingLifetimeSeconds: q.ResultingLifetimeSeconds,
		ResultingLifetime:        q.ResultingLifetime,
		PriceUnavailable:         q.PriceUnavailable,
	}
	return nil
}

func (c *Calculator) BuyCost(r *http.Request, args *BuyCostArgs, reply *BuyCostReply) error {
	mode, err := postage.ParseLifetimeMode(args.TTL)
	if err != nil {
		return err
	}
	if mode.Kind != postage.ModeExplicit {
		return fmt.Errorf("ttl must be a duration, got %q", args.TTL)
	}
	price, err := c.price(r.Context(), args.Price)
	if err != nil {
		return err
	}

	q, err := postage.PurchaseCost(price, args.Depth, mode.Seconds, c.blockTime)
	if err != nil {
		return err
	}
	c.quotes.WithLabelValues("purchase", pricedLabel(q.PriceUnavailable)).Inc()

	*reply = BuyCostReply{
		Depth:            q.Depth,
		TTLSeconds:       q.TTLSeconds,
		AmountPerChunk:   q.AmountPerChunk.String(),
		TotalAmount:      q.TotalAmount.String(),
		TotalDisplay:     q.TotalDisplay,
		PriceUnavailable: q.PriceUnavailable,
	}
	return nil
}

func (c *Calculator) Lifetime(r *http.Request, args *LifetimeArgs, reply *LifetimeReply) error {
	amount, err := parseAmount("amountPerChunk", args.AmountPerChunk)
	if err != nil {
		return err
	}
	price, err := c.price(r.Context(), args.Price)
	if err != nil {
		return err
	}
	seconds := postage.RemainingLifetime(amount, price.PricePerChunkPerBlock, c.blockTime)
	*reply = LifetimeReply{
		Seconds:          seconds,
		Formatted:        postage.FormatTTL(seconds),
		PriceUnavailable: !price.Available(),
	}
	return nil
}

func (c *Calculator) Price(r *http.Request, args *PriceArgs, reply *PriceReply) error {
	price, err := c.price(r.Context(), "")
	if err != nil {
		return err
	}
	reply.Available = price.Available()
	reply.PricePerChunkPerBlock = "0"
	if reply.Available {
		reply.PricePerChunkPerBlock = price.PricePerChunkPerBlock.String()
	}
	return nil
}

// price returns the explicit price when given. Otherwise it asks the node,
// and a failed fetch yields an empty quote rather than an error.
func (c *Calculator) price(ctx context.Context, explicit string) (postage.PriceQuote, error) {
	if strings.TrimSpace(explicit) != "" {
		p, err := parseAmount("price", explicit)
		if err != nil {
			return postage.PriceQuote{}, err
		}
		return postage.PriceQuote{PricePerChunkPerBlock: p}, nil
	}
	if c.prices == nil {
		return postage.PriceQuote{}, nil
	}
	p, err := c.prices.CurrentPrice(ctx)
	if err != nil {
		logger.Logger.Warn("Price unavailable for RPC request", "error", err)
		return postage.PriceQuote{}, nil
	}
	return p, nil
}

func parseAmount(field, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer, got %q", field, s)
	}
	return n, nil
}

func pricedLabel(unavailable bool) string {
	if unavailable {
		return "false"
	}
	return "true"
}
