// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"strings"
	"testing"

	"github.com/woco-foundation/swarmctl/internal/errors"
)

func TestIsValidURL_ValidURLs(t *testing.T) {
	validURLs := []string{
		"http://localhost:1633",
		"http://bee.swarm.public.dappnode:1633",
		"https://bee.example.com",
		"https://bee.example.com/",
		"http://192.168.1.1:1633",
	}

	for _, urlStr := range validURLs {
		t.Run(urlStr, func(t *testing.T) {
			if err := isValidURL(urlStr); err != nil {
				t.Errorf("expected no error for valid URL %q, got %v", urlStr, err)
			}
		})
	}
}

func TestIsValidURL_InvalidURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty URL", ""},
		{"no scheme", "localhost:1633"},
		{"invalid scheme", "ftp://example.com"},
		{"no host", "https://"},
		{"malformed", "ht!ps://example.com"},
		{"only path", "/stamps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := isValidURL(tt.url); err == nil {
				t.Errorf("expected error for %q", tt.url)
			}
		})
	}
}

func TestValidateNodeURLWrapsSentinel(t *testing.T) {
	err := ValidateNodeURL("ftp://bee")
	if !errors.Is(err, errors.ErrInvalidNodeURL) {
		t.Errorf("expected ErrInvalidNodeURL, got %v", err)
	}
}

func TestValidateNodeConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  NodeConfig
		wantErr bool
	}{
		{"local preset", LocalConfig, false},
		{"dappnode preset", DAppNodeConfig, false},
		{"custom", NodeConfig{Name: "custom", APIURL: "https://bee.example.com", BlockTimeSeconds: 5}, false},
		{"missing name", NodeConfig{APIURL: "https://bee.example.com", BlockTimeSeconds: 5}, true},
		{"bad url", NodeConfig{Name: "custom", APIURL: "not-a-url", BlockTimeSeconds: 5}, true},
		{"zero block time", NodeConfig{Name: "custom", APIURL: "https://bee.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigFor(t *testing.T) {
	if cfg, ok := ConfigFor(DAppNode); !ok || cfg.APIURL != DAppNodeAPIURL {
		t.Errorf("unexpected dappnode preset %+v", cfg)
	}
	if _, ok := ConfigFor("mainnet"); ok {
		t.Errorf("unknown node should not resolve")
	}
}

func TestValidateBatchID(t *testing.T) {
	good := strings.Repeat("ab", 32)
	if err := ValidateBatchID(good); err != nil {
		t.Errorf("expected valid batch ID, got %v", err)
	}
	for _, bad := range []string{"", "abc", strings.Repeat("zz", 32), strings.Repeat("a", 65)} {
		if err := ValidateBatchID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func BenchmarkValidateNodeConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateNodeConfig(LocalConfig)
	}
}
