package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoWallets is returned when an input document names no wallet at all.
var ErrNoWallets = errors.New("input names no wallets")

// Input is the wallet list document read by the incremental sync.
// Three shapes are accepted and merged in field order.
type Input struct {
	Wallets         []string `json:"wallets" validate:"omitempty,dive,solana_pubkey"`
	WalletAddresses []string `json:"walletAddresses" validate:"omitempty,dive,solana_pubkey"`
	WalletAddress   string   `json:"walletAddress" validate:"omitempty,solana_pubkey"`
}

// Addresses returns every wallet of the document once, in first-seen order.
func (in *Input) Addresses() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for _, w := range in.Wallets {
		add(w)
	}
	for _, w := range in.WalletAddresses {
		add(w)
	}
	add(in.WalletAddress)
	return out
}

// LoadWallets reads the input document at path and returns its wallets.
func LoadWallets(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	if err := validateStruct(&in); err != nil {
		return nil, fmt.Errorf("invalid input %s: %w", path, err)
	}

	wallets := in.Addresses()
	if len(wallets) == 0 {
		return nil, fmt.Errorf("%s: %w (expected \"wallets\", \"walletAddresses\" or \"walletAddress\")", path, ErrNoWallets)
	}
	return wallets, nil
}
