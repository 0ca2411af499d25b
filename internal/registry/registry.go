// Package registry maps network identifiers to the official RLUSD issuer
// (consensus ledger) or token contract (contract ledger).
package registry

import (
	"fmt"
	"sort"
)

// Currency is the RLUSD currency code and its 160-bit wire form.
const (
	Currency    = "RLUSD"
	CurrencyHex = "524C555344000000000000000000000000000000"
)

// Family is the kind of ledger a network belongs to.
type Family string

const (
	FamilyXRPL Family = "xrpl"
	FamilyEVM  Family = "evm"
)

// Tier is the network tier an entry is official for.
type Tier string

const (
	TierMain Tier = "main"
	TierTest Tier = "test"
	TierDev  Tier = "dev"
)

// Entry describes the asset on one network.
type Entry struct {
	Network  string
	Family   Family
	Tier     Tier
	Official bool

	// Issuer is set for consensus-ledger networks, Contract for EVM ones.
	Issuer   string
	Contract string
	Decimals int32

	// Endpoint is the default websocket or JSON-RPC URL; ChainID is zero
	// for consensus-ledger networks.
	Endpoint string
	ChainID  int64
}

// Address returns the issuer or contract address, whichever applies.
func (e Entry) Address() string {
	if e.Family == FamilyEVM {
		return e.Contract
	}
	return e.Issuer
}

var entries = map[string]Entry{
	"xrpl-mainnet": {
		Network:  "xrpl-mainnet",
		Family:   FamilyXRPL,
		Tier:     TierMain,
		Official: true,
		Issuer:   "rMxCKbEDwqr76QuheSUMdEGf4B9xJ8m5De",
		Decimals: 6,
		Endpoint: "wss://xrplcluster.com",
	},
	"xrpl-testnet": {
		Network:  "xrpl-testnet",
		Family:   FamilyXRPL,
		Tier:     TierTest,
		Official: true,
		Issuer:   "rQhWct2fv4Vc4KRjRgMrxa8xPN9Zx9iLKV",
		Decimals: 6,
		Endpoint: "wss://s.altnet.rippletest.net:51233",
	},
	"xrpl-devnet": {
		Network:  "xrpl-devnet",
		Family:   FamilyXRPL,
		Tier:     TierDev,
		Official: true,
		Issuer:   "rQhWct2fv4Vc4KRjRgMrxa8xPN9Zx9iLKV",
		Decimals: 6,
		Endpoint: "wss://s.devnet.rippletest.net:51233",
	},
	"eth-mainnet": {
		Network:  "eth-mainnet",
		Family:   FamilyEVM,
		Tier:     TierMain,
		Official: true,
		Contract: "0x8292Bb45bf1Ee4d140127049757C2E0fF06317eD",
		Decimals: 18,
		Endpoint: "https://ethereum-rpc.publicnode.com",
		ChainID:  1,
	},
	"eth-sepolia": {
		Network:  "eth-sepolia",
		Family:   FamilyEVM,
		Tier:     TierTest,
		Official: true,
		Contract: "0xe101FB315a64cDa9944E570a7bFfaFE60b994b1D",
		Decimals: 18,
		Endpoint: "https://ethereum-sepolia-rpc.publicnode.com",
		ChainID:  11155111,
	},
	"eth-holesky": {
		Network:  "eth-holesky",
		Family:   FamilyEVM,
		Tier:     TierDev,
		Official: true,
		Contract: "0xe101FB315a64cDa9944E570a7bFfaFE60b994b1D",
		Decimals: 18,
		Endpoint: "https://ethereum-holesky-rpc.publicnode.com",
		ChainID:  17000,
	},
}

// Lookup returns the entry for network.
func Lookup(network string) (Entry, error) {
	e, ok := entries[network]
	if !ok {
		return Entry{}, fmt.Errorf("unknown network %q", network)
	}
	return e, nil
}

// Official returns the official entry of a family for a tier.
func Official(family Family, tier Tier) (Entry, error) {
	for _, e := range entries {
		if e.Family == family && e.Tier == tier && e.Official {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("no official %s entry for tier %s", family, tier)
}

// Networks lists the known network identifiers in sorted order.
func Networks() []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
