package xrpl

import (
	"strings"

	"github.com/Peersyst/xrpl-go/xrpl/wallet"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// Wallet signs consensus-ledger transactions with a family seed. The seed
// never leaves the wallet; String and logging show the address only.
type Wallet struct {
	w wallet.Wallet
}

// WalletFromSeed derives the key pair for seed.
func WalletFromSeed(seed string) (*Wallet, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, ledgererr.New(ledgererr.KindNoCredential, "empty seed")
	}
	w, err := wallet.FromSeed(seed, "")
	if err != nil {
		// The underlying error may quote the seed.
		return nil, ledgererr.New(ledgererr.KindNoCredential, "seed could not be decoded")
	}
	return &Wallet{w: w}, nil
}

func (w *Wallet) Address() string {
	return string(w.w.ClassicAddress)
}

func (w *Wallet) PublicKey() string {
	return w.w.PublicKey
}

// Sign returns the signed blob and transaction hash.
func (w *Wallet) Sign(tx map[string]any) (string, string, error) {
	if _, ok := tx["SigningPubKey"]; !ok {
		tx["SigningPubKey"] = w.w.PublicKey
	}
	return w.w.Sign(tx)
}

func (w *Wallet) String() string {
	return w.Address()
}
