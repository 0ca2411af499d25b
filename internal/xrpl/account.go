package xrpl

import (
	"context"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/rpc"
)

// TrustLineInfo is one RLUSD-relevant trust line with its flags decoded.
type TrustLineInfo struct {
	Issuer   string `json:"issuer"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Limit    string `json:"limit"`
	tx.LineFlags
}

// Balances is the native and RLUSD holding of one account.
type Balances struct {
	Address string `json:"address"`
	XRP     string `json:"xrp"`
	RLUSD   string `json:"rlusd"`

	// Reserve and Spendable are XRP; both are empty when server_state
	// could not be read.
	Reserve   string `json:"reserve,omitempty"`
	Spendable string `json:"spendable,omitempty"`
}

// AccountInfo reads the validated account root of address.
func (c *Client) AccountInfo(ctx context.Context, address string) (*rpc.AccountInfoResult, error) {
	if err := tx.ValidateXRPLAddress("address", address); err != nil {
		return nil, err
	}
	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return r.AccountInfo(ctx, address, "validated")
}

// XRPBalance returns the XRP balance of address in display units.
func (c *Client) XRPBalance(ctx context.Context, address string) (string, error) {
	info, err := c.AccountInfo(ctx, address)
	if err != nil {
		return "", err
	}
	return amount.DropsToXRP(info.AccountData.Balance)
}

// TokenBalance returns the RLUSD balance of address, "0" without a line.
func (c *Client) TokenBalance(ctx context.Context, address string) (string, error) {
	lines, err := c.TrustLines(ctx, address)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "0", nil
	}
	return lines[0].Balance, nil
}

// Balances reads both balances of address and its base reserve.
func (c *Client) Balances(ctx context.Context, address string) (*Balances, error) {
	info, err := c.AccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	xrp, err := amount.DropsToXRP(info.AccountData.Balance)
	if err != nil {
		return nil, err
	}
	token, err := c.TokenBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	b := &Balances{Address: address, XRP: xrp, RLUSD: token}

	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if state, err := r.ServerState(ctx); err == nil {
		fees := state.Fees()
		owners := info.AccountData.OwnerCount
		b.Reserve = fees.AccountReserve(owners).XRP()
		if bal, err := amount.ParseDrops(info.AccountData.Balance); err == nil {
			b.Spendable = fees.Spendable(bal, owners).XRP()
		}
	}
	return b, nil
}

// TrustLines lists the lines of address toward the RLUSD issuer.
func (c *Client) TrustLines(ctx context.Context, address string) ([]TrustLineInfo, error) {
	if err := tx.ValidateXRPLAddress("address", address); err != nil {
		return nil, err
	}
	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := r.AccountLines(ctx, address, c.asset.Issuer)
	if err != nil {
		return nil, err
	}
	out := make([]TrustLineInfo, 0, len(lines))
	for _, l := range lines {
		if !tx.SameCurrency(l.Currency, c.asset.Currency) {
			continue
		}
		out = append(out, TrustLineInfo{
			Issuer:    l.Account,
			Currency:  tx.DecodeCurrency(l.Currency),
			Balance:   l.Balance,
			Limit:     l.Limit,
			LineFlags: l.Flags(),
		})
	}
	return out, nil
}

// AccountOffers lists the open offers of address.
func (c *Client) AccountOffers(ctx context.Context, address string) ([]rpc.AccountOffer, error) {
	if err := tx.ValidateXRPLAddress("address", address); err != nil {
		return nil, err
	}
	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return r.AccountOffers(ctx, address)
}

// GetTransaction looks up hash. Validated results are cached since they
// cannot change.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*rpc.TxResult, error) {
	if res, ok := c.cache.Get(hash); ok {
		return res, nil
	}
	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	res, err := r.Tx(ctx, hash)
	if err != nil {
		return nil, err
	}
	if res.Validated {
		c.cache.Add(hash, res)
	}
	return res, nil
}
