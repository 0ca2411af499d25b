package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/submit"
)

// Balance returns the token balance of owner in display units.
func (c *Client) Balance(ctx context.Context, owner string) (string, error) {
	addr, err := parseAddress("owner", owner)
	if err != nil {
		return "", err
	}
	n, err := c.callBig(ctx, "balanceOf", addr)
	if err != nil {
		return "", err
	}
	return amount.BigToDisplay(n, c.cfg.Decimals), nil
}

// EthBalance returns the ether balance of owner.
func (c *Client) EthBalance(ctx context.Context, owner string) (string, error) {
	addr, err := parseAddress("owner", owner)
	if err != nil {
		return "", err
	}
	b, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}
	wei, err := b.BalanceAt(ctx, addr, nil)
	c.metrics.ObserveRequest("eth_getBalance", err)
	if err != nil {
		return "", network(err, "balance")
	}
	return amount.BigToDisplay(wei, amount.TokenScale), nil
}

// Allowance returns how much spender may move on behalf of owner.
func (c *Client) Allowance(ctx context.Context, owner, spender string) (string, error) {
	o, err := parseAddress("owner", owner)
	if err != nil {
		return "", err
	}
	s, err := parseAddress("spender", spender)
	if err != nil {
		return "", err
	}
	n, err := c.callBig(ctx, "allowance", o, s)
	if err != nil {
		return "", err
	}
	return amount.BigToDisplay(n, c.cfg.Decimals), nil
}

func (c *Client) TotalSupply(ctx context.Context) (string, error) {
	n, err := c.callBig(ctx, "totalSupply")
	if err != nil {
		return "", err
	}
	return amount.BigToDisplay(n, c.cfg.Decimals), nil
}

// Decimals reads the contract's declared decimals.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	v, err := c.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("decode decimals: unexpected %T", v)
	}
	return d, nil
}

// Transfer sends value tokens from the loaded key to to.
func (c *Client) Transfer(ctx context.Context, to, value string) (*submit.Outcome, error) {
	key, err := c.signingKey()
	if err != nil {
		return nil, err
	}
	dst, err := parseAddress("to", to)
	if err != nil {
		return nil, err
	}
	units, err := c.units(value, false)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, key, "transfer", submit.FallbackGasTransfer, dst, units)
}

// Approve sets the allowance of spender. Zero revokes it.
func (c *Client) Approve(ctx context.Context, spender, value string) (*submit.Outcome, error) {
	key, err := c.signingKey()
	if err != nil {
		return nil, err
	}
	s, err := parseAddress("spender", spender)
	if err != nil {
		return nil, err
	}
	units, err := c.units(value, true)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, key, "approve", submit.FallbackGasApprove, s, units)
}

// TransferFrom moves value tokens from from to to using the loaded key's
// allowance.
func (c *Client) TransferFrom(ctx context.Context, from, to, value string) (*submit.Outcome, error) {
	key, err := c.signingKey()
	if err != nil {
		return nil, err
	}
	src, err := parseAddress("from", from)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddress("to", to)
	if err != nil {
		return nil, err
	}
	units, err := c.units(value, false)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, key, "transferFrom", submit.FallbackGasTransferFrom, src, dst, units)
}

// units converts a display amount to base units, truncating extra digits.
func (c *Client) units(value string, allowZero bool) (*big.Int, error) {
	n, err := amount.ToSmallestBig(value, c.cfg.Decimals)
	if err != nil {
		return nil, err
	}
	if n.Sign() < 0 || (n.Sign() == 0 && !allowZero) {
		return nil, ledgererr.New(ledgererr.KindInvalidAmount, "amount must be positive: %q", value)
	}
	return n, nil
}

func (c *Client) send(ctx context.Context, key *ecdsa.PrivateKey, method string, fallback uint64, args ...any) (*submit.Outcome, error) {
	data, err := erc20.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	b, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	s := submit.NewEVM(b, c.cfg.PollInterval, c.logger, c.metrics)
	out, err := s.Submit(ctx, key, submit.Call{
		Method:      method,
		To:          c.contract,
		Data:        data,
		FallbackGas: fallback,
	})
	if out != nil {
		c.logger.Info("transaction finished",
			zap.String("method", method),
			zap.String("hash", out.Hash),
			zap.String("result", out.ResultCode),
			zap.Bool("success", out.Success))
	}
	return out, err
}
