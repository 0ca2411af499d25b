package operation

import (
	"context"

	"github.com/LeJamon/goRLUSD/internal/book"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/xrpl"
)

// address returns the address parameter, defaulting to the loaded wallet.
func address(p Params, loaded string) (string, error) {
	addr, err := p.OptString("address", loaded)
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", missing("address")
	}
	return addr, nil
}

func (d *Dispatcher) account(ctx context.Context, op string, p Params) (Result, error) {
	c, err := d.xrpl()
	if err != nil {
		return nil, err
	}
	addr, err := address(p, c.Address())
	if err != nil {
		return nil, err
	}
	switch op {
	case "info":
		info, err := c.AccountInfo(ctx, addr)
		if err != nil {
			return nil, err
		}
		return toResult("account", info)
	case "balance":
		b, err := c.Balances(ctx, addr)
		if err != nil {
			return nil, err
		}
		return toResult("balance", b)
	case "offers":
		offers, err := c.AccountOffers(ctx, addr)
		if err != nil {
			return nil, err
		}
		return Result{"address": addr, "offers": offers}, nil
	default:
		return nil, unsupported(ResourceAccount, op)
	}
}

func (d *Dispatcher) trustline(ctx context.Context, op string, p Params) (Result, error) {
	c, err := d.xrpl()
	if err != nil {
		return nil, err
	}
	switch op {
	case "set":
		req, err := trustLineRequest(p)
		if err != nil {
			return nil, err
		}
		return outcome(c.SetTrustLine(ctx, req))
	case "remove":
		return outcome(c.RemoveTrustLine(ctx))
	case "list":
		addr, err := address(p, c.Address())
		if err != nil {
			return nil, err
		}
		lines, err := c.TrustLines(ctx, addr)
		if err != nil {
			return nil, err
		}
		return Result{"address": addr, "lines": lines}, nil
	default:
		return nil, unsupported(ResourceTrustline, op)
	}
}

func trustLineRequest(p Params) (xrpl.TrustLineRequest, error) {
	var req xrpl.TrustLineRequest
	var err error
	if req.Limit, err = p.String("limit"); err != nil {
		return req, err
	}
	if err := p.Into(&req.Options); err != nil {
		return req, err
	}
	for key, dst := range map[string]**uint32{"qualityIn": &req.QualityIn, "qualityOut": &req.QualityOut} {
		if !p.has(key) {
			continue
		}
		q, err := p.Uint32(key)
		if err != nil {
			return req, err
		}
		*dst = &q
	}
	return req, nil
}

func paymentRequest(p Params) (xrpl.PaymentRequest, error) {
	var req xrpl.PaymentRequest
	var err error
	if req.Destination, err = p.String("destination"); err != nil {
		return req, err
	}
	if req.Amount, err = p.String("amount"); err != nil {
		return req, err
	}
	if req.DestinationTag, err = p.DestinationTag(); err != nil {
		return req, err
	}
	if req.Memos, err = p.Memos(); err != nil {
		return req, err
	}
	if req.SendMax, err = p.OptString("sendMax", ""); err != nil {
		return req, err
	}
	if err := p.Into(&req.Options); err != nil {
		return req, err
	}
	return req, nil
}

func (d *Dispatcher) payment(ctx context.Context, op string, p Params) (Result, error) {
	c, err := d.xrpl()
	if err != nil {
		return nil, err
	}
	switch op {
	case "send":
		req, err := paymentRequest(p)
		if err != nil {
			return nil, err
		}
		return outcome(c.SendToken(ctx, req))
	case "sendXrp":
		req, err := paymentRequest(p)
		if err != nil {
			return nil, err
		}
		return outcome(c.SendXRP(ctx, req))
	default:
		return nil, unsupported(ResourcePayment, op)
	}
}

func (d *Dispatcher) dex(ctx context.Context, op string, p Params) (Result, error) {
	c, err := d.xrpl()
	if err != nil {
		return nil, err
	}
	switch op {
	case "book":
		limit, err := p.OptInt("limit", book.DefaultLimit)
		if err != nil {
			return nil, err
		}
		e, err := c.Book(ctx)
		if err != nil {
			return nil, err
		}
		b, err := e.GetBook(ctx, limit)
		if err != nil {
			return nil, err
		}
		return toResult("book", b)
	case "bestBidAsk":
		e, err := c.Book(ctx)
		if err != nil {
			return nil, err
		}
		bid, ask, err := e.BestBidAsk(ctx)
		if err != nil {
			return nil, err
		}
		return Result{"bid": bid, "ask": ask}, nil
	case "spread":
		e, err := c.Book(ctx)
		if err != nil {
			return nil, err
		}
		bid, ask, err := e.BestBidAsk(ctx)
		if err != nil {
			return nil, err
		}
		if bid == nil || ask == nil {
			return Result{"bid": bid, "ask": ask, "spread": nil, "midpoint": nil}, nil
		}
		spread, err := book.Spread(bid.Price, ask.Price)
		if err != nil {
			return nil, err
		}
		mid, err := book.Midpoint(bid.Price, ask.Price)
		if err != nil {
			return nil, err
		}
		return Result{"bid": bid.Price, "ask": ask.Price, "spread": spread, "midpoint": mid}, nil
	case "createOffer":
		req, err := offerRequest(p)
		if err != nil {
			return nil, err
		}
		return outcome(c.CreateOffer(ctx, req))
	case "cancelOffer":
		seq, err := p.Uint32("offerSequence")
		if err != nil {
			return nil, err
		}
		return outcome(c.CancelOffer(ctx, seq))
	default:
		return nil, unsupported(ResourceDex, op)
	}
}

func offerRequest(p Params) (xrpl.OfferRequest, error) {
	var req xrpl.OfferRequest
	side, err := p.String("side")
	if err != nil {
		return req, err
	}
	if req.Side, err = tx.ParseSide(side); err != nil {
		return req, &ParamError{Name: "side", Reason: err.Error()}
	}
	if req.Amount, err = p.String("amount"); err != nil {
		return req, err
	}
	if req.Price, err = p.String("price"); err != nil {
		return req, err
	}
	if req.Expiration, err = p.Time("expiration"); err != nil {
		return req, err
	}
	if p.has("replace") {
		seq, err := p.Uint32("replace")
		if err != nil {
			return req, err
		}
		req.Replace = &seq
	}
	if err := p.Into(&req.Options); err != nil {
		return req, err
	}
	return req, nil
}

func (d *Dispatcher) escrow(ctx context.Context, op string, p Params) (Result, error) {
	c, err := d.xrpl()
	if err != nil {
		return nil, err
	}
	if op != "create" {
		return nil, unsupported(ResourceEscrow, op)
	}
	var req xrpl.EscrowRequest
	if req.Destination, err = p.String("destination"); err != nil {
		return nil, err
	}
	if req.Amount, err = p.String("amount"); err != nil {
		return nil, err
	}
	if req.FinishAfter, err = p.Time("finishAfter"); err != nil {
		return nil, err
	}
	if req.CancelAfter, err = p.Time("cancelAfter"); err != nil {
		return nil, err
	}
	if req.Condition, err = p.OptString("condition", ""); err != nil {
		return nil, err
	}
	if req.DestinationTag, err = p.DestinationTag(); err != nil {
		return nil, err
	}
	return outcome(c.CreateEscrow(ctx, req))
}

func (d *Dispatcher) token(ctx context.Context, op string, p Params) (Result, error) {
	c, err := d.evm()
	if err != nil {
		return nil, err
	}
	switch op {
	case "balance", "ethBalance":
		owner, err := address(p, c.Address())
		if err != nil {
			return nil, err
		}
		read := c.Balance
		if op == "ethBalance" {
			read = c.EthBalance
		}
		bal, err := read(ctx, owner)
		if err != nil {
			return nil, err
		}
		return Result{"address": owner, "balance": bal}, nil
	case "allowance":
		owner, err := p.OptString("owner", c.Address())
		if err != nil {
			return nil, err
		}
		if owner == "" {
			return nil, missing("owner")
		}
		spender, err := p.String("spender")
		if err != nil {
			return nil, err
		}
		allowance, err := c.Allowance(ctx, owner, spender)
		if err != nil {
			return nil, err
		}
		return Result{"owner": owner, "spender": spender, "allowance": allowance}, nil
	case "totalSupply":
		supply, err := c.TotalSupply(ctx)
		if err != nil {
			return nil, err
		}
		return Result{"totalSupply": supply}, nil
	case "decimals":
		dec, err := c.Decimals(ctx)
		if err != nil {
			return nil, err
		}
		return Result{"decimals": dec}, nil
	case "transfer":
		to, err := p.String("destination")
		if err != nil {
			return nil, err
		}
		value, err := p.String("amount")
		if err != nil {
			return nil, err
		}
		return outcome(c.Transfer(ctx, to, value))
	case "approve":
		spender, err := p.String("spender")
		if err != nil {
			return nil, err
		}
		value, err := p.String("amount")
		if err != nil {
			return nil, err
		}
		return outcome(c.Approve(ctx, spender, value))
	case "transferFrom":
		from, err := p.String("owner")
		if err != nil {
			return nil, err
		}
		to, err := p.String("destination")
		if err != nil {
			return nil, err
		}
		value, err := p.String("amount")
		if err != nil {
			return nil, err
		}
		return outcome(c.TransferFrom(ctx, from, to, value))
	default:
		return nil, unsupported(ResourceToken, op)
	}
}

func (d *Dispatcher) transaction(ctx context.Context, op string, p Params) (Result, error) {
	if op != "get" {
		return nil, unsupported(ResourceTransaction, op)
	}
	hash, err := p.String("hash")
	if err != nil {
		return nil, err
	}
	chain, err := p.OptString("chain", "xrpl")
	if err != nil {
		return nil, err
	}
	switch chain {
	case "xrpl":
		c, err := d.xrpl()
		if err != nil {
			return nil, err
		}
		res, err := c.GetTransaction(ctx, hash)
		if err != nil {
			return nil, err
		}
		return toResult("transaction", res)
	case "evm":
		c, err := d.evm()
		if err != nil {
			return nil, err
		}
		r, err := c.GetReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		return toResult("receipt", r)
	default:
		return nil, &ParamError{Name: "chain", Reason: "expected xrpl or evm"}
	}
}
