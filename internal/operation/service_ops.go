package operation

import (
	"context"
	"fmt"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/registry"
	"github.com/LeJamon/goRLUSD/internal/subscription"
)

func (d *Dispatcher) subscriber(chain string) (Subscriber, error) {
	switch chain {
	case "xrpl":
		return d.xrpl()
	case "evm":
		return d.evm()
	default:
		return nil, &ParamError{Name: "chain", Reason: "expected xrpl or evm"}
	}
}

// chainOf is the ledger a subscription kind belongs to.
func chainOf(k subscription.Kind) string {
	if k == subscription.KindBlock || k == subscription.KindContractTransfer {
		return "evm"
	}
	return "xrpl"
}

func (d *Dispatcher) subscription(ctx context.Context, op string, p Params) (Result, error) {
	switch op {
	case "start":
		if d.svc.Sink == nil {
			return nil, fmt.Errorf("%w: event sink", ErrNotConfigured)
		}
		kind, err := p.String("kind")
		if err != nil {
			return nil, err
		}
		f := subscription.Filter{Kind: subscription.Kind(kind)}
		if f.WatchAddress, err = p.OptString("watchAddress", ""); err != nil {
			return nil, err
		}
		if f.MinAmount, err = p.OptString("minAmount", ""); err != nil {
			return nil, err
		}
		dir, err := p.OptString("direction", "")
		if err != nil {
			return nil, err
		}
		if f.Direction, err = subscription.ParseDirection(dir); err != nil {
			return nil, &ParamError{Name: "direction", Reason: err.Error()}
		}
		s, err := d.subscriber(chainOf(f.Kind))
		if err != nil {
			return nil, err
		}
		sub, err := s.Subscribe(ctx, f, d.svc.Sink)
		if err != nil {
			return nil, err
		}
		return toResult("subscription", sub.Info())
	case "stop":
		id, err := p.String("id")
		if err != nil {
			return nil, err
		}
		stopped := false
		for _, s := range d.subscribers() {
			if !hasSubscription(s, id) {
				continue
			}
			if err := s.Unsubscribe(ctx, id); err != nil {
				return nil, err
			}
			stopped = true
		}
		return Result{"id": id, "stopped": stopped}, nil
	case "list":
		infos := []subscription.Info{}
		for _, s := range d.subscribers() {
			infos = append(infos, s.Subscriptions()...)
		}
		return Result{"subscriptions": infos}, nil
	default:
		return nil, unsupported(ResourceSubscription, op)
	}
}

func (d *Dispatcher) subscribers() []Subscriber {
	var out []Subscriber
	if d.svc.XRPL != nil {
		out = append(out, d.svc.XRPL)
	}
	if d.svc.EVM != nil {
		out = append(out, d.svc.EVM)
	}
	return out
}

func (d *Dispatcher) compliance(ctx context.Context, op string, p Params) (Result, error) {
	if d.svc.Compliance == nil {
		return nil, fmt.Errorf("%w: compliance service", ErrNotConfigured)
	}
	switch op {
	case "lookup":
		addr, err := p.String("address")
		if err != nil {
			return nil, err
		}
		chain, err := p.OptString("chain", "")
		if err != nil {
			return nil, err
		}
		if chain == "" {
			chain = "xrpl"
			if tx.IsValidEVMAddress(addr) {
				chain = "evm"
			}
		}
		return toResult("screening", d.svc.Compliance.Lookup(ctx, addr, chain))
	case "attestation":
		id, err := p.String("attestationId")
		if err != nil {
			return nil, err
		}
		return toResult("attestation", d.svc.Compliance.Attestation(ctx, id))
	default:
		return nil, unsupported(ResourceCompliance, op)
	}
}

func hasSubscription(s Subscriber, id string) bool {
	for _, info := range s.Subscriptions() {
		if info.ID == id {
			return true
		}
	}
	return false
}

// unit conversions accepted by utility.convert, keyed by source unit.
// Display sources carry their scale so JSON numbers can be converted.
var conversions = map[string]struct {
	to    string
	fn    func(string) (string, error)
	scale int32
}{
	"drops": {"xrp", amount.DropsToXRP, 0},
	"xrp":   {"drops", amount.XRPToDrops, amount.NativeScale},
	"wei":   {"rlusd", amount.WeiToToken, 0},
	"rlusd": {"wei", amount.TokenToWei, amount.TokenScale},
}

func (d *Dispatcher) utility(op string, p Params) (Result, error) {
	switch op {
	case "convert":
		from, err := p.String("from")
		if err != nil {
			return nil, err
		}
		conv, ok := conversions[from]
		if !ok {
			return nil, &ParamError{Name: "from", Reason: "expected drops, xrp, wei or rlusd"}
		}
		var out string
		if f, isNumber := p["amount"].(float64); isNumber && conv.scale > 0 {
			// a numeric display amount keeps only its shortest decimal form
			out, err = amount.FloatToSmallest(f, conv.scale)
		} else {
			var value string
			if value, err = p.String("amount"); err != nil {
				return nil, err
			}
			out, err = conv.fn(value)
		}
		if err != nil {
			return nil, err
		}
		return Result{"amount": out, "unit": conv.to}, nil
	case "format":
		value, err := p.String("amount")
		if err != nil {
			return nil, err
		}
		out, err := amount.Format(value)
		if err != nil {
			return nil, err
		}
		return Result{"formatted": out}, nil
	case "parse":
		text, err := p.String("text")
		if err != nil {
			return nil, err
		}
		out, err := amount.ParseFormatted(text)
		if err != nil {
			return nil, err
		}
		return Result{"amount": out}, nil
	case "validateAddress":
		addr, err := p.String("address")
		if err != nil {
			return nil, err
		}
		xrplOK, evmOK := tx.IsValidXRPLAddress(addr), tx.IsValidEVMAddress(addr)
		return Result{"address": addr, "valid": xrplOK || evmOK, "xrpl": xrplOK, "evm": evmOK}, nil
	case "networks":
		return Result{"networks": registry.Networks()}, nil
	case "registry":
		network, err := p.String("network")
		if err != nil {
			return nil, err
		}
		e, err := registry.Lookup(network)
		if err != nil {
			return nil, &ParamError{Name: "network", Reason: err.Error()}
		}
		return Result{
			"network":  e.Network,
			"family":   e.Family,
			"tier":     e.Tier,
			"official": e.Official,
			"address":  e.Address(),
			"decimals": e.Decimals,
			"endpoint": e.Endpoint,
			"chainId":  e.ChainID,
			"currency": registry.Currency,
		}, nil
	default:
		return nil, unsupported(ResourceUtility, op)
	}
}
