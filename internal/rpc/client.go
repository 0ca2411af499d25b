package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Requester sends one command and returns its result. *Conn implements it;
// tests substitute canned responders.
type Requester interface {
	Request(ctx context.Context, command string, params map[string]any) (json.RawMessage, error)
}

// Client exposes the typed commands the engine uses.
type Client struct {
	r Requester
}

func NewClient(r Requester) *Client {
	return &Client{r: r}
}

func (c *Client) call(ctx context.Context, command string, params map[string]any, out any) error {
	raw, err := c.r.Request(ctx, command, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", command, err)
	}
	return nil
}

// AccountInfo returns the AccountRoot of account in the given ledger
// ("validated" or "current").
func (c *Client) AccountInfo(ctx context.Context, account, ledgerIndex string) (*AccountInfoResult, error) {
	var res AccountInfoResult
	err := c.call(ctx, "account_info", map[string]any{
		"account":      account,
		"ledger_index": ledgerIndex,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// AccountLines returns every trust line of account, following markers.
// peer, when set, restricts the lines to that counterparty.
func (c *Client) AccountLines(ctx context.Context, account, peer string) ([]TrustLine, error) {
	var lines []TrustLine
	var marker json.RawMessage
	for {
		params := map[string]any{
			"account":      account,
			"ledger_index": "validated",
		}
		if peer != "" {
			params["peer"] = peer
		}
		if marker != nil {
			params["marker"] = marker
		}
		var res accountLinesResult
		if err := c.call(ctx, "account_lines", params, &res); err != nil {
			return nil, err
		}
		lines = append(lines, res.Lines...)
		if len(res.Marker) == 0 || string(res.Marker) == "null" {
			return lines, nil
		}
		marker = res.Marker
	}
}

// AccountOffers returns the resting offers owned by account.
func (c *Client) AccountOffers(ctx context.Context, account string) ([]AccountOffer, error) {
	var offers []AccountOffer
	var marker json.RawMessage
	for {
		params := map[string]any{
			"account":      account,
			"ledger_index": "validated",
		}
		if marker != nil {
			params["marker"] = marker
		}
		var res accountOffersResult
		if err := c.call(ctx, "account_offers", params, &res); err != nil {
			return nil, err
		}
		offers = append(offers, res.Offers...)
		if len(res.Marker) == 0 || string(res.Marker) == "null" {
			return offers, nil
		}
		marker = res.Marker
	}
}

// BookOffers returns up to limit offers in the book where takers receive
// gets and pay with pays, best quality first.
func (c *Client) BookOffers(ctx context.Context, gets, pays Issue, limit int) ([]BookOffer, error) {
	params := map[string]any{
		"taker_gets":   gets.wire(),
		"taker_pays":   pays.wire(),
		"ledger_index": "validated",
	}
	if limit > 0 {
		params["limit"] = limit
	}
	var res bookOffersResult
	if err := c.call(ctx, "book_offers", params, &res); err != nil {
		return nil, err
	}
	return res.Offers, nil
}

// Submit sends a signed blob and returns the preliminary result.
func (c *Client) Submit(ctx context.Context, txBlob string) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.call(ctx, "submit", map[string]any{"tx_blob": txBlob}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Tx looks up a transaction by hash.
func (c *Client) Tx(ctx context.Context, hash string) (*TxResult, error) {
	raw, err := c.r.Request(ctx, "tx", map[string]any{"transaction": hash})
	if err != nil {
		return nil, err
	}
	var res TxResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding tx result: %w", err)
	}
	res.Raw = raw
	return &res, nil
}

// Fee returns the current fee levels.
func (c *Client) Fee(ctx context.Context) (*FeeResult, error) {
	var res FeeResult
	if err := c.call(ctx, "fee", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ServerState returns the node's view of the last validated ledger.
func (c *Client) ServerState(ctx context.Context) (*ServerState, error) {
	var res ServerState
	if err := c.call(ctx, "server_state", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Subscribe starts the named streams and account feeds.
func (c *Client) Subscribe(ctx context.Context, streams, accounts []string) error {
	return c.call(ctx, "subscribe", subscriptionParams(streams, accounts), nil)
}

// Unsubscribe stops the named streams and account feeds.
func (c *Client) Unsubscribe(ctx context.Context, streams, accounts []string) error {
	return c.call(ctx, "unsubscribe", subscriptionParams(streams, accounts), nil)
}

func subscriptionParams(streams, accounts []string) map[string]any {
	params := map[string]any{}
	if len(streams) > 0 {
		params["streams"] = streams
	}
	if len(accounts) > 0 {
		params["accounts"] = accounts
	}
	return params
}
