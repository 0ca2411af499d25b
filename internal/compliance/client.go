// Package compliance queries an external attestation service for address
// screening. The service is advisory: every failure degrades to a fixed
// unknown/unverified answer instead of an error.
package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	StatusUnknown  = "unknown"
	StatusVerified = "verified"

	SourceRemote   = "remote"
	SourceFallback = "fallback"

	defaultTimeout = 10 * time.Second
	maxBody        = 1 << 20
)

// Screening is the answer for one address.
type Screening struct {
	Address   string    `json:"address"`
	Chain     string    `json:"chain"`
	Status    string    `json:"status"`
	Verified  bool      `json:"verified"`
	RiskLevel string    `json:"riskLevel"`
	Source    string    `json:"source"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Attestation is a reserve or compliance attestation document.
type Attestation struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Verified  bool      `json:"verified"`
	Issuer    string    `json:"issuer,omitempty"`
	IssuedAt  string    `json:"issuedAt,omitempty"`
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Client calls the service at BaseURL. An empty BaseURL answers every
// request with the fallback.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unknown is the fallback screening.
func Unknown(address, chain string, at time.Time) Screening {
	return Screening{
		Address:   address,
		Chain:     chain,
		Status:    StatusUnknown,
		Verified:  false,
		RiskLevel: StatusUnknown,
		Source:    SourceFallback,
		CheckedAt: at.UTC(),
	}
}

// Lookup screens address on chain.
func (c *Client) Lookup(ctx context.Context, address, chain string) Screening {
	fallback := Unknown(address, chain, c.now())
	if c.baseURL == "" {
		return fallback
	}

	q := url.Values{"address": {address}, "chain": {chain}}
	var res Screening
	if err := c.get(ctx, "/v1/screening?"+q.Encode(), &res); err != nil {
		c.logger.Warn("compliance lookup failed, using fallback",
			zap.String("address", address), zap.String("chain", chain), zap.Error(err))
		return fallback
	}
	res.Address, res.Chain = address, chain
	if res.Status == "" {
		res.Status = StatusUnknown
	}
	res.Source = SourceRemote
	if res.CheckedAt.IsZero() {
		res.CheckedAt = fallback.CheckedAt
	}
	return res
}

// Attestation fetches the attestation with id.
func (c *Client) Attestation(ctx context.Context, id string) Attestation {
	fallback := Attestation{ID: id, Status: StatusUnknown, Source: SourceFallback, CheckedAt: c.now().UTC()}
	if c.baseURL == "" {
		return fallback
	}

	var res Attestation
	if err := c.get(ctx, "/v1/attestations/"+url.PathEscape(id), &res); err != nil {
		c.logger.Warn("attestation lookup failed, using fallback", zap.String("id", id), zap.Error(err))
		return fallback
	}
	res.ID = id
	if res.Status == "" {
		res.Status = StatusUnknown
	}
	res.Source = SourceRemote
	if res.CheckedAt.IsZero() {
		res.CheckedAt = fallback.CheckedAt
	}
	return res
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out)
}
