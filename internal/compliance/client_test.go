package compliance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const addr = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

func fixedClock(c *Client) {
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
}

func TestLookupRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/screening", r.URL.Path)
		assert.Equal(t, addr, r.URL.Query().Get("address"))
		assert.Equal(t, "xrpl", r.URL.Query().Get("chain"))
		w.Write([]byte(`{"status":"verified","verified":true,"riskLevel":"low"}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	fixedClock(c)
	res := c.Lookup(context.Background(), addr, "xrpl")

	assert.Equal(t, StatusVerified, res.Status)
	assert.True(t, res.Verified)
	assert.Equal(t, "low", res.RiskLevel)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, addr, res.Address)
	assert.False(t, res.CheckedAt.IsZero())
}

func TestLookupFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(`{"status":`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL)
			fixedClock(c)
			res := c.Lookup(context.Background(), addr, "xrpl")
			assert.Equal(t, Unknown(addr, "xrpl", c.now()), res)
		})
	}
}

func TestLookupUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithHTTPClient(&http.Client{Timeout: time.Second}))
	res := c.Lookup(context.Background(), addr, "evm")
	assert.Equal(t, StatusUnknown, res.Status)
	assert.False(t, res.Verified)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestNoBaseURL(t *testing.T) {
	c := New("")
	assert.Equal(t, SourceFallback, c.Lookup(context.Background(), addr, "xrpl").Source)

	att := c.Attestation(context.Background(), "att-1")
	assert.Equal(t, "att-1", att.ID)
	assert.Equal(t, StatusUnknown, att.Status)
	assert.Equal(t, SourceFallback, att.Source)
}

func TestAttestation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/attestations/2025-05", r.URL.Path)
		w.Write([]byte(`{"status":"verified","verified":true,"issuer":"auditor","issuedAt":"2025-05-31"}`))
	}))
	defer srv.Close()

	att := New(srv.URL).Attestation(context.Background(), "2025-05")
	assert.Equal(t, "2025-05", att.ID)
	assert.True(t, att.Verified)
	assert.Equal(t, "auditor", att.Issuer)
	assert.Equal(t, SourceRemote, att.Source)
}
