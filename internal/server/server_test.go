package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/operation"
	"github.com/LeJamon/goRLUSD/internal/rpc"
	"github.com/LeJamon/goRLUSD/internal/subscription"
)

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	} `json:"error"`
	ID any `json:"id"`
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := NewHub(nil, m)
	d := operation.New(operation.Services{Sink: hub}, operation.WithMetrics(m))
	srv := New(d, hub, Config{Registry: reg, RequestTimeout: 5 * time.Second}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func TestErrorCodeMalformed(t *testing.T) {
	err := ledgererr.Malformed("temBAD_OFFER", "XRP for XRP offer")
	assert.Equal(t, rpc.RpcINVALID_PARAMS, errorCode(err))
	assert.Equal(t, "MalformedTransaction", operation.ErrorKind(err))
}

func post(t *testing.T, url, body string) rpcReply {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply rpcReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}

func TestSingleObject(t *testing.T) {
	ts, _ := newTestServer(t)

	reply := post(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"utility.format","params":{"amount":"1234.5"}}`)
	require.Nil(t, reply.Error)
	assert.EqualValues(t, 1, reply.ID)
	assert.JSONEq(t, `{"formatted":"1,234.50"}`, string(reply.Result))

	// numbers arrive as JSON numbers
	reply = post(t, ts.URL, `{"jsonrpc":"2.0","id":2,"method":"utility.convert","params":[{"amount":1500000,"from":"drops"}]}`)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, `{"amount":"1.5","unit":"xrp"}`, string(reply.Result))
}

func TestBatch(t *testing.T) {
	ts, _ := newTestServer(t)

	reply := post(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"utility.format","params":[{"amount":"1"},{"amount":"2"}]}`)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, `[{"formatted":"1.00"},{"formatted":"2.00"}]`, string(reply.Result))

	reply = post(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"utility.format",
		"params":{"continueOnFail":true,"items":[{"amount":"1"},{"amount":"x"},{"amount":"3"}]}}`)
	require.Nil(t, reply.Error)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(reply.Result, &results))
	require.Len(t, results, 3)
	assert.Equal(t, "InvalidAmount", results[1]["kind"])
	assert.Equal(t, "3.00", results[2]["formatted"])

	reply = post(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"utility.format",
		"params":{"items":[{"amount":"1"},{"amount":"x"},{"amount":"3"}]}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, rpc.RpcINVALID_PARAMS, reply.Error.Code)
	assert.EqualValues(t, 1, reply.Error.Data["index"])
	assert.Len(t, reply.Error.Data["results"], 1)
}

func TestErrorCodes(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
		kind string
	}{
		{"parse", `{"jsonrpc":`, rpc.RpcPARSE_ERROR, ""},
		{"no dot", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, rpc.RpcMETHOD_NOT_FOUND, ""},
		{"unknown pair", `{"jsonrpc":"2.0","id":1,"method":"nft.mint"}`, rpc.RpcMETHOD_NOT_FOUND, "Unsupported"},
		{"missing param", `{"jsonrpc":"2.0","id":1,"method":"utility.format","params":{}}`, rpc.RpcINVALID_PARAMS, "InvalidParams"},
		{"bad params", `{"jsonrpc":"2.0","id":1,"method":"utility.format","params":"x"}`, rpc.RpcINVALID_PARAMS, ""},
		{"not configured", `{"jsonrpc":"2.0","id":1,"method":"token.totalSupply"}`, rpc.RpcINTERNAL, "NotConfigured"},
		{"bad version", `{"jsonrpc":"1.0","id":1,"method":"utility.networks"}`, rpc.RpcJSON_RPC, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := post(t, ts.URL, tt.body)
			require.NotNil(t, reply.Error)
			assert.Equal(t, tt.code, reply.Error.Code)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, reply.Error.Data["kind"])
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	ts, _ := newTestServer(t)

	reply := post(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"catalog"}`)
	require.Nil(t, reply.Error)
	var catalog map[string][]string
	require.NoError(t, json.Unmarshal(reply.Result, &catalog))
	assert.Contains(t, catalog["dex"], "createOffer")
}

func TestHTTPRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","service":"rlusd"}`, string(body))

	post(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"utility.networks"}`)
	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `rlusd_api_requests_total{method="utility.networks",outcome="ok"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func (h *Hub) wantedBy(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.wants(id) {
			n++
		}
	}
	return n
}

func TestHubStreamsEvents(t *testing.T) {
	ts, hub := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(control{Op: "subscribe", Channels: []string{"sub-a"}}))
	require.Eventually(t, func() bool { return hub.wantedBy("sub-a") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.wantedBy("sub-b"))

	require.NoError(t, hub.Deliver(subscription.Event{ID: "ev-2", SubscriptionID: "sub-b"}))
	require.NoError(t, hub.Deliver(subscription.Event{ID: "ev-1", SubscriptionID: "sub-a", Amount: "5"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev subscription.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "ev-1", ev.ID)
	assert.Equal(t, "5", ev.Amount)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubChecksOrigin(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := New(operation.New(operation.Services{Sink: hub}), hub, Config{AllowedOrigins: []string{"https://app.example"}}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", "https://app.example", true},
		{"other origin", "https://evil.example", false},
		{"no origin", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if !tt.ok {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			conn.Close()
		})
	}
}
