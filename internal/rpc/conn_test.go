package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// fakeNode answers a handful of commands the way a ledger node does.
func fakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			id := req["id"]
			switch req["command"] {
			case "account_info":
				_ = conn.WriteJSON(map[string]any{
					"id": id, "type": "response", "status": "success",
					"result": map[string]any{
						"account_data": map[string]any{"Account": req["account"], "Balance": "25000000", "Sequence": 7},
						"validated":    true,
					},
				})
			case "subscribe":
				_ = conn.WriteJSON(map[string]any{"id": id, "type": "response", "status": "success", "result": map[string]any{}})
				_ = conn.WriteJSON(map[string]any{"type": "ledgerClosed", "ledger_index": 42, "txn_count": 3})
			case "slow":
				// never answers
			default:
				_ = conn.WriteJSON(map[string]any{
					"id": id, "type": "response", "status": "error",
					"error": "unknownCmd", "error_code": 32, "error_message": "Unknown method.",
				})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnRequestResponse(t *testing.T) {
	srv := fakeNode(t)
	ctx := context.Background()

	conn, err := Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	info, err := NewClient(conn).AccountInfo(ctx, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", "validated")
	require.NoError(t, err)
	assert.Equal(t, "25000000", info.AccountData.Balance)
	assert.Equal(t, uint32(7), info.AccountData.Sequence)
	assert.True(t, info.Validated)
}

func TestConnErrorResponse(t *testing.T) {
	srv := fakeNode(t)
	conn, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Request(context.Background(), "bogus", nil)
	require.Error(t, err)
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "unknownCmd", rpcErr.ErrorString)
	assert.Equal(t, "Unknown method.", rpcErr.Error())
}

func TestConnStreamDispatch(t *testing.T) {
	srv := fakeNode(t)
	conn, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	got := make(chan json.RawMessage, 1)
	remove := conn.AddStreamHandler(func(msg json.RawMessage) { got <- msg })
	defer remove()

	require.NoError(t, NewClient(conn).Subscribe(context.Background(), []string{"ledger"}, nil))

	select {
	case msg := <-got:
		assert.Equal(t, StreamLedgerClosed, StreamType(msg))
		var ev LedgerClosedEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, uint32(42), ev.LedgerIndex)
	case <-time.After(2 * time.Second):
		t.Fatal("stream message not dispatched")
	}
}

func TestConnRequestContextTimeout(t *testing.T) {
	srv := fakeNode(t)
	conn, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = conn.Request(ctx, "slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnClosed(t *testing.T) {
	srv := fakeNode(t)
	conn, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.NotPanics(t, func() { _ = conn.Close() })

	_, err = conn.Request(context.Background(), "account_info", nil)
	assert.ErrorIs(t, err, ledgererr.ErrNetworkUnavailable)

	select {
	case <-conn.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1")
	assert.ErrorIs(t, err, ledgererr.ErrNetworkUnavailable)
}
