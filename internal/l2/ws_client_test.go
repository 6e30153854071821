package l2

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// commitServer answers tx_subscribe with a subscription id and, when notify is
// set, immediately pushes the given status.
func commitServer(t *testing.T, notify *TxStatus) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}
			if req.Method != "tx_subscribe" {
				continue
			}

			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  "sub-1",
			})
			if notify != nil {
				c.WriteJSON(map[string]interface{}{
					"jsonrpc": "2.0",
					"method":  "tx_subscribe",
					"params": map[string]interface{}{
						"subscription": "sub-1",
						"result":       notify,
					},
				})
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_WaitTx(t *testing.T) {
	success := true
	block := uint64(42)
	server := commitServer(t, &TxStatus{Executed: true, Success: &success, Block: &block})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status, err := client.WaitTx(ctx, "sync-tx:1")
	if err != nil {
		t.Fatalf("WaitTx: %v", err)
	}
	if status.Failed() {
		t.Error("expected successful status")
	}
	if status.Block == nil || *status.Block != 42 {
		t.Errorf("expected block 42, got %v", status.Block)
	}
}

func TestWSClient_WaitTxFailure(t *testing.T) {
	success := false
	reason := "Not enough balance"
	server := commitServer(t, &TxStatus{Executed: true, Success: &success, FailReason: &reason})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status, err := client.WaitTx(ctx, "sync-tx:1")
	if err != nil {
		t.Fatalf("WaitTx: %v", err)
	}
	if !status.Failed() {
		t.Fatal("expected failed status")
	}
	if !IsInsufficientBalance(status.Reason()) {
		t.Errorf("unexpected reason %q", status.Reason())
	}
}

func TestWSClient_WaitTxContextTimeout(t *testing.T) {
	server := commitServer(t, nil)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.WaitTx(ctx, "sync-tx:1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWSClient_WaitAfterClose(t *testing.T) {
	server := commitServer(t, nil)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// second close is a no-op
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	_, err = client.WaitTx(context.Background(), "sync-tx:1")
	if !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("expected ErrWatcherClosed, got %v", err)
	}
}
