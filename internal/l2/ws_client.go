package l2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"l2-tipbot/internal/observability"
)

var (
	// ErrWatcherClosed is returned after Close.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrConnectionLost is returned to waiters whose connection dropped or
	// whose subscription was rejected.
	ErrConnectionLost = errors.New("websocket connection lost")
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClient implements TxWatcher using gorilla/websocket.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription id to the waiting channel
	subs   map[string]chan TxStatus
	subsMu sync.Mutex

	// pending maps request id to a subscription awaiting its id
	pending   map[uint64]pendingSub
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[string]chan TxStatus),
		pending:  make(map[uint64]pendingSub),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// WaitTx subscribes to the transaction and waits for its first notification.
func (c *WSClient) WaitTx(ctx context.Context, hash string) (*TxStatus, error) {
	if c.closed.Load() {
		return nil, ErrWatcherClosed
	}

	ch := make(chan TxStatus, 1)
	subID, err := c.subscribe(ctx, hash, ch)
	if err != nil {
		return nil, err
	}
	defer c.unsubscribe(subID)

	select {
	case status, ok := <-ch:
		if !ok {
			return nil, ErrConnectionLost
		}
		return &status, nil
	case <-c.done:
		return nil, ErrWatcherClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingSub is registered as an active subscription by the read loop before
// the waiter learns its id, so an early notification is never lost.
type pendingSub struct {
	confirm chan string
	status  chan TxStatus
}

func (c *WSClient) subscribe(ctx context.Context, hash string, status chan TxStatus) (string, error) {
	reqID := c.requestID.Add(1)
	confirmCh := make(chan string, 1)

	c.pendingMu.Lock()
	c.pending[reqID] = pendingSub{confirm: confirmCh, status: status}
	c.pendingMu.Unlock()

	cleanup := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "tx_subscribe",
		Params:  []interface{}{hash, "COMMIT"},
	}
	if err := c.write(req); err != nil {
		cleanup()
		return "", fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return "", ErrConnectionLost
		}
		return subID, nil
	case <-time.After(c.config.SubscribeTimeout):
		cleanup()
		return "", fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return "", ErrWatcherClosed
	case <-ctx.Done():
		cleanup()
		return "", ctx.Err()
	}
}

func (c *WSClient) unsubscribe(subID string) {
	c.subsMu.Lock()
	delete(c.subs, subID)
	c.subsMu.Unlock()

	if c.closed.Load() {
		return
	}
	_ = c.write(wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "tx_unsubscribe",
		Params:  []interface{}{subID},
	})
}

func (c *WSClient) write(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop dispatches incoming frames. A broken connection fails every
// in-flight waiter and is re-dialled with exponential backoff.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	wait := newBackoff(c.config.ReconnectDelay, c.config.MaxReconnectDelay, 2)
	for !c.closed.Load() {
		conn := c.current()
		if conn == nil {
			if !c.redial(wait) {
				return
			}
			continue
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.drop(conn)
			c.failWaiters()
			continue
		}
		c.handleMessage(frame)
	}
}

func (c *WSClient) current() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// drop forgets conn unless it was already replaced.
func (c *WSClient) drop(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == conn {
		_ = conn.Close()
		c.conn = nil
	}
}

// redial waits out the backoff and tries one reconnect. It reports false
// once the client is closed.
func (c *WSClient) redial(wait *backoff) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(wait.next()):
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.SubscribeTimeout)
	defer cancel()
	if err := c.connect(ctx); err != nil {
		return true
	}
	observability.RecordWSReconnect()
	wait.reset()
	return true
}

// failWaiters closes every pending and active subscription channel.
func (c *WSClient) failWaiters() {
	c.pendingMu.Lock()
	for id, p := range c.pending {
		close(p.confirm)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

// handleMessage processes incoming WebSocket message.
func (c *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if msg.Method == "tx_subscribe" && msg.Params != nil {
		c.subsMu.Lock()
		ch, ok := c.subs[msg.Params.Subscription]
		if ok {
			delete(c.subs, msg.Params.Subscription)
		}
		c.subsMu.Unlock()
		if ok {
			outcome := "committed"
			if msg.Params.Result.Failed() {
				outcome = "failed"
			}
			observability.RecordTxNotification(outcome)
			ch <- msg.Params.Result
		}
		return
	}

	if msg.ID == nil {
		return
	}

	c.pendingMu.Lock()
	p, ok := c.pending[*msg.ID]
	if ok {
		delete(c.pending, *msg.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	var subID string
	if msg.Error != nil || json.Unmarshal(msg.Result, &subID) != nil {
		close(p.confirm)
		return
	}

	c.subsMu.Lock()
	c.subs[subID] = p.status
	c.subsMu.Unlock()
	p.confirm <- subID
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Method  string          `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	Params  *wsNotification `json:"params"`
}

type wsNotification struct {
	Subscription string   `json:"subscription"`
	Result       TxStatus `json:"result"`
}

var _ TxWatcher = (*WSClient)(nil)
