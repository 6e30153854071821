package l2

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"l2-tipbot/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
// Reads may be retried when configured; submissions never are.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for read calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new network RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error reported by the network node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a read JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	return c.do(ctx, method, params, result, c.maxRetries)
}

// do performs a JSON-RPC call with up to maxRetries retries.
func (c *HTTPClient) do(ctx context.Context, method string, params []interface{}, result interface{}, maxRetries int) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
		if err != nil {
			observability.RecordRPCError(method)
		}
	}()

	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	wait := newBackoff(c.retryDelay, c.maxDelay, c.backoffMult)
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait.next()):
			}
		}

		raw, err := c.post(ctx, body)
		if err != nil {
			lastErr = err
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(raw, &rpcResp); err != nil {
			lastErr = fmt.Errorf("decode %s response: %w", method, err)
			continue
		}
		// The node answered; its errors are final.
		if rpcResp.Error != nil {
			return rpcResp.Error
		}
		if result == nil || rpcResp.Result == nil {
			return nil
		}
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}

	if maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", method, maxRetries+1, lastErr)
}

// post sends one request body and returns the raw response of a 200 reply.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.New("rate limited")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}

// GetAccountState retrieves committed account state.
func (c *HTTPClient) GetAccountState(ctx context.Context, address string) (*AccountState, error) {
	var result accountInfoResult
	if err := c.call(ctx, "account_info", []interface{}{address}, &result); err != nil {
		return nil, err
	}

	state := &AccountState{
		Address:    address,
		ID:         result.ID,
		Balances:   make(map[string]*big.Int, len(result.Committed.Balances)),
		Nonce:      result.Committed.Nonce,
		PubKeyHash: result.Committed.PubKeyHash,
	}
	for ticker, raw := range result.Committed.Balances {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("parse %s balance %q", ticker, raw)
		}
		state.Balances[ticker] = v
	}
	return state, nil
}

// accountInfoResult is the raw RPC response for account_info.
type accountInfoResult struct {
	Address   string             `json:"address"`
	ID        *uint32            `json:"id"`
	Committed accountStateResult `json:"committed"`
}

type accountStateResult struct {
	Balances   map[string]string `json:"balances"`
	Nonce      uint32            `json:"nonce"`
	PubKeyHash string            `json:"pubKeyHash"`
}

// GetTxFee quotes the total fee for a transaction.
func (c *HTTPClient) GetTxFee(ctx context.Context, txType TxType, address, ticker string) (*big.Int, error) {
	var typeParam interface{} = string(txType)
	if txType == TxChangePubKey {
		typeParam = map[string]interface{}{"ChangePubKey": "ECDSA"}
	}

	var result txFeeResult
	if err := c.call(ctx, "get_tx_fee", []interface{}{typeParam, address, ticker}, &result); err != nil {
		return nil, err
	}

	fee, ok := new(big.Int).SetString(result.TotalFee, 10)
	if !ok {
		return nil, fmt.Errorf("parse total fee %q", result.TotalFee)
	}
	return fee, nil
}

// txFeeResult is the raw RPC response for get_tx_fee.
type txFeeResult struct {
	FeeType  interface{} `json:"feeType"`
	GasFee   string      `json:"gasFee"`
	ZkpFee   string      `json:"zkpFee"`
	TotalFee string      `json:"totalFee"`
}

// SubmitTx broadcasts a signed transaction exactly once.
func (c *HTTPClient) SubmitTx(ctx context.Context, tx interface{}, sig *EthSignature) (string, error) {
	var hash string
	if err := c.do(ctx, "tx_submit", []interface{}{tx, sig}, &hash, 0); err != nil {
		return "", err
	}
	return hash, nil
}

// GetTokenPrice returns the USD price of one whole token.
func (c *HTTPClient) GetTokenPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var price decimal.Decimal
	if err := c.call(ctx, "get_token_price", []interface{}{ticker}, &price); err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// GetTokens lists network tokens ordered by id.
func (c *HTTPClient) GetTokens(ctx context.Context) ([]TokenInfo, error) {
	var result map[string]TokenInfo
	if err := c.call(ctx, "tokens", nil, &result); err != nil {
		return nil, err
	}

	tokens := make([]TokenInfo, 0, len(result))
	for _, t := range result {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens, nil
}

// EncodeSignature wraps a raw 65-byte signature for submission.
func EncodeSignature(sig []byte) *EthSignature {
	return &EthSignature{
		Type:      "EthereumSignature",
		Signature: "0x" + hex.EncodeToString(sig),
	}
}

var _ Client = (*HTTPClient)(nil)
