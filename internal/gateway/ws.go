package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/somnia-chain/substrate-tx-engine/internal/metrics"
)

// WSGateway is the default Gateway: a persistent WebSocket JSON-RPC
// session to a substrate-style node. It multiplexes request/response
// calls (FetchNonce) and a long-lived notification stream (Submit's
// callbacks) over one connection, demultiplexed by message shape: a
// response carries the request id, a notification carries params.
type WSGateway struct {
	encoder CallEncoder

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  atomic.Int64
	pending map[int64]chan rpcResponse
	subs    map[string]OnEvent

	readDone chan struct{}
}

// NewWSGateway creates a gateway that will encode calls with encoder.
// If encoder is nil, a JSONCallEncoder is used.
func NewWSGateway(encoder CallEncoder) *WSGateway {
	if encoder == nil {
		encoder = JSONCallEncoder{}
	}
	return &WSGateway{
		encoder: encoder,
		pending: make(map[int64]chan rpcResponse),
		subs:    make(map[string]OnEvent),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Params  *rpcNotifParams `json:"params,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcNotifParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type extrinsicStatus struct {
	Type   string        `json:"type"` // "inBlock" or "finalized"
	Events []chainEvent  `json:"events,omitempty"`
}

type chainEvent struct {
	Module string `json:"module"`
	Event  string `json:"event"`
}

// Initialize dials the node and starts the demultiplexing read loop.
func (g *WSGateway) Initialize(ctx context.Context, nodeURL string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, nodeURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	g.mu.Lock()
	g.conn = conn
	g.readDone = make(chan struct{})
	g.mu.Unlock()

	go g.readLoop()

	slog.Info("Gateway connected", "node_url", nodeURL)
	return nil
}

func (g *WSGateway) readLoop() {
	defer close(g.readDone)

	for {
		g.mu.Lock()
		conn := g.conn
		g.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("Gateway read loop exiting", "error", err)
			return
		}

		var msg rpcResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Gateway received malformed frame", "error", err)
			continue
		}

		switch {
		case msg.ID != nil:
			g.mu.Lock()
			ch, ok := g.pending[*msg.ID]
			if ok {
				delete(g.pending, *msg.ID)
			}
			g.mu.Unlock()
			if ok {
				ch <- msg
			}
		case msg.Params != nil:
			g.dispatchNotification(*msg.Params)
		}
	}
}

func (g *WSGateway) dispatchNotification(params rpcNotifParams) {
	g.mu.Lock()
	onEvent, ok := g.subs[params.Subscription]
	g.mu.Unlock()
	if !ok {
		return
	}

	var status extrinsicStatus
	if err := json.Unmarshal(params.Result, &status); err != nil {
		slog.Warn("Gateway received malformed extrinsic status", "error", err)
		return
	}

	failed := false
	for _, ev := range status.Events {
		if strings.EqualFold(ev.Event, "ExtrinsicFailed") {
			failed = true
			break
		}
	}

	var kind EventKind
	switch status.Type {
	case "finalized":
		kind = Finalized
	default:
		kind = InBlock
	}

	onEvent(Event{Kind: kind, ExtrinsicFailed: failed})
}

// call issues a request/response RPC and blocks for the matching reply.
func (g *WSGateway) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayRPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	g.mu.Lock()
	if g.conn == nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("gateway: not initialized")
	}
	id := g.nextID.Add(1)
	ch := make(chan rpcResponse, 1)
	g.pending[id] = ch
	conn := g.conn
	g.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	g.mu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, body)
	g.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("rpc %s: %s", method, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Submit implements Gateway.Submit.
func (g *WSGateway) Submit(ctx context.Context, call Call, signer Signer, nonce uint64, onEvent OnEvent) (string, error) {
	unsigned, err := g.encoder.Encode(call, nonce, nil)
	if err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrSubmitRejected, err)
	}

	sig, err := signer.Sign(unsigned, nonce)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", ErrSubmitRejected, err)
	}

	extrinsic, err := g.encoder.Encode(call, nonce, sig)
	if err != nil {
		return "", fmt.Errorf("%w: encode signed: %v", ErrSubmitRejected, err)
	}

	result, err := g.call(ctx, "chain_submitAndWatchExtrinsic", []string{hexEncode(extrinsic)})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitRejected, err)
	}

	var subID string
	if err := json.Unmarshal(result, &subID); err != nil {
		return "", fmt.Errorf("%w: malformed subscription id: %v", ErrSubmitRejected, err)
	}

	g.mu.Lock()
	g.subs[subID] = onEvent
	g.mu.Unlock()

	return subID, nil
}

// Unsubscribe implements Gateway.Unsubscribe.
func (g *WSGateway) Unsubscribe(subscriptionID string) {
	g.mu.Lock()
	_, ok := g.subs[subscriptionID]
	delete(g.subs, subscriptionID)
	conn := g.conn
	g.mu.Unlock()

	if !ok || conn == nil {
		return
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      g.nextID.Add(1),
		Method:  "chain_unwatchExtrinsic",
		Params:  []string{subscriptionID},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return
	}

	g.mu.Lock()
	_ = g.conn.WriteMessage(websocket.TextMessage, body)
	g.mu.Unlock()
}

// FetchNonce implements Gateway.FetchNonce.
func (g *WSGateway) FetchNonce(ctx context.Context, address string) (uint64, error) {
	result, err := g.call(ctx, "system_accountNextIndex", []string{address})
	if err != nil {
		return 0, err
	}
	var nonce uint64
	if err := json.Unmarshal(result, &nonce); err != nil {
		return 0, fmt.Errorf("malformed nonce response: %w", err)
	}
	return nonce, nil
}

// Close tears down the underlying connection.
func (g *WSGateway) Close() error {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
