// Package rpc is a JSON-RPC 2.0 client over WebSocket with support for
// server-push subscriptions.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const unsubscribeTimeout = 5 * time.Second

var (
	// ErrClosed is returned for calls issued on, or pending during, a closed client.
	ErrClosed = errors.New("rpc client closed")
)

// Error is a JSON-RPC error object returned by the server.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type notificationParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type pendingCall struct {
	resp chan *message
	sub  *Subscription
}

// Client multiplexes calls and subscriptions over one WebSocket connection.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingCall
	subs    map[string]*Subscription
	closing bool
	err     error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to a JSON-RPC WebSocket endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established WebSocket connection and starts its read loop.
func NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]*pendingCall),
		subs:    make(map[string]*Subscription),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop()
	return c
}

// Done is closed once the connection has terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal connection error once Done is closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Call issues method and decodes the result into result, which may be nil.
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	msg, err := c.roundTrip(ctx, method, params, nil)
	if err != nil {
		return err
	}
	if result == nil || len(msg.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Subscribe starts a server-push subscription. Notifications are delivered
// on the returned subscription until Unsubscribe or connection loss.
func (c *Client) Subscribe(ctx context.Context, method, unsubscribeMethod string, params ...any) (*Subscription, error) {
	sub := newSubscription(c, unsubscribeMethod)
	if _, err := c.roundTrip(ctx, method, params, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Close terminates the connection and waits for background goroutines.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		down := c.err != nil
		c.closing = true
		c.mu.Unlock()
		if down {
			return
		}
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	c.wg.Wait()
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, params []any, sub *Subscription) (*message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params == nil {
		params = []any{}
	}
	call := &pendingCall{resp: make(chan *message, 1), sub: sub}

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, c.err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = call
	c.mu.Unlock()

	if err := c.write(ctx, request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case msg := <-call.resp:
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.Err()
	}
}

func (c *Client) write(ctx context.Context, req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.fail(err)
			return
		}
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *message) {
	switch {
	case msg.ID != nil && msg.Method == "":
		c.mu.Lock()
		call, ok := c.pending[*msg.ID]
		delete(c.pending, *msg.ID)
		if ok && call.sub != nil && msg.Error == nil {
			call.sub.id = subscriptionID(msg.Result)
			c.subs[call.sub.id] = call.sub
			c.wg.Add(1)
			go call.sub.forward()
		}
		c.mu.Unlock()
		if ok {
			call.resp <- msg
		}
	case msg.Method != "":
		var params notificationParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return
		}
		c.mu.Lock()
		sub := c.subs[subscriptionID(params.Subscription)]
		c.mu.Unlock()
		if sub != nil {
			sub.deliver(params.Result)
		}
	}
}

func (c *Client) fail(readErr error) {
	c.mu.Lock()
	closing := c.closing
	if closing {
		c.err = ErrClosed
	} else {
		c.err = fmt.Errorf("%w: %v", ErrClosed, readErr)
	}
	err := c.err
	subs := make([]*Subscription, 0, len(c.subs))
	for id, sub := range c.subs {
		subs = append(subs, sub)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	close(c.done)
	for _, sub := range subs {
		sub.terminate(err)
	}
	if !closing {
		_ = c.conn.Close()
	}
}

func (c *Client) removeSubscription(id string) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

// subscriptionID normalises string and numeric subscription ids.
func subscriptionID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
