// Package substratetest provides an in-process fake Substrate JSON-RPC node.
package substratetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Node answers the handful of methods the balance workflow uses.
type Node struct {
	// Heads are pushed, in order, right after a finalized head subscription.
	Heads []uint64
	// Storage maps 0x-prefixed keys to 0x-prefixed SCALE values.
	Storage map[string]string
	// StorageError, when non-zero, is returned as the error code of every
	// state_getStorage call.
	StorageError int

	server *httptest.Server

	mu            sync.Mutex
	unsubscribes  int
	storageReads  int
	subscriptions int
	accepted      int
	conns         []*websocket.Conn
}

// NewNode starts a fake node. Call Close when done.
func NewNode() *Node {
	n := &Node{Storage: map[string]string{}}
	n.server = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// URL is the ws:// endpoint of the node.
func (n *Node) URL() string {
	return "ws" + strings.TrimPrefix(n.server.URL, "http")
}

// Close stops the node and drops every open connection.
func (n *Node) Close() {
	n.DropConnections()
	n.server.Close()
}

// DropConnections abruptly closes every accepted connection.
func (n *Node) DropConnections() {
	n.mu.Lock()
	conns := n.conns
	n.conns = nil
	n.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// Unsubscribes counts chain_unsubscribeFinalizedHeads calls.
func (n *Node) Unsubscribes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unsubscribes
}

// Accepted counts websocket connections accepted so far.
func (n *Node) Accepted() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accepted
}

// StorageReads counts state_getStorage calls.
func (n *Node) StorageReads() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.storageReads
}

type request struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	n.mu.Lock()
	n.accepted++
	n.conns = append(n.conns, conn)
	n.mu.Unlock()
	defer conn.Close()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if err := n.handle(conn, req); err != nil {
			return
		}
	}
}

func (n *Node) handle(conn *websocket.Conn, req request) error {
	switch req.Method {
	case "chain_subscribeFinalizedHeads":
		n.mu.Lock()
		n.subscriptions++
		subID := fmt.Sprintf("sub-%d", n.subscriptions)
		heads := append([]uint64(nil), n.Heads...)
		n.mu.Unlock()
		if err := reply(conn, req.ID, subID); err != nil {
			return err
		}
		for _, h := range heads {
			note := map[string]any{
				"jsonrpc": "2.0",
				"method":  "chain_finalizedHead",
				"params": map[string]any{
					"subscription": subID,
					"result":       map[string]string{"number": fmt.Sprintf("0x%x", h)},
				},
			}
			if err := conn.WriteJSON(note); err != nil {
				return err
			}
		}
		return nil
	case "chain_unsubscribeFinalizedHeads":
		n.mu.Lock()
		n.unsubscribes++
		n.mu.Unlock()
		return reply(conn, req.ID, true)
	case "state_getStorage":
		n.mu.Lock()
		n.storageReads++
		code := n.StorageError
		var key string
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params[0], &key)
		}
		value, ok := n.Storage[key]
		n.mu.Unlock()
		if code != 0 {
			return replyError(conn, req.ID, code, "storage unavailable")
		}
		if !ok {
			return reply(conn, req.ID, nil)
		}
		return reply(conn, req.ID, value)
	default:
		return replyError(conn, req.ID, -32601, "method not found")
	}
}

func reply(conn *websocket.Conn, id uint64, result any) error {
	return conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func replyError(conn *websocket.Conn, id uint64, code int, msg string) error {
	return conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": code, "message": msg},
	})
}
