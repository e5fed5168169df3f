// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	applog "tuner/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketPath is where clients connect.
const WebSocketPath = "/ws"

// broadcastQueue bounds the reports waiting for slow clients; further
// reports are dropped.
const broadcastQueue = 256

// writeWait bounds a single write to one client. A client that stops reading
// is dropped once it expires.
var writeWait = 2 * time.Second

// WebSocketTransport broadcasts every report as JSON to all connected clients.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex // Protects clients and shutdown; never held while writing
	shutdown  bool
	broadcast chan any
	sendMu    sync.Mutex // Protects closed, dropped and closing broadcast
	closed    bool
	server    *http.Server
	listener  net.Listener
	done      chan struct{} // closed when the broadcast loop exits
	dropped   uint64
}

// NewWebSocketTransport listens on addr and serves WebSocketPath.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Tuner displays may be served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		listener:  listener,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux}

	go func() {
		applog.Infof("WebSocketTransport: Serving ws://%s%s", listener.Addr(), WebSocketPath)
		if err := wst.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// Addr is the address actually listened on.
func (wst *WebSocketTransport) Addr() net.Addr {
	return wst.listener.Addr()
}

// ClientCount is the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	if wst.shutdown {
		wst.clientsMu.Unlock()
		conn.Close()
		return
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.removeClient(conn)
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer close(wst.done)
	var targets []*websocket.Conn
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		targets = targets[:0]
		for client := range wst.clients {
			targets = append(targets, client)
		}
		wst.clientsMu.Unlock()

		for _, client := range targets {
			client.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.WriteJSON(data); err != nil {
				applog.Warnf("WebSocketTransport: Error sending to %s: %v", client.RemoteAddr(), err)
				wst.removeClient(client)
			}
		}
	}
}

// Send queues data for broadcast. It never blocks; when the queue is full
// the report is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	wst.sendMu.Lock()
	defer wst.sendMu.Unlock()
	if wst.closed {
		return errors.New("websocket transport is closed")
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.dropped++
		if wst.dropped == 1 || wst.dropped%100 == 0 {
			applog.Warnf("WebSocketTransport: Queue full, %d reports dropped", wst.dropped)
		}
	}
	return nil
}

// Close disconnects all clients and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	wst.sendMu.Lock()
	if wst.closed {
		wst.sendMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.broadcast)
	wst.sendMu.Unlock()

	wst.clientsMu.Lock()
	wst.shutdown = true
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	<-wst.done
	applog.Infof("WebSocketTransport: Closed")
	return wst.server.Close()
}

var _ Transport = (*WebSocketTransport)(nil)
