// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"shaderfx/internal/log"
)

const (
	broadcastQueue = 256
	writeWait      = time.Second
)

// WebSocketPath is where clients connect to receive frames.
const WebSocketPath = "/ws"

// WebSocketTransport broadcasts every frame as a JSON text message to all
// connected WebSocket clients. The same HTTP server can host extra handlers,
// such as the Prometheus endpoint, registered with Handle before Start.
type WebSocketTransport struct {
	addr     string
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	broadcast chan any
	done      chan struct{}
	dropped   atomic.Uint64
	closeOnce sync.Once
	wg        sync.WaitGroup

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
	closed    bool

	server   *http.Server
	listener net.Listener
}

// NewWebSocketTransport prepares a transport for addr. Nothing listens until
// Start is called.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux:       http.NewServeMux(),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
		clients:   make(map[*websocket.Conn]struct{}),
	}
	wst.mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	return wst
}

// Handle registers an additional HTTP handler on the transport's server.
func (wst *WebSocketTransport) Handle(pattern string, handler http.Handler) {
	wst.mux.Handle(pattern, handler)
}

// Start binds the listener and begins serving and broadcasting.
func (wst *WebSocketTransport) Start() error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wst.wg.Add(2)
	go func() {
		defer wst.wg.Done()
		log.Infof("WebSocketTransport: serving on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketTransport: server error: %v", err)
		}
	}()
	go func() {
		defer wst.wg.Done()
		wst.handleBroadcasts()
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns the number of frames discarded because the queue was full.
func (wst *WebSocketTransport) Dropped() uint64 {
	return wst.dropped.Load()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	if wst.closed {
		wst.clientsMu.Unlock()
		conn.Close()
		return
	}
	wst.clients[conn] = struct{}{}
	total := len(wst.clients)
	wst.wg.Add(1)
	wst.clientsMu.Unlock()
	defer wst.wg.Done()

	log.Infof("WebSocketTransport: client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	if wst.removeClient(conn) {
		log.Infof("WebSocketTransport: client %s disconnected, total: %d", conn.RemoteAddr(), wst.Clients())
	}
}

// removeClient reports whether conn was still registered.
func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) bool {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
	}
	return ok
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			payload, err := json.Marshal(data)
			if err != nil {
				log.Errorf("WebSocketTransport: failed to encode %T: %v", data, err)
				continue
			}
			wst.writeAll(payload)
		}
	}
}

func (wst *WebSocketTransport) writeAll(payload []byte) {
	wst.clientsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(wst.clients))
	for conn := range wst.clients {
		conns = append(conns, conn)
	}
	wst.clientsMu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warnf("WebSocketTransport: error sending to %s: %v", conn.RemoteAddr(), err)
			wst.removeClient(conn)
		}
	}
}

// Send queues data for broadcast. A full queue drops the frame.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Close disconnects all clients, stops the server and waits for every
// goroutine the transport started.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Infof("WebSocketTransport: closing")
		close(wst.done)

		if wst.server != nil {
			err = wst.server.Close()
		}

		wst.clientsMu.Lock()
		wst.closed = true
		for conn := range wst.clients {
			conn.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		wst.wg.Wait()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
