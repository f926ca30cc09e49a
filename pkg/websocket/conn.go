package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/getmocknode/mocknode/internal/id"
	"github.com/getmocknode/mocknode/pkg/diag"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

// writeTimeout bounds a single outbound frame write.
const writeTimeout = 10 * time.Second

// endpoint is one (port, path) mock and its live connections.
type endpoint struct {
	def *mock.WSDefinition

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func newEndpoint(def *mock.WSDefinition) *endpoint {
	return &endpoint{
		def:   def,
		conns: make(map[string]*websocket.Conn),
	}
}

func (ep *endpoint) track(connID string, c *websocket.Conn) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.conns[connID] = c
}

func (ep *endpoint) untrack(connID string) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	delete(ep.conns, connID)
}

// open reports whether the connection is still tracked. Delayed sends
// check this at fire time so a frame is never written to a socket the
// client already left.
func (ep *endpoint) open(connID string) bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	_, ok := ep.conns[connID]
	return ok
}

// closeAll closes every tracked connection with the given status.
func (ep *endpoint) closeAll(status websocket.StatusCode, reason string) {
	ep.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(ep.conns))
	for connID, c := range ep.conns {
		conns = append(conns, c)
		delete(ep.conns, connID)
	}
	ep.mu.Unlock()

	for _, c := range conns {
		c.Close(status, reason)
	}
}

// serveHTTP dispatches an upgrade request on a shared port. A path no
// mock serves still completes the handshake and is then closed with a
// policy-violation status, so clients see a WebSocket-level rejection
// rather than an opaque HTTP error.
func (r *Registry) serveHTTP(binding *portBinding, w http.ResponseWriter, req *http.Request) {
	path := normalizePath(req.URL.Path)

	r.mu.Lock()
	ep := binding.paths[path]
	r.mu.Unlock()

	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		r.log.Debug("websocket accept failed", "port", binding.port, "path", path, "error", err)
		return
	}

	if ep == nil {
		c.Close(websocket.StatusPolicyViolation, "no mock registered for path")
		return
	}

	r.serveConn(ep, c)
}

// serveConn runs one connection: optional welcome frame, then the read
// loop answering inbound messages with the configured reply.
func (r *Registry) serveConn(ep *endpoint, c *websocket.Conn) {
	def := ep.def
	connID := id.Connection()
	ep.track(connID, c)

	r.log.Debug("websocket client connected", "id", def.ID, "conn", connID)
	r.diag.PushNew(diag.EventConnect, def.ID, def.ProjectID, map[string]any{"connectionId": connID})

	defer func() {
		ep.untrack(connID)
		r.diag.PushNew(diag.EventDisconnect, def.ID, def.ProjectID, map[string]any{"connectionId": connID})
	}()

	scope := r.store.Scope(def.ProjectID)

	if def.Welcome != nil && def.Welcome.Enabled {
		go r.sendAfterDelay(ep, connID, c, def.Welcome.Payload, scope)
	}

	ctx := context.Background()
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		message := string(data)
		r.diag.PushNew(diag.EventReceive, def.ID, def.ProjectID, map[string]any{
			"connectionId": connID,
			"message":      message,
		})

		if def.Reply != nil && def.Reply.Enabled {
			go r.sendAfterDelay(ep, connID, c, def.Reply.Payload, scope.With("message", message))
		}
	}
}

// sendAfterDelay waits the mock's configured delay, re-checks that the
// connection is still open, then writes one substituted text frame.
func (r *Registry) sendAfterDelay(ep *endpoint, connID string, c *websocket.Conn, payload string, scope *vars.Scope) {
	def := ep.def
	if def.DelayMs > 0 {
		time.Sleep(time.Duration(def.DelayMs) * time.Millisecond)
	}
	if !ep.open(connID) {
		return
	}

	rendered := template.Stringify(r.engine.Substitute(payload, scope))

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, []byte(rendered)); err != nil {
		r.log.Debug("websocket write failed", "id", def.ID, "conn", connID, "error", err)
		return
	}
	r.diag.PushNew(diag.EventSend, def.ID, def.ProjectID, map[string]any{
		"connectionId": connID,
		"message":      rendered,
	})
}
