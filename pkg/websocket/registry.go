// Package websocket serves WebSocket mock nodes: per-port listeners shared
// by path-keyed endpoints, welcome and reply frames with configurable
// delays, and connection lifecycle diagnostics.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/getmocknode/mocknode/pkg/diag"
	"github.com/getmocknode/mocknode/pkg/engine"
	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

// closeTimeout bounds listener teardown, matching the HTTP registry.
const closeTimeout = 20 * time.Second

// PathConflictError reports a register attempt against a (port, path)
// pair another mock already serves. The existing listener is untouched.
type PathConflictError struct {
	Port int
	Path string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("path %s on port %d is already registered", e.Path, e.Port)
}

// ErrMockNotFound is returned by Lookup for unknown mock ids.
var ErrMockNotFound = errors.New("websocket mock not found")

// portBinding is one shared listener and its path-keyed endpoints.
type portBinding struct {
	port  int
	srv   *http.Server
	paths map[string]*endpoint
}

// Registry owns the WebSocket mock lifecycle. Mocks sharing a port share
// its listener; each must declare a distinct path.
type Registry struct {
	engine *template.Engine
	store  *vars.Store
	diag   *diag.Channel
	log    *slog.Logger

	mu       sync.Mutex
	ports    map[int]*portBinding
	mockKeys map[string]mockKey
}

type mockKey struct {
	port int
	path string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithDiagnostics sets the diagnostics channel.
func WithDiagnostics(ch *diag.Channel) Option {
	return func(r *Registry) { r.diag = ch }
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(eng *template.Engine, store *vars.Store, opts ...Option) *Registry {
	r := &Registry{
		engine:   eng,
		store:    store,
		log:      logging.Nop(),
		ports:    make(map[int]*portBinding),
		mockKeys: make(map[string]mockKey),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register starts serving the given mock. A duplicate path on an already
// bound port is rejected without disturbing the existing listener.
func (r *Registry) Register(def *mock.WSDefinition) error {
	def = def.Clone()
	path := normalizePath(def.Path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mockKeys[def.ID]; exists {
		return fmt.Errorf("websocket mock %s is already registered", def.ID)
	}

	binding, ok := r.ports[def.Port]
	if ok {
		if _, taken := binding.paths[path]; taken {
			err := &PathConflictError{Port: def.Port, Path: path}
			r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, err.Error())
			r.diag.Status(diag.Status{
				NodeID:    def.ID,
				ProjectID: def.ProjectID,
				State:     diag.StateError,
				Port:      def.Port,
				Path:      path,
				Error:     err.Error(),
			})
			return err
		}
	} else {
		var err error
		binding, err = r.bind(def.Port)
		if err != nil {
			r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, err.Error())
			r.diag.Status(diag.Status{
				NodeID:    def.ID,
				ProjectID: def.ProjectID,
				State:     diag.StateError,
				Port:      def.Port,
				Path:      path,
				Error:     err.Error(),
			})
			return err
		}
		r.ports[def.Port] = binding
	}

	binding.paths[path] = newEndpoint(def)
	r.mockKeys[def.ID] = mockKey{port: def.Port, path: path}

	r.log.Info("websocket mock registered", "id", def.ID, "port", def.Port, "path", path)
	r.diag.PushNew(diag.EventStart, def.ID, def.ProjectID, nil)
	r.diag.Status(diag.Status{
		NodeID:    def.ID,
		ProjectID: def.ProjectID,
		State:     diag.StateRunning,
		Port:      def.Port,
		Path:      path,
	})
	return nil
}

// bind opens a listener on port. Caller holds the registry lock.
func (r *Registry) bind(port int) (*portBinding, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, &engine.PortConflictError{Port: port}
		}
		return nil, &engine.BindError{Port: port, Err: err}
	}

	binding := &portBinding{
		port:  port,
		paths: make(map[string]*endpoint),
	}
	binding.srv = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.serveHTTP(binding, w, req)
		}),
	}

	go func() {
		err := binding.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.listenerDied(binding, err)
		}
	}()
	return binding, nil
}

func (r *Registry) listenerDied(binding *portBinding, cause error) {
	r.mu.Lock()
	if r.ports[binding.port] != binding {
		r.mu.Unlock()
		return
	}
	delete(r.ports, binding.port)
	orphans := make([]*mock.WSDefinition, 0, len(binding.paths))
	for _, ep := range binding.paths {
		delete(r.mockKeys, ep.def.ID)
		orphans = append(orphans, ep.def)
	}
	r.mu.Unlock()

	r.log.Error("websocket listener died", "port", binding.port, "error", cause)
	for _, def := range orphans {
		r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, cause.Error())
		r.diag.Status(diag.Status{
			NodeID:    def.ID,
			ProjectID: def.ProjectID,
			State:     diag.StateError,
			Port:      binding.port,
			Path:      def.Path,
			Error:     cause.Error(),
		})
	}
}

// Unregister stops serving the given mock: open connections are closed
// with a going-away status, and the listener is torn down when the mock
// was the last one on its port. Unknown ids report already stopped.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	key, ok := r.mockKeys[id]
	if !ok {
		r.mu.Unlock()
		r.diag.PushNew(diag.EventAlreadyStopped, id, "", nil)
		r.diag.Status(diag.Status{NodeID: id, State: diag.StateStopped})
		return nil
	}

	binding := r.ports[key.port]
	ep := binding.paths[key.path]
	delete(binding.paths, key.path)
	delete(r.mockKeys, id)

	last := len(binding.paths) == 0
	if last {
		delete(r.ports, key.port)
	}
	r.mu.Unlock()

	ep.closeAll(websocket.StatusGoingAway, "mock unregistered")

	var closeErr error
	if last {
		closeErr = binding.close()
		if closeErr != nil {
			r.log.Warn("websocket listener close timed out", "port", key.port)
		}
	}

	r.log.Info("websocket mock unregistered", "id", id, "port", key.port, "path", key.path)
	r.diag.PushNew(diag.EventStop, id, ep.def.ProjectID, nil)
	r.diag.Status(diag.Status{
		NodeID:    id,
		ProjectID: ep.def.ProjectID,
		State:     diag.StateStopped,
		Port:      key.port,
		Path:      key.path,
	})
	return closeErr
}

func (b *portBinding) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := b.srv.Shutdown(ctx); err != nil {
		b.srv.Close()
		return &engine.CloseTimeoutError{Port: b.port}
	}
	return nil
}

// Lookup returns a copy of a registered mock's definition.
func (r *Registry) Lookup(id string) (*mock.WSDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.mockKeys[id]
	if !ok {
		return nil, ErrMockNotFound
	}
	return r.ports[key.port].paths[key.path].def.Clone(), nil
}

// ListStates reports the serving state of registered mocks. A non-empty
// projectID restricts the report to that project; empty means all.
func (r *Registry) ListStates(projectID string) []diag.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]diag.Status, 0, len(r.mockKeys))
	for _, binding := range r.ports {
		for path, ep := range binding.paths {
			if projectID != "" && ep.def.ProjectID != projectID {
				continue
			}
			out = append(out, diag.Status{
				NodeID:    ep.def.ID,
				ProjectID: ep.def.ProjectID,
				State:     diag.StateRunning,
				Port:      binding.port,
				Path:      path,
			})
		}
	}
	return out
}

// Shutdown tears down every listener and connection. Used on process exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	bindings := make([]*portBinding, 0, len(r.ports))
	for port, binding := range r.ports {
		delete(r.ports, port)
		bindings = append(bindings, binding)
	}
	for id := range r.mockKeys {
		delete(r.mockKeys, id)
	}
	r.mu.Unlock()

	for _, binding := range bindings {
		for _, ep := range binding.paths {
			ep.closeAll(websocket.StatusGoingAway, "shutting down")
		}
		binding.close()
	}
}

// normalizePath ensures a leading slash and strips any query suffix.
func normalizePath(path string) string {
	if q := strings.IndexByte(path, '?'); q >= 0 {
		path = path[:q]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
