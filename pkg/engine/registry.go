// Package engine is the HTTP serving core: the mock registry with
// port-sharing listeners, request matching, response selection, and the
// write path that turns a synthesized result into bytes on the wire.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/getmocknode/mocknode/pkg/diag"
	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/sse"
	"github.com/getmocknode/mocknode/pkg/synth"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

// closeTimeout bounds listener teardown. Past the budget the registry
// entry is dropped and remaining connections are cut.
const closeTimeout = 20 * time.Second

// portBinding is one shared listener and the mocks served on it. The
// order slice preserves registration order so specificity ties resolve
// to the earliest registered mock, deterministically across requests.
type portBinding struct {
	port  int
	srv   *http.Server
	mocks map[string]*mock.HTTPDefinition
	order []string
}

func (b *portBinding) remove(id string) {
	delete(b.mocks, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Registry owns the HTTP mock lifecycle. One listener is opened per
// distinct port; mocks on the same port share it, and the listener is
// torn down when its last mock is unregistered.
type Registry struct {
	engine      *template.Engine
	store       *vars.Store
	synthesizer *synth.Synthesizer
	streams     *sse.Controller
	diag        *diag.Channel
	log         *slog.Logger

	mu        sync.Mutex
	ports     map[int]*portBinding
	mockPorts map[string]int
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
func NewRegistry(engine *template.Engine, store *vars.Store, synthesizer *synth.Synthesizer, opts ...Option) *Registry {
	r := &Registry{
		engine:      engine,
		store:       store,
		synthesizer: synthesizer,
		log:         logging.Nop(),
		ports:       make(map[int]*portBinding),
		mockPorts:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.streams = sse.NewController(engine, r.log)
	return r
}

// Register starts serving the given mock. When another mock already holds
// the port, the listener is shared; otherwise a new one is opened. On a
// bind failure nothing is registered and an error status is emitted.
func (r *Registry) Register(def *mock.HTTPDefinition) error {
	def = def.Clone()
	port := def.RequestCondition.Port

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mockPorts[def.ID]; exists {
		return fmt.Errorf("mock %s is already registered", def.ID)
	}

	binding, ok := r.ports[port]
	if !ok {
		var err error
		binding, err = r.bind(port)
		if err != nil {
			r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, err.Error())
			r.diag.Status(diag.Status{
				NodeID:    def.ID,
				ProjectID: def.ProjectID,
				State:     diag.StateError,
				Port:      port,
				Error:     err.Error(),
			})
			return err
		}
		r.ports[port] = binding
	}

	binding.mocks[def.ID] = def
	binding.order = append(binding.order, def.ID)
	r.mockPorts[def.ID] = port

	r.log.Info("http mock registered", "id", def.ID, "port", port, "pattern", def.RequestCondition.URLPattern)
	r.diag.PushNew(diag.EventStart, def.ID, def.ProjectID, nil)
	r.diag.Status(diag.Status{
		NodeID:    def.ID,
		ProjectID: def.ProjectID,
		State:     diag.StateRunning,
		Port:      port,
	})
	return nil
}

// bind opens a listener on port and starts its serve loop. Caller holds
// the registry lock.
func (r *Registry) bind(port int) (*portBinding, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, &PortConflictError{Port: port}
		}
		return nil, &BindError{Port: port, Err: err}
	}

	binding := &portBinding{
		port:  port,
		mocks: make(map[string]*mock.HTTPDefinition),
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

// listenerDied handles a serve loop ending for any reason other than an
// orderly shutdown: every mock on the port is force-unregistered.
func (r *Registry) listenerDied(binding *portBinding, cause error) {
	r.mu.Lock()
	if r.ports[binding.port] != binding {
		r.mu.Unlock()
		return
	}
	delete(r.ports, binding.port)
	orphans := make([]*mock.HTTPDefinition, 0, len(binding.mocks))
	for id, def := range binding.mocks {
		delete(r.mockPorts, id)
		orphans = append(orphans, def)
	}
	r.mu.Unlock()

	r.log.Error("listener died", "port", binding.port, "error", cause)
	for _, def := range orphans {
		r.diag.PushNew(diag.EventError, def.ID, def.ProjectID, cause.Error())
		r.diag.Status(diag.Status{
			NodeID:    def.ID,
			ProjectID: def.ProjectID,
			State:     diag.StateError,
			Port:      binding.port,
			Error:     cause.Error(),
		})
	}
}

// Unregister stops serving the given mock. Unregistering an unknown id is
// reported as already stopped, not as a failure. When the mock is the last
// one on its port the listener is torn down; teardown past the close
// budget returns a CloseTimeoutError, but the entry is dropped regardless.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	port, ok := r.mockPorts[id]
	if !ok {
		r.mu.Unlock()
		r.diag.PushNew(diag.EventAlreadyStopped, id, "", nil)
		r.diag.Status(diag.Status{NodeID: id, State: diag.StateStopped})
		return nil
	}

	binding := r.ports[port]
	def := binding.mocks[id]
	binding.remove(id)
	delete(r.mockPorts, id)

	last := len(binding.mocks) == 0
	if last {
		delete(r.ports, port)
	}
	r.mu.Unlock()

	var closeErr error
	if last {
		closeErr = binding.close()
		if closeErr != nil {
			r.log.Warn("listener close timed out", "port", port)
		}
	}

	r.log.Info("http mock unregistered", "id", id, "port", port)
	r.diag.PushNew(diag.EventStop, id, def.ProjectID, nil)
	r.diag.Status(diag.Status{
		NodeID:    id,
		ProjectID: def.ProjectID,
		State:     diag.StateStopped,
		Port:      port,
	})
	return closeErr
}

// close shuts the binding's listener down, waiting up to the close budget
// for in-flight requests before cutting remaining connections.
func (b *portBinding) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := b.srv.Shutdown(ctx); err != nil {
		b.srv.Close()
		return &CloseTimeoutError{Port: b.port}
	}
	return nil
}

// Replace atomically swaps the definition of a registered mock. When the
// port is unchanged the listener is untouched; a port change is an
// unregister followed by a register.
func (r *Registry) Replace(id string, def *mock.HTTPDefinition) error {
	def = def.Clone()
	def.ID = id

	r.mu.Lock()
	oldPort, ok := r.mockPorts[id]
	if !ok {
		r.mu.Unlock()
		return ErrMockNotFound
	}
	if oldPort == def.RequestCondition.Port {
		r.ports[oldPort].mocks[id] = def
		r.mu.Unlock()
		r.log.Info("http mock replaced", "id", id, "port", oldPort)
		return nil
	}
	r.mu.Unlock()

	if err := r.Unregister(id); err != nil {
		return err
	}
	return r.Register(def)
}

// Lookup returns a copy of a registered mock's definition.
func (r *Registry) Lookup(id string) (*mock.HTTPDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	port, ok := r.mockPorts[id]
	if !ok {
		return nil, ErrMockNotFound
	}
	return r.ports[port].mocks[id].Clone(), nil
}

// ListStates reports the serving state of registered mocks. A non-empty
// projectID restricts the report to that project; empty means all.
func (r *Registry) ListStates(projectID string) []diag.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]diag.Status, 0, len(r.mockPorts))
	for _, binding := range r.ports {
		for id, def := range binding.mocks {
			if projectID != "" && def.ProjectID != projectID {
				continue
			}
			out = append(out, diag.Status{
				NodeID:    id,
				ProjectID: def.ProjectID,
				State:     diag.StateRunning,
				Port:      binding.port,
			})
		}
	}
	return out
}

// Shutdown tears down every listener. Used on process exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	bindings := make([]*portBinding, 0, len(r.ports))
	for port, binding := range r.ports {
		delete(r.ports, port)
		bindings = append(bindings, binding)
	}
	for id := range r.mockPorts {
		delete(r.mockPorts, id)
	}
	r.mu.Unlock()

	for _, binding := range bindings {
		binding.close()
	}
}
